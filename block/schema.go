// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

// Range is the numeric validity range of a field, for input validation in
// editors.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// Schema is the introspection record of a block.
type Schema struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Type        string            `yaml:"type" json:"type"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	StaticSize  int               `yaml:"static_size" json:"static_size"` // -1 when dynamic
	MinSize     int               `yaml:"min_size" json:"min_size"`
	MaxSize     int               `yaml:"max_size" json:"max_size"` // -1 when unbounded
	Optional    bool              `yaml:"optional,omitempty" json:"optional,omitempty"`
	Computed    bool              `yaml:"computed,omitempty" json:"computed,omitempty"`
	Range       *Range            `yaml:"range,omitempty" json:"range,omitempty"`
	Formulas    map[string]string `yaml:"formulas,omitempty" json:"formulas,omitempty"`
	Names       []string          `yaml:"names,omitempty" json:"names,omitempty"`
	Fields      []Schema          `yaml:"fields,omitempty" json:"fields,omitempty"`
	Element     *Schema           `yaml:"element,omitempty" json:"element,omitempty"`
	Variants    []Schema          `yaml:"variants,omitempty" json:"variants,omitempty"`
}

// fixedSchema documents a block of static size.
func fixedSchema(typ string, size int) Schema {
	return Schema{Type: typ, StaticSize: size, MinSize: size, MaxSize: size}
}

// dynamicSchema documents a block whose size is only bounded.
func dynamicSchema(typ string, min int) Schema {
	return Schema{Type: typ, StaticSize: -1, MinSize: min, MaxSize: -1}
}

func formula(c *Context, e Expr) string {
	v, err := e.Eval(c)
	if err != nil {
		return e.String()
	}
	if s, ok := v.(Symbol); ok {
		return string(s)
	}
	n, _ := toInt64(v)
	return Const(int(n)).String()
}
