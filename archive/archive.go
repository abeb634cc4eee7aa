// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package archive implements offset-table containers: a header of child
// descriptors followed by a heap of child resources. Offsets are
// regenerated from the measured layout on every write.
package archive

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/suprsokr/go-resfile/block"
)

// Descriptor locates one child. Offset is absolute; Length is -1 when the
// format does not record it.
type Descriptor struct {
	Alias  string
	Offset int
	Length int
	Null   bool
}

// Placed is where a child ended up during a write. Offset is relative to
// the container start.
type Placed struct {
	Alias  string
	Offset int
	Length int
	Null   bool
}

// Layout is one concrete container format.
type Layout interface {
	Name() string

	// Header returns the header block.
	Header() block.Block

	// NewHeader returns a header value for an empty container.
	NewHeader() *block.Value

	// Offsets lists the children described by a decoded header. start is
	// the absolute offset of the container.
	Offsets(c *block.Context, start int, header *block.Value) ([]Descriptor, error)

	// Generate rewrites the header fields from the measured placement of
	// the children. total is the container length.
	Generate(c *block.Context, header *block.Value, items []Placed, total int) error

	// TotalLength returns the container length recorded in the header.
	TotalLength(header *block.Value) (int, bool)
}

// Item is one child of a decoded archive.
type Item struct {
	Alias string

	// Value is the decoded child, nil for null and shared items.
	Value *block.Value

	// Gap holds the bytes between the previous child and this one.
	Gap []byte

	// Ref is the index of the item whose data this one shares, or -1.
	Ref int

	// Null marks a descriptor that points back at the container itself
	// or at nothing.
	Null bool

	// Extra is an un-indexed entry found right after the child.
	Extra *block.Value
}

// Archive is the data of a Container.
type Archive struct {
	Header *block.Value

	// Items are in descriptor order.
	Items []*Item

	// Order is the layout order of Items: ascending offset at read time.
	Order []int

	// Trailing holds bytes after the last child up to the container end.
	Trailing []byte
}

// NewArchive returns an empty archive for l.
func NewArchive(l Layout) *Archive {
	return &Archive{Header: l.NewHeader()}
}

// Add appends a child at the end of the layout.
func (a *Archive) Add(alias string, v *block.Value) *Item {
	it := &Item{Alias: alias, Value: v, Ref: -1}
	a.Items = append(a.Items, it)
	a.Order = append(a.Order, len(a.Items)-1)
	return it
}

// AddNull appends a null descriptor.
func (a *Archive) AddNull(alias string) *Item {
	it := &Item{Alias: alias, Ref: -1, Null: true}
	a.Items = append(a.Items, it)
	a.Order = append(a.Order, len(a.Items)-1)
	return it
}

// Resolve returns the value of item i, following shared references.
func (a *Archive) Resolve(i int) (*block.Value, bool) {
	for hops := 0; i >= 0 && i < len(a.Items) && hops <= len(a.Items); hops++ {
		it := a.Items[i]
		if it.Null {
			return nil, false
		}
		if it.Ref < 0 {
			return it.Value, it.Value != nil
		}
		i = it.Ref
	}
	return nil, false
}

// Child returns a child by alias, or by index when no alias matches.
func (a *Archive) Child(name string) (*block.Value, bool) {
	for i, it := range a.Items {
		if it.Alias == name {
			return a.Resolve(i)
		}
	}
	if i, err := strconv.Atoi(name); err == nil {
		return a.Resolve(i)
	}
	return nil, false
}

// ExtraScanner inspects the bytes after a decoded child and returns the
// block of an un-indexed entry stored there, or nil.
type ExtraScanner func(c *block.Context, it *Item, limit int) block.Block

// Container decodes an archive with Layout, decoding each child with Child.
type Container struct {
	block.Base
	Layout Layout
	Child  block.Block
	Extra  ExtraScanner
}

func (b *Container) Decode(c *block.Context) (any, error) {
	start := c.Pos()
	header, err := c.ReadChild("header", b.Layout.Header(), -1)
	if err != nil {
		return nil, err
	}
	descs, err := b.Layout.Offsets(c, start, header)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + c.Remaining()
	if total, ok := b.Layout.TotalLength(header); ok {
		if start+total > end {
			return nil, c.Errorf(block.ErrEndOfBuffer, "%s of %d bytes, %d available", b.Layout.Name(), total, end-start)
		}
		end = start + total
	}

	order := make([]int, len(descs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return descs[order[x]].Offset < descs[order[y]].Offset
	})

	a := &Archive{Header: header, Items: make([]*Item, len(descs)), Order: order}
	log := c.Logger()
	pos := c.Pos()
	seen := make(map[int]int)
	for k, i := range order {
		d := descs[i]
		it := &Item{Alias: d.Alias, Ref: -1}
		a.Items[i] = it
		if d.Null || d.Offset == start {
			it.Null = true
			continue
		}
		if j, ok := seen[d.Offset]; ok {
			it.Ref = j
			continue
		}
		if d.Offset < pos {
			return nil, c.Errorf(block.ErrDataIntegrity, "child %q at %d overlaps data ending at %d", d.Alias, d.Offset, pos)
		}
		if d.Offset > end {
			return nil, c.Errorf(block.ErrDataIntegrity, "child %q at %d beyond container end %d", d.Alias, d.Offset, end)
		}
		if d.Offset > pos {
			log.Debug("gap preserved", zap.String("path", c.Path()), zap.Int("offset", pos), zap.Int("size", d.Offset-pos))
			it.Gap = c.Slice(pos, d.Offset)
			if err := c.Seek(d.Offset); err != nil {
				return nil, err
			}
		}
		limit := end
		for _, j := range order[k+1:] {
			if n := descs[j]; !n.Null && n.Offset != start && n.Offset > d.Offset {
				limit = n.Offset
				break
			}
		}
		budget := limit - d.Offset
		if d.Length >= 0 && d.Length < budget {
			budget = d.Length
		}
		v, err := c.ReadChild(strconv.Itoa(i), b.Child, budget)
		if err != nil {
			return nil, fmt.Errorf("%s child %q: %w", b.Layout.Name(), d.Alias, err)
		}
		it.Value = v
		seen[d.Offset] = i
		if b.Extra != nil && c.Pos() < limit {
			if eb := b.Extra(c, it, limit); eb != nil {
				ev, err := c.ReadChild(strconv.Itoa(i)+"+", eb, limit-c.Pos())
				if err != nil {
					return nil, fmt.Errorf("%s extra after %q: %w", b.Layout.Name(), d.Alias, err)
				}
				it.Extra = ev
			}
		}
		pos = c.Pos()
	}
	if pos < end {
		a.Trailing = c.Slice(pos, end)
	}
	if err := c.Seek(end); err != nil {
		return nil, err
	}
	return a, nil
}

func (b *Container) Encode(c *block.Context, data any) error {
	a, ok := data.(*Archive)
	if !ok {
		return c.Errorf(block.ErrSerialization, "%T is not an archive", data)
	}
	start := c.Pos()
	placed := make([]Placed, len(a.Items))
	for i, it := range a.Items {
		placed[i] = Placed{Alias: it.Alias, Null: it.Null}
	}
	// Placeholder header with the final number of descriptors.
	if err := b.Layout.Generate(c, a.Header, placed, 0); err != nil {
		return err
	}
	if err := c.WriteValue("header", a.Header); err != nil {
		return err
	}
	headerLen := c.Pos() - start

	done := make([]bool, len(a.Items))
	for _, i := range layoutOrder(a) {
		it := a.Items[i]
		switch {
		case it.Null:
			placed[i] = Placed{Alias: it.Alias, Null: true}
			continue
		case it.Ref >= 0:
			if it.Ref >= len(a.Items) || !done[it.Ref] {
				return c.Errorf(block.ErrSerialization, "item %d shares item %d, which is not placed before it", i, it.Ref)
			}
			p := placed[it.Ref]
			p.Alias = it.Alias
			placed[i] = p
			done[i] = true
			continue
		}
		if err := c.WriteBytes(it.Gap); err != nil {
			return err
		}
		off := c.Pos()
		if err := c.WriteValue(strconv.Itoa(i), it.Value); err != nil {
			return fmt.Errorf("%s child %q: %w", b.Layout.Name(), it.Alias, err)
		}
		placed[i] = Placed{Alias: it.Alias, Offset: off - start, Length: c.Pos() - off}
		done[i] = true
		if it.Extra != nil {
			if err := c.WriteValue(strconv.Itoa(i)+"+", it.Extra); err != nil {
				return err
			}
		}
	}
	if err := c.WriteBytes(a.Trailing); err != nil {
		return err
	}
	end := c.Pos()

	if err := b.Layout.Generate(c, a.Header, placed, end-start); err != nil {
		return err
	}
	header, err := c.EncodeDetached("header", a.Header)
	if err != nil {
		return err
	}
	if len(header) != headerLen {
		return c.Errorf(block.ErrSerialization, "%s header changed size from %d to %d", b.Layout.Name(), headerLen, len(header))
	}
	if err := c.Seek(start); err != nil {
		return err
	}
	if err := c.WriteBytes(header); err != nil {
		return err
	}
	return c.Seek(end)
}

// layoutOrder returns a.Order, or descriptor order when Order does not
// cover every item.
func layoutOrder(a *Archive) []int {
	if len(a.Order) == len(a.Items) {
		return a.Order
	}
	out := make([]int, len(a.Items))
	for i := range out {
		out[i] = i
	}
	return out
}

func (b *Container) MinSize() int { return b.Layout.Header().MinSize() }

func (b *Container) Schema(c *block.Context) block.Schema {
	header := c.Describe("header", b.Layout.Header())
	child := c.Describe("[]", b.Child)
	return block.Schema{
		Type:       "archive",
		StaticSize: -1,
		MinSize:    header.MinSize,
		MaxSize:    -1,
		Fields:     []block.Schema{header},
		Element:    &child,
		Formulas:   map[string]string{"layout": b.Layout.Name()},
	}
}

// setField replaces the data of a header field, adding it when absent.
func setField(header *block.Value, name string, data any) error {
	m, ok := header.Fields()
	if !ok {
		return fmt.Errorf("set %s: header is %T", name, header.Data())
	}
	if v, ok := m.Get(name); ok {
		v.Set(data)
		return nil
	}
	cb, ok := header.Block().(*block.Compound)
	if !ok {
		return fmt.Errorf("set %s: header block is %T", name, header.Block())
	}
	fb, ok := cb.FieldBlock(name)
	if !ok {
		return fmt.Errorf("set %s: no such field", name)
	}
	m.Set(name, block.NewValue(fb, data))
	return nil
}

func fieldInt(header *block.Value, name string) (int, error) {
	v, ok := header.Get(name)
	if !ok {
		return 0, fmt.Errorf("header field %s missing", name)
	}
	n, ok := v.Int()
	if !ok {
		return 0, fmt.Errorf("header field %s is %T", name, v.Data())
	}
	return int(n), nil
}

func fieldInts(header *block.Value, name string) ([]int64, error) {
	v, ok := header.Get(name)
	if !ok {
		return nil, fmt.Errorf("header field %s missing", name)
	}
	n, ok := v.Data().([]int64)
	if !ok {
		return nil, fmt.Errorf("header field %s is %T", name, v.Data())
	}
	return n, nil
}
