// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"math"
	"strings"

	"go.uber.org/zap"
)

// Mode selects what a traversal does with its contexts.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
	ModeDoc
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "doc"
	}
}

// stream is the cursor shared by every context of one traversal.
type stream struct {
	buf []byte
	pos int
}

func (s *stream) write(p []byte) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
}

type env struct {
	logger   *zap.Logger
	fileName string
}

// Option configures a traversal.
type Option func(*env)

// WithLogger routes engine diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *env) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFileName records the resource file name. Blocks that probe by file
// suffix read it back with Context.FileName.
func WithFileName(name string) Option {
	return func(e *env) { e.fileName = name }
}

func newEnv(opts []Option) *env {
	e := &env{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Context is one node of the traversal tree. It mirrors the value tree
// being decoded or encoded and resolves the paths used by dynamic length
// and choice expressions.
//
// A parent owns its children; children keep a back-pointer for ancestor
// lookups. Contexts live for the duration of the Decode/Encode call that
// created them, except the root, which stays reachable from the values.
type Context struct {
	name     string
	block    Block
	parent   *Context
	children map[string]*Context
	mode     Mode
	s        *stream
	start    int
	budget   int
	value    *Value
	params   map[string]any
	env      *env
}

func newRoot(mode Mode, s *stream, start, budget int, e *env) *Context {
	return &Context{mode: mode, s: s, start: start, budget: budget, env: e}
}

func (c *Context) newChild(name string, b Block, budget int) *Context {
	child := &Context{
		name:   name,
		block:  b,
		parent: c,
		mode:   c.mode,
		s:      c.s,
		start:  c.s.pos,
		budget: budget,
		env:    c.env,
	}
	if c.children == nil {
		c.children = make(map[string]*Context)
	}
	c.children[name] = child
	return child
}

// Name returns the field name of the context.
func (c *Context) Name() string { return c.name }

// Block returns the block that owns the context.
func (c *Context) Block() Block { return c.block }

// Parent returns the enclosing context, nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Mode reports whether the traversal reads, writes or documents.
func (c *Context) Mode() Mode { return c.mode }

// Value returns the value the context is building or writing.
func (c *Context) Value() *Value { return c.value }

// Logger returns the traversal logger.
func (c *Context) Logger() *zap.Logger { return c.env.logger }

// FileName returns the resource file name given with WithFileName.
func (c *Context) FileName() string { return c.env.fileName }

// Path returns the slash separated field path from the root.
func (c *Context) Path() string {
	if c.parent == nil {
		return "$"
	}
	return c.parent.Path() + "/" + c.name
}

// Child returns the context for a relative field path, creating missing
// nodes. ".." ascends to the parent.
func (c *Context) Child(path string) *Context {
	cur := c
	for _, seg := range splitPath(path) {
		if seg == ".." {
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		next, ok := cur.children[seg]
		if !ok {
			var b Block
			if cur.block != nil {
				if f, ok := cur.block.(fieldBlocker); ok {
					b, _ = f.FieldBlock(seg)
				}
			}
			next = cur.newChild(seg, b, -1)
		}
		cur = next
	}
	return cur
}

// Start returns the absolute offset at which the context began.
func (c *Context) Start() int { return c.start }

// Pos returns the absolute cursor offset.
func (c *Context) Pos() int {
	if c.s == nil {
		return 0
	}
	return c.s.pos
}

// Consumed returns how far the cursor moved since the context began.
func (c *Context) Consumed() int { return c.Pos() - c.start }

// Budget returns the byte budget of the context, -1 when unbounded.
func (c *Context) Budget() int { return c.budget }

// Remaining returns the bytes left in the budget of this block.
func (c *Context) Remaining() int {
	if c.s == nil {
		return 0
	}
	if c.mode != ModeRead {
		if c.budget < 0 {
			return math.MaxInt32
		}
		return c.budget - c.Consumed()
	}
	avail := len(c.s.buf) - c.s.pos
	if avail < 0 {
		avail = 0
	}
	if c.budget < 0 {
		return avail
	}
	r := c.budget - c.Consumed()
	if r > avail {
		r = avail
	}
	if r < 0 {
		r = 0
	}
	return r
}

// Len returns the size of the underlying buffer.
func (c *Context) Len() int {
	if c.s == nil {
		return 0
	}
	return len(c.s.buf)
}

// Seek moves the cursor to an absolute offset. Write traversals may seek
// past the end; the gap is zero filled on the next write.
func (c *Context) Seek(offset int) error {
	if offset < 0 || (c.mode == ModeRead && offset > len(c.s.buf)) {
		return c.Errorf(ErrEndOfBuffer, "seek to %d outside buffer of %d bytes", offset, len(c.s.buf))
	}
	if c.mode == ModeWrite && offset > len(c.s.buf) {
		c.s.buf = append(c.s.buf, make([]byte, offset-len(c.s.buf))...)
	}
	c.s.pos = offset
	return nil
}

// ReadBytes consumes n bytes. The returned slice aliases the input.
func (c *Context) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, c.Errorf(ErrBlockDefinition, "negative read of %d bytes", n)
	}
	if n > c.Remaining() {
		return nil, c.Errorf(ErrEndOfBuffer, "need %d bytes, %d remaining", n, c.Remaining())
	}
	p := c.s.buf[c.s.pos : c.s.pos+n]
	c.s.pos += n
	return p, nil
}

// Peek returns up to n bytes at the cursor without consuming them.
func (c *Context) Peek(n int) []byte {
	if r := c.Remaining(); n > r {
		n = r
	}
	return c.s.buf[c.s.pos : c.s.pos+n]
}

// Slice returns a copy of the buffer between two absolute offsets.
func (c *Context) Slice(from, to int) []byte {
	if from < 0 {
		from = 0
	}
	if to > len(c.s.buf) {
		to = len(c.s.buf)
	}
	if to <= from {
		return nil
	}
	return append([]byte(nil), c.s.buf[from:to]...)
}

// WriteBytes writes p at the cursor, overwriting or extending the output.
func (c *Context) WriteBytes(p []byte) error {
	if c.mode != ModeWrite {
		return c.Errorf(ErrBlockDefinition, "write in %s traversal", c.mode)
	}
	c.s.write(p)
	return nil
}

// SetParam stores a scratch value on the context. Data falls back to
// params of the traversed contexts when no decoded field matches.
func (c *Context) SetParam(name string, v any) {
	if c.params == nil {
		c.params = make(map[string]any)
	}
	c.params[name] = v
}

// Param looks a scratch value up on c and its ancestors.
func (c *Context) Param(name string) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.params[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Data resolves an already decoded sibling or ancestor value. Forward
// references to fields that are not decoded yet are not resolvable.
// Documentation contexts answer with a Symbol naming the path.
func (c *Context) Data(path string) (any, bool) {
	if c.mode == ModeDoc {
		return Symbol(path), true
	}
	if v, ok := c.Lookup(path); ok {
		return v.Unwrap().data, true
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	return c.Param(segs[len(segs)-1])
}

// Lookup resolves path to a value. Leading ".." segments ascend the
// context tree; the remaining names descend into the value found there.
func (c *Context) Lookup(path string) (*Value, bool) {
	cur := c
	var v *Value
	for _, seg := range splitPath(path) {
		if seg == ".." {
			if v != nil || cur.parent == nil {
				return nil, false
			}
			cur = cur.parent
			continue
		}
		if v == nil {
			if v = cur.value; v == nil {
				return nil, false
			}
		}
		next, ok := v.Child(seg)
		if !ok {
			return nil, false
		}
		v = next
	}
	if v == nil {
		v = cur.value
	}
	return v, v != nil
}

type fieldBlocker interface {
	FieldBlock(name string) (Block, bool)
}

// RelativeBlock resolves the schema block bound to path. It lets one
// field introspect the schema of another, for instance an enum table.
func (c *Context) RelativeBlock(path string) (Block, error) {
	cur := c
	var b Block
	for _, seg := range splitPath(path) {
		if seg == ".." {
			if b != nil || cur.parent == nil {
				return nil, c.Errorf(ErrBlockDefinition, "cannot ascend in %q", path)
			}
			cur = cur.parent
			continue
		}
		if b == nil {
			b = cur.block
		}
		f, ok := b.(fieldBlocker)
		if !ok {
			return nil, c.Errorf(ErrBlockDefinition, "%T has no field %q", b, seg)
		}
		if b, ok = f.FieldBlock(seg); !ok {
			return nil, c.Errorf(ErrBlockDefinition, "no field %q in %q", seg, path)
		}
	}
	if b == nil {
		b = cur.block
	}
	if b == nil {
		return nil, c.Errorf(ErrBlockDefinition, "no block bound to %q", path)
	}
	return b, nil
}

// ReadChild decodes b as the field name of c. budget limits the bytes the
// child may consume; a negative budget inherits what remains in c.
//
// When b uses the Return policy, a failure is recorded as a *Failure in
// the returned value instead of being returned.
func (c *Context) ReadChild(name string, b Block, budget int) (*Value, error) {
	explicit := budget >= 0
	if rem := c.Remaining(); budget < 0 || budget > rem {
		budget = rem
	}
	return c.read(c.newChild(name, b, budget), b, explicit)
}

// ReadDetached decodes b from a separate buffer, as a child of c. Paths
// still resolve through c.
func (c *Context) ReadDetached(name string, b Block, buf []byte) (*Value, error) {
	child := &Context{
		name:   name,
		block:  b,
		parent: c,
		mode:   ModeRead,
		s:      &stream{buf: buf},
		budget: len(buf),
		env:    c.env,
	}
	if c.children == nil {
		c.children = make(map[string]*Context)
	}
	c.children[name] = child
	return child.read(child, b, true)
}

func (c *Context) read(child *Context, b Block, explicit bool) (*Value, error) {
	v := &Value{block: b, ctx: child, name: child.name, offset: child.start}
	child.value = v
	data, err := b.Decode(child)
	if err == nil {
		err = checkExpected(child, b, data)
	}
	if err != nil {
		if policyOf(b) != Return {
			return nil, err
		}
		child.Logger().Warn("tolerated decode failure",
			zap.String("path", child.Path()), zap.Error(err))
		if explicit {
			child.s.pos = child.start + child.budget
		} else {
			child.s.pos = child.start
		}
		v.data = &Failure{Err: err}
		v.size = child.Consumed()
		return v, nil
	}
	v.data = data
	v.size = child.Consumed()
	return v, nil
}

// WriteValue encodes v as the field name of c.
func (c *Context) WriteValue(name string, v *Value) error {
	if v == nil {
		return c.Errorf(ErrSerialization, "missing value for %q", name)
	}
	if f, ok := v.data.(*Failure); ok {
		return c.Wrapf(ErrSerialization, f.Err, "value %q recorded a decode failure", name)
	}
	child := c.newChild(name, v.block, -1)
	child.value = v
	return v.block.Encode(child, v.data)
}

// WriteData encodes raw data with b as the field name of c.
func (c *Context) WriteData(name string, b Block, data any) error {
	if v, ok := data.(*Value); ok {
		return c.WriteValue(name, v)
	}
	return c.WriteValue(name, &Value{block: b, name: name, data: data})
}

// Measure returns the encoded size of v, written in a scratch stream as a
// child of c so that its expressions resolve against the same ancestors.
func (c *Context) Measure(name string, v *Value) (int, error) {
	p, err := c.EncodeDetached(name, v)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// EncodeDetached encodes v into a separate buffer, as a child of c.
func (c *Context) EncodeDetached(name string, v *Value) ([]byte, error) {
	// scratch stands in for c, so the child sees c's siblings.
	scratch := &Context{
		name:   c.name,
		block:  c.block,
		parent: c.parent,
		mode:   ModeWrite,
		s:      &stream{},
		budget: -1,
		value:  c.value,
		params: c.params,
		env:    c.env,
	}
	if err := scratch.WriteValue(name, v); err != nil {
		return nil, err
	}
	return scratch.s.buf, nil
}

// Describe documents b as the field name of c. Blocks already on the
// ancestor chain are reported as recursive references.
func (c *Context) Describe(name string, b Block) Schema {
	for p := c; p != nil; p = p.parent {
		if p.block != nil && p.block == b {
			return Schema{Name: name, Type: "recursive", Description: describe(b)}
		}
	}
	child := c.newChild(name, b, -1)
	s := b.Schema(child)
	s.Name = name
	if s.Description == "" {
		s.Description = describe(b)
	}
	return s
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}
