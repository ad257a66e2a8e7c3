package expr

import "github.com/cuemby/graphcore/pkg/types"

type propKey struct {
	owner string
	prop  string
}

// Context is the evaluation environment FilterNode, UpdateTagNode and
// UpdateResNode build before calling Evaluate. It mirrors the two ways
// the execution plan feeds an expression: properties read live off a
// RowReader-backed row via SetTagProp/SetEdgeProp (the get-neighbors
// path, refreshed per input), or bound once from an update's working
// copy of a row (the update path, refreshed after each assignment).
type Context struct {
	tagProps  map[propKey]types.Value
	edgeProps map[propKey]types.Value
	vars      map[string]types.Value
	pseudo    map[string]types.Value
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		tagProps:  make(map[propKey]types.Value),
		edgeProps: make(map[propKey]types.Value),
		vars:      make(map[string]types.Value),
		pseudo:    make(map[string]types.Value),
	}
}

// Reset clears every bound property, variable and pseudo-column without
// discarding the backing maps, so a single Context can be reused across
// every input a partition's loop processes.
func (c *Context) Reset() {
	for k := range c.tagProps {
		delete(c.tagProps, k)
	}
	for k := range c.edgeProps {
		delete(c.edgeProps, k)
	}
	for k := range c.vars {
		delete(c.vars, k)
	}
	for k := range c.pseudo {
		delete(c.pseudo, k)
	}
}

func (c *Context) SetTagProp(tag, prop string, v types.Value) {
	c.tagProps[propKey{tag, prop}] = v
}

func (c *Context) SetEdgeProp(edge, prop string, v types.Value) {
	c.edgeProps[propKey{edge, prop}] = v
}

// SetSrcProp and SetDstProp share the tag-prop map with SetTagProp:
// $^.tag.prop and $$.tag.prop both resolve against whichever vertex's
// tag row the caller last loaded, distinguished at evaluation time only
// by which Kind the expression node carries.
func (c *Context) SetSrcProp(tag, prop string, v types.Value) { c.SetTagProp(tag, prop, v) }
func (c *Context) SetDstProp(tag, prop string, v types.Value) { c.SetTagProp(tag, prop, v) }

func (c *Context) SetVar(name string, v types.Value) {
	c.vars[name] = v
}

// SetPseudoColumn binds one of _vid, _tag, _src, _type, _rank, _dst to
// the current row's value for that reserved column.
func (c *Context) SetPseudoColumn(name string, v types.Value) {
	c.pseudo[name] = v
}

func (c *Context) tagProp(tag, prop string) types.Value {
	if v, ok := c.tagProps[propKey{tag, prop}]; ok {
		return v
	}
	return types.NullValue()
}

func (c *Context) edgeProp(edge, prop string) types.Value {
	if v, ok := c.edgeProps[propKey{edge, prop}]; ok {
		return v
	}
	return types.NullValue()
}

func (c *Context) pseudoColumn(name string) types.Value {
	if v, ok := c.pseudo[name]; ok {
		return v
	}
	return types.NullValue()
}

func (c *Context) variable(name string) types.Value {
	if v, ok := c.vars[name]; ok {
		return v
	}
	return types.NullValue()
}
