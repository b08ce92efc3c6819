// Package graph assembles disciplinary units and coupling groups into a
// single evaluable model. Ports are bound either by promotion (ports sharing
// a promoted name at the root scope become one variable) or by explicit
// connection (a source port path wired to one or more destination paths).
// Assembly flattens the hierarchy, resolves every input to at most one
// source, collapses each coupling group to an opaque node, and topologically
// orders the result. All structural problems are reported at assembly time;
// nothing is retried.
package graph

import (
	"github.com/san-kum/mdokit/internal/mdo"
	"github.com/san-kum/mdokit/internal/solver"
)

// Promotion selects which of a unit's (or group's) variables are lifted into
// the enclosing scope, and under what names.
type Promotion struct {
	all   bool
	names map[string]string
}

// PromoteAll lifts every declared variable under its own name.
func PromoteAll() Promotion { return Promotion{all: true} }

// Promote lifts the listed variables under their own names.
func Promote(names ...string) Promotion {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = n
	}
	return Promotion{names: m}
}

// PromoteAs lifts a single variable under a different name.
func PromoteAs(local, as string) Promotion {
	return Promotion{names: map[string]string{local: as}}
}

func mergePromotions(promos []Promotion) Promotion {
	out := Promotion{names: make(map[string]string)}
	for _, p := range promos {
		if p.all {
			out.all = true
		}
		for k, v := range p.names {
			out.names[k] = v
		}
	}
	return out
}

// resolve returns the scope-level name for a local variable, or "" when the
// variable is not promoted.
func (p Promotion) resolve(local string) string {
	if as, ok := p.names[local]; ok {
		return as
	}
	if p.all {
		return local
	}
	return ""
}

type member struct {
	unit   mdo.Unit
	promos Promotion
}

// Group is a set of mutually dependent units converged by a fixed-point
// solver. Its internal cycle is hidden from the outer model topology.
type Group struct {
	name    string
	members []member
	promos  Promotion
	opts    solver.Options
}

func NewGroup(name string, opts solver.Options) *Group {
	return &Group{name: name, opts: opts}
}

func (g *Group) Name() string { return g.name }

// AddUnit registers a member unit. Members are evaluated in registration
// order on every solver sweep; the order is part of the model definition.
func (g *Group) AddUnit(u mdo.Unit, promos ...Promotion) *Group {
	g.members = append(g.members, member{unit: u, promos: mergePromotions(promos)})
	return g
}

type connection struct {
	src  string
	dsts []string
}

// Builder accumulates the model definition: root-level units, coupling
// groups, and explicit connections.
type Builder struct {
	units       []member
	groups      []groupEntry
	order       []nodeRef // insertion order across units and groups
	connections []connection
}

type groupEntry struct {
	group  *Group
	promos Promotion
}

type nodeRef struct {
	group bool
	index int
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddUnit registers a standalone unit at the root scope.
func (b *Builder) AddUnit(u mdo.Unit, promos ...Promotion) *Builder {
	b.units = append(b.units, member{unit: u, promos: mergePromotions(promos)})
	b.order = append(b.order, nodeRef{group: false, index: len(b.units) - 1})
	return b
}

// AddGroup registers a coupling group. The group's promotions lift its
// scope-level names into the root scope.
func (b *Builder) AddGroup(g *Group, promos ...Promotion) *Builder {
	b.groups = append(b.groups, groupEntry{group: g, promos: mergePromotions(promos)})
	b.order = append(b.order, nodeRef{group: true, index: len(b.groups) - 1})
	return b
}

// Connect wires an output port to one or more input ports, bypassing name
// matching. Ports are addressed by path ("unit.var" or "group.unit.var") or
// by their promoted name. A connection overrides a same-named promotion for
// the destination input.
func (b *Builder) Connect(src string, dsts ...string) *Builder {
	b.connections = append(b.connections, connection{src: src, dsts: dsts})
	return b
}

// Build flattens the definition into an evaluable Model. It fails with
// *mdo.BindingError for inputs with zero sources and no default or with more
// than one distinct source, and with *mdo.ConfigurationError for duplicate
// node names, unknown ports, or cycles outside a declared group.
func (b *Builder) Build() (*Model, error) {
	f := newFlattener(b)
	if err := f.collectPorts(); err != nil {
		return nil, err
	}
	if err := f.applyConnections(); err != nil {
		return nil, err
	}
	if err := f.resolveSources(); err != nil {
		return nil, err
	}
	order, err := f.sortNodes()
	if err != nil {
		return nil, err
	}
	return f.compile(order), nil
}
