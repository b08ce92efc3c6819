package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/mdokit/internal/mdo"
)

// port is one input or output variable of one unit, flattened to root scope.
type port struct {
	node    int
	unit    mdo.Unit
	local   string
	path    string // "unit.var" or "group.unit.var"
	canon   string // root-scope name after promotion
	def     mdo.Value
	output  bool
	connSrc string // explicit connection override (inputs only)
	src     string // resolved source name (inputs only)
	bound   bool
}

type nodeInfo struct {
	ref     nodeRef
	name    string
	members []member
	inputs  []*port
	outputs []*port
}

type flattener struct {
	b          *Builder
	nodes      []*nodeInfo
	inputs     []*port
	outputs    []*port
	outByPath  map[string]*port
	outByCanon map[string][]*port
	inByPath   map[string]*port
	inByCanon  map[string][]*port
}

func newFlattener(b *Builder) *flattener {
	return &flattener{
		b:          b,
		outByPath:  make(map[string]*port),
		outByCanon: make(map[string][]*port),
		inByPath:   make(map[string]*port),
		inByCanon:  make(map[string][]*port),
	}
}

func (f *flattener) collectPorts() error {
	seen := make(map[string]bool)
	for _, ref := range f.b.order {
		var ni *nodeInfo
		if ref.group {
			entry := f.b.groups[ref.index]
			ni = &nodeInfo{ref: ref, name: entry.group.name, members: entry.group.members}
		} else {
			m := f.b.units[ref.index]
			ni = &nodeInfo{ref: ref, name: m.unit.Name(), members: []member{m}}
		}
		if ni.name == "" {
			return &mdo.ConfigurationError{Detail: "node with empty name"}
		}
		if seen[ni.name] {
			return &mdo.ConfigurationError{Detail: fmt.Sprintf("duplicate node name %q", ni.name)}
		}
		seen[ni.name] = true
		f.nodes = append(f.nodes, ni)
	}

	for idx, ni := range f.nodes {
		memberSeen := make(map[string]bool)
		for _, m := range ni.members {
			if memberSeen[m.unit.Name()] {
				return &mdo.ConfigurationError{
					Detail: fmt.Sprintf("node %q has duplicate member %q", ni.name, m.unit.Name()),
				}
			}
			memberSeen[m.unit.Name()] = true
			if err := checkPromotion(m.promos, m.unit); err != nil {
				return err
			}
			for _, d := range m.unit.Inputs() {
				p := f.makePort(idx, ni, m, d, false)
				ni.inputs = append(ni.inputs, p)
				f.inputs = append(f.inputs, p)
				f.inByPath[p.path] = p
				f.inByCanon[p.canon] = append(f.inByCanon[p.canon], p)
			}
			for _, d := range m.unit.Outputs() {
				p := f.makePort(idx, ni, m, d, true)
				if prior := f.outByCanon[p.canon]; len(prior) > 0 {
					return &mdo.BindingError{
						Input:   p.canon,
						Sources: []string{prior[0].path, p.path},
					}
				}
				ni.outputs = append(ni.outputs, p)
				f.outputs = append(f.outputs, p)
				f.outByPath[p.path] = p
				f.outByCanon[p.canon] = append(f.outByCanon[p.canon], p)
			}
		}
	}
	return nil
}

func checkPromotion(p Promotion, u mdo.Unit) error {
	declared := make(map[string]bool)
	for _, d := range u.Inputs() {
		declared[d.Name] = true
	}
	for _, d := range u.Outputs() {
		declared[d.Name] = true
	}
	for local := range p.names {
		if !declared[local] {
			return &mdo.ConfigurationError{
				Detail: fmt.Sprintf("unit %q promotes undeclared variable %q", u.Name(), local),
			}
		}
	}
	return nil
}

func (f *flattener) makePort(idx int, ni *nodeInfo, m member, d mdo.Var, output bool) *port {
	p := &port{
		node:   idx,
		unit:   m.unit,
		local:  d.Name,
		def:    d.Default,
		output: output,
	}
	if ni.ref.group {
		entry := f.b.groups[ni.ref.index]
		p.path = ni.name + "." + m.unit.Name() + "." + d.Name
		inner := m.promos.resolve(d.Name)
		if inner == "" {
			inner = m.unit.Name() + "." + d.Name
		}
		if canon := entry.promos.resolve(inner); canon != "" {
			p.canon = canon
		} else {
			p.canon = ni.name + "." + inner
		}
	} else {
		p.path = m.unit.Name() + "." + d.Name
		if canon := m.promos.resolve(d.Name); canon != "" {
			p.canon = canon
		} else {
			p.canon = p.path
		}
	}
	return p
}

func (f *flattener) applyConnections() error {
	for _, c := range f.b.connections {
		src, err := f.findOutput(c.src)
		if err != nil {
			return err
		}
		for _, dst := range c.dsts {
			targets, err := f.findInputs(dst)
			if err != nil {
				return err
			}
			for _, t := range targets {
				if t.connSrc != "" && t.connSrc != src.canon {
					return &mdo.BindingError{Input: t.path, Sources: []string{t.connSrc, src.canon}}
				}
				t.connSrc = src.canon
			}
		}
	}
	return nil
}

func (f *flattener) findOutput(name string) (*port, error) {
	if p, ok := f.outByPath[name]; ok {
		return p, nil
	}
	if ps := f.outByCanon[name]; len(ps) == 1 {
		return ps[0], nil
	}
	return nil, &mdo.ConfigurationError{Detail: fmt.Sprintf("unknown source port %q", name)}
}

func (f *flattener) findInputs(name string) ([]*port, error) {
	if p, ok := f.inByPath[name]; ok {
		return []*port{p}, nil
	}
	if ps := f.inByCanon[name]; len(ps) > 0 {
		return ps, nil
	}
	return nil, &mdo.ConfigurationError{Detail: fmt.Sprintf("unknown destination port %q", name)}
}

func (f *flattener) resolveSources() error {
	for _, p := range f.inputs {
		p.src = p.canon
		if p.connSrc != "" {
			p.src = p.connSrc
		}
		p.bound = len(f.outByCanon[p.src]) > 0
		if !p.bound && p.def == nil {
			return &mdo.BindingError{Input: p.canon}
		}
	}
	return nil
}

// sortNodes orders nodes topologically with each group collapsed to a single
// opaque node. Kahn's algorithm over insertion-ordered scans keeps the result
// deterministic. Any leftover nodes form a cycle that crosses node
// boundaries, which is a configuration error.
func (f *flattener) sortNodes() ([]int, error) {
	n := len(f.nodes)
	indeg := make([]int, n)
	succ := make([][]int, n)
	edge := make(map[[2]int]bool)

	for _, p := range f.inputs {
		if !p.bound {
			continue
		}
		for _, src := range f.outByCanon[p.src] {
			a, b := src.node, p.node
			if a == b || edge[[2]int{a, b}] {
				continue
			}
			edge[[2]int{a, b}] = true
			succ[a] = append(succ[a], b)
			indeg[b]++
		}
	}

	order := make([]int, 0, n)
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, next := range succ[cur] {
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) < n {
		var stuck []string
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				stuck = append(stuck, f.nodes[i].name)
			}
		}
		return nil, &mdo.ConfigurationError{
			Detail: "dependency cycle outside a coupling group involving: " + strings.Join(stuck, ", "),
		}
	}
	return order, nil
}

func (f *flattener) compile(order []int) *Model {
	m := &Model{}
	for _, idx := range order {
		ni := f.nodes[idx]
		cn := compiledNode{name: ni.name, group: ni.ref.group}
		if ni.ref.group {
			cn.opts = f.b.groups[ni.ref.index].group.opts
		}

		byUnit := make(map[string]*compiledUnit)
		for _, mem := range ni.members {
			cu := &compiledUnit{unit: mem.unit}
			byUnit[mem.unit.Name()] = cu
			cn.units = append(cn.units, cu)
		}
		for _, p := range ni.inputs {
			cu := byUnit[p.unit.Name()]
			cu.inputs = append(cu.inputs, compiledInput{local: p.local, src: p.src, def: p.def})
		}
		for _, p := range ni.outputs {
			cu := byUnit[p.unit.Name()]
			cu.outputs = append(cu.outputs, compiledOutput{local: p.local, canon: p.canon, def: p.def})
			if cn.group {
				cn.tracked = append(cn.tracked, p.canon)
			}
		}
		m.nodes = append(m.nodes, cn)
	}
	return m
}
