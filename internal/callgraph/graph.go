// Package callgraph builds the method call graph of a PHP source tree and
// its reverse adjacency index.
//
// Nodes are canonical method keys. Forward edges carry the kind of syntax
// that justified them; the reverse index additionally holds interface
// bridges added by Link, which have no forward counterpart.
package callgraph

import (
	"sort"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// EdgeKind tags how a call was resolved.
type EdgeKind string

const (
	EdgeStatic        EdgeKind = "static"
	EdgeIntra         EdgeKind = "intra"
	EdgeThisProp      EdgeKind = "this-prop"
	EdgeMethod        EdgeKind = "method"
	EdgeFactoryReturn EdgeKind = "factory-return"
	EdgeIfaceImpl     EdgeKind = "iface-impl"

	// EdgeInterfaceLink marks a reverse-only entry from an implementation
	// to the interface method it fulfils.
	EdgeInterfaceLink EdgeKind = "iface-link"
)

// Node is a method in the graph. Methods without a declaration in the
// indexed sources have Visibility Unknown.
type Node struct {
	Key        naming.Key         `json:"key" yaml:"key"`
	Class      naming.FQN         `json:"class" yaml:"class"`
	Method     string             `json:"method" yaml:"method"`
	Visibility symbols.Visibility `json:"visibility" yaml:"visibility"`
}

// Edge is a directed caller → callee relation.
type Edge struct {
	From naming.Key `json:"from" yaml:"from"`
	To   naming.Key `json:"to" yaml:"to"`
	Kind EdgeKind   `json:"kind" yaml:"kind"`
}

// Graph holds the nodes, the forward edges and the reverse index.
type Graph struct {
	nodes   map[naming.Key]*Node
	out     map[naming.Key]map[naming.Key]EdgeKind
	reverse map[naming.Key]map[naming.Key]struct{}
	edges   int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[naming.Key]*Node),
		out:     make(map[naming.Key]map[naming.Key]EdgeKind),
		reverse: make(map[naming.Key]map[naming.Key]struct{}),
	}
}

// AddNode registers n unless a node with the same key exists.
func (g *Graph) AddNode(n *Node) {
	if _, ok := g.nodes[n.Key]; !ok {
		g.nodes[n.Key] = n
	}
}

// AddEdge adds from → to. The first kind recorded for a pair is kept; the
// caller is always added to the reverse index. It reports whether a new
// forward edge was created.
func (g *Graph) AddEdge(from, to naming.Key, kind EdgeKind) bool {
	g.addReverse(to, from)

	targets, ok := g.out[from]
	if !ok {
		targets = make(map[naming.Key]EdgeKind)
		g.out[from] = targets
	}
	if _, dup := targets[to]; dup {
		return false
	}
	targets[to] = kind
	g.edges++
	return true
}

// AddReverse records caller as a predecessor of callee without a forward
// edge.
func (g *Graph) AddReverse(callee, caller naming.Key) {
	g.addReverse(callee, caller)
}

func (g *Graph) addReverse(callee, caller naming.Key) {
	callers, ok := g.reverse[callee]
	if !ok {
		callers = make(map[naming.Key]struct{})
		g.reverse[callee] = callers
	}
	callers[caller] = struct{}{}
}

// Node returns the node for key.
func (g *Graph) Node(key naming.Key) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Nodes returns all nodes sorted by key.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct forward edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Callers returns the predecessors of key in the reverse index, sorted.
func (g *Graph) Callers(key naming.Key) []naming.Key {
	return sortedKeys(g.reverse[key])
}

// CallerEdges returns the predecessors of key with the kind of the forward
// edge, or EdgeInterfaceLink for reverse-only entries.
func (g *Graph) CallerEdges(key naming.Key) []Edge {
	callers := g.Callers(key)
	out := make([]Edge, 0, len(callers))
	for _, c := range callers {
		kind, ok := g.out[c][key]
		if !ok {
			kind = EdgeInterfaceLink
		}
		out = append(out, Edge{From: c, To: key, Kind: kind})
	}
	return out
}

// Callees returns the forward edges leaving key, sorted by target.
func (g *Graph) Callees(key naming.Key) []Edge {
	targets := g.out[key]
	out := make([]Edge, 0, len(targets))
	for to, kind := range targets {
		out = append(out, Edge{From: key, To: to, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// Edges returns every forward edge sorted by source then target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for from, targets := range g.out {
		for to, kind := range targets {
			out = append(out, Edge{From: from, To: to, Kind: kind})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// WalkReverse calls fn for every callee in the reverse index in key order
// with its sorted callers.
func (g *Graph) WalkReverse(fn func(callee naming.Key, callers []naming.Key)) {
	callees := make([]naming.Key, 0, len(g.reverse))
	for k := range g.reverse {
		callees = append(callees, k)
	}
	sort.Slice(callees, func(i, j int) bool { return callees[i] < callees[j] })
	for _, k := range callees {
		fn(k, sortedKeys(g.reverse[k]))
	}
}

// Path returns the shortest chain of calls from caller down to callee,
// following the reverse index from callee. It returns nil when caller does
// not reach callee.
func (g *Graph) Path(caller, callee naming.Key) []naming.Key {
	if caller == callee {
		return []naming.Key{callee}
	}

	visited := map[naming.Key]struct{}{callee: {}}
	next := make(map[naming.Key]naming.Key)
	queue := []naming.Key{callee}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, pred := range g.Callers(current) {
			if _, seen := visited[pred]; seen {
				continue
			}
			visited[pred] = struct{}{}
			next[pred] = current

			if pred == caller {
				path := []naming.Key{caller}
				for n := caller; n != callee; {
					n = next[n]
					path = append(path, n)
				}
				return path
			}
			queue = append(queue, pred)
		}
	}
	return nil
}

func sortedKeys(set map[naming.Key]struct{}) []naming.Key {
	out := make([]naming.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
