package callgraph

import (
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// Link bridges implementations to their interfaces: for every class C
// implementing I and every method M declared by C, I::M becomes a
// predecessor of C::M. A change to C::M then reaches everything that calls
// through I::M. It returns the number of bridges added.
func Link(g *Graph, t *symbols.Table) int {
	n := 0
	for _, class := range t.ImplementingClasses() {
		methods := t.MethodsOf(class)
		for _, iface := range t.Implements(class) {
			for _, m := range methods {
				ifaceKey := naming.MethodKey(iface, m.Name)
				if _, ok := g.Node(ifaceKey); !ok {
					g.AddNode(linkNode(t, iface, m.Name, ifaceKey))
				}
				g.AddReverse(m.Key, ifaceKey)
				n++
			}
		}
	}
	return n
}

func linkNode(t *symbols.Table, iface naming.FQN, method string, key naming.Key) *Node {
	if m, ok := t.Method(key); ok {
		return &Node{Key: key, Class: m.Class, Method: m.Name, Visibility: m.Visibility}
	}
	return &Node{Key: key, Class: iface, Method: method, Visibility: symbols.Unknown}
}
