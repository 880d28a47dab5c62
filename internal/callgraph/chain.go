package callgraph

import "github.com/hargabyte/phpimpact/internal/phpast"

// chain is an instance call flattened from the innermost receiver out:
// $this->a->b()->c() has base $this and names [a b c]. Dynamic members
// contribute "".
type chain struct {
	base  phpast.Node
	names []string
}

// tail is the name of the method finally invoked.
func (c chain) tail() string {
	if len(c.names) == 0 {
		return ""
	}
	return c.names[len(c.names)-1]
}

func (c chain) thisBased() bool {
	v, ok := c.base.(*phpast.Variable)
	return ok && v.IsThis()
}

// unwrap flattens a method call. Plain function calls are not chains.
func unwrap(call *phpast.Call) (chain, bool) {
	if _, ok := call.Callee.(*phpast.PropertyLookup); !ok {
		return chain{}, false
	}

	var names []string
	var cur phpast.Node = call
	for {
		switch n := cur.(type) {
		case *phpast.Call:
			lookup, ok := n.Callee.(*phpast.PropertyLookup)
			if !ok {
				return reverse(chain{base: n, names: names}), true
			}
			names = append(names, lookup.Name)
			cur = lookup.Object
		case *phpast.PropertyLookup:
			names = append(names, n.Name)
			cur = n.Object
		default:
			return reverse(chain{base: n, names: names}), true
		}
	}
}

func reverse(c chain) chain {
	for i, j := 0, len(c.names)-1; i < j; i, j = i+1, j-1 {
		c.names[i], c.names[j] = c.names[j], c.names[i]
	}
	return c
}
