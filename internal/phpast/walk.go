package phpast

// Visitor is called for every node in pre-order. Returning false skips the
// node's children.
type Visitor func(Node) bool

// Walk traverses the tree rooted at n in pre-order.
func Walk(n Node, visit Visitor) {
	if isNil(n) {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, visit)
	}
}

// WalkAll walks each node in order.
func WalkAll(nodes []Node, visit Visitor) {
	for _, n := range nodes {
		Walk(n, visit)
	}
}

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *File:
		return n.Children
	case *Namespace:
		return n.Children
	case *UseItem:
		return nil
	case *UseGroup:
		out := make([]Node, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, item)
		}
		return out
	case *Class:
		out := make([]Node, 0, len(n.Implements)+len(n.Members)+1)
		if n.Extends != nil {
			out = append(out, n.Extends)
		}
		for _, name := range n.Implements {
			out = append(out, name)
		}
		return append(out, n.Members...)
	case *Interface:
		out := make([]Node, 0, len(n.Extends)+len(n.Members))
		for _, name := range n.Extends {
			out = append(out, name)
		}
		return append(out, n.Members...)
	case *Method:
		out := make([]Node, 0, len(n.Params)+len(n.Body)+1)
		for _, p := range n.Params {
			out = append(out, p)
		}
		out = appendNode(out, n.ReturnType)
		return append(out, n.Body...)
	case *Property:
		return appendNode(appendNode(nil, n.Type), n.Default)
	case *Param:
		return appendNode(appendNode(nil, n.Type), n.Default)
	case *Call:
		return append(appendNode(nil, n.Callee), n.Args...)
	case *StaticCall:
		return append(appendNode(nil, n.Class), n.Args...)
	case *New:
		return append(appendNode(nil, n.Class), n.Args...)
	case *Variable:
		return nil
	case *Assign:
		return appendNode(appendNode(nil, n.Left), n.Right)
	case *PropertyLookup:
		return appendNode(nil, n.Object)
	case *Name:
		return nil
	case *NullableType:
		return appendNode(nil, n.Type)
	case *UnionType:
		return n.Types
	case *Return:
		return appendNode(nil, n.Value)
	case *Block:
		return n.Children
	default:
		return nil
	}
}

func appendNode(out []Node, n Node) []Node {
	if isNil(n) {
		return out
	}
	return append(out, n)
}

// isNil catches both untyped nil and typed nil pointers stored in Node.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Name:
		return v == nil
	case *Block:
		return v == nil
	case *Variable:
		return v == nil
	}
	return false
}
