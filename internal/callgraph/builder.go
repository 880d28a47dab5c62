package callgraph

import (
	"log/slog"
	"strings"

	"github.com/hargabyte/phpimpact/internal/factory"
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/symbols"
	"github.com/hargabyte/phpimpact/internal/typeinfer"
)

// Accessors on a class that hand out its factory.
var factoryAccessors = map[string]bool{
	"getfactory":         true,
	"getbusinessfactory": true,
}

// Builder emits call edges for the classes of parsed files. Files must be
// added in file-set order; the result is deterministic for a given order.
type Builder struct {
	table     *symbols.Table
	factories *factory.Index
	resolver  *factory.Resolver
	props     *typeinfer.PropertyTypes
	g         *Graph
	logger    *slog.Logger
}

// NewBuilder returns a builder over a finished symbol table and factory
// index. Every declared method is registered as a node up front.
func NewBuilder(table *symbols.Table, factories *factory.Index, resolver *factory.Resolver, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{
		table:     table,
		factories: factories,
		resolver:  resolver,
		props:     typeinfer.NewPropertyTypes(),
		g:         New(),
		logger:    logger,
	}
	for _, m := range table.Methods() {
		b.g.AddNode(&Node{Key: m.Key, Class: m.Class, Method: m.Name, Visibility: m.Visibility})
	}
	return b
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph {
	return b.g
}

// AddFile emits the edges of every class body in file. A class whose
// registered declaration lives in another file is skipped, so only the
// winning declaration contributes calls.
func (b *Builder) AddFile(file *phpast.File) {
	typeinfer.Declarations(file, func(scope *typeinfer.Scope, decl phpast.Node) {
		class, ok := decl.(*phpast.Class)
		if !ok {
			return
		}
		ctx := typeinfer.NewClassContext(scope, class)
		if sym, ok := b.table.Symbol(ctx.Class); ok && sym.File != file.Path {
			b.logger.Debug("graph.skip_shadowed", "class", ctx.Class, "file", file.Path)
			return
		}
		b.addClass(ctx, class)
	})
}

func (b *Builder) addClass(ctx *typeinfer.ClassContext, class *phpast.Class) {
	b.props.Seed(ctx, class)

	var methods []*phpast.Method
	for _, member := range class.Members {
		if m, ok := member.(*phpast.Method); ok && m.Body != nil && m.Name != "" {
			methods = append(methods, m)
		}
	}

	// Property types observed anywhere in the class apply to every method.
	for _, m := range methods {
		ms := typeinfer.NewMethodScope(ctx, m)
		walkBody(m, ms, func(n phpast.Node) {
			if a, ok := n.(*phpast.Assign); ok {
				b.trackProperty(ms, a)
			}
		})
	}

	for _, m := range methods {
		caller := naming.MethodKey(ctx.Class, m.Name)
		ms := typeinfer.NewMethodScope(ctx, m)
		walkBody(m, ms, func(n phpast.Node) {
			switch n := n.(type) {
			case *phpast.StaticCall:
				b.staticCall(ctx, caller, n)
			case *phpast.Call:
				b.instanceCall(ms, caller, n)
			}
		})
	}
}

// walkBody visits every node of m's body in evaluation order. Assignments
// are observed by ms after both sides have been visited, and before fn sees
// the assignment itself.
func walkBody(m *phpast.Method, ms *typeinfer.MethodScope, fn func(phpast.Node)) {
	var visit phpast.Visitor
	visit = func(n phpast.Node) bool {
		if a, ok := n.(*phpast.Assign); ok {
			phpast.Walk(a.Right, visit)
			phpast.Walk(a.Left, visit)
			ms.Observe(a)
			fn(a)
			return false
		}
		fn(n)
		return true
	}
	for _, stmt := range m.Body {
		phpast.Walk(stmt, visit)
	}
}

// trackProperty records the type of $this->prop = expr when expr has one.
func (b *Builder) trackProperty(ms *typeinfer.MethodScope, a *phpast.Assign) {
	lookup, ok := a.Left.(*phpast.PropertyLookup)
	if !ok || lookup.Name == "" {
		return
	}
	if v, ok := lookup.Object.(*phpast.Variable); !ok || !v.IsThis() {
		return
	}

	fqn, ok := ms.ExpressionType(a.Right)
	if !ok {
		if call, isCall := a.Right.(*phpast.Call); isCall {
			fqn, ok = b.factoryCallType(ms.Class().Class, call)
		}
	}
	if !ok {
		return
	}
	b.props.Set(ms.Class().Class, lookup.Name, fqn)
	b.logger.Debug("graph.property_type", "class", ms.Class().Class, "property", lookup.Name, "type", fqn)
}

// factoryCallType types ...->getFactory()->createX() when the chain ends
// in a factory method with a known return type.
func (b *Builder) factoryCallType(class naming.FQN, call *phpast.Call) (naming.FQN, bool) {
	ch, ok := unwrap(call)
	if !ok || len(ch.names) < 2 {
		return "", false
	}
	last := ch.tail()
	if !factory.IsFactoryMethod(last) {
		return "", false
	}
	for _, name := range ch.names[:len(ch.names)-1] {
		if factoryAccessors[naming.CanonMethod(name)] {
			return b.factoryReturn(class, last)
		}
	}
	return "", false
}

// factoryReturn looks up method on class itself and then on the factory
// responsible for class.
func (b *Builder) factoryReturn(class naming.FQN, method string) (naming.FQN, bool) {
	if fqn, ok := b.factories.ReturnType(class, method); ok {
		return fqn, true
	}
	f, ok := b.resolver.FactoryClassFor(class)
	if !ok {
		return "", false
	}
	return b.factories.ReturnType(f, method)
}

func (b *Builder) staticCall(ctx *typeinfer.ClassContext, caller naming.Key, call *phpast.StaticCall) {
	if call.Method == "" {
		return
	}
	target, ok := ctx.ClassRef(call.Class)
	if !ok {
		return
	}
	b.edge(caller, target, call.Method, EdgeStatic)
}

// instanceCall applies the direct, property, variable and factory rules to
// one call. The rules are independent; several may fire for one call.
func (b *Builder) instanceCall(ms *typeinfer.MethodScope, caller naming.Key, call *phpast.Call) {
	ch, ok := unwrap(call)
	if !ok {
		return
	}
	method := ch.tail()
	if method == "" {
		return
	}
	class := ms.Class().Class

	if ch.thisBased() {
		if len(ch.names) == 1 {
			b.edge(caller, class, method, EdgeIntra)
		} else if propType, ok := b.props.Lookup(class, ch.names[0]); ok {
			b.edge(caller, propType, method, EdgeThisProp)
			b.implementations(caller, propType, method)
		}
	} else {
		switch ch.base.(type) {
		case *phpast.Variable, *phpast.New:
			if typ, ok := ms.ExpressionType(ch.base); ok {
				b.edge(caller, typ, method, EdgeMethod)
				b.implementations(caller, typ, method)
			}
		}
	}

	b.factoryChain(caller, class, ch)
}

// factoryChain scans backwards from the second to last name for a factory
// method with a known return type and links the final call to that type.
func (b *Builder) factoryChain(caller naming.Key, class naming.FQN, ch chain) {
	for i := len(ch.names) - 2; i >= 0; i-- {
		name := ch.names[i]
		if name == "" || !factory.IsFactoryMethod(name) {
			continue
		}
		if typ, ok := b.factoryReturn(class, name); ok {
			b.edge(caller, typ, ch.tail(), EdgeFactoryReturn)
			return
		}
	}
}

// implementations adds an iface-impl edge to method on every class
// implementing typ.
func (b *Builder) implementations(caller naming.Key, typ naming.FQN, method string) {
	for _, impl := range b.table.Implementers(typ) {
		b.edge(caller, impl, method, EdgeIfaceImpl)
	}
}

func (b *Builder) edge(caller naming.Key, class naming.FQN, method string, kind EdgeKind) {
	callee := b.ensureNode(class, method)
	b.g.AddEdge(caller, callee, kind)
}

// ensureNode returns the key of class::method, creating a placeholder node
// when the method has no declaration.
func (b *Builder) ensureNode(class naming.FQN, method string) naming.Key {
	key := naming.MethodKey(class, method)
	if _, ok := b.g.Node(key); ok {
		return key
	}
	if m, ok := b.table.Method(key); ok {
		b.g.AddNode(&Node{Key: key, Class: m.Class, Method: m.Name, Visibility: m.Visibility})
		return key
	}
	b.g.AddNode(&Node{
		Key:        key,
		Class:      class,
		Method:     strings.TrimSpace(method),
		Visibility: symbols.Unknown,
	})
	return key
}
