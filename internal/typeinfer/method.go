package typeinfer

import (
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
)

// MethodScope holds the parameter and local variable types of one method
// body. Locals follow last-assignment-wins: $v = new T() types $v, any other
// assignment to $v forgets it.
type MethodScope struct {
	ctx    *ClassContext
	params map[string]naming.FQN
	locals map[string]naming.FQN
}

// NewMethodScope resolves the parameter types of m.
func NewMethodScope(ctx *ClassContext, m *phpast.Method) *MethodScope {
	ms := &MethodScope{
		ctx:    ctx,
		params: make(map[string]naming.FQN),
		locals: make(map[string]naming.FQN),
	}
	for _, p := range m.Params {
		if fqn, ok := ctx.ParamType(p, m.Doc); ok {
			ms.params[p.Name] = fqn
		}
	}
	return ms
}

// Class returns the enclosing class context.
func (ms *MethodScope) Class() *ClassContext {
	return ms.ctx
}

// Observe records the effect of an assignment on local variable types.
func (ms *MethodScope) Observe(a *phpast.Assign) {
	v, ok := a.Left.(*phpast.Variable)
	if !ok || v.IsThis() {
		return
	}
	if nw, ok := a.Right.(*phpast.New); ok {
		if fqn, ok := ms.ctx.ClassRef(nw.Class); ok {
			ms.locals[v.Name] = fqn
			return
		}
	}
	delete(ms.locals, v.Name)
}

// VariableType returns the type of $name: the local type when one is known,
// otherwise the parameter type.
func (ms *MethodScope) VariableType(name string) (naming.FQN, bool) {
	if fqn, ok := ms.locals[name]; ok {
		return fqn, true
	}
	fqn, ok := ms.params[name]
	return fqn, ok
}

// LocalType returns the type of $name only if it was assigned new T() in
// the body.
func (ms *MethodScope) LocalType(name string) (naming.FQN, bool) {
	fqn, ok := ms.locals[name]
	return fqn, ok
}

// ExpressionType types new T(...) and bare variables. Anything else is
// unknown.
func (ms *MethodScope) ExpressionType(expr phpast.Node) (naming.FQN, bool) {
	switch e := expr.(type) {
	case *phpast.New:
		return ms.ctx.ClassRef(e.Class)
	case *phpast.Variable:
		if e.IsThis() {
			return "", false
		}
		return ms.VariableType(e.Name)
	}
	return "", false
}

// PropertyTypes maps class → property name → type. It is seeded from
// declarations and updated from $this->prop assignments.
type PropertyTypes struct {
	byClass map[string]map[string]naming.FQN
}

// NewPropertyTypes returns an empty map.
func NewPropertyTypes() *PropertyTypes {
	return &PropertyTypes{byClass: make(map[string]map[string]naming.FQN)}
}

// Seed registers declared property types and promoted constructor
// parameters of class c. Existing entries are kept.
func (pt *PropertyTypes) Seed(ctx *ClassContext, c *phpast.Class) {
	for _, member := range c.Members {
		switch m := member.(type) {
		case *phpast.Property:
			if fqn, ok := ctx.PropertyType(m); ok {
				pt.add(ctx.Class, m.Name, fqn)
			}
		case *phpast.Method:
			if naming.CanonMethod(m.Name) != "__construct" {
				continue
			}
			for _, p := range m.Params {
				if !p.Promoted() {
					continue
				}
				if fqn, ok := ctx.ParamType(p, m.Doc); ok {
					pt.add(ctx.Class, p.Name, fqn)
				}
			}
		}
	}
}

func (pt *PropertyTypes) add(class naming.FQN, prop string, fqn naming.FQN) {
	props := pt.props(class)
	if _, exists := props[prop]; !exists {
		props[prop] = fqn
	}
}

// Set records or overwrites the type of class::$prop.
func (pt *PropertyTypes) Set(class naming.FQN, prop string, fqn naming.FQN) {
	pt.props(class)[prop] = fqn
}

// Lookup returns the type of class::$prop.
func (pt *PropertyTypes) Lookup(class naming.FQN, prop string) (naming.FQN, bool) {
	fqn, ok := pt.byClass[class.Canon()][prop]
	return fqn, ok
}

// Len returns the number of typed properties across all classes.
func (pt *PropertyTypes) Len() int {
	n := 0
	for _, props := range pt.byClass {
		n += len(props)
	}
	return n
}

func (pt *PropertyTypes) props(class naming.FQN) map[string]naming.FQN {
	key := class.Canon()
	props, ok := pt.byClass[key]
	if !ok {
		props = make(map[string]naming.FQN)
		pt.byClass[key] = props
	}
	return props
}
