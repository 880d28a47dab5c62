package typeinfer

import (
	"regexp"
	"strings"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/phpdoc"
)

var docTypeName = regexp.MustCompile(`^\\?[A-Za-z_\x80-\xff][\w\x80-\xff\\]*$`)

var primitives = map[string]bool{
	"int": true, "integer": true, "float": true, "double": true,
	"string": true, "bool": true, "boolean": true, "array": true,
	"iterable": true, "callable": true, "mixed": true, "object": true,
	"null": true, "void": true, "never": true, "false": true, "true": true,
	"resource": true, "scalar": true, "numeric": true,
}

// IsPrimitive reports whether name is a builtin type rather than a class.
func IsPrimitive(name string) bool {
	return primitives[strings.ToLower(strings.TrimPrefix(name, `\`))]
}

// ClassContext is the resolution context inside one class body.
type ClassContext struct {
	Scope  *Scope
	Class  naming.FQN
	Parent naming.FQN
}

// NewClassContext builds the context for a class or interface declaration
// seen in scope.
func NewClassContext(scope *Scope, decl phpast.Node) *ClassContext {
	ctx := &ClassContext{Scope: scope}
	switch d := decl.(type) {
	case *phpast.Class:
		ctx.Class = scope.Qualify(d.Name)
		if d.Extends != nil {
			ctx.Parent, _ = scope.ResolveNameNode(d.Extends)
		}
	case *phpast.Interface:
		ctx.Class = scope.Qualify(d.Name)
	}
	return ctx
}

// ClassRef resolves a class reference used by new or a static call,
// mapping self, static and parent to the enclosing class hierarchy.
func (c *ClassContext) ClassRef(n phpast.Node) (naming.FQN, bool) {
	name, ok := n.(*phpast.Name)
	if !ok || name == nil {
		return "", false
	}
	switch strings.ToLower(name.Value) {
	case "self", "static":
		return c.Class, !c.Class.IsZero()
	case "parent":
		return c.Parent, !c.Parent.IsZero()
	}
	return c.Scope.ResolveNameNode(name)
}

// DeclaredType resolves a native type declaration. Nullable wrappers are
// unwrapped; unions yield their first class member; builtin types yield
// false.
func (c *ClassContext) DeclaredType(n phpast.Node) (naming.FQN, bool) {
	switch t := n.(type) {
	case *phpast.Name:
		if t == nil || IsPrimitive(t.Value) {
			return "", false
		}
		return c.ClassRef(t)
	case *phpast.NullableType:
		return c.DeclaredType(t.Type)
	case *phpast.UnionType:
		for _, member := range t.Types {
			if fqn, ok := c.DeclaredType(member); ok {
				return fqn, true
			}
		}
	}
	return "", false
}

// DocType resolves a docblock type expression such as "?Foo|null" or
// "Foo[]" to its first class member.
func (c *ClassContext) DocType(raw string) (naming.FQN, bool) {
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "?")
		for strings.HasSuffix(part, "[]") {
			part = strings.TrimSuffix(part, "[]")
		}
		switch strings.ToLower(part) {
		case "self", "static", "$this":
			if !c.Class.IsZero() {
				return c.Class, true
			}
			continue
		}
		if part == "" || IsPrimitive(part) || !docTypeName.MatchString(part) {
			continue
		}
		return c.Scope.ResolveName(part), true
	}
	return "", false
}

// resolver is one way of finding a type. Strategies are tried in the order
// they are listed and the first hit wins.
type resolver func() (naming.FQN, bool)

func firstOf(strategies ...resolver) (naming.FQN, bool) {
	for _, try := range strategies {
		if fqn, ok := try(); ok {
			return fqn, true
		}
	}
	return "", false
}

func (c *ClassContext) declared(n phpast.Node) resolver {
	return func() (naming.FQN, bool) {
		if n == nil {
			return "", false
		}
		return c.DeclaredType(n)
	}
}

func (c *ClassContext) documented(raw string, found bool) resolver {
	return func() (naming.FQN, bool) {
		if !found {
			return "", false
		}
		return c.DocType(raw)
	}
}

// PropertyType resolves a declared property: native type first, then @var.
func (c *ClassContext) PropertyType(p *phpast.Property) (naming.FQN, bool) {
	raw, found := phpdoc.VarType(p.Doc)
	return firstOf(
		c.declared(p.Type),
		c.documented(raw, found),
	)
}

// ParamType resolves a parameter: native type first, then the
// "@param <Type> $name" tag of the method's doc-comment.
func (c *ClassContext) ParamType(p *phpast.Param, methodDoc string) (naming.FQN, bool) {
	raw, found := phpdoc.ParamType(methodDoc, p.Name)
	return firstOf(
		c.declared(p.Type),
		c.documented(raw, found),
	)
}
