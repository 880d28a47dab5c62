// Package typeinfer attributes best-effort static types to PHP names and
// expressions.
//
// Every resolver returns (naming.FQN, bool). A false result means "unknown"
// and callers must not create edges from it. Resolution never fails with an
// error: an unresolvable name degrades to a namespace-relative guess, an
// unresolvable expression to no type at all.
package typeinfer

import (
	"strings"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
)

// Scope tracks the active namespace and class import aliases of a file.
type Scope struct {
	namespace string
	uses      map[string]string
}

// NewScope returns a scope for the given namespace with no imports.
func NewScope(namespace string) *Scope {
	return &Scope{
		namespace: strings.Trim(namespace, `\`),
		uses:      make(map[string]string),
	}
}

// Namespace returns the active namespace without a leading separator.
func (s *Scope) Namespace() string {
	return s.namespace
}

// Enter switches to a new namespace and forgets all imports.
func (s *Scope) Enter(namespace string) {
	s.namespace = strings.Trim(namespace, `\`)
	s.uses = make(map[string]string)
}

// Import registers a class import. Function and constant imports are
// ignored because they never name a type.
func (s *Scope) Import(item *phpast.UseItem) {
	s.importName(item.Type, item.Name, item.Alias)
}

// ImportGroup registers every class import of a grouped use statement.
func (s *Scope) ImportGroup(group *phpast.UseGroup) {
	prefix := strings.Trim(group.Prefix, `\`)
	for _, item := range group.Items {
		typ := item.Type
		if typ == phpast.UseClass {
			typ = group.Type
		}
		name := strings.Trim(item.Name, `\`)
		if prefix != "" {
			name = prefix + `\` + name
		}
		s.importName(typ, name, item.Alias)
	}
}

func (s *Scope) importName(typ phpast.UseType, name, alias string) {
	if typ != phpast.UseClass {
		return
	}
	name = strings.Trim(name, `\`)
	if name == "" {
		return
	}
	key := alias
	if key == "" {
		key = name
		if i := strings.LastIndex(name, `\`); i >= 0 {
			key = name[i+1:]
		}
	}
	s.uses[strings.ToLower(key)] = name
}

// Qualify returns the FQN of a declaration named name in this scope.
func (s *Scope) Qualify(name string) naming.FQN {
	if s.namespace == "" {
		return naming.NewFQN(name)
	}
	return naming.NewFQN(s.namespace + `\` + name)
}

// ResolveName resolves a class reference as written in source. Fully
// qualified names are returned as-is; otherwise the first segment is
// looked up among the imports and, failing that, the current namespace is
// prefixed. The result may name a class that does not exist.
func (s *Scope) ResolveName(raw string) naming.FQN {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, `\`) {
		return naming.NewFQN(raw)
	}

	head, tail, hasTail := strings.Cut(raw, `\`)
	if target, ok := s.uses[strings.ToLower(head)]; ok {
		if hasTail {
			return naming.NewFQN(target + `\` + tail)
		}
		return naming.NewFQN(target)
	}
	if hasTail && strings.EqualFold(head, "namespace") {
		return s.Qualify(tail)
	}
	return s.Qualify(raw)
}

// ResolveNameNode resolves a Name node. Other node kinds have no static
// name and yield false.
func (s *Scope) ResolveNameNode(n phpast.Node) (naming.FQN, bool) {
	name, ok := n.(*phpast.Name)
	if !ok || name == nil || name.Value == "" {
		return "", false
	}
	if name.FullyQualified {
		return naming.NewFQN(name.Value), true
	}
	return s.ResolveName(name.Value), true
}

// Declarations calls fn for every class and interface in file, in source
// order, with the scope active at that declaration.
func Declarations(file *phpast.File, fn func(*Scope, phpast.Node)) {
	scope := NewScope("")
	phpast.Walk(file, func(n phpast.Node) bool {
		switch n := n.(type) {
		case *phpast.Namespace:
			scope.Enter(n.Name)
		case *phpast.UseItem:
			scope.Import(n)
		case *phpast.UseGroup:
			scope.ImportGroup(n)
			return false
		case *phpast.Class, *phpast.Interface:
			fn(scope, n)
			return false
		case *phpast.Method:
			return false
		}
		return true
	})
}
