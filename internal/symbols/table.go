// Package symbols builds the class, interface and method registry of a PHP
// source tree.
//
// A Builder accumulates declarations file by file. Build runs inherit-doc
// resolution once and freezes the result into a read-only Table that may be
// shared by concurrent readers.
package symbols

import (
	"sort"

	"github.com/hargabyte/phpimpact/internal/naming"
)

// Kind is the declaration kind of a symbol.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
)

// Visibility is a method visibility. Unknown is used for graph nodes that
// have no declaration in the indexed sources.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
	Unknown   Visibility = "unknown"
)

// ParseVisibility maps a modifier to a Visibility; absent means public.
func ParseVisibility(modifier string) Visibility {
	switch modifier {
	case "protected":
		return Protected
	case "private":
		return Private
	default:
		return Public
	}
}

// Symbol is one class or interface declaration.
type Symbol struct {
	FQN  naming.FQN `json:"fqn" yaml:"fqn"`
	Kind Kind       `json:"kind" yaml:"kind"`
	File string     `json:"file" yaml:"file"`
	Line int        `json:"line" yaml:"line"`
}

// Method is the metadata of one declared method.
type Method struct {
	Key          naming.Key `json:"key" yaml:"key"`
	Class        naming.FQN `json:"class" yaml:"class"`
	Name         string     `json:"name" yaml:"name"`
	Visibility   Visibility `json:"visibility" yaml:"visibility"`
	Static       bool       `json:"static,omitempty" yaml:"static,omitempty"`
	File         string     `json:"file" yaml:"file"`
	StartLine    int        `json:"start_line" yaml:"start_line"`
	EndLine      int        `json:"end_line" yaml:"end_line"`
	IsInterface  bool       `json:"is_interface" yaml:"is_interface"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	IsAPIMethod  bool       `json:"is_api_method" yaml:"is_api_method"`
	IsDeprecated bool       `json:"is_deprecated" yaml:"is_deprecated"`
	DocInherited bool       `json:"doc_inherited,omitempty" yaml:"doc_inherited,omitempty"`

	needsInherit bool
}

// Table is the frozen symbol registry.
type Table struct {
	symbols      map[string]*Symbol
	methods      map[naming.Key]*Method
	classMethods map[string][]naming.Key
	implements   map[string][]naming.FQN
	implementers map[string][]naming.FQN
	ownerFactory map[string]naming.FQN
	order        []string
}

// Symbol returns the declaration registered for fqn.
func (t *Table) Symbol(fqn naming.FQN) (*Symbol, bool) {
	s, ok := t.symbols[fqn.Canon()]
	return s, ok
}

// Symbols returns all declarations sorted by canonical name.
func (t *Table) Symbols() []*Symbol {
	keys := make([]string, 0, len(t.symbols))
	for k := range t.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Symbol, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.symbols[k])
	}
	return out
}

// Method returns the metadata for key.
func (t *Table) Method(key naming.Key) (*Method, bool) {
	m, ok := t.methods[key]
	return m, ok
}

// Methods returns all method metadata sorted by key.
func (t *Table) Methods() []*Method {
	out := make([]*Method, 0, len(t.methods))
	for _, m := range t.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MethodsOf returns the methods declared by fqn in declaration order.
func (t *Table) MethodsOf(fqn naming.FQN) []*Method {
	keys := t.classMethods[fqn.Canon()]
	out := make([]*Method, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.methods[k])
	}
	return out
}

// Implements returns the interfaces of class fqn in declaration order.
func (t *Table) Implements(fqn naming.FQN) []naming.FQN {
	return t.implements[fqn.Canon()]
}

// Implementers returns every class declaring that it implements iface, in
// registration order.
func (t *Table) Implementers(iface naming.FQN) []naming.FQN {
	return t.implementers[iface.Canon()]
}

// ImplementingClasses returns all classes with an implements clause in
// registration order.
func (t *Table) ImplementingClasses() []naming.FQN {
	out := make([]naming.FQN, 0, len(t.implements))
	for _, canon := range t.order {
		if _, ok := t.implements[canon]; ok {
			out = append(out, t.symbols[canon].FQN)
		}
	}
	return out
}

// OwnerFactory returns the factory documented on owner via @method.
func (t *Table) OwnerFactory(owner naming.FQN) (naming.FQN, bool) {
	f, ok := t.ownerFactory[owner.Canon()]
	return f, ok
}

// OwnerFactories returns the documented owner→factory pairs keyed by the
// owner's canonical name.
func (t *Table) OwnerFactories() map[string]naming.FQN {
	out := make(map[string]naming.FQN, len(t.ownerFactory))
	for k, v := range t.ownerFactory {
		out[k] = v
	}
	return out
}

// MethodsAt returns the methods declared in file whose line span contains
// any line in [start, end].
func (t *Table) MethodsAt(file string, start, end int) []*Method {
	var out []*Method
	for _, m := range t.methods {
		if m.File != file {
			continue
		}
		if m.StartLine <= end && start <= m.EndLine {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats summarises the table.
type Stats struct {
	Classes    int `json:"classes" yaml:"classes"`
	Interfaces int `json:"interfaces" yaml:"interfaces"`
	Methods    int `json:"methods" yaml:"methods"`
	Factories  int `json:"owner_factories" yaml:"owner_factories"`
}

// Stats returns counts of the registered declarations.
func (t *Table) Stats() Stats {
	s := Stats{Methods: len(t.methods), Factories: len(t.ownerFactory)}
	for _, sym := range t.symbols {
		if sym.Kind == KindInterface {
			s.Interfaces++
		} else {
			s.Classes++
		}
	}
	return s
}
