package symbols

import (
	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/phpdoc"
	"github.com/hargabyte/phpimpact/internal/typeinfer"
)

// Builder accumulates declarations from parsed files. It is not safe for
// concurrent use; callers merge files serially.
type Builder struct {
	t *Table
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{t: &Table{
		symbols:      make(map[string]*Symbol),
		methods:      make(map[naming.Key]*Method),
		classMethods: make(map[string][]naming.Key),
		implements:   make(map[string][]naming.FQN),
		implementers: make(map[string][]naming.FQN),
		ownerFactory: make(map[string]naming.FQN),
	}}
}

// AddFile registers every class and interface declared in file.
func (b *Builder) AddFile(file *phpast.File) {
	typeinfer.Declarations(file, func(scope *typeinfer.Scope, decl phpast.Node) {
		switch d := decl.(type) {
		case *phpast.Interface:
			fqn := b.register(scope.Qualify(d.Name), KindInterface, file.Path, d.Line)
			b.addMethods(fqn, d.Members, file.Path, true)
		case *phpast.Class:
			fqn := b.register(scope.Qualify(d.Name), KindClass, file.Path, d.Line)
			b.addImplements(scope, fqn, d.Implements)
			if raw, ok := phpdoc.FactoryOwner(d.Doc); ok {
				b.t.ownerFactory[fqn.Canon()] = scope.ResolveName(raw)
			}
			b.addMethods(fqn, d.Members, file.Path, false)
		}
	})
}

// register records a declaration. A later declaration of the same name
// replaces the earlier one entirely.
func (b *Builder) register(fqn naming.FQN, kind Kind, file string, line int) naming.FQN {
	canon := fqn.Canon()
	if _, exists := b.t.symbols[canon]; exists {
		for _, key := range b.t.classMethods[canon] {
			delete(b.t.methods, key)
		}
		delete(b.t.classMethods, canon)
		delete(b.t.implements, canon)
		delete(b.t.ownerFactory, canon)
	} else {
		b.t.order = append(b.t.order, canon)
	}
	b.t.symbols[canon] = &Symbol{FQN: fqn, Kind: kind, File: file, Line: line}
	return fqn
}

func (b *Builder) addImplements(scope *typeinfer.Scope, class naming.FQN, names []*phpast.Name) {
	canon := class.Canon()
	seen := make(map[string]bool)
	for _, n := range names {
		iface, ok := scope.ResolveNameNode(n)
		if !ok || seen[iface.Canon()] {
			continue
		}
		seen[iface.Canon()] = true
		b.t.implements[canon] = append(b.t.implements[canon], iface)
	}
}

func (b *Builder) addMethods(class naming.FQN, members []phpast.Node, file string, isInterface bool) {
	canon := class.Canon()
	for _, member := range members {
		m, ok := member.(*phpast.Method)
		if !ok || m.Name == "" {
			continue
		}
		doc := phpdoc.Parse(m.Doc)
		key := naming.MethodKey(class, m.Name)
		if _, dup := b.t.methods[key]; !dup {
			b.t.classMethods[canon] = append(b.t.classMethods[canon], key)
		}
		b.t.methods[key] = &Method{
			Key:          key,
			Class:        class,
			Name:         m.Name,
			Visibility:   ParseVisibility(m.Visibility),
			Static:       m.Static,
			File:         file,
			StartLine:    m.Line,
			EndLine:      m.EndLine,
			IsInterface:  isInterface,
			Description:  doc.Description,
			IsAPIMethod:  doc.API,
			IsDeprecated: doc.Deprecated,
			needsInherit: doc.NeedsInherit(),
		}
	}
}

// Build resolves inherited docs and returns the frozen table. The builder
// must not be used afterwards.
func (b *Builder) Build() *Table {
	t := b.t
	b.t = nil

	for _, canon := range t.order {
		for _, iface := range t.implements[canon] {
			ic := iface.Canon()
			t.implementers[ic] = append(t.implementers[ic], t.symbols[canon].FQN)
		}
	}

	resolveInheritedDocs(t)
	return t
}

// resolveInheritedDocs copies the description of an interface method onto
// a class method whose own doc-comment is missing or {@inheritDoc}. The
// interfaces are tried in the order of the class's implements clause and
// the first one with a real description wins.
func resolveInheritedDocs(t *Table) {
	for _, canon := range t.order {
		sym := t.symbols[canon]
		if sym.Kind != KindClass {
			continue
		}
		for _, key := range t.classMethods[canon] {
			m := t.methods[key]
			if !m.needsInherit {
				continue
			}
			for _, iface := range t.implements[canon] {
				im, ok := t.methods[naming.MethodKey(iface, m.Name)]
				if !ok || im.needsInherit {
					continue
				}
				m.Description = im.Description
				m.IsAPIMethod = m.IsAPIMethod || im.IsAPIMethod
				m.IsDeprecated = m.IsDeprecated || im.IsDeprecated
				m.DocInherited = true
				break
			}
		}
	}
}
