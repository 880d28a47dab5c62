// Package factory indexes the return types of factory methods and maps
// classes to the factory that builds their collaborators.
package factory

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/phpast"
	"github.com/hargabyte/phpimpact/internal/phpdoc"
	"github.com/hargabyte/phpimpact/internal/typeinfer"
)

// Method name prefixes that mark a factory method.
var methodPrefixes = []string{"create", "get"}

// IsFactoryMethod reports whether name looks like create*() or get*().
func IsFactoryMethod(name string) bool {
	canon := naming.CanonMethod(name)
	for _, p := range methodPrefixes {
		if strings.HasPrefix(canon, p) {
			return true
		}
	}
	return false
}

// IsFactoryClass reports whether fqn names a factory class.
func IsFactoryClass(fqn naming.FQN) bool {
	return strings.HasSuffix(fqn.Canon(), "factory")
}

// Source records how a return type was found.
type Source string

const (
	SourceAnnotation Source = "annotation"
	SourceBody       Source = "body"
	SourceDeclared   Source = "declared"
	SourceDocReturn  Source = "doc-return"
)

// Entry is one known factory method return type.
type Entry struct {
	Key        naming.Key `json:"key" yaml:"key"`
	ReturnType naming.FQN `json:"return_type" yaml:"return_type"`
	Source     Source     `json:"source" yaml:"source"`
}

// Index maps factory method keys to the type they return. It is read-only
// once built.
type Index struct {
	entries map[naming.Key]Entry
}

// ReturnType returns the type produced by class::method.
func (ix *Index) ReturnType(class naming.FQN, method string) (naming.FQN, bool) {
	e, ok := ix.entries[naming.MethodKey(class, method)]
	return e.ReturnType, ok
}

// Lookup returns the full entry for key.
func (ix *Index) Lookup(key naming.Key) (Entry, bool) {
	e, ok := ix.entries[key]
	return e, ok
}

// Entries returns all entries sorted by key.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Indexer builds an Index file by file.
type Indexer struct {
	idx    *Index
	logger *slog.Logger
}

// NewIndexer returns an empty indexer. A nil logger discards output.
func NewIndexer(logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Indexer{
		idx:    &Index{entries: make(map[naming.Key]Entry)},
		logger: logger,
	}
}

// AddFile indexes every class of file. Class-level @method annotations are
// registered for any class; method bodies are scanned only in factory
// classes.
func (x *Indexer) AddFile(file *phpast.File) {
	typeinfer.Declarations(file, func(scope *typeinfer.Scope, decl phpast.Node) {
		class, ok := decl.(*phpast.Class)
		if !ok {
			return
		}
		ctx := typeinfer.NewClassContext(scope, class)
		x.addAnnotations(ctx, class.Doc)
		if !IsFactoryClass(ctx.Class) {
			return
		}
		for _, member := range class.Members {
			if m, ok := member.(*phpast.Method); ok && IsFactoryMethod(m.Name) {
				x.addMethod(ctx, m)
			}
		}
	})
}

// Index returns the built index.
func (x *Indexer) Index() *Index {
	return x.idx
}

func (x *Indexer) addAnnotations(ctx *typeinfer.ClassContext, doc string) {
	for _, tag := range phpdoc.MethodTags(doc) {
		if !IsFactoryMethod(tag.Name) {
			continue
		}
		fqn, ok := ctx.DocType(tag.Type)
		if !ok {
			continue
		}
		x.set(naming.MethodKey(ctx.Class, tag.Name), fqn, SourceAnnotation)
	}
}

// addMethod overrides any @method annotation for the same name when the
// method itself yields a type. An unresolved method keeps the annotation.
func (x *Indexer) addMethod(ctx *typeinfer.ClassContext, m *phpast.Method) {
	key := naming.MethodKey(ctx.Class, m.Name)
	strategies := []struct {
		source  Source
		resolve func() (naming.FQN, bool)
	}{
		{SourceBody, func() (naming.FQN, bool) { return bodyReturnType(ctx, m) }},
		{SourceDeclared, func() (naming.FQN, bool) { return declaredReturnType(ctx, m.ReturnType) }},
		{SourceDocReturn, func() (naming.FQN, bool) { return docReturnType(ctx, m.Doc) }},
	}
	for _, s := range strategies {
		if fqn, ok := s.resolve(); ok {
			x.set(key, fqn, s.source)
			return
		}
	}
}

func (x *Indexer) set(key naming.Key, fqn naming.FQN, source Source) {
	x.idx.entries[key] = Entry{Key: key, ReturnType: fqn, Source: source}
	x.logger.Debug("factory.return", "key", key, "type", fqn, "source", source)
}

// bodyReturnType finds the first return statement yielding new T() or a
// local variable last assigned new T(). Closures are not entered.
func bodyReturnType(ctx *typeinfer.ClassContext, m *phpast.Method) (naming.FQN, bool) {
	ms := typeinfer.NewMethodScope(ctx, m)
	var (
		found naming.FQN
		ok    bool
	)
	for _, stmt := range m.Body {
		phpast.Walk(stmt, func(n phpast.Node) bool {
			if ok {
				return false
			}
			switch n := n.(type) {
			case *phpast.Block:
				return !isClosure(n)
			case *phpast.Assign:
				ms.Observe(n)
			case *phpast.Return:
				switch v := n.Value.(type) {
				case *phpast.New:
					found, ok = ctx.ClassRef(v.Class)
				case *phpast.Variable:
					found, ok = ms.LocalType(v.Name)
				}
			}
			return true
		})
		if ok {
			break
		}
	}
	return found, ok
}

func isClosure(b *phpast.Block) bool {
	switch b.Type {
	case "anonymous_function_creation_expression", "anonymous_function", "arrow_function":
		return true
	}
	return false
}

// declaredReturnType accepts a native return type unless it is builtin or
// refers back to the factory itself.
func declaredReturnType(ctx *typeinfer.ClassContext, t phpast.Node) (naming.FQN, bool) {
	if t == nil || selfReference(t) {
		return "", false
	}
	return ctx.DeclaredType(t)
}

func selfReference(t phpast.Node) bool {
	switch t := t.(type) {
	case *phpast.Name:
		switch strings.ToLower(t.Value) {
		case "self", "static":
			return true
		}
	case *phpast.NullableType:
		return selfReference(t.Type)
	}
	return false
}

func docReturnType(ctx *typeinfer.ClassContext, doc string) (naming.FQN, bool) {
	raw, ok := phpdoc.ReturnType(doc)
	if !ok {
		return "", false
	}
	switch strings.ToLower(strings.TrimPrefix(raw, "?")) {
	case "self", "static", "$this":
		return "", false
	}
	return ctx.DocType(raw)
}
