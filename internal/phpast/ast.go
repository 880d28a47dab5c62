// Package phpast defines the PHP syntax tree consumed by the indexers.
//
// The tree is a closed sum type: every node is one of the pointer types in
// this file and carries its Kind. The parser package lowers tree-sitter
// output into these nodes; everything downstream only sees phpast.
package phpast

// Kind discriminates node variants.
type Kind string

const (
	KindFile           Kind = "file"
	KindNamespace      Kind = "namespace"
	KindUseItem        Kind = "useitem"
	KindUseGroup       Kind = "usegroup"
	KindClass          Kind = "class"
	KindInterface      Kind = "interface"
	KindMethod         Kind = "method"
	KindProperty       Kind = "property"
	KindParam          Kind = "parameter"
	KindCall           Kind = "call"
	KindStaticCall     Kind = "staticcall"
	KindNew            Kind = "new"
	KindVariable       Kind = "variable"
	KindAssign         Kind = "assign"
	KindPropertyLookup Kind = "propertylookup"
	KindName           Kind = "name"
	KindNullableType   Kind = "nullabletype"
	KindUnionType      Kind = "uniontype"
	KindReturn         Kind = "return"
	KindBlock          Kind = "block"
)

// Position is a source location. Lines are 1-based, columns 0-based.
type Position struct {
	Line    int
	Column  int
	EndLine int
}

// Pos returns the position itself so that embedding types satisfy Node.
func (p Position) Pos() Position { return p }

// Node is implemented by every syntax tree variant.
type Node interface {
	Kind() Kind
	Pos() Position
}

// UseType distinguishes class imports from function and constant imports.
type UseType string

const (
	UseClass    UseType = ""
	UseFunction UseType = "function"
	UseConst    UseType = "const"
)

// File is the root of one parsed source file.
type File struct {
	Position
	Path     string
	Children []Node
}

// Namespace opens a namespace. For the braced form the body is in Children;
// for the statement form following declarations are siblings.
type Namespace struct {
	Position
	Name     string
	Children []Node
}

// UseItem is a single import: use Foo\Bar as Baz.
type UseItem struct {
	Position
	Name  string
	Alias string
	Type  UseType
}

// UseGroup is a grouped import: use Foo\{Bar, Baz as Qux}.
// Item names are relative to Prefix.
type UseGroup struct {
	Position
	Prefix string
	Type   UseType
	Items  []*UseItem
}

// Class is a class declaration.
type Class struct {
	Position
	Name       string
	Doc        string
	Abstract   bool
	Extends    *Name
	Implements []*Name
	Members    []Node
}

// Interface is an interface declaration.
type Interface struct {
	Position
	Name    string
	Doc     string
	Extends []*Name
	Members []Node
}

// Method is a method declaration. Body is nil for abstract and interface
// methods.
type Method struct {
	Position
	Name       string
	Doc        string
	Visibility string
	Static     bool
	Abstract   bool
	Params     []*Param
	ReturnType Node
	Body       []Node
}

// Property is one declared property. A declaration listing several
// properties yields one node per property.
type Property struct {
	Position
	Name       string
	Doc        string
	Visibility string
	Static     bool
	Type       Node
	Default    Node
}

// Param is a formal parameter. Visibility or Readonly mark a promoted
// constructor parameter.
type Param struct {
	Position
	Name       string
	Type       Node
	Visibility string
	Readonly   bool
	Variadic   bool
	Default    Node
}

// Promoted reports whether the parameter also declares a property.
func (p *Param) Promoted() bool {
	return p.Visibility != "" || p.Readonly
}

// Call is a function or method call. Method calls have a *PropertyLookup
// callee.
type Call struct {
	Position
	Callee Node
	Args   []Node
}

// StaticCall is Class::method(...).
type StaticCall struct {
	Position
	Class  Node
	Method string
	Args   []Node
}

// New is an object creation. Class is nil for anonymous classes.
type New struct {
	Position
	Class Node
	Args  []Node
}

// Variable is $name without the dollar sign.
type Variable struct {
	Position
	Name string
}

// IsThis reports whether the variable is $this.
func (v *Variable) IsThis() bool {
	return v.Name == "this"
}

// Assign is a plain "=" assignment.
type Assign struct {
	Position
	Left  Node
	Right Node
}

// PropertyLookup is $object->name or $object?->name. Name is empty when the
// member is dynamic.
type PropertyLookup struct {
	Position
	Object   Node
	Name     string
	Nullsafe bool
}

// Name is a class, type or function name as written in source.
type Name struct {
	Position
	Value          string
	FullyQualified bool
}

// NullableType is ?Type.
type NullableType struct {
	Position
	Type Node
}

// UnionType is A|B.
type UnionType struct {
	Position
	Types []Node
}

// Return is a return statement. Value is nil for a bare return.
type Return struct {
	Position
	Value Node
}

// Block carries any construct without its own variant so that walks still
// reach nested calls. Type is the grammar node type it was lowered from.
type Block struct {
	Position
	Type     string
	Children []Node
}

func (*File) Kind() Kind           { return KindFile }
func (*Namespace) Kind() Kind      { return KindNamespace }
func (*UseItem) Kind() Kind        { return KindUseItem }
func (*UseGroup) Kind() Kind       { return KindUseGroup }
func (*Class) Kind() Kind          { return KindClass }
func (*Interface) Kind() Kind      { return KindInterface }
func (*Method) Kind() Kind         { return KindMethod }
func (*Property) Kind() Kind       { return KindProperty }
func (*Param) Kind() Kind          { return KindParam }
func (*Call) Kind() Kind           { return KindCall }
func (*StaticCall) Kind() Kind     { return KindStaticCall }
func (*New) Kind() Kind            { return KindNew }
func (*Variable) Kind() Kind       { return KindVariable }
func (*Assign) Kind() Kind         { return KindAssign }
func (*PropertyLookup) Kind() Kind { return KindPropertyLookup }
func (*Name) Kind() Kind           { return KindName }
func (*NullableType) Kind() Kind   { return KindNullableType }
func (*UnionType) Kind() Kind      { return KindUnionType }
func (*Return) Kind() Kind         { return KindReturn }
func (*Block) Kind() Kind          { return KindBlock }
