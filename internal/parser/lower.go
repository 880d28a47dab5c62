package parser

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hargabyte/phpimpact/internal/phpast"
)

var identifier = regexp.MustCompile(`^[A-Za-z_\x80-\xff][A-Za-z0-9_\x80-\xff]*$`)

// lowerer converts tree-sitter PHP nodes into phpast nodes.
type lowerer struct {
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.src)
}

func pos(n *sitter.Node) phpast.Position {
	return phpast.Position{
		Line:    int(n.StartPoint().Row) + 1,
		Column:  int(n.StartPoint().Column),
		EndLine: int(n.EndPoint().Row) + 1,
	}
}

func (l *lowerer) file(root *sitter.Node, path string) *phpast.File {
	return &phpast.File{
		Position: pos(root),
		Path:     path,
		Children: l.list(root),
	}
}

// list lowers every named child of n in order.
func (l *lowerer) list(n *sitter.Node) []phpast.Node {
	if n == nil {
		return nil
	}
	var out []phpast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, l.nodes(n.NamedChild(i))...)
	}
	return out
}

// nodes lowers n into zero or more nodes. Declarations that introduce
// several names at once expand into one node per name.
func (l *lowerer) nodes(n *sitter.Node) []phpast.Node {
	switch n.Type() {
	case "comment", "php_tag", "text", "text_interpolation":
		return nil
	case "namespace_use_declaration":
		return l.use(n)
	case "property_declaration":
		return l.properties(n)
	case "expression_statement":
		return l.list(n)
	}
	if node := l.node(n); node != nil {
		return []phpast.Node{node}
	}
	return nil
}

// node lowers a single syntax node.
func (l *lowerer) node(n *sitter.Node) phpast.Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "comment":
		return nil

	case "namespace_definition":
		ns := &phpast.Namespace{Position: pos(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			ns.Name = strings.Trim(compact(l.text(name)), `\`)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			ns.Children = l.list(body)
		}
		return ns

	case "class_declaration":
		return l.class(n)

	case "interface_declaration":
		return l.iface(n)

	case "method_declaration":
		return l.method(n)

	case "assignment_expression":
		return &phpast.Assign{
			Position: pos(n),
			Left:     l.node(n.ChildByFieldName("left")),
			Right:    l.node(n.ChildByFieldName("right")),
		}

	case "object_creation_expression":
		return l.newExpr(n)

	case "member_call_expression", "nullsafe_member_call_expression":
		return &phpast.Call{
			Position: pos(n),
			Callee: &phpast.PropertyLookup{
				Position: pos(n),
				Object:   l.node(n.ChildByFieldName("object")),
				Name:     l.memberName(n.ChildByFieldName("name")),
				Nullsafe: strings.HasPrefix(n.Type(), "nullsafe"),
			},
			Args: l.list(n.ChildByFieldName("arguments")),
		}

	case "member_access_expression", "nullsafe_member_access_expression":
		return &phpast.PropertyLookup{
			Position: pos(n),
			Object:   l.node(n.ChildByFieldName("object")),
			Name:     l.memberName(n.ChildByFieldName("name")),
			Nullsafe: strings.HasPrefix(n.Type(), "nullsafe"),
		}

	case "scoped_call_expression":
		return &phpast.StaticCall{
			Position: pos(n),
			Class:    l.node(n.ChildByFieldName("scope")),
			Method:   l.memberName(n.ChildByFieldName("name")),
			Args:     l.list(n.ChildByFieldName("arguments")),
		}

	case "function_call_expression":
		return &phpast.Call{
			Position: pos(n),
			Callee:   l.node(n.ChildByFieldName("function")),
			Args:     l.list(n.ChildByFieldName("arguments")),
		}

	case "argument":
		// Named arguments carry the label as the first child.
		if c := int(n.NamedChildCount()); c > 0 {
			return l.node(n.NamedChild(c - 1))
		}
		return nil

	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return l.node(n.NamedChild(0))
		}
		return nil

	case "variable_name":
		return &phpast.Variable{Position: pos(n), Name: strings.TrimPrefix(l.text(n), "$")}

	case "name", "qualified_name", "namespace_name", "relative_scope":
		return l.name(n)

	case "named_type":
		if n.NamedChildCount() > 0 {
			return l.node(n.NamedChild(0))
		}
		return l.name(n)

	case "primitive_type", "bottom_type":
		return &phpast.Name{Position: pos(n), Value: compact(l.text(n))}

	case "optional_type":
		nt := &phpast.NullableType{Position: pos(n)}
		if n.NamedChildCount() > 0 {
			nt.Type = l.node(n.NamedChild(0))
		}
		return nt

	case "union_type":
		return &phpast.UnionType{Position: pos(n), Types: l.list(n)}

	case "return_statement":
		ret := &phpast.Return{Position: pos(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() != "comment" {
				ret.Value = l.node(c)
				break
			}
		}
		return ret
	}

	return &phpast.Block{Position: pos(n), Type: n.Type(), Children: l.list(n)}
}

func (l *lowerer) name(n *sitter.Node) *phpast.Name {
	raw := compact(l.text(n))
	return &phpast.Name{
		Position:       pos(n),
		Value:          raw,
		FullyQualified: strings.HasPrefix(raw, `\`),
	}
}

// memberName returns the literal member name, or "" for dynamic members
// such as $obj->$name().
func (l *lowerer) memberName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if text := l.text(n); identifier.MatchString(text) {
		return text
	}
	return ""
}

func (l *lowerer) class(n *sitter.Node) *phpast.Class {
	c := &phpast.Class{
		Position: pos(n),
		Name:     l.text(n.ChildByFieldName("name")),
		Doc:      l.docComment(n),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "abstract_modifier":
			c.Abstract = true
		case "base_clause":
			if names := l.names(child); len(names) > 0 {
				c.Extends = names[0]
			}
		case "class_interface_clause":
			c.Implements = l.names(child)
		}
	}

	c.Members = l.list(n.ChildByFieldName("body"))
	return c
}

func (l *lowerer) iface(n *sitter.Node) *phpast.Interface {
	it := &phpast.Interface{
		Position: pos(n),
		Name:     l.text(n.ChildByFieldName("name")),
		Doc:      l.docComment(n),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child.Type() == "base_clause" {
			it.Extends = l.names(child)
		}
	}

	it.Members = l.list(n.ChildByFieldName("body"))
	return it
}

// names collects the class names listed in an extends/implements clause.
func (l *lowerer) names(clause *sitter.Node) []*phpast.Name {
	var out []*phpast.Name
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			out = append(out, l.name(child))
		}
	}
	return out
}

func (l *lowerer) method(n *sitter.Node) *phpast.Method {
	m := &phpast.Method{
		Position: pos(n),
		Name:     l.text(n.ChildByFieldName("name")),
		Doc:      l.docComment(n),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			m.Visibility = strings.ToLower(l.text(child))
		case "static_modifier":
			m.Static = true
		case "abstract_modifier":
			m.Abstract = true
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			child := params.NamedChild(i)
			switch child.Type() {
			case "simple_parameter", "property_promotion_parameter", "variadic_parameter":
				m.Params = append(m.Params, l.param(child))
			}
		}
	}

	if rt := n.ChildByFieldName("return_type"); rt != nil {
		m.ReturnType = l.node(rt)
	}

	if body := n.ChildByFieldName("body"); body != nil {
		m.Body = l.list(body)
		if m.Body == nil {
			m.Body = []phpast.Node{}
		}
	}
	return m
}

func (l *lowerer) param(n *sitter.Node) *phpast.Param {
	p := &phpast.Param{
		Position: pos(n),
		Variadic: n.Type() == "variadic_parameter",
	}

	if t := n.ChildByFieldName("type"); t != nil {
		p.Type = l.node(t)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		p.Name = strings.TrimLeft(l.text(name), "&$")
	}
	if def := n.ChildByFieldName("default_value"); def != nil {
		p.Default = l.node(def)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			p.Visibility = strings.ToLower(l.text(child))
		case "readonly_modifier":
			p.Readonly = true
		case "variable_name":
			if p.Name == "" {
				p.Name = strings.TrimPrefix(l.text(child), "$")
			}
		}
	}
	return p
}

// properties expands one property declaration into a node per property.
func (l *lowerer) properties(n *sitter.Node) []phpast.Node {
	doc := l.docComment(n)
	var (
		visibility string
		static     bool
		typ        phpast.Node
	)

	if t := n.ChildByFieldName("type"); t != nil {
		typ = l.node(t)
	}

	var elements []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			visibility = strings.ToLower(l.text(child))
		case "var_modifier":
			visibility = "public"
		case "static_modifier":
			static = true
		case "named_type", "optional_type", "union_type", "primitive_type", "intersection_type":
			if typ == nil {
				typ = l.node(child)
			}
		case "property_element":
			elements = append(elements, child)
		}
	}

	out := make([]phpast.Node, 0, len(elements))
	for _, el := range elements {
		prop := &phpast.Property{
			Position:   pos(el),
			Doc:        doc,
			Visibility: visibility,
			Static:     static,
			Type:       typ,
		}
		for i := 0; i < int(el.NamedChildCount()); i++ {
			child := el.NamedChild(i)
			switch {
			case child.Type() == "variable_name" && prop.Name == "":
				prop.Name = strings.TrimPrefix(l.text(child), "$")
			case child.Type() == "property_initializer":
				if child.NamedChildCount() > 0 {
					prop.Default = l.node(child.NamedChild(0))
				}
			case child.Type() != "comment":
				prop.Default = l.node(child)
			}
		}
		out = append(out, prop)
	}
	return out
}

func (l *lowerer) newExpr(n *sitter.Node) *phpast.New {
	nw := &phpast.New{Position: pos(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name", "relative_scope":
			if nw.Class == nil {
				nw.Class = l.name(child)
			}
		case "variable_name", "member_access_expression", "scoped_property_access_expression":
			if nw.Class == nil {
				nw.Class = l.node(child)
			}
		case "arguments":
			nw.Args = l.list(child)
		}
	}
	return nw
}

// use lowers a use statement into UseItem nodes, or a single UseGroup for
// the grouped form.
func (l *lowerer) use(n *sitter.Node) []phpast.Node {
	declType := phpast.UseClass
	var group, prefix *sitter.Node

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function":
			declType = phpast.UseFunction
		case "const":
			declType = phpast.UseConst
		case "namespace_use_group":
			group = child
		case "namespace_name", "qualified_name", "name":
			if group == nil {
				prefix = child
			}
		}
	}

	if group != nil {
		g := &phpast.UseGroup{
			Position: pos(n),
			Prefix:   strings.Trim(compact(l.text(prefix)), `\`),
			Type:     declType,
		}
		for i := 0; i < int(group.NamedChildCount()); i++ {
			child := group.NamedChild(i)
			if strings.HasPrefix(child.Type(), "namespace_use") {
				g.Items = append(g.Items, l.useItem(child, declType))
			}
		}
		return []phpast.Node{g}
	}

	var out []phpast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "namespace_use_clause" {
			out = append(out, l.useItem(child, declType))
		}
	}
	return out
}

// useItem reads "[function|const] Name [as Alias]" from a use clause. The
// clause text is used rather than child fields because the grammar has
// changed the clause shape across releases.
func (l *lowerer) useItem(clause *sitter.Node, declType phpast.UseType) *phpast.UseItem {
	fields := strings.Fields(l.text(clause))
	item := &phpast.UseItem{Position: pos(clause), Type: declType}

	if len(fields) > 0 {
		switch strings.ToLower(fields[0]) {
		case "function":
			item.Type = phpast.UseFunction
			fields = fields[1:]
		case "const":
			item.Type = phpast.UseConst
			fields = fields[1:]
		}
	}
	if n := len(fields); n >= 3 && strings.EqualFold(fields[n-2], "as") {
		item.Alias = fields[n-1]
		fields = fields[:n-2]
	}
	item.Name = strings.Trim(strings.Join(fields, ""), `\`)
	return item
}

// docComment returns the nearest preceding /** */ comment of a declaration.
func (l *lowerer) docComment(n *sitter.Node) string {
	for s := n.PrevSibling(); s != nil && s.Type() == "comment"; s = s.PrevSibling() {
		if text := l.text(s); strings.HasPrefix(text, "/**") {
			return text
		}
	}
	return ""
}

// compact removes whitespace inside a name.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
