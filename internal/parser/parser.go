// Package parser provides tree-sitter based parsing of PHP source files.
//
// The parser wraps the tree-sitter PHP grammar and lowers the concrete
// syntax tree into the phpast sum type, so that no tree-sitter handle
// outlives a single ParseFile call.
package parser

import (
	"context"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/hargabyte/phpimpact/internal/phpast"
)

// Parser wraps a tree-sitter parser configured for PHP.
// A Parser is not safe for concurrent use; create one per worker.
type Parser struct {
	parser   *sitter.Parser
	tolerant bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithTolerance makes the parser accept trees containing syntax errors
// instead of rejecting the whole file.
func WithTolerance(tolerant bool) Option {
	return func(p *Parser) {
		p.tolerant = tolerant
	}
}

// ParseResult contains the raw tree-sitter tree for a source file.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree.
	Tree *sitter.Tree
	// Root is the root node of the tree.
	Root *sitter.Node
	// Source is the original source code that was parsed.
	Source []byte
	// FilePath is the path to the source file (empty for in-memory parsing).
	FilePath string
}

// New creates a PHP parser.
func New(opts ...Option) *Parser {
	sp := sitter.NewParser()
	sp.SetLanguage(php.GetLanguage())

	p := &Parser{parser: sp}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses source code and returns the raw tree.
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
		}
	}

	return &ParseResult{
		Tree:   tree,
		Root:   tree.RootNode(),
		Source: source,
	}, nil
}

// ParseSource parses source and lowers it into a phpast.File. Trees with
// syntax errors are rejected with a *ParseError unless the parser is
// tolerant.
func (p *Parser) ParseSource(ctx context.Context, path string, source []byte) (*phpast.File, error) {
	result, err := p.Parse(ctx, source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}
	defer result.Close()
	result.FilePath = path

	if result.HasErrors() && !p.tolerant {
		return nil, result.syntaxError()
	}

	l := &lowerer{src: source}
	return l.file(result.Root, path), nil
}

// ParseFile reads a file from disk and lowers it into a phpast.File.
func (p *Parser) ParseFile(ctx context.Context, path string) (*phpast.File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	return p.ParseSource(ctx, path, source)
}

// Close releases parser resources.
// After calling Close, the parser should not be used.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors returns true if the parse tree contains syntax errors.
func (r *ParseResult) HasErrors() bool {
	if r.Root == nil {
		return false
	}
	return r.Root.HasError()
}

// WalkNodes traverses the tree depth-first, calling the visitor function
// for each node. If the visitor returns false, traversal stops.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

// walkNode is a helper for depth-first traversal.
func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) bool {
	if !visitor(node) {
		return false
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if !walkNode(node.Child(int(i)), visitor) {
			return false
		}
	}
	return true
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	return node.Content(r.Source)
}

// syntaxError locates the first ERROR or MISSING node and the PHP
// declaration it sits in.
func (r *ParseResult) syntaxError() *ParseError {
	pe := &ParseError{Message: "syntax error", File: r.FilePath}
	r.WalkNodes(func(n *sitter.Node) bool {
		if !n.IsError() && !n.IsMissing() {
			return true
		}
		pe.Line = n.StartPoint().Row + 1
		pe.Column = n.StartPoint().Column + 1
		if n.IsMissing() {
			pe.Kind = ErrorMissing
			pe.Token = n.Type()
		} else {
			pe.Kind = ErrorUnexpected
			pe.Token = errorSnippet(r.NodeText(n))
		}
		for p := n.Parent(); p != nil; p = p.Parent() {
			if declarationKinds[p.Type()] {
				pe.Enclosing = p.Type()
				if name := p.ChildByFieldName("name"); name != nil {
					pe.EnclosingName = r.NodeText(name)
				}
				break
			}
		}
		return false
	})
	return pe
}

var declarationKinds = map[string]bool{
	"namespace_definition":  true,
	"class_declaration":     true,
	"interface_declaration": true,
	"trait_declaration":     true,
	"enum_declaration":      true,
	"method_declaration":    true,
	"function_definition":   true,
}

// errorSnippet keeps the first line of an ERROR node, capped at 24 bytes.
func errorSnippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if len(text) > 24 {
		text = text[:24]
	}
	return text
}
