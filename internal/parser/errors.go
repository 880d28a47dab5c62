package parser

import (
	"fmt"
	"strings"
)

// ErrorKind tells a stray token apart from one tree-sitter had to invent.
type ErrorKind string

const (
	// ErrorUnexpected marks source tree-sitter could not fit anywhere and
	// wrapped in an ERROR node.
	ErrorUnexpected ErrorKind = "unexpected"
	// ErrorMissing marks a token the grammar required but the source
	// lacks, such as a closing ';' or ')'.
	ErrorMissing ErrorKind = "missing"
)

// ParseError locates the first syntax error of a PHP file. Kind is empty
// when tree-sitter failed outright (for example a cancelled context).
type ParseError struct {
	Message string
	File    string
	Line    uint32
	Column  uint32

	Kind ErrorKind
	// Token is the missing node type or the leading text of the ERROR node.
	Token string
	// Enclosing is the innermost PHP declaration around the error
	// (class_declaration, method_declaration, ...) and EnclosingName its name.
	Enclosing     string
	EnclosingName string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s:", e.File)
	}
	fmt.Fprintf(&b, "%d:%d: ", e.Line, e.Column)
	switch e.Kind {
	case ErrorMissing:
		fmt.Fprintf(&b, "missing %q", e.Token)
	case ErrorUnexpected:
		fmt.Fprintf(&b, "unexpected %q", e.Token)
	default:
		b.WriteString(e.Message)
	}
	if e.Enclosing != "" {
		fmt.Fprintf(&b, " in %s", e.Enclosing)
		if e.EnclosingName != "" {
			fmt.Fprintf(&b, " %s", e.EnclosingName)
		}
	}
	return b.String()
}

// FileReadError is returned when a PHP file cannot be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}
