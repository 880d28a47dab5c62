// Package naming implements the canonical identity scheme for PHP symbols.
//
// Class and interface names are compared by their canonical form: a single
// leading backslash, no repeated separators, no invisible characters and
// lower case. Display forms keep the original casing. Method identities use
// the same case folding with all whitespace and a trailing "()" removed.
//
// Every function in this package is total and idempotent.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Separator is the PHP namespace separator.
const Separator = `\`

// KeySeparator joins a class and a method inside a Key.
const KeySeparator = "::"

// ErrInvalidTarget is returned when an impact target is not of the form
// Class::method.
var ErrInvalidTarget = errors.New("invalid target")

// FQN is a fully qualified class or interface name in display form: cleaned,
// backslash-prefixed, original casing preserved.
type FQN string

// Key is the canonical CanonFQN::CanonMethod identity of a call graph node.
type Key string

// NewFQN cleans name into display form without case folding.
func NewFQN(name string) FQN {
	return FQN(clean(name))
}

// String returns the display form.
func (f FQN) String() string {
	return string(f)
}

// Canon returns the canonical (case-folded) form.
func (f FQN) Canon() string {
	return CanonFQN(string(f))
}

// Equal reports whether both names denote the same symbol.
func (f FQN) Equal(other FQN) bool {
	return f.Canon() == other.Canon()
}

// IsZero reports whether the name is empty or the bare root namespace.
func (f FQN) IsZero() bool {
	return f == "" || f == Separator
}

// Short returns the last segment, e.g. "Foo" for \App\Foo.
func (f FQN) Short() string {
	s := string(f)
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Namespace returns the namespace part in display form, without the leading
// separator. The global namespace is "".
func (f FQN) Namespace() string {
	s := strings.TrimPrefix(string(f), Separator)
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[:i]
	}
	return ""
}

// CanonFQN returns the canonical form of a class or interface name.
func CanonFQN(name string) string {
	return strings.ToLower(clean(name))
}

// CanonMethod returns the canonical form of a method name.
func CanonMethod(name string) string {
	s := strings.Map(func(r rune) rune {
		if isInvisible(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	for strings.HasSuffix(s, "()") {
		s = strings.TrimSuffix(s, "()")
	}
	return strings.ToLower(s)
}

// CanonKey builds the graph identity for a method of a class.
func CanonKey(fqn, method string) Key {
	return Key(CanonFQN(fqn) + KeySeparator + CanonMethod(method))
}

// MethodKey is CanonKey for an FQN value.
func MethodKey(fqn FQN, method string) Key {
	return CanonKey(string(fqn), method)
}

// Split returns the canonical class and method parts of the key.
func (k Key) Split() (class, method string) {
	s := string(k)
	i := strings.LastIndex(s, KeySeparator)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(KeySeparator):]
}

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// ParseTarget validates a user supplied "Class::method" target and returns its
// canonical key.
func ParseTarget(target string) (Key, error) {
	cls, method, ok := strings.Cut(strings.TrimSpace(target), KeySeparator)
	if !ok {
		return "", fmt.Errorf("%w: %q (expected \\FQCN::method)", ErrInvalidTarget, target)
	}
	if NewFQN(cls).IsZero() || CanonMethod(method) == "" || strings.Contains(method, KeySeparator) {
		return "", fmt.Errorf("%w: %q (expected \\FQCN::method)", ErrInvalidTarget, target)
	}
	return CanonKey(cls, method), nil
}

// clean strips invisible characters, surrounding whitespace and redundant
// separators, and guarantees exactly one leading separator.
func clean(name string) string {
	s := strings.Map(func(r rune) rune {
		if isInvisible(r) {
			return -1
		}
		return r
	}, name)

	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\\'
	})

	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteByte('\\')
	prevSep := true
	for _, r := range s {
		if r == '\\' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isInvisible reports zero-width and other format characters (BOM, ZWSP,
// ZWJ, soft hyphen, word joiner).
func isInvisible(r rune) bool {
	return unicode.Is(unicode.Cf, r)
}
