package factory

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/hargabyte/phpimpact/internal/naming"
)

// ErrInvalidConvention is returned for a convention whose pattern does not
// compile.
var ErrInvalidConvention = errors.New("invalid factory convention")

// Convention maps a class namespace to the factory of its layer. Template
// is expanded with regexp.Expand syntax, so groups must be written ${1}
// when followed by letters.
type Convention struct {
	Pattern  *regexp.Regexp
	Template string
}

// NewConvention compiles a convention. Patterns match case-insensitively.
func NewConvention(pattern, template string) (Convention, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return Convention{}, fmt.Errorf("%w: %q: %w", ErrInvalidConvention, pattern, err)
	}
	if template == "" {
		return Convention{}, fmt.Errorf("%w: %q: empty template", ErrInvalidConvention, pattern)
	}
	return Convention{Pattern: re, Template: template}, nil
}

func mustConvention(pattern, template string) Convention {
	c, err := NewConvention(pattern, template)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultConventions = []Convention{
	mustConvention(`^(.*\\Zed\\)([^\\]+)\\Business(?:\\|$)`, `${1}${2}\Business\${2}BusinessFactory`),
	mustConvention(`^(.*\\Zed\\)([^\\]+)\\Communication(?:\\|$)`, `${1}${2}\Communication\${2}CommunicationFactory`),
	mustConvention(`^(.*\\Zed\\)([^\\]+)\\Persistence(?:\\|$)`, `${1}${2}\Persistence\${2}PersistenceFactory`),
	mustConvention(`^(.*\\Client\\)([^\\]+)(?:\\|$)`, `${1}${2}\${2}Factory`),
	mustConvention(`^(.*\\Service\\)([^\\]+)(?:\\|$)`, `${1}${2}\${2}ServiceFactory`),
	mustConvention(`^(.*\\Glue\\)([^\\]+)(?:\\|$)`, `${1}${2}\${2}Factory`),
}

// DefaultConventions returns the layer conventions in priority order.
func DefaultConventions() []Convention {
	return append([]Convention(nil), defaultConventions...)
}

// OwnerLookup yields the factory documented on a class, if any.
type OwnerLookup interface {
	OwnerFactory(owner naming.FQN) (naming.FQN, bool)
}

// Resolver finds the factory class responsible for an owner class.
type Resolver struct {
	owners      OwnerLookup
	conventions []Convention
}

// NewResolver returns a resolver consulting owners first and then the
// default conventions followed by extra.
func NewResolver(owners OwnerLookup, extra ...Convention) *Resolver {
	return &Resolver{
		owners:      owners,
		conventions: append(DefaultConventions(), extra...),
	}
}

// FactoryClassFor returns the factory of owner. A documented getFactory()
// annotation wins over naming conventions. No match is not an error.
func (r *Resolver) FactoryClassFor(owner naming.FQN) (naming.FQN, bool) {
	if owner.IsZero() {
		return "", false
	}
	if r.owners != nil {
		if f, ok := r.owners.OwnerFactory(owner); ok {
			return f, true
		}
	}
	s := string(naming.NewFQN(string(owner)))
	for _, c := range r.conventions {
		m := c.Pattern.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}
		return naming.NewFQN(string(c.Pattern.ExpandString(nil, c.Template, s, m))), true
	}
	return "", false
}
