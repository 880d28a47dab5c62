// Package impact answers which public entrypoints transitively call a
// method.
package impact

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/hargabyte/phpimpact/internal/naming"
	"github.com/hargabyte/phpimpact/internal/symbols"
)

// DefaultPattern selects facade, client, service and plugin classes.
const DefaultPattern = symbols.DefaultEntrypointPattern

// ErrInvalidPattern is returned when the entrypoint pattern does not
// compile.
var ErrInvalidPattern = errors.New("invalid entrypoint pattern")

// CallerIndex yields the direct predecessors of a method.
type CallerIndex interface {
	Callers(key naming.Key) []naming.Key
}

// MethodIndex yields method metadata.
type MethodIndex interface {
	Method(key naming.Key) (*symbols.Method, bool)
}

// Entrypoint is a public method reached from a target.
type Entrypoint struct {
	Key          naming.Key   `json:"key" yaml:"key"`
	Class        naming.FQN   `json:"class" yaml:"class"`
	Method       string       `json:"method" yaml:"method"`
	Hops         int          `json:"hops" yaml:"hops"`
	Description  string       `json:"description" yaml:"description"`
	IsAPIMethod  bool         `json:"isApiMethod" yaml:"isApiMethod"`
	IsDeprecated bool         `json:"isDeprecated" yaml:"isDeprecated"`
	Module       string       `json:"module,omitempty" yaml:"module,omitempty"`
	File         string       `json:"file,omitempty" yaml:"file,omitempty"`
	Line         int          `json:"line,omitempty" yaml:"line,omitempty"`
	Path         []naming.Key `json:"path,omitempty" yaml:"path,omitempty"`
}

// Option configures a Finder.
type Option func(*Finder)

// WithExplain records for each entrypoint the chain of calls down to the
// target.
func WithExplain() Option {
	return func(f *Finder) { f.explain = true }
}

// Finder runs reverse reachability queries. It holds no per-query state
// and is safe for concurrent use.
type Finder struct {
	callers CallerIndex
	methods MethodIndex
	pattern *regexp.Regexp
	explain bool
}

// NewFinder compiles pattern ("" selects DefaultPattern) and returns a
// finder over the given indexes.
func NewFinder(callers CallerIndex, methods MethodIndex, pattern string, opts ...Option) (*Finder, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
	}
	f := &Finder{callers: callers, methods: methods, pattern: re}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Pattern returns the entrypoint pattern source.
func (f *Finder) Pattern() string {
	return f.pattern.String()
}

// Find walks the reverse index breadth-first from target and returns every
// reached public method of an entrypoint class, ordered by hops then key.
// The target itself is never reported.
func (f *Finder) Find(target naming.Key) []Entrypoint {
	hops := make(map[naming.Key]int)
	next := make(map[naming.Key]naming.Key)
	seen := map[naming.Key]struct{}{target: {}}
	queue := []naming.Key{target}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, pred := range f.callers.Callers(current) {
			if _, ok := seen[pred]; ok {
				continue
			}
			seen[pred] = struct{}{}
			hops[pred] = hops[current] + 1
			next[pred] = current
			queue = append(queue, pred)
		}
	}

	result := make([]Entrypoint, 0)
	for key, distance := range hops {
		m, ok := f.methods.Method(key)
		if !ok || m.Visibility != symbols.Public || !f.pattern.MatchString(string(m.Class)) {
			continue
		}
		ep := Entrypoint{
			Key:          key,
			Class:        m.Class,
			Method:       m.Name,
			Hops:         distance,
			Description:  m.Description,
			IsAPIMethod:  m.IsAPIMethod,
			IsDeprecated: m.IsDeprecated,
			Module:       symbols.ModuleName(m.Class),
			File:         m.File,
			Line:         m.StartLine,
		}
		if f.explain {
			ep.Path = pathTo(key, target, next)
		}
		result = append(result, ep)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Hops != result[j].Hops {
			return result[i].Hops < result[j].Hops
		}
		return result[i].Key < result[j].Key
	})
	return result
}

func pathTo(from, target naming.Key, next map[naming.Key]naming.Key) []naming.Key {
	path := []naming.Key{from}
	for n := from; n != target; {
		n = next[n]
		path = append(path, n)
	}
	return path
}
