package symbols

import (
	"regexp"

	"github.com/hargabyte/phpimpact/internal/naming"
)

// DefaultEntrypointPattern matches the class-name suffixes of public API
// classes.
const DefaultEntrypointPattern = `(Facade|Client|Service|Plugin)$`

var (
	publicAPIClass = regexp.MustCompile(`(Facade|Client|Service|Plugin)(Interface)?$`)
	pluginClass    = regexp.MustCompile(`\\Plugin\\|Plugin$`)
	moduleSegment  = regexp.MustCompile(`^\\(?:[^\\]+)\\(Zed|Client|Service|Glue|Yves|Shared)\\([^\\]+)`)
	internalLayer  = regexp.MustCompile(`\\(Business|Communication|Persistence)\\`)
)

// IsPlugin reports whether fqn lives in a Plugin namespace or is named
// *Plugin.
func IsPlugin(fqn naming.FQN) bool {
	return pluginClass.MatchString(string(fqn))
}

// IsPublicAPIClass reports whether fqn is a facade, client, service or
// plugin class or interface.
func IsPublicAPIClass(fqn naming.FQN) bool {
	return publicAPIClass.MatchString(string(fqn)) || IsPlugin(fqn)
}

// IsPublicAPI reports whether m is a public method of a public API class.
func IsPublicAPI(m *Method) bool {
	return m.Visibility == Public && IsPublicAPIClass(m.Class)
}

// ModuleName extracts the module of \<Vendor>\<Layer>\<Module>\..., or ""
// when fqn does not follow the layered layout.
func ModuleName(fqn naming.FQN) string {
	m := moduleSegment.FindStringSubmatch(string(fqn))
	if m == nil {
		return ""
	}
	return m[2]
}

// IsInternalLayer reports whether fqn belongs to the Business,
// Communication or Persistence layer of a module.
func IsInternalLayer(fqn naming.FQN) bool {
	return internalLayer.MatchString(string(fqn))
}
