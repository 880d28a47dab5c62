// Package phpdoc extracts the few docblock facts the indexers rely on:
// summary text, @api/@deprecated markers, and @var/@param/@return/@method
// type annotations.
package phpdoc

import (
	"regexp"
	"strings"
)

var (
	linePrefix     = regexp.MustCompile(`^\s*\*\s?`)
	varTag         = regexp.MustCompile(`@var\s+([^\s*]+)`)
	returnTag      = regexp.MustCompile(`@return\s+([^\s*]+)`)
	paramTag       = regexp.MustCompile(`@param\s+([^\s*$]+)\s+(?:\.\.\.)?&?\$(\w+)`)
	methodTag      = regexp.MustCompile(`(?i)@method\s+(?:static\s+)?([^\s(]+)\s+(\w+)\s*\(`)
	factoryTag     = regexp.MustCompile(`@method\s+(\\?[A-Za-z_][\w\\]*)\s+get(?:BusinessFactory|Factory)\s*\(`)
	inheritDocOnly = regexp.MustCompile(`(?i)^\{?@inheritdoc\}?$`)
)

// Doc is the parsed summary of a doc-comment.
type Doc struct {
	Description string
	API         bool
	Deprecated  bool
}

// MethodTag is one class-level "@method <Type> name(...)" annotation.
type MethodTag struct {
	Type string
	Name string
}

// Parse extracts the description and markers from a raw doc-comment.
// The description is every line before the first tag line, with comment
// markers stripped and joined by single spaces.
func Parse(raw string) Doc {
	if raw == "" {
		return Doc{}
	}

	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/**") {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "/**"))
			if trimmed == "" || trimmed == "*/" {
				continue
			}
			line = trimmed
		}
		if trimmed == "*/" {
			continue
		}
		text := strings.TrimSpace(strings.TrimSuffix(linePrefix.ReplaceAllString(line, ""), "*/"))
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "@") {
			break
		}
		parts = append(parts, text)
	}

	return Doc{
		Description: strings.Join(parts, " "),
		API:         strings.Contains(raw, "@api"),
		Deprecated:  strings.Contains(raw, "@deprecated"),
	}
}

// NeedsInherit reports whether a description should be back-filled from
// an interface: it is empty or only an inherit marker.
func (d Doc) NeedsInherit() bool {
	desc := strings.TrimSpace(d.Description)
	return desc == "" || inheritDocOnly.MatchString(desc)
}

// VarType returns the raw type of the first @var tag.
func VarType(raw string) (string, bool) {
	return firstGroup(varTag, raw)
}

// ReturnType returns the raw type of the first @return tag.
func ReturnType(raw string) (string, bool) {
	return firstGroup(returnTag, raw)
}

// ParamType returns the raw type annotated for parameter $name.
func ParamType(raw, name string) (string, bool) {
	for _, m := range paramTag.FindAllStringSubmatch(raw, -1) {
		if m[2] == name {
			return m[1], true
		}
	}
	return "", false
}

// MethodTags returns every "@method <Type> name(" annotation in order.
func MethodTags(raw string) []MethodTag {
	var tags []MethodTag
	for _, m := range methodTag.FindAllStringSubmatch(raw, -1) {
		tags = append(tags, MethodTag{Type: m[1], Name: m[2]})
	}
	return tags
}

// FactoryOwner returns the factory type, as written, declared by a
// "@method <Factory> getFactory()" or getBusinessFactory() annotation.
func FactoryOwner(raw string) (string, bool) {
	return firstGroup(factoryTag, raw)
}

func firstGroup(re *regexp.Regexp, raw string) (string, bool) {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}
