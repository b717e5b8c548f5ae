// Package template implements the substitution grammar applied to component
// files at install time: {{var}} and {{var|filter}} tokens plus
// sentinel-marked optional lilypad lines. Rendering is pure text
// transformation with no filesystem or network access.
package template

import (
	"regexp"
	"strings"
)

// LilypadSentinel marks a line that is only emitted when the lilypad
// integration is enabled. Disabled installs drop the whole line; enabled
// installs emit the line with the sentinel stripped.
const LilypadSentinel = "# [funcn:lilypad]"

var tokenRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\|\s*([a-z]+)\s*)?\}\}`)

// Render substitutes template variables into text and resolves lilypad
// lines. Tokens whose variable is not present in variables, or that name an
// unknown filter, are left byte-for-byte unchanged.
func Render(text string, variables map[string]string, withLilypad bool) string {
	text = renderLilypad(text, withLilypad)
	return RenderTokens(text, variables)
}

// RenderTokens applies only the {{var}} / {{var|filter}} substitution.
func RenderTokens(text string, variables map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(text, func(token string) string {
		m := tokenRe.FindStringSubmatch(token)
		name, filter := m[1], m[2]
		value, ok := variables[name]
		if !ok {
			return token
		}
		if filter == "" {
			return value
		}
		filtered, ok := applyFilter(value, filter)
		if !ok {
			return token
		}
		return filtered
	})
}

func applyFilter(value, filter string) (string, bool) {
	switch filter {
	case "upper":
		return strings.ToUpper(value), true
	case "lower":
		return strings.ToLower(value), true
	case "title":
		return titleCase(value), true
	}
	return "", false
}

// titleCase capitalizes each underscore or hyphen delimited segment and
// rejoins without separators, so "my_snake_case" becomes "MySnakeCase".
func titleCase(value string) string {
	segments := strings.FieldsFunc(value, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var out strings.Builder
	for _, seg := range segments {
		out.WriteString(strings.ToUpper(seg[:1]))
		out.WriteString(seg[1:])
	}
	return out.String()
}

func renderLilypad(text string, withLilypad bool) string {
	if !strings.Contains(text, LilypadSentinel) {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		idx := strings.Index(line, LilypadSentinel)
		if idx < 0 {
			out = append(out, line)
			continue
		}
		if !withLilypad {
			continue
		}
		out = append(out, strings.TrimRight(line[:idx], " \t"))
	}
	return strings.Join(out, "\n")
}
