package crew

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// RenderTemplate substitutes {placeholder} markers with values from params.
// Every placeholder must be covered; the first uncovered one fails the
// render with MissingParameterError. The output never contains an
// unresolved marker.
func RenderTemplate(tmpl string, params map[string]string) (string, error) {
	var missing string
	result := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := strings.Trim(match, "{}")
		value, ok := params[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", &MissingParameterError{Key: missing}
	}
	return result, nil
}
