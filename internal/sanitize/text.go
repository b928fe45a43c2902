package sanitize

import "github.com/microcosm-cc/bluemonday"

// All user-authored text on events and comments is plain text; everything
// HTML-shaped is stripped before it reaches the store.
var strictPolicy = bluemonday.StrictPolicy()

func Text(input string) string {
	return strictPolicy.Sanitize(input)
}

func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	sanitized := make([]string, len(inputs))
	for i, input := range inputs {
		sanitized[i] = Text(input)
	}
	return sanitized
}
