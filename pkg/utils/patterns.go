package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileWildcardPatterns compiles shell-style wildcard patterns ("*.pdf",
// "*/admin/*") into anchored regular expressions matched against full URLs.
// '*' matches any run of characters including '/', '?' matches one character;
// everything else is literal. Malformed results surface as a fatal
// configuration error.
func CompileWildcardPatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("%w: empty exclude pattern", ErrConfigValidation)
		}
		re, err := regexp.Compile(wildcardToRegex(pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: compiling pattern '%s': %w", ErrConfigValidation, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func wildcardToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString(`^`)
	// A pattern without a leading wildcard or scheme is treated as a
	// substring match anywhere in the URL ("*.pdf" style patterns rely on
	// the leading star instead).
	if !strings.HasPrefix(pattern, "*") && !strings.Contains(pattern, "://") {
		b.WriteString(`.*`)
	}
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if !strings.HasSuffix(pattern, "*") {
		b.WriteString(`$`)
	}
	return b.String()
}
