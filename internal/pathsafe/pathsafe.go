// Package pathsafe turns free text into a single safe path segment.
package pathsafe

import (
	"fmt"
	"regexp"

	"github.com/mrlokans/roots/internal/config"
)

// Rule is one step of the sanitizer. Rules run in slice order and each
// rule's output feeds the next one.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// space matches Unicode whitespace; RE2's \s is ASCII only.
const space = `[\s\p{Z}\x{85}]`

var defaultRules = []Rule{
	// Characters invalid in filenames on common filesystems, one underscore each
	{regexp.MustCompile(`[<>:"?!*|/]`), "_"},
	// C0 control characters
	{regexp.MustCompile(`[\x00-\x1f]`), ""},
	// Trailing dot, also when only whitespace follows it
	{regexp.MustCompile(`\.` + space + `*$`), "_"},
	{regexp.MustCompile(space + `+$`), ""},
	{regexp.MustCompile(`^` + space + `+`), ""},
	// Leading dot would hide the file
	{regexp.MustCompile(`^\.`), "_"},
}

// DefaultRules returns a copy of the built-in rule list.
func DefaultRules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Sanitize applies rules to text in order. It never fails; an input made
// only of removable characters yields "".
func Sanitize(rules []Rule, text string) string {
	for _, rule := range rules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}
	return text
}

// CompileRules builds rules from configured replacements. An empty list
// selects DefaultRules.
func CompileRules(replacements []config.Replacement) ([]Rule, error) {
	if len(replacements) == 0 {
		return DefaultRules(), nil
	}

	rules := make([]Rule, 0, len(replacements))
	for i, r := range replacements {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("replacement %d (%q): %w", i, r.Pattern, err)
		}
		rules = append(rules, Rule{Pattern: re, Replacement: r.Replacement})
	}
	return rules, nil
}
