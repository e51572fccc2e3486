// Package classification picks a category for imported statement lines from
// their description.
package classification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Rule maps descriptions matching Regex to a category name.
type Rule struct {
	Name     string
	Category string
	Regex    string
	Priority int // Higher priority rules are checked first
	// CreditOnly restricts the rule to money coming in.
	CreditOnly bool
}

type compiledRule struct {
	compiledRegex *regexp.Regexp
	Rule
}

// Detector classifies descriptions against an ordered rule set.
type Detector struct {
	rules []compiledRule
	mu    sync.RWMutex
}

// Match is the rule that fired for a description.
type Match struct {
	RuleName string
	Category string
}

// NewDetector compiles rules. Matching is case-insensitive.
func NewDetector(rules []Rule) (*Detector, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return &Detector{rules: compiled}, nil
}

func compile(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %s has no category", r.Name)
		}

		regexStr := r.Regex
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr
		}
		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", r.Name, err)
		}

		compiled = append(compiled, compiledRule{Rule: r, compiledRegex: regex})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return compiled, nil
}

// Classify returns the first matching rule in priority order, or nil.
func (d *Detector) Classify(description string, isCredit bool) *Match {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, r := range d.rules {
		if r.CreditOnly && !isCredit {
			continue
		}
		if r.compiledRegex.MatchString(description) {
			return &Match{RuleName: r.Name, Category: r.Category}
		}
	}
	return nil
}

// UpdateRules swaps in a new rule set.
func (d *Detector) UpdateRules(rules []Rule) error {
	compiled, err := compile(rules)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.rules = compiled
	d.mu.Unlock()
	return nil
}

// RuleCount returns the number of loaded rules.
func (d *Detector) RuleCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rules)
}
