// Package pattern maps file paths to pattern IDs via path glob rules.
package pattern

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Rule defines a pattern with the path globs that feed it.
type Rule struct {
	ID      string   `yaml:"id"`
	Include []string `yaml:"include"`
}

// Config holds the patterns configuration.
type Config struct {
	Patterns []Rule `yaml:"patterns"`
}

// Matcher matches file paths to pattern IDs.
type Matcher struct {
	rules []Rule
}

// LoadRules loads pattern rules from a YAML file.
func LoadRules(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patterns file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing patterns file: %w", err)
	}

	return &Matcher{rules: config.Patterns}, nil
}

// NewMatcher creates a matcher from a list of rules.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// MatchPath returns the IDs of patterns whose globs match the given path.
func (m *Matcher) MatchPath(path string) []string {
	var matched []string

	for _, rule := range m.rules {
		for _, glob := range rule.Include {
			match, err := doublestar.Match(glob, path)
			if err != nil {
				continue
			}
			if match {
				matched = append(matched, rule.ID)
				break // only add each pattern once
			}
		}
	}

	return matched
}

// MatchPaths returns a map of pattern IDs to the paths that match them.
func (m *Matcher) MatchPaths(paths []string) map[string][]string {
	result := make(map[string][]string)

	for _, path := range paths {
		for _, id := range m.MatchPath(path) {
			result[id] = append(result[id], path)
		}
	}

	return result
}

// Rules returns all pattern rules.
func (m *Matcher) Rules() []Rule {
	return m.rules
}
