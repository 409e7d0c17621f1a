package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// DecodeRuleSettings decodes a YAML mapping of rule name to setting,
// keeping document order. A nil or null node yields nil.
func DecodeRuleSettings(node *yaml.Node) (lint.RuleSettings, error) {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: rules must be a mapping of rule name to setting", node.Line)
	}

	settings := make(lint.RuleSettings, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v any
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: rule %s: %w", val.Line, key.Value, err)
		}
		settings = append(settings, lint.RuleSetting{Name: key.Value, Value: v})
	}
	return settings, nil
}

// readRuleSettings reads the rules section of a config file. The second
// return reports whether the section was present.
func readRuleSettings(path string) (lint.RuleSettings, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	var doc struct {
		Rules yaml.Node `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, err
	}
	if doc.Rules.Kind == 0 {
		return nil, false, nil
	}
	settings, err := DecodeRuleSettings(&doc.Rules)
	return settings, true, err
}

// ParseRuleFlag parses a name=setting flag value. A bare name enables
// the rule.
func ParseRuleFlag(s string) (lint.RuleSetting, error) {
	name, value, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return lint.RuleSetting{}, fmt.Errorf("invalid rule flag %q: expected name=setting", s)
	}
	if !found {
		return lint.RuleSetting{Name: name, Value: "on"}, nil
	}
	return lint.RuleSetting{Name: name, Value: strings.TrimSpace(value)}, nil
}

// OverlayRules applies override on top of base. Names already in base
// keep their position.
func OverlayRules(base, override lint.RuleSettings) lint.RuleSettings {
	out := append(lint.RuleSettings(nil), base...)
	for _, s := range override {
		replaced := false
		for i := range out {
			if out[i].Name == s.Name {
				out[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, s)
		}
	}
	return out
}
