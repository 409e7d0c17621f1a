package lint

import (
	"fmt"
	"maps"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// ParserOptions configures the parser.
type ParserOptions struct {
	Database sqlparser.Dialect `json:"database,omitempty"`
}

// RuleSetting enables, disables or sets the severity of a rule by name.
// Value is one of: bool, "off", "on", a severity name, or a list whose
// first element is one of those and whose optional second element is a
// map of rule options.
type RuleSetting struct {
	Name  string
	Value any
}

// RuleSettings is an ordered name-to-setting mapping.
type RuleSettings []RuleSetting

// RuleSource is the rules section of a ConfigInput: either a resolved list
// of rules or an ordered mapping of settings. The zero value is unset.
type RuleSource struct {
	list     []Rule
	settings RuleSettings
	isList   bool
}

// RuleList returns a source holding resolved rules.
func RuleList(rules ...Rule) RuleSource {
	return RuleSource{list: append([]Rule{}, rules...), isList: true}
}

// RuleMap returns a source holding settings to resolve against a registry.
func RuleMap(settings ...RuleSetting) RuleSource {
	return RuleSource{settings: append(RuleSettings{}, settings...)}
}

// IsList reports whether the source holds resolved rules.
func (s RuleSource) IsList() bool { return s.isList }

// Rules returns the resolved rules of a list source.
func (s RuleSource) Rules() []Rule { return s.list }

// Settings returns the settings of a mapping source.
func (s RuleSource) Settings() RuleSettings { return s.settings }

// ConfigInput is a configuration as written by the user.
type ConfigInput struct {
	Files  []string
	Rules  RuleSource
	Parser ParserOptions
	Env    map[string]any
}

// Config is a resolved configuration. Rules is always the validated,
// ordered list of rules to run.
type Config struct {
	Files  []string
	Rules  []Rule
	Parser ParserOptions
	Env    map[string]any

	// Severities holds per-rule severity overrides from the settings form.
	Severities map[string]Severity
	// Options holds per-rule options from the list settings form.
	Options map[string]Options
}

// RuleNames returns the names of the configured rules in order.
func (c *Config) RuleNames() []string {
	names := make([]string, len(c.Rules))
	for i, r := range c.Rules {
		names[i] = r.Name
	}
	return names
}

// Dialect returns the configured dialect or the default.
func (c *Config) Dialect() sqlparser.Dialect {
	if c == nil || c.Parser.Database == "" {
		return sqlparser.DefaultDialect
	}
	return c.Parser.Database
}

// DefaultConfigInput returns the configuration used when none is given.
func DefaultConfigInput() ConfigInput {
	return ConfigInput{
		Files:  []string{"**/*.sql"},
		Rules:  RuleList(),
		Parser: ParserOptions{Database: sqlparser.MySQL},
	}
}

// DefineConfig resolves and validates input. It is the entry point for
// configurations written in Go.
func DefineConfig(reg *Registry, input ConfigInput) (*Config, error) {
	return ResolveConfig(reg, input)
}

// ResolveConfig turns input into a validated Config. Settings entries
// are looked up in reg in order; entries set to off are skipped.
func ResolveConfig(reg *Registry, input ConfigInput) (*Config, error) {
	cfg := &Config{
		Files:  append([]string(nil), input.Files...),
		Parser: input.Parser,
		Env:    maps.Clone(input.Env),
	}

	if input.Rules.IsList() {
		cfg.Rules = append([]Rule(nil), input.Rules.list...)
	} else {
		if err := resolveSettings(cfg, reg, input.Rules.settings); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveSettings(cfg *Config, reg *Registry, settings RuleSettings) error {
	for _, s := range settings {
		enabled, sev, opts, err := parseSetting(s.Value)
		if err != nil {
			return &ConfigError{Field: "rules." + s.Name, Err: err}
		}
		if !enabled {
			continue
		}

		var (
			rule Rule
			ok   bool
		)
		if reg != nil {
			rule, ok = reg.Get(s.Name)
		}
		if !ok {
			var available []string
			if reg != nil {
				available = reg.GetNames()
			}
			return &ConfigError{
				Field: "rules",
				Err:   fmt.Errorf("%w: %q (available rules: %s)", ErrRuleNotFound, s.Name, strings.Join(available, ", ")),
			}
		}
		cfg.Rules = append(cfg.Rules, rule)

		if sev != nil {
			if cfg.Severities == nil {
				cfg.Severities = make(map[string]Severity)
			}
			cfg.Severities[s.Name] = *sev
		}
		if opts != nil {
			if cfg.Options == nil {
				cfg.Options = make(map[string]Options)
			}
			cfg.Options[s.Name] = opts
		}
	}
	return nil
}

// parseSetting interprets one settings value. A nil severity means the
// rule keeps the severities it reports.
func parseSetting(v any) (enabled bool, sev *Severity, opts Options, err error) {
	switch x := v.(type) {
	case bool:
		return x, nil, nil, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "off":
			return false, nil, nil, nil
		case "on":
			return true, nil, nil, nil
		}
		s, ok := ParseSeverity(x)
		if !ok {
			return false, nil, nil, fmt.Errorf("%w: %q", ErrInvalidSetting, x)
		}
		return true, &s, nil, nil
	case Severity:
		return true, &x, nil, nil
	case []string:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = item
		}
		return parseSetting(items)
	case []any:
		if len(x) == 0 {
			return false, nil, nil, fmt.Errorf("%w: empty list", ErrInvalidSetting)
		}
		if _, nested := x[0].([]any); nested {
			return false, nil, nil, fmt.Errorf("%w: nested list", ErrInvalidSetting)
		}
		enabled, sev, _, err = parseSetting(x[0])
		if err != nil || len(x) < 2 {
			return enabled, sev, nil, err
		}
		switch o := x[1].(type) {
		case map[string]any:
			opts = Options(o)
		case Options:
			opts = o
		default:
			return false, nil, nil, fmt.Errorf("%w: options must be a mapping, got %T", ErrInvalidSetting, x[1])
		}
		return enabled, sev, opts, nil
	}
	return false, nil, nil, fmt.Errorf("%w: %v", ErrInvalidSetting, v)
}

// Validate checks a resolved configuration.
func (c *Config) Validate() error {
	return ValidateConfig(ConfigInput{
		Files:  c.Files,
		Rules:  RuleList(c.Rules...),
		Parser: c.Parser,
		Env:    c.Env,
	})
}

// ValidateConfig checks that input is fully resolved and well-formed.
func ValidateConfig(input ConfigInput) error {
	if len(input.Files) == 0 {
		return &ConfigError{Field: "files", Err: ErrMissingFiles}
	}
	if !input.Rules.IsList() {
		return &ConfigError{Field: "rules", Err: ErrUnresolvedRules}
	}
	if err := ValidateRules(input.Rules.list); err != nil {
		return err
	}
	if d := input.Parser.Database; d != "" && !d.Valid() {
		return &ConfigError{
			Field: "parser.database",
			Err: fmt.Errorf("%w: %s. Supported: %s",
				ErrUnsupportedDialect, d, strings.Join(sqlparser.DialectNames(), ", ")),
		}
	}
	return nil
}

// MergeConfig combines base and override and resolves the result.
//
// Rules: two lists are concatenated; a list beats a mapping; two mappings
// merge per rule name with override winning. Files are replaced when
// override sets them. Parser and env merge per key.
func MergeConfig(reg *Registry, base, override ConfigInput) (*Config, error) {
	merged := ConfigInput{
		Files:  base.Files,
		Parser: base.Parser,
		Env:    maps.Clone(base.Env),
	}
	if len(override.Files) > 0 {
		merged.Files = override.Files
	}
	if override.Parser.Database != "" {
		merged.Parser.Database = override.Parser.Database
	}
	if len(override.Env) > 0 {
		if merged.Env == nil {
			merged.Env = make(map[string]any, len(override.Env))
		}
		maps.Copy(merged.Env, override.Env)
	}

	switch {
	case base.Rules.IsList() && override.Rules.IsList():
		merged.Rules = RuleList(append(append([]Rule(nil), base.Rules.list...), override.Rules.list...)...)
	case override.Rules.IsList():
		merged.Rules = override.Rules
	case base.Rules.IsList():
		merged.Rules = base.Rules
	default:
		merged.Rules = RuleMap(mergeSettings(base.Rules.settings, override.Rules.settings)...)
	}

	return ResolveConfig(reg, merged)
}

// mergeSettings overlays override on base. Existing names keep their
// position; new names are appended.
func mergeSettings(base, override RuleSettings) RuleSettings {
	out := append(RuleSettings(nil), base...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Name] = i
	}
	for _, s := range override {
		if i, ok := index[s.Name]; ok {
			out[i] = s
			continue
		}
		index[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}
