package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/lint/rules"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix is the prefix of environment overrides. SQLINT_MAX_WARNINGS
// sets max_warnings; a double underscore descends, so
// SQLINT_PARSER__DATABASE sets parser.database.
const envPrefix = "SQLINT_"

// flagKeys maps command-line flags to config keys. Flags not listed are
// command-local and never reach the config.
var flagKeys = map[string]string{
	"format":       "output",
	"output":       "output",
	"dialect":      "parser.database",
	"max-warnings": "max_warnings",
	"history":      "history",
	"verbose":      "verbose",
	"addr":         "serve.addr",
}

// LoadOptions controls Load.
type LoadOptions struct {
	// File is an explicit config file. When empty the file is searched
	// for upward from Dir.
	File string
	// Dir is where the search starts; defaults to the working directory.
	Dir string
	// Flags are overlaid last. Only flags that were set are applied.
	Flags *pflag.FlagSet
}

// Load reads configuration from all sources.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(opts LoadOptions) (*FileConfig, error) {
	k := koanf.New(".")

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"files":        []string{DefaultFiles},
		"parser":       map[string]any{"database": string(lint.DefaultConfigInput().Parser.Database)},
		"output":       DefaultOutput,
		"max_warnings": DefaultMaxWarnings,
		"history":      "",
		"verbose":      false,
		"serve":        map[string]any{"addr": DefaultServeAddr, "timeout": "30s"},
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := opts.File
	if path == "" {
		path = FindConfigFile(dir)
	}
	var (
		ruleSettings lint.RuleSettings
		rulesSet     bool
	)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		var err error
		ruleSettings, rulesSet, err = readRuleSettings(path)
		if err != nil {
			return nil, fmt.Errorf("error reading rules from %s: %w", path, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg FileConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Path = path
	cfg.Root = dir
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			cfg.Root = filepath.Dir(abs)
		}
	}

	if rulesSet {
		cfg.Rules = ruleSettings
	} else {
		cfg.Rules = RecommendedSettings()
	}

	if opts.Flags != nil {
		if f := opts.Flags.Lookup("rule"); f != nil && f.Changed {
			values, err := opts.Flags.GetStringArray("rule")
			if err != nil {
				return nil, fmt.Errorf("failed to read --rule: %w", err)
			}
			var overrides lint.RuleSettings
			for _, v := range values {
				s, err := ParseRuleFlag(v)
				if err != nil {
					return nil, err
				}
				overrides = append(overrides, s)
			}
			cfg.Rules = OverlayRules(cfg.Rules, overrides)
		}
	}

	return &cfg, nil
}

// RecommendedSettings enables the recommended rules at their own
// severities. It is used when no rules section is configured.
func RecommendedSettings() lint.RuleSettings {
	var out lint.RuleSettings
	for _, r := range rules.RecommendedRules() {
		out = append(out, lint.RuleSetting{Name: r.Name, Value: "on"})
	}
	return out
}

// FindConfigFile searches upward from startDir for sqlint.yaml or
// sqlint.yml. It returns "" when none is found within
// maxUpwardSearchLevels.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
