package loader

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// File is a SQL file read from disk.
type File struct {
	Path        string
	Content     string
	Frontmatter *Frontmatter
}

// Source returns the file as a lint input.
func (f *File) Source() lint.SourceFile {
	return lint.SourceFile{Filename: f.Path, Content: f.Content}
}

// Read reads a SQL file and its frontmatter.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)

	fm, err := ExtractFrontmatter(content)
	if err != nil {
		switch e := err.(type) {
		case *FrontmatterParseError:
			e.File = path
		case *UnknownFieldError:
			e.File = path
		}
		return nil, err
	}
	return &File{Path: path, Content: content, Frontmatter: fm.Config}, nil
}

// ReadAll reads every path in order.
func ReadAll(paths []string) ([]*File, error) {
	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := Read(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Config returns the configuration to lint f with. Files without
// frontmatter share base; others get base merged with their overrides.
func (f *File) Config(reg *lint.Registry, input lint.ConfigInput, base *lint.Config) (*lint.Config, error) {
	fm := f.Frontmatter
	if fm.IsEmpty() {
		return base, nil
	}

	override := lint.ConfigInput{
		Parser: lint.ParserOptions{Database: sqlparser.Dialect(fm.Dialect)},
		Env:    fm.Env,
	}
	if len(fm.Rules) > 0 {
		override.Rules = lint.RuleMap(fm.Rules...)
	}
	cfg, err := lint.MergeConfig(reg, input, override)
	if err != nil {
		return nil, fmt.Errorf("%s: frontmatter: %w", f.Path, err)
	}
	return cfg, nil
}
