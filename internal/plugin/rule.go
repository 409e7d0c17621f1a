package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/lint"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

const (
	// DefaultMaxSteps bounds the work of one handler invocation.
	DefaultMaxSteps uint64 = 1_000_000

	// DefaultCategory is used when rule() is called without a category.
	DefaultCategory = "plugin"
)

// handlerKeywords maps the keyword arguments of rule() to statement kinds.
var handlerKeywords = map[string]lint.StatementKind{
	"create": lint.KindCreate,
	"select": lint.KindSelect,
	"insert": lint.KindInsert,
	"update": lint.KindUpdate,
	"delete": lint.KindDelete,
	"alter":  lint.KindAlter,
	"drop":   lint.KindDrop,
	"use":    lint.KindUse,
}

// ruleSpec is what one rule() call declares.
type ruleSpec struct {
	name        string
	description string
	category    string
	recommended bool
	handlers    map[lint.StatementKind]starlark.Callable
	file        string
}

// ruleBuiltin returns the rule() builtin. Each call appends to *specs.
func ruleBuiltin(file string, specs *[]*ruleSpec) *starlark.Builtin {
	return starlark.NewBuiltin("rule", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		spec := &ruleSpec{file: file, category: DefaultCategory, handlers: make(map[lint.StatementKind]starlark.Callable)}
		var create, sel, insert, update, del, alter, drop, useStmt starlark.Value
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"name", &spec.name,
			"description", &spec.description,
			"category?", &spec.category,
			"recommended?", &spec.recommended,
			"create?", &create,
			"select?", &sel,
			"insert?", &insert,
			"update?", &update,
			"delete?", &del,
			"alter?", &alter,
			"drop?", &drop,
			"use?", &useStmt,
		); err != nil {
			return nil, err
		}
		values := map[string]starlark.Value{
			"create": create, "select": sel, "insert": insert, "update": update,
			"delete": del, "alter": alter, "drop": drop, "use": useStmt,
		}
		for kw, v := range values {
			if v == nil || v == starlark.None {
				continue
			}
			callable, ok := v.(starlark.Callable)
			if !ok {
				return nil, fmt.Errorf("%s: %s handler must be callable, got %s", fn.Name(), kw, v.Type())
			}
			spec.handlers[handlerKeywords[kw]] = callable
		}
		if len(spec.handlers) == 0 {
			return nil, fmt.Errorf("%s: rule %q declares no handlers", fn.Name(), spec.name)
		}

		*specs = append(*specs, spec)
		return starlark.None, nil
	})
}

// toRule turns a declared spec into a lint.Rule.
func (s *ruleSpec) toRule(logger *slog.Logger, maxSteps uint64) lint.Rule {
	var rec *bool
	if s.recommended {
		rec = lint.Bool(true)
	}
	return lint.Rule{
		Name: s.name,
		Meta: lint.Meta{
			Description: s.description,
			Category:    s.category,
			Recommended: rec,
		},
		Create: func(ctx *lint.Context) lint.Listener {
			var l lint.Listener
			for kind, fn := range s.handlers {
				h := s.handler(ctx, fn, logger, maxSteps)
				switch kind {
				case lint.KindCreate:
					l.Create = h
				case lint.KindSelect:
					l.Select = h
				case lint.KindInsert:
					l.Insert = h
				case lint.KindUpdate:
					l.Update = h
				case lint.KindDelete:
					l.Delete = h
				case lint.KindAlter:
					l.Alter = h
				case lint.KindDrop:
					l.Drop = h
				case lint.KindUse:
					l.Use = h
				}
			}
			return l
		},
	}
}

// handler runs fn on a fresh thread with a step budget. Starlark globals
// are frozen after loading, so concurrent lint runs may share fn.
func (s *ruleSpec) handler(ctx *lint.Context, fn starlark.Callable, logger *slog.Logger, maxSteps uint64) lint.Handler {
	return func(stmt *lint.Statement) error {
		node, err := statementToStarlark(stmt)
		if err != nil {
			return fmt.Errorf("convert statement: %w", err)
		}
		sctx, err := contextToStarlark(ctx, stmt)
		if err != nil {
			return err
		}

		thread := &starlark.Thread{
			Name: fmt.Sprintf("rule:%s", s.name),
			Print: func(_ *starlark.Thread, msg string) {
				logger.Debug("plugin print", "rule", s.name, "file", ctx.Filename(), "msg", msg)
			},
		}
		if maxSteps > 0 {
			thread.SetMaxExecutionSteps(maxSteps)
		}

		if _, err := starlark.Call(thread, fn, starlark.Tuple{sctx, node}, nil); err != nil {
			var evalErr *starlark.EvalError
			if errors.As(err, &evalErr) {
				logger.Debug("plugin backtrace", "rule", s.name, "backtrace", evalErr.Backtrace())
			}
			return err
		}
		return nil
	}
}

// statementToStarlark builds the node argument: a struct with the raw
// tree under raw, the normalized table under table and the kind metadata.
func statementToStarlark(stmt *lint.Statement) (starlark.Value, error) {
	raw, err := GoToStarlark(stmt.Raw)
	if err != nil {
		return nil, err
	}
	return starlarkstruct.FromStringDict(starlark.String("node"), starlark.StringDict{
		"type":  starlark.String(stmt.Type),
		"kind":  starlark.String(strings.ToLower(stmt.Kind.String())),
		"index": starlark.MakeInt(stmt.Index),
		"raw":   raw,
		"table": tableToStarlark(stmt.Table),
	}), nil
}

// contextToStarlark builds the ctx argument around a lint.Context.
func contextToStarlark(ctx *lint.Context, stmt *lint.Statement) (starlark.Value, error) {
	env, err := GoToStarlark(ctx.Env())
	if err != nil {
		return nil, fmt.Errorf("convert env: %w", err)
	}
	opts, err := GoToStarlark(map[string]any(ctx.Options()))
	if err != nil {
		return nil, fmt.Errorf("convert options: %w", err)
	}

	report := starlark.NewBuiltin("report", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			message  string
			severity = "warning"
			data     *starlark.Dict
		)
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"message", &message,
			"severity?", &severity,
			"data?", &data,
		); err != nil {
			return nil, err
		}
		sev, ok := lint.ParseSeverity(severity)
		if !ok {
			return nil, fmt.Errorf("%s: invalid severity %q (want error, warning or info)", fn.Name(), severity)
		}

		var fields map[string]string
		if data != nil {
			fields = make(map[string]string, data.Len())
			for _, item := range data.Items() {
				k, ok := starlark.AsString(item[0])
				if !ok {
					return nil, fmt.Errorf("%s: data keys must be strings, got %s", fn.Name(), item[0].Type())
				}
				if s, ok := starlark.AsString(item[1]); ok {
					fields[k] = s
				} else {
					fields[k] = item[1].String()
				}
			}
		}

		ctx.Report(lint.Descriptor{Node: stmt, Message: message, Severity: sev, Data: fields})
		return starlark.None, nil
	})

	return starlarkstruct.FromStringDict(starlark.String("ctx"), starlark.StringDict{
		"rule":     starlark.String(ctx.RuleName()),
		"filename": starlark.String(ctx.Filename()),
		"env":      env,
		"options":  opts,
		"report":   report,
	}), nil
}
