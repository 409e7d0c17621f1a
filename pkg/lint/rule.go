package lint

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlint/pkg/ast"
	"github.com/leapstack-labs/sqlint/pkg/sqlparser"
)

// Rule is a lint rule. Create is called once per (rule, statement) pair
// with a fresh Context and returns the handlers to run.
type Rule struct {
	Name   string
	Meta   Meta
	Create func(ctx *Context) Listener
}

// Meta describes a rule for documentation and tooling.
type Meta struct {
	Description string
	Category    string
	Recommended *bool
}

// IsRecommended reports whether the rule is part of the recommended set.
func (m Meta) IsRecommended() bool {
	return m.Recommended != nil && *m.Recommended
}

// Handler handles one statement. A returned error is reported as a
// RuleError message for the rule.
type Handler func(stmt *Statement) error

// Listener holds a rule's optional handler per statement kind.
type Listener struct {
	Create Handler
	Select Handler
	Insert Handler
	Update Handler
	Delete Handler
	Alter  Handler
	Drop   Handler
	Use    Handler
}

// Handler returns the handler registered for kind, or nil.
func (l Listener) Handler(kind StatementKind) Handler {
	switch kind {
	case KindCreate:
		return l.Create
	case KindSelect:
		return l.Select
	case KindInsert:
		return l.Insert
	case KindUpdate:
		return l.Update
	case KindDelete:
		return l.Delete
	case KindAlter:
		return l.Alter
	case KindDrop:
		return l.Drop
	case KindUse:
		return l.Use
	default:
		return nil
	}
}

// StatementKind is the closed set of statement kinds rules can listen to.
type StatementKind int

// Statement kinds. KindUnknown covers every other statement type; no
// handler is ever called for it.
const (
	KindUnknown StatementKind = iota
	KindCreate
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindAlter
	KindDrop
	KindUse
)

var kindNames = [...]string{
	KindUnknown: "Unknown",
	KindCreate:  "Create",
	KindSelect:  "Select",
	KindInsert:  "Insert",
	KindUpdate:  "Update",
	KindDelete:  "Delete",
	KindAlter:   "Alter",
	KindDrop:    "Drop",
	KindUse:     "Use",
}

// String returns the Pascal-cased kind name.
func (k StatementKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("StatementKind(%d)", int(k))
	}
	return kindNames[k]
}

// StatementKinds lists the kinds that can carry a handler.
func StatementKinds() []StatementKind {
	return []StatementKind{KindCreate, KindSelect, KindInsert, KindUpdate, KindDelete, KindAlter, KindDrop, KindUse}
}

// ParseStatementKind maps a raw statement type tag to its kind by
// upper-casing the first character and matching the kind name exactly, so
// "select" is KindSelect while "SELECT" is unknown.
func ParseStatementKind(tag string) (StatementKind, bool) {
	if tag == "" {
		return KindUnknown, false
	}
	pascal := strings.ToUpper(tag[:1]) + tag[1:]
	for _, k := range StatementKinds() {
		if kindNames[k] == pascal {
			return k, true
		}
	}
	return KindUnknown, false
}

// Statement is one parsed statement as seen by rule handlers.
type Statement struct {
	Kind StatementKind
	// Type is the raw type tag reported by the parser.
	Type string
	Raw  sqlparser.Node
	// Table is the normalized tree for CREATE TABLE statements when
	// normalization is enabled and succeeded.
	Table *ast.CreateTableNode
	// Index is the zero-based position of the statement in its input.
	Index int
}

// ValidateRule checks that a rule carries the required fields.
func ValidateRule(rule Rule) error {
	var msg string
	switch {
	case rule.Name == "":
		msg = "rule must have a name"
	case rule.Meta.Description == "":
		msg = "rule must have a description"
	case rule.Meta.Category == "":
		msg = "rule must have a category"
	case rule.Create == nil:
		msg = "rule must have a create function"
	default:
		return nil
	}
	if rule.Name != "" {
		msg = fmt.Sprintf("%s: %s", rule.Name, msg)
	}
	return &ConfigError{Field: "rules", Err: fmt.Errorf("%w: %s", ErrInvalidRule, msg)}
}

// ValidateRules validates every rule and rejects duplicate names.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return err
		}
		if seen[r.Name] {
			return &ConfigError{Field: "rules", Err: fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name)}
		}
		seen[r.Name] = true
	}
	return nil
}

// RuleInfo is the serializable description of a rule.
type RuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Recommended bool   `json:"recommended"`
	DocURL      string `json:"docUrl"`
}

// Info returns the rule's description for tooling.
func (r Rule) Info() RuleInfo {
	return RuleInfo{
		Name:        r.Name,
		Description: r.Meta.Description,
		Category:    r.Meta.Category,
		Recommended: r.Meta.IsRecommended(),
		DocURL:      DocURL(r.Name),
	}
}

// Bool returns a pointer to b, for Meta.Recommended.
func Bool(b bool) *bool {
	return &b
}
