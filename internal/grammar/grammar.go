// Package grammar holds the closed action vocabulary of the household
// simulator as typed rules, and matches model actions against it.
package grammar

import (
	"regexp"
	"strings"
)

// Kind is the arity of an action rule.
type Kind int

const (
	Nullary Kind = iota // "inventory"
	Unary               // "open {recep}"
	Binary              // "take {obj} from {recep}"
)

func (k Kind) String() string {
	switch k {
	case Nullary:
		return "nullary"
	case Unary:
		return "unary"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Rule is one verb form of the action space. For Binary rules Sep is the
// literal word between the two arguments; an empty Sep means the arguments
// are separated by a single space only ("toggle {obj} {recep}").
type Rule struct {
	Kind   Kind
	Verb   string
	Sep    string
	Params []string
}

// NewNullary returns a rule matching the verb alone.
func NewNullary(verb string) Rule {
	return Rule{Kind: Nullary, Verb: verb}
}

// NewUnary returns a rule of the form "verb {param}".
func NewUnary(verb, param string) Rule {
	return Rule{Kind: Unary, Verb: verb, Params: []string{param}}
}

// NewBinary returns a rule of the form "verb {first} sep {second}".
func NewBinary(verb, first, sep, second string) Rule {
	return Rule{Kind: Binary, Verb: verb, Sep: sep, Params: []string{first, second}}
}

// String renders the rule as the template shown to the model.
func (r Rule) String() string {
	parts := []string{r.Verb}
	for i, p := range r.Params {
		if i == 1 && r.Sep != "" {
			parts = append(parts, r.Sep)
		}
		parts = append(parts, "{"+p+"}")
	}
	return strings.Join(parts, " ")
}

// pattern builds the anchored expression for the rule. Arguments are one or
// more characters other than newline.
func (r Rule) pattern() string {
	const arg = "(.+)"
	var b strings.Builder
	b.WriteString("^")
	b.WriteString(regexp.QuoteMeta(r.Verb))
	switch r.Kind {
	case Unary:
		b.WriteString(" " + arg)
	case Binary:
		b.WriteString(" " + arg + " ")
		if r.Sep != "" {
			b.WriteString(regexp.QuoteMeta(r.Sep) + " ")
		}
		b.WriteString(arg)
	}
	b.WriteString("$")
	return b.String()
}

// Action is a successfully matched action string.
type Action struct {
	Rule Rule
	Args []string
}

type compiled struct {
	rule Rule
	re   *regexp.Regexp
}

// Table is an ordered, immutable set of rules. It is safe for concurrent use.
type Table struct {
	rules []compiled
}

// NewTable compiles the given rules in order.
func NewTable(rules ...Rule) *Table {
	t := &Table{rules: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		t.rules = append(t.rules, compiled{rule: r, re: regexp.MustCompile(r.pattern())})
	}
	return t
}

// ALFWorld is the action space of the ALFWorld text environment.
var ALFWorld = NewTable(
	NewUnary("go to", "recep"),
	NewBinary("take", "obj", "from", "recep"),
	NewBinary("put", "obj", "in/on", "recep"),
	NewUnary("open", "recep"),
	NewUnary("close", "recep"),
	NewBinary("toggle", "obj", "", "recep"),
	NewBinary("clean", "obj", "with", "recep"),
	NewBinary("heat", "obj", "with", "recep"),
	NewBinary("cool", "obj", "with", "recep"),
	NewUnary("use", "obj"),
	NewNullary("inventory"),
)

// Match returns the first rule that the whole action conforms to.
func (t *Table) Match(action string) (Action, bool) {
	for _, c := range t.rules {
		m := c.re.FindStringSubmatch(action)
		if m == nil {
			continue
		}
		return Action{Rule: c.rule, Args: m[1:]}, true
	}
	return Action{}, false
}

// Validate reports whether the action matches any rule.
func (t *Table) Validate(action string) bool {
	_, ok := t.Match(action)
	return ok
}

// Rules returns a copy of the rules in table order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, c := range t.rules {
		out[i] = c.rule
	}
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}
