package setupkit

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/Knetic/govaluate.v3"
)

// Condition is a compiled task gating expression such as
// "desktopicon and not startupicon". A nil Condition always holds.
type Condition struct {
	source string
	names  []string
	expr   *govaluate.EvaluableExpression
}

// CompileCondition parses a gating expression. Operands are task names,
// operators are "and", "or", "not" and parentheses. Every referenced name
// must be in known; a nil known map accepts any name.
func CompileCondition(source string, known map[string]bool) (*Condition, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}

	translated, names, err := translateCondition(source)
	if err != nil {
		return nil, fmt.Errorf("tasks %q: %w", source, err)
	}
	if known != nil {
		for _, n := range names {
			if !known[n] {
				return nil, fmt.Errorf("tasks %q: unknown task %q", source, n)
			}
		}
	}

	expr, err := govaluate.NewEvaluableExpression(translated)
	if err != nil {
		return nil, fmt.Errorf("tasks %q: %w", source, err)
	}
	return &Condition{source: source, names: names, expr: expr}, nil
}

// String returns the expression as written in the installer script.
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Names returns the task names the expression references, in order of
// first appearance.
func (c *Condition) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Eval evaluates the expression against a selection. Names missing from
// selected count as unselected.
func (c *Condition) Eval(selected map[string]bool) (bool, error) {
	if c == nil {
		return true, nil
	}
	params := make(map[string]interface{}, len(c.names))
	for _, n := range c.names {
		params[n] = selected[n]
	}
	out, err := c.expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.source, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: non-boolean result %v", c.source, out)
	}
	return b, nil
}

// translateCondition rewrites the word operators into govaluate syntax and
// collects the operand names.
func translateCondition(s string) (string, []string, error) {
	var (
		out   strings.Builder
		names []string
		seen  = map[string]bool{}
	)
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			out.WriteRune(r)
			out.WriteByte(' ')
			i++
		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			switch strings.ToLower(word) {
			case "and":
				out.WriteString("&& ")
			case "or":
				out.WriteString("|| ")
			case "not":
				out.WriteString("! ")
			default:
				if !seen[word] {
					seen[word] = true
					names = append(names, word)
				}
				out.WriteString(word)
				out.WriteByte(' ')
			}
			i = j
		default:
			return "", nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	if len(names) == 0 {
		return "", nil, fmt.Errorf("no task referenced")
	}
	return strings.TrimSpace(out.String()), names, nil
}

// ValidTaskName reports whether name can be used as a task identifier.
func ValidTaskName(name string) bool {
	if name == "" {
		return false
	}
	switch strings.ToLower(name) {
	case "and", "or", "not", "true", "false":
		return false
	}
	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

func isIdentStart(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
