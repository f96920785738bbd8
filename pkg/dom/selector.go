package dom

import (
	"fmt"
	"strings"
)

// Selector is a compiled selector expression.
//
// Compilation validates the expression once so that repeated queries skip the
// syntax check. The host performs the actual matching; Selector only
// guarantees the expression is well-formed for the subset the bridge relies
// on: a tag name, "#id", ".class", "[attr]", "[attr=value]", or a
// space-separated descendant chain of those simple selectors.
type Selector struct {
	source string
	steps  []selectorStep
}

type selectorStep struct {
	tag     string
	id      string
	classes []string
	attrs   []selectorAttr
}

type selectorAttr struct {
	name     string
	value    string
	hasValue bool
}

// SelectorSyntaxError reports a selector expression that failed to compile.
type SelectorSyntaxError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *SelectorSyntaxError) Error() string {
	return fmt.Sprintf("dom: invalid selector %q: %s", e.Input, e.Reason)
}

// CompileSelector validates and compiles a selector expression.
func CompileSelector(s string) (Selector, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Selector{}, &SelectorSyntaxError{Input: s, Reason: "empty"}
	}
	var steps []selectorStep
	for _, part := range strings.Fields(trimmed) {
		step, err := compileSimpleSelector(s, part)
		if err != nil {
			return Selector{}, err
		}
		steps = append(steps, step)
	}
	return Selector{source: trimmed, steps: steps}, nil
}

// MustSelector is CompileSelector for trusted literals; it panics on invalid input.
func MustSelector(s string) Selector {
	sel, err := CompileSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

func compileSimpleSelector(whole, part string) (selectorStep, error) {
	var step selectorStep
	rest := part
	for rest != "" {
		switch rest[0] {
		case '#':
			token, remainder := takeSelectorToken(rest[1:])
			if token == "" {
				return step, &SelectorSyntaxError{Input: whole, Reason: "empty id"}
			}
			if step.id != "" {
				return step, &SelectorSyntaxError{Input: whole, Reason: "multiple ids in one step"}
			}
			step.id = token
			rest = remainder
		case '.':
			token, remainder := takeSelectorToken(rest[1:])
			if token == "" {
				return step, &SelectorSyntaxError{Input: whole, Reason: "empty class"}
			}
			step.classes = append(step.classes, token)
			rest = remainder
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return step, &SelectorSyntaxError{Input: whole, Reason: "unterminated attribute selector"}
			}
			inner := rest[1:end]
			attr, err := compileAttrSelector(whole, inner)
			if err != nil {
				return step, err
			}
			step.attrs = append(step.attrs, attr)
			rest = rest[end+1:]
		default:
			token, remainder := takeSelectorToken(rest)
			if token == "" {
				return step, &SelectorSyntaxError{Input: whole, Reason: fmt.Sprintf("unexpected character %q", rest[0])}
			}
			if step.tag != "" {
				return step, &SelectorSyntaxError{Input: whole, Reason: "multiple tags in one step"}
			}
			step.tag = strings.ToLower(token)
			rest = remainder
		}
	}
	return step, nil
}

func compileAttrSelector(whole, inner string) (selectorAttr, error) {
	if inner == "" {
		return selectorAttr{}, &SelectorSyntaxError{Input: whole, Reason: "empty attribute selector"}
	}
	eq := strings.IndexByte(inner, '=')
	if eq < 0 {
		name, err := ParseName(inner)
		if err != nil {
			return selectorAttr{}, &SelectorSyntaxError{Input: whole, Reason: "bad attribute name"}
		}
		return selectorAttr{name: name.String()}, nil
	}
	name, err := ParseName(inner[:eq])
	if err != nil {
		return selectorAttr{}, &SelectorSyntaxError{Input: whole, Reason: "bad attribute name"}
	}
	value := strings.Trim(inner[eq+1:], `"'`)
	return selectorAttr{name: name.String(), value: value, hasValue: true}, nil
}

// takeSelectorToken splits a leading identifier token off s.
func takeSelectorToken(s string) (token, rest string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		isIdent := c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isIdent {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// String returns the source expression.
func (s Selector) String() string {
	return s.source
}

// IsZero reports whether s is the uncompiled zero Selector.
func (s Selector) IsZero() bool {
	return s.source == ""
}

// MatchStep is one simple selector in the descendant chain, exposed so host
// implementations can evaluate matches without re-parsing the source.
type MatchStep struct {
	// Tag is the required lowercased tag name, or "" for any.
	Tag string

	// ID is the required id attribute, or "" for any.
	ID string

	// Classes are class labels that must all be present.
	Classes []string

	// Attrs are attribute constraints that must all hold.
	Attrs []MatchAttr
}

// MatchAttr is a single attribute constraint of a MatchStep.
type MatchAttr struct {
	// Name is the attribute name.
	Name string

	// Value is the required value when HasValue is true; otherwise mere
	// presence satisfies the constraint.
	Value    string
	HasValue bool
}

// Matches reports whether an element with the given tag and attributes
// satisfies this step. Class constraints match against the whitespace-split
// "class" attribute; a nil attribute map matches only constraint-free steps.
func (st MatchStep) Matches(tag string, attrs map[string]string) bool {
	if st.Tag != "" && st.Tag != strings.ToLower(tag) {
		return false
	}
	if st.ID != "" && attrs["id"] != st.ID {
		return false
	}
	if len(st.Classes) > 0 {
		have := strings.Fields(attrs["class"])
		for _, want := range st.Classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, a := range st.Attrs {
		v, ok := attrs[a.Name]
		if !ok {
			return false
		}
		if a.HasValue && v != a.Value {
			return false
		}
	}
	return true
}

// Steps returns the compiled descendant chain, outermost first.
func (s Selector) Steps() []MatchStep {
	out := make([]MatchStep, len(s.steps))
	for i, st := range s.steps {
		attrs := make([]MatchAttr, len(st.attrs))
		for j, a := range st.attrs {
			attrs[j] = MatchAttr{Name: a.name, Value: a.value, HasValue: a.hasValue}
		}
		out[i] = MatchStep{
			Tag:     st.tag,
			ID:      st.id,
			Classes: append([]string(nil), st.classes...),
			Attrs:   attrs,
		}
	}
	return out
}
