package dom

import (
	"fmt"
	"strings"
)

// Name is a validated attribute or element-kind name.
//
// The zero value is invalid. Construct names with ParseName or MustName;
// values produced by those functions are safe to pass to the host without
// further checking.
type Name struct {
	value string
}

// InvalidNameError reports a name that failed validation.
type InvalidNameError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("dom: invalid name %q: %s", e.Input, e.Reason)
}

// ParseName validates s and returns it as a Name.
//
// Valid names are non-empty, start with an ASCII letter, and contain only
// ASCII letters, digits, '-', '_', and '.'. Uppercase letters are folded to
// lowercase so that names compare consistently regardless of how the host
// reports them.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, &InvalidNameError{Input: s, Reason: "empty"}
	}
	lower := strings.ToLower(s)
	c := lower[0]
	if c < 'a' || c > 'z' {
		return Name{}, &InvalidNameError{Input: s, Reason: "must start with a letter"}
	}
	for i := 1; i < len(lower); i++ {
		c := lower[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return Name{}, &InvalidNameError{Input: s, Reason: fmt.Sprintf("invalid character %q at index %d", c, i)}
		}
	}
	return Name{value: lower}, nil
}

// ParseKindName validates s as a custom element kind name.
//
// Kind names follow the same rules as attribute names and must additionally
// contain at least one hyphen, which is what distinguishes custom kinds from
// the host's built-in element vocabulary.
func ParseKindName(s string) (Name, error) {
	n, err := ParseName(s)
	if err != nil {
		return Name{}, err
	}
	if !strings.Contains(n.value, "-") {
		return Name{}, &InvalidNameError{Input: s, Reason: "custom element kinds must contain a hyphen"}
	}
	return n, nil
}

// MustName is ParseName for trusted literals; it panics on invalid input.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// MustKindName is ParseKindName for trusted literals; it panics on invalid input.
func MustKindName(s string) Name {
	n, err := ParseKindName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// TrustedName wraps a string that is known to be valid without re-validating.
// Reserved for decode paths that receive names the bridge itself produced.
func TrustedName(s string) Name {
	return Name{value: s}
}

// IsZero reports whether n is the invalid zero Name.
func (n Name) IsZero() bool {
	return n.value == ""
}

// String returns the validated name.
func (n Name) String() string {
	return n.value
}
