package dom

// AttributeValue is a presence-aware attribute value.
//
// Attributes are tri-state on the host side: absent, present-and-empty, or
// present with content. AttributeValue captures absence without resorting to
// pointer sharing: the zero value means "absent".
type AttributeValue struct {
	// Value is the attribute text. Meaningful only when Present is true.
	Value string

	// Present reports whether the attribute exists on the element.
	Present bool
}

// SomeValue returns a present AttributeValue carrying s.
func SomeValue(s string) AttributeValue {
	return AttributeValue{Value: s, Present: true}
}

// NoValue returns the absent AttributeValue.
func NoValue() AttributeValue {
	return AttributeValue{}
}

// Or returns the attribute text, or fallback when the attribute is absent.
func (v AttributeValue) Or(fallback string) string {
	if v.Present {
		return v.Value
	}
	return fallback
}

// Equal reports whether two values agree on both presence and content.
func (v AttributeValue) Equal(o AttributeValue) bool {
	if v.Present != o.Present {
		return false
	}
	return !v.Present || v.Value == o.Value
}

// AttributeChange describes a single attribute mutation on a host element.
//
// Old and New use AttributeValue so that setting a previously absent
// attribute (Old absent) and removing one (New absent) are both expressible.
type AttributeChange struct {
	// Name is the attribute that changed.
	Name Name

	// Old is the value before the mutation.
	Old AttributeValue

	// New is the value after the mutation.
	New AttributeValue
}
