package dom

import (
	"strings"
)

var classAttr = TrustedName("class")

// Class is a live view of an element's class attribute. Every method reads
// the attribute fresh from the host and writes it back whole, so the view
// stays correct across reentrant attribute changes made by callbacks.
type Class struct {
	host Host
	ref  NodeRef
}

// List returns the current class tokens in document order.
func (c Class) List() ([]string, error) {
	v, err := c.host.Attribute(c.ref, classAttr)
	if err != nil {
		return nil, err
	}
	if !v.Present {
		return nil, nil
	}
	return strings.Fields(v.Value), nil
}

// Contains reports whether token is present.
func (c Class) Contains(token string) (bool, error) {
	list, err := c.List()
	if err != nil {
		return false, err
	}
	for _, t := range list {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

// Insert adds token if absent. Reports whether the list changed.
func (c Class) Insert(token string) (bool, error) {
	list, err := c.List()
	if err != nil {
		return false, err
	}
	for _, t := range list {
		if t == token {
			return false, nil
		}
	}
	list = append(list, token)
	return true, c.write(list)
}

// Remove deletes token if present. Reports whether the list changed.
func (c Class) Remove(token string) (bool, error) {
	list, err := c.List()
	if err != nil {
		return false, err
	}
	kept := list[:0]
	for _, t := range list {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(list) {
		return false, nil
	}
	return true, c.write(kept)
}

// Toggle inserts token when absent and removes it when present. Reports
// whether the token is present afterwards.
func (c Class) Toggle(token string) (bool, error) {
	present, err := c.Contains(token)
	if err != nil {
		return false, err
	}
	if present {
		_, err = c.Remove(token)
		return false, err
	}
	_, err = c.Insert(token)
	return true, err
}

func (c Class) write(tokens []string) error {
	if len(tokens) == 0 {
		return c.host.RemoveAttribute(c.ref, classAttr)
	}
	return c.host.SetAttribute(c.ref, classAttr, strings.Join(tokens, " "))
}
