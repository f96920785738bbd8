package hosttest

import (
	"fmt"

	"github.com/sill-dev/sill/pkg/custom"
	"github.com/sill-dev/sill/pkg/dom"
)

// Driver replays host-side lifecycle operations against a dispatcher the way
// a real engine would: every operation mutates the tree first, then delivers
// the notification synchronously on the calling goroutine. Attribute writes
// issued through the tree, including writes made by lifecycle callbacks,
// reenter the dispatcher before the write returns.
type Driver struct {
	tree *Tree
	disp *custom.Dispatcher
	doc  dom.DocumentRef
}

// NewDriver wires a tree to a dispatcher and creates the default document.
func NewDriver(tree *Tree, disp *custom.Dispatcher) *Driver {
	dr := &Driver{
		tree: tree,
		disp: disp,
		doc:  tree.NewDocument(),
	}
	tree.OnAttributeChanged(func(ref dom.NodeRef, name dom.Name, old, new dom.AttributeValue) {
		disp.HandleAttributeChanged(ref, name, old, new)
	})
	return dr
}

// Tree returns the underlying tree.
func (dr *Driver) Tree() *Tree {
	return dr.tree
}

// Dispatcher returns the dispatcher under test.
func (dr *Driver) Dispatcher() *custom.Dispatcher {
	return dr.disp
}

// Document returns the default document.
func (dr *Driver) Document() dom.DocumentRef {
	return dr.doc
}

// NewDocument creates an additional document for adoption scenarios.
func (dr *Driver) NewDocument() dom.DocumentRef {
	return dr.tree.NewDocument()
}

// CreateElement creates an element of the given kind and delivers its
// construction notification. The element starts detached.
func (dr *Driver) CreateElement(kind dom.Name) dom.NodeRef {
	ref := dr.tree.CreateElement(kind.String())
	dr.disp.HandleConstructed(ref, kind)
	return ref
}

// Connect appends the element under the default document root and delivers
// the connection notification.
func (dr *Driver) Connect(ref dom.NodeRef) error {
	return dr.ConnectUnder(ref, dr.tree.DocumentRoot(dr.doc))
}

// ConnectUnder appends the element under an arbitrary connected parent and
// delivers the connection notification.
func (dr *Driver) ConnectUnder(ref, parent dom.NodeRef) error {
	if err := dr.tree.Append(parent, ref); err != nil {
		return err
	}
	if !dr.tree.Connected(ref) {
		return fmt.Errorf("hosttest: parent %s is not connected", parent.String())
	}
	dr.disp.HandleConnected(ref)
	return nil
}

// Disconnect detaches the element and delivers the disconnection
// notification.
func (dr *Driver) Disconnect(ref dom.NodeRef) error {
	if err := dr.tree.Detach(ref); err != nil {
		return err
	}
	dr.disp.HandleDisconnected(ref)
	return nil
}

// Adopt moves the element into another document. When connect is true the
// element is appended under the new document's root; otherwise it is left
// detached. The adoption notification carries the resulting attachment
// state.
func (dr *Driver) Adopt(ref dom.NodeRef, newDoc dom.DocumentRef, connect bool) error {
	if err := dr.tree.Detach(ref); err != nil {
		return err
	}
	if connect {
		if err := dr.tree.Append(dr.tree.DocumentRoot(newDoc), ref); err != nil {
			return err
		}
	}
	dr.disp.HandleAdopted(ref, newDoc, connect)
	return nil
}

// SetAttribute writes an attribute through the tree. The notification is
// delivered by the tree's mutation hook, exactly as for writes made from
// inside callbacks.
func (dr *Driver) SetAttribute(ref dom.NodeRef, name dom.Name, value string) error {
	return dr.tree.SetAttribute(ref, name, value)
}

// RemoveAttribute removes an attribute through the tree.
func (dr *Driver) RemoveAttribute(ref dom.NodeRef, name dom.Name) error {
	return dr.tree.RemoveAttribute(ref, name)
}

// Destroy removes the element from the tree and delivers the destruction
// notification.
func (dr *Driver) Destroy(ref dom.NodeRef) error {
	if err := dr.tree.Destroy(ref); err != nil {
		return err
	}
	dr.disp.HandleDestroyed(ref)
	return nil
}
