package remote

import (
	"fmt"

	"github.com/sill-dev/sill/pkg/dom"
	"github.com/sill-dev/sill/pkg/protocol"
)

// remoteHost implements dom.Host against the engine connection. Every
// method is one request/reply op; callers block until the engine answers
// or the call times out.
type remoteHost struct {
	sess *session
}

var _ dom.Host = (*remoteHost)(nil)

func (h *remoteHost) exec(op *protocol.Op) (*protocol.Result, error) {
	res, err := h.sess.call(op)
	if err != nil {
		if err == errSessionClosed {
			return nil, dom.ErrHostClosed
		}
		return nil, err
	}
	if !res.OK {
		return nil, faultToErr(res.Fault, res.Message)
	}
	return res, nil
}

// faultToErr maps engine fault codes onto the host error vocabulary so
// callers can branch with errors.Is regardless of transport.
func faultToErr(code protocol.FaultCode, message string) error {
	switch code {
	case protocol.FaultNodeGone:
		return dom.ErrNodeGone
	case protocol.FaultFragmentGone:
		return dom.ErrFragmentGone
	case protocol.FaultShadowExists:
		return dom.ErrShadowAlreadyAttached
	case protocol.FaultNoMatch:
		return dom.ErrNoMatch
	default:
		if message == "" {
			message = code.String()
		}
		return fmt.Errorf("remote: engine fault %s: %s", code, message)
	}
}

func (h *remoteHost) CreateTemplate(markup string) (dom.FragmentRef, error) {
	if err := h.sess.cfg.limits.CheckMarkup(markup); err != nil {
		return dom.FragmentRef{}, err
	}
	res, err := h.exec(&protocol.Op{Type: protocol.OpCreateTemplate, Markup: markup})
	if err != nil {
		return dom.FragmentRef{}, err
	}
	id, err := protocol.DecodeHandlePayload(res.Payload)
	if err != nil {
		return dom.FragmentRef{}, err
	}
	return dom.FragmentRefFromID(id), nil
}

func (h *remoteHost) CloneFragment(f dom.FragmentRef) (dom.FragmentRef, error) {
	res, err := h.exec(&protocol.Op{Type: protocol.OpCloneFragment, Fragment: f.ID()})
	if err != nil {
		return dom.FragmentRef{}, err
	}
	id, err := protocol.DecodeHandlePayload(res.Payload)
	if err != nil {
		return dom.FragmentRef{}, err
	}
	return dom.FragmentRefFromID(id), nil
}

func (h *remoteHost) AttachShadow(el dom.NodeRef, opts dom.ShadowRootOptions) (dom.NodeRef, error) {
	mode := protocol.ModeOpen
	if opts.Mode == dom.ShadowClosed {
		mode = protocol.ModeClosed
	}
	res, err := h.exec(&protocol.Op{Type: protocol.OpAttachShadow, Node: el.ID(), Mode: mode})
	if err != nil {
		return dom.NodeRef{}, err
	}
	id, err := protocol.DecodeHandlePayload(res.Payload)
	if err != nil {
		return dom.NodeRef{}, err
	}
	return dom.NodeRefFromID(id), nil
}

func (h *remoteHost) AppendFragment(parent dom.NodeRef, f dom.FragmentRef) error {
	_, err := h.exec(&protocol.Op{Type: protocol.OpAppendFragment, Node: parent.ID(), Fragment: f.ID()})
	return err
}

func (h *remoteHost) Attribute(el dom.NodeRef, name dom.Name) (dom.AttributeValue, error) {
	res, err := h.exec(&protocol.Op{Type: protocol.OpGetAttr, Node: el.ID(), Name: name.String()})
	if err != nil {
		return dom.AttributeValue{}, err
	}
	v, err := protocol.DecodeAttrPayload(res.Payload)
	if err != nil {
		return dom.AttributeValue{}, err
	}
	return attrValue(v), nil
}

func (h *remoteHost) SetAttribute(el dom.NodeRef, name dom.Name, value string) error {
	_, err := h.exec(&protocol.Op{Type: protocol.OpSetAttr, Node: el.ID(), Name: name.String(), Value: value})
	return err
}

func (h *remoteHost) RemoveAttribute(el dom.NodeRef, name dom.Name) error {
	_, err := h.exec(&protocol.Op{Type: protocol.OpRemoveAttr, Node: el.ID(), Name: name.String()})
	return err
}

func (h *remoteHost) SetInnerMarkup(el dom.NodeRef, markup string) error {
	if err := h.sess.cfg.limits.CheckMarkup(markup); err != nil {
		return err
	}
	_, err := h.exec(&protocol.Op{Type: protocol.OpSetMarkup, Node: el.ID(), Markup: markup})
	return err
}

func (h *remoteHost) QuerySelector(root dom.NodeRef, sel dom.Selector) (dom.NodeRef, error) {
	res, err := h.exec(&protocol.Op{Type: protocol.OpQuery, Node: root.ID(), Selector: sel.String()})
	if err != nil {
		return dom.NodeRef{}, err
	}
	id, err := protocol.DecodeHandlePayload(res.Payload)
	if err != nil {
		return dom.NodeRef{}, err
	}
	return dom.NodeRefFromID(id), nil
}

func (h *remoteHost) BoundingClientRect(el dom.NodeRef) (dom.Rect, error) {
	res, err := h.exec(&protocol.Op{Type: protocol.OpRect, Node: el.ID()})
	if err != nil {
		return dom.Rect{}, err
	}
	x, y, w, hh, err := protocol.DecodeRectPayload(res.Payload)
	if err != nil {
		return dom.Rect{}, err
	}
	return dom.Rect{X: x, Y: y, Width: w, Height: hh}, nil
}
