package protocol

import "errors"

// ErrInvalidLifecycle is returned for an unknown lifecycle event byte.
var ErrInvalidLifecycle = errors.New("protocol: invalid lifecycle event")

// LifecycleEvent identifies a lifecycle transition reported by the engine.
type LifecycleEvent uint8

const (
	LifecycleConstructed  LifecycleEvent = 0x01
	LifecycleConnected    LifecycleEvent = 0x02
	LifecycleDisconnected LifecycleEvent = 0x03
	LifecycleAdopted      LifecycleEvent = 0x04
	LifecycleDestroyed    LifecycleEvent = 0x05
)

// String returns the event name.
func (ev LifecycleEvent) String() string {
	switch ev {
	case LifecycleConstructed:
		return "Constructed"
	case LifecycleConnected:
		return "Connected"
	case LifecycleDisconnected:
		return "Disconnected"
	case LifecycleAdopted:
		return "Adopted"
	case LifecycleDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

func (ev LifecycleEvent) valid() bool {
	return ev >= LifecycleConstructed && ev <= LifecycleDestroyed
}

// Lifecycle is an engine-side lifecycle notification. Node identifies the
// element handle. Kind is set for Constructed; Doc and Connected are set
// for Adopted.
type Lifecycle struct {
	Event     LifecycleEvent
	Node      uint64
	Kind      string // Constructed only
	Doc       uint64 // Adopted only
	Connected bool   // Adopted only: attachment state after the move
}

// EncodeLifecycle encodes a Lifecycle to bytes.
func EncodeLifecycle(lc *Lifecycle) []byte {
	e := NewEncoder()
	EncodeLifecycleTo(e, lc)
	return e.Bytes()
}

// EncodeLifecycleTo encodes a Lifecycle using the provided encoder.
func EncodeLifecycleTo(e *Encoder, lc *Lifecycle) {
	e.WriteByte(byte(lc.Event))
	e.WriteUvarint(lc.Node)
	switch lc.Event {
	case LifecycleConstructed:
		e.WriteString(lc.Kind)
	case LifecycleAdopted:
		e.WriteUvarint(lc.Doc)
		e.WriteBool(lc.Connected)
	}
}

// DecodeLifecycle decodes a Lifecycle from bytes.
func DecodeLifecycle(data []byte) (*Lifecycle, error) {
	return DecodeLifecycleFrom(NewDecoder(data))
}

// DecodeLifecycleFrom decodes a Lifecycle from a decoder.
func DecodeLifecycleFrom(d *Decoder) (*Lifecycle, error) {
	ev, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	lc := &Lifecycle{Event: LifecycleEvent(ev)}
	if !lc.Event.valid() {
		return nil, ErrInvalidLifecycle
	}
	if lc.Node, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	switch lc.Event {
	case LifecycleConstructed:
		if lc.Kind, err = d.ReadString(); err != nil {
			return nil, err
		}
	case LifecycleAdopted:
		if lc.Doc, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if lc.Connected, err = d.ReadBool(); err != nil {
			return nil, err
		}
	}
	return lc, nil
}

// AttributeChange is an engine-side attribute mutation report. Old and New
// distinguish absent from empty values.
type AttributeChange struct {
	Node uint64
	Name string
	Old  AttrValue
	New  AttrValue
}

// EncodeAttributeChange encodes an AttributeChange to bytes.
func EncodeAttributeChange(ac *AttributeChange) []byte {
	e := NewEncoder()
	EncodeAttributeChangeTo(e, ac)
	return e.Bytes()
}

// EncodeAttributeChangeTo encodes an AttributeChange using the provided
// encoder.
func EncodeAttributeChangeTo(e *Encoder, ac *AttributeChange) {
	e.WriteUvarint(ac.Node)
	e.WriteString(ac.Name)
	ac.Old.EncodeTo(e)
	ac.New.EncodeTo(e)
}

// DecodeAttributeChange decodes an AttributeChange from bytes.
func DecodeAttributeChange(data []byte) (*AttributeChange, error) {
	return DecodeAttributeChangeFrom(NewDecoder(data))
}

// DecodeAttributeChangeFrom decodes an AttributeChange from a decoder.
func DecodeAttributeChangeFrom(d *Decoder) (*AttributeChange, error) {
	ac := &AttributeChange{}
	var err error
	if ac.Node, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ac.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ac.Old, err = DecodeAttrValueFrom(d); err != nil {
		return nil, err
	}
	if ac.New, err = DecodeAttrValueFrom(d); err != nil {
		return nil, err
	}
	return ac, nil
}
