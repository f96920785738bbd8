package protocol

import "errors"

// ErrInvalidControl is returned for an unknown control byte.
var ErrInvalidControl = errors.New("protocol: invalid control message")

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing ControlType = 0x01 // Bridge keepalive probe
	ControlPong ControlType = 0x02 // Engine keepalive answer
	ControlBye  ControlType = 0x03 // Graceful shutdown, either direction
)

// String returns the control type name.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlBye:
		return "Bye"
	default:
		return "Unknown"
	}
}

// Control is a connection-level message. Seq is echoed by Pong; Reason is
// carried by Bye.
type Control struct {
	Type   ControlType
	Seq    uint64
	Reason string // Bye only
}

// NewPing creates a Ping with the given sequence.
func NewPing(seq uint64) *Control {
	return &Control{Type: ControlPing, Seq: seq}
}

// NewPong creates a Pong answering the given sequence.
func NewPong(seq uint64) *Control {
	return &Control{Type: ControlPong, Seq: seq}
}

// NewBye creates a Bye with a reason.
func NewBye(reason string) *Control {
	return &Control{Type: ControlBye, Reason: reason}
}

// EncodeControl encodes a Control to bytes.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	EncodeControlTo(e, c)
	return e.Bytes()
}

// EncodeControlTo encodes a Control using the provided encoder.
func EncodeControlTo(e *Encoder, c *Control) {
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUvarint(c.Seq)
	case ControlBye:
		e.WriteString(c.Reason)
	}
}

// DecodeControl decodes a Control from bytes.
func DecodeControl(data []byte) (*Control, error) {
	return DecodeControlFrom(NewDecoder(data))
}

// DecodeControlFrom decodes a Control from a decoder.
func DecodeControlFrom(d *Decoder) (*Control, error) {
	ct, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(ct)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Seq, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	case ControlBye:
		if c.Reason, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidControl
	}
	return c, nil
}
