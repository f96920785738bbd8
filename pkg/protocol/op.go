package protocol

import "errors"

// ErrInvalidOp is returned for an unknown operation byte.
var ErrInvalidOp = errors.New("protocol: invalid host operation")

// OpType identifies a host operation the bridge asks the engine to perform.
type OpType uint8

const (
	OpCreateTemplate OpType = 0x01 // Markup → fragment handle
	OpCloneFragment  OpType = 0x02 // Fragment → fragment handle
	OpAttachShadow   OpType = 0x03 // Node, Mode → shadow root handle
	OpAppendFragment OpType = 0x04 // Node, Fragment
	OpGetAttr        OpType = 0x05 // Node, Name → attribute value
	OpSetAttr        OpType = 0x06 // Node, Name, Value
	OpRemoveAttr     OpType = 0x07 // Node, Name
	OpSetMarkup      OpType = 0x08 // Node, Markup
	OpQuery          OpType = 0x09 // Node, Selector → node handle
	OpRect           OpType = 0x0A // Node → bounding rect
)

// String returns the operation name.
func (ot OpType) String() string {
	switch ot {
	case OpCreateTemplate:
		return "CreateTemplate"
	case OpCloneFragment:
		return "CloneFragment"
	case OpAttachShadow:
		return "AttachShadow"
	case OpAppendFragment:
		return "AppendFragment"
	case OpGetAttr:
		return "GetAttr"
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpSetMarkup:
		return "SetMarkup"
	case OpQuery:
		return "Query"
	case OpRect:
		return "Rect"
	default:
		return "Unknown"
	}
}

func (ot OpType) valid() bool {
	return ot >= OpCreateTemplate && ot <= OpRect
}

// Shadow modes on the wire.
const (
	ModeOpen   uint8 = 0x00
	ModeClosed uint8 = 0x01
)

// Op is one host operation. ID is the call identifier the engine echoes in
// its Result. Only the fields relevant to Type are encoded.
type Op struct {
	ID       uint64
	Type     OpType
	Node     uint64
	Fragment uint64
	Name     string
	Value    string
	Markup   string
	Selector string
	Mode     uint8
}

// EncodeOp encodes an Op to bytes.
func EncodeOp(op *Op) []byte {
	e := NewEncoder()
	EncodeOpTo(e, op)
	return e.Bytes()
}

// EncodeOpTo encodes an Op using the provided encoder.
func EncodeOpTo(e *Encoder, op *Op) {
	e.WriteUvarint(op.ID)
	e.WriteByte(byte(op.Type))
	switch op.Type {
	case OpCreateTemplate:
		e.WriteString(op.Markup)
	case OpCloneFragment:
		e.WriteUvarint(op.Fragment)
	case OpAttachShadow:
		e.WriteUvarint(op.Node)
		e.WriteByte(op.Mode)
	case OpAppendFragment:
		e.WriteUvarint(op.Node)
		e.WriteUvarint(op.Fragment)
	case OpGetAttr, OpRemoveAttr:
		e.WriteUvarint(op.Node)
		e.WriteString(op.Name)
	case OpSetAttr:
		e.WriteUvarint(op.Node)
		e.WriteString(op.Name)
		e.WriteString(op.Value)
	case OpSetMarkup:
		e.WriteUvarint(op.Node)
		e.WriteString(op.Markup)
	case OpQuery:
		e.WriteUvarint(op.Node)
		e.WriteString(op.Selector)
	case OpRect:
		e.WriteUvarint(op.Node)
	}
}

// DecodeOp decodes an Op from bytes.
func DecodeOp(data []byte) (*Op, error) {
	return DecodeOpFrom(NewDecoder(data))
}

// DecodeOpFrom decodes an Op from a decoder.
func DecodeOpFrom(d *Decoder) (*Op, error) {
	op := &Op{}
	var err error
	if op.ID, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	ot, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	op.Type = OpType(ot)
	if !op.Type.valid() {
		return nil, ErrInvalidOp
	}
	switch op.Type {
	case OpCreateTemplate:
		if op.Markup, err = d.ReadString(); err != nil {
			return nil, err
		}
	case OpCloneFragment:
		if op.Fragment, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	case OpAttachShadow:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Mode, err = d.ReadByte(); err != nil {
			return nil, err
		}
	case OpAppendFragment:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Fragment, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	case OpGetAttr, OpRemoveAttr:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
	case OpSetAttr:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		if op.Value, err = d.ReadString(); err != nil {
			return nil, err
		}
	case OpSetMarkup:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Markup, err = d.ReadString(); err != nil {
			return nil, err
		}
	case OpQuery:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		if op.Selector, err = d.ReadString(); err != nil {
			return nil, err
		}
	case OpRect:
		if op.Node, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	}
	return op, nil
}
