package protocol

import "io"

// Result is the engine's reply to one Op, matched by ID. A successful
// result carries an op-specific payload; a failed one carries a fault code
// and message.
type Result struct {
	ID      uint64
	OK      bool
	Fault   FaultCode // failure only
	Message string    // failure only
	Payload []byte    // success only, op-specific
}

// NewResult creates a successful Result.
func NewResult(id uint64, payload []byte) *Result {
	return &Result{ID: id, OK: true, Payload: payload}
}

// NewResultFault creates a failed Result.
func NewResultFault(id uint64, code FaultCode, message string) *Result {
	return &Result{ID: id, Fault: code, Message: message}
}

// EncodeResult encodes a Result to bytes.
func EncodeResult(r *Result) []byte {
	e := NewEncoder()
	EncodeResultTo(e, r)
	return e.Bytes()
}

// EncodeResultTo encodes a Result using the provided encoder.
func EncodeResultTo(e *Encoder, r *Result) {
	e.WriteUvarint(r.ID)
	e.WriteBool(r.OK)
	if r.OK {
		e.WriteLenBytes(r.Payload)
	} else {
		e.WriteUint16(uint16(r.Fault))
		e.WriteString(r.Message)
	}
}

// DecodeResult decodes a Result from bytes.
func DecodeResult(data []byte) (*Result, error) {
	return DecodeResultFrom(NewDecoder(data))
}

// DecodeResultFrom decodes a Result from a decoder.
func DecodeResultFrom(d *Decoder) (*Result, error) {
	r := &Result{}
	var err error
	if r.ID, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if r.OK, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if r.OK {
		if r.Payload, err = d.ReadLenBytes(); err != nil {
			return nil, err
		}
		return r, nil
	}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	r.Fault = FaultCode(code)
	if r.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	return r, nil
}

// Result payload helpers. The payload layout depends on the operation the
// result answers; the caller knows the operation from its pending table.

// HandlePayload encodes a node or fragment handle payload.
func HandlePayload(h uint64) []byte {
	e := NewEncoder()
	e.WriteUvarint(h)
	return e.Bytes()
}

// DecodeHandlePayload decodes a handle payload.
func DecodeHandlePayload(p []byte) (uint64, error) {
	v, n := DecodeUvarint(p)
	if n < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return v, nil
}

// AttrPayload encodes an attribute value payload.
func AttrPayload(v AttrValue) []byte {
	e := NewEncoder()
	v.EncodeTo(e)
	return e.Bytes()
}

// DecodeAttrPayload decodes an attribute value payload.
func DecodeAttrPayload(p []byte) (AttrValue, error) {
	return DecodeAttrValueFrom(NewDecoder(p))
}

// RectPayload encodes a bounding rect payload.
func RectPayload(x, y, w, h float64) []byte {
	e := NewEncoder()
	e.WriteFloat64(x)
	e.WriteFloat64(y)
	e.WriteFloat64(w)
	e.WriteFloat64(h)
	return e.Bytes()
}

// DecodeRectPayload decodes a bounding rect payload.
func DecodeRectPayload(p []byte) (x, y, w, h float64, err error) {
	d := NewDecoder(p)
	if x, err = d.ReadFloat64(); err != nil {
		return 0, 0, 0, 0, err
	}
	if y, err = d.ReadFloat64(); err != nil {
		return 0, 0, 0, 0, err
	}
	if w, err = d.ReadFloat64(); err != nil {
		return 0, 0, 0, 0, err
	}
	if h, err = d.ReadFloat64(); err != nil {
		return 0, 0, 0, 0, err
	}
	return x, y, w, h, nil
}
