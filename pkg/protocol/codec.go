package protocol

import (
	"errors"
	"io"
	"math"
)

// Allocation limits applied while decoding, independent of configured
// frame limits. A malicious length prefix is rejected before allocation.
const (
	// MaxAllocation caps any single length-prefixed string or byte run.
	MaxAllocation = 1 << 20

	// MaxCollectionCount caps item counts in decoded collections.
	MaxCollectionCount = 65536
)

// Common decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Encoder is a binary encoder that appends to an internal buffer. It never
// fails; the buffer grows as needed.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Reset empties the encoder, keeping the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The slice is valid until the next Reset
// or Write call.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteUvarint appends an unsigned varint.
func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteString appends a varint length prefix followed by the string bytes.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteLenBytes appends a varint length prefix followed by the bytes.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteBool appends a boolean as 0x00 or 0x01.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
}

// WriteUint16 appends a uint16 in big-endian byte order.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// WriteUint64 appends a uint64 in big-endian byte order.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = append(e.buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteFloat64 appends a float64 in IEEE 754 big-endian format.
func (e *Encoder) WriteFloat64(v float64) {
	e.WriteUint64(math.Float64bits(v))
}

// Decoder is a binary decoder reading from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF reports whether all bytes have been consumed.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes. The returned slice references the
// decoder's buffer; do not modify it.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint

	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadString reads a length-prefixed UTF-8 string. The length is checked
// against the remaining buffer and MaxAllocation before allocating.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	if length > MaxAllocation {
		return "", ErrAllocationTooLarge
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadLenBytes reads length-prefixed bytes and returns a copy that is safe
// to retain.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(d.Remaining()) {
		return nil, io.ErrUnexpectedEOF
	}
	if length > MaxAllocation {
		return nil, ErrAllocationTooLarge
	}
	n := int(length)
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadBool reads a boolean. Nonzero bytes decode as true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint64 reads a uint64 in big-endian byte order.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint64(d.buf[d.pos])<<56 | uint64(d.buf[d.pos+1])<<48 |
		uint64(d.buf[d.pos+2])<<40 | uint64(d.buf[d.pos+3])<<32 |
		uint64(d.buf[d.pos+4])<<24 | uint64(d.buf[d.pos+5])<<16 |
		uint64(d.buf[d.pos+6])<<8 | uint64(d.buf[d.pos+7])
	d.pos += 8
	return v, nil
}

// ReadFloat64 reads a float64 in IEEE 754 big-endian format.
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCollectionCount reads a varint count and validates it against
// MaxCollectionCount and the remaining buffer.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// AttrValue is an attribute value on the wire: a presence byte, then the
// value string when present. An absent attribute is distinct from an empty
// one.
type AttrValue struct {
	Value   string
	Present bool
}

// SomeAttr returns a present AttrValue.
func SomeAttr(v string) AttrValue {
	return AttrValue{Value: v, Present: true}
}

// NoAttr returns an absent AttrValue.
func NoAttr() AttrValue {
	return AttrValue{}
}

// EncodeTo writes the value using the provided encoder.
func (a AttrValue) EncodeTo(e *Encoder) {
	e.WriteBool(a.Present)
	if a.Present {
		e.WriteString(a.Value)
	}
}

// DecodeAttrValueFrom reads an AttrValue from a decoder.
func DecodeAttrValueFrom(d *Decoder) (AttrValue, error) {
	present, err := d.ReadBool()
	if err != nil {
		return AttrValue{}, err
	}
	if !present {
		return AttrValue{}, nil
	}
	v, err := d.ReadString()
	if err != nil {
		return AttrValue{}, err
	}
	return AttrValue{Value: v, Present: true}, nil
}
