package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload the length field can carry.
	MaxPayloadSize = 65535
)

// FrameType identifies the kind of message a frame carries.
type FrameType uint8

const (
	FrameHello     FrameType = 0x00 // Engine handshake
	FrameWelcome   FrameType = 0x01 // Bridge handshake reply
	FrameLifecycle FrameType = 0x02 // Engine lifecycle notification
	FrameAttribute FrameType = 0x03 // Engine attribute mutation
	FrameOp        FrameType = 0x04 // Bridge host operation
	FrameResult    FrameType = 0x05 // Engine reply to an operation
	FrameControl   FrameType = 0x06 // Ping, pong, bye
	FrameFault     FrameType = 0x07 // Protocol-level fault
)

// String returns the frame type name.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameWelcome:
		return "Welcome"
	case FrameLifecycle:
		return "Lifecycle"
	case FrameAttribute:
		return "Attribute"
	case FrameOp:
		return "Op"
	case FrameResult:
		return "Result"
	case FrameControl:
		return "Control"
	case FrameFault:
		return "Fault"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags in the frame header.
type FrameFlags uint8

const (
	// FlagUrgent asks the peer to process the frame ahead of queued work.
	// Control frames set it during shutdown.
	FlagUrgent FrameFlags = 0x01
)

// Has reports whether flags contain flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one unit on the wire: a fixed header and a message payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes a frame from data. The payload is copied, so data may
// be reused after the call.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	flags := FrameFlags(data[1])
	length := int(data[2])<<8 | int(data[3])

	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])

	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// DecodeFrameHeader decodes just the header, returning type, flags and
// payload length.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	return FrameType(data[0]), FrameFlags(data[1]), int(data[2])<<8 | int(data[3]), nil
}

// ReadFrame reads one complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	ft := FrameType(header[0])
	flags := FrameFlags(header[1])
	length := int(header[2])<<8 | int(header[3])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes one complete frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
