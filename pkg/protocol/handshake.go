package protocol

import (
	"errors"
	"fmt"
)

// ProtocolVersion is a protocol version as major.minor. Peers must agree on
// the major version; the minor version only adds messages.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "v<major>.<minor>".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// CurrentVersion is the protocol version this package speaks.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// ErrVersionMismatch is returned when the peer's major version differs.
var ErrVersionMismatch = errors.New("protocol: version mismatch")

// HandshakeStatus is the bridge's verdict on an engine's Hello.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeInvalidFormat   HandshakeStatus = 0x02
	HandshakeBusy            HandshakeStatus = 0x03 // A session is already attached
	HandshakeInternalError   HandshakeStatus = 0x04
)

// String returns the handshake status name.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeBusy:
		return "Busy"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Hello is the first frame an engine sends after connecting.
type Hello struct {
	Version ProtocolVersion
	Engine  string // Engine name and version, free-form, for logs
}

// EncodeHello encodes a Hello to bytes.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	EncodeHelloTo(e, h)
	return e.Bytes()
}

// EncodeHelloTo encodes a Hello using the provided encoder.
func EncodeHelloTo(e *Encoder, h *Hello) {
	e.WriteByte(h.Version.Major)
	e.WriteByte(h.Version.Minor)
	e.WriteString(h.Engine)
}

// DecodeHello decodes a Hello from bytes.
func DecodeHello(data []byte) (*Hello, error) {
	return DecodeHelloFrom(NewDecoder(data))
}

// DecodeHelloFrom decodes a Hello from a decoder.
func DecodeHelloFrom(d *Decoder) (*Hello, error) {
	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	engine, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &Hello{
		Version: ProtocolVersion{Major: major, Minor: minor},
		Engine:  engine,
	}, nil
}

// Check validates the engine's version against CurrentVersion.
func (h *Hello) Check() error {
	if h.Version.Major != CurrentVersion.Major {
		return ErrVersionMismatch
	}
	return nil
}

// Welcome is the bridge's reply to a Hello. On success it announces the
// limits the engine must respect.
type Welcome struct {
	Status    HandshakeStatus
	MaxFrame  uint64
	MaxMarkup uint64
}

// NewWelcome creates a successful Welcome announcing limits.
func NewWelcome(l Limits) *Welcome {
	return &Welcome{
		Status:    HandshakeOK,
		MaxFrame:  uint64(l.MaxFrame),
		MaxMarkup: uint64(l.MaxMarkup),
	}
}

// NewWelcomeError creates a Welcome with a failure status.
func NewWelcomeError(status HandshakeStatus) *Welcome {
	return &Welcome{Status: status}
}

// EncodeWelcome encodes a Welcome to bytes.
func EncodeWelcome(w *Welcome) []byte {
	e := NewEncoder()
	EncodeWelcomeTo(e, w)
	return e.Bytes()
}

// EncodeWelcomeTo encodes a Welcome using the provided encoder.
func EncodeWelcomeTo(e *Encoder, w *Welcome) {
	e.WriteByte(byte(w.Status))
	e.WriteUvarint(w.MaxFrame)
	e.WriteUvarint(w.MaxMarkup)
}

// DecodeWelcome decodes a Welcome from bytes.
func DecodeWelcome(data []byte) (*Welcome, error) {
	return DecodeWelcomeFrom(NewDecoder(data))
}

// DecodeWelcomeFrom decodes a Welcome from a decoder.
func DecodeWelcomeFrom(d *Decoder) (*Welcome, error) {
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	maxFrame, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	maxMarkup, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &Welcome{
		Status:    HandshakeStatus(status),
		MaxFrame:  maxFrame,
		MaxMarkup: maxMarkup,
	}, nil
}
