package protocol

// FaultCode classifies a protocol-level or host-side failure.
type FaultCode uint16

const (
	FaultUnknown       FaultCode = 0x0000
	FaultInvalidFrame  FaultCode = 0x0001 // Malformed frame or payload
	FaultUnsupportedOp FaultCode = 0x0002 // Engine does not implement the op
	FaultNodeGone      FaultCode = 0x0003 // Node handle is stale
	FaultFragmentGone  FaultCode = 0x0004 // Fragment handle is stale or consumed
	FaultShadowExists  FaultCode = 0x0005 // Node already hosts a shadow root
	FaultNoMatch       FaultCode = 0x0006 // Selector matched nothing
	FaultRejected      FaultCode = 0x0007 // Engine refused the operation
	FaultTooLarge      FaultCode = 0x0008 // Limit exceeded
)

// String returns the fault code name.
func (fc FaultCode) String() string {
	switch fc {
	case FaultUnknown:
		return "Unknown"
	case FaultInvalidFrame:
		return "InvalidFrame"
	case FaultUnsupportedOp:
		return "UnsupportedOp"
	case FaultNodeGone:
		return "NodeGone"
	case FaultFragmentGone:
		return "FragmentGone"
	case FaultShadowExists:
		return "ShadowExists"
	case FaultNoMatch:
		return "NoMatch"
	case FaultRejected:
		return "Rejected"
	case FaultTooLarge:
		return "TooLarge"
	default:
		return "Unknown"
	}
}

// Fault is a standalone fault frame. Fatal faults tell the peer to close
// the connection.
type Fault struct {
	Code    FaultCode
	Message string
	Fatal   bool
}

// NewFault creates a non-fatal Fault.
func NewFault(code FaultCode, message string) *Fault {
	return &Fault{Code: code, Message: message}
}

// NewFatalFault creates a fatal Fault.
func NewFatalFault(code FaultCode, message string) *Fault {
	return &Fault{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Fatal {
		return "fatal: " + f.Code.String() + ": " + f.Message
	}
	return f.Code.String() + ": " + f.Message
}

// EncodeFault encodes a Fault to bytes.
func EncodeFault(f *Fault) []byte {
	e := NewEncoder()
	EncodeFaultTo(e, f)
	return e.Bytes()
}

// EncodeFaultTo encodes a Fault using the provided encoder.
func EncodeFaultTo(e *Encoder, f *Fault) {
	e.WriteUint16(uint16(f.Code))
	e.WriteString(f.Message)
	e.WriteBool(f.Fatal)
}

// DecodeFault decodes a Fault from bytes.
func DecodeFault(data []byte) (*Fault, error) {
	return DecodeFaultFrom(NewDecoder(data))
}

// DecodeFaultFrom decodes a Fault from a decoder.
func DecodeFaultFrom(d *Decoder) (*Fault, error) {
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &Fault{Code: FaultCode(code), Message: message, Fatal: fatal}, nil
}
