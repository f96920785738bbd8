package protocol

import "errors"

// Limit errors.
var (
	ErrMarkupTooLarge = errors.New("protocol: markup exceeds size limit")
	ErrNameTooLong    = errors.New("protocol: name exceeds length limit")
)

// Default limits.
const (
	// DefaultMaxFrame is the default whole-frame ceiling, header included.
	DefaultMaxFrame = 64 * 1024

	// DefaultMaxMarkup caps markup carried by CreateTemplate and SetMarkup
	// operations.
	DefaultMaxMarkup = 32 * 1024

	// DefaultMaxName caps element kind, attribute and selector names.
	DefaultMaxName = 256
)

// Limits bound what a peer may send. Both sides validate against their own
// limits; the bridge additionally announces its limits in the Welcome
// message so a well-behaved engine never trips them.
type Limits struct {
	// MaxFrame is the whole-frame ceiling in bytes, header included.
	MaxFrame int

	// MaxMarkup caps a single markup string.
	MaxMarkup int

	// MaxName caps names: element kinds, attributes, selectors.
	MaxName int
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFrame:  DefaultMaxFrame,
		MaxMarkup: DefaultMaxMarkup,
		MaxName:   DefaultMaxName,
	}
}

// CheckFrame validates a whole-frame size.
func (l Limits) CheckFrame(n int) error {
	if l.MaxFrame > 0 && n > l.MaxFrame {
		return ErrFrameTooLarge
	}
	return nil
}

// CheckMarkup validates a markup string.
func (l Limits) CheckMarkup(markup string) error {
	if l.MaxMarkup > 0 && len(markup) > l.MaxMarkup {
		return ErrMarkupTooLarge
	}
	return nil
}

// CheckName validates a name string.
func (l Limits) CheckName(name string) error {
	if l.MaxName > 0 && len(name) > l.MaxName {
		return ErrNameTooLong
	}
	return nil
}
