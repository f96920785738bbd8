package protocol

import (
	"errors"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	h := &Hello{Version: CurrentVersion, Engine: "hosttest/1.0"}
	got, err := DecodeHello(EncodeHello(h))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Version != h.Version || got.Engine != h.Engine {
		t.Errorf("expected %+v, got %+v", h, got)
	}
	if err := got.Check(); err != nil {
		t.Errorf("expected current version to pass, got %v", err)
	}
}

func TestHelloVersionMismatch(t *testing.T) {
	h := &Hello{Version: ProtocolVersion{Major: CurrentVersion.Major + 1}}
	if err := h.Check(); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}

	// Minor versions are compatible.
	h = &Hello{Version: ProtocolVersion{Major: CurrentVersion.Major, Minor: CurrentVersion.Minor + 3}}
	if err := h.Check(); err != nil {
		t.Errorf("expected minor bump to pass, got %v", err)
	}
}

func TestHelloTruncated(t *testing.T) {
	data := EncodeHello(&Hello{Version: CurrentVersion, Engine: "x"})
	if _, err := DecodeHello(data[:2]); err == nil {
		t.Error("expected truncated hello to fail")
	}
}

func TestWelcomeRoundTrip(t *testing.T) {
	w := NewWelcome(Limits{MaxFrame: 4096, MaxMarkup: 1024})
	got, err := DecodeWelcome(EncodeWelcome(w))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Status != HandshakeOK || got.MaxFrame != 4096 || got.MaxMarkup != 1024 {
		t.Errorf("unexpected welcome %+v", got)
	}

	bad := NewWelcomeError(HandshakeVersionMismatch)
	got, err = DecodeWelcome(EncodeWelcome(bad))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Status != HandshakeVersionMismatch || got.MaxFrame != 0 {
		t.Errorf("unexpected welcome %+v", got)
	}
}

func TestLimitChecks(t *testing.T) {
	l := Limits{MaxFrame: 10, MaxMarkup: 5, MaxName: 3}

	if err := l.CheckFrame(10); err != nil {
		t.Errorf("expected frame at limit to pass, got %v", err)
	}
	if err := l.CheckFrame(11); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
	if err := l.CheckMarkup("123456"); !errors.Is(err, ErrMarkupTooLarge) {
		t.Errorf("expected ErrMarkupTooLarge, got %v", err)
	}
	if err := l.CheckName("abcd"); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("expected ErrNameTooLong, got %v", err)
	}

	// Zero limits disable the check.
	var open Limits
	if err := open.CheckFrame(1 << 30); err != nil {
		t.Errorf("expected unbounded limits to pass, got %v", err)
	}
}
