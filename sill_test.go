package sill_test

import (
	"testing"

	"github.com/sill-dev/sill"
	"github.com/sill-dev/sill/pkg/hosttest"
)

type counterState struct {
	changes int
}

func TestDefineAndDispatchThroughFacade(t *testing.T) {
	reg := sill.NewRegistry()

	var connected int
	sill.MustDefine(reg, sill.MustName("x-counter"), sill.Descriptor[counterState]{
		New: func(el sill.Element[counterState]) (*counterState, error) {
			return &counterState{}, nil
		},
		Connected: func(el sill.Element[counterState]) {
			connected++
		},
		AttributeChanged: func(el sill.Element[counterState], change sill.AttributeChange) {
			el.With(func(s *counterState) { s.changes++ })
		},
		ObservedAttributes: []sill.Name{sill.MustName("count")},
	})

	tree := hosttest.New()
	disp := sill.NewDispatcher(tree, reg)
	driver := hosttest.NewDriver(tree, disp)

	ref := driver.CreateElement(sill.MustName("x-counter"))
	if err := driver.Connect(ref); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := driver.SetAttribute(ref, sill.MustName("count"), "3"); err != nil {
		t.Fatalf("SetAttribute() error: %v", err)
	}
	if err := driver.SetAttribute(ref, sill.MustName("title"), "ignored"); err != nil {
		t.Fatalf("SetAttribute() error: %v", err)
	}

	if connected != 1 {
		t.Errorf("connected = %d, want 1", connected)
	}

	stats := disp.Stats()
	if stats.Constructed != 1 {
		t.Errorf("Stats().Constructed = %d, want 1", stats.Constructed)
	}
	if stats.AttributesDelivered != 1 {
		t.Errorf("Stats().AttributesDelivered = %d, want 1", stats.AttributesDelivered)
	}
	if stats.AttributesFiltered != 1 {
		t.Errorf("Stats().AttributesFiltered = %d, want 1", stats.AttributesFiltered)
	}
}

func TestNameReexports(t *testing.T) {
	if _, err := sill.ParseName("data-x"); err != nil {
		t.Errorf("ParseName(\"data-x\") error: %v", err)
	}
	if _, err := sill.ParseKindName("nohyphen"); err == nil {
		t.Error("ParseKindName(\"nohyphen\") expected error, got nil")
	}
	if got := sill.MustName("x-tab").String(); got != "x-tab" {
		t.Errorf("MustName(\"x-tab\").String() = %q, want \"x-tab\"", got)
	}
}

func TestAttributeValueReexports(t *testing.T) {
	if v := sill.SomeValue("a"); !v.Present || v.Value != "a" {
		t.Errorf("SomeValue(\"a\") = %+v, want present \"a\"", v)
	}
	if v := sill.NoValue(); v.Present {
		t.Errorf("NoValue() = %+v, want absent", v)
	}
	if got := sill.NoValue().Or("fallback"); got != "fallback" {
		t.Errorf("NoValue().Or(\"fallback\") = %q, want \"fallback\"", got)
	}
}
