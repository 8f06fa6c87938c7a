package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	ee := Newf("something broke").Build()
	if ee.Component != ComponentUnknown {
		t.Errorf("expected component %q, got %q", ComponentUnknown, ee.Component)
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("expected category %q, got %q", CategoryGeneric, ee.Category)
	}
	if ee.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestBuilderMetadata(t *testing.T) {
	t.Parallel()

	ee := Newf("order %d missing", 42).
		Component("datastore").
		Category(CategoryNotFound).
		Context("order_id", 42).
		Build()

	if ee.Component != "datastore" {
		t.Errorf("unexpected component: %q", ee.Component)
	}
	if !IsNotFound(ee) {
		t.Error("expected IsNotFound to be true")
	}
	if v, ok := ee.GetContext("order_id"); !ok || v != 42 {
		t.Errorf("expected order_id context 42, got %v (present=%v)", v, ok)
	}
	if ee.Error() != "order 42 missing" {
		t.Errorf("unexpected message: %q", ee.Error())
	}
}

func TestUnwrapChain(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	wrapped := New(fmt.Errorf("context: %w", sentinel)).
		Component("notify").
		Category(CategoryBroadcast).
		Build()

	if !stderrors.Is(wrapped, sentinel) {
		t.Error("expected errors.Is to find the sentinel through the chain")
	}

	var ee *EnhancedError
	if !As(wrapped, &ee) {
		t.Fatal("expected As to find EnhancedError")
	}
	if ee.Category != CategoryBroadcast {
		t.Errorf("unexpected category: %q", ee.Category)
	}
}

func TestHasCategoryOnPlainError(t *testing.T) {
	t.Parallel()

	if HasCategory(stderrors.New("plain"), CategoryNotFound) {
		t.Error("plain errors must not match any category")
	}
}
