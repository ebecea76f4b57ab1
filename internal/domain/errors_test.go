package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Validation("bad formula %q", "2x6"), KindValidation},
		{StateConflict("not your turn"), KindStateConflict},
		{NotFound("no card"), KindNotFound},
		{Dependency(errors.New("down"), "deck call"), KindDependency},
		{Internal(errors.New("oops"), "unexpected"), KindInternal},
		{errors.New("plain"), KindInternal},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.kind)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("no card for actor %s", "ayla")
	wrapped := fmt.Errorf("deal: %w", base)

	if !IsKind(wrapped, KindNotFound) {
		t.Fatalf("wrapped error lost its kind: %v", wrapped)
	}
	var de *Error
	if !errors.As(wrapped, &de) {
		t.Fatal("errors.As failed")
	}
	if de.Message != "no card for actor ayla" {
		t.Fatalf("message %q", de.Message)
	}
}

func TestDependencyUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency(cause, "deck deal failed")

	if !errors.Is(err, cause) {
		t.Fatal("dependency error must unwrap to its cause")
	}
}
