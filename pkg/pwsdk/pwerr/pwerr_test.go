package pwerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_NilPassthrough(t *testing.T) {
	if err := New(CodeTransport, nil); err != nil {
		t.Errorf("New with a nil cause should be nil, got %v", err)
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(CodeNotFound, "workflow %s", "train")

	if !IsCode(err, CodeNotFound) {
		t.Error("IsCode should match the carried code")
	}
	if IsCode(err, CodeTransport) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(nil, CodeNotFound) {
		t.Error("IsCode on nil should be false")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("IsCode on a plain error should be false")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(Newf(CodeUnauthorized, "no key")); got != CodeUnauthorized {
		t.Errorf("CodeOf = %q, want unauthorized", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Errorf("CodeOf = %q, want unknown for plain errors", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := New(CodeTransport, cause)

	if !errors.Is(err, cause) {
		t.Error("the wrapped cause should be reachable through errors.Is")
	}
	want := fmt.Sprintf("%s: %v", CodeTransport, cause)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
