package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrDecode, "decode", "read chunk", "corrupt header", errors.New("short read"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode marker: %v", err)
	}
	for _, want := range []string{"decode", "read chunk", "corrupt header", "short read"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("message missing %q: %v", want, err)
		}
	}
}

func TestWrapNilMarkerDefaultsToProcess(t *testing.T) {
	err := Wrap(nil, "extract", "", "", nil)
	if !errors.Is(err, ErrProcess) {
		t.Fatalf("expected ErrProcess default: %v", err)
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Wrap(ErrNoInput, "segment", "scan", "no group folder", nil), true},
		{Wrap(ErrConfiguration, "segment", "rules", "length mismatch", nil), true},
		{Wrap(ErrDecode, "decode", "chunk", "bad file", nil), false},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsTerminal(tc.err); got != tc.want {
			t.Fatalf("IsTerminal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
