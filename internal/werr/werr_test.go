package werr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedSentinelsMatchErrorsIs(t *testing.T) {
	cases := []error{NotFound, Invalid, OutOfDate, NotReady, Timeout, Fatal, BufferImportFailed}
	for _, sentinel := range cases {
		wrapped := fmt.Errorf("ways: bind global 7: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("errors.Is(wrapped, %v) = false, want true", sentinel)
		}
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{NotFound, Invalid, OutOfDate, NotReady, Timeout, Fatal, BufferImportFailed}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v and %v compare equal, want distinct sentinels", a, b)
			}
		}
	}
}
