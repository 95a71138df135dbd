package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrBackendNotImplemented, ErrBackendCommunication, ErrDuplicateBackend,
		ErrSessionNotFound, ErrValkeyUnavailable, ErrKeyNotFound,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v and %v should be distinct", a, b)
			}
		}
	}
}

func TestSentinelErrorsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: %v", ErrValkeyUnavailable, errors.New("dial tcp: refused"))
	if !errors.Is(wrapped, ErrValkeyUnavailable) {
		t.Error("errors.Is should find wrapped ErrValkeyUnavailable")
	}
}
