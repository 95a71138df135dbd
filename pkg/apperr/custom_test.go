package apperr

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidationError("backends[0].priority", "must be >= 0"), "invalid backends[0].priority: must be >= 0"},
		{"backend without status", NewBackendError("mab", 0, errors.New("i/o timeout")), "backend mab: i/o timeout"},
		{"backend with status", NewBackendError("ldap", 503, nil), "backend ldap (status 503)"},
		{"valkey with key", NewValkeyError("HGETALL", "mac:aabbccddeeff", errors.New("WRONGTYPE")), "valkey HGETALL mac:aabbccddeeff: WRONGTYPE"},
		{"valkey without key", NewValkeyError("PING", "", ErrValkeyUnavailable), "valkey PING: valkey unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	if !errors.Is(NewBackendError("ldap", 502, ErrBackendCommunication), ErrBackendCommunication) {
		t.Error("BackendError should unwrap to its cause")
	}
	if !errors.Is(NewValkeyError("HSET", "sess:1", ErrValkeyUnavailable), ErrValkeyUnavailable) {
		t.Error("ValkeyError should unwrap to its cause")
	}
	if NewBackendError("ldap", 500, nil).Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}

	var berr *BackendError
	wrapped := errors.Join(errors.New("evaluate chain"), NewBackendError("oauth", 0, nil))
	if !errors.As(wrapped, &berr) || berr.Backend != "oauth" {
		t.Errorf("errors.As() = %v, want backend oauth", berr)
	}
}
