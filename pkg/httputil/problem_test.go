package httputil

import (
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	p := New(http.StatusServiceUnavailable, "directory unavailable")

	if p.Type != "about:blank" {
		t.Errorf("Type = %q, want %q", p.Type, "about:blank")
	}
	if p.Title != "Service Unavailable" {
		t.Errorf("Title = %q, want %q", p.Title, "Service Unavailable")
	}
	if p.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", p.Status, http.StatusServiceUnavailable)
	}
	if p.Detail != "directory unavailable" {
		t.Errorf("Detail = %q, want %q", p.Detail, "directory unavailable")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		title  string
		detail string
	}{
		{"problem", `{"type":"about:blank","title":"Unauthorized","status":401,"detail":"bad credentials"}`, true, "Unauthorized", "bad credentials"},
		{"round trip", string(NotFound("user not found").Encode()), true, "Not Found", "user not found"},
		{"missing title", `{"status":500}`, false, "", ""},
		{"not json", `upstream connect error`, false, "", ""},
		{"empty", ``, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Parse([]byte(tt.body))
			if ok != tt.ok {
				t.Fatalf("Parse() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if p.Title != tt.title || p.Detail != tt.detail {
				t.Errorf("Parse() = %+v, want title %q detail %q", p, tt.title, tt.detail)
			}
		})
	}
}

func TestProblemDetail_Error(t *testing.T) {
	if got, want := New(http.StatusBadGateway, "").Error(), "502 Bad Gateway"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := NotFound("no route").Error(), "404 Not Found: no route"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
