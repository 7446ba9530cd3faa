package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
)

type samplePayload struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func decodeRequest(t *testing.T, body string, dest any) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return DecodeJSONBody(req, dest)
}

func TestDecodeJSONBody(t *testing.T) {
	var payload samplePayload
	if err := decodeRequest(t, `{"name":"paneer roll","quantity":2}`, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Name != "paneer roll" || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var payload samplePayload
	err := decodeRequest(t, `{"name":"roll","quantity":1,"bogus":true}`, &payload)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	var payload samplePayload
	err := decodeRequest(t, `{"name":`, &payload)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var payload samplePayload
	err := decodeRequest(t, `{"quantity":0}`, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected name message %q", details["name"])
	}
	if details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected quantity message %q", details["quantity"])
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00 world  ", 5); got != "hello" {
		t.Fatalf("unexpected sanitized value %q", got)
	}
}
