package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "typed not-found", err: NotFound("track"), want: KindNotFound},
		{name: "typed forbidden", err: Forbidden("nope"), want: KindForbidden},
		{name: "wrapped typed error", err: fmt.Errorf("context: %w", New(KindConflict, "dup")), want: KindConflict},
		{name: "untyped error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUpstream, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := HTTPStatus(tc.kind); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestMessageOfHidesInternals(t *testing.T) {
	if got := MessageOf(errors.New("sql: table missing")); got != "internal server error" {
		t.Fatalf("untyped errors must not leak detail, got %q", got)
	}
	if got := MessageOf(New(KindNotFound, "track not found")); got != "track not found" {
		t.Fatalf("typed errors keep their message, got %q", got)
	}
}

func TestValidationFields(t *testing.T) {
	err := Validation("invalid input", FieldError{Field: "email", Message: "required"})
	fields := FieldsOf(err)
	if len(fields) != 1 || fields[0].Field != "email" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if FieldsOf(errors.New("plain")) != nil {
		t.Fatal("untyped errors carry no fields")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(KindUpstream, "upstream failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
}
