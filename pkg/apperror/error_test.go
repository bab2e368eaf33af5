package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(http.StatusBadRequest, "bucket is required"),
			want: "bucket is required",
		},
		{
			name: "with internal",
			err:  NewInternal("query failed", errors.New("connection refused")),
			want: "query failed (connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithMessage(t *testing.T) {
	base := ErrBadRequest
	custom := base.WithMessage("bucket is required")

	if custom.HTTPStatus != http.StatusBadRequest {
		t.Errorf("WithMessage() status = %d, want %d", custom.HTTPStatus, http.StatusBadRequest)
	}
	if custom.Message != "bucket is required" {
		t.Errorf("WithMessage() message = %q", custom.Message)
	}
	if base.Message == custom.Message {
		t.Error("WithMessage() mutated the base error")
	}
}

func TestWithInternalUnwrap(t *testing.T) {
	cause := errors.New("no such table")
	err := ErrInternal.WithInternal(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the internal cause")
	}
	if ErrInternal.Internal != nil {
		t.Error("WithInternal() mutated the sentinel")
	}
}
