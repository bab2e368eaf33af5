package apperror

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(method string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body["error"]
}

func TestHTTPErrorHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := HTTPErrorHandler(log)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "app error",
			err:         NewBadRequest("bucket is required"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "bucket is required",
		},
		{
			name:        "echo http error",
			err:         echo.NewHTTPError(http.StatusNotFound, "Not found"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Not found",
		},
		{
			name:        "unknown error",
			err:         io.ErrUnexpectedEOF,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodGet)
			handler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec); got != tt.wantMessage {
				t.Errorf("error = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestHTTPErrorHandlerHead(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := HTTPErrorHandler(log)

	c, rec := newTestContext(http.MethodHead)
	handler(ErrNotFound, c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response should have no body, got %q", rec.Body.String())
	}
}
