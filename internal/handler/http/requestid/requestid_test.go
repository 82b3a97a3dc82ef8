package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"carries an id", WithRequestID(context.Background(), "req-abc"), "req-abc"},
		{"no id attached", context.Background(), ""},
		{"wrong value type under the key", context.WithValue(context.Background(), RequestIDKey, 42), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromContext(tt.ctx))
		})
	}
}

func serveRecording(t *testing.T, req *http.Request) (capturedID string, rec *httptest.ResponseRecorder) {
	t.Helper()
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return capturedID, rec
}

func TestMiddlewareHonorsIncomingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/r/golang/posts", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied-id")

	capturedID, rec := serveRecording(t, req)

	assert.Equal(t, "caller-supplied-id", capturedID)
	assert.Equal(t, "caller-supplied-id", rec.Header().Get(RequestIDHeader))
}

func TestMiddlewareGeneratesUUIDWhenHeaderAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/r/golang/posts", nil)

	capturedID, rec := serveRecording(t, req)

	require.NotEmpty(t, capturedID)
	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err)
	// The generated id is echoed so the caller can quote it in bug reports.
	assert.Equal(t, capturedID, rec.Header().Get(RequestIDHeader))
}

func TestMiddlewareGeneratesUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/r/golang/posts", nil)
		capturedID, _ := serveRecording(t, req)
		seen[capturedID] = true
	}
	assert.Len(t, seen, 10)
}

func TestHeaderName(t *testing.T) {
	assert.Equal(t, "X-Request-ID", RequestIDHeader)
}
