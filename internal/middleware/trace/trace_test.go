package trace

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "github.com/Vynetoob/Financeiro/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestMiddlewarePutsRequestIDInContext(t *testing.T) {
	m := NewMiddleware(quietLogger(), nil)

	var gotID string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if !strings.HasPrefix(gotID, "req_") {
		t.Errorf("request id = %q, want req_ prefix", gotID)
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 passed through", w.Code)
	}
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
