package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/muster/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 1})(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("first requests = %v, want 204s", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.NewNop()

	tests := []struct {
		name       string
		allowed    []string
		trustProxy bool
		remote     string
		xff        string
		want       int
	}{
		{"empty list passes through", nil, false, "192.0.2.1:1234", "", http.StatusNoContent},
		{"cidr match", []string{"192.0.2.0/24"}, false, "192.0.2.1:1234", "", http.StatusNoContent},
		{"exact ip", []string{"127.0.0.1"}, false, "127.0.0.1:5555", "", http.StatusNoContent},
		{"rejected", []string{"10.0.0.0/8"}, false, "192.0.2.1:1234", "", http.StatusForbidden},
		{"proxy header ignored", []string{"10.0.0.0/8"}, false, "192.0.2.1:1234", "10.1.1.1", http.StatusForbidden},
		{"proxy header trusted", []string{"10.0.0.0/8"}, true, "192.0.2.1:1234", "10.1.1.1, 192.0.2.1", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, log)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
