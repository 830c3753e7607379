package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		target     string
		method     string
		userAgent  string
		suspicious bool
	}{
		{"plain api call", "/api/transactions", http.MethodGet, "financeiro-cli/1.0", false},
		{"path traversal", "/api/../../etc/passwd", http.MethodGet, "", true},
		{"dotenv probe", "/.env", http.MethodGet, "", true},
		{"sql injection in query", "/api/transactions?q=union%20select", http.MethodGet, "", true},
		{"scanner user agent", "/api/transactions", http.MethodGet, "sqlmap/1.7", true},
		{"trace method", "/api/transactions", "TRACE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.userAgent != "" {
				r.Header.Set("User-Agent", tt.userAgent)
			}
			if got := d.DetectSuspiciousRequest(r); got != tt.suspicious {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.suspicious)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct connection", "203.0.113.7:1234", "", "203.0.113.7"},
		{"forwarded via trusted proxy", "127.0.0.1:1234", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
		{"forwarded via untrusted peer", "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
		{"garbage forwarded header", "127.0.0.1:1234", "not-an-ip", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Errorf("ExtractClientIP() = %q, want forwarded header honored after trusting the peer", got)
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("AddTrustedProxy accepted an invalid CIDR")
	}
}
