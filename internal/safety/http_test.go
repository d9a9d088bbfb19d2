package safety

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const safetyTestMint = "So11111111111111111111111111111111111111112"

func TestHTTPCheckerCheckSafety(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/tokens/" + safetyTestMint + "/safety"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		w.Write([]byte(`{"mint":"` + safetyTestMint + `","score":72.5,"blockingFlags":["MINT_AUTHORITY_ACTIVE"]}`))
	}))
	defer server.Close()

	hc := NewHTTPChecker(server.URL, 5*time.Second)
	result, err := hc.CheckSafety(context.Background(), safetyTestMint)
	if err != nil {
		t.Fatalf("CheckSafety: %v", err)
	}
	if result.Score != 72.5 {
		t.Errorf("Score = %v, want 72.5", result.Score)
	}
	if len(result.BlockingFlags) != 1 || result.BlockingFlags[0] != "MINT_AUTHORITY_ACTIVE" {
		t.Errorf("BlockingFlags = %v", result.BlockingFlags)
	}
	if result.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
}

func TestHTTPCheckerCheckBundleRisk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/tokens/" + safetyTestMint + "/bundle"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		w.Write([]byte(`{"mint":"` + safetyTestMint + `","riskScore":18,"riskLevel":"LOW"}`))
	}))
	defer server.Close()

	hc := NewHTTPChecker(server.URL, 5*time.Second)
	result, err := hc.CheckBundleRisk(context.Background(), safetyTestMint)
	if err != nil {
		t.Fatalf("CheckBundleRisk: %v", err)
	}
	if result.RiskScore != 18 || result.RiskLevel != "LOW" {
		t.Errorf("result = %+v", result)
	}
}

func TestHTTPCheckerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			hc := NewHTTPChecker(server.URL, 5*time.Second)
			if _, err := hc.CheckSafety(context.Background(), safetyTestMint); err == nil {
				t.Error("expected error")
			}
		})
	}
}
