package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verimed/insure/internal/platform/apperr"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestRegisterDID_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/dids" {
			t.Errorf("expected /dids, got %s", r.URL.Path)
		}
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Name != "City General" {
			t.Errorf("expected name 'City General', got %q", req.Name)
		}
		if req.Method != "hlf" {
			t.Errorf("expected method 'hlf', got %q", req.Method)
		}
		json.NewEncoder(w).Encode(registerResponse{DID: "did:hlf:abc123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hlf", time.Second, testLogger())
	did, err := c.RegisterDID(context.Background(), "City General")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if did != "did:hlf:abc123" {
		t.Errorf("expected did:hlf:abc123, got %q", did)
	}
}

func TestRegisterDID_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(registerResponse{DID: "did:hlf:late"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hlf", 50*time.Millisecond, testLogger())
	_, err := c.RegisterDID(context.Background(), "Slow Hospital")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if apperr.CodeOf(err) != apperr.CodeUpstreamTimeout {
		t.Errorf("expected upstream timeout code, got %s", apperr.CodeOf(err))
	}
}

func TestRegisterDID_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "hlf", 100*time.Millisecond, testLogger())
	_, err := c.RegisterDID(context.Background(), "Nowhere Clinic")
	if err == nil {
		t.Fatal("expected error for unreachable registry")
	}
	if apperr.CodeOf(err) != apperr.CodeUpstreamTimeout {
		t.Errorf("expected upstream timeout code, got %s", apperr.CodeOf(err))
	}
}

func TestRegisterDID_RegistryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hlf", time.Second, testLogger())
	_, err := c.RegisterDID(context.Background(), "Broken Hospital")
	if err == nil {
		t.Fatal("expected error for 500 from registry")
	}
	if apperr.CodeOf(err) != apperr.CodeStorage {
		t.Errorf("expected storage code, got %s", apperr.CodeOf(err))
	}
}

func TestRegisterDID_EmptyName(t *testing.T) {
	c := NewClient("http://localhost:4000", "hlf", time.Second, testLogger())
	_, err := c.RegisterDID(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected error for empty name")
	}
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("expected invalid input code, got %s", apperr.CodeOf(err))
	}
}

func TestRegisterDID_EmptyDIDInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(registerResponse{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hlf", time.Second, testLogger())
	_, err := c.RegisterDID(context.Background(), "Empty Registry")
	if err == nil {
		t.Fatal("expected error for empty did in response")
	}
}
