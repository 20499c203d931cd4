package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgerrors "profile-card/pkg/errors"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantErr     bool
		errContains string
	}{
		{name: "memory", provider: "memory", wantErr: false},
		{name: "env", provider: "env", wantErr: false},
		{name: "empty defaults to env", provider: "", wantErr: false},
		{name: "file", provider: "file", wantErr: false},
		{name: "unknown provider", provider: "unknown", wantErr: true, errContains: "unsupported secret provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider, File: filepath.Join(t.TempDir(), "cookie.txt")})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tc.errContains != "" && !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("error = %q, want contains %q", err.Error(), tc.errContains)
				}
				if store != nil {
					t.Fatalf("store should be nil when error occurs")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatalf("store should not be nil")
			}
		})
	}
}

func TestStoresReadContract(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SECRET_TEST_KEY", "value")
	file := filepath.Join(t.TempDir(), "cookie.txt")
	if err := os.WriteFile(file, []byte("value"), 0600); err != nil {
		t.Fatal(err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(map[string]string{"SECRET_TEST_KEY": "value"}),
		"env":    NewEnvStore(),
		"file":   NewFileStore(file),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, "SECRET_TEST_KEY")
			if err != nil {
				t.Fatalf("get secret failed: %v", err)
			}
			if got != "value" {
				t.Fatalf("get secret = %q, want value", got)
			}
		})
	}
}

func TestStoresMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	stores := map[string]Store{
		"memory": NewMemoryStore(nil),
		"env":    NewEnvStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "absent.txt")),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "SECRET_TEST_MISSING_KEY")
			if !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	values := map[string]string{"k": "v1"}
	s := NewMemoryStore(values)
	values["k"] = "v2"
	got, err := s.Get(context.Background(), "k")
	if err != nil || got != "v1" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestFileStore_TrimsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.txt")
	if err := os.WriteFile(path, []byte("  SESSDATA=abc; bili_jct=def \n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileStore(path).Get(context.Background(), "any")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "SESSDATA=abc; bili_jct=def" {
		t.Fatalf("got %q", got)
	}
}

func TestFileStore_EmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.txt")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Get(context.Background(), "any")
	if !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// newFakeVault 模拟 Vault HTTP API：secret 挂载点下 COOKIE 为 KV v2，LEGACY 为 KV v1
func newFakeVault(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/v1/sys/health" && r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		switch r.URL.Path {
		case "/v1/sys/health":
			_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false,"version":"1.15.0"}`))
		case "/v1/secret/data/COOKIE":
			_, _ = w.Write([]byte(`{"data":{"data":{"value":"SESSDATA=v2"},"metadata":{"version":1}}}`))
		case "/v1/secret/LEGACY":
			_, _ = w.Write([]byte(`{"data":{"value":"SESSDATA=v1"}}`))
		case "/v1/secret/data/NOFIELD":
			_, _ = w.Write([]byte(`{"data":{"data":{"other":"x"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultStore_Get(t *testing.T) {
	srv := newFakeVault(t)
	store, err := NewStore(Config{
		Provider: "vault",
		Vault:    VaultConfig{Address: srv.URL, Token: "test-token"},
	})
	if err != nil {
		t.Fatalf("NewStore vault: %v", err)
	}
	ctx := context.Background()

	got, err := store.Get(ctx, "COOKIE")
	if err != nil || got != "SESSDATA=v2" {
		t.Fatalf("kv v2: got %q, %v", got, err)
	}
	got, err = store.Get(ctx, "LEGACY")
	if err != nil || got != "SESSDATA=v1" {
		t.Fatalf("kv v1 fallback: got %q, %v", got, err)
	}
	if _, err := store.Get(ctx, "MISSING"); !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "NOFIELD"); !pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("no value field: expected ErrNotFound, got %v", err)
	}
}

func TestVaultStore_ReadErrorIsNotNotFound(t *testing.T) {
	srv := newFakeVault(t)
	store, err := NewVaultStore(VaultConfig{Address: srv.URL, Token: "wrong"})
	if err != nil {
		t.Fatalf("NewVaultStore: %v", err)
	}
	_, err = store.Get(context.Background(), "COOKIE")
	if err == nil || pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected read error, got %v", err)
	}
}
