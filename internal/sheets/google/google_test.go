package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"balansim/internal/core"
	"balansim/internal/sheets"
)

type fakeSheet struct {
	mu       sync.Mutex
	column   [][]any
	appended []string
	cleared  []string
	fail     bool
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":append"):
		b, _ := io.ReadAll(r.Body)
		f.appended = append(f.appended, string(b))
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case strings.HasSuffix(r.URL.Path, ":clear"):
		rng := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.cleared = append(f.cleared, strings.TrimSuffix(rng, ":clear"))
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	default:
		json.NewEncoder(w).Encode(map[string]any{"values": f.column})
	}
}

func newTestClient(t *testing.T, f *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{SpreadsheetID: "sid", SheetName: "Transactions"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	if _, err := New(context.Background(), Options{SheetName: "x"}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	_, err := New(context.Background(), Options{SpreadsheetID: "sid", CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected credentials file error, got %v", err)
	}
}

func TestCredentialOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		o    Options
		want int
	}{
		{"default credentials", Options{}, 1},
		{"inline json", Options{CredentialsJSON: `{"type":"service_account"}`}, 2},
		{"file", Options{CredentialsFile: path}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := credentialOptions(context.Background(), tt.o)
			if err != nil {
				t.Fatalf("credentialOptions() error = %v", err)
			}
			if len(opts) != tt.want {
				t.Fatalf("got %d options, want %d", len(opts), tt.want)
			}
		})
	}
}

func TestAppendRow(t *testing.T) {
	f := &fakeSheet{}
	c := newTestClient(t, f)

	row := sheets.Row{
		ID:       "t-1",
		Date:     time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		Type:     core.Expense,
		Category: "Food",
		Amount:   core.Money{Cents: 1250},
		Note:     "lunch",
	}
	if err := c.AppendRow(context.Background(), row); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}
	if len(f.appended) != 1 {
		t.Fatalf("expected one append call, got %d", len(f.appended))
	}
	for _, want := range []string{`"t-1"`, `"2025-06-15T10:00:00Z"`, `"EXPENSE"`, `"Food"`, `12.5`, `"lunch"`} {
		if !strings.Contains(f.appended[0], want) {
			t.Errorf("append body %s missing %s", f.appended[0], want)
		}
	}
}

func TestDeleteRow(t *testing.T) {
	f := &fakeSheet{column: [][]any{{"id"}, {"t-1"}, {}, {"t-2"}}}
	c := newTestClient(t, f)

	removed, err := c.DeleteRow(context.Background(), "t-2")
	if err != nil || !removed {
		t.Fatalf("DeleteRow(t-2) = %v, %v", removed, err)
	}
	if len(f.cleared) != 1 || f.cleared[0] != "Transactions!A4:F4" {
		t.Fatalf("unexpected clear ranges %v", f.cleared)
	}

	removed, err = c.DeleteRow(context.Background(), "t-9")
	if err != nil || removed {
		t.Fatalf("DeleteRow(missing) = %v, %v", removed, err)
	}
}

func TestExternalFailure(t *testing.T) {
	f := &fakeSheet{fail: true}
	c := newTestClient(t, f)

	if err := c.AppendRow(context.Background(), sheets.Row{ID: "x"}); !errors.Is(err, core.ErrExternalService) {
		t.Fatalf("AppendRow() expected ErrExternalService, got %v", err)
	}
	if _, err := c.DeleteRow(context.Background(), "x"); !errors.Is(err, core.ErrExternalService) {
		t.Fatalf("DeleteRow() expected ErrExternalService, got %v", err)
	}
}
