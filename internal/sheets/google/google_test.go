package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{" Ledger ", 2025, "2025 Ledger"},
		{"2023 Ledger", 2024, "2023 Ledger"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("New() error = %v, want missing GOOGLE_SPREADSHEET_ID", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "abc"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("New() error = %v", err)
	}
}

func TestAppendEntry(t *testing.T) {
	var gotPath string
	var gotBody gsheet.ValueRange

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
			t.Errorf("valueInputOption = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"'2024 Ledger'!A5:G5"}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c := NewWithService(svc, "sheet-id", "")

	ref, err := c.AppendEntry(context.Background(), core.LedgerEntry{
		Direction:      core.Income,
		ItemID:         3,
		DefinitionName: "Salary",
		Amount:         core.Money{Cents: 250000},
		PaymentDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:         core.StatusFinished,
		PaymentMethod:  core.Popular,
	})
	if err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	if ref != "'2024 Ledger'!A5:G5" {
		t.Errorf("AppendEntry() ref = %q", ref)
	}
	if !strings.Contains(gotPath, "sheet-id") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("request path = %q", gotPath)
	}
	if len(gotBody.Values) != 1 || gotBody.Values[0][2] != "Salary" {
		t.Errorf("request values = %v", gotBody.Values)
	}
}
