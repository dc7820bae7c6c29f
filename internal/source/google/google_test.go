package google

import (
	"context"
	"testing"
)

func TestParseEntries_UnformattedValues(t *testing.T) {
	values := [][]interface{}{
		{"id", "person_name", "project_name", "project_code", "task_name", "duration"},
		{1.0, "A", "X", "1234-56-78", "t1", 3.0},
		{2.0, "A", "X", "1234-56-78", "t2", 2.25},
		{3.0, "B", "Y", nil, "t1", -1.0},
	}

	entries := parseEntries(context.Background(), values)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 1 || entries[0].ProjectCode != "1234-56-78" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if got := entries[1].Duration.String(); got != "2.25" {
		t.Fatalf("duration: got %s", got)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{nil, "a", 1.5, 3.0, true, 7})
	want := []string{"", "a", "1.5", "3", "true", "7"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "abc"})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestOAuthHTTPClient_RejectsBadToken(t *testing.T) {
	client := []byte(`{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`)

	if _, err := oauthHTTPClient(context.Background(), client, []byte(`{}`)); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := oauthHTTPClient(context.Background(), client, []byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := oauthHTTPClient(context.Background(), client, []byte(`{"refresh_token":"r"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
