package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"scanstation/internal/api"
)

func TestNewClientEmptyBase(t *testing.T) {
	client, err := api.NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty base")
	}
	if _, err := client.Status(context.Background()); !errors.Is(err, api.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable, got %v", err)
	}
}

func TestClientHistoryBuildsQueryAndSendsToken(t *testing.T) {
	var gotQuery url.Values
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.HistoryListResponse{
			Entries: []api.HistoryEntry{{ID: 1, RequestID: "a", Outcome: "served"}},
			Total:   1,
		})
	}))
	defer srv.Close()

	client, err := api.NewClient(srv.URL, "tok")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	resp, err := client.History(context.Background(), api.HistoryQuery{Outcome: "served", Limit: 5})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].RequestID != "a" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if gotQuery.Get("outcome") != "served" || gotQuery.Get("limit") != "5" {
		t.Fatalf("unexpected query %v", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"history disabled"}`))
	}))
	defer srv.Close()

	client, _ := api.NewClient(srv.URL, "")
	_, err := client.History(context.Background(), api.HistoryQuery{})
	if err == nil || api.IsAPIUnavailable(err) {
		t.Fatalf("expected API error, got %v", err)
	}
	if want := "history disabled"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q should mention %q", err, want)
	}
}

func TestIsAPIUnavailableOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	client, _ := api.NewClient(base, "")
	_, err := client.Status(context.Background())
	if !api.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
