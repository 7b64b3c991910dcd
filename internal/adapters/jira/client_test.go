package jira

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

func testClient(baseURL string) *Client {
    cfg := config.Config{
        JiraBaseURL:    baseURL,
        JiraPAT:        "token",
        JiraAPIVersion: "2",
        HTTPTimeout:    5 * time.Second,
        MaxRetries:     3,
        RatePerSec:     1000,
    }
    return NewClient(cfg, zerolog.Nop())
}

func TestSearch_SendsAuthAndParams(t *testing.T) {
    var gotAuth, gotJQL, gotExpand string
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotAuth = r.Header.Get("Authorization")
        gotJQL = r.URL.Query().Get("jql")
        gotExpand = r.URL.Query().Get("expand")
        w.Header().Set("Content-Type", "application/json")
        w.Write([]byte(`{"issues":[],"total":0}`))
    }))
    defer srv.Close()

    c := testClient(srv.URL)
    out, err := c.Search(context.Background(), `project = "DEMO"`, 0, 50)
    if err != nil { t.Fatalf("unexpected error: %v", err) }
    if out == nil { t.Fatal("nil payload") }
    if gotAuth != "Bearer token" { t.Fatalf("auth = %q", gotAuth) }
    if gotJQL != `project = "DEMO"` { t.Fatalf("jql = %q", gotJQL) }
    if gotExpand != "changelog" { t.Fatalf("expand = %q", gotExpand) }
}

func TestDoJSON_AuthFailureNotRetried(t *testing.T) {
    calls := 0
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        w.WriteHeader(http.StatusUnauthorized)
        w.Write([]byte("expired token"))
    }))
    defer srv.Close()

    _, err := testClient(srv.URL).Search(context.Background(), "x", 0, 50)
    var aerr *domain.AuthError
    if !errors.As(err, &aerr) { t.Fatalf("expected AuthError, got %v", err) }
    if aerr.Status != http.StatusUnauthorized { t.Fatalf("status = %d", aerr.Status) }
    if calls != 1 { t.Fatalf("calls = %d, want 1", calls) }
}

func TestDoJSON_ServerErrorsRetriedThenTransient(t *testing.T) {
    calls := 0
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        w.WriteHeader(http.StatusBadGateway)
    }))
    defer srv.Close()

    _, err := testClient(srv.URL).Search(context.Background(), "x", 0, 50)
    var terr *domain.TransientError
    if !errors.As(err, &terr) { t.Fatalf("expected TransientError, got %v", err) }
    if terr.Attempts != 3 || calls != 3 { t.Fatalf("attempts = %d, calls = %d", terr.Attempts, calls) }
}

func TestDoJSON_RecoversAfterRetry(t *testing.T) {
    calls := 0
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        if calls == 1 {
            w.WriteHeader(http.StatusTooManyRequests)
            return
        }
        w.Write([]byte(`{"issues":[],"total":0}`))
    }))
    defer srv.Close()

    if _, err := testClient(srv.URL).Search(context.Background(), "x", 0, 50); err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if calls != 2 { t.Fatalf("calls = %d, want 2", calls) }
}

func TestDoJSON_ClientErrorNotRetried(t *testing.T) {
    calls := 0
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        w.WriteHeader(http.StatusBadRequest)
        w.Write([]byte(`{"errorMessages":["bad jql"]}`))
    }))
    defer srv.Close()

    _, err := testClient(srv.URL).Search(context.Background(), "x", 0, 50)
    if err == nil { t.Fatal("expected error") }
    var terr *domain.TransientError
    if errors.As(err, &terr) { t.Fatalf("4xx should not be transient: %v", err) }
    if calls != 1 { t.Fatalf("calls = %d, want 1", calls) }
}

func TestRestPath_Versioned(t *testing.T) {
    c := testClient("http://x")
    if p := c.restPath("/search"); p != "/rest/api/2/search" { t.Fatalf("path = %q", p) }
    c.apiVer = "3"
    if p := c.restPath("/search"); p != "/rest/api/3/search" { t.Fatalf("path = %q", p) }
}
