package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/config"
    "github.com/mrVectorz/jira-status-automation/internal/domain"
    "github.com/rs/zerolog"
    "golang.org/x/time/rate"
)

// Client is a thin REST client over the tracker's search and issue endpoints.
// Credentials are passed through on each request and never logged.
type Client struct {
    baseURL string
    token   string
    user    string
    pass    string
    http    *http.Client
    log     zerolog.Logger
    apiVer  string
    retries int
    limiter *rate.Limiter
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    retries := cfg.MaxRetries
    if retries <= 0 { retries = 3 }
    rps := cfg.RatePerSec
    if rps <= 0 { rps = 5 }
    return &Client{
        baseURL: cfg.JiraBaseURL,
        token:   cfg.JiraPAT,
        user:    cfg.JiraUsername,
        pass:    cfg.JiraPassword,
        http:    &http.Client{Timeout: cfg.HTTPTimeout},
        log:     log,
        apiVer:  cfg.JiraAPIVersion,
        retries: retries,
        limiter: rate.NewLimiter(rate.Limit(rps), 1),
    }
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) restPath(suffix string) string {
    if c.apiVer == "3" { return "/rest/api/3" + suffix }
    return "/rest/api/2" + suffix
}

func (c *Client) authorize(req *http.Request) {
    if c.token != "" {
        req.Header.Set("Authorization", "Bearer "+c.token)
    } else if c.user != "" && c.pass != "" {
        req.SetBasicAuth(c.user, c.pass)
    }
}

// doJSON performs one request with bounded exponential backoff. 401/403 aborts
// immediately as AuthError; 429/5xx and network failures are retried until the
// attempt ceiling, then surfaced as TransientError.
func (c *Client) doJSON(ctx context.Context, method, u string) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var lastErr error
    for attempt := 0; attempt < c.retries; attempt++ {
        if attempt > 0 {
            backoff := time.Duration(300*(1<<(attempt-1))) * time.Millisecond
            select {
            case <-ctx.Done():
                return nil, ctx.Err()
            case <-time.After(backoff):
            }
        }
        if err := c.limiter.Wait(ctx); err != nil { return nil, err }
        req, err := http.NewRequestWithContext(ctx, method, u, nil)
        if err != nil { return nil, err }
        req.Header.Set("Accept", "application/json")
        c.authorize(req)
        resp, err := c.http.Do(req)
        if err != nil {
            if ctx.Err() != nil { return nil, ctx.Err() }
            lastErr = err
            continue
        }
        if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
            b, _ := io.ReadAll(resp.Body)
            resp.Body.Close()
            return nil, &domain.AuthError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
        }
        if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
            b, _ := io.ReadAll(resp.Body)
            resp.Body.Close()
            lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
            continue
        }
        if resp.StatusCode >= 300 {
            b, _ := io.ReadAll(resp.Body)
            resp.Body.Close()
            return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
        }
        var out map[string]any
        err = json.NewDecoder(resp.Body).Decode(&out)
        resp.Body.Close()
        if err != nil { return nil, err }
        return out, nil
    }
    return nil, &domain.TransientError{Attempts: c.retries, Err: lastErr}
}

// Search runs a JQL query for one page, changelog expanded.
func (c *Client) Search(ctx context.Context, jql string, startAt, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    q := url.Values{}
    q.Set("jql", jql)
    q.Set("startAt", fmt.Sprint(startAt))
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    q.Set("fields", "*all")
    q.Set("expand", "changelog")
    return c.doJSON(ctx, http.MethodGet, c.apiURL(c.restPath("/search"), q))
}

// Comments fetches one page of comments for an issue.
func (c *Client) Comments(ctx context.Context, key string, startAt, max int) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    path := c.restPath("/issue/" + url.PathEscape(key) + "/comment")
    return c.doJSON(ctx, http.MethodGet, c.apiURL(path, q))
}

// Changelog pages an issue's change history beyond what expand=changelog
// returned.
func (c *Client) Changelog(ctx context.Context, key string, startAt, max int) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    path := c.restPath("/issue/" + url.PathEscape(key) + "/changelog")
    return c.doJSON(ctx, http.MethodGet, c.apiURL(path, q))
}

// Issue fetches a single issue with full fields and optional changelog.
func (c *Client) Issue(ctx context.Context, key string, expandChangelog bool) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    q.Set("fields", "*all")
    if expandChangelog { q.Set("expand", "changelog") }
    path := c.restPath("/issue/" + url.PathEscape(key))
    return c.doJSON(ctx, http.MethodGet, c.apiURL(path, q))
}
