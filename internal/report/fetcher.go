package report

import (
    "context"
    "fmt"
    "regexp"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
    "github.com/rs/zerolog"
)

// SearchClient is the remote capability the fetcher drives. Retry, backoff
// and auth classification live behind this interface.
type SearchClient interface {
    Search(ctx context.Context, jql string, startAt, max int) (map[string]any, error)
    Comments(ctx context.Context, key string, startAt, max int) (map[string]any, error)
    Changelog(ctx context.Context, key string, startAt, max int) (map[string]any, error)
    Issue(ctx context.Context, key string, expandChangelog bool) (map[string]any, error)
}

var (
    projectKeyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
    issueKeyRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-[0-9]+$`)
)

// Fetcher retrieves every issue in a project updated within a window, page by
// page, enriching each payload with its full comment and changelog history.
type Fetcher struct {
    client   SearchClient
    pageSize int
    log      zerolog.Logger
}

func NewFetcher(client SearchClient, pageSize int, log zerolog.Logger) *Fetcher {
    if pageSize <= 0 || pageSize > 100 { pageSize = 50 }
    return &Fetcher{client: client, pageSize: pageSize, log: log}
}

// ValidateWindow rejects bad input before any network call is made.
func ValidateWindow(projectKey string, start, end time.Time) error {
    if !projectKeyRe.MatchString(projectKey) {
        return &domain.ValidationError{Field: "project_key", Reason: fmt.Sprintf("%q must match %s", projectKey, projectKeyRe.String())}
    }
    if start.IsZero() || end.IsZero() {
        return &domain.ValidationError{Field: "date_range", Reason: "start and end dates are required"}
    }
    if start.After(end) {
        return &domain.ValidationError{Field: "date_range", Reason: "start date is after end date"}
    }
    return nil
}

// BuildJQL selects issues updated within [start, end], end-of-day inclusive,
// most recently updated first.
func BuildJQL(projectKey string, start, end time.Time) string {
    return fmt.Sprintf(`project = "%s" AND updated >= "%s" AND updated <= "%s 23:59" ORDER BY updated DESC`,
        projectKey, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Fetch streams raw issue payloads to fn in server order. The sequence is
// finite and non-restartable; any failure after the first page is wrapped as
// PartialDataError so a truncated set is never mistaken for a complete one.
// Cancellation is honored between page requests.
func (f *Fetcher) Fetch(ctx context.Context, projectKey string, start, end time.Time, fn func(raw map[string]any) error) error {
    if err := ValidateWindow(projectKey, start, end); err != nil { return err }
    jql := BuildJQL(projectKey, start, end)
    f.log.Debug().Str("project", projectKey).Str("jql", jql).Msg("fetch: start")

    fetched := 0
    wrap := func(err error) error {
        if fetched > 0 { return &domain.PartialDataError{Fetched: fetched, Err: err} }
        return err
    }

    startAt := 0
    for {
        if err := ctx.Err(); err != nil { return wrap(err) }
        page, err := f.client.Search(ctx, jql, startAt, f.pageSize)
        if err != nil { return wrap(err) }
        issues, _ := page["issues"].([]any)
        total := intField(page, "total")
        if len(issues) == 0 { break }
        for _, it := range issues {
            raw, _ := it.(map[string]any)
            if raw == nil { continue }
            if err := f.enrich(ctx, raw); err != nil { return wrap(err) }
            if err := fn(raw); err != nil { return wrap(err) }
            fetched++
        }
        // A short page mid-sequence is only final when the reported total is
        // exhausted.
        if total > 0 && startAt+len(issues) >= total { break }
        if total == 0 && len(issues) < f.pageSize { break }
        startAt += len(issues)
    }
    f.log.Info().Str("project", projectKey).Int("issues", fetched).Msg("fetch: done")
    return nil
}

// FetchIssue retrieves one issue by key with its full comment and changelog
// history, for detail lookups outside a windowed run.
func (f *Fetcher) FetchIssue(ctx context.Context, key string) (map[string]any, error) {
    if !issueKeyRe.MatchString(key) {
        return nil, &domain.ValidationError{Field: "issue_key", Reason: fmt.Sprintf("%q must match %s", key, issueKeyRe.String())}
    }
    raw, err := f.client.Issue(ctx, key, true)
    if err != nil { return nil, err }
    if err := f.enrich(ctx, raw); err != nil { return nil, err }
    return raw, nil
}

// enrich pulls the full comment list and any changelog pages the search
// expand truncated, attaching them to the raw payload untruncated.
func (f *Fetcher) enrich(ctx context.Context, raw map[string]any) error {
    key := toStr(raw["key"])
    if key == "" { return nil }

    var comments []any
    cStart := 0
    for {
        page, err := f.client.Comments(ctx, key, cStart, 100)
        if err != nil { return err }
        arr, _ := page["comments"].([]any)
        if len(arr) == 0 { break }
        comments = append(comments, arr...)
        total := intField(page, "total")
        next := intField(page, "startAt") + intField(page, "maxResults")
        // Servers that omit the paging echo would pin next at zero; always
        // advance by at least the page actually received.
        if next <= cStart { next = cStart + len(arr) }
        if total == 0 || next >= total { break }
        cStart = next
    }
    raw["comments"] = comments

    ch, _ := raw["changelog"].(map[string]any)
    if ch == nil { return nil }
    histories, _ := ch["histories"].([]any)
    total := intField(ch, "total")
    if total <= len(histories) { return nil }
    hStart := intField(ch, "startAt") + len(histories)
    for {
        page, err := f.client.Changelog(ctx, key, hStart, 100)
        if err != nil { return err }
        var vals []any
        if vv, ok := page["values"].([]any); ok { vals = vv } else if vv, ok := page["histories"].([]any); ok { vals = vv }
        if len(vals) == 0 { break }
        histories = append(histories, vals...)
        if t := intField(page, "total"); t > 0 { total = t }
        hStart += len(vals)
        if hStart >= total { break }
    }
    ch["histories"] = histories
    return nil
}

func intField(m map[string]any, key string) int {
    switch v := m[key].(type) {
    case float64:
        return int(v)
    case int:
        return v
    case int64:
        return int(v)
    }
    return 0
}
