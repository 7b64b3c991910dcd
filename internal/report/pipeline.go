package report

import (
    "context"
    "fmt"
    "sort"
    "time"

    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

// Pipeline runs the full fetch/normalize/analyze chain for one or more
// projects and produces a single merged ReportResult.
type Pipeline struct {
    fetcher    *Fetcher
    normalizer *Normalizer
    analyzer   *Analyzer
    log        zerolog.Logger

    // Now is injectable so scheduled runs and tests get stable output.
    Now func() time.Time
}

func NewPipeline(fetcher *Fetcher, opts Options, log zerolog.Logger) *Pipeline {
    return &Pipeline{
        fetcher:    fetcher,
        normalizer: NewNormalizer(opts),
        analyzer:   NewAnalyzer(opts),
        log:        log.With().Str("component", "report-pipeline").Logger(),
        Now:        time.Now,
    }
}

// LookupIssue fetches and normalizes a single issue by key.
func (p *Pipeline) LookupIssue(ctx context.Context, key string) (domain.Issue, []string, error) {
    raw, err := p.fetcher.FetchIssue(ctx, key)
    if err != nil { return domain.Issue{}, nil, err }
    return p.normalizer.Normalize(raw)
}

// Run fetches every project in the window, normalizes and deduplicates the
// issues, and returns the analyzed result. All project keys are validated
// before any network traffic. An issue appearing under several fetches keeps
// the last seen version.
func (p *Pipeline) Run(ctx context.Context, projectKeys []string, start, end time.Time) (*domain.ReportResult, error) {
    if len(projectKeys) == 0 {
        return nil, &domain.ValidationError{Field: "project_key", Reason: "at least one project key required"}
    }
    for _, key := range projectKeys {
        if err := ValidateWindow(key, start, end); err != nil { return nil, err }
    }

    seen := map[string]domain.Issue{}
    order := []string{}
    var warnings []string

    for _, key := range projectKeys {
        fetched := 0
        err := p.fetcher.Fetch(ctx, key, start, end, func(raw map[string]any) error {
            iss, ws, err := p.normalizer.Normalize(raw)
            if err != nil {
                warnings = append(warnings, fmt.Sprintf("%s: skipped issue: %v", key, err))
                return nil
            }
            warnings = append(warnings, ws...)
            if _, ok := seen[iss.Key]; !ok { order = append(order, iss.Key) }
            seen[iss.Key] = iss
            fetched++
            return nil
        })
        if err != nil { return nil, err }
        p.log.Debug().Str("project", key).Int("issues", fetched).Msg("project fetched")
    }

    issues := make([]domain.Issue, 0, len(order))
    for _, key := range order { issues = append(issues, seen[key]) }
    sort.Slice(issues, func(i, j int) bool { return issues[i].Key < issues[j].Key })

    res := p.analyzer.Analyze(issues, p.Now())
    res.ProjectKeys = append([]string{}, projectKeys...)
    res.PeriodStart = start
    res.PeriodEnd = end
    res.Warnings = append(warnings, res.Warnings...)
    p.log.Info().
        Strs("projects", projectKeys).
        Int("issues", res.Total()).
        Float64("health", res.HealthScore).
        Msg("report computed")
    return res, nil
}
