package report

import (
    "encoding/json"
    "strings"
    "testing"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

func sampleResult(t *testing.T) *domain.ReportResult {
    t.Helper()
    o := DefaultOptions()
    now := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)

    a := makeIssue("DEMO-1", "Done", o)
    a.Assignee = &domain.UserRef{DisplayName: "Alice"}
    a.LatestActivity = tptr(now.Add(-2 * time.Hour))
    b := makeIssue("DEMO-2", "In Progress", o)
    b.Updated = tptr(now.Add(-10 * 24 * time.Hour))
    c := makeIssue("DEMO-3", "In Progress", o)
    c.LatestActivity = tptr(now.Add(-1 * time.Hour))

    return NewAnalyzer(o).Analyze([]domain.Issue{a, b, c}, now)
}

func TestRenderMarkdown_Sections(t *testing.T) {
    md := NewRenderer().RenderMarkdown(sampleResult(t), "DEMO", "2026-08-01 to 2026-08-14")
    for _, want := range []string{
        "# Status Update - DEMO",
        "Period: 2026-08-01 to 2026-08-14",
        "Executive Summary",
        "**Total Issues Reviewed:** 3",
        "Status Breakdown",
        "**Done:** 1 issues (33.3%)",
        "Needs Attention",
        "Team Activity",
        "**Unassigned:** 2 issues",
    } {
        if !strings.Contains(md, want) { t.Fatalf("markdown missing %q:\n%s", want, md) }
    }
}

func TestRenderMarkdown_BucketOrderedByActivity(t *testing.T) {
    md := NewRenderer().RenderMarkdown(sampleResult(t), "DEMO", "w")
    // Within In Progress, the more recently active DEMO-3 lists first.
    i3 := strings.Index(md, "[DEMO-3]")
    i2 := strings.Index(md, "[DEMO-2]")
    if i3 < 0 || i2 < 0 || i3 > i2 { t.Fatalf("ordering wrong: DEMO-3 at %d, DEMO-2 at %d", i3, i2) }
}

func TestRenderMarkdown_Deterministic(t *testing.T) {
    r := NewRenderer()
    res := sampleResult(t)
    if r.RenderMarkdown(res, "DEMO", "w") != r.RenderMarkdown(res, "DEMO", "w") {
        t.Fatal("same result rendered differently")
    }
}

func TestRenderMarkdown_EmptyResult(t *testing.T) {
    res := NewAnalyzer(DefaultOptions()).Analyze(nil, time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC))
    md := NewRenderer().RenderMarkdown(res, "DEMO", "w")
    if !strings.Contains(md, "**Total Issues Reviewed:** 0") { t.Fatalf("missing zero total:\n%s", md) }
    if !strings.Contains(md, "**Health Score:** 100/100") { t.Fatalf("missing perfect health:\n%s", md) }
    if !strings.Contains(md, "No recent activity in the window.") { t.Fatalf("missing empty recent section:\n%s", md) }
}

func TestRenderMarkdown_WarningsFooterCountsWarnings(t *testing.T) {
    res := sampleResult(t)
    // Two warnings from the same issue must be reported as two warnings, not
    // as two affected issues.
    res.Warnings = []string{"DEMO-1: comment 0 unparseable, skipped", "DEMO-1: changelog entry 1 unparseable, skipped"}
    md := NewRenderer().RenderMarkdown(res, "DEMO", "w")
    if !strings.Contains(md, "_2 partial-data warnings._") { t.Fatalf("footer missing or miscounted:\n%s", md) }
}

func TestRenderJSON_RoundTripsCounts(t *testing.T) {
    res := sampleResult(t)
    data, err := NewRenderer().RenderJSON(res)
    if err != nil { t.Fatalf("unexpected error: %v", err) }
    var back domain.ReportResult
    if err := json.Unmarshal(data, &back); err != nil { t.Fatalf("invalid json: %v", err) }
    if back.CountsByBucket[domain.BucketDone] != 1 { t.Fatalf("counts lost: %#v", back.CountsByBucket) }
    if len(back.Issues) != 3 { t.Fatalf("issues lost: %d", len(back.Issues)) }
}
