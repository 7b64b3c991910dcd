package report

import (
    "testing"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

func tptr(t time.Time) *time.Time { return &t }

func makeIssue(key, status string, o Options) domain.Issue {
    return domain.Issue{
        Key:       key,
        Summary:   "summary for " + key,
        Status:    domain.Status{Name: status, Category: o.Categorize(status)},
        IssueType: domain.NamedField{Name: "Task"},
        Priority:  domain.NamedField{Name: "Medium"},
    }
}

func TestAnalyze_ThreeIssueSprint(t *testing.T) {
    o := DefaultOptions()
    now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

    done := makeIssue("DEMO-1", "Done", o)
    done.Updated = tptr(now.Add(-24 * time.Hour))
    done.LatestActivity = done.Updated

    inProg := makeIssue("DEMO-2", "In Progress", o)
    inProg.Updated = tptr(now.Add(-10 * 24 * time.Hour))
    inProg.LatestActivity = inProg.Updated

    blocked := makeIssue("DEMO-3", "Blocked", o)
    blocked.Summary = "Waiting on vendor dependency"
    blocked.Updated = tptr(now.Add(-2 * 24 * time.Hour))
    blocked.LatestActivity = blocked.Updated

    res := NewAnalyzer(o).Analyze([]domain.Issue{done, inProg, blocked}, now)

    if res.Total() != 3 { t.Fatalf("total = %d", res.Total()) }
    if res.CountsByBucket[domain.BucketDone] != 1 ||
        res.CountsByBucket[domain.BucketInProgress] != 1 ||
        res.CountsByBucket[domain.BucketBlocked] != 1 {
        t.Fatalf("bucket counts wrong: %#v", res.CountsByBucket)
    }
    if res.CompletionRate < 0.33 || res.CompletionRate > 0.34 {
        t.Fatalf("completion rate = %f", res.CompletionRate)
    }
    if len(res.Stalled) != 1 || res.Stalled[0] != "DEMO-2" {
        t.Fatalf("stalled = %v, want [DEMO-2]", res.Stalled)
    }
    if len(res.Blocked) != 1 || res.Blocked[0] != "DEMO-3" {
        t.Fatalf("blocked = %v, want [DEMO-3]", res.Blocked)
    }
    // Two of three flagged.
    want := 100 * 1.0 / 3.0
    if diff := res.HealthScore - want; diff > 0.01 || diff < -0.01 {
        t.Fatalf("health score = %f, want %f", res.HealthScore, want)
    }
}

func TestAnalyze_EmptySet(t *testing.T) {
    res := NewAnalyzer(DefaultOptions()).Analyze(nil, time.Now())
    if res.Total() != 0 { t.Fatalf("total = %d", res.Total()) }
    if res.HealthScore != 100 { t.Fatalf("health score = %f, want 100", res.HealthScore) }
    if res.CompletionRate != 0 { t.Fatalf("completion rate = %f, want 0", res.CompletionRate) }
    for _, b := range domain.Buckets {
        if res.CountsByBucket[b] != 0 { t.Fatalf("bucket %s = %d", b, res.CountsByBucket[b]) }
    }
}

func TestAnalyze_BucketCountsConserveTotal(t *testing.T) {
    o := DefaultOptions()
    statuses := []string{"Done", "In Progress", "Blocked", "To Do", "Mystery", "Closed", "Review"}
    issues := make([]domain.Issue, 0, len(statuses))
    for i, st := range statuses {
        issues = append(issues, makeIssue(string(rune('A'+i))+"-1", st, o))
    }
    res := NewAnalyzer(o).Analyze(issues, time.Now())
    sum := 0
    for _, b := range domain.Buckets { sum += res.CountsByBucket[b] }
    if sum != res.Total() { t.Fatalf("bucket sum %d != total %d", sum, res.Total()) }
}

func TestAnalyze_StalledRequiresInProgress(t *testing.T) {
    o := DefaultOptions()
    now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
    old := tptr(now.Add(-30 * 24 * time.Hour))

    todo := makeIssue("DEMO-10", "To Do", o)
    todo.Updated = old
    doneIss := makeIssue("DEMO-11", "Done", o)
    doneIss.Updated = old
    noTimestamp := makeIssue("DEMO-12", "In Progress", o)

    res := NewAnalyzer(o).Analyze([]domain.Issue{todo, doneIss, noTimestamp}, now)
    if len(res.Stalled) != 0 { t.Fatalf("stalled = %v, want none", res.Stalled) }
}

func TestAnalyze_StalledSortedOldestFirst(t *testing.T) {
    o := DefaultOptions()
    now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

    newer := makeIssue("DEMO-20", "In Progress", o)
    newer.Updated = tptr(now.Add(-9 * 24 * time.Hour))
    older := makeIssue("DEMO-21", "In Progress", o)
    older.Updated = tptr(now.Add(-20 * 24 * time.Hour))

    res := NewAnalyzer(o).Analyze([]domain.Issue{newer, older}, now)
    if len(res.Stalled) != 2 || res.Stalled[0] != "DEMO-21" || res.Stalled[1] != "DEMO-20" {
        t.Fatalf("stalled = %v, want oldest first", res.Stalled)
    }
}

func TestAnalyze_RiskyFromKeywordAndPriority(t *testing.T) {
    o := DefaultOptions()
    now := time.Now()

    byWord := makeIssue("DEMO-30", "To Do", o)
    byWord.Description = "deadline is slipping fast"
    byPriority := makeIssue("DEMO-31", "To Do", o)
    byPriority.Priority = domain.NamedField{Name: "Critical"}
    calm := makeIssue("DEMO-32", "To Do", o)

    res := NewAnalyzer(o).Analyze([]domain.Issue{byWord, byPriority, calm}, now)
    if len(res.Risky) != 2 { t.Fatalf("risky = %v", res.Risky) }
}

func TestAnalyze_FlagsCountOncePerIssue(t *testing.T) {
    o := DefaultOptions()
    now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

    // Stalled, blocked keyword and risk keyword all on one issue.
    iss := makeIssue("DEMO-40", "In Progress", o)
    iss.Summary = "Blocked on critical dependency"
    iss.Updated = tptr(now.Add(-15 * 24 * time.Hour))
    clean := makeIssue("DEMO-41", "Done", o)

    res := NewAnalyzer(o).Analyze([]domain.Issue{iss, clean}, now)
    if res.HealthScore != 50 { t.Fatalf("health score = %f, want 50", res.HealthScore) }
}

func TestAnalyze_RecentActivityWindow(t *testing.T) {
    o := DefaultOptions()
    now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

    fresh := makeIssue("DEMO-50", "In Progress", o)
    fresh.LatestActivity = tptr(now.Add(-24 * time.Hour))
    stale := makeIssue("DEMO-51", "In Progress", o)
    stale.LatestActivity = tptr(now.Add(-5 * 24 * time.Hour))

    res := NewAnalyzer(o).Analyze([]domain.Issue{fresh, stale}, now)
    if len(res.RecentActivity) != 1 || res.RecentActivity[0] != "DEMO-50" {
        t.Fatalf("recent = %v, want [DEMO-50]", res.RecentActivity)
    }
}

func TestAnalyze_KeylessIssueExcluded(t *testing.T) {
    o := DefaultOptions()
    res := NewAnalyzer(o).Analyze([]domain.Issue{{Summary: "orphan"}}, time.Now())
    if res.Total() != 0 { t.Fatalf("total = %d, want 0", res.Total()) }
    if len(res.Warnings) != 1 { t.Fatalf("warnings = %v", res.Warnings) }
}
