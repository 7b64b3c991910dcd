package report

import (
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

// Analyzer classifies a set of normalized issues into scrum buckets and
// attention flags. It is the single place these heuristics live; everything
// downstream only displays what it computed.
type Analyzer struct {
    opts Options
}

func NewAnalyzer(opts Options) *Analyzer { return &Analyzer{opts: opts} }

// Analyze derives buckets, flags and aggregates from issues as of now. Empty
// input yields all-zero aggregates and a health score of 100, never an error.
// Issues missing a key are excluded from every bucket and recorded as
// warnings on the result.
func (a *Analyzer) Analyze(issues []domain.Issue, now time.Time) *domain.ReportResult {
    res := &domain.ReportResult{
        GeneratedAt:      now,
        Issues:           []domain.Issue{},
        CountsByBucket:   map[domain.Bucket]int{},
        CountsByType:     map[string]int{},
        CountsByPriority: map[string]int{},
        CountsByAssignee: map[string]int{},
        CountsByProject:  map[string]int{},
        Stalled:          []string{},
        Blocked:          []string{},
        Risky:            []string{},
        RecentActivity:   []string{},
    }
    for _, b := range domain.Buckets { res.CountsByBucket[b] = 0 }

    type stalledEntry struct {
        key     string
        updated time.Time
    }
    var stalled []stalledEntry
    flagged := map[string]bool{}

    for _, iss := range issues {
        if iss.Key == "" {
            res.Warnings = append(res.Warnings, "issue without key excluded from analysis")
            continue
        }
        res.Issues = append(res.Issues, iss)

        bucket := iss.Status.Category
        if bucket == "" { bucket = domain.BucketUnknown }
        res.CountsByBucket[bucket]++
        res.CountsByType[iss.IssueType.Name]++
        res.CountsByPriority[iss.Priority.Name]++
        if iss.Project != "" { res.CountsByProject[iss.Project]++ }
        assignee := "Unassigned"
        if iss.Assignee != nil { assignee = iss.Assignee.DisplayName }
        res.CountsByAssignee[assignee]++

        text := searchText(iss)

        if bucket == domain.BucketInProgress && iss.Updated != nil && now.Sub(*iss.Updated) > a.opts.StalledThreshold {
            stalled = append(stalled, stalledEntry{key: iss.Key, updated: *iss.Updated})
            flagged[iss.Key] = true
        }
        if containsAny(text, a.opts.BlockedKeywords) {
            res.Blocked = append(res.Blocked, iss.Key)
            flagged[iss.Key] = true
        }
        if containsAny(text, a.opts.RiskKeywords) || riskyPriority(iss.Priority.Name) {
            res.Risky = append(res.Risky, iss.Key)
            flagged[iss.Key] = true
        }
        if iss.LatestActivity != nil && now.Sub(*iss.LatestActivity) <= a.opts.RecentWindow {
            res.RecentActivity = append(res.RecentActivity, iss.Key)
        }
    }

    // Most stale first.
    sort.Slice(stalled, func(i, j int) bool {
        if stalled[i].updated.Equal(stalled[j].updated) { return stalled[i].key < stalled[j].key }
        return stalled[i].updated.Before(stalled[j].updated)
    })
    for _, s := range stalled { res.Stalled = append(res.Stalled, s.key) }

    total := len(res.Issues)
    if total > 0 {
        res.CompletionRate = float64(res.CountsByBucket[domain.BucketDone]) / float64(total)
        res.HealthScore = 100 * float64(total-len(flagged)) / float64(total)
        if res.HealthScore < 0 { res.HealthScore = 0 }
        if res.HealthScore > 100 { res.HealthScore = 100 }
    } else {
        res.CompletionRate = 0
        res.HealthScore = 100
    }
    return res
}

// searchText concatenates summary, description and all comment bodies for
// keyword matching.
func searchText(iss domain.Issue) string {
    var b strings.Builder
    b.WriteString(iss.Summary)
    b.WriteString("\n")
    b.WriteString(iss.Description)
    for i := range iss.Comments {
        b.WriteString("\n")
        b.WriteString(iss.Comments[i].Body)
    }
    return strings.ToLower(b.String())
}

func riskyPriority(name string) bool {
    switch strings.ToLower(name) {
    case "critical", "highest":
        return true
    }
    return false
}

// FlagSummary is a short human label for logs.
func FlagSummary(res *domain.ReportResult) string {
    return fmt.Sprintf("stalled=%d blocked=%d risky=%d", len(res.Stalled), len(res.Blocked), len(res.Risky))
}
