package report

import (
    "encoding/json"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

// Renderer turns a ReportResult into report artifacts. Output ordering is
// fully deterministic for identical inputs; writing the artifact anywhere is
// the caller's concern.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

var bucketTitles = map[domain.Bucket]string{
    domain.BucketTodo:       "To Do",
    domain.BucketInProgress: "In Progress",
    domain.BucketDone:       "Done",
    domain.BucketBlocked:    "Blocked",
    domain.BucketUnknown:    "Unknown",
}

var bucketEmoji = map[domain.Bucket]string{
    domain.BucketTodo:       "📝",
    domain.BucketInProgress: "🚧",
    domain.BucketDone:       "✅",
    domain.BucketBlocked:    "🚫",
    domain.BucketUnknown:    "❓",
}

// RenderMarkdown emits the human-readable status report.
func (r *Renderer) RenderMarkdown(res *domain.ReportResult, projectLabel, rangeLabel string) string {
    b := &strings.Builder{}
    total := res.Total()

    fmt.Fprintf(b, "# Status Update - %s\n\n", projectLabel)
    fmt.Fprintf(b, "Period: %s\n\n", rangeLabel)

    fmt.Fprintf(b, "## 📊 Executive Summary\n\n")
    fmt.Fprintf(b, "- **Total Issues Reviewed:** %d\n", total)
    fmt.Fprintf(b, "- **Completion Rate:** %.1f%%\n", res.CompletionRate*100)
    fmt.Fprintf(b, "- **Health Score:** %.0f/100\n", res.HealthScore)
    if len(res.CountsByProject) > 1 {
        for _, p := range sortedKeys(res.CountsByProject) {
            fmt.Fprintf(b, "- **%s:** %d issues\n", p, res.CountsByProject[p])
        }
    }
    b.WriteString("\n## 🎯 Status Breakdown\n\n")
    for _, bucket := range domain.Buckets {
        count := res.CountsByBucket[bucket]
        pct := 0.0
        if total > 0 { pct = float64(count) / float64(total) * 100 }
        fmt.Fprintf(b, "- %s **%s:** %d issues (%.1f%%)\n", bucketEmoji[bucket], bucketTitles[bucket], count, pct)
    }

    for _, bucket := range domain.Buckets {
        issues := issuesInBucket(res, bucket)
        if len(issues) == 0 { continue }
        fmt.Fprintf(b, "\n## %s %s\n\n", bucketEmoji[bucket], bucketTitles[bucket])
        for _, iss := range issues {
            fmt.Fprintf(b, "- **[%s]** %s\n", iss.Key, iss.Summary)
            fmt.Fprintf(b, "  - Status: %s\n", iss.Status.Name)
            fmt.Fprintf(b, "  - Assignee: %s\n", assigneeName(iss))
            if iss.LatestActivity != nil {
                fmt.Fprintf(b, "  - Last activity: %s\n", iss.LatestActivity.UTC().Format("2006-01-02 15:04"))
            }
        }
    }

    b.WriteString("\n## ⚠️ Needs Attention\n")
    writeFlagSection(b, res, "Stalled (no updates past threshold)", res.Stalled)
    writeFlagSection(b, res, "Possibly Blocked", res.Blocked)
    writeFlagSection(b, res, "At Risk", res.Risky)

    b.WriteString("\n## 🔥 Recent Activity\n\n")
    if len(res.RecentActivity) == 0 {
        b.WriteString("No recent activity in the window.\n")
    } else {
        for _, key := range res.RecentActivity {
            if iss := res.Issue(key); iss != nil {
                fmt.Fprintf(b, "- **[%s]** %s (%s)\n", iss.Key, iss.Summary, iss.Status.Name)
            }
        }
    }

    b.WriteString("\n## 👥 Team Activity\n\n")
    for _, name := range sortedByCountDesc(res.CountsByAssignee) {
        fmt.Fprintf(b, "- **%s:** %d issues\n", name, res.CountsByAssignee[name])
    }

    if len(res.Warnings) > 0 {
        fmt.Fprintf(b, "\n_%d partial-data warnings._\n", len(res.Warnings))
    }
    fmt.Fprintf(b, "\n---\n*Report generated at %s*\n", res.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
    return b.String()
}

// RenderJSON emits the same data losslessly for programmatic consumers.
func (r *Renderer) RenderJSON(res *domain.ReportResult) ([]byte, error) {
    return json.MarshalIndent(res, "", "  ")
}

func writeFlagSection(b *strings.Builder, res *domain.ReportResult, title string, keys []string) {
    fmt.Fprintf(b, "\n### %s\n\n", title)
    if len(keys) == 0 {
        b.WriteString("None.\n")
        return
    }
    for _, key := range keys {
        iss := res.Issue(key)
        if iss == nil { continue }
        updated := ""
        if iss.Updated != nil { updated = ", updated " + iss.Updated.UTC().Format("2006-01-02") }
        fmt.Fprintf(b, "- **[%s]** %s (%s%s)\n", iss.Key, iss.Summary, iss.Status.Name, updated)
    }
}

// issuesInBucket lists a bucket's issues sorted by latest activity descending,
// ties broken by key ascending.
func issuesInBucket(res *domain.ReportResult, bucket domain.Bucket) []domain.Issue {
    var out []domain.Issue
    for _, iss := range res.Issues {
        if iss.Status.Category == bucket { out = append(out, iss) }
    }
    sort.Slice(out, func(i, j int) bool {
        ti, tj := activityOrZero(out[i]), activityOrZero(out[j])
        if ti.Equal(tj) { return out[i].Key < out[j].Key }
        return ti.After(tj)
    })
    return out
}

func activityOrZero(iss domain.Issue) time.Time {
    if iss.LatestActivity != nil { return *iss.LatestActivity }
    return time.Time{}
}

func assigneeName(iss domain.Issue) string {
    if iss.Assignee != nil { return iss.Assignee.DisplayName }
    return "Unassigned"
}

func sortedKeys(m map[string]int) []string {
    keys := make([]string, 0, len(m))
    for k := range m { keys = append(keys, k) }
    sort.Strings(keys)
    return keys
}

func sortedByCountDesc(m map[string]int) []string {
    keys := sortedKeys(m)
    sort.SliceStable(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] })
    return keys
}
