package domain

import "time"

// Bucket is the coarse status category an issue falls into.
type Bucket string

const (
    BucketTodo       Bucket = "todo"
    BucketInProgress Bucket = "in_progress"
    BucketDone       Bucket = "done"
    BucketBlocked    Bucket = "blocked"
    BucketUnknown    Bucket = "unknown"
)

// Buckets lists all categories in report order.
var Buckets = []Bucket{BucketTodo, BucketInProgress, BucketDone, BucketBlocked, BucketUnknown}

type Status struct {
    Name     string `json:"name"`
    Category Bucket `json:"category"`
}

type NamedField struct {
    Name string `json:"name"`
}

type UserRef struct {
    DisplayName string `json:"display_name"`
}

type Comment struct {
    Author  string     `json:"author"`
    Body    string     `json:"body"`
    Created *time.Time `json:"created"`
    Updated *time.Time `json:"updated,omitempty"`
}

type ChangeItem struct {
    Field     string `json:"field"`
    FromValue string `json:"from_value"`
    ToValue   string `json:"to_value"`
}

type ChangelogEntry struct {
    Author  string       `json:"author"`
    Created *time.Time   `json:"created"`
    Items   []ChangeItem `json:"items"`
}

type TimeTracking struct {
    OriginalEstimate  string `json:"original_estimate,omitempty"`
    RemainingEstimate string `json:"remaining_estimate,omitempty"`
    TimeSpent         string `json:"time_spent,omitempty"`
}

// Issue is the canonical record produced by normalization. Comments and
// Changelog are never nil; a history-free issue carries empty slices.
type Issue struct {
    Key            string           `json:"key"`
    Project        string           `json:"project,omitempty"`
    Summary        string           `json:"summary"`
    Description    string           `json:"description,omitempty"`
    Status         Status           `json:"status"`
    IssueType      NamedField       `json:"issue_type"`
    Priority       NamedField       `json:"priority"`
    Assignee       *UserRef         `json:"assignee,omitempty"`
    Reporter       *UserRef         `json:"reporter,omitempty"`
    Labels         []string         `json:"labels"`
    Created        *time.Time       `json:"created"`
    Updated        *time.Time       `json:"updated"`
    LatestActivity *time.Time       `json:"latest_activity"`
    Comments       []Comment        `json:"comments"`
    Changelog      []ChangelogEntry `json:"changelog"`
    TimeTracking   *TimeTracking    `json:"time_tracking,omitempty"`
}

// ReportResult is the analyzer output for one run. It is owned by the caller
// and never mutated after being returned.
type ReportResult struct {
    ProjectKeys []string  `json:"project_keys"`
    PeriodStart time.Time `json:"period_start"`
    PeriodEnd   time.Time `json:"period_end"`
    GeneratedAt time.Time `json:"generated_at"`

    Issues []Issue `json:"issues"`

    CountsByBucket   map[Bucket]int `json:"counts_by_bucket"`
    CountsByType     map[string]int `json:"counts_by_type"`
    CountsByPriority map[string]int `json:"counts_by_priority"`
    CountsByAssignee map[string]int `json:"counts_by_assignee"`
    CountsByProject  map[string]int `json:"counts_by_project"`

    // Attention lists hold issue keys; the Issues slice carries the records.
    Stalled        []string `json:"stalled"`
    Blocked        []string `json:"blocked"`
    Risky          []string `json:"risky"`
    RecentActivity []string `json:"recent_activity"`

    CompletionRate float64 `json:"completion_rate"`
    HealthScore    float64 `json:"health_score"`

    // Warnings collects non-fatal normalization problems (skipped issues or
    // history entries). A non-empty list never fails the run.
    Warnings []string `json:"warnings,omitempty"`
}

// Issue returns the issue with the given key, or nil.
func (r *ReportResult) Issue(key string) *Issue {
    for i := range r.Issues {
        if r.Issues[i].Key == key { return &r.Issues[i] }
    }
    return nil
}

func (r *ReportResult) Total() int { return len(r.Issues) }
