package report

import (
    "strings"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/config"
    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

// Options carries the classification policy for one run. It is threaded
// explicitly through normalization and analysis so concurrent runs with
// different policies cannot interfere.
type Options struct {
    // StatusMapping maps a bucket to the status-name substrings that select
    // it, matched case-insensitively in bucket evaluation order.
    StatusMapping map[domain.Bucket][]string

    BlockedKeywords []string
    RiskKeywords    []string

    StalledThreshold time.Duration
    RecentWindow     time.Duration
}

// bucketOrder fixes evaluation order so overlapping patterns resolve the same
// way on every run.
var bucketOrder = []domain.Bucket{domain.BucketDone, domain.BucketInProgress, domain.BucketBlocked, domain.BucketTodo}

func DefaultOptions() Options {
    return Options{
        StatusMapping: map[domain.Bucket][]string{
            domain.BucketDone:       {"done", "closed", "resolved"},
            domain.BucketInProgress: {"progress", "review", "development"},
            domain.BucketBlocked:    {"blocked"},
            domain.BucketTodo:       {"todo", "to do", "open", "backlog", "new"},
        },
        BlockedKeywords:  []string{"blocked", "stuck", "waiting", "dependency", "impediment", "on hold"},
        RiskKeywords:     []string{"risk", "critical", "urgent", "escalate", "deadline", "slipping"},
        StalledThreshold: 7 * 24 * time.Hour,
        RecentWindow:     3 * 24 * time.Hour,
    }
}

// FromConfig builds run options from the loaded configuration, falling back
// to defaults for anything unset.
func FromConfig(cfg config.Config) Options {
    o := DefaultOptions()
    if cfg.StalledThresholdDays > 0 { o.StalledThreshold = time.Duration(cfg.StalledThresholdDays) * 24 * time.Hour }
    if cfg.RecentActivityDays > 0 { o.RecentWindow = time.Duration(cfg.RecentActivityDays) * 24 * time.Hour }
    if len(cfg.BlockedKeywords) > 0 { o.BlockedKeywords = cfg.BlockedKeywords }
    if len(cfg.RiskKeywords) > 0 { o.RiskKeywords = cfg.RiskKeywords }
    for bucket, patterns := range cfg.StatusMap {
        if len(patterns) == 0 { continue }
        o.StatusMapping[domain.Bucket(strings.ToLower(bucket))] = patterns
    }
    return o
}

// Categorize maps a raw status name onto its bucket by case-insensitive
// substring match. Unmatched and empty names map to unknown, never an error.
func (o Options) Categorize(statusName string) domain.Bucket {
    name := strings.ToLower(strings.TrimSpace(statusName))
    if name == "" { return domain.BucketUnknown }
    for _, bucket := range bucketOrder {
        for _, pattern := range o.StatusMapping[bucket] {
            if pattern == "" { continue }
            if strings.Contains(name, strings.ToLower(pattern)) { return bucket }
        }
    }
    return domain.BucketUnknown
}

func containsAny(haystack string, needles []string) bool {
    for _, n := range needles {
        if n == "" { continue }
        if strings.Contains(haystack, strings.ToLower(n)) { return true }
    }
    return false
}
