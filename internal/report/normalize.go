package report

import (
    "fmt"
    "strings"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/domain"
)

// Normalizer converts one raw search payload into a canonical Issue. Every
// field read goes through a fallback chain; missing optional fields resolve
// to documented defaults instead of failing the issue.
type Normalizer struct {
    opts Options
}

func NewNormalizer(opts Options) *Normalizer { return &Normalizer{opts: opts} }

// Normalize builds an Issue from a raw payload. The returned warnings name
// history entries that could not be parsed and were skipped; an error is
// returned only when the payload carries no issue key at all.
func (n *Normalizer) Normalize(raw map[string]any) (domain.Issue, []string, error) {
    key := toStr(raw["key"])
    if key == "" { return domain.Issue{}, nil, fmt.Errorf("payload has no issue key") }

    fields, _ := raw["fields"].(map[string]any)
    if fields == nil { fields = map[string]any{} }

    var warnings []string

    iss := domain.Issue{
        Key:       key,
        Summary:   firstStr(fields["summary"], "No summary available"),
        IssueType: domain.NamedField{Name: nestedName(fields["issuetype"], "Unknown")},
        Priority:  domain.NamedField{Name: nestedName(fields["priority"], "Unknown")},
        Labels:    strSlice(fields["labels"]),
        Created:   parseTimeUTC(fields["created"]),
        Updated:   parseTimeUTC(fields["updated"]),
        Comments:  []domain.Comment{},
        Changelog: []domain.ChangelogEntry{},
    }
    iss.Description = textValue(fields["description"])
    if pj, ok := fields["project"].(map[string]any); ok { iss.Project = toStr(pj["key"]) }

    statusName := "Unknown"
    if st, ok := fields["status"].(map[string]any); ok {
        if s := toStr(st["name"]); s != "" { statusName = s }
    }
    iss.Status = domain.Status{Name: statusName, Category: n.opts.Categorize(statusName)}

    if u := userRef(fields["assignee"]); u != nil { iss.Assignee = u }
    if u := userRef(fields["reporter"]); u != nil { iss.Reporter = u }

    if tt, ok := fields["timetracking"].(map[string]any); ok {
        t := domain.TimeTracking{
            OriginalEstimate:  toStr(tt["originalEstimate"]),
            RemainingEstimate: toStr(tt["remainingEstimate"]),
            TimeSpent:         toStr(tt["timeSpent"]),
        }
        if t != (domain.TimeTracking{}) { iss.TimeTracking = &t }
    }

    // Comments: prefer the list the fetcher paged in full, then the inline
    // comment block on the payload.
    var rawComments []any
    if ca, ok := raw["comments"].([]any); ok {
        rawComments = ca
    } else if cb, ok := fields["comment"].(map[string]any); ok {
        rawComments, _ = cb["comments"].([]any)
    }
    for i, c0 := range rawComments {
        cm, ok := c0.(map[string]any)
        if !ok {
            warnings = append(warnings, fmt.Sprintf("%s: comment %d unparseable, skipped", key, i))
            continue
        }
        iss.Comments = append(iss.Comments, domain.Comment{
            Author:  nestedDisplayName(cm["author"]),
            Body:    textValue(cm["body"]),
            Created: parseTimeUTC(cm["created"]),
            Updated: parseTimeUTC(cm["updated"]),
        })
    }

    if ch, ok := raw["changelog"].(map[string]any); ok {
        hs, _ := ch["histories"].([]any)
        for i, h0 := range hs {
            hv, ok := h0.(map[string]any)
            if !ok {
                warnings = append(warnings, fmt.Sprintf("%s: changelog entry %d unparseable, skipped", key, i))
                continue
            }
            entry := domain.ChangelogEntry{
                Author:  nestedDisplayName(hv["author"]),
                Created: parseTimeUTC(hv["created"]),
                Items:   []domain.ChangeItem{},
            }
            items, _ := hv["items"].([]any)
            for _, it0 := range items {
                itm, ok := it0.(map[string]any)
                if !ok { continue }
                entry.Items = append(entry.Items, domain.ChangeItem{
                    Field:     toStr(itm["field"]),
                    FromValue: toStr(itm["fromString"]),
                    ToValue:   toStr(itm["toString"]),
                })
            }
            iss.Changelog = append(iss.Changelog, entry)
        }
    }

    iss.LatestActivity = latestActivity(iss)
    return iss, warnings, nil
}

// latestActivity is the max of updated and every comment/changelog timestamp,
// falling back to created when nothing else is present. History entries can
// postdate the bare updated field on some server versions.
func latestActivity(iss domain.Issue) *time.Time {
    var latest *time.Time
    bump := func(t *time.Time) {
        if t == nil { return }
        if latest == nil || t.After(*latest) { latest = t }
    }
    bump(iss.Updated)
    for i := range iss.Comments { bump(iss.Comments[i].Created) }
    for i := range iss.Changelog { bump(iss.Changelog[i].Created) }
    if latest == nil { return iss.Created }
    return latest
}

func parseTimeUTC(v any) *time.Time {
    s, _ := v.(string)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC()
            return &tt
        }
    }
    return nil
}

func toStr(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return ""
}

func firstStr(v any, def string) string {
    if s := toStr(v); s != "" { return s }
    return def
}

func nestedName(v any, def string) string {
    if m, ok := v.(map[string]any); ok {
        if s := toStr(m["name"]); s != "" { return s }
    }
    return def
}

func nestedDisplayName(v any) string {
    if m, ok := v.(map[string]any); ok {
        if s := toStr(m["displayName"]); s != "" { return s }
        if s := toStr(m["name"]); s != "" { return s }
    }
    return "Unknown"
}

func userRef(v any) *domain.UserRef {
    m, ok := v.(map[string]any)
    if !ok || m == nil { return nil }
    name := toStr(m["displayName"])
    if name == "" { name = toStr(m["name"]) }
    if name == "" { return nil }
    return &domain.UserRef{DisplayName: name}
}

func strSlice(v any) []string {
    out := []string{}
    if lv, ok := v.([]any); ok {
        for _, x := range lv {
            if s, ok := x.(string); ok { out = append(out, s) }
        }
    }
    return out
}

// textValue flattens either a plain string or an Atlassian document (API v3
// description/comment bodies) into text.
func textValue(v any) string {
    switch t := v.(type) {
    case string:
        return t
    case map[string]any:
        var b strings.Builder
        collectText(t, &b)
        return strings.TrimSpace(b.String())
    default:
        return ""
    }
}

func collectText(node map[string]any, b *strings.Builder) {
    if s := toStr(node["text"]); s != "" {
        if b.Len() > 0 { b.WriteString(" ") }
        b.WriteString(s)
    }
    content, _ := node["content"].([]any)
    for _, c := range content {
        if m, ok := c.(map[string]any); ok { collectText(m, b) }
    }
}
