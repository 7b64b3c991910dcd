package services

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
    "github.com/mrVectorz/jira-status-automation/internal/domain"
    "github.com/mrVectorz/jira-status-automation/internal/repo"
    "github.com/mrVectorz/jira-status-automation/internal/report"
)

type Notifier interface {
    SendReport(ctx context.Context, chatID int64, text string) error
}

type Store interface {
    StartJobRun(ctx context.Context, projects string) (int64, error)
    FinishJobRun(ctx context.Context, id int64, issuesScanned int, healthScore float64, success bool, errStr string) error
    GetLastRun(ctx context.Context) (*repo.LastRun, error)
    SaveReport(ctx context.Context, rep repo.StoredReport) (int64, error)
    LatestReport(ctx context.Context) (*repo.StoredReport, error)
    GetWatermark(ctx context.Context, scope string) (*time.Time, error)
    SetWatermark(ctx context.Context, scope string, end time.Time) error
}

type Service struct {
    cfg      config.Config
    log      zerolog.Logger
    store    Store
    pipeline *report.Pipeline
    renderer *report.Renderer
    tg       Notifier

    // Now is injectable for deterministic scheduled windows in tests.
    Now func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, store Store, pipeline *report.Pipeline, tg Notifier) *Service {
    return &Service{
        cfg:      cfg,
        log:      log,
        store:    store,
        pipeline: pipeline,
        renderer: report.NewRenderer(),
        tg:       tg,
        Now:      time.Now,
    }
}

// RunReport produces a report for an explicit window without touching the
// watermark or job bookkeeping. Used by the on-demand HTTP endpoint.
func (s *Service) RunReport(ctx context.Context, projectKeys []string, start, end time.Time) (*domain.ReportResult, error) {
    return s.pipeline.Run(ctx, projectKeys, start, end)
}

// GetIssue looks up one issue by key, normalized. Warnings about skipped
// history entries are surfaced alongside the record.
func (s *Service) GetIssue(ctx context.Context, key string) (domain.Issue, []string, error) {
    return s.pipeline.LookupIssue(ctx, key)
}

// RunScheduledReport runs the recurring report: window from the stored
// watermark (or DAYS_BACK when none exists) up to now, with job-run
// bookkeeping, archiving, file output and Telegram delivery. The watermark
// only advances on success so a failed run is retried over the same window.
func (s *Service) RunScheduledReport(ctx context.Context) error {
    projects := s.cfg.JiraProjects
    if len(projects) == 0 { return fmt.Errorf("no projects configured") }
    scope := strings.Join(projects, ",")
    now := s.Now().UTC()

    start := now.AddDate(0, 0, -s.cfg.DaysBack)
    if wm, err := s.store.GetWatermark(ctx, scope); err != nil {
        s.log.Warn().Err(err).Msg("watermark lookup failed, using default window")
    } else if wm != nil {
        start = *wm
    }
    if !start.Before(now) { start = now.AddDate(0, 0, -1) }

    runID, err := s.store.StartJobRun(ctx, scope)
    if err != nil { s.log.Error().Err(err).Msg("start job run failed") }
    s.log.Info().Str("projects", scope).Time("start", start).Time("end", now).Msg("scheduled report: start")

    var scanned int
    var health float64
    var runErr error
    defer func() {
        if runID != 0 {
            errStr := ""
            if runErr != nil { errStr = runErr.Error() }
            _ = s.store.FinishJobRun(ctx, runID, scanned, health, runErr == nil, errStr)
        }
    }()

    res, err := s.pipeline.Run(ctx, projects, start, now)
    if err != nil { runErr = err; return err }
    scanned = res.Total()
    health = res.HealthScore

    markdown := s.renderer.RenderMarkdown(res, scope, windowLabel(start, now))
    payload, err := s.renderer.RenderJSON(res)
    if err != nil { runErr = err; return err }

    if _, err := s.store.SaveReport(ctx, repo.StoredReport{
        Projects:    scope,
        PeriodStart: start,
        PeriodEnd:   now,
        GeneratedAt: res.GeneratedAt,
        Markdown:    markdown,
        Payload:     payload,
    }); err != nil {
        s.log.Error().Err(err).Msg("report archive failed")
    }

    if err := s.writeReportFile(markdown, now); err != nil {
        s.log.Error().Err(err).Msg("report file write failed")
    }

    for _, chat := range s.cfg.TelegramChatIDs {
        if err := s.tg.SendReport(ctx, chat, markdown); err != nil {
            s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
        }
    }

    if err := s.store.SetWatermark(ctx, scope, now); err != nil {
        s.log.Error().Err(err).Msg("watermark update failed")
    }
    s.log.Info().Int("issues", scanned).Str("flags", report.FlagSummary(res)).Msg("scheduled report: done")
    return nil
}

func (s *Service) GetLastRun(ctx context.Context) (*repo.LastRun, error) {
    return s.store.GetLastRun(ctx)
}

func (s *Service) LatestReport(ctx context.Context) (*repo.StoredReport, error) {
    return s.store.LatestReport(ctx)
}

// RenderMarkdown exposes rendering so HTTP callers can reuse the exact
// artifact format of scheduled runs.
func (s *Service) RenderMarkdown(res *domain.ReportResult) string {
    return s.renderer.RenderMarkdown(res, strings.Join(res.ProjectKeys, ","), windowLabel(res.PeriodStart, res.PeriodEnd))
}

func (s *Service) writeReportFile(markdown string, now time.Time) error {
    if s.cfg.ReportDir == "" { return nil }
    if err := os.MkdirAll(s.cfg.ReportDir, 0o755); err != nil { return err }
    name := fmt.Sprintf("status_update_%s.md", now.Format("2006-01-02"))
    return os.WriteFile(filepath.Join(s.cfg.ReportDir, name), []byte(markdown), 0o644)
}

func windowLabel(start, end time.Time) string {
    return fmt.Sprintf("%s to %s", start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
}
