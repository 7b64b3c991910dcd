package http

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
    "github.com/mrVectorz/jira-status-automation/internal/domain"
    "github.com/mrVectorz/jira-status-automation/internal/repo"
)

type service interface {
    RunReport(ctx context.Context, projectKeys []string, start, end time.Time) (*domain.ReportResult, error)
    GetIssue(ctx context.Context, key string) (domain.Issue, []string, error)
    RunScheduledReport(ctx context.Context) error
    RenderMarkdown(res *domain.ReportResult) string
    GetLastRun(ctx context.Context) (*repo.LastRun, error)
    LatestReport(ctx context.Context) (*repo.StoredReport, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Report serves an on-demand report for explicit projects and window.
// project_key accepts a comma-separated list; dates are YYYY-MM-DD.
func (h *Handlers) Report(c *gin.Context) {
    projects := splitNonEmpty(c.Query("project_key"))
    if len(projects) == 0 { projects = h.cfg.JiraProjects }

    end := time.Now().UTC()
    start := end.AddDate(0, 0, -h.cfg.DaysBack)
    var err error
    if v := c.Query("start_date"); v != "" {
        if start, err = time.Parse("2006-01-02", v); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
            return
        }
    }
    if v := c.Query("end_date"); v != "" {
        if end, err = time.Parse("2006-01-02", v); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
            return
        }
    }

    res, err := h.svc.RunReport(c.Request.Context(), projects, start, end)
    if err != nil {
        status, payload := errorResponse(err)
        c.JSON(status, payload)
        return
    }
    if c.Query("format") == "markdown" {
        c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(h.svc.RenderMarkdown(res)))
        return
    }
    c.JSON(http.StatusOK, res)
}

// Issue serves a single normalized issue by key.
func (h *Handlers) Issue(c *gin.Context) {
    iss, warnings, err := h.svc.GetIssue(c.Request.Context(), c.Param("key"))
    if err != nil {
        status, payload := errorResponse(err)
        c.JSON(status, payload)
        return
    }
    c.JSON(http.StatusOK, gin.H{"issue": iss, "warnings": warnings})
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) LatestReport(c *gin.Context) {
    rep, err := h.svc.LatestReport(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if c.Query("format") == "markdown" {
        c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(rep.Markdown))
        return
    }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // Run in background detached from the HTTP request to avoid context cancellation
    go func() { _ = h.svc.RunScheduledReport(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// errorResponse maps pipeline failures onto HTTP statuses: caller mistakes
// are 400, credential problems 401, upstream trouble 502.
func errorResponse(err error) (int, gin.H) {
    var verr *domain.ValidationError
    if errors.As(err, &verr) { return http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field} }
    var aerr *domain.AuthError
    if errors.As(err, &aerr) { return http.StatusUnauthorized, gin.H{"error": aerr.Error()} }
    var perr *domain.PartialDataError
    if errors.As(err, &perr) { return http.StatusBadGateway, gin.H{"error": perr.Error(), "fetched": perr.Fetched} }
    var terr *domain.TransientError
    if errors.As(err, &terr) { return http.StatusBadGateway, gin.H{"error": terr.Error()} }
    return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

func splitNonEmpty(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" { out = append(out, p) }
    }
    return out
}
