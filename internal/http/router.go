package http

import (
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)
    r.GET("/api/jira/report", h.Report)
    r.GET("/api/jira/issue/:key", h.Issue)
    r.GET("/admin/last-run", h.LastRun)
    r.GET("/admin/report/latest", h.LatestReport)
    r.POST("/admin/run", h.RunNow)

    return r
}
