package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/mrVectorz/jira-status-automation/internal/adapters/jira"
    "github.com/mrVectorz/jira-status-automation/internal/adapters/telegram"
    "github.com/mrVectorz/jira-status-automation/internal/config"
    httpapi "github.com/mrVectorz/jira-status-automation/internal/http"
    "github.com/mrVectorz/jira-status-automation/internal/jobs"
    "github.com/mrVectorz/jira-status-automation/internal/logger"
    "github.com/mrVectorz/jira-status-automation/internal/repo"
    "github.com/mrVectorz/jira-status-automation/internal/report"
    "github.com/mrVectorz/jira-status-automation/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()
    repository := repo.NewRepository(db, log)

    jc := jira.NewClient(cfg, log)
    tg := telegram.NewClient(cfg, log)

    opts := report.FromConfig(cfg)
    fetcher := report.NewFetcher(jc, cfg.PageSize, log)
    pipeline := report.NewPipeline(fetcher, opts, log)
    svc := services.New(cfg, log, repository, pipeline, tg)

    router := httpapi.NewRouter(cfg, log, svc)

    cron := jobs.NewCron(cfg, log, svc, repository)
    cron.Start()
    defer cron.Stop()

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
