package repo

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"

    "github.com/mrVectorz/jira-status-automation/internal/config"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// Job runs

func (r *Repository) StartJobRun(ctx context.Context, projects string) (int64, error) {
    const q = `INSERT INTO job_runs(started_at, projects, success) VALUES(now(), $1, false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, projects).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, issuesScanned int, healthScore float64, success bool, errStr string) error {
    const q = `UPDATE job_runs SET finished_at=now(), issues_scanned=$2, health_score=$3, success=$4, error=$5 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, issuesScanned, healthScore, success, errStr)
    return err
}

type LastRun struct {
    StartedAt     time.Time  `json:"started_at"`
    FinishedAt    *time.Time `json:"finished_at"`
    Projects      string     `json:"projects"`
    IssuesScanned int        `json:"issues_scanned"`
    HealthScore   float64    `json:"health_score"`
    Success       bool       `json:"success"`
    Error         string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT started_at, finished_at, coalesce(projects,''),
        coalesce(issues_scanned,0), coalesce(health_score,0),
        coalesce(success,false), coalesce(error,'')
        FROM job_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.Projects, &lr.IssuesScanned, &lr.HealthScore, &lr.Success, &lr.Error); err != nil {
        return nil, err
    }
    return lr, nil
}

// Report archive

type StoredReport struct {
    ID          int64     `json:"id"`
    Projects    string    `json:"projects"`
    PeriodStart time.Time `json:"period_start"`
    PeriodEnd   time.Time `json:"period_end"`
    GeneratedAt time.Time `json:"generated_at"`
    Markdown    string    `json:"markdown"`
    Payload     []byte    `json:"payload"`
}

func (r *Repository) SaveReport(ctx context.Context, rep StoredReport) (int64, error) {
    const q = `INSERT INTO reports(projects, period_start, period_end, generated_at, markdown, payload)
        VALUES($1,$2,$3,$4,$5,$6) RETURNING id`
    var id int64
    err := r.db.Pool.QueryRow(ctx, q, rep.Projects, rep.PeriodStart, rep.PeriodEnd, rep.GeneratedAt, rep.Markdown, rep.Payload).Scan(&id)
    return id, err
}

func (r *Repository) LatestReport(ctx context.Context) (*StoredReport, error) {
    const q = `SELECT id, projects, period_start, period_end, generated_at, markdown, payload
        FROM reports ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    rep := &StoredReport{}
    if err := row.Scan(&rep.ID, &rep.Projects, &rep.PeriodStart, &rep.PeriodEnd, &rep.GeneratedAt, &rep.Markdown, &rep.Payload); err != nil {
        return nil, err
    }
    return rep, nil
}

// Watermarks track the end of the last successfully reported window per
// project set, so scheduled runs resume where the previous one stopped.

func (r *Repository) GetWatermark(ctx context.Context, scope string) (*time.Time, error) {
    var ts time.Time
    err := r.db.Pool.QueryRow(ctx, `SELECT last_window_end FROM watermarks WHERE scope=$1`, scope).Scan(&ts)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return &ts, nil
}

func (r *Repository) SetWatermark(ctx context.Context, scope string, end time.Time) error {
    const q = `INSERT INTO watermarks(scope, last_window_end) VALUES($1,$2)
        ON CONFLICT (scope) DO UPDATE SET last_window_end=EXCLUDED.last_window_end`
    _, err := r.db.Pool.Exec(ctx, q, scope, end)
    return err
}
