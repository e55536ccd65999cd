package render

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

// querier is the slice of pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool querier
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, job *models.RenderJob) error {
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return errors.Wrap(err, "store.create", "failed to encode params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO render_jobs
		   (id, account_id, status, progress, params_json, batch_id, batch_index, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		job.ID, job.AccountID, string(job.Status), job.Progress, string(paramsJSON),
		nullIfEmpty(job.BatchID), job.BatchIndex, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return errors.AlreadyExists("job", job.ID)
		}
		return errors.Wrap(err, "store.create", "db insert failed")
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, account_id, status, progress, params_json,
		        COALESCE(download_url,''), COALESCE(thumbnail_url,''),
		        COALESCE(error_message,''), COALESCE(batch_id,''), batch_index,
		        created_at, updated_at
		 FROM render_jobs WHERE id=$1`,
		id,
	)

	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("job", id)
		}
		return nil, errors.Wrap(err, "store.get", "db query failed")
	}
	return job, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error {
	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if upd.Status != nil {
		sets = append(sets, "status="+arg(string(*upd.Status)))
	}
	if upd.Progress != nil {
		sets = append(sets, "progress="+arg(*upd.Progress))
	}
	if upd.Result != nil {
		sets = append(sets, "download_url="+arg(upd.Result.DownloadURL))
		sets = append(sets, "thumbnail_url="+arg(upd.Result.ThumbnailURL))
	}
	if upd.ErrorMessage != nil {
		sets = append(sets, "error_message="+arg(*upd.ErrorMessage))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at="+arg(time.Now().UTC()))

	query := "UPDATE render_jobs SET " + strings.Join(sets, ", ") + " WHERE id=" + arg(id)
	if upd.Status != nil {
		// Terminal states are final: a status write only lands on a row
		// still in flight.
		query += " AND status NOT IN ('completed','failed')"
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "store.update", "db update failed")
	}
	if tag.RowsAffected() == 0 {
		return s.updateMissError(ctx, id, upd.Status != nil)
	}
	return nil
}

// updateMissError tells a missing row apart from one the terminal-state
// guard filtered out, so callers see a failed precondition rather than a
// not-found for a job that simply already finished.
func (s *PGStore) updateMissError(ctx context.Context, id string, statusChange bool) error {
	if !statusChange {
		return errors.NotFound("job", id)
	}

	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM render_jobs WHERE id=$1`, id,
	).Scan(&status)
	if err != nil {
		return errors.NotFound("job", id)
	}

	return errors.Newf(errors.CodeFailedPrecond, "job %s is already %s", id, status).
		WithField("job_id", id).
		WithField("status", status)
}

func (s *PGStore) ListByStatusBefore(ctx context.Context, statuses []models.Status, cutoff time.Time) ([]models.RenderJob, error) {
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, status, progress, params_json,
		        COALESCE(download_url,''), COALESCE(thumbnail_url,''),
		        COALESCE(error_message,''), COALESCE(batch_id,''), batch_index,
		        created_at, updated_at
		 FROM render_jobs
		 WHERE status = ANY($1) AND created_at < $2
		 ORDER BY created_at ASC`,
		strs, cutoff,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store.list", "db query failed")
	}
	defer rows.Close()

	var out []models.RenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "store.list", "row scan failed")
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *PGStore) BulkMarkFailed(ctx context.Context, ids []string, message string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE render_jobs
		 SET status='failed', error_message=$2, updated_at=$3
		 WHERE id = ANY($1) AND status NOT IN ('completed','failed')`,
		ids, message, time.Now().UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "store.bulk_fail", "db update failed")
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.RenderJob, error) {
	var (
		job        models.RenderJob
		status     string
		paramsJSON string
		downloadURL, thumbnailURL string
	)

	err := row.Scan(
		&job.ID, &job.AccountID, &status, &job.Progress, &paramsJSON,
		&downloadURL, &thumbnailURL, &job.ErrorMessage, &job.BatchID,
		&job.BatchIndex, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.Status(status)
	if job.Status == models.StatusCompleted {
		job.Result = &models.RenderResult{
			DownloadURL:  downloadURL,
			ThumbnailURL: thumbnailURL,
		}
	}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &job.Params); err != nil {
			return nil, err
		}
	}

	return &job, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
