package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hlspack/internal/workflow"
)

// ErrNotFound is returned by Get when no job has the requested ID.
var ErrNotFound = errors.New("history: job not found")

// Job is one recorded packaging run.
type Job struct {
	ID             int64      `json:"id"`
	JobID          string     `json:"job_id"`
	Input          string     `json:"input"`
	OutputDir      string     `json:"output_dir"`
	MasterPlaylist string     `json:"master_playlist,omitempty"`
	Success        bool       `json:"success"`
	SourceDuration float64    `json:"source_duration"`
	Renditions     int        `json:"renditions"`
	AudioTracks    int        `json:"audio_tracks"`
	Subtitles      int        `json:"subtitles"`
	Warnings       int        `json:"warnings"`
	TotalBytes     int64      `json:"total_bytes"`
	Ladder         []string   `json:"ladder"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     time.Time  `json:"finished_at"`
	Errors         []JobError `json:"errors,omitempty"`
}

// Elapsed returns the job duration.
func (j Job) Elapsed() time.Duration {
	return j.FinishedAt.Sub(j.StartedAt)
}

// JobError mirrors workflow.ProcessingError without the wrapped cause.
type JobError struct {
	Phase    string `json:"phase"`
	Item     string `json:"item,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}

// ListOptions filters List.
type ListOptions struct {
	Limit      int
	FailedOnly bool
}

// Summary aggregates every recorded job.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	TotalBytes int64
}

const jobColumns = "id, job_id, input, output_dir, master_playlist, success, source_duration, renditions, audio_tracks, subtitles, warnings, total_bytes, ladder, started_at, finished_at"

// RecordJob stores result and its errors. Recording the same job ID again
// replaces the earlier row.
func (s *Store) RecordJob(ctx context.Context, result workflow.ProcessingResult) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(result.JobID) == "" {
		return errors.New("history: job id is required")
	}
	names := make([]string, 0, len(result.Ladder))
	for _, res := range result.Ladder {
		names = append(names, res.Name)
	}
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, "DELETE FROM job_errors WHERE job_id = ?", result.JobID); err != nil {
			return fmt.Errorf("clear job errors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE job_id = ?", result.JobID); err != nil {
			return fmt.Errorf("clear job: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO jobs (job_id, input, output_dir, master_playlist, success, source_duration, renditions, audio_tracks, subtitles, warnings, total_bytes, ladder, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.JobID,
			result.Input,
			result.OutputDir,
			nullableString(result.MasterPlaylist),
			boolToInt(result.Success),
			result.SourceDuration,
			len(result.Renditions),
			len(result.AudioTracks),
			len(result.Subtitles),
			len(result.Warnings),
			result.TotalBytes,
			nullableString(strings.Join(names, ",")),
			formatTime(result.StartedAt),
			formatTime(finished),
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		for _, pe := range result.Errors {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO job_errors (job_id, phase, item, kind, message, critical) VALUES (?, ?, ?, ?, ?, ?)",
				result.JobID, pe.Phase, nullableString(pe.Item), pe.Kind, pe.Message, boolToInt(pe.Critical),
			); err != nil {
				return fmt.Errorf("insert job error: %w", err)
			}
		}
		return tx.Commit()
	})
}

// List returns recorded jobs, newest first, without their errors.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + jobColumns + " FROM jobs"
	var args []any
	if opts.FailedOnly {
		query += " WHERE success = 0"
	}
	query += " ORDER BY finished_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Get returns a job and its errors. A unique job ID prefix is accepted.
func (s *Store) Get(ctx context.Context, jobID string) (Job, error) {
	ctx = ensureContext(ctx)
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return Job{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE job_id = ? OR job_id LIKE ? ESCAPE '\\' ORDER BY job_id = ? DESC LIMIT 2",
		jobID, escapeLike(jobID)+"%", jobID)
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	var matches []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return Job{}, fmt.Errorf("scan job: %w", err)
		}
		matches = append(matches, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Job{}, err
	}
	switch {
	case len(matches) == 0:
		return Job{}, ErrNotFound
	case len(matches) > 1 && matches[0].JobID != jobID:
		return Job{}, fmt.Errorf("history: job id prefix %q is ambiguous", jobID)
	}

	job := matches[0]
	job.Errors, err = s.jobErrors(ctx, job.JobID)
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

func (s *Store) jobErrors(ctx context.Context, jobID string) ([]JobError, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phase, item, kind, message, critical FROM job_errors WHERE job_id = ? ORDER BY id", jobID)
	if err != nil {
		return nil, fmt.Errorf("list job errors: %w", err)
	}
	defer rows.Close()

	var out []JobError
	for rows.Next() {
		var (
			je       JobError
			item     sql.NullString
			critical int
		)
		if err := rows.Scan(&je.Phase, &item, &je.Kind, &je.Message, &critical); err != nil {
			return nil, fmt.Errorf("scan job error: %w", err)
		}
		je.Item = item.String
		je.Critical = critical != 0
		out = append(out, je)
	}
	return out, rows.Err()
}

// Prune deletes jobs that finished before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE finished_at < ?", formatTime(cutoff))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return removed, nil
}

// Summary totals the ledger.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var sum Summary
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(success), 0), COALESCE(SUM(total_bytes), 0) FROM jobs")
	if err := row.Scan(&sum.Total, &sum.Succeeded, &sum.TotalBytes); err != nil {
		return Summary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	sum.Failed = sum.Total - sum.Succeeded
	return sum, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (Job, error) {
	var (
		job         Job
		master      sql.NullString
		success     int
		ladder      sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.JobID,
		&job.Input,
		&job.OutputDir,
		&master,
		&success,
		&job.SourceDuration,
		&job.Renditions,
		&job.AudioTracks,
		&job.Subtitles,
		&job.Warnings,
		&job.TotalBytes,
		&ladder,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Job{}, err
	}
	job.MasterPlaylist = master.String
	job.Success = success != 0
	if ladder.String != "" {
		job.Ladder = strings.Split(ladder.String, ",")
	}
	if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		job.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		job.FinishedAt = t
	}
	return job, nil
}

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(value)
}
