package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hlspack/internal/metrics"
	"hlspack/internal/workflow"
)

func TestRecordJobAndWriteTextfile(t *testing.T) {
	m := metrics.New()
	finished := time.Unix(1_700_000_000, 0)

	jobs := []workflow.ProcessingResult{
		{
			JobID:      "ok",
			Renditions: make([]workflow.RenditionResult, 3),
			Errors: []workflow.ProcessingError{
				{Phase: "audio", Kind: "TrackExtractionError"},
			},
			Warnings:   []string{"w"},
			Success:    true,
			StartedAt:  finished.Add(-45 * time.Second),
			FinishedAt: finished,
			TotalBytes: 1024,
		},
		{
			JobID: "bad",
			Errors: []workflow.ProcessingError{
				{Phase: "video", Kind: "EncodeFailure", Critical: true},
			},
			StartedAt:  finished,
			FinishedAt: finished.Add(time.Second),
		},
	}
	for _, job := range jobs {
		if err := m.RecordJob(context.Background(), job); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "textfile", "hlspack.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)

	want := []string{
		`hlspack_jobs_total{result="success"} 1`,
		`hlspack_jobs_total{result="failure"} 1`,
		`hlspack_jobs_errors_total{critical="false",kind="TrackExtractionError",phase="audio"} 1`,
		`hlspack_jobs_errors_total{critical="true",kind="EncodeFailure",phase="video"} 1`,
		`hlspack_renditions_total 3`,
		`hlspack_warnings_total 1`,
		`hlspack_output_bytes_total 1024`,
		`hlspack_last_success_timestamp_seconds 1.7e+09`,
		`hlspack_jobs_duration_seconds_count 2`,
	}
	for _, line := range want {
		if !strings.Contains(text, line) {
			t.Errorf("textfile missing %q\n%s", line, text)
		}
	}
}

func TestWriteTextfileRequiresPath(t *testing.T) {
	if err := metrics.New().WriteTextfile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNilMetricsIgnoresRecords(t *testing.T) {
	var m *metrics.Metrics
	if err := m.RecordJob(context.Background(), workflow.ProcessingResult{}); err != nil {
		t.Fatalf("nil RecordJob: %v", err)
	}
}

func TestSeparateInstancesDoNotShareState(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	if err := a.RecordJob(context.Background(), workflow.ProcessingResult{Success: true}); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}
	families, err := b.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "hlspack_jobs_total" {
			t.Fatalf("fresh registry should not expose job counts yet: %v", family)
		}
	}
}
