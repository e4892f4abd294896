package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/libstats/internal/formatter"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/tasks"
	"github.com/desertthunder/libstats/internal/ui"
	"github.com/urfave/cli/v3"
)

const chartFormat = "chart"

// statsOutput is the --json shape of one chart.
type statsOutput struct {
	Policy  stats.Policy        `json:"policy"`
	Records int                 `json:"records"`
	Buckets *stats.FrequencyMap `json:"buckets"`
}

// Stats logs in, runs the pipeline for one policy and prints the chart.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	policy, err := stats.ParsePolicy(cmd.String("by"))
	if err != nil {
		return err
	}

	var format formatter.Format
	if f := strings.ToLower(cmd.String("format")); f != "" && f != chartFormat {
		if format, err = formatter.ParseFormat(f); err != nil {
			return err
		}
	}

	s, err := r.login(ctx, cmd.String("fragment"))
	if err != nil {
		return err
	}
	defer s.Close()

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.reportProgress(progress, done)

	result, err := s.pipeline.Run(ctx, progress, policy)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		if err := r.saveSnapshot(result); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(statsOutput{Policy: result.Policy, Records: result.Records, Buckets: result.Frequencies}, cmd.Bool("pretty"))
	}

	return r.writeChart(format, result)
}

// writeChart renders result as a terminal chart, or in format when one was requested.
func (r *Runner) writeChart(format formatter.Format, result *tasks.RunResult) error {
	title := result.Policy.Title()
	if format == "" {
		return r.writePlain("%s\n", ui.RenderHistogram(title, result.Frequencies, 0))
	}

	data, err := formatter.Export(format, title, result.Frequencies)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

func (r *Runner) saveSnapshot(result *tasks.RunResult) error {
	repo, closeDB, err := r.openSnapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	snapshot := result.Snapshot()
	if err := repo.Create(snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.logger.Info("snapshot saved", "sequence", snapshot.Sequence(), "policy", snapshot.Policy())
	return nil
}

// Export logs in and writes one file per policy through the bulk export worker pool.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var policies []stats.Policy
	for _, name := range cmd.StringSlice("by") {
		policy, err := stats.ParsePolicy(name)
		if err != nil {
			return err
		}
		policies = append(policies, policy)
	}

	s, err := r.login(ctx, cmd.String("fragment"))
	if err != nil {
		return err
	}
	defer s.Close()

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.reportProgress(progress, done)

	result, err := s.pipeline.BulkExport(ctx, progress, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		Policies:   policies,
		NumWorkers: cmd.Int("workers"),
	})
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("✓ Export complete: %d tracks", result.Records)
	r.writePlain("  Directory: %s\n", result.OutputDirectory)
	r.writePlain("  Succeeded: %d, failed: %d\n", result.SuccessfulExports, result.FailedExports)
	for _, res := range result.Results {
		if res.Success {
			r.writePlain("  ✓ %-8s %s (%d buckets)\n", res.Policy, res.File, res.Buckets)
		} else {
			r.writePlain("  ✗ %-8s %s\n", res.Policy, res.Error)
		}
	}

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d exports failed", result.FailedExports, len(result.Results))
	}
	return nil
}
