package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/libstats/internal/formatter"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/stats"
)

// BulkExportOpts contains configuration for exporting several policies at once.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, csv, markdown, txt
	OutputDir  string           // Base output directory (default: libstats_export_{epoch})
	Policies   []stats.Policy   // Policies to export (default: all)
	NumWorkers int              // Concurrent workers (default: 3)
}

// BulkExport fetches the saved tracks once and writes one file per policy using a worker pool.
//
// A failing policy does not stop the others; a manifest summarizing every file is written to the output directory.
func (p *Pipeline) BulkExport(ctx context.Context, progress chan<- ProgressUpdate, opts BulkExportOpts) (*formatter.BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("libstats_export_%d", time.Now().Unix())
	}
	if len(opts.Policies) == 0 {
		opts.Policies = stats.Policies
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	opts.NumWorkers = min(opts.NumWorkers, len(opts.Policies))

	records, err := p.Records(ctx, progress)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		Records:         len(records),
		OutputDirectory: opts.OutputDir,
		Format:          string(opts.Format),
		Results:         make([]formatter.PolicyExportResult, 0, len(opts.Policies)),
	}

	jobs := make(chan stats.Policy, len(opts.Policies))
	results := make(chan formatter.PolicyExportResult, len(opts.Policies))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go p.exportWorker(ctx, &wg, records, jobs, results, opts)
	}

	for _, policy := range opts.Policies {
		jobs <- policy
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	total := len(opts.Policies)
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(progress, exportCompletedUpdate(completed, total, stats.Policy(res.Policy), res.File))
		} else {
			result.FailedExports++
			sendProgress(progress, exportFailedUpdate(completed, total, stats.Policy(res.Policy), res.Err))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker aggregates and writes policies from the jobs channel.
func (p *Pipeline) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	records []models.Record,
	jobs <-chan stats.Policy,
	results chan<- formatter.PolicyExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for policy := range jobs {
		select {
		case <-ctx.Done():
			results <- formatter.PolicyExportResult{Policy: string(policy), Err: ctx.Err()}
			continue
		default:
		}

		results <- p.exportPolicy(ctx, records, policy, opts)
	}
}

func (p *Pipeline) exportPolicy(ctx context.Context, records []models.Record, policy stats.Policy, opts BulkExportOpts) formatter.PolicyExportResult {
	res := formatter.PolicyExportResult{Policy: string(policy)}

	fm, err := p.aggregator.Aggregate(ctx, records, policy)
	if err != nil {
		res.Err = err
		return res
	}

	path := filepath.Join(opts.OutputDir, string(policy)+opts.Format.Extension())
	if err := formatter.WriteExport(opts.Format, policy.Title(), fm, path); err != nil {
		res.Err = err
		return res
	}

	res.File = path
	res.Buckets = fm.Len()
	res.Success = true
	return res
}
