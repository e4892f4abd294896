package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/ui"
	"github.com/urfave/cli/v3"
)

// snapshotOutput is the --json shape of a saved chart.
type snapshotOutput struct {
	ID        string              `json:"id"`
	Sequence  int                 `json:"sequence"`
	Policy    string              `json:"policy"`
	Records   int                 `json:"records"`
	CreatedAt string              `json:"created_at"`
	Buckets   *stats.FrequencyMap `json:"buckets"`
}

func newSnapshotOutput(s *models.Snapshot) snapshotOutput {
	return snapshotOutput{
		ID:        s.ID(),
		Sequence:  s.Sequence(),
		Policy:    s.Policy(),
		Records:   s.RecordCount(),
		CreatedAt: s.CreatedAt().UTC().Format("2006-01-02T15:04:05Z"),
		Buckets:   stats.FromSnapshot(s),
	}
}

// SnapshotsList prints saved charts, oldest first.
func (r *Runner) SnapshotsList(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{}
	if by := cmd.String("by"); by != "" {
		policy, err := stats.ParsePolicy(by)
		if err != nil {
			return err
		}
		criteria["policy"] = string(policy)
	}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = limit
	}

	repo, closeDB, err := r.openSnapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	snapshots, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]snapshotOutput, len(snapshots))
		for i, s := range snapshots {
			out[i] = newSnapshotOutput(s)
		}
		return r.writeJSON(out, true)
	}

	if len(snapshots) == 0 {
		return r.writePlain("No snapshots saved. Use 'libstats stats --save' to create one.\n")
	}

	r.writePlain("Found %d snapshots:\n\n", len(snapshots))
	for _, s := range snapshots {
		r.writePlain("#%d  %-8s %5d tracks  %3d buckets  %s\n",
			s.Sequence(), s.Policy(), s.RecordCount(), len(s.Entries()),
			s.CreatedAt().Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

// SnapshotsShow renders one saved chart.
func (r *Runner) SnapshotsShow(ctx context.Context, cmd *cli.Command) error {
	sequence := cmd.IntArg("sequence")
	if sequence <= 0 {
		return fmt.Errorf("%w: snapshot sequence number", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.openSnapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	snapshot, err := repo.GetBySequence(sequence)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newSnapshotOutput(snapshot), true)
	}

	title := fmt.Sprintf("#%d %s", snapshot.Sequence(), stats.Policy(snapshot.Policy()).Title())
	return r.writePlain("%s\n", ui.RenderHistogram(title, stats.FromSnapshot(snapshot), 0))
}

// SnapshotsDelete soft-deletes one saved chart.
func (r *Runner) SnapshotsDelete(ctx context.Context, cmd *cli.Command) error {
	sequence := cmd.IntArg("sequence")
	if sequence <= 0 {
		return fmt.Errorf("%w: snapshot sequence number", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.openSnapshots()
	if err != nil {
		return err
	}
	defer closeDB()

	snapshot, err := repo.GetBySequence(sequence)
	if err != nil {
		return err
	}
	if err := repo.Delete(snapshot.ID()); err != nil {
		return err
	}

	return r.writePlain("✓ Deleted snapshot #%d\n", sequence)
}
