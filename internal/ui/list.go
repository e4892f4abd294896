package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/libstats/internal/models"
)

var (
	_ list.Item = snapshotItem{}
)

// snapshotItem wraps [models.Snapshot] to implement [list.Item].
type snapshotItem struct {
	snapshot *models.Snapshot
}

func (i snapshotItem) FilterValue() string { return i.snapshot.Policy() }
func (i snapshotItem) Title() string {
	return fmt.Sprintf("#%d %s", i.snapshot.Sequence(), i.snapshot.Policy())
}
func (i snapshotItem) Description() string {
	return fmt.Sprintf("%d tracks • %d buckets • %s",
		i.snapshot.RecordCount(),
		len(i.snapshot.Entries()),
		i.snapshot.CreatedAt().Local().Format("2006-01-02 15:04"),
	)
}
