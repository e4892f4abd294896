package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAggregated MsgKind = iota
	MsgProgressUpdate
	MsgSnapshotsLoaded
	MsgSnapshotSaved
)

type aggregated struct {
	policy stats.Policy
	result *tasks.RunResult
	err    error
}

// aggregatedMsg is the constructor for [MsgAggregated]
func aggregatedMsg(policy stats.Policy, result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgAggregated, data: aggregated{policy, result, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

type snapshotsLoaded struct {
	snapshots []*models.Snapshot
	err       error
}

// snapshotsLoadedMsg is the constructor for [MsgSnapshotsLoaded]
func snapshotsLoadedMsg(snapshots []*models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshotsLoaded, data: snapshotsLoaded{snapshots, err}}
}

type snapshotSaved struct {
	snapshot *models.Snapshot
	err      error
}

// snapshotSavedMsg is the constructor for [MsgSnapshotSaved]
func snapshotSavedMsg(snapshot *models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshotSaved, data: snapshotSaved{snapshot, err}}
}
