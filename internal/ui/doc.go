// Package ui renders save-frequency charts in the terminal.
//
// [RenderHistogram] draws a [stats.FrequencyMap] as horizontal lipgloss bars and is shared by the CLI and the TUI.
//
// The interactive TUI is a bubbletea (Elm architecture) program with three views:
//  1. [ChartView] : the chart for the current policy; d/m/y/w/g switch policy, s saves a snapshot
//  2. [SnapshotListView] : saved snapshots in a bubbles list (l)
//  3. [SnapshotView] : one stored chart
//
// Switching policy re-runs the pipeline, which serves the saved tracks from the paginator cache, so only the
// genre chart talks to the API again. Progress updates flow through a channel and are shown next to a spinner.
package ui
