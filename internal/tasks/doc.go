// Package tasks runs the saved-track pipeline with real-time progress reporting.
//
// # Core Operations
//
//  1. [Pipeline.Run] : one chart
//     - Pages through the saved-tracks collection (served from the paginator cache after the first run)
//     - Orders the records oldest first
//     - Buckets them under a stats.Policy (genre also resolves the first 20 albums)
//
//  2. [Pipeline.BulkExport] : every chart to disk
//     - Fetches the records once
//     - Aggregates and writes each policy on a small worker pool
//     - Writes export_manifest.json summarizing the files
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default so a slow or absent reader never blocks the pipeline.
package tasks
