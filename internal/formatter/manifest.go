package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PolicyExportResult is the outcome of exporting one policy.
type PolicyExportResult struct {
	Policy  string `json:"policy"`
	File    string `json:"file,omitempty"`
	Buckets int    `json:"buckets"`
	Success bool   `json:"success"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	Records           int                  `json:"records"`
	OutputDirectory   string               `json:"output_directory"`
	Format            string               `json:"format"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	Results           []PolicyExportResult `json:"results"`
	ManifestPath      string               `json:"-"`
}

type manifest struct {
	*BulkExportResult
	GeneratedAt time.Time `json:"generated_at"`
}

// WriteBulkExportManifest writes result as indented JSON to path.
func WriteBulkExportManifest(result *BulkExportResult, path string) error {
	for i := range result.Results {
		if err := result.Results[i].Err; err != nil {
			result.Results[i].Error = err.Error()
		}
	}

	data, err := json.MarshalIndent(manifest{BulkExportResult: result, GeneratedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
