package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidExportRange is returned when an ExportRequest's time
// bounds are inverted.
var ErrInvalidExportRange = errors.New("audit: start_time must be before end_time")

// ExportRequest bounds a compliance evidence pack export (Enterprise
// tier; see tiers.FeatureComplianceExport).
type ExportRequest struct {
	StartTime time.Time
	EndTime   time.Time
}

// Exporter produces a self-contained, checksummed zip archive of a
// Sink range for handing to an auditor or regulator.
type Exporter struct {
	sink Sink
}

// NewExporter creates an Exporter reading from sink.
func NewExporter(sink Sink) *Exporter {
	return &Exporter{sink: sink}
}

// GeneratePack builds a zip containing records.json, manifest.json,
// and a human-readable README, and returns its bytes plus a SHA-256
// checksum of the zip itself.
func (e *Exporter) GeneratePack(ctx context.Context, req ExportRequest) ([]byte, string, error) {
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.StartTime.After(req.EndTime) {
		return nil, "", ErrInvalidExportRange
	}

	records, err := e.sink.Range(ctx, Range{From: req.StartTime, To: req.EndTime})
	if err != nil {
		return nil, "", fmt.Errorf("audit: export range query: %w", err)
	}
	if err := VerifyChain(records); err != nil {
		return nil, "", fmt.Errorf("audit: refusing to export a broken chain: %w", err)
	}

	recordsJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal records: %w", err)
	}

	head, err := e.sink.Head(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("audit: export head lookup: %w", err)
	}

	manifest := map[string]any{
		"generated_at": time.Now().UTC(),
		"record_count": len(records),
		"chain_head":   head,
		"period": map[string]any{
			"start": req.StartTime,
			"end":   req.EndTime,
		},
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	if err := writeZipFile(w, "records.json", recordsJSON); err != nil {
		return nil, "", err
	}
	if err := writeZipFile(w, "manifest.json", manifestJSON); err != nil {
		return nil, "", err
	}
	readme := fmt.Sprintf("TrustWrapper audit evidence pack\ngenerated %s\nrecords %d\n",
		time.Now().UTC().Format(time.RFC3339), len(records))
	if err := writeZipFile(w, "README.txt", []byte(readme)); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("audit: close zip writer: %w", err)
	}

	zipBytes := buf.Bytes()
	sum := sha256.Sum256(zipBytes)
	return zipBytes, hex.EncodeToString(sum[:]), nil
}

func writeZipFile(w *zip.Writer, name string, data []byte) error {
	f, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("audit: create %s in pack: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write %s in pack: %w", name, err)
	}
	return nil
}
