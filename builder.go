package imgembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// BuildOptions configures one manifest build.
type BuildOptions struct {
	SourceRoot string
	OutputPath string
	// Progress receives human-readable progress and summary text. Nil discards it.
	Progress io.Writer
}

// CategoryStats summarizes one category of a finished build.
type CategoryStats struct {
	Name       string `json:"name"`
	Images     int    `json:"images"`
	TotalBytes int64  `json:"total_bytes"` // source bytes, not base64 bytes
}

// Failure records one image that could not be converted.
type Failure struct {
	Path string
	Err  error
}

// Report describes the outcome of a build.
type Report struct {
	StartedAt  time.Time
	SourceRoot string
	OutputPath string
	Discovered int
	Images     int
	TotalBytes int64
	Categories []CategoryStats
	Failures   []Failure
}

// Build scans opts.SourceRoot, converts every image into a data URI and
// writes the manifest to opts.OutputPath, replacing any previous file.
// A missing source root aborts before anything is written. Files that cannot
// be read are logged, listed in Report.Failures and left out of the manifest.
func Build(ctx context.Context, opts BuildOptions) (*Report, Manifest, error) {
	out := opts.Progress
	if out == nil {
		out = io.Discard
	}
	report := &Report{
		StartedAt:  time.Now().UTC(),
		SourceRoot: opts.SourceRoot,
		OutputPath: opts.OutputPath,
	}

	records, err := Scan(ctx, opts.SourceRoot)
	if err != nil {
		return nil, nil, err
	}
	report.Discovered = len(records)

	fmt.Fprintf(out, "Found %d images:\n", len(records))
	for _, r := range records {
		fmt.Fprintf(out, "  - %s\n", r.RelativePath)
	}
	fmt.Fprintln(out)

	manifest := make(Manifest)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(out, "Converting: %s\n", r.RelativePath)
		entry, err := convertRecord(r)
		if err != nil {
			slog.Error("image conversion failed", "path", r.SourcePath, "err", err)
			report.Failures = append(report.Failures, Failure{Path: r.RelativePath, Err: err})
			fmt.Fprintln(out, "  ✗ conversion failed")
			continue
		}
		manifest.Put(r.Category, entry)
		fmt.Fprintf(out, "  ✓ converted (%s)\n", humanize.Bytes(uint64(entry.Size)))
	}

	data, err := MarshalManifest(manifest)
	if err != nil {
		return nil, nil, err
	}
	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, data, 0o644); err != nil {
		return nil, nil, fmt.Errorf("write manifest: %w", err)
	}

	report.Categories = Summarize(manifest)
	for _, c := range report.Categories {
		report.Images += c.Images
		report.TotalBytes += c.TotalBytes
	}
	slog.Info("manifest written", "path", opts.OutputPath, "images", report.Images, "failures", len(report.Failures))
	report.WriteSummary(out)
	return report, manifest, nil
}

func convertRecord(r ImageRecord) (ManifestEntry, error) {
	uri, size, err := EncodeFile(r.SourcePath)
	if err != nil {
		return ManifestEntry{}, err
	}
	mt, _ := MimeType(r.Filename)
	return ManifestEntry{
		Base64:   uri,
		Filename: r.Filename,
		Path:     r.RelativePath,
		Size:     size,
		MimeType: mt,
	}, nil
}

// MarshalManifest renders m as indented JSON. Keys are emitted in sorted
// order so identical manifests always produce identical bytes.
func MarshalManifest(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Summarize returns per-category counts and source byte totals, sorted by name.
func Summarize(m Manifest) []CategoryStats {
	stats := make([]CategoryStats, 0, len(m))
	for name, files := range m {
		s := CategoryStats{Name: name, Images: len(files)}
		for _, e := range files {
			s.TotalBytes += e.Size
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// WriteSummary prints the end-of-run statistics.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w)
	if len(r.Failures) == 0 {
		fmt.Fprintln(w, "Conversion complete.")
	} else {
		fmt.Fprintf(w, "Conversion finished with %d failure(s).\n", len(r.Failures))
	}
	fmt.Fprintf(w, "Manifest saved to: %s\n", r.OutputPath)
	fmt.Fprintf(w, "Total images converted: %d\n", r.Images)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per category:")
	for _, c := range r.Categories {
		fmt.Fprintf(w, "  %s: %d images (%s)\n", c.Name, c.Images, humanize.Bytes(uint64(c.TotalBytes)))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed: %s: %v\n", f.Path, f.Err)
	}
}
