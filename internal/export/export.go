// Package export drives conversion of a finished take into its output
// files: a lossless JSON dump and a BVH skeletal-animation file.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/mocap.report/internal/bvh"
	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/rig"
	"github.com/banshee-data/mocap.report/internal/take"
)

// Format selects an export output format.
type Format string

// Supported export formats. FormatAll writes both.
const (
	FormatJSON Format = "json"
	FormatBVH  Format = "bvh"
	FormatAll  Format = "all"
)

// DocumentTag identifies the JSON export document schema.
const DocumentTag = "mocap.take.v1"

// Options control one export invocation.
type Options struct {
	Format         Format
	FilenamePrefix string

	// IncludeFrames embeds every frame in the JSON document. Omitting them
	// is a valid lighter-weight mode carrying metadata only.
	IncludeFrames bool

	// FPS overrides the BVH output frame rate; 0 estimates it from the
	// exported frames' timestamps.
	FPS float64
}

// Result lists everything an export wrote.
type Result struct {
	Dir   string
	Paths []string
}

// FrameDoc is one frame as embedded in the JSON document.
type FrameDoc struct {
	TimestampMs int64     `json:"timestamp_ms"`
	Landmarks   []float64 `json:"landmarks"`
}

// Document is the JSON export payload.
type Document struct {
	Format string     `json:"format"`
	Take   *take.Take `json:"take"`
	Frames []FrameDoc `json:"frames,omitempty"`
}

// Exporter reads finished takes from the persistence port and writes output
// files under OutDir. It holds no per-call state and is safe to invoke
// concurrently for distinct takes.
type Exporter struct {
	store  take.Store
	rig    *rig.Rig
	outDir string
}

// NewExporter creates an Exporter writing under outDir with the given rig.
func NewExporter(store take.Store, r *rig.Rig, outDir string) *Exporter {
	return &Exporter{store: store, rig: r, outDir: outDir}
}

// ExportTake exports one take according to opts and returns the written
// paths. The take metadata and frame list are independent reads from the
// port; an unknown id surfaces take.ErrTakeNotFound.
func (e *Exporter) ExportTake(ctx context.Context, takeID string, opts Options) (*Result, error) {
	t, err := e.store.GetTake(ctx, takeID)
	if err != nil {
		return nil, err
	}
	frames, err := e.store.ListFrames(ctx, takeID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	prefix := opts.FilenamePrefix
	if prefix == "" {
		prefix = t.ID
	}

	res := &Result{Dir: e.outDir}

	if opts.Format == FormatJSON || opts.Format == FormatAll || opts.Format == "" {
		path, err := e.writeJSON(t, frames, prefix, opts.IncludeFrames)
		if err != nil {
			return nil, err
		}
		res.Paths = append(res.Paths, path)
	}

	if opts.Format == FormatBVH || opts.Format == FormatAll {
		path, err := e.writeBVH(frames, prefix, opts.FPS)
		if err != nil {
			return nil, err
		}
		res.Paths = append(res.Paths, path)
	}

	monitoring.Logf("export: wrote %d file(s) for take %s to %s", len(res.Paths), t.ID, e.outDir)
	return res, nil
}

func (e *Exporter) writeJSON(t *take.Take, frames []landmark.Frame, prefix string, includeFrames bool) (string, error) {
	doc := Document{Format: DocumentTag, Take: t}
	if includeFrames {
		doc.Frames = make([]FrameDoc, len(frames))
		for i, f := range frames {
			doc.Frames[i] = FrameDoc{TimestampMs: f.TimestampMs, Landmarks: f.Landmarks}
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode take document: %w", err)
	}

	path := filepath.Join(e.outDir, prefix+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write take document: %w", err)
	}
	return path, nil
}

func (e *Exporter) writeBVH(frames []landmark.Frame, prefix string, fps float64) (string, error) {
	text, err := bvh.NewWriter(e.rig).Render(frames, fps)
	if err != nil {
		return "", fmt.Errorf("render bvh: %w", err)
	}

	path := filepath.Join(e.outDir, prefix+".bvh")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("write bvh: %w", err)
	}
	return path, nil
}
