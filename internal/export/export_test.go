package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/bvh"
	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/rig"
	"github.com/banshee-data/mocap.report/internal/take"
)

// fullFrame builds a complete 33-landmark frame whose coordinates vary per
// landmark, so a truncated or reordered round trip cannot pass by accident.
func fullFrame(ts int64) landmark.Frame {
	lm := make([]float64, 33*landmark.Stride)
	for i := 0; i < 33; i++ {
		lm[i*4+0] = 0.1 + float64(i)*0.01
		lm[i*4+1] = 0.9 - float64(i)*0.01
		lm[i*4+2] = float64(i) * 0.001
		lm[i*4+3] = 0.95
	}
	return landmark.Frame{TimestampMs: ts, Landmarks: lm}
}

func newTestExporter(t *testing.T, frameCount int) (*Exporter, *take.Take, []landmark.Frame) {
	t.Helper()

	store, err := take.OpenSQLite(filepath.Join(t.TempDir(), "takes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	tk, err := store.CreateTake(ctx, "export test", "")
	require.NoError(t, err)

	var frames []landmark.Frame
	for i := 0; i < frameCount; i++ {
		frames = append(frames, fullFrame(int64(i)*33))
	}
	if frameCount > 0 {
		_, err = store.AppendFrames(ctx, tk.ID, 0, frames)
		require.NoError(t, err)
		tk, err = store.FinalizeTake(ctx, tk.ID, frames[0].TimestampMs, frames[frameCount-1].TimestampMs)
		require.NoError(t, err)
	}

	return NewExporter(store, rig.New(0), t.TempDir()), tk, frames
}

func TestExportJSONRoundTrip(t *testing.T) {
	exp, tk, frames := newTestExporter(t, 10)

	res, err := exp.ExportTake(context.Background(), tk.ID, Options{
		Format:        FormatJSON,
		IncludeFrames: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, filepath.Join(res.Dir, tk.ID+".json"), res.Paths[0])

	data, err := os.ReadFile(res.Paths[0])
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, DocumentTag, doc.Format)
	assert.Equal(t, tk.ID, doc.Take.ID)
	assert.Equal(t, tk.FrameCount, doc.Take.FrameCount)

	// The stored and exported encodings are the same JSON shape, so the
	// document must reproduce the captured frames exactly.
	require.Len(t, doc.Frames, len(frames))
	for i, f := range frames {
		assert.Equal(t, f.TimestampMs, doc.Frames[i].TimestampMs)
		if diff := cmp.Diff(f.Landmarks, doc.Frames[i].Landmarks); diff != "" {
			t.Fatalf("frame %d landmarks mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestExportMetadataOnly(t *testing.T) {
	exp, tk, _ := newTestExporter(t, 5)

	res, err := exp.ExportTake(context.Background(), tk.ID, Options{Format: FormatJSON})
	require.NoError(t, err)

	data, err := os.ReadFile(res.Paths[0])
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Empty(t, doc.Frames)
	assert.NotContains(t, string(data), `"frames"`)
	assert.Equal(t, tk.ID, doc.Take.ID)
}

func TestExportDefaultsToJSON(t *testing.T) {
	exp, tk, _ := newTestExporter(t, 3)

	res, err := exp.ExportTake(context.Background(), tk.ID, Options{})
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.True(t, strings.HasSuffix(res.Paths[0], ".json"))
}

func TestExportAllWritesBothFiles(t *testing.T) {
	exp, tk, _ := newTestExporter(t, 4)

	res, err := exp.ExportTake(context.Background(), tk.ID, Options{
		Format:         FormatAll,
		FilenamePrefix: "session42",
		IncludeFrames:  true,
	})
	require.NoError(t, err)
	require.Len(t, res.Paths, 2)
	assert.Equal(t, filepath.Join(res.Dir, "session42.json"), res.Paths[0])
	assert.Equal(t, filepath.Join(res.Dir, "session42.bvh"), res.Paths[1])

	text, err := os.ReadFile(res.Paths[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "HIERARCHY\n"))
	assert.Contains(t, string(text), "Frames: 4\n")
}

func TestExportUnknownTake(t *testing.T) {
	exp, _, _ := newTestExporter(t, 1)

	_, err := exp.ExportTake(context.Background(), "take_missing", Options{})
	assert.ErrorIs(t, err, take.ErrTakeNotFound)
}

func TestExportEmptyTakeBVHFails(t *testing.T) {
	exp, tk, _ := newTestExporter(t, 0)

	_, err := exp.ExportTake(context.Background(), tk.ID, Options{Format: FormatBVH})
	assert.ErrorIs(t, err, bvh.ErrNoFrames)

	// The metadata-only JSON export of an empty take still succeeds.
	res, err := exp.ExportTake(context.Background(), tk.ID, Options{Format: FormatJSON})
	require.NoError(t, err)
	assert.Len(t, res.Paths, 1)
}
