package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	points := []measurement.AnglePoint{
		{ElapsedSeconds: 0.05, Algorithm1: 4.5, Algorithm2: 4.41},
		{ElapsedSeconds: 0.1, Algorithm1: 8.55, Algorithm2: 8.379},
		{ElapsedSeconds: 0.15000000000000002, Algorithm1: -12.25, Algorithm2: 0},
	}

	path, err := CSVExporter{Dir: dir, Now: fixedClock(1700000000123)}.Export(points)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shoulder_measurement_1700000000123.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, len(points)+1)
	assert.Equal(t, "Time (s),Algorithm 1 (EWMA),Algorithm 2 (Fusion)", lines[0])
	assert.Equal(t, "0.05,4.5,4.41", lines[1])

	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	for i, p := range points {
		rec := records[i+1]
		for j, want := range []float64{p.ElapsedSeconds, p.Algorithm1, p.Algorithm2} {
			got, err := strconv.ParseFloat(rec[j], 64)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestExportEmptySeries(t *testing.T) {
	path, err := CSVExporter{Dir: t.TempDir()}.Export(nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Time (s),Algorithm 1 (EWMA),Algorithm 2 (Fusion)\n", string(raw))
}

func TestExportNeverClobbers(t *testing.T) {
	dir := t.TempDir()
	exp := CSVExporter{Dir: dir, Prefix: "run", Now: fixedClock(42)}

	existing := filepath.Join(dir, "run_42.csv")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	first, err := exp.Export([]measurement.AnglePoint{{ElapsedSeconds: 0.05}})
	require.NoError(t, err)
	second, err := exp.Export([]measurement.AnglePoint{{ElapsedSeconds: 0.05}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "run_43.csv"), first)
	assert.Equal(t, filepath.Join(dir, "run_44.csv"), second)

	raw, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(raw))
}

func TestExportFailure(t *testing.T) {
	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	path, err := CSVExporter{Dir: filepath.Join(blocker, "sub")}.Export(nil)
	require.Error(t, err)
	assert.Empty(t, path)

	var exportErr *Error
	require.True(t, errors.As(err, &exportErr))
	assert.NotNil(t, exportErr.Unwrap())
	assert.Contains(t, err.Error(), "export")
}

func TestExportCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Documents", "shoulder")
	path, err := CSVExporter{Dir: dir}.Export(nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
