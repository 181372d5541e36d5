// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// DefaultPrefix names exported files shoulder_measurement_<epoch-millis>.csv.
const DefaultPrefix = "shoulder_measurement"

// Header is the first row of every export.
var Header = []string{"Time (s)", "Algorithm 1 (EWMA)", "Algorithm 2 (Fusion)"}

// maxNameAttempts bounds the search for a free file name.
const maxNameAttempts = 1000

// Error reports a failed export. Nothing is left on disk when it is returned.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("export: %v", e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CSVExporter writes a recorded series to a new CSV file in Dir. An
// existing file is never opened for writing.
type CSVExporter struct {
	Dir    string
	Prefix string           // DefaultPrefix when empty
	Now    func() time.Time // time.Now when nil
}

// Export writes the header plus one row per point and returns the file path.
func (e CSVExporter) Export(points []measurement.AnglePoint) (string, error) {
	f, err := e.create()
	if err != nil {
		return "", err
	}
	path := f.Name()

	if err := writeCSV(f, points); err != nil {
		f.Close()
		os.Remove(path)
		return "", &Error{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", &Error{Path: path, Err: err}
	}

	log.Printf("export: wrote %d points to %s", len(points), path)
	return path, nil
}

// create opens a fresh file, advancing the millisecond suffix past names
// that already exist.
func (e CSVExporter) create() (*os.File, error) {
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Path: dir, Err: err}
	}

	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	millis := now().UnixMilli()
	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.csv", prefix, millis+int64(i)))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		return f, nil
	}
	return nil, &Error{Path: dir, Err: fmt.Errorf("no free file name after %d attempts", maxNameAttempts)}
}

func writeCSV(f *os.File, points []measurement.AnglePoint) error {
	bw := bufio.NewWriter(f)
	cw := csv.NewWriter(bw)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 3)
	for _, p := range points {
		row[0] = formatFloat(p.ElapsedSeconds)
		row[1] = formatFloat(p.Algorithm1)
		row[2] = formatFloat(p.Algorithm2)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return f.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
