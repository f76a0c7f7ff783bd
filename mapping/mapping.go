// Package mapping reads and writes the CSV files used by the two-step
// workflow: a mapping of discovered source objects to output names, and
// the per-file result report a batch run produces.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Record maps one source object to its planned COG output.
type Record struct {
	SourceKey string
	SizeBytes int64
	DataType  string
	OutputKey string
}

// Result is the outcome of processing one record.
type Result struct {
	SourceKey string
	OutputKey string
	Status    string // success, skipped, failed
	Duration  time.Duration
	Error     string
	Timestamp time.Time
}

const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

var recordHeader = []string{"source_key", "size_bytes", "data_type", "output_key"}

// Write stores mapping records as CSV with a header row.
func Write(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		row := []string{r.SourceKey, strconv.FormatInt(r.SizeBytes, 10), r.DataType, r.OutputKey}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.SourceKey, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read loads mapping records, skipping the header row if present.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(recordHeader)
	var recs []Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read mapping line %d: %w", line, err)
		}
		if line == 1 && row[0] == recordHeader[0] {
			continue
		}
		size, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mapping line %d: bad size %q: %w", line, row[1], err)
		}
		recs = append(recs, Record{
			SourceKey: row[0],
			SizeBytes: size,
			DataType:  row[2],
			OutputKey: row[3],
		})
	}
	return recs, nil
}

// ReadFile loads mapping records from a CSV file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile stores mapping records to a CSV file.
func WriteFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteResults stores a batch report as CSV.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source_key", "output_key", "status", "duration_s", "error", "timestamp"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.SourceKey,
			r.OutputKey,
			r.Status,
			strconv.FormatFloat(r.Duration.Seconds(), 'f', 1, 64),
			r.Error,
			r.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write result %s: %w", r.SourceKey, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
