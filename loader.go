package krox

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadTimeSeries parses a two column (time, value) table. Lines starting with
// `#` are comments and a non numeric first record is treated as a header.
// Times must be strictly increasing.
func ReadTimeSeries(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var samples []Sample
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("time series record %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("time series record %d: expected two columns, got %d", line, len(record))
		}
		t, terr := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		v, verr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if terr != nil || verr != nil {
			if len(samples) == 0 && line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("time series record %d: cannot parse %q", line, record)
		}
		if n := len(samples); n > 0 && t <= samples[n-1].Time {
			return nil, fmt.Errorf("time series record %d: time %g not after %g", line, t, samples[n-1].Time)
		}
		samples = append(samples, Sample{Time: t, Value: v})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("time series is empty")
	}
	return samples, nil
}

// LoadTimeSeries reads a two column CSV file and returns it as a Table.
func LoadTimeSeries(path string, clamp bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	samples, err := ReadTimeSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewTable(samples, clamp)
}
