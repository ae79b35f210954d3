// Package export writes simulation results as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/core/trials"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// FormatOf derives the export format from a file extension.
func FormatOf(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case FormatCSV, FormatJSON:
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want .csv or .json)", filepath.Ext(path))
	}
}

// ToFile creates path and hands it to write.
func ToFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WritePowerHistoryCSV writes one row per interval with the hour it was
// attributed to.
func WritePowerHistoryCSV(w io.Writer, res *simulation.Results) error {
	rows := make([][]string, 0, len(res.PowerHistory))
	for i, p := range res.PowerHistory {
		idx := i + 1
		rows = append(rows, []string{
			strconv.Itoa(idx),
			strconv.Itoa(res.Config.HourOf(idx)),
			formatFloat(p),
		})
	}
	return writeCSV(w, []string{"interval", "hour", "power_kw"}, rows)
}

// WriteHistogramCSV writes a power histogram.
func WriteHistogramCSV(w io.Writer, bins []simulation.HistogramBin) error {
	rows := make([][]string, 0, len(bins))
	for _, b := range bins {
		rows = append(rows, []string{formatFloat(b.UpperKW), strconv.Itoa(b.Count), formatFloat(b.Percentage)})
	}
	return writeCSV(w, []string{"max_power_kw", "count", "percentage"}, rows)
}

// WriteDailyProfileCSV writes the average day of a profile.
func WriteDailyProfileCSV(w io.Writer, p *simulation.DailyProfile) error {
	rows := make([][]string, 0, len(p.Intervals))
	for _, iv := range p.Intervals {
		rows = append(rows, []string{iv.Time, formatFloat(iv.Avg), formatFloat(iv.Max), formatFloat(iv.Min)})
	}
	return writeCSV(w, []string{"time", "avg_kwh", "max_kwh", "min_kwh"}, rows)
}

// WriteTrialsCSV writes the concurrency factor histogram of a batch.
func WriteTrialsCSV(w io.Writer, buckets []metrics.FactorBucket) error {
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{strconv.FormatFloat(b.Factor, 'f', 2, 64), strconv.Itoa(b.Count)})
	}
	return writeCSV(w, []string{"concurrency_factor", "count"}, rows)
}

// WriteSweepCSV writes one row per fleet size.
func WriteSweepCSV(w io.Writer, points []trials.SweepPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{strconv.Itoa(p.Chargepoints), formatFloat(p.MaxPowerKW), formatFloat(p.ConcurrencyFactor)})
	}
	return writeCSV(w, []string{"chargepoints", "max_power_kw", "concurrency_factor"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
