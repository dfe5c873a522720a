package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/adalundhe/gpr/core/gp"
	"golang.org/x/term"
)

// Output formats.
const (
	formatAuto  = "auto"
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// ANSI codes for secondary output on a terminal.
const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"
)

// resolveFormat turns "auto" into table for a terminal and csv otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return format, nil
	case formatAuto, "":
		if isTerminal(w) {
			return formatTable, nil
		}
		return formatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want auto, table, csv or json)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// table is a header plus rows of already formatted cells.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) write(w io.Writer, format string) error {
	switch format {
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(t.header); err != nil {
			return err
		}
		if err := cw.WriteAll(t.rows); err != nil {
			return err
		}
		return cw.Error()
	case formatTable:
		return t.writeAligned(w)
	default:
		return fmt.Errorf("table output does not support format %q", format)
	}
}

func (t *table) writeAligned(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	for _, h := range t.header {
		fmt.Fprint(tw, h+"\t")
	}
	fmt.Fprintln(tw)
	for _, row := range t.rows {
		for _, cell := range row {
			fmt.Fprint(tw, cell+"\t")
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// predictionTable lays out a prediction with its band.
func predictionTable(p gp.Prediction, mode gp.BandMode, width float64) *table {
	lower, upper := p.Band(mode, width)
	t := &table{header: []string{"x", "mean", "variance", "lower", "upper"}}
	for i := range p.Mean {
		t.rows = append(t.rows, []string{
			formatFloat(p.X[i]),
			formatFloat(p.Mean[i]),
			formatFloat(p.Variance[i]),
			formatFloat(lower[i]),
			formatFloat(upper[i]),
		})
	}
	return t
}

// predictionJSON is the JSON document for a prediction.
type predictionJSON struct {
	gp.Prediction
	Band  gp.BandMode `json:"band"`
	Width float64     `json:"width"`
	Lower []float64   `json:"lower"`
	Upper []float64   `json:"upper"`
}

func writePrediction(w io.Writer, format string, p gp.Prediction, mode gp.BandMode, width float64) error {
	if format == formatJSON {
		lower, upper := p.Band(mode, width)
		return writeJSON(w, predictionJSON{Prediction: p, Band: mode, Width: width, Lower: lower, Upper: upper})
	}
	return predictionTable(p, mode, width).write(w, format)
}

func dim(w io.Writer, s string) string {
	if isTerminal(w) {
		return colorGray + s + colorReset
	}
	return s
}
