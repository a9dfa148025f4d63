package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

type printer struct {
	w    io.Writer
	json bool
}

// emit prints v as JSON, or as a table built by rows.
func (p printer) emit(v any, header []string, rows func() [][]string) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return p.table(header, rows())
}

func (p printer) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func (p printer) line(format string, a ...any) {
	fmt.Fprintf(p.w, format+"\n", a...)
}

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v) }

func arrow(d *float64) string {
	switch {
	case d == nil:
		return ""
	case *d >= 0:
		return "▲ " + f2(*d)
	default:
		return "▼ " + f2(-*d)
	}
}
