package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AntoineDao/queenbee/internal/dag"
	"github.com/fatih/color"
)

// Diagnostic is one reported problem flattened for display.
type Diagnostic struct {
	Pass    string `json:"pass"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Location renders the diagnostic position as "line:column", or "" if unknown.
func (d Diagnostic) Location() string {
	if d.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", d.Line, d.Column)
}

// Result is the verdict for one DAG document.
type Result struct {
	File        string       `json:"file"`
	DAG         string       `json:"dag,omitempty"`
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"errors,omitempty"`
}

// positioned is implemented by every dag error embedding dag.Location.
type positioned interface {
	Position() dag.Location
}

// Describe flattens err into a Diagnostic. The message drops the position
// prefix since Line and Column carry it.
func Describe(pass string, err error) Diagnostic {
	d := Diagnostic{Pass: pass, Kind: kindOf(err), Message: err.Error()}

	var pe *dag.ParseError
	if errors.As(err, &pe) {
		d.Line, d.Column, d.Message = pe.Line, pe.Column, pe.Message
	}
	if p, ok := err.(positioned); ok {
		loc := p.Position()
		d.Line, d.Column = loc.Line, loc.Column
		if loc.Line > 0 {
			d.Message = strings.TrimPrefix(d.Message, fmt.Sprintf("line %d, column %d: ", loc.Line, loc.Column))
		}
	}

	switch e := err.(type) {
	case *dag.ConstructionError:
		d.Path = e.Path
	case *dag.UnresolvedReferenceError:
		d.Path = e.Path
	case *dag.DuplicateNameError:
		if len(e.Indexes) > 0 {
			d.Path = fmt.Sprintf("tasks[%d]", e.Indexes[0])
		}
	}
	return d
}

func kindOf(err error) string {
	name := fmt.Sprintf("%T", err)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

// FromReport converts a validation report for file into a Result.
func FromReport(file string, r *dag.Report) Result {
	res := Result{File: file, DAG: r.DAG, Valid: !r.HasErrors()}
	for _, p := range r.Passes {
		for _, err := range p.Errors {
			res.Diagnostics = append(res.Diagnostics, Describe(p.Pass, err))
		}
	}
	return res
}

// FromError converts a document that failed to parse into a Result.
func FromError(file string, err error) Result {
	var ce *dag.ConstructionError
	if errors.As(err, &ce) {
		return Result{File: file, Diagnostics: []Diagnostic{Describe(dag.PassConstruction, ce)}}
	}
	var pe *dag.ParseError
	if errors.As(err, &pe) {
		err = pe
	}
	return Result{File: file, Diagnostics: []Diagnostic{Describe("parse", err)}}
}

// Failed counts the results that are not valid.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Valid {
			n++
		}
	}
	return n
}

// TextOptions controls WriteText.
type TextOptions struct {
	// Width is the terminal width used for separators and truncation. Zero disables both.
	Width int
	// Quiet omits valid files.
	Quiet bool
}

// WriteText renders results one file at a time followed by a summary line.
func WriteText(w io.Writer, results []Result, opts TextOptions) {
	yellow := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, r := range results {
		title := r.File
		if r.DAG != "" {
			title = fmt.Sprintf("%s (%s)", r.File, r.DAG)
		}
		if r.Valid {
			if !opts.Quiet {
				PrintSuccess(w, title+": valid")
			}
			continue
		}

		PrintFailure(w, fmt.Sprintf("%s: %d error(s)", title, len(r.Diagnostics)))
		for _, d := range r.Diagnostics {
			var sb strings.Builder
			sb.WriteString("  ")
			sb.WriteString(yellow("[" + d.Pass + "]"))
			if loc := d.Location(); loc != "" {
				sb.WriteString(" ")
				sb.WriteString(r.File + ":" + loc)
			}
			if d.Path != "" {
				sb.WriteString(" ")
				sb.WriteString(dim(d.Path))
			}
			fmt.Fprintln(w, sb.String())

			msg := "    " + d.Message
			if opts.Width > 0 {
				msg = truncateLines(msg, opts.Width)
			}
			fmt.Fprintln(w, msg)
		}
	}

	if opts.Width > 0 && len(results) > 1 {
		PrintSeparator(w, opts.Width, "summary")
	}
	failed := Failed(results)
	summary := fmt.Sprintf("%d document(s) validated, %d failed", len(results), failed)
	if failed == 0 {
		PrintSuccess(w, summary)
	} else {
		PrintFailure(w, summary)
	}
}

func truncateLines(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = truncate(l, width)
	}
	return strings.Join(lines, "\n")
}

// WriteJSON renders results as an indented JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
