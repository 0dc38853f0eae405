package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/jsonutil"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/ui/components"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// tableOptions controls how a result is sorted and paged.
type tableOptions struct {
	Sort    string
	Desc    bool
	Page    int
	PerPage int
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	if !isTerminal(w) {
		return 0
	}
	f := w.(*os.File)
	width, _, err := term.GetSize(f.Fd())
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// fallbackWidth is used when the terminal does not report its size.
const fallbackWidth = 120

// writeDocument prints doc in the requested format.
func writeDocument(w io.Writer, doc api.Document, format string, opts tableOptions) error {
	switch strings.ToLower(format) {
	case OutputJSON:
		data, err := jsonutil.MarshalIndent(doc, "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(doc)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case OutputTable, "":
		if analysis := doc.String("analysis"); analysis != "" {
			_, err := fmt.Fprintln(w, components.RenderMarkdown(analysis))
			return err
		}
		t := panels.NewTable(doc)
		if opts.Sort != "" {
			t.Sort(opts.Sort, opts.Desc)
		}
		_, err := fmt.Fprintln(w, components.RenderTable(t, opts.Page, opts.PerPage, mode.Forge, terminalWidth(w)))
		return err
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}
