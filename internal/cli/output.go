package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	labelColor   = color.New(color.FgCyan)
)

func validateOutput(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// writeOutput writes v as json or yaml, or calls text for the text format.
func writeOutput(w io.Writer, format string, v interface{}, text func(w io.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// startSpinner shows progress on stderr unless output is quiet or
// machine-readable. The returned func stops it.
func startSpinner(opts *options, w io.Writer, suffix string) func() {
	if opts.quiet || opts.output != "text" {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}
