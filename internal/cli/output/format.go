package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// Format represents the output format type
type Format string

const (
	// FormatText is the default human-readable text format
	FormatText Format = "text"
	// FormatJSON is the JSON output format
	FormatJSON Format = "json"
)

// Formatter writes command results as aligned text or JSON.
type Formatter struct {
	format Format
	writer io.Writer
}

// New creates a new Formatter with the specified format
func New(format Format) *Formatter {
	return &Formatter{
		format: format,
		writer: os.Stdout,
	}
}

// SetWriter sets a custom writer for output (useful for testing)
func (f *Formatter) SetWriter(w io.Writer) {
	f.writer = w
}

// Writer returns the destination of the formatter.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// IsJSON returns true if the format is JSON
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Output writes data as indented JSON, or with %v in text mode.
func (f *Formatter) Output(data any) error {
	switch f.format {
	case FormatJSON:
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatText:
		_, err := fmt.Fprintf(f.writer, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

// Table writes rows under headers. In JSON mode data is encoded instead and
// the rows are ignored.
func (f *Formatter) Table(data any, headers []string, rows [][]string) error {
	if f.IsJSON() {
		return f.Output(data)
	}

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Fields writes label/value pairs one per line. In JSON mode data is
// encoded instead.
func (f *Formatter) Fields(data any, pairs [][2]string) error {
	if f.IsJSON() {
		return f.Output(data)
	}

	tw := tabwriter.NewWriter(f.writer, 0, 0, 1, ' ', 0)
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s:\t%s\n", p[0], p[1])
	}
	return tw.Flush()
}

// AddFormatFlag adds a persistent --output flag to cmd.
func AddFormatFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text|json)")
}

// GetFormatFromCmd extracts the output format from a cobra command's flags
func GetFormatFromCmd(cmd *cobra.Command) (Format, error) {
	formatStr, err := cmd.Flags().GetString("output")
	if err != nil {
		return FormatText, err
	}

	format := Format(formatStr)
	switch format {
	case FormatText, FormatJSON:
		return format, nil
	default:
		return FormatText, fmt.Errorf("invalid output format: %s (must be 'text' or 'json')", formatStr)
	}
}
