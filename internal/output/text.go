package output

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/linkmagico/pkg/product"
)

// TextWriter prints a human readable summary per result.
type TextWriter struct {
	w     *bufio.Writer
	count int
	now   func() time.Time
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), now: time.Now}
}

// Write prints r.
func (w *TextWriter) Write(r product.Result) error {
	if w.count > 0 {
		fmt.Fprintln(w.w)
	}
	w.count++

	fmt.Fprintf(w.w, "%s\n", r.Title)
	fmt.Fprintf(w.w, "  URL:         %s\n", r.SourceURL)
	if r.FinalURL != "" && r.FinalURL != r.SourceURL {
		fmt.Fprintf(w.w, "  Final URL:   %s\n", r.FinalURL)
	}
	if !r.ExtractedAt.IsZero() {
		fmt.Fprintf(w.w, "  Extracted:   %s\n", humanize.RelTime(r.ExtractedAt, w.now(), "ago", "from now"))
	}
	if r.Error != nil {
		fmt.Fprintf(w.w, "  Error:       %s\n", r.Error)
	}
	fmt.Fprintf(w.w, "  Price:       %s\n", r.Price)
	fmt.Fprintf(w.w, "  CTA:         %s\n", r.CallToAction)
	fmt.Fprintf(w.w, "  Description: %s\n", r.Description)
	writeList(w.w, "Benefits", r.Benefits)
	writeList(w.w, "Testimonials", r.Testimonials)

	return w.w.Flush()
}

func writeList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s (%s):\n", label, humanize.Comma(int64(len(items))))
	for _, item := range items {
		fmt.Fprintf(w, "    - %s\n", item)
	}
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}
