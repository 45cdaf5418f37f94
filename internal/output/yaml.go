package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/linkmagico/pkg/product"
)

// YAMLWriter writes results as YAML documents on Flush.
type YAMLWriter struct {
	w       *bufio.Writer
	results []product.Result
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers a result.
func (w *YAMLWriter) Write(r product.Result) error {
	w.results = append(w.results, r)
	return nil
}

// Flush writes the buffered results, one document each.
func (w *YAMLWriter) Flush() error {
	if len(w.results) == 0 {
		return w.w.Flush()
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)
	for _, r := range w.results {
		if err := encoder.Encode(r); err != nil {
			return err
		}
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	w.results = w.results[:0]
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
