package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/linkmagico/pkg/product"
)

// JSONWriter buffers results and writes them on Flush: a single result as
// an object, several as an array.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	results []product.Result
	flushed bool
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:       bufio.NewWriter(w),
		pretty:  pretty,
		indent:  indent,
		results: make([]product.Result, 0),
	}
}

// Write buffers a result.
func (w *JSONWriter) Write(r product.Result) error {
	w.results = append(w.results, r)
	w.flushed = false
	return nil
}

// Flush writes the buffered results. Flushing twice without new results
// writes nothing the second time.
func (w *JSONWriter) Flush() error {
	if w.flushed {
		return nil
	}

	var v any = w.results
	if len(w.results) == 1 {
		v = w.results[0]
	}

	var data []byte
	var err error
	if w.pretty {
		data, err = json.MarshalIndent(v, "", w.indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.flushed = true
	w.results = w.results[:0]
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes one JSON object per line as results arrive.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

// Write writes a result as a JSON line.
func (w *JSONLWriter) Write(r product.Result) error {
	if err := w.enc.Encode(r); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
