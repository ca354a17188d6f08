package etl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// StreamWriter prints records, tab separated, or just counts them.
type StreamWriter struct {
	Out   io.Writer
	Print bool

	written int64
}

func NewStreamWriter(out io.Writer, print bool) *StreamWriter {
	return &StreamWriter{Out: out, Print: print}
}

func (s *StreamWriter) WriteBatch(_ context.Context, recs []*models.Record) error {
	s.written += int64(len(recs))
	if !s.Print {
		return nil
	}
	for _, rec := range recs {
		parts := make([]string, rec.ColumnNumber())
		for i := range parts {
			parts[i] = rec.Column(i).String()
		}
		if _, err := fmt.Fprintln(s.Out, strings.Join(parts, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func (s *StreamWriter) Written() int64 { return s.written }

func (s *StreamWriter) Close(context.Context) error { return nil }
