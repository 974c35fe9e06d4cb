package signalsim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Ensure LineHandler implements [slog.Handler].
var _ slog.Handler = (*LineHandler)(nil)

// ErrorFunc receives errors a component recovered from locally.
type ErrorFunc func(error)

// LineHandlerOptions configures a [LineHandler].
type LineHandlerOptions struct {
	// Level is the minimum level logged. Defaults to [slog.LevelInfo].
	Level slog.Leveler

	// TimeLayout formats the bracketed timestamp. Defaults to "15:04:05".
	TimeLayout string

	// OnError is called when writing a line fails. Handle still returns nil
	// so the caller carries on.
	OnError ErrorFunc
}

// LineHandler is a [slog.Handler] that writes each record as a single line of
// the form
//
//	[15:04:05] message key=value ...
//
// Writes from every handler derived through WithAttrs and WithGroup are
// serialised, so concurrent records never interleave mid-line.
type LineHandler struct {
	opts LineHandlerOptions

	mu *sync.Mutex
	w  io.Writer

	preformatted []byte
	group        string
}

// NewLineHandler creates a [LineHandler] writing to w.
func NewLineHandler(w io.Writer, opts *LineHandlerOptions) *LineHandler {
	h := &LineHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.TimeLayout == "" {
		h.opts.TimeLayout = time.TimeOnly
	}
	return h
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	buf := make([]byte, 0, 128)
	buf = append(buf, '[')
	buf = t.AppendFormat(buf, h.opts.TimeLayout)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)
	buf = append(buf, h.preformatted...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.group, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	_, err := h.w.Write(buf)
	h.mu.Unlock()

	if err != nil && h.opts.OnError != nil {
		h.opts.OnError(fmt.Errorf("write log line: %w", err))
	}
	return nil
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.preformatted = append([]byte(nil), h.preformatted...)
	for _, a := range attrs {
		h2.preformatted = appendAttr(h2.preformatted, h.group, a)
	}
	return &h2
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, prefix, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	s := a.Value.String()
	if s == "" || strings.ContainsAny(s, " =\"") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
