package kfmt

import "io"

// PrefixWriter wraps an io.Writer and emits Prefix in front of every line.
type PrefixWriter struct {
	Sink   io.Writer
	Prefix []byte

	midLine bool
}

// Write forwards p to the sink, starting each new line with the prefix. The
// prefix is not counted in the returned byte count. A prefix is only emitted
// once data for the new line arrives, so a trailing newline does not leave a
// dangling prefix behind.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		end := 0
		for end < len(p) && p[end] != '\n' {
			end++
		}
		if end < len(p) {
			end++
			w.midLine = false
		}

		n, err := w.Sink.Write(p[:end])
		written += n
		if err != nil {
			return written, err
		}

		p = p[end:]
	}

	return written, nil
}
