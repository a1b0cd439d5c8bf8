package middleware

import "net/http"

// Chain applies middleware to a handler in the given order.
// The first middleware in the list wraps outermost (runs first).
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// hookWriter runs beforeHeader exactly once, right before the status line
// and headers are sent, and records what was written.
type hookWriter struct {
	http.ResponseWriter
	beforeHeader func(http.Header)
	wroteHeader  bool
	status       int
	bytes        int64
}

func (w *hookWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	// 1xx responses are informational and do not finalize the headers.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.status = code
	if w.beforeHeader != nil {
		w.beforeHeader(w.Header())
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *hookWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Status returns the response code, or 200 if nothing was written.
func (w *hookWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *hookWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finish sends headers for handlers that returned without writing anything.
func (w *hookWriter) finish() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}
