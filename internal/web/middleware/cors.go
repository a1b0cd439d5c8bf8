package middleware

import (
	"net/http"
	"sync/atomic"
)

// CORSPolicy holds the values sent in the Access-Control-* response headers.
type CORSPolicy struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// DefaultCORSPolicy allows any origin to GET, POST and preflight with a
// Content-Type header.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowOrigin:  "*",
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Content-Type",
	}
}

// CORSHeaders is a CORSPolicy that can be replaced while requests are
// being served.
type CORSHeaders struct {
	p atomic.Pointer[CORSPolicy]
}

// NewCORSHeaders returns CORSHeaders holding p.
func NewCORSHeaders(p CORSPolicy) *CORSHeaders {
	h := &CORSHeaders{}
	h.Store(p)
	return h
}

// Load returns the current policy.
func (h *CORSHeaders) Load() CORSPolicy {
	return *h.p.Load()
}

// Store replaces the current policy. Requests already in flight keep the
// policy they started with.
func (h *CORSHeaders) Store(p CORSPolicy) {
	h.p.Store(&p)
}

func (p CORSPolicy) apply(hdr http.Header) {
	hdr.Set("Access-Control-Allow-Origin", p.AllowOrigin)
	hdr.Set("Access-Control-Allow-Methods", p.AllowMethods)
	hdr.Set("Access-Control-Allow-Headers", p.AllowHeaders)
}

// CORS returns middleware that adds permissive CORS headers to every
// response, whatever its status. The headers are set after next has set
// its own, just before they are sent.
//
// OPTIONS requests on any path are answered 200 with an empty body and
// never reach next.
func CORS(headers *CORSHeaders) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := headers.Load()

			if r.Method == http.MethodOptions {
				policy.apply(w.Header())
				w.WriteHeader(http.StatusOK)
				return
			}

			hw := &hookWriter{ResponseWriter: w, beforeHeader: policy.apply}
			next.ServeHTTP(hw, r)
			hw.finish()
		})
	}
}
