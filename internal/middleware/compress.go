package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

const (
	contentEncoding = "Content-Encoding"
	contentLength   = "Content-Length"
	acceptEncoding  = "Accept-Encoding"
	vary            = "Vary"
	encodingGzip    = "gzip"
)

type compResponseWriter struct {
	http.ResponseWriter
	cw *gzip.Writer
}

func newCompReponseWriter(w http.ResponseWriter) *compResponseWriter {
	return &compResponseWriter{
		ResponseWriter: w,
		cw:             gzip.NewWriter(w),
	}
}

func (w *compResponseWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.Header().Del(contentLength)
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *compResponseWriter) Write(p []byte) (n int, err error) {
	return w.cw.Write(p)
}

func (w *compResponseWriter) Close() error {
	return w.cw.Close()
}

// WithCompressing gzips the response when the client accepts it.
func WithCompressing(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add(vary, acceptEncoding)

		if !contains(r.Header.Values(acceptEncoding), encodingGzip) {
			handler.ServeHTTP(w, r)
			return
		}

		w.Header().Set(contentEncoding, encodingGzip)
		compW := newCompReponseWriter(w)
		defer compW.Close()

		handler.ServeHTTP(compW, r)
	})
}

func contains(ss []string, str string) bool {
	for _, s := range ss {
		if strings.Contains(s, str) {
			return true
		}
	}
	return false
}
