package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type (
	respData struct {
		code int
		size int
	}

	logResponseWriter struct {
		http.ResponseWriter
		data *respData
	}
)

func (w *logResponseWriter) Write(data []byte) (int, error) {
	size, err := w.ResponseWriter.Write(data)
	w.data.size += size
	return size, err
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
	w.data.code = code
}

// WithLogging logs every scrape at debug level.
func WithLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		respData := respData{code: http.StatusOK}
		lw := logResponseWriter{ResponseWriter: w, data: &respData}

		handler.ServeHTTP(&lw, r)

		log.Debug().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Int("code", respData.code).
			Int("size", respData.size).
			Msg("Scrape")
	})
}
