// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Logs the method, path, status, duration and request id of each request.
// Client errors are logged at warn, server errors at error.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			method := r.Method

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			entry := logger.WithFields(logrus.Fields{
				"method":   method,
				"path":     path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": duration,
				"remote":   r.RemoteAddr,
			})
			if id := chimw.GetReqID(r.Context()); id != "" {
				entry = entry.WithField("requestID", id)
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				entry.Error("HTTP Request")
			case ww.Status() >= http.StatusBadRequest:
				entry.Warn("HTTP Request")
			default:
				entry.Info("HTTP Request")
			}
		})
	}
}

// LogWebSocketConnect logs a snapshot feed subscriber joining. subscribers is
// the feed size including the new client.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr string, subscribers int) {
	logger.WithFields(logrus.Fields{
		"remote":      remoteAddr,
		"subscribers": subscribers,
	}).Info("feed subscriber connected")
}

// LogWebSocketDisconnect logs a subscriber leaving the feed. A nil err or a
// normal closure is a clean disconnect and logs at debug.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr string, subscribers int, err error) {
	entry := logger.WithFields(logrus.Fields{
		"remote":      remoteAddr,
		"subscribers": subscribers,
	})
	if err == nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		entry.Debug("feed subscriber disconnected")
		return
	}
	entry.WithError(err).Info("feed subscriber disconnected")
}
