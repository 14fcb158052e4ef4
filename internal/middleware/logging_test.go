// internal/middleware/logging_test.go
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddleware_RecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()

	tests := []struct {
		name   string
		status int
		level  logrus.Level
	}{
		{"ok", http.StatusOK, logrus.InfoLevel},
		{"conflict", http.StatusConflict, logrus.WarnLevel},
		{"server error", http.StatusInternalServerError, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/match/start", nil))

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.status, entry.Data["status"])
			assert.Equal(t, "/match/start", entry.Data["path"])
			assert.Equal(t, http.MethodPost, entry.Data["method"])
		})
	}
}

func TestLogWebSocketDisconnect_IncludesError(t *testing.T) {
	logger, hook := test.NewNullLogger()

	LogWebSocketDisconnect(logger, "127.0.0.1:5000", 2, errors.New("reset"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, 2, entry.Data["subscribers"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "reset")
}

func TestLogWebSocketDisconnect_CleanCloseIsDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	LogWebSocketDisconnect(logger, "127.0.0.1:5000", 0, nil)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.NotContains(t, entry.Data, logrus.ErrorKey)
}
