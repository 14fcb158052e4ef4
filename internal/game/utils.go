// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EncodeView marshals a SessionView into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EncodeView(v SessionView) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).WithField("phase", v.Phase.String()).Warn("failed to marshal session view")
		return []byte("{}")
	}
	return data
}

// EncodeEvent marshals an Event into JSON bytes, "{}" on error.
func EncodeEvent(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).WithField("event", ev.Type).Warn("failed to marshal event")
		return []byte("{}")
	}
	return data
}
