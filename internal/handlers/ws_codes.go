// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the snapshot feed.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	SlowSubscriberError = 3001 // Client fell too far behind the feed and was dropped.
)
