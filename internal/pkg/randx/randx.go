/*
Package randx provides generation of unique identifiers for the transport layer.
*/
package randx

import "github.com/google/uuid"

// ConnectionID returns a new opaque identifier for a websocket connection.
// Identifiers are unique for the connection's lifetime and never reused after
// disconnect.
func ConnectionID() string {
	return uuid.New().String()
}
