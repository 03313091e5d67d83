package ws

import "errors"

var (
	// ErrHubShutdown is the close reason sent to clients when the hub stops.
	ErrHubShutdown = errors.New("notification hub shutdown")
	// ErrConnectionClosed is returned when writing to a closed client.
	ErrConnectionClosed = errors.New("websocket connection closed")
)
