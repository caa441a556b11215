package websocket

import (
	"github.com/google/uuid"
)

type socketMessageType int

const (
	Update socketMessageType = iota
	Welcome
)

// SocketMessage is one JSON frame pushed to connected clients. Target,
// when set, restricts delivery to the client with the matching UUID;
// otherwise the message is broadcast.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Type   socketMessageType      `json:"type"`
	Target *uuid.UUID             `json:"-"`
}
