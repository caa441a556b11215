package websocket

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type socketClient struct {
	id     *uuid.UUID
	socket *websocket.Conn
}

func (client *socketClient) SendMessage(message *SocketMessage) error {
	return client.socket.WriteJSON(message)
}

// Read blocks on the clients websocket connection until it errors,
// discarding any inbound frames. Clients are listeners only; the hub
// never acts on data they send. The read loop exists to observe the
// connection closing so the caller can deregister the client.
func (client *socketClient) Read() error {
	for {
		if _, _, err := client.socket.ReadMessage(); err != nil {
			return err
		}
	}
}

// Close will close this clients socket
func (client *socketClient) Close() {
	client.socket.Close()
}
