package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"

	"golang.org/x/net/websocket"

	"github.com/cmarsh/sitesync/internal/models"
)

// wsConn adapts a websocket connection to the coordinator's Conn interface.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Send(msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return websocket.Message.Send(c.ws, string(data))
}

// handleSync runs one client's session: register, pump inbound frames into
// the coordinator, unregister on any read error.
func (s *Server) handleSync(ws *websocket.Conn) {
	defer ws.Close()

	role, err := models.ParseRole(ws.Request().URL.Query().Get("type"))
	if err != nil {
		log.Printf("rejecting sync connection: %v", err)
		return
	}

	client := s.coord.ClientConnected(&wsConn{ws: ws}, role)
	defer s.coord.ClientDisconnected(client.ID)

	for {
		var frame string
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("read error from %s: %v", client.ID, err)
			}
			return
		}
		s.coord.HandleRaw(client.ID, []byte(frame))
	}
}
