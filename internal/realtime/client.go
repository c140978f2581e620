package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// presence identifies a connection to the rest of the room. Session ids are
// opaque to other clients; no internal user ids leave the server.
type presence struct {
	ParticipantSessionID string `json:"participant_session_id"`
	DisplayName          string `json:"display_name"`
}

// SpaceSource resolves a room (join code) to its space.
type SpaceSource interface {
	GetByJoinCode(ctx context.Context, code string) (*models.Space, error)
}

// Client represents a single WebSocket connection in a space room.
type Client struct {
	ID          string
	Room        string // join code
	SessionID   string // participant session id
	DisplayName string
	hub         *Hub
	sfu         *SFU
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. Guests
// connect without a token; a present token must verify.
func ServeWs(hub *Hub, logger *zap.Logger, verifier *auth.TokenVerifier, spaces SpaceSource, sfu *SFU) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Query("room")
		sessionID := c.Query("session_id")
		if room == "" || sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room and session_id required"})
			return
		}

		// Guests connect without a token, but a token that is present
		// must verify.
		if token := c.Query("token"); token != "" {
			if _, err := verifier.Verify(token); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		space, err := spaces.GetByJoinCode(c.Request.Context(), room)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
			return
		}
		if !space.IsLive() {
			c.JSON(http.StatusConflict, gin.H{"error": "space is not live"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			Room:        room,
			SessionID:   sessionID,
			DisplayName: c.Query("display_name"),
			hub:         hub,
			sfu:         sfu,
			conn:        conn,
			send:        make(chan WSMessage, 256),
			logger:      logger,
		}
		hub.Register(client)
		hub.BroadcastToRoomAndPublish(room, "user-connected", presence{
			ParticipantSessionID: client.SessionID,
			DisplayName:          client.DisplayName,
		})
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		if c.sfu != nil {
			c.sfu.UnregisterClient(c.Room, c.ID)
		}
		c.hub.Unregister(c)
		c.hub.BroadcastToRoomAndPublish(c.Room, "user-leave", presence{
			ParticipantSessionID: c.SessionID,
			DisplayName:          c.DisplayName,
		})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	sendToMe := func(event string, payload interface{}) {
		c.hub.SendToClient(c.Room, c.ID, event, payload)
	}

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "user-toggle-audio", "user-toggle-video", "user-toggle-speaker":
			// Media-state toggles fan out to everyone; payloads are opaque
			// to the server apart from the stamped session id.
			c.hub.BroadcastToRoomAndPublish(c.Room, msg.Event, c.stamped(msg.Data))
		case "user-leave":
			return
		case "chat-message":
			// Publish only so the Redis subscriber broadcasts once (avoids
			// duplicate delivery to local clients).
			c.hub.PublishToRoomOnly(c.Room, msg.Event, c.stamped(msg.Data))
		case "webrtc_publisher_offer":
			if c.sfu != nil {
				var payload struct {
					Type string `json:"type"`
					SDP  string `json:"sdp"`
				}
				if err := json.Unmarshal(msg.Data, &payload); err == nil && payload.SDP != "" {
					sdp := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: payload.SDP}
					_ = c.sfu.HandlePublisherOffer(c.Room, c.ID, sdp, sendToMe)
				}
			}
		case "webrtc_subscribe":
			if c.sfu != nil {
				_ = c.sfu.HandleSubscribe(c.Room, c.ID, sendToMe)
			}
		case "webrtc_subscriber_answer":
			if c.sfu != nil {
				var payload struct {
					Type string `json:"type"`
					SDP  string `json:"sdp"`
				}
				if err := json.Unmarshal(msg.Data, &payload); err == nil && payload.SDP != "" {
					sdp := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: payload.SDP}
					_ = c.sfu.HandleSubscriberAnswer(c.Room, c.ID, sdp)
				}
			}
		case "webrtc_ice":
			if c.sfu != nil {
				var payload struct {
					Target    string          `json:"target"`
					Candidate json.RawMessage `json:"candidate"`
				}
				if err := json.Unmarshal(msg.Data, &payload); err == nil && len(payload.Candidate) > 0 {
					var cand webrtc.ICECandidateInit
					if json.Unmarshal(payload.Candidate, &cand) == nil {
						if payload.Target == "publisher" {
							_ = c.sfu.HandlePublisherICE(c.Room, c.ID, cand)
						} else if payload.Target == "subscriber" {
							_ = c.sfu.HandleSubscriberICE(c.Room, c.ID, cand)
						}
					}
				}
			}
		default:
			// ignore
		}
	}
}

// stamped wraps a client payload with the connection's session identity so
// receivers never have to trust client-claimed ids.
func (c *Client) stamped(data json.RawMessage) map[string]interface{} {
	return map[string]interface{}{
		"participant_session_id": c.SessionID,
		"display_name":           c.DisplayName,
		"data":                   data,
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
