package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/chat"
	"github.com/Abhijeet14d/KrishiBandhu/db"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/Abhijeet14d/KrishiBandhu/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// ClientEvent is one inbound frame on the realtime channel.
type ClientEvent struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ServerEvent is one outbound frame. Ack replies carry the same event
// name as the request with ":ack" appended.
type ServerEvent struct {
	Event          string `json:"event"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId,omitempty"`
	Response       string `json:"response,omitempty"`
	WelcomeMessage string `json:"welcomeMessage,omitempty"`
	Title          string `json:"title,omitempty"`
	Messages       any    `json:"messages,omitempty"`
	IsActive       bool   `json:"isActive,omitempty"`
	Duration       int64  `json:"duration,omitempty"`
	Error          string `json:"error,omitempty"`
}

// wsConn serializes writes; reads happen on one goroutine but turn
// processing can emit interim events.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(event ServerEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(event); err != nil {
		log.Printf("Error writing websocket event: %v", err)
	}
}

// HandleWebsocket upgrades the connection and runs the event loop.
// Authentication happens before the upgrade via the token query
// fallback in the auth middleware.
func HandleWebsocket(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	log.Printf("WebSocket connection established for user %s", claims.UserID)
	ws := &wsConn{conn: conn}
	defer func() {
		conn.Close()
		log.Printf("WebSocket connection closed for user %s", claims.UserID)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Connection error for user %s: %v", claims.UserID, err)
			}
			return
		}

		var event ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			ws.send(ServerEvent{Event: "error", Error: "Invalid event payload"})
			continue
		}

		switch event.Event {
		case "conversation:start":
			handleConversationStart(c, ws, claims.UserID)
		case "conversation:join":
			handleConversationJoin(c, ws, claims.UserID, event.ConversationID)
		case "message:send":
			handleMessageSend(c, ws, claims.UserID, event)
		case "conversation:end":
			handleConversationEnd(c, ws, claims.UserID, event.ConversationID)
		default:
			ws.send(ServerEvent{Event: "error", Error: "Unknown event: " + event.Event})
		}
	}
}

func handleConversationStart(c *gin.Context, ws *wsConn, userID string) {
	const ack = "conversation:start:ack"

	conversation, err := db.CreateConversation(userID)
	if err != nil {
		log.Printf("Error creating conversation for user %s: %v", userID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to start conversation"})
		return
	}
	conversationID := conversation.ID.String()

	Chat.StartSession(conversationID)

	welcome := chat.WelcomeMessage()
	welcomeMsg := &models.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleAssistant,
		Content:        welcome,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := mongodb.CreateMessage(c, welcomeMsg); err != nil {
		log.Printf("Error persisting welcome message for conversation %s: %v", conversationID, err)
	}

	log.Printf("Conversation started: %s", conversationID)
	ws.send(ServerEvent{
		Event:          ack,
		Success:        true,
		ConversationID: conversationID,
		WelcomeMessage: welcome,
	})
}

func handleConversationJoin(c *gin.Context, ws *wsConn, userID, conversationID string) {
	const ack = "conversation:join:ack"

	conversation, err := db.GetConversation(conversationID, userID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			ws.send(ServerEvent{Event: ack, Success: false, Error: "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to join conversation"})
		return
	}

	messages, err := mongodb.GetMessagesByConversationID(c, conversationID)
	if err != nil {
		log.Printf("Error fetching messages for conversation %s: %v", conversationID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to join conversation"})
		return
	}

	if conversation.IsActive {
		Chat.StartSession(conversationID)
	}

	ws.send(ServerEvent{
		Event:          ack,
		Success:        true,
		ConversationID: conversationID,
		Title:          conversation.Title,
		Messages:       messages,
		IsActive:       conversation.IsActive,
	})
}

func handleMessageSend(c *gin.Context, ws *wsConn, userID string, event ClientEvent) {
	const ack = "message:send:ack"
	conversationID := event.ConversationID

	conversation, err := db.GetConversation(conversationID, userID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			ws.send(ServerEvent{Event: ack, Success: false, Error: "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to process message"})
		return
	}
	if !conversation.IsActive {
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Conversation has ended"})
		return
	}

	// Interim event so the client can show a processing state while
	// the model call is in flight.
	ws.send(ServerEvent{Event: "message:processing", Success: true, ConversationID: conversationID})

	response, err := runTurn(c, userID, conversationID, event.Message)
	if err != nil {
		// The user message is already persisted at this point.
		msg := "Failed to process message"
		switch {
		case errors.Is(err, chat.ErrQuota):
			msg = chat.ErrQuota.Error()
		case errors.Is(err, chat.ErrEmptyMessage):
			msg = chat.ErrEmptyMessage.Error()
		}
		ws.send(ServerEvent{Event: ack, Success: false, ConversationID: conversationID, Error: msg})
		return
	}

	title := conversation.Title
	if updated, err := db.GetConversation(conversationID, userID); err == nil {
		title = updated.Title
	}

	ws.send(ServerEvent{
		Event:          ack,
		Success:        true,
		ConversationID: conversationID,
		Response:       response,
		Title:          title,
	})
}

func handleConversationEnd(c *gin.Context, ws *wsConn, userID, conversationID string) {
	const ack = "conversation:end:ack"

	if _, err := db.GetConversation(conversationID, userID); err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			ws.send(ServerEvent{Event: ack, Success: false, Error: "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to end conversation"})
		return
	}

	duration, err := db.EndConversation(conversationID, time.Now())
	if err != nil {
		log.Printf("Error ending conversation %s: %v", conversationID, err)
		ws.send(ServerEvent{Event: ack, Success: false, Error: "Failed to end conversation"})
		return
	}

	Chat.EndSession(conversationID)

	log.Printf("Conversation ended: %s", conversationID)
	ws.send(ServerEvent{
		Event:          ack,
		Success:        true,
		ConversationID: conversationID,
		Duration:       duration,
	})
}
