package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/chat"
	"github.com/Abhijeet14d/KrishiBandhu/db"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/Abhijeet14d/KrishiBandhu/mongodb"
	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func HandleCreateConversation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	conversation, err := db.CreateConversation(claims.UserID)
	if err != nil {
		log.Printf("Error creating conversation for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error creating conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Conversation created",
		"conversation": gin.H{
			"id":             conversation.ID.String(),
			"title":          conversation.Title,
			"startedAt":      conversation.StartedAt,
			"welcomeMessage": chat.WelcomeMessage(),
		},
	})
}

func HandleGetConversations(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	conversations, err := db.GetConversationsByUserID(claims.UserID)
	if err != nil {
		log.Printf("Error fetching conversations for user %s: %v", claims.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         len(conversations),
		"conversations": conversations,
	})
}

func HandleGetConversation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	conversation, err := db.GetConversation(conversationID, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching conversation"})
		return
	}

	messages, err := mongodb.GetMessagesByConversationID(c, conversationID)
	if err != nil {
		log.Printf("Error fetching messages for conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"conversation": conversation,
		"messages":     messages,
	})
}

// HandleSendMessage is the REST fallback for one conversational turn.
// The user's message is persisted before the model call so it survives
// a model failure.
func HandleSendMessage(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	conversation, err := db.GetConversation(conversationID, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error sending message"})
		return
	}
	if !conversation.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Conversation has ended"})
		return
	}

	response, err := runTurn(c, claims.UserID, conversationID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Error sending message"
		switch {
		case errors.Is(err, chat.ErrQuota):
			status = http.StatusServiceUnavailable
			msg = chat.ErrQuota.Error()
		case errors.Is(err, chat.ErrEmptyMessage):
			status = http.StatusBadRequest
			msg = chat.ErrEmptyMessage.Error()
		}
		c.JSON(status, gin.H{"success": false, "message": msg})
		return
	}

	count, err := mongodb.CountUserMessages(c, conversationID)
	if err != nil {
		log.Printf("Error counting messages for conversation %s: %v", conversationID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": response,
		"conversation": gin.H{
			"id":    conversation.ID.String(),
			"title": conversation.Title,
		},
		"messageCount": count,
	})
}

func HandleEndConversation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	conversation, err := db.GetConversation(conversationID, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error ending conversation"})
		return
	}

	duration, err := db.EndConversation(conversationID, time.Now())
	if err != nil {
		log.Printf("Error ending conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error ending conversation"})
		return
	}

	Chat.EndSession(conversationID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Conversation ended",
		"conversation": gin.H{
			"id":       conversation.ID.String(),
			"title":    conversation.Title,
			"duration": duration,
		},
	})
}

func HandleDeleteConversation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	if _, err := db.GetConversation(conversationID, claims.UserID); err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
			return
		}
		log.Printf("Error fetching conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting conversation"})
		return
	}

	if err := db.DeleteConversation(conversationID); err != nil {
		log.Printf("Error deleting conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting conversation"})
		return
	}
	if err := mongodb.DeleteMessages(c, conversationID); err != nil {
		log.Printf("Error deleting messages for conversation %s: %v", conversationID, err)
	}

	Chat.EndSession(conversationID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Conversation deleted"})
}

// runTurn persists the user's message, runs the model turn, persists
// the assistant reply, sets the title on the first user message, and
// queues a turn event. The transcript keeps the original message; any
// data enrichment is model-visible only.
func runTurn(c *gin.Context, userID, conversationID, message string) (string, error) {
	userMsg := &models.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleUser,
		Content:        message,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := mongodb.CreateMessage(c, userMsg); err != nil {
		log.Printf("Error persisting user message for conversation %s: %v", conversationID, err)
		return "", err
	}

	loc := locationForUser(userID)
	start := time.Now()
	response, err := Chat.SendMessage(c, conversationID, message, loc)
	if err != nil {
		return "", err
	}

	assistantMsg := &models.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.RoleAssistant,
		Content:        response,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := mongodb.CreateMessage(c, assistantMsg); err != nil {
		log.Printf("Error persisting assistant message for conversation %s: %v", conversationID, err)
	}

	count, err := mongodb.CountUserMessages(c, conversationID)
	if err != nil {
		log.Printf("Error counting messages for conversation %s: %v", conversationID, err)
	} else if count == 1 {
		if err := db.UpdateConversationTitle(conversationID, titleFromMessage(message)); err != nil {
			log.Printf("Error setting title for conversation %s: %v", conversationID, err)
		}
	}

	if Pool != nil {
		Pool.Submit(models.TurnEvent{
			ConversationID: conversationID,
			UserID:         userID,
			Model:          Chat.CurrentModel(),
			Enriched:       loc != nil && loc.State != "",
			LatencyMillis:  time.Since(start).Milliseconds(),
			Timestamp:      time.Now().UnixMilli(),
		})
	}

	return response, nil
}

// locationForUser loads the user's stored location; nil when the
// profile has none or the lookup fails.
func locationForUser(userID string) *models.Location {
	user, err := db.GetUserByID(userID)
	if err != nil {
		log.Printf("Error fetching user %s for location: %v", userID, err)
		return nil
	}
	if user.Location.State == "" {
		return nil
	}
	loc := user.Location
	return &loc
}

func titleFromMessage(message string) string {
	const limit = 50
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "..."
}
