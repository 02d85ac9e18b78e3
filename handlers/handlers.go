package handlers

import (
	"net/http"

	"github.com/Abhijeet14d/KrishiBandhu/aggregator"
	"github.com/Abhijeet14d/KrishiBandhu/chat"
	"github.com/Abhijeet14d/KrishiBandhu/email"
	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/Abhijeet14d/KrishiBandhu/worker"
	"github.com/gin-gonic/gin"
)

// Shared service instances, wired in main before the router starts.
var (
	Chat       *chat.Manager
	Aggregator *aggregator.Service
	ExtData    *extdata.Client
	Email      email.Service
	Pool       *worker.WorkerPool
)

// currentClaims pulls the authenticated claims set by the auth
// middleware. It aborts with 401 when missing.
func currentClaims(c *gin.Context) (*models.Claims, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
		return nil, false
	}

	claims, ok := user.(*models.Claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid user claims"})
		return nil, false
	}
	return claims, true
}
