package handlers

import (
	"github.com/gin-gonic/gin"
)

// The extension reads errors as a flat {"error": "..."} body, so the envelope
// stays that shape everywhere.
func RespondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
