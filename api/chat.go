package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type chatBody struct {
	Prompt string `json:"prompt"`
}

// linkStyles is sent with each answer so the frontend can style the
// anchors the link transform produced
const linkStyles = "a { color: #2563eb; text-decoration: underline; }"

func (a *API) ChatAsk(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data chatBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     true,
			"message":   "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if strings.TrimSpace(data.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     true,
			"message":   "Prompt can't be empty",
			"requestID": requestID,
		})
		return
	}

	// Blocks until the queue drains this request. Callers are
	// answered strictly in arrival order
	answer, err := a.Chat.Ask(data.Prompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     true,
			"message":   "The assistant couldn't answer right now. Please try again in a moment",
			"requestID": requestID,
		})

		zap.L().Error("Chat request failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": answer,
		"styles":  linkStyles,
		"success": true,
	})
}
