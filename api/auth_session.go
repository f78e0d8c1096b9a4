package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionVerify echoes the identity claims the JWT middleware already
// validated. Tokens are self-contained so this touches no storage
func (a *API) SessionVerify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    c.GetString("userID"),
			"email": c.GetString("userEmail"),
			"role":  c.GetString("userRole"),
		},
	})
}
