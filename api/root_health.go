package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func (a *API) Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"apiKeyPresent": viper.GetString("gemini.api_key") != "",
		"debug":         viper.GetString("app.log_level") == "debug",
	})
}
