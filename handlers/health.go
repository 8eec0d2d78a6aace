package handlers

import (
	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports that the service is up.
func HealthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "greencloud",
	})
}
