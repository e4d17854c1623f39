package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Root(ctx *gin.Context) {
	ctx.String(http.StatusOK, "Welcome to AccountHub")
}

func APIStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "AccountHub API is running"})
}

// NotFound keeps the fixed body shape clients match on; it bypasses the
// error envelope on purpose.
func NotFound(ctx *gin.Context) {
	ctx.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
}
