package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "mingshilin-forest-api"

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

// Index lists the available endpoints, mirroring what the mini-program
// developers use to discover the surface.
func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   serviceName,
		"version":   "2.0.0",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": gin.H{
			"health":     "/health",
			"trees":      "/api/trees/:id",
			"treePoints": "/api/tree-points",
			"care":       "/api/care",
			"comments":   "/api/comments",
			"images":     "/api/images/*",
			"count":      "/api/count",
			"login":      "POST /api/auth/login",

			"createOrder":   "POST /api/orders",
			"queryOrder":    "GET /api/orders/:orderId",
			"unifiedOrder":  "POST /api/payment/unifiedorder",
			"paymentNotify": "POST /api/payment/notify",
			"queryPayment":  "GET /api/payment/query/:orderId",
			"mockPayment":   "POST /api/payment/mock-success/:orderId",
		},
	})
}
