package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/handlers"
	"mingshilin.com/app/internal/http/middleware"
)

// Deps carries the wired handler set into the router.
type Deps struct {
	Orders   *handlers.OrdersHandler
	Payments *handlers.PaymentsHandler
	Forest   *handlers.ForestHandler
	Images   *handlers.ImagesHandler
	Auth     *handlers.AuthHandler
}

func NewRouter(logger *slog.Logger, d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))

	r.GET("/health", handlers.Health)
	r.GET("/", handlers.Index)

	api := r.Group("/api")
	{
		api.GET("/images/*path", d.Images.Redirect)
		api.GET("/tree-points", d.Forest.TreePoints)
		api.GET("/trees/:treeId", d.Forest.TreeDetail)
		api.POST("/care", d.Forest.CareCreate)
		api.POST("/comments", d.Forest.CommentCreate)
		api.GET("/comments/:treeId", d.Forest.CommentsByTree)
		api.POST("/count", d.Forest.Count)
		api.POST("/auth/login", d.Auth.LoginPost)

		api.POST("/orders", d.Orders.Create)
		api.GET("/orders/:orderId", d.Orders.Get)

		pay := api.Group("/payment")
		{
			pay.POST("/unifiedorder", d.Payments.UnifiedOrder)
			pay.POST("/notify", d.Payments.Notify)
			pay.GET("/query/:orderId", d.Payments.Query)
			pay.POST("/mock-success/:orderId", d.Payments.MockSuccess)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    -1,
			"message": "unknown endpoint " + c.Request.URL.Path,
		})
	})

	return r
}
