package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/http/controller"
	"github.com/iyhunko/storefront-admin/internal/http/middleware"
)

// Controllers groups the handlers the router mounts.
type Controllers struct {
	General  *controller.Controller
	Products *controller.ProductController
	Forms    *controller.FormController
	// Audit is nil when the audit trail is disabled.
	Audit *controller.AuditController
}

func InitRouter(server *gin.Engine, mw *middleware.Middleware, ctrs Controllers) *gin.Engine {
	// Recovery goes first so a panic anywhere below still answers 500
	server.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())

	server.GET("/ping", ctrs.General.Ping)
	server.GET("/catalog", ctrs.General.Catalog)
	server.POST("/login", ctrs.General.Login)
	server.POST("/logout", ctrs.General.Logout)

	adminGroup := server.Group("/admin", mw.RequireSignIn())
	{
		adminGroup.GET("/view", ctrs.Products.View)

		products := adminGroup.Group("/products")
		{
			products.GET("", ctrs.Products.ListProducts)
			products.POST("/refresh", ctrs.Products.RefreshProducts)
			products.POST("/sort/:field", ctrs.Products.ToggleSort)
			products.DELETE("/:id", ctrs.Products.DeleteProduct)
			products.POST("/:id/availability", ctrs.Products.ToggleAvailability)
		}

		forms := adminGroup.Group("/forms")
		{
			forms.POST("/add", ctrs.Forms.OpenAdd)
			forms.POST("/edit/:id", ctrs.Forms.OpenEdit)
			forms.PATCH("/fields", ctrs.Forms.EditField)
			forms.PUT("/image", ctrs.Forms.SetImage)
			forms.POST("/submit", ctrs.Forms.Submit)
			forms.DELETE("", ctrs.Forms.Cancel)
		}

		if ctrs.Audit != nil {
			audit := adminGroup.Group("/audit")
			{
				audit.GET("", ctrs.Audit.ListEvents)
				audit.GET("/:id", ctrs.Audit.GetEvent)
			}
		}
	}

	return server
}
