package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(router *gin.Engine, h *ShortLinkHandler) {
	router.SetHTMLTemplate(Templates())

	router.GET("/health", h.HealthCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/:code", h.RedirectToOriginal)

	api := router.Group("/api")
	{
		api.POST("/shorten", h.CreateShortLink)
		api.POST("/shorten/batch", h.CreateBatch)
		api.GET("/links", h.GetAllLinks)
		api.GET("/links/:code/qr", h.GetQRCode)
		api.GET("/stats", h.GetStats)
	}
}
