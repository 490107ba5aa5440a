package handler

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Collections *CollectionHandler
	Items       *ItemHandler
	Views       *ViewHandler
	Metrics     *MetricsHandler
}

// Register mounts the authenticated API on group. auth resolves the owner
// every route is scoped to.
func Register(group *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	group.GET("/metrics/summary", h.Metrics.Summary)
	group.GET("/palette", h.Collections.Palette)

	api := group.Group("", auth)

	collections := api.Group("/collections")
	collections.POST("", h.Collections.Create)
	collections.GET("/:id", h.Collections.Get)
	collections.PUT("/:id", h.Collections.Update)
	collections.DELETE("/:id", h.Collections.Purge)
	collections.POST("/:id/actions/:action", h.Collections.Transition)
	collections.POST("/:id/lock", h.Collections.Lock)
	collections.POST("/:id/unlock", h.Collections.Unlock)
	collections.POST("/:id/verify", h.Collections.Verify)

	collections.POST("/:id/items", h.Items.Create)
	collections.GET("/:id/items/stream", h.Views.StreamItems)
	collections.GET("/:id/items/:itemId", h.Items.Get)
	collections.PUT("/:id/items/:itemId", h.Items.Update)
	collections.DELETE("/:id/items/:itemId", h.Items.Purge)
	collections.POST("/:id/items/:itemId/actions/:action", h.Items.Transition)
	collections.POST("/:id/items/:itemId/lock", h.Items.Lock)
	collections.POST("/:id/items/:itemId/unlock", h.Items.Unlock)
	collections.POST("/:id/items/:itemId/verify", h.Items.Verify)

	api.GET("/views/:view", h.Views.Stream)
	api.POST("/recycle-bin/sweep", h.Views.Sweep)
}
