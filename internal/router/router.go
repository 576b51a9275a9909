// Package router wires handlers, middleware, templates and static assets
// into a gin engine.
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "budgetbook/internal/docs" // Import swagger docs
	"budgetbook/internal/handlers"
	"budgetbook/internal/middleware"
	"budgetbook/internal/services"
	"budgetbook/web"
)

// Dependencies are the collaborators the routes need.
type Dependencies struct {
	Store        services.ItemStorer
	AuditService services.AuditServicer
	Categories   []string
	// APIKey guards /api/v1 when set.
	APIKey string
}

// SetupRouter configures the gin engine, templates and static resources.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	tmpl, err := web.Templates(handlers.TemplateFuncs())
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", web.Static())

	pageHandler := handlers.NewBudgetItemHandler(deps.Store, deps.AuditService, deps.Categories)
	apiHandler := handlers.NewItemAPIHandler(deps.Store, deps.AuditService, deps.Categories)

	// Budget page
	router.GET("/", pageHandler.Index)
	items := router.Group("/items")
	items.POST("", pageHandler.CreateItem)
	items.GET("/table", pageHandler.ItemsTable)
	items.GET("/export", pageHandler.ExportItems)
	items.POST("/:id/delete", pageHandler.DeleteItem)
	items.DELETE("/:id", pageHandler.RemoveItem)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	// Health check endpoint
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "last_id": deps.Store.LastID()})
	})

	v1 := api.Group("/v1")
	v1.Use(middleware.APIKeyAuth(deps.APIKey))
	v1.GET("/items", apiHandler.ListItems)
	v1.POST("/items", apiHandler.CreateItem)
	v1.DELETE("/items/:id", apiHandler.DeleteItem)
	v1.GET("/categories", apiHandler.ListCategories)
	v1.GET("/activity", apiHandler.ListActivity)

	return router, nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
