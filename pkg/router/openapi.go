package router

import (
	"net/http"
	"os"

	"companion-chat/backend/api"

	"github.com/gin-gonic/gin"
)

// setupDocsRoutes serves the OpenAPI document requests are validated against
func (r *Router) setupDocsRoutes() {
	path := r.Container.Config.OpenAPI.SchemaPath
	r.Engine.GET("/api/docs/openapi.yaml", func(c *gin.Context) {
		if path != "" {
			c.File(path)
			return
		}
		c.Data(http.StatusOK, "application/yaml", api.OpenAPISchema)
	})
	r.Logger.Info("OpenAPI schema available", "url", "/api/docs/openapi.yaml")

	if swaggerUIPath := os.Getenv("SWAGGER_UI_PATH"); swaggerUIPath != "" && dirExists(swaggerUIPath) {
		r.Engine.Static("/swagger-ui", swaggerUIPath)
		r.Logger.Info("Swagger UI available", "url", "/swagger-ui/")
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
