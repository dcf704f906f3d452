package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "annotation-insights/docs"
	"annotation-insights/internal/api/handler"
	"annotation-insights/pkg/router"
)

// @title Annotation Insights API
// @version 1.0
// @BasePath /api/v1
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/analyze", h.Analyze)
	r.POST("/api/v1/target-keys", h.TargetKeys)

	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*/output", h.GetRunOutput)
	r.GET("/api/v1/runs/*/logs", h.GetRunLogs)
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.POST("/api/v1/runs/*/retry", h.RetryRun)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.DELETE("/api/v1/runs/*", h.DeleteRun)
	r.GET("/api/v1/download/*/*", h.DownloadFile)

	r.GET("/api/v1/models", h.ListModels)
	r.POST("/api/v1/annotations/*/retry", h.RetryAnnotation)
	r.POST("/api/v1/fragments", h.CurateFragment)
	r.GET("/api/v1/assets/*/fragments", h.ListFragments)

	r.GET("/swagger/**", httpSwagger.WrapHandler.ServeHTTP)
}
