// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/facturio/backend/internal/integration/entrypoint/controller"
	"github.com/facturio/backend/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine             *gin.Engine
	healthController   *controller.HealthController
	dispatchController *controller.DispatchController
	triggerAuth        *middleware.TriggerAuth
	triggerRateLimiter *middleware.RateLimiter
}

// NewRouter creates a new router instance with all dependencies.
func NewRouter(
	healthController *controller.HealthController,
	dispatchController *controller.DispatchController,
	triggerAuth *middleware.TriggerAuth,
	triggerRateLimiter *middleware.RateLimiter,
) *Router {
	return &Router{
		healthController:   healthController,
		dispatchController: dispatchController,
		triggerAuth:        triggerAuth,
		triggerRateLimiter: triggerRateLimiter,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	r.engine = gin.Default()

	r.setupHealthRoutes()
	r.setupInternalRoutes()

	return r.engine
}

// setupHealthRoutes configures health check endpoints.
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthController.Check)
}

// setupInternalRoutes configures scheduler-facing endpoints.
func (r *Router) setupInternalRoutes() {
	if r.dispatchController == nil {
		return
	}

	internal := r.engine.Group("/internal")
	if r.triggerAuth != nil {
		internal.Use(r.triggerAuth.Middleware())
	}
	if r.triggerRateLimiter != nil {
		internal.Use(r.triggerRateLimiter.Middleware())
	}
	internal.POST("/followups/dispatch", r.dispatchController.Trigger)
}
