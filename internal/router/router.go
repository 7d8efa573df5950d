package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Router is the scheduler's ops surface: health, metrics, scheduler status
// and manual task triggers.
type Router struct {
	engine   *gin.Engine
	healthH  Handler
	opsH     Handler
	registry prometheus.Gatherer
}

func NewRouter(healthH, opsH Handler, registry prometheus.Gatherer) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		engine:   engine,
		healthH:  healthH,
		opsH:     opsH,
		registry: registry,
	}
}

func (r *Router) Setup() {
	root := r.engine.Group("/")
	r.healthH.RegisterRoutes(root)
	r.opsH.RegisterRoutes(root)

	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
