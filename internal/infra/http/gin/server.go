package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"deskhub/internal/infra/config"
	"deskhub/internal/infra/obs"
)

type OfficeHTTP interface {
	List(c *gin.Context)
	Show(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type OfficeImageHTTP interface {
	Upload(c *gin.Context)
	Delete(c *gin.Context)
}

type TagHTTP interface {
	List(c *gin.Context)
}

type Handlers struct {
	Office         OfficeHTTP
	OfficeImage    OfficeImageHTTP
	Tag            TagHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api")
	if h.Office != nil {
		api.GET("/offices", h.Office.List)
		api.GET("/offices/:id", h.Office.Show)
		api.POST("/offices", h.Office.Create)
		api.PUT("/offices/:id", h.Office.Update)
		api.DELETE("/offices/:id", h.Office.Delete)
	}
	if h.OfficeImage != nil {
		api.POST("/offices/:id/images", h.OfficeImage.Upload)
		api.DELETE("/offices/:id/images/:imageId", h.OfficeImage.Delete)
	}
	if h.Tag != nil {
		api.GET("/tags", h.Tag.List)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
