package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/config"
	"github.com/shivwng1/lvkit-main/internal/token"
)

// SetupRouter wires the backend: token issuance, client configuration,
// health and the static call page.
func SetupRouter(cfg *config.Config, issuer *token.Issuer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware())
	r.Use(CORSMiddleware())

	h := &Handlers{cfg: cfg, issuer: issuer}

	tokenRoute := []gin.HandlerFunc{h.IssueToken}
	if cfg.TokenRateLimit > 0 {
		limiter := NewRateLimiter(cfg.TokenRateLimit, cfg.TokenRateWindow)
		tokenRoute = append([]gin.HandlerFunc{RateLimitMiddleware(limiter)}, tokenRoute...)
	}
	r.POST("/token", tokenRoute...)
	r.GET("/config", h.Config)
	r.GET("/health", h.Health)

	index := filepath.Join(cfg.StaticPath, "index.html")
	r.StaticFile("/", index)
	r.StaticFile("/app.js", filepath.Join(cfg.StaticPath, "app.js"))
	r.StaticFile("/style.css", filepath.Join(cfg.StaticPath, "style.css"))

	r.NoRoute(staticFallback(cfg.StaticPath))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Bool("token_rate_limit", cfg.TokenRateLimit > 0).Msg("router setup")
	return r
}

// staticFallback serves any other file under root, 404 otherwise.
func staticFallback(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
			if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
				c.File(name)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}
