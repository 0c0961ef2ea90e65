// Package front registers the public API routes and shared middleware.
package front

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-api/internal/auth"
	"github.com/quizforge/quizforge-api/internal/config"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/events"
	"github.com/quizforge/quizforge-api/internal/generator"
	handlers "github.com/quizforge/quizforge-api/internal/http/api/front/handlers"
	"github.com/quizforge/quizforge-api/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps bundles the services the front routes depend on.
type Deps struct {
	Generator generator.Client
	Meter     *entitlement.Engine
	Limiter   *ratelimit.Manager
	Recorder  *events.Recorder
	JWT       config.JWTConfig
}

// RegisterFrontRoutes registers public routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, deps Deps) {
	if r == nil || db == nil {
		return
	}

	r.Use(requestLogMiddleware())
	r.Use(identityMiddleware(deps.JWT))

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	group := r.Group("/v0")

	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Meter)
	group.GET("/users/:user_id/subscription", subscriptionHandler.Info)
	group.POST("/subscriptions", subscriptionHandler.Subscribe)

	quizHandler := handlers.NewQuizHandler(db, deps.Generator, deps.Meter, deps.Limiter, deps.Recorder)
	group.POST("/quizzes", quizHandler.Create)
	group.GET("/quizzes/:short_id", quizHandler.Get)
	group.GET("/users/:user_id/quizzes", quizHandler.ListByUser)

	mockTestHandler := handlers.NewMockTestHandler(db, deps.Generator, deps.Meter, deps.Limiter, deps.Recorder)
	group.POST("/mock-tests", mockTestHandler.Create)
	group.GET("/mock-tests/:short_id", mockTestHandler.Get)
	group.GET("/users/:user_id/mock-tests", mockTestHandler.ListByUser)

	scoreHandler := handlers.NewScoreHandler(db)
	group.POST("/scores", scoreHandler.Create)
	group.GET("/users/:user_id/scores", scoreHandler.ListByUser)
}

// identityMiddleware resolves the caller identity from an optional bearer
// token. A valid token pins the user ID for the request; an invalid token is
// rejected; no token leaves identity to the request payload.
func identityMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}
		userID, errParse := auth.ParseUserToken(jwtCfg.Secret, token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(handlers.ContextUserIDKey, userID)
		c.Next()
	}
}

func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request completed")
	}
}
