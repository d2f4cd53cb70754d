package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const requestTimeout = 5 * time.Second

func routeLogger(c *gin.Context, route string) *zerolog.Logger {
	logger := zerolog.Ctx(c.Request.Context()).With().Str("route", route).Logger()
	return &logger
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		routeLogger(c, route).Error().Interface("panic", r).Msg("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	routeLogger(c, route).Debug().Int("status", status).Str("error", message).Msg("returning error")
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// currentUserID is only valid behind middleware.UserAuth.
func currentUserID(c *gin.Context) primitive.ObjectID {
	return c.MustGet("userId").(primitive.ObjectID)
}

// MongoPing returns a readiness check for db.
func MongoPing(db *mongo.Database) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		return db.Client().Ping(checkCtx, readpref.Primary())
	}
}

func Health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"

		if err := ping(c.Request.Context()); err != nil {
			routeLogger(c, route).Warn().Err(err).Msg("database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
