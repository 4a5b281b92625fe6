// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careride/internal/ai"
	"careride/internal/http/handlers"
	"careride/internal/http/middleware"
)

// NewRouter builds the Gin engine. The advisor may be nil; the advice
// endpoint then answers 503.
func NewRouter(rideService handlers.RideService, advisor ai.Advisor) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	rideHandler := handlers.NewRideHandler(rideService, advisor)
	r.GET("/api/drivers/:id/rides", rideHandler.Board)
	r.GET("/api/drivers/:id/rides/advice", rideHandler.Advice)
	r.POST("/api/drivers/:id/rides/:rideID/claim", rideHandler.Claim)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
