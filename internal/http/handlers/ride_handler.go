// README: Ride handlers for the scored board, claims, and AI advice.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"careride/internal/ai"
	"careride/internal/modules/rides"
	"careride/internal/types"
)

// RideService is the handler's view of the rides service.
type RideService interface {
	BoardForDriver(ctx context.Context, driverID types.ID) (*rides.Board, error)
	Claim(ctx context.Context, rideID, driverID types.ID) error
}

type RideHandler struct {
	rides   RideService
	advisor ai.Advisor
}

// NewRideHandler wires the rides service and an optional advisor. A nil
// advisor disables the advice endpoint.
func NewRideHandler(svc RideService, advisor ai.Advisor) *RideHandler {
	return &RideHandler{rides: svc, advisor: advisor}
}

// Board handles GET /api/drivers/:id/rides.
func (h *RideHandler) Board(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	board, err := h.rides.BoardForDriver(c.Request.Context(), types.ID(id))
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, board)
}

// Claim handles POST /api/drivers/:id/rides/:rideID/claim.
func (h *RideHandler) Claim(c *gin.Context) {
	driverID := c.Param("id")
	rideID := c.Param("rideID")
	if driverID == "" || rideID == "" {
		writeError(c, http.StatusBadRequest, "missing driver or ride id")
		return
	}
	if err := h.rides.Claim(c.Request.Context(), types.ID(rideID), types.ID(driverID)); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ride_id": rideID, "status": rides.StatusClaimed})
}

// adviceTopN caps how many ranked rides go into the advisor prompt.
const adviceTopN = 5

// Advice handles GET /api/drivers/:id/rides/advice.
func (h *RideHandler) Advice(c *gin.Context) {
	if h.advisor == nil {
		writeError(c, http.StatusServiceUnavailable, "advice unavailable")
		return
	}
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	board, err := h.rides.BoardForDriver(c.Request.Context(), types.ID(id))
	if err != nil {
		writeRideError(c, err)
		return
	}

	digest := ai.BoardDigest{Summary: board.Summary}
	for _, sr := range board.Rides {
		if len(digest.Top) >= adviceTopN {
			break
		}
		digest.Top = append(digest.Top, ai.RideDigest{
			RideID:          string(sr.Ride.ID),
			Score:           sr.Acceptance.Score,
			Rank:            sr.Acceptance.Rank,
			Eligible:        sr.Acceptance.Eligible,
			Reason:          sr.Acceptance.Reason,
			AppointmentDate: sr.Ride.AppointmentDate,
			AppointmentTime: sr.Ride.AppointmentTime,
			IsUrgent:        sr.Acceptance.Factors.Urgency.IsUrgent,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	advice, err := h.advisor.AdviseDriver(ctx, id, digest)
	if err != nil {
		writeError(c, http.StatusBadGateway, "advice unavailable")
		return
	}
	writeJSON(c, http.StatusOK, advice)
}
