// README: Handler tests for the ride board, claim, and advice endpoints.
package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"careride/internal/ai"
	"careride/internal/http/handlers"
	"careride/internal/modules/acceptance"
	"careride/internal/modules/rides"
	"careride/internal/types"
)

// stubRideService is a test double for handlers.RideService.
type stubRideService struct {
	board    *rides.Board
	boardErr error
	claimErr error

	claimedRide   types.ID
	claimedDriver types.ID
}

func (s *stubRideService) BoardForDriver(_ context.Context, _ types.ID) (*rides.Board, error) {
	return s.board, s.boardErr
}

func (s *stubRideService) Claim(_ context.Context, rideID, driverID types.ID) error {
	s.claimedRide = rideID
	s.claimedDriver = driverID
	return s.claimErr
}

// stubAdvisor is a test double for ai.Advisor.
type stubAdvisor struct {
	advice *ai.Advice
	err    error
	digest ai.BoardDigest
}

func (s *stubAdvisor) AdviseDriver(_ context.Context, _ string, board ai.BoardDigest) (*ai.Advice, error) {
	s.digest = board
	return s.advice, s.err
}

func buildTestRouter(svc handlers.RideService, advisor ai.Advisor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRideHandler(svc, advisor)
	r := gin.New()
	r.GET("/api/drivers/:id/rides", h.Board)
	r.GET("/api/drivers/:id/rides/advice", h.Advice)
	r.POST("/api/drivers/:id/rides/:rideID/claim", h.Claim)
	return r
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleBoard() *rides.Board {
	return &rides.Board{
		Rides: []rides.ScoredRide{
			{
				Ride: rides.Ride{ID: "ride-1", AppointmentDate: "2026-09-09", AppointmentTime: "10:00"},
				Acceptance: acceptance.Score{
					RideID: "ride-1", Score: 82.5, Rank: 1, Eligible: true,
					Reason: "Excellent match: pickup 5.0 miles away; morning appointment; Wednesday",
				},
			},
			{
				Ride: rides.Ride{ID: "ride-2", AppointmentDate: "2026-09-12", AppointmentTime: "14:00"},
				Acceptance: acceptance.Score{
					RideID: "ride-2", Score: 41.0, Rank: 2, Eligible: true,
					Reason: "Fair match",
				},
			},
		},
		Summary: acceptance.Summary{TotalCount: 2, EligibleCount: 2, AverageScore: 61.75, TopScore: 82.5},
	}
}

func TestBoard_ReturnsScoredRides(t *testing.T) {
	svc := &stubRideService{board: sampleBoard()}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodGet, "/api/drivers/drv-1/rides")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got rides.Board
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got.Rides) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(got.Rides))
	}
	if got.Rides[0].Acceptance.Rank != 1 || got.Summary.TopScore != 82.5 {
		t.Errorf("unexpected board payload: %+v", got)
	}
}

func TestBoard_UnknownDriver(t *testing.T) {
	svc := &stubRideService{boardErr: rides.ErrNotFound}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodGet, "/api/drivers/nobody/rides")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestClaim_Success(t *testing.T) {
	svc := &stubRideService{}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/api/drivers/drv-1/rides/ride-1/claim")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.claimedRide != "ride-1" || svc.claimedDriver != "drv-1" {
		t.Errorf("claim forwarded wrong ids: ride=%s driver=%s", svc.claimedRide, svc.claimedDriver)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["status"] != string(rides.StatusClaimed) {
		t.Errorf("expected claimed status, got %v", resp["status"])
	}
}

func TestClaim_Conflict(t *testing.T) {
	svc := &stubRideService{claimErr: rides.ErrConflict}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/api/drivers/drv-1/rides/ride-1/claim")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestClaim_UnknownRide(t *testing.T) {
	svc := &stubRideService{claimErr: rides.ErrNotFound}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/api/drivers/drv-1/rides/missing/claim")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAdvice_DisabledWithoutAdvisor(t *testing.T) {
	svc := &stubRideService{board: sampleBoard()}
	r := buildTestRouter(svc, nil)

	w := doRequest(r, http.MethodGet, "/api/drivers/drv-1/rides/advice")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestAdvice_ReturnsAdvice(t *testing.T) {
	svc := &stubRideService{board: sampleBoard()}
	adv := &stubAdvisor{advice: &ai.Advice{Recommendation: "ride-1", Rationale: "close and well timed"}}
	r := buildTestRouter(svc, adv)

	w := doRequest(r, http.MethodGet, "/api/drivers/drv-1/rides/advice")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got ai.Advice
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Recommendation != "ride-1" {
		t.Errorf("expected recommendation ride-1, got %q", got.Recommendation)
	}
	if len(adv.digest.Top) != 2 {
		t.Errorf("expected 2 rides in digest, got %d", len(adv.digest.Top))
	}
	if adv.digest.Top[0].RideID != "ride-1" || adv.digest.Top[0].Rank != 1 {
		t.Errorf("digest not built from the ranked board: %+v", adv.digest.Top)
	}
}

func TestAdvice_AdvisorFailure(t *testing.T) {
	svc := &stubRideService{board: sampleBoard()}
	adv := &stubAdvisor{err: errors.New("model unavailable")}
	r := buildTestRouter(svc, adv)

	w := doRequest(r, http.MethodGet, "/api/drivers/drv-1/rides/advice")
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}
