package matchingserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	matchinghttpmapper "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/http/mapper"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	apierrors "github.com/Apurer/go-gin-donation-matcher/internal/shared/errors"
)

// AdminAPI exposes the lifecycle event feed and stale-claim sweeps.
type AdminAPI struct {
	events          matchingports.EventFeed
	sweeps          matchingports.SweepOrchestrator
	defaultSweepAge time.Duration
}

// NewAdminAPI wires dependencies. Either collaborator may be nil, which disables its routes.
func NewAdminAPI(events matchingports.EventFeed, sweeps matchingports.SweepOrchestrator, defaultSweepAge time.Duration) AdminAPI {
	return AdminAPI{events: events, sweeps: sweeps, defaultSweepAge: defaultSweepAge}
}

// Get /v1/events
// Lists the most recent lifecycle events, newest first
func (api *AdminAPI) ListEvents(c *gin.Context) {
	if api.events == nil {
		respondProblem(c, apierrors.ErrUnavailable.WithDetail("event feed is not configured"))
		return
	}
	limit, err := bindLimit(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	events, err := api.events.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromEvents(events))
}

// Post /v1/admin/sweeps
// Releases claims that stayed active longer than maxAgeHours
func (api *AdminAPI) StartSweep(c *gin.Context) {
	if _, ok := requireCaller(c); !ok {
		return
	}
	if api.sweeps == nil {
		respondProblem(c, apierrors.ErrUnavailable.WithDetail("sweeps are not configured"))
		return
	}
	var payload matchinghttpmapper.SweepCreate
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	if payload.MaxAgeHours < 0 || payload.Limit < 0 {
		respondProblem(c, apierrors.NewValidationProblem("maxAgeHours", "maxAgeHours and limit must not be negative"))
		return
	}
	maxAge := api.defaultSweepAge
	if payload.MaxAgeHours > 0 {
		maxAge = time.Duration(payload.MaxAgeHours * float64(time.Hour))
	}
	if maxAge <= 0 {
		respondError(c, http.StatusBadRequest, errors.New("maxAgeHours is required"))
		return
	}
	report, err := api.sweeps.Sweep(c.Request.Context(), matchingports.SweepRequest{
		MaxAge: maxAge,
		Limit:  payload.Limit,
		Key:    strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromSweepReport(report))
}
