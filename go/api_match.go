package matchingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	matchinghttpmapper "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/http/mapper"
	matchingtypes "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// MatchAPI serves the claim lifecycle.
type MatchAPI struct {
	service matchingports.Service
}

// NewMatchAPI wires dependencies.
func NewMatchAPI(service matchingports.Service) MatchAPI {
	return MatchAPI{service: service}
}

// Post /v1/matches
// Claims a donation, optionally against one of the caller's requests
func (api *MatchAPI) ClaimDonation(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var payload matchinghttpmapper.ClaimCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := api.service.Claim(c.Request.Context(), caller, matchingtypes.ClaimInput{
		DonationID: payload.DonationID,
		RequestID:  payload.RequestID,
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, matchinghttpmapper.FromClaimResult(result))
}

// Get /v1/matches
// Lists matches by donation, request, claimant and status
func (api *MatchAPI) ListMatches(c *gin.Context) {
	var params ListMatchesParams
	if err := bindQuery(c,
		queryBinding{"status", &params.Status},
		queryBinding{"donationId", &params.DonationId},
		queryBinding{"requestId", &params.RequestId},
		queryBinding{"claimantOrgId", &params.ClaimantOrgId},
		queryBinding{"createdBefore", &params.CreatedBefore},
		queryBinding{"limit", &params.Limit},
	); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := api.service.ListMatches(c.Request.Context(), matchingtypes.ListMatchesInput{
		DonationID:    deref(params.DonationId),
		RequestID:     deref(params.RequestId),
		ClaimantOrgID: deref(params.ClaimantOrgId),
		Statuses:      splitStatuses(deref(params.Status)),
		CreatedBefore: deref(params.CreatedBefore),
		Limit:         deref(params.Limit),
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromMatchList(result))
}

// Get /v1/matches/:matchId
// Find match by ID
func (api *MatchAPI) GetMatch(c *gin.Context) {
	id, ok := parseIDParam(c, "matchId")
	if !ok {
		return
	}
	match, err := api.service.GetMatch(c.Request.Context(), id)
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromMatch(match))
}

// Post /v1/matches/:matchId/complete
// Records the hand-over of a claimed donation
func (api *MatchAPI) CompleteMatch(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "matchId")
	if !ok {
		return
	}
	result, err := api.service.Complete(c.Request.Context(), caller, id)
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCompleteResult(result))
}

// Post /v1/matches/:matchId/cancel
// Releases a live claim
func (api *MatchAPI) CancelMatch(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "matchId")
	if !ok {
		return
	}
	result, err := api.service.Cancel(c.Request.Context(), caller, matchingtypes.CancelInput{MatchID: id})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCancelResult(result))
}

// Post /v1/cancellations
// Cancels exactly one of a donation or a match
func (api *MatchAPI) Cancel(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var payload matchinghttpmapper.CancelCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := api.service.Cancel(c.Request.Context(), caller, matchingtypes.CancelInput{
		DonationID: payload.DonationID,
		MatchID:    payload.MatchID,
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCancelResult(result))
}
