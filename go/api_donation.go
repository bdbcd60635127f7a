package matchingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	matchinghttpmapper "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/http/mapper"
	matchingtypes "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// DonationAPI serves donor-side registration, listing and suggestions.
type DonationAPI struct {
	service matchingports.Service
}

// NewDonationAPI creates a DonationAPI backed by the provided service.
func NewDonationAPI(service matchingports.Service) DonationAPI {
	return DonationAPI{service: service}
}

// Post /v1/donations
// Register a donation offer
func (api *DonationAPI) RegisterDonation(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var payload matchinghttpmapper.DonationCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	saved, err := api.service.RegisterDonation(c.Request.Context(), caller, matchinghttpmapper.ToRegisterDonationInput(payload))
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, matchinghttpmapper.FromDonation(saved))
}

// Get /v1/donations
// Lists donations by status, donor and city
func (api *DonationAPI) ListDonations(c *gin.Context) {
	var params ListDonationsParams
	if err := bindQuery(c,
		queryBinding{"status", &params.Status},
		queryBinding{"donorOrgId", &params.DonorOrgId},
		queryBinding{"city", &params.City},
		queryBinding{"limit", &params.Limit},
	); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := api.service.ListDonations(c.Request.Context(), matchingtypes.ListDonationsInput{
		Statuses:   splitStatuses(deref(params.Status)),
		DonorOrgID: deref(params.DonorOrgId),
		City:       deref(params.City),
		Limit:      deref(params.Limit),
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromDonationList(result))
}

// Get /v1/donations/:donationId
// Find donation by ID
func (api *DonationAPI) GetDonation(c *gin.Context) {
	id, ok := parseIDParam(c, "donationId")
	if !ok {
		return
	}
	donation, err := api.service.GetDonation(c.Request.Context(), id)
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromDonation(donation))
}

// Delete /v1/donations/:donationId
// Cancels a donation, releasing its live claim if any
func (api *DonationAPI) CancelDonation(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "donationId")
	if !ok {
		return
	}
	result, err := api.service.Cancel(c.Request.Context(), caller, matchingtypes.CancelInput{DonationID: id})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCancelResult(result))
}

// Get /v1/donations/:donationId/suggestions
// Ranks open requests for a donation
func (api *DonationAPI) SuggestRequests(c *gin.Context) {
	id, ok := parseIDParam(c, "donationId")
	if !ok {
		return
	}
	limit, err := bindLimit(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	set, err := api.service.SuggestMatches(c.Request.Context(), matchingtypes.SuggestInput{DonationID: id, Limit: limit})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCandidateSet(set))
}
