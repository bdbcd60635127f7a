package matchingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	matchinghttpmapper "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/http/mapper"
	matchingtypes "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// RequestAPI serves recipient-side needs.
type RequestAPI struct {
	service matchingports.Service
}

// NewRequestAPI wires dependencies.
func NewRequestAPI(service matchingports.Service) RequestAPI {
	return RequestAPI{service: service}
}

// Post /v1/requests
// Register a recipient organization's need
func (api *RequestAPI) RegisterRequest(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var payload matchinghttpmapper.RequestCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	saved, err := api.service.RegisterRequest(c.Request.Context(), caller, matchinghttpmapper.ToRegisterRequestInput(payload))
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, matchinghttpmapper.FromRequest(saved))
}

// Get /v1/requests
// Lists requests by fulfilment, owner and city
func (api *RequestAPI) ListRequests(c *gin.Context) {
	var params ListRequestsParams
	if err := bindQuery(c,
		queryBinding{"fulfilled", &params.Fulfilled},
		queryBinding{"requestingOrgId", &params.RequestingOrgId},
		queryBinding{"city", &params.City},
		queryBinding{"limit", &params.Limit},
	); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := api.service.ListRequests(c.Request.Context(), matchingtypes.ListRequestsInput{
		Fulfilled:       params.Fulfilled,
		RequestingOrgID: deref(params.RequestingOrgId),
		City:            deref(params.City),
		Limit:           deref(params.Limit),
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromRequestList(result))
}

// Get /v1/requests/:requestId
// Find request by ID
func (api *RequestAPI) GetRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "requestId")
	if !ok {
		return
	}
	request, err := api.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromRequest(request))
}

// Post /v1/requests/:requestId/fulfill
// Marks a request fulfilled outside the matching flow
func (api *RequestAPI) FulfillRequest(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "requestId")
	if !ok {
		return
	}
	updated, err := api.service.FulfillRequestManually(c.Request.Context(), caller, id)
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromRequest(updated))
}

// Get /v1/requests/:requestId/suggestions
// Ranks open donations for a request
func (api *RequestAPI) SuggestDonations(c *gin.Context) {
	id, ok := parseIDParam(c, "requestId")
	if !ok {
		return
	}
	limit, err := bindLimit(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	set, err := api.service.SuggestMatches(c.Request.Context(), matchingtypes.SuggestInput{RequestID: id, Limit: limit})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCandidateSet(set))
}
