package matchingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	matchinghttpmapper "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/http/mapper"
	matchingtypes "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application/types"
	matchingports "github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// CandidateAPI exposes bulk candidate generation.
type CandidateAPI struct {
	service matchingports.Service
}

// NewCandidateAPI wires dependencies.
func NewCandidateAPI(service matchingports.Service) CandidateAPI {
	return CandidateAPI{service: service}
}

// Get /v1/candidates
// Scores open donations against open requests, optionally scoped to one side
func (api *CandidateAPI) GenerateCandidates(c *gin.Context) {
	var params GenerateCandidatesParams
	if err := bindQuery(c,
		queryBinding{"donationId", &params.DonationId},
		queryBinding{"requestId", &params.RequestId},
		queryBinding{"limit", &params.Limit},
	); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	set, err := api.service.GenerateCandidates(c.Request.Context(), matchingtypes.CandidateScope{
		DonationID: deref(params.DonationId),
		RequestID:  deref(params.RequestId),
		Limit:      deref(params.Limit),
	})
	if err != nil {
		respondMatchingServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, matchinghttpmapper.FromCandidateSet(set))
}
