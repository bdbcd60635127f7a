package matchingserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ListDonationsParams defines parameters for ListDonations.
type ListDonationsParams struct {
	Status     *[]string `form:"status,omitempty" json:"status,omitempty"`
	DonorOrgId *string  `form:"donorOrgId,omitempty" json:"donorOrgId,omitempty"`
	City       *string  `form:"city,omitempty" json:"city,omitempty"`
	Limit      *int     `form:"limit,omitempty" json:"limit,omitempty"`
}

// ListRequestsParams defines parameters for ListRequests.
type ListRequestsParams struct {
	Fulfilled       *bool   `form:"fulfilled,omitempty" json:"fulfilled,omitempty"`
	RequestingOrgId *string `form:"requestingOrgId,omitempty" json:"requestingOrgId,omitempty"`
	City            *string `form:"city,omitempty" json:"city,omitempty"`
	Limit           *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// ListMatchesParams defines parameters for ListMatches.
type ListMatchesParams struct {
	Status        *[]string  `form:"status,omitempty" json:"status,omitempty"`
	DonationId    *string    `form:"donationId,omitempty" json:"donationId,omitempty"`
	RequestId     *string    `form:"requestId,omitempty" json:"requestId,omitempty"`
	ClaimantOrgId *string    `form:"claimantOrgId,omitempty" json:"claimantOrgId,omitempty"`
	CreatedBefore *time.Time `form:"createdBefore,omitempty" json:"createdBefore,omitempty"`
	Limit         *int       `form:"limit,omitempty" json:"limit,omitempty"`
}

// GenerateCandidatesParams defines parameters for GenerateCandidates.
type GenerateCandidatesParams struct {
	DonationId *string `form:"donationId,omitempty" json:"donationId,omitempty"`
	RequestId  *string `form:"requestId,omitempty" json:"requestId,omitempty"`
	Limit      *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// LimitParams defines the limit parameter shared by suggestion and event feeds.
type LimitParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// queryBinding names one optional form-style query parameter and its destination.
type queryBinding struct {
	name string
	dest any
}

func bindQuery(c *gin.Context, bindings ...queryBinding) error {
	query := c.Request.URL.Query()
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return nil
}

func bindLimit(c *gin.Context) (int, error) {
	var params LimitParams
	if err := bindQuery(c, queryBinding{"limit", &params.Limit}); err != nil {
		return 0, err
	}
	if params.Limit != nil && *params.Limit < 0 {
		return 0, fmt.Errorf("limit must not be negative")
	}
	return deref(params.Limit), nil
}

// splitStatuses accepts both repeated and comma-separated status values.
func splitStatuses(raw []string) []string {
	var out []string
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func parseIDParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		respondError(c, http.StatusBadRequest, fmt.Errorf("path parameter %s is required", name))
		return "", false
	}
	return value, true
}
