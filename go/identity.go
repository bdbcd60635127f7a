package matchingserver

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/platform/auth"
	apierrors "github.com/Apurer/go-gin-donation-matcher/internal/shared/errors"
)

// Headers accepted from a trusted gateway when no signing secret is configured.
const (
	HeaderOrgID   = "X-Org-ID"
	HeaderOrgRole = "X-Org-Role"
)

// HeaderIdempotencyKey lets retried sweep starts join the run already in flight.
const HeaderIdempotencyKey = "Idempotency-Key"

const callerKey = "matching.caller"

var (
	errMissingIdentity = errors.New("missing caller identity")
	errReservedRole    = errors.New("role is reserved for internal processes")
)

// Identity resolves the calling organization for every request. With a secret it
// expects an HS256 bearer token; without one it trusts the gateway headers.
// Requests without identity pass through; handlers that mutate call requireCaller.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := resolveCaller(c, secret)
		if err != nil {
			if errors.Is(err, errMissingIdentity) {
				c.Next()
				return
			}
			respondProblem(c, apierrors.ErrUnauthorized.WithDetail(err.Error()))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func resolveCaller(c *gin.Context, secret string) (domain.Caller, error) {
	var orgID, rawRole string
	if secret != "" {
		header := c.GetHeader("Authorization")
		if header == "" {
			return domain.Caller{}, errMissingIdentity
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return domain.Caller{}, errors.New("authorization header must use the Bearer scheme")
		}
		claims, err := auth.ValidateToken(secret, strings.TrimSpace(token))
		if err != nil {
			return domain.Caller{}, err
		}
		orgID, rawRole = claims.OrgID, claims.Role
	} else {
		orgID = strings.TrimSpace(c.GetHeader(HeaderOrgID))
		rawRole = c.GetHeader(HeaderOrgRole)
		if orgID == "" && strings.TrimSpace(rawRole) == "" {
			return domain.Caller{}, errMissingIdentity
		}
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Caller{}, err
	}
	if role == domain.RoleSystem {
		return domain.Caller{}, errReservedRole
	}
	caller := domain.Caller{OrgID: orgID, Role: role}
	if err := caller.Validate(); err != nil {
		return domain.Caller{}, err
	}
	return caller, nil
}

// requireCaller returns the resolved caller or answers 401.
func requireCaller(c *gin.Context) (domain.Caller, bool) {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller, true
		}
	}
	respondProblem(c, apierrors.ErrUnauthorized.WithDetail(errMissingIdentity.Error()))
	return domain.Caller{}, false
}
