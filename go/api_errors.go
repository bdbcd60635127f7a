package matchingserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/application"
	apierrors "github.com/Apurer/go-gin-donation-matcher/internal/shared/errors"
)

var responder = apierrors.NewResponder("", matchingProblem)

// matchingProblem maps application error kinds onto RFC 7807 problems.
func matchingProblem(err error) (apierrors.ProblemDetail, bool) {
	kind := application.KindOf(err)
	var problem apierrors.ProblemDetail
	switch kind {
	case application.KindValidation:
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			problem = apierrors.NewValidationProblem(verr.Field, verr.Err.Error())
		} else {
			problem = apierrors.ErrValidation.WithDetail(err.Error())
		}
	case application.KindNotFound:
		problem = apierrors.ErrNotFound.WithDetail(err.Error())
	case application.KindAlreadyClaimed,
		application.KindRequestAlreadyFulfilled,
		application.KindInvalidTransition,
		application.KindPartialCompletionConflict,
		application.KindPartialFulfillmentConflict:
		problem = apierrors.ErrConflict.WithDetail(err.Error())
	case application.KindForbidden:
		problem = apierrors.ErrForbidden.WithDetail(err.Error())
	case application.KindStoreUnavailable:
		problem = apierrors.ErrUnavailable.WithDetail("the entity store is unavailable, retry later")
	default:
		return apierrors.ProblemDetail{}, false
	}
	return problem.WithKind(kind), true
}

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

// respondError answers transport-level failures such as malformed bodies.
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	switch status {
	case http.StatusBadRequest:
		responder.BadRequest(c, err.Error())
	case http.StatusUnauthorized:
		respondProblem(c, apierrors.ErrUnauthorized.WithDetail(err.Error()))
	default:
		responder.RespondError(c, err)
	}
}

// respondMatchingServiceError answers errors returned by the matching service.
func respondMatchingServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}
