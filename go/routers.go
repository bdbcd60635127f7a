package matchingserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions bundles the API groups served by the router.
type ApiHandleFunctions struct {
	DonationAPI  DonationAPI
	RequestAPI   RequestAPI
	MatchAPI     MatchAPI
	CandidateAPI CandidateAPI
	AdminAPI     AdminAPI
}

// NewRouter returns a new router using gin.Default.
func NewRouter(handleFunctions ApiHandleFunctions, middleware ...gin.HandlerFunc) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions, middleware...)
}

// NewRouterWithGinEngine registers the API on an existing engine. Middleware is
// installed before any route so it applies to every handler.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, middleware ...gin.HandlerFunc) *gin.Engine {
	router.Use(middleware...)
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes that have no handler yet.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", Healthz},

		{"RegisterDonation", http.MethodPost, "/v1/donations", handleFunctions.DonationAPI.RegisterDonation},
		{"ListDonations", http.MethodGet, "/v1/donations", handleFunctions.DonationAPI.ListDonations},
		{"GetDonation", http.MethodGet, "/v1/donations/:donationId", handleFunctions.DonationAPI.GetDonation},
		{"CancelDonation", http.MethodDelete, "/v1/donations/:donationId", handleFunctions.DonationAPI.CancelDonation},
		{"SuggestRequests", http.MethodGet, "/v1/donations/:donationId/suggestions", handleFunctions.DonationAPI.SuggestRequests},

		{"RegisterRequest", http.MethodPost, "/v1/requests", handleFunctions.RequestAPI.RegisterRequest},
		{"ListRequests", http.MethodGet, "/v1/requests", handleFunctions.RequestAPI.ListRequests},
		{"GetRequest", http.MethodGet, "/v1/requests/:requestId", handleFunctions.RequestAPI.GetRequest},
		{"FulfillRequest", http.MethodPost, "/v1/requests/:requestId/fulfill", handleFunctions.RequestAPI.FulfillRequest},
		{"SuggestDonations", http.MethodGet, "/v1/requests/:requestId/suggestions", handleFunctions.RequestAPI.SuggestDonations},

		{"ClaimDonation", http.MethodPost, "/v1/matches", handleFunctions.MatchAPI.ClaimDonation},
		{"ListMatches", http.MethodGet, "/v1/matches", handleFunctions.MatchAPI.ListMatches},
		{"GetMatch", http.MethodGet, "/v1/matches/:matchId", handleFunctions.MatchAPI.GetMatch},
		{"CompleteMatch", http.MethodPost, "/v1/matches/:matchId/complete", handleFunctions.MatchAPI.CompleteMatch},
		{"CancelMatch", http.MethodPost, "/v1/matches/:matchId/cancel", handleFunctions.MatchAPI.CancelMatch},
		{"Cancel", http.MethodPost, "/v1/cancellations", handleFunctions.MatchAPI.Cancel},

		{"GenerateCandidates", http.MethodGet, "/v1/candidates", handleFunctions.CandidateAPI.GenerateCandidates},

		{"ListEvents", http.MethodGet, "/v1/events", handleFunctions.AdminAPI.ListEvents},
		{"StartSweep", http.MethodPost, "/v1/admin/sweeps", handleFunctions.AdminAPI.StartSweep},
	}
}

// Get /healthz
// Liveness probe
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
