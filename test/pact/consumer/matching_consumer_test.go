//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-donation-matcher/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type donationPayload struct {
	ID         string `json:"id"`
	DonorOrgID string `json:"donorOrgId"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Version    int64  `json:"version"`
}

type claimPayload struct {
	MatchID    string  `json:"matchId"`
	DonationID string  `json:"donationId"`
	RequestID  string  `json:"requestId"`
	Score      float64 `json:"score"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Kind   string `json:"kind"`
}

type apiError struct {
	status int
	kind   string
	detail string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.kind, e.detail, e.status)
}

func TestNGOPortalContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")
	donationMatcher := matchers.Map{
		"id":          matchers.S(pacttest.DonationID),
		"donorOrgId":  matchers.Like(pacttest.DonorOrgID),
		"category":    matchers.Term("food", "food|clothing|books|other"),
		"quantity":    matchers.Like("10 boxes"),
		"condition":   matchers.Term("new", "new|good|used"),
		"description": matchers.Like("10 boxes canned vegetables"),
		"status":      matchers.Term("open", "open|claimed|completed|cancelled"),
		"version":     matchers.Like(1),
	}

	pact.AddInteraction().
		Given(pacttest.StateDonationOpen).
		UponReceiving("a request to fetch an open donation").
		WithRequest("GET", "/v1/donations/"+pacttest.DonationID).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(donationMatcher)
		})

	pact.AddInteraction().
		Given(pacttest.StateNoDonations).
		UponReceiving("a request for a missing donation").
		WithRequest("GET", "/v1/donations/"+pacttest.MissingDonationID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"status": matchers.Like(http.StatusNotFound),
				"kind":   matchers.S("NotFound"),
			})
		})

	claimBody := matchers.Map{
		"donationId": matchers.S(pacttest.DonationID),
		"requestId":  matchers.S(pacttest.RequestID),
	}

	pact.AddInteraction().
		Given(pacttest.StateClaimable).
		UponReceiving("a claim of an open donation against the caller's request").
		WithRequest("POST", "/v1/matches", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("X-Org-ID", matchers.S(pacttest.NGOOrgID))
			b.Header("X-Org-Role", matchers.S("recipient-org"))
			b.JSONBody(claimBody)
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"matchId":    matchers.Like(pacttest.MatchID),
				"donationId": matchers.S(pacttest.DonationID),
				"requestId":  matchers.S(pacttest.RequestID),
				"score":      matchers.Like(91.5),
				"explanation": matchers.EachLike(matchers.Map{
					"name":   matchers.Like("category"),
					"points": matchers.Like(40.0),
					"max":    matchers.Like(40.0),
					"detail": matchers.Like("food = food"),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateDonationClaimed).
		UponReceiving("a second claim of an already claimed donation").
		WithRequest("POST", "/v1/matches", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("X-Org-ID", matchers.S(pacttest.RivalOrgID))
			b.Header("X-Org-Role", matchers.S("recipient-org"))
			b.JSONBody(matchers.Map{"donationId": matchers.S(pacttest.DonationID)})
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/conflict"),
				"status": matchers.Like(http.StatusConflict),
				"kind":   matchers.S("AlreadyClaimed"),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newMatchingClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		donation, err := client.GetDonation(ctx, pacttest.DonationID)
		if err != nil {
			return fmt.Errorf("get donation: %w", err)
		}
		if donation.ID != pacttest.DonationID || donation.Status != "open" {
			return fmt.Errorf("unexpected donation %+v", donation)
		}

		if _, err := client.GetDonation(ctx, pacttest.MissingDonationID); err == nil {
			return fmt.Errorf("expected 404 for donation %s", pacttest.MissingDonationID)
		} else if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %v", err)
		}

		claim, err := client.Claim(ctx, pacttest.NGOOrgID, map[string]string{
			"donationId": pacttest.DonationID,
			"requestId":  pacttest.RequestID,
		})
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if claim.MatchID == "" || claim.Score <= 0 {
			return fmt.Errorf("unexpected claim %+v", claim)
		}

		if _, err := client.Claim(ctx, pacttest.RivalOrgID, map[string]string{"donationId": pacttest.DonationID}); err == nil {
			return fmt.Errorf("expected second claim to conflict")
		} else if apiErr, ok := err.(apiError); !ok || apiErr.kind != "AlreadyClaimed" {
			return fmt.Errorf("expected AlreadyClaimed, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
}

type matchingClient struct {
	baseURL    string
	httpClient *http.Client
}

func newMatchingClient(config pactconsumer.MockServerConfig) *matchingClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &matchingClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *matchingClient) GetDonation(ctx context.Context, id string) (*donationPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/donations/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out donationPayload
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *matchingClient) Claim(ctx context.Context, orgID string, body map[string]string) (*claimPayload, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/matches", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org-ID", orgID)
	req.Header.Set("X-Org-Role", "recipient-org")
	var out claimPayload
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *matchingClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var problem problemDetail
		_ = json.NewDecoder(res.Body).Decode(&problem)
		status := problem.Status
		if status == 0 {
			status = res.StatusCode
		}
		return apiError{status: status, kind: problem.Kind, detail: problem.Detail}
	}
	return json.NewDecoder(res.Body).Decode(out)
}
