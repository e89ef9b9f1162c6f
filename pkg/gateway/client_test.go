package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperhub/admindata/pkg/domain"
	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, logger.New("error")), srv
}

func TestListPartnersPaginatedEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/admin_partners/", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1,"results":[{"id":1,"username":"anna_p","partner_commission_rate":15}]}`))
	})

	partners, err := client.ListPartners(context.Background())

	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, 1, partners[0].ID)
	assert.Equal(t, "anna_p", partners[0].Username)
	assert.Equal(t, 15.0, partners[0].PartnerCommissionRate)
}

func TestListDisputesNestedEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/disputes/", r.URL.Path)
		w.Write([]byte(`{"data":{"count":1,"results":[{"id":1,"reason":"missed deadline","resolved":false}]}}`))
	})

	disputes, err := client.ListDisputes(context.Background())

	require.NoError(t, err)
	require.Len(t, disputes, 1)
	assert.Equal(t, "missed deadline", disputes[0].Reason)
	assert.False(t, disputes[0].Resolved)
}

func TestListEarningsUnknownShapeYieldsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	})

	earnings, err := client.ListEarnings(context.Background())

	require.NoError(t, err)
	assert.Empty(t, earnings)
}

func TestUpdatePartnerSendsPatch(t *testing.T) {
	rate := 20.0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/2/admin_update_partner/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 20.0, body["partner_commission_rate"])
		assert.NotContains(t, body, "is_verified_partner")

		json.NewEncoder(w).Encode(models.Partner{ID: 2, Username: "boris_k", PartnerCommissionRate: 20})
	})

	partner, err := client.UpdatePartner(context.Background(), 2, models.PartnerPatch{PartnerCommissionRate: &rate})

	require.NoError(t, err)
	assert.Equal(t, 20.0, partner.PartnerCommissionRate)
}

func TestMarkEarningPaid(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/admin_mark_earning_paid/", r.URL.Path)

		var req models.MarkEarningPaidRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.EarningID)

		json.NewEncoder(w).Encode(models.MessageResponse{Message: "earning marked as paid"})
	})

	err := client.MarkEarningPaid(context.Background(), 3)
	assert.NoError(t, err)
}

func TestAssignArbitratorReturnsDispute(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/disputes/1/assign_arbitrator/", r.URL.Path)
		json.NewEncoder(w).Encode(models.Dispute{
			ID:         1,
			Arbitrator: &models.Arbitrator{ID: 4, Username: "judge_dmitry"},
		})
	})

	dispute, err := client.AssignArbitrator(context.Background(), 1, 4)

	require.NoError(t, err)
	require.NotNil(t, dispute.Arbitrator)
	assert.Equal(t, "judge_dmitry", dispute.Arbitrator.Username)
}

func TestOutcomeClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "404 is unreachable",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsUnreachable(err))
			},
		},
		{
			name:   "401 is unauthorized, never fallback",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsUnauthorized(err))
				assert.False(t, domain.IsUnreachable(err))
			},
		},
		{
			name:   "422 is validation with upstream message",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"commission rate out of range"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsValidation(err))
				assert.Contains(t, err.Error(), "commission rate out of range")
			},
		},
		{
			name:   "500 is server error",
			status: http.StatusInternalServerError,
			body:   `{"detail":"database exploded"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.IsServer(err))
				assert.Contains(t, err.Error(), "database exploded")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			})

			_, err := client.ListPartners(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, 500*time.Millisecond, logger.New("error"))

	_, err := client.ListDisputes(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsUnreachable(err))
}
