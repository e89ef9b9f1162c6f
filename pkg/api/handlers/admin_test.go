package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperhub/admindata/pkg/admindata"
	"github.com/paperhub/admindata/pkg/fallback"
	"github.com/paperhub/admindata/pkg/gateway"
	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/models"
	"github.com/paperhub/admindata/pkg/synthetic"
)

// setupService builds an admindata service against a scripted upstream.
// A nil handler 404s everywhere, which puts the service in degraded mode.
func setupService(t *testing.T, fn http.HandlerFunc) *admindata.Service {
	t.Helper()

	if fn == nil {
		fn = func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}
	}
	server := httptest.NewServer(fn)
	t.Cleanup(server.Close)

	log := logger.New("error")
	store := fallback.NewStore(fallback.NewMemoryKV(), log)
	synth := synthetic.NewGenerator(42, store)
	gw := gateway.NewClient(server.URL, 2*time.Second, log)

	return admindata.NewService(gw, store, synth, log, nil)
}

func newJSONContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestListPartnersDegraded(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodGet, "/api/v1/admin/partners", "")
	require.NoError(t, handler.ListPartners(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var partners []models.Partner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partners))
	assert.NotEmpty(t, partners)
	for _, p := range partners {
		assert.LessOrEqual(t, p.ActiveReferrals, p.TotalReferrals)
	}
}

func TestListPartnersUpstreamAuthoritative(t *testing.T) {
	handler := NewAdminHandler(setupService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/admin_partners/" {
			w.Write([]byte(`{"results":[{"id":1,"username":"real_partner"}]}`))
			return
		}
		http.NotFound(w, r)
	}))

	c, rec := newJSONContext(t, http.MethodGet, "/api/v1/admin/partners", "")
	require.NoError(t, handler.ListPartners(c))

	var partners []models.Partner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partners))
	require.Len(t, partners, 1)
	assert.Equal(t, "real_partner", partners[0].Username)
}

func TestUpdatePartnerValidatesCommissionRate(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/admin/partners/2", `{"partner_commission_rate":150}`)
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, handler.UpdatePartner(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePartnerDegraded(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/admin/partners/2", `{"partner_commission_rate":20}`)
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, handler.UpdatePartner(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var partner models.Partner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partner))
	assert.Equal(t, 2, partner.ID)
	assert.Equal(t, 20.0, partner.PartnerCommissionRate)
}

func TestUpdatePartnerUpstreamErrorSurfaces(t *testing.T) {
	handler := NewAdminHandler(setupService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/admin_partners/" {
			w.Write([]byte(`[{"id":2,"username":"boris_k","partner_commission_rate":15}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	c, rec := newJSONContext(t, http.MethodPatch, "/api/v1/admin/partners/2", `{"partner_commission_rate":20}`)
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, handler.UpdatePartner(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "upstream_error", resp.Error)
}

func TestMarkEarningPaid(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/earnings/mark-paid", `{"earning_id":3}`)

	require.NoError(t, handler.MarkEarningPaid(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The flag is visible on the next read
	c2, rec2 := newJSONContext(t, http.MethodGet, "/api/v1/admin/earnings", "")
	require.NoError(t, handler.ListEarnings(c2))

	var earnings []models.Earning
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &earnings))
	for _, e := range earnings {
		if e.ID == 3 {
			assert.True(t, e.IsPaid)
			return
		}
	}
	t.Fatal("earning 3 not found")
}

func TestMarkEarningPaidRequiresID(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/earnings/mark-paid", `{}`)

	require.NoError(t, handler.MarkEarningPaid(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignArbitrator(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/disputes/1/assign-arbitrator", `{"arbitrator_id":4}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, handler.AssignArbitrator(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var dispute models.Dispute
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dispute))
	require.NotNil(t, dispute.Arbitrator)
	assert.Equal(t, 4, dispute.Arbitrator.ID)
}

func TestResolveDisputeRequiresResult(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/disputes/1/resolve", `{"result":""}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, handler.ResolveDispute(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStats(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodGet, "/api/v1/admin/stats", "")
	require.NoError(t, handler.GetStats(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats models.AdminStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Greater(t, stats.TotalPartners, 0)
	assert.Greater(t, stats.Arbitrators, 0)
}

func TestRefreshUnknownEntity(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/refresh/nonsense", "")
	c.SetParamNames("entity")
	c.SetParamValues("nonsense")

	require.NoError(t, handler.Refresh(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAll(t *testing.T) {
	handler := NewAdminHandler(setupService(t, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/api/v1/admin/refresh/all", "")
	c.SetParamNames("entity")
	c.SetParamValues("all")

	require.NoError(t, handler.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
