package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearcheck/internal/audit"
	"gearcheck/internal/catalog"
	"gearcheck/internal/check"
	"gearcheck/internal/check/service"
	"gearcheck/internal/directory"
	"gearcheck/internal/notify"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/middleware"
	"gearcheck/internal/strikes"
	"gearcheck/pkg/testutil"
)

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good-token" {
		return nil, assertionError("bad token")
	}
	return &middleware.JWTClaims{ActorID: "chef-1", Name: "Chef Un", Role: middleware.RoleChef}, nil
}

type assertionError string

func (e assertionError) Error() string { return string(e) }

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	ctx := context.Background()

	dir := directory.NewInMemoryStore()
	cat := catalog.NewInMemoryStore()
	dir.SeedTeam(&directory.Team{ID: "team-1", Name: "Quai Nord", ChefID: "chef-1"})
	dir.SeedWorker(&directory.Worker{
		ID: "w1", Name: "Karim Benali", TeamID: "team-1",
		Role: "role-cariste", Attendance: directory.AttendancePresent,
	})
	require.NoError(t, cat.CreateRole(ctx, catalog.Role{ID: "role-cariste", Label: "Cariste"}))
	require.NoError(t, cat.CreateEquipment(ctx, catalog.Equipment{ID: "helmet", Name: "Casque", MaxMissesBeforeNotif: 3}))
	require.NoError(t, cat.AssignEquipment(ctx, "role-cariste", "helmet"))

	m := metrics.NewWith(prometheus.NewRegistry())
	logger := slog.New(slog.DiscardHandler)
	coord := service.NewCoordinator(
		service.NewShardedTx(),
		check.NewInMemoryStore(),
		dir,
		check.NewValidator(dir, cat),
		strikes.NewLedger(strikes.NewInMemoryStore(), notify.NewInMemoryStore()),
		audit.NewInMemoryStore(),
		time.UTC,
		m,
		logger,
	)

	r := chi.NewRouter()
	New(coord, logger, m, staticValidator{}).Register(r)
	return r
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer good-token")
	return req
}

func TestHandleSubmit(t *testing.T) {
	router := newTestRouter(t)

	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", map[string]any{
		"workerId": "w1",
		"teamId":   "team-1",
		"items":    []map[string]string{{"equipmentId": "helmet", "status": "OK"}},
	}))
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.Equal(t, "w1", resp.WorkerID)
	assert.Equal(t, check.ResultConforme, resp.Result)
	assert.NotEmpty(t, resp.ID)
}

func TestHandleSubmitConflict(t *testing.T) {
	router := newTestRouter(t)

	body := map[string]any{
		"workerId": "w1",
		"teamId":   "team-1",
		"items":    []map[string]string{{"equipmentId": "helmet", "status": "OK"}},
	}
	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", body)))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", body)))
	testutil.AssertStatus(t, rr, http.StatusConflict)
	testutil.AssertErrorCode(t, rr, "already_checked_today")
}

func TestHandleSubmitRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/checks", map[string]any{})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestHandleSubmitBadBody(t *testing.T) {
	router := newTestRouter(t)

	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", "not an object"))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "bad_request")
}

func TestHandleAmendAndGet(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", map[string]any{
		"workerId": "w1",
		"teamId":   "team-1",
		"items":    []map[string]string{{"equipmentId": "helmet", "status": "FAILED"}},
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.Equal(t, check.ResultKO, created.Result)

	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPut, "/checks/"+created.ID, map[string]any{
		"items": []map[string]string{{"equipmentId": "helmet", "status": "OK"}},
	})))
	testutil.AssertStatus(t, rr, http.StatusOK)
	amended := testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.Equal(t, check.ResultConforme, amended.Result)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/checks/"+created.ID)))
	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalResponse[checkResponse](t, rr)
	assert.Equal(t, check.ResultConforme, got.Result)
	require.Len(t, got.Items, 1)
	assert.Equal(t, check.ItemOK, got.Items[0].Status)
}

func TestHandleWorkerHistory(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/checks", map[string]any{
		"workerId": "w1",
		"items":    []map[string]string{{"equipmentId": "helmet", "status": "OK"}},
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/workers/w1/checks?range=7d")))
	testutil.AssertStatus(t, rr, http.StatusOK)
	list := testutil.UnmarshalResponse[[]checkResponse](t, rr)
	assert.Len(t, *list, 1)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/workers/w1/checks?range=2y")))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, http.MethodGet, "/workers/ghost/checks")))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
