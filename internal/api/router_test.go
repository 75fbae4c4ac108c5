package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/guildmaster/internal/api"
	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
)

type testServer struct {
	*httptest.Server
	svc   *guild.Service
	store *guild.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := guild.NewMemoryStore()
	svc := guild.NewService(guild.NewRoster(), store, battle.NewEngine(logger), dice.NewSeededSource(42), logger)
	srv := httptest.NewServer(api.NewRouter(svc, logger))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (ts *testServer) recruit(t *testing.T, req guild.RecruitRequest) guild.UnitView {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/v1/units", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v guild.UnitView
	decodeBody(t, resp, &v)
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnits_RecruitListGet(t *testing.T) {
	ts := newTestServer(t)

	v := ts.recruit(t, guild.RecruitRequest{Name: "Aria", Level: 3, Job: 1, Rank: 2})
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Aria", v.Name)
	assert.Equal(t, 3, v.Level)
	assert.True(t, v.Alive)
	assert.InDelta(t, v.Stats.MaxHealth, v.Health, 1e-9)

	resp := ts.do(t, http.MethodGet, "/api/v1/units", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list api.UnitsResponse
	decodeBody(t, resp, &list)
	require.Len(t, list.Units, 1)
	assert.Equal(t, v.ID, list.Units[0].ID)

	resp = ts.do(t, http.MethodGet, "/api/v1/units/"+v.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got guild.UnitView
	decodeBody(t, resp, &got)
	assert.Equal(t, v.ID, got.ID)
}

func TestUnits_RecruitWithJobNames(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/api/v1/units",
		map[string]any{"name": "Bren", "job": "knight", "rank": "epic"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v guild.UnitView
	decodeBody(t, resp, &v)
	assert.Equal(t, "knight", v.Job.String())
	assert.Equal(t, "epic", v.Rank.String())
	assert.Equal(t, 1, v.Level)
}

func TestUnits_RecruitValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body any
	}{
		{name: "unknown job", body: map[string]any{"name": "X", "job": "bard"}},
		{name: "empty name", body: map[string]any{"name": "", "job": "mage"}},
		{name: "negative level", body: map[string]any{"name": "X", "job": "mage", "level": -2}},
		{name: "level above cap", body: map[string]any{"name": "X", "job": "mage", "level": 300}},
		{name: "malformed", body: "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/v1/units", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e api.ErrorResponse
			decodeBody(t, resp, &e)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestUnits_UnknownIDIs404(t *testing.T) {
	ts := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/units/ghost"},
		{http.MethodDelete, "/api/v1/units/ghost"},
		{http.MethodPost, "/api/v1/units/ghost/awaken"},
	} {
		resp := ts.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
	resp := ts.do(t, http.MethodPost, "/api/v1/units/ghost/experience", api.ExperienceRequest{Amount: 10})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnits_GrantExperience(t *testing.T) {
	ts := newTestServer(t)
	v := ts.recruit(t, guild.RecruitRequest{Name: "Cato", Job: 3})

	resp := ts.do(t, http.MethodPost, "/api/v1/units/"+v.ID+"/experience", api.ExperienceRequest{Amount: 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.ExperienceResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, 1, out.LevelsGained)
	assert.Equal(t, 2, out.Unit.Level)
	assert.Equal(t, 0, out.Unit.Experience)

	resp = ts.do(t, http.MethodPost, "/api/v1/units/"+v.ID+"/experience", api.ExperienceRequest{Amount: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnits_GrantExperienceSaturates(t *testing.T) {
	ts := newTestServer(t)
	v := ts.recruit(t, guild.RecruitRequest{Name: "Huge", Job: 1})
	path := "/api/v1/units/" + v.ID + "/experience"

	resp := ts.do(t, http.MethodPost, path, api.ExperienceRequest{Amount: math.MaxInt})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.ExperienceResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, unit.MaxLevel, out.Unit.Level)

	resp = ts.do(t, http.MethodPost, path, api.ExperienceRequest{Amount: math.MaxInt})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/save", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	save, err := ts.store.LoadRoster(t.Context())
	require.NoError(t, err)
	require.Len(t, save.Units, 1)
	_, err = unit.Restore(save.Units[0])
	assert.NoError(t, err)
}

func TestUnits_AwakenIneligibleIsNotAnError(t *testing.T) {
	ts := newTestServer(t)
	v := ts.recruit(t, guild.RecruitRequest{Name: "Dara", Job: 6})

	resp := ts.do(t, http.MethodPost, "/api/v1/units/"+v.ID+"/awaken", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.AwakenResponse
	decodeBody(t, resp, &out)
	assert.False(t, out.Awakened)
	assert.Equal(t, 0, out.Unit.Awakening)
}

func TestUnits_ReviveLivingUnitIsNoOp(t *testing.T) {
	ts := newTestServer(t)
	v := ts.recruit(t, guild.RecruitRequest{Name: "Eve", Job: 4})

	resp := ts.do(t, http.MethodPost, "/api/v1/units/"+v.ID+"/revive", api.ReviveRequest{Fraction: 0.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.ReviveResponse
	decodeBody(t, resp, &out)
	assert.False(t, out.Revived)

	resp = ts.do(t, http.MethodPost, "/api/v1/units/"+v.ID+"/revive", api.ReviveRequest{Fraction: 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnits_Dismiss(t *testing.T) {
	ts := newTestServer(t)
	v := ts.recruit(t, guild.RecruitRequest{Name: "Fay", Job: 5})

	resp := ts.do(t, http.MethodDelete, "/api/v1/units/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, ts.svc.Views())

	resp = ts.do(t, http.MethodDelete, "/api/v1/units/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBattles_Run(t *testing.T) {
	ts := newTestServer(t)
	var ids []string
	for _, name := range []string{"Gale", "Hale", "Iris"} {
		ids = append(ids, ts.recruit(t, guild.RecruitRequest{Name: name, Level: 40, Job: 1, Rank: 4}).ID)
	}

	resp := ts.do(t, http.MethodPost, "/api/v1/battles", guild.BattleRequest{
		AllyIDs: ids,
		Enemies: []guild.EnemySpec{{Name: "Slime", Level: 1, Job: 3}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report guild.BattleReport
	decodeBody(t, resp, &report)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "allies", report.Winner)
	assert.GreaterOrEqual(t, report.Rounds, 1)
	assert.NotEmpty(t, report.Events)
	assert.Len(t, report.Allies, 3)
}

func TestBattles_Errors(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/battles", guild.BattleRequest{
		AllyIDs: []string{"ghost"},
		Enemies: []guild.EnemySpec{{Name: "Slime", Job: 3}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/battles", guild.BattleRequest{
		Enemies: []guild.EnemySpec{{Name: "Slime", Job: 3}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSave_WritesStore(t *testing.T) {
	ts := newTestServer(t)
	ts.recruit(t, guild.RecruitRequest{Name: "Juno", Job: 7})

	resp := ts.do(t, http.MethodPost, "/api/v1/save", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	save, err := ts.store.LoadRoster(t.Context())
	require.NoError(t, err)
	require.Len(t, save.Units, 1)
	assert.Equal(t, "Juno", save.Units[0].Name)
	assert.Equal(t, guild.SaveVersion, save.Version)
}

func TestNewRouter_Preconditions(t *testing.T) {
	logger := zap.NewNop()
	svc := guild.NewService(guild.NewRoster(), guild.NewMemoryStore(), battle.NewEngine(logger), dice.NewSeededSource(1), logger)
	assert.Panics(t, func() { api.NewRouter(nil, logger) })
	assert.Panics(t, func() { api.NewRouter(svc, nil) })
}

type downStore struct{ guild.MemoryStore }

func (*downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc := guild.NewService(guild.NewRoster(), &downStore{}, battle.NewEngine(logger), dice.NewSeededSource(1), logger)
	srv := httptest.NewServer(api.NewRouter(svc, logger))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
