package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/reglet-dev/cligate/application/gateway"
	"github.com/reglet-dev/cligate/application/supervisor"
	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/infrastructure/console"
	"github.com/reglet-dev/cligate/infrastructure/httpapi"
	"github.com/reglet-dev/cligate/infrastructure/idformat"
	"github.com/reglet-dev/cligate/infrastructure/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv *httptest.Server
	db  *memstore.Store
	gw  *gateway.Gateway
}

func newFixture(t *testing.T, installed bool) *fixture {
	t.Helper()
	db := memstore.New()
	_, err := db.Raw(entities.CollectionRoomObjects).Insert(context.Background(),
		entities.Document{"_id": "spawn", "type": "spawn", "room": "W1N1", "user": "9"},
	)
	require.NoError(t, err)

	settings := entities.NewSettings()
	settings.SuperAdminUserIDs = []string{"9"}
	hub := console.NewHub()
	gw := gateway.New(supervisor.New(settings, db, idformat.Plain{}, hub), gateway.WithSettings(settings))
	t.Cleanup(func() { _ = gw.Close(context.Background()) })

	api := httpapi.NewServer(hub, httpapi.WithHelpers(gw), httpapi.WithPollTimeout(2*time.Second))
	if installed {
		require.NoError(t, gw.Install(api))
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, db: db, gw: gw}
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

type consoleBody struct {
	Entries []console.Entry `json:"entries"`
	Next    int64           `json:"next"`
}

func (f *fixture) poll(t *testing.T, user string, after int64) consoleBody {
	t.Helper()
	resp, err := http.Get(f.srv.URL + "/v1/sessions/" + user + "/console?wait=true&after=" + strconv.FormatInt(after, 10))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out consoleBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestExecAndPollConsole(t *testing.T) {
	f := newFixture(t, true)

	status, body := f.post(t, "/v1/sessions/9/exec", `{"code": "1 + 1"}`)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, gateway.QueuedLine, body["reply"])

	got := f.poll(t, "9", 0)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, []string{"2"}, got.Entries[0].Message.Results)
	assert.Equal(t, int64(1), got.Next)
}

func TestExec_DeniedCallerSeesDenialInConsole(t *testing.T) {
	f := newFixture(t, true)

	_, body := f.post(t, "/v1/sessions/7/exec", `{"code": "1"}`)
	assert.Equal(t, gateway.QueuedLine, body["reply"], "submission never reveals the outcome")

	got := f.poll(t, "7", 0)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, []string{"[cli] denied: not allowed user"}, got.Entries[0].Message.Results)
}

func TestExec_NotInstalled(t *testing.T) {
	f := newFixture(t, false)

	status, body := f.post(t, "/v1/sessions/9/exec", `{"code": "1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "UNAVAILABLE", body["error"])
}

func TestExec_MalformedBody(t *testing.T) {
	f := newFixture(t, true)

	status, body := f.post(t, "/v1/sessions/9/exec", `{"code": `)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}

func TestConsole_BadCursor(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.srv.URL + "/v1/sessions/9/console?after=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHelpers(t *testing.T) {
	f := newFixture(t, true)

	status, body := f.post(t, "/v1/sessions/9/helpers/setStore", `{"target": {"_id": "spawn"}, "store": {"energy": 50}}`)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, gateway.QueuedLine, body["reply"])
	f.poll(t, "9", 0)

	doc, err := f.db.Raw(entities.CollectionRoomObjects).FindOne(context.Background(), entities.Query{"_id": "spawn"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"energy": 50.0}, doc["store"])

	resp, err := http.Get(f.srv.URL + "/v1/sessions/9/helpers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var help map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&help))
	assert.Contains(t, help["help"], "setControllerLevel")
}

func TestOnSession(t *testing.T) {
	api := httpapi.NewServer(console.NewHub())
	assert.Error(t, api.OnSession(nil))
	require.NoError(t, api.OnSession(func(ports.Session, string) {}))
	assert.Error(t, api.OnSession(func(ports.Session, string) {}), "one hook only")
}
