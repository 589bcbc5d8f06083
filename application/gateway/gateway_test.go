package gateway_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reglet-dev/cligate/application/gateway"
	"github.com/reglet-dev/cligate/application/supervisor"
	"github.com/reglet-dev/cligate/domain/entities"
	domainerrors "github.com/reglet-dev/cligate/domain/errors"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/infrastructure/idformat"
	"github.com/reglet-dev/cligate/infrastructure/memstore"
	"github.com/reglet-dev/cligate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRunner records runs and blocks each until release is closed.
type blockingRunner struct {
	started chan string
	release chan struct{}

	mu   sync.Mutex
	runs []string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan string, 16), release: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context, userID, code string) entities.ExecutionResult {
	r.started <- code
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	r.mu.Lock()
	r.runs = append(r.runs, userID+":"+code)
	r.mu.Unlock()
	return entities.ExecutionResult{State: entities.StateCompleted}
}

func (r *blockingRunner) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

type fakeSession struct {
	injected map[string]ports.SubmitFunc
	err      error
}

func (s *fakeSession) Inject(name string, fn ports.SubmitFunc) error {
	if s.err != nil {
		return s.err
	}
	s.injected[name] = fn
	return nil
}

type fakeHost struct {
	hook func(ports.Session, string)
	err  error
}

func (h *fakeHost) OnSession(hook func(ports.Session, string)) error {
	if h.err != nil {
		return h.err
	}
	h.hook = hook
	return nil
}

func TestSubmit_ReturnsImmediately(t *testing.T) {
	r := newBlockingRunner()
	g := gateway.New(r, gateway.WithWorkers(1), gateway.WithQueueSize(1))

	assert.Equal(t, gateway.QueuedLine, g.Submit("5", "first"))
	assert.Equal(t, "first", <-r.started)

	assert.Equal(t, gateway.QueuedLine, g.Submit("5", "second"))
	assert.Equal(t, gateway.BusyLine, g.Submit("5", "third"), "queue full")

	close(r.release)
	require.NoError(t, g.Close(context.Background()))
	assert.Equal(t, []string{"5:first", "5:second"}, r.Runs())
	assert.Equal(t, gateway.BusyLine, g.Submit("5", "late"), "closed gateways accept nothing")
}

func TestClose_CancelsRunningExecutionsWhenContextEnds(t *testing.T) {
	r := newBlockingRunner()
	g := gateway.New(r, gateway.WithWorkers(1))
	g.Submit("5", "stuck")
	<-r.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Close(ctx), context.DeadlineExceeded)
	assert.Equal(t, []string{"5:stuck"}, r.Runs())
}

func TestInstall(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		g := gateway.New(newBlockingRunner())
		defer g.Close(context.Background())

		err := g.Install(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, gateway.ErrNoSessionHost)
		var cfgErr *domainerrors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("host refuses hook", func(t *testing.T) {
		g := gateway.New(newBlockingRunner())
		defer g.Close(context.Background())

		err := g.Install(&fakeHost{err: testutil.ErrInjected})
		assert.ErrorIs(t, err, testutil.ErrInjected)
	})

	t.Run("injects entry point per session", func(t *testing.T) {
		r := newBlockingRunner()
		close(r.release)
		g := gateway.New(r, gateway.WithEntryPoint("cli"))

		host := &fakeHost{}
		require.NoError(t, g.Install(host))
		require.NotNil(t, host.hook)

		session := &fakeSession{injected: map[string]ports.SubmitFunc{}}
		host.hook(session, "5")
		require.Contains(t, session.injected, "cli")

		assert.Equal(t, gateway.QueuedLine, session.injected["cli"]("1 + 1"))
		require.NoError(t, g.Close(context.Background()))
		assert.Equal(t, []string{"5:1 + 1"}, r.Runs())
	})

	t.Run("injection failure does not break the host", func(t *testing.T) {
		g := gateway.New(newBlockingRunner())
		defer g.Close(context.Background())

		host := &fakeHost{}
		require.NoError(t, g.Install(host))
		assert.NotPanics(t, func() {
			host.hook(&fakeSession{err: errors.New("sealed")}, "5")
		})
	})
}

type panickingRunner struct {
	calls chan struct{}
}

func (r panickingRunner) Run(context.Context, string, string) entities.ExecutionResult {
	r.calls <- struct{}{}
	panic("boom")
}

func TestWorkersSurvivePanics(t *testing.T) {
	r := panickingRunner{calls: make(chan struct{}, 2)}
	g := gateway.New(r, gateway.WithWorkers(1))
	g.Submit("5", "a")
	g.Submit("5", "b")
	require.NoError(t, g.Close(context.Background()))
	assert.Len(t, r.calls, 2)
}

// endToEnd runs helpers against a real supervisor over an in-memory store.
func endToEnd(t *testing.T) (*gateway.Gateway, *memstore.Store, *testutil.RecordingDeliverer) {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()
	_, err := db.Raw(entities.CollectionRoomObjects).Insert(ctx,
		entities.Document{"_id": "ctrl", "type": entities.TypeController, "room": "W1N1", "user": "5", "level": 1},
		entities.Document{"_id": "spawn", "type": "spawn", "room": "W1N1", "user": "5"},
		entities.Document{"_id": "cs1", "type": entities.TypeConstructionSite, "room": "W1N1", "user": "5", "progress": 0, "progressTotal": 300},
		entities.Document{"_id": "cs2", "type": entities.TypeConstructionSite, "room": "W1N1", "user": "5", "progress": 0},
		entities.Document{"_id": "cs3", "type": entities.TypeConstructionSite, "room": "W2N2", "user": "5", "progress": 0, "progressTotal": 50},
	)
	require.NoError(t, err)

	settings := entities.NewSettings()
	settings.SuperAdminUserIDs = []string{"9"}
	d := testutil.NewRecordingDeliverer()
	sup := supervisor.New(settings, db, idformat.Plain{}, d)
	g := gateway.New(sup, gateway.WithSettings(settings))
	return g, db, d
}

func object(t *testing.T, db *memstore.Store, id string) entities.Document {
	t.Helper()
	doc, err := db.Raw(entities.CollectionRoomObjects).FindOne(context.Background(), entities.Query{"_id": id}, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func TestHelpers_EndToEnd(t *testing.T) {
	g, db, d := endToEnd(t)

	assert.Equal(t, gateway.QueuedLine, g.SetStore("9", map[string]any{"_id": "spawn"}, map[string]any{"energy": 300}))
	assert.Equal(t, gateway.QueuedLine, g.SetControllerLevel("9", "ctrl", "12"))
	assert.Equal(t, gateway.QueuedLine, g.FinishConstructionSites("9", "W1N1"))
	require.NoError(t, g.Close(context.Background()))

	assert.Len(t, d.Results("9"), 3)
	assert.Equal(t, map[string]any{"energy": 300.0}, object(t, db, "spawn")["store"])
	assert.EqualValues(t, 8, object(t, db, "ctrl")["level"])
	assert.EqualValues(t, 299, object(t, db, "cs1")["progress"])
	assert.EqualValues(t, -1, object(t, db, "cs2")["progress"])
	assert.EqualValues(t, 0, object(t, db, "cs3")["progress"], "other rooms untouched")
}

func TestHelpers_SetStoreHuge(t *testing.T) {
	g, db, _ := endToEnd(t)

	g.SetStoreHuge("9", "spawn")
	require.NoError(t, g.Close(context.Background()))

	store, ok := object(t, db, "spawn")["store"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 5000000, store["energy"])
	assert.EqualValues(t, 100000, store["XGHO2"])
	assert.Len(t, store, len(gateway.HugeStore))
}

func TestHelp(t *testing.T) {
	help := gateway.Help()
	for _, name := range []string{"exec(", "setStore(", "setStoreHuge(", "setControllerLevel(", "finishConstructionSites("} {
		assert.Contains(t, help, name)
	}
}
