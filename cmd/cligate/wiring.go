package main

import (
	"fmt"
	"strings"

	"github.com/reglet-dev/cligate/application/supervisor"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/host"
	"github.com/reglet-dev/cligate/hostfuncs"
	"github.com/reglet-dev/cligate/infrastructure/idformat"
	"github.com/reglet-dev/cligate/infrastructure/memstore"
	"github.com/reglet-dev/cligate/infrastructure/sqlitestore"
	"github.com/reglet-dev/cligate/infrastructure/userdir"
)

const memoryStore = "memory"

// openDatabase opens the store named by --store. The returned function
// releases it.
func (a *app) openDatabase() (ports.Database, func() error, error) {
	spec := strings.TrimSpace(a.storeSpec)
	if spec == "" || spec == memoryStore {
		return memstore.New(), func() error { return nil }, nil
	}
	store, err := sqlitestore.Open(strings.TrimPrefix(spec, "sqlite:"))
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// newSupervisor wires a supervisor over db delivering to deliverer: users
// come from db's users collection and Elevated callers get the system and
// map capabilities.
func (a *app) newSupervisor(db ports.Database, deliverer ports.Deliverer) (*supervisor.Supervisor, error) {
	ids, err := idformat.For(a.idFormat)
	if err != nil {
		return nil, err
	}
	dir, err := userdir.FromDatabase(db)
	if err != nil {
		return nil, err
	}
	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(a.logger),
		),
		hostfuncs.WithBundle(hostfuncs.AdminBundles(hostfuncs.NewSimulation(a.tick), db)),
	)
	if err != nil {
		return nil, fmt.Errorf("build capabilities: %w", err)
	}

	return supervisor.New(a.settings, db, ids, deliverer,
		supervisor.WithLogger(a.logger),
		supervisor.WithIdentityStore(dir),
		supervisor.WithCapabilities(registry),
		supervisor.WithExecutor(host.NewExecutor(host.WithLogger(a.logger))),
	), nil
}
