package main

import (
	"context"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/infrastructure/userdir"
	"github.com/spf13/cobra"
)

// demoWorld is a small world with two players, each owning one room, and
// one administrator.
var demoWorld = map[string][]entities.Document{
	entities.CollectionUsers: {
		{entities.FieldID: "5", userdir.NameField: "alice"},
		{entities.FieldID: "6", userdir.NameField: "bob"},
		{entities.FieldID: "9", userdir.NameField: "admin"},
	},
	entities.CollectionRooms: {
		{entities.FieldID: "W1N1", "status": "normal"},
		{entities.FieldID: "W2N2", "status": "normal"},
		{entities.FieldID: "W3N3", "status": "out of borders"},
	},
	entities.CollectionRoomObjects: {
		{entities.FieldID: "ctrl-w1n1", entities.FieldType: entities.TypeController, entities.FieldRoom: "W1N1", entities.FieldUser: "5", "level": 2},
		{entities.FieldID: "ctrl-w2n2", entities.FieldType: entities.TypeController, entities.FieldRoom: "W2N2", entities.FieldUser: "6", "level": 3},
		{entities.FieldID: "spawn-alice", entities.FieldType: "spawn", entities.FieldRoom: "W1N1", entities.FieldUser: "5", "store": map[string]any{"energy": 300}},
		{entities.FieldID: "creep-alice", entities.FieldType: entities.TypeCreep, entities.FieldRoom: "W1N1", entities.FieldUser: "5", "name": "Harvester1"},
		{entities.FieldID: "creep-bob", entities.FieldType: entities.TypeCreep, entities.FieldRoom: "W2N2", entities.FieldUser: "6", "name": "Upgrader1"},
		{entities.FieldID: "site-alice", entities.FieldType: entities.TypeConstructionSite, entities.FieldRoom: "W1N1", entities.FieldUser: "5", "progress": 0, "progressTotal": 3000},
	},
	entities.CollectionUsersCode: {
		{entities.FieldID: "code-alice", entities.FieldUser: "5", "branch": "default"},
		{entities.FieldID: "code-bob", entities.FieldUser: "6", "branch": "default"},
		{entities.FieldID: "code-admin", entities.FieldUser: "9", "branch": "default"},
	},
}

// seedWorld inserts the demo world into db and returns the number of
// documents written.
func seedWorld(ctx context.Context, db ports.Database) (int, error) {
	n := 0
	for _, name := range []string{
		entities.CollectionUsers,
		entities.CollectionRooms,
		entities.CollectionRoomObjects,
		entities.CollectionUsersCode,
	} {
		coll, ok := db.Collection(name)
		if !ok {
			return n, fmt.Errorf("database has no %s collection", name)
		}
		docs := make([]entities.Document, 0, len(demoWorld[name]))
		for _, d := range demoWorld[name] {
			docs = append(docs, entities.CloneDocument(d))
		}
		inserted, err := coll.Insert(ctx, docs...)
		if err != nil {
			return n, fmt.Errorf("seed %s: %w", name, err)
		}
		n += len(inserted)
	}
	return n, nil
}

func resetWorld(ctx context.Context, db ports.Database) error {
	for _, name := range db.Names() {
		coll, _ := db.Collection(name)
		if err := coll.Clear(ctx); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

func seedCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo world into the document store",
		Long: `Load the demo world into the document store: players 5 (alice) and
6 (bob) with one room each, and administrator 9.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			if reset {
				if err := resetWorld(cmd.Context(), db); err != nil {
					return err
				}
			}
			n, err := seedWorld(cmd.Context(), db)
			if err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "cligate: seeded demo world", "documents", n, "store", a.storeSpec)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "clear every collection first")
	return cmd
}
