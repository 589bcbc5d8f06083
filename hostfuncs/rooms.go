package hostfuncs

import (
	"context"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
)

// Room status values written by the map module.
const (
	RoomStatusNormal       = "normal"
	RoomStatusOutOfBorders = "out of borders"
)

func mapHandlers(db ports.Database) map[string]ByteHandler {
	return map[string]ByteHandler{
		"map.openRoom": NewJSONHandler(func(ctx context.Context, args Args) (entities.UpdateResult, error) {
			return setRoomStatus(ctx, db, args, RoomStatusNormal)
		}),
		"map.closeRoom": NewJSONHandler(func(ctx context.Context, args Args) (entities.UpdateResult, error) {
			return setRoomStatus(ctx, db, args, RoomStatusOutOfBorders)
		}),
	}
}

func setRoomStatus(ctx context.Context, db ports.Database, args Args, status string) (entities.UpdateResult, error) {
	room, err := args.String(0)
	if err != nil {
		return entities.UpdateResult{}, err
	}
	if room == "" {
		return entities.UpdateResult{}, &ArgumentError{Index: 0, Reason: "room name expected"}
	}
	rooms, ok := db.Collection(entities.CollectionRooms)
	if !ok {
		return entities.UpdateResult{}, fmt.Errorf("collection %s: %w", entities.CollectionRooms, ErrNotFound)
	}
	res, err := rooms.Update(ctx,
		entities.Query{entities.FieldID: room},
		entities.UpdateDoc{"$set": map[string]any{"status": status}},
		nil)
	if err != nil {
		return entities.UpdateResult{}, err
	}
	if res.N == 0 {
		return res, fmt.Errorf("room %s: %w", room, ErrNotFound)
	}
	return res, nil
}
