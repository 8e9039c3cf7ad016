package tracker

import (
	"context"
	"strings"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

type RoomGetter interface {
	Room(ctx context.Context, roomID string) (types.Room, error)
}

type RoomLister interface {
	Rooms(ctx context.Context) ([]types.Room, error)
}

// RoomFetcher tracks one waiting room.
func RoomFetcher(c RoomGetter, roomID string) Fetcher[types.Room] {
	return func(ctx context.Context) (types.Room, error) {
		return c.Room(ctx, roomID)
	}
}

// LobbyFetcher tracks the lobby list. Private rooms are joined by link only
// and never listed.
func LobbyFetcher(c RoomLister) Fetcher[[]types.Room] {
	return func(ctx context.Context) ([]types.Room, error) {
		rooms, err := c.Rooms(ctx)
		if err != nil {
			return nil, err
		}
		return PublicRooms(rooms), nil
	}
}

func PublicRooms(rooms []types.Room) []types.Room {
	out := make([]types.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.RoomType == types.RoomPrivate {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByName keeps rooms whose name contains query, ignoring case.
func FilterByName(rooms []types.Room, query string) []types.Room {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rooms
	}
	out := make([]types.Room, 0, len(rooms))
	for _, r := range rooms {
		if strings.Contains(strings.ToLower(r.RoomName), q) {
			out = append(out, r)
		}
	}
	return out
}
