package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

// Rooms lists rooms that haven't started yet.
func (c *Client) Rooms(ctx context.Context) ([]types.Room, error) {
	var out []types.Room
	err := c.apiGet(ctx, "/api/rooms", nil, &out)
	return out, err
}

func (c *Client) Room(ctx context.Context, roomID string) (types.Room, error) {
	var out types.Room
	err := c.apiGet(ctx, roomPath(roomID, ""), nil, &out)
	return out, err
}

// CreateRoom creates a room hosted by player. The backend appends 房間 to
// the name.
func (c *Client) CreateRoom(ctx context.Context, player string, req types.CreateRoomRequest) (types.Room, error) {
	if req.RoomType != types.RoomPrivate {
		req.RoomPassword = ""
	}
	var out types.Room
	err := c.apiPost(ctx, "/api/create-room", url.Values{"playerName": {player}}, req, &out)
	return out, err
}

func (c *Client) JoinRoom(ctx context.Context, roomID, player, password string) (types.Result, error) {
	q := url.Values{"roomId": {roomID}, "playerName": {player}}
	if password != "" {
		q.Set("roomPassword", password)
	}
	var out types.Result
	err := c.apiPost(ctx, "/api/join-room", q, nil, &out)
	return out, err
}

func (c *Client) ExitRoom(ctx context.Context, roomID, player string) (types.Result, error) {
	var out types.Result
	err := c.apiPost(ctx, "/api/exit-room", url.Values{"roomId": {roomID}, "playerName": {player}}, nil, &out)
	return out, err
}

// StartGame is host only; the backend broadcasts startGame on success.
func (c *Client) StartGame(ctx context.Context, roomID, player string) (types.Result, error) {
	var out types.Result
	err := c.apiPost(ctx, "/api/start-game", url.Values{"roomId": {roomID}, "playerName": {player}}, nil, &out)
	return out, err
}

// StartRealGame asks the backend to deal roles. Every client races to call
// it; the losers get 409 with the roles already dealt, which is returned
// here as success.
func (c *Client) StartRealGame(ctx context.Context, roomID, player string) (map[string]types.RoleInfo, error) {
	var out map[string]types.RoleInfo
	err := c.apiPost(ctx, "/api/start-real-game", url.Values{"roomId": {roomID}, "playerName": {player}}, nil, &out)
	var se *StatusError
	if errors.As(err, &se) && errors.Is(err, ErrConflict) {
		out = nil
		_ = json.Unmarshal([]byte(se.Body), &out)
		return out, nil
	}
	return out, err
}

func (c *Client) SelectAvatar(ctx context.Context, roomID, player, avatar string) error {
	return c.apiPost(ctx, roomPath(roomID, "/select-avatar"), nil, types.AvatarRequest{PlayerName: player, Avatar: avatar}, nil)
}

func (c *Client) AssignRoles(ctx context.Context, roomID string) (types.Roles, error) {
	var out types.Roles
	err := c.apiPost(ctx, roomPath(roomID, "/assign-roles"), nil, nil, &out)
	return out, err
}

// Players returns only players who have picked an avatar.
func (c *Client) Players(ctx context.Context, roomID string) ([]types.Player, error) {
	var out []types.Player
	err := c.apiGet(ctx, roomPath(roomID, "/players"), nil, &out)
	return out, err
}

func (c *Client) Roles(ctx context.Context, roomID string) (types.Roles, error) {
	var out types.Roles
	err := c.apiGet(ctx, roomPath(roomID, "/roles"), nil, &out)
	return out, err
}
