package api

import (
	"context"
	"net/url"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

func (c *Client) PlayerStats(ctx context.Context, player string) (types.PlayerStats, error) {
	var out types.PlayerStats
	err := c.apiGet(ctx, "/api/game-records/stats/"+url.PathEscape(player), nil, &out)
	return out, err
}

func (c *Client) PlayerRecords(ctx context.Context, player string) ([]types.GameRecord, error) {
	var out []types.GameRecord
	err := c.apiGet(ctx, "/api/game-records/player/"+url.PathEscape(player), nil, &out)
	return out, err
}

// Login and Register report failure in the body, not the status code.
func (c *Client) Login(ctx context.Context, username, password string) (types.Result, error) {
	var out types.Result
	err := c.apiPost(ctx, "/auth/do-login", nil, types.Credentials{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, username, password string) (types.Result, error) {
	var out types.Result
	err := c.apiPost(ctx, "/auth/do-register", nil, types.Credentials{Username: username, Password: password}, &out)
	return out, err
}

func (c *Client) PasswordHint(ctx context.Context, username string) (string, error) {
	var out types.PasswordHint
	err := c.apiGet(ctx, "/auth/password-hint", url.Values{"username": {username}}, &out)
	return out.Hint, err
}

func (c *Client) ChangePassword(ctx context.Context, username, newPassword string) error {
	return c.apiPost(ctx, "/auth/change-password", nil, types.ChangePasswordRequest{Username: username, NewPassword: newPassword}, nil)
}
