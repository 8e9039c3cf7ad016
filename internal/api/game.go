package api

import (
	"context"
	"net/url"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

func (c *Client) StartVote(ctx context.Context, roomID string, expedition []string) error {
	return c.apiPost(ctx, roomPath(roomID, "/start-vote"), nil, types.StartVoteRequest{Expedition: expedition}, nil)
}

func (c *Client) Vote(ctx context.Context, roomID, voter string, agree bool) error {
	return c.apiPost(ctx, roomPath(roomID, "/vote"), nil, types.VoteRequest{Voter: voter, Agree: &agree}, nil)
}

// Abstain casts an explicit abstention. It is never sent as agree:false,
// which the backend counts as a reject.
func (c *Client) Abstain(ctx context.Context, roomID, voter string) error {
	return c.apiPost(ctx, roomPath(roomID, "/vote"), nil, types.VoteRequest{Voter: voter, Abstain: true}, nil)
}

func (c *Client) VoteTimeUp(ctx context.Context, roomID string) error {
	return c.apiPost(ctx, roomPath(roomID, "/vote-timeup"), nil, nil, nil)
}

func (c *Client) VoteState(ctx context.Context, roomID, player string) (types.VoteState, error) {
	var out types.VoteState
	err := c.apiGet(ctx, roomPath(roomID, "/vote-state"), url.Values{"player": {player}}, &out)
	return out, err
}

func (c *Client) VoteResult(ctx context.Context, roomID string) (types.VoteResult, error) {
	var out types.VoteResult
	err := c.apiGet(ctx, roomPath(roomID, "/vote-result"), nil, &out)
	return out, err
}

func (c *Client) SubmitMissionCard(ctx context.Context, roomID, player string, card types.Card) error {
	return c.apiPost(ctx, roomPath(roomID, "/mission-result"), nil, types.MissionCardRequest{Player: player, Result: card}, nil)
}

func (c *Client) MissionState(ctx context.Context, roomID, player string) (types.MissionState, error) {
	var out types.MissionState
	err := c.apiGet(ctx, roomPath(roomID, "/mission-state"), url.Values{"player": {player}}, &out)
	return out, err
}

func (c *Client) SkillState(ctx context.Context, roomID string) (types.SkillState, error) {
	var out types.SkillState
	err := c.apiGet(ctx, roomPath(roomID, "/skill-state"), nil, &out)
	return out, err
}

// FinishSkills closes the skill window and advances the round. 409 means the
// mission hasn't been tallied yet.
func (c *Client) FinishSkills(ctx context.Context, roomID string) error {
	return c.apiPost(ctx, roomPath(roomID, "/skill-finish"), nil, nil, nil)
}

func (c *Client) skill(ctx context.Context, name, roomID, player, target string, out any) error {
	req := types.SkillRequest{RoomID: roomID, PlayerName: player, TargetName: target}
	return c.apiPost(ctx, "/api/skill/"+name, nil, req, out)
}

// LurkerToggle flips the target's submitted card.
func (c *Client) LurkerToggle(ctx context.Context, roomID, player, target string) (types.LurkerResult, error) {
	var out types.LurkerResult
	err := c.skill(ctx, "lurker-toggle", roomID, player, target, &out)
	return out, err
}

// CommanderCheck reveals the target's faction.
func (c *Client) CommanderCheck(ctx context.Context, roomID, player, target string) (types.CommanderResult, error) {
	var out types.CommanderResult
	err := c.skill(ctx, "commander-check", roomID, player, target, &out)
	return out, err
}

// SaboteurNullify removes the target's submitted card.
func (c *Client) SaboteurNullify(ctx context.Context, roomID, player, target string) (types.SaboteurResult, error) {
	var out types.SaboteurResult
	err := c.skill(ctx, "saboteur-nullify", roomID, player, target, &out)
	return out, err
}

func (c *Client) MedicProtect(ctx context.Context, roomID, player, target string) (types.MedicResult, error) {
	var out types.MedicResult
	err := c.skill(ctx, "medic-protect", roomID, player, target, &out)
	return out, err
}

func (c *Client) ShadowDisable(ctx context.Context, roomID, player, target string) (types.ShadowResult, error) {
	var out types.ShadowResult
	err := c.skill(ctx, "shadow-disable", roomID, player, target, &out)
	return out, err
}

// CivilianUltimate submits a good/evil guess for every other player. Final
// round only.
func (c *Client) CivilianUltimate(ctx context.Context, roomID, player string, guesses map[string]string) (types.UltimateResult, error) {
	var out types.UltimateResult
	req := types.UltimateRequest{RoomID: roomID, PlayerName: player, Guesses: guesses}
	err := c.apiPost(ctx, "/api/skill/civilian-ultimate", nil, req, &out)
	return out, err
}

func (c *Client) Record(ctx context.Context, roomID string) (types.GameRecord, error) {
	var out types.GameRecord
	err := c.apiGet(ctx, roomPath(roomID, "/record"), nil, &out)
	return out, err
}

// EndGame saves the record. A second call gets ErrConflict, which callers
// treat as already saved.
func (c *Client) EndGame(ctx context.Context, roomID, result string) (types.EndGameResponse, error) {
	var out types.EndGameResponse
	err := c.apiPost(ctx, roomPath(roomID, "/end-game"), url.Values{"result": {result}}, nil, &out)
	return out, err
}
