package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "flags.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetUpsert(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "session", "player")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "session", "player", "amy"))
	require.NoError(t, s.Set(ctx, "session", "player", "bob"))

	v, ok, err := s.Get(ctx, "session", "player")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	flags, err := s.Scope(ctx, "session")
	require.NoError(t, err)
	assert.Len(t, flags, 1, "upsert must not duplicate rows")
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	s := openTemp(t)
	assert.ErrorIs(t, s.Set(context.Background(), "", "x", "1"), ErrEmptyKey)
	assert.ErrorIs(t, s.Set(context.Background(), "session", "", "1"), ErrEmptyKey)
}

func TestStore_ConsumeReadsOnce(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	ok, err := s.ConsumeSkipMission(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SkipMission(ctx, "r1"))
	ok, err = s.ConsumeSkipMission(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeSkipMission(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RoomFlagsAreScoped(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SetPlayer(ctx, "amy"))
	require.NoError(t, s.SetRole(ctx, "r1", "醫護兵"))
	require.NoError(t, s.SetAvatar(ctx, "r1", "cat.png"))
	require.NoError(t, s.SetRoomName(ctx, "r1", "fun房間"))
	require.NoError(t, s.MarkRecordSaved(ctx, "r1"))

	role, err := s.Role(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, role)

	role, err = s.Role(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "醫護兵", role)

	avatar, err := s.Avatar(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", avatar)

	name, err := s.RoomName(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "fun房間", name)

	saved, err := s.RecordSaved(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, saved)

	require.NoError(t, s.ForgetRoom(ctx, "r1"))
	saved, err = s.RecordSaved(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, saved)

	player, err := s.Player(ctx)
	require.NoError(t, err)
	assert.Equal(t, "amy", player, "session scope survives ForgetRoom")
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("  ", nil)
	assert.Error(t, err)
}
