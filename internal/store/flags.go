package store

import "context"

const (
	scopeSession = "session"

	flagPlayer      = "player"
	flagAvatar      = "avatar"
	flagRole        = "role"
	flagRoomName    = "roomName"
	flagRecordSaved = "recordSaved"
	flagSkipMission = "skipMission"
)

func roomScope(roomID string) string { return "room:" + roomID }

func (s *Store) Player(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, scopeSession, flagPlayer)
	return v, err
}

func (s *Store) SetPlayer(ctx context.Context, name string) error {
	return s.Set(ctx, scopeSession, flagPlayer, name)
}

func (s *Store) Avatar(ctx context.Context, roomID string) (string, error) {
	v, _, err := s.Get(ctx, roomScope(roomID), flagAvatar)
	return v, err
}

func (s *Store) SetAvatar(ctx context.Context, roomID, avatar string) error {
	return s.Set(ctx, roomScope(roomID), flagAvatar, avatar)
}

func (s *Store) Role(ctx context.Context, roomID string) (string, error) {
	v, _, err := s.Get(ctx, roomScope(roomID), flagRole)
	return v, err
}

func (s *Store) SetRole(ctx context.Context, roomID, role string) error {
	return s.Set(ctx, roomScope(roomID), flagRole, role)
}

func (s *Store) RoomName(ctx context.Context, roomID string) (string, error) {
	v, _, err := s.Get(ctx, roomScope(roomID), flagRoomName)
	return v, err
}

func (s *Store) SetRoomName(ctx context.Context, roomID, name string) error {
	return s.Set(ctx, roomScope(roomID), flagRoomName, name)
}

func (s *Store) RecordSaved(ctx context.Context, roomID string) (bool, error) {
	_, ok, err := s.Get(ctx, roomScope(roomID), flagRecordSaved)
	return ok, err
}

func (s *Store) MarkRecordSaved(ctx context.Context, roomID string) error {
	return s.Set(ctx, roomScope(roomID), flagRecordSaved, "true")
}

// SkipMission is set after a failed vote so the next front page does not
// show the previous round's mission result again.
func (s *Store) SkipMission(ctx context.Context, roomID string) error {
	return s.Set(ctx, roomScope(roomID), flagSkipMission, "true")
}

func (s *Store) ConsumeSkipMission(ctx context.Context, roomID string) (bool, error) {
	_, ok, err := s.Consume(ctx, roomScope(roomID), flagSkipMission)
	return ok, err
}

// ForgetRoom drops every flag kept for roomID.
func (s *Store) ForgetRoom(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Where("scope = ?", roomScope(roomID)).Delete(&Flag{}).Error
}
