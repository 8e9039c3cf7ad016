package phase

import (
	"context"
	"errors"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

// GameEnd shows the final result and saves the record once per room. The
// broadcast payload, when there is one, stands in for the room if it is gone.
func (s *Session) GameEnd(ctx context.Context, roomID string, ended *types.GameEnd) (engine.Navigation, error) {
	exit := engine.Navigation{Page: engine.PageExit, RoomID: roomID}

	saved, err := s.Flags.RecordSaved(ctx, roomID)
	if err != nil {
		s.logger().Warn("record flag", zap.Error(err))
	}
	if saved {
		s.show(engine.PageGameEnd, "戰績已記錄")
		return exit, nil
	}

	rec, err := s.API.Record(ctx, roomID)
	if err == nil {
		s.renderResult(rec.Result, rec.SuccessCount, rec.FailCount)
		s.markSaved(ctx, roomID)
		return exit, nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		s.logger().Warn("record", zap.Error(err))
	}

	var success, fail int
	room, err := s.API.Room(ctx, roomID)
	switch {
	case err == nil:
		success, fail = room.SuccessCount, room.FailCount
	case ended != nil:
		success, fail = ended.Success, ended.Fail
	default:
		s.show(engine.PageGameEnd, "無法取得遊戲結果，請稍後再試")
		return exit, err
	}

	result := engine.GameResult(success, fail)
	s.renderResult(result, success, fail)

	if _, err := s.API.EndGame(ctx, roomID, result); err != nil && !errors.Is(err, api.ErrConflict) {
		s.logger().Warn("end game", zap.Error(err))
	}
	s.markSaved(ctx, roomID)
	return exit, nil
}

func (s *Session) markSaved(ctx context.Context, roomID string) {
	if err := s.Flags.MarkRecordSaved(ctx, roomID); err != nil {
		s.logger().Warn("store record flag", zap.Error(err))
	}
}

func (s *Session) renderResult(result string, success, fail int) {
	switch engine.WinnerOf(result) {
	case engine.WinnerGood:
		s.show(engine.PageGameEnd, "正方勝利！成功卡 %d，失敗卡 %d", success, fail)
		s.show(engine.PageGameEnd, "勝利方：正方")
	case engine.WinnerEvil:
		s.show(engine.PageGameEnd, "反方勝利！失敗卡 %d，成功卡 %d", fail, success)
		s.show(engine.PageGameEnd, "勝利方：反方")
	default:
		s.show(engine.PageGameEnd, "平手！成功 %d、失敗 %d", success, fail)
		s.show(engine.PageGameEnd, "勝利方：平手")
	}
}
