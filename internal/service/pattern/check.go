package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/service/pool"
	appErr "bingo-service/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CheckCardRequest struct {
	CardID int64
	Drawn  []int
	// BallsDrawn defaults to len(Drawn) when zero.
	BallsDrawn int
	Mode       bingo.CheckMode
}

type CheckCardResult struct {
	CardID int64 `json:"cardId"`
	bingo.CardCheck
	Recorded bool `json:"recorded"`
}

// CheckCard evaluates a card against its pool's patterns. Wins on sold cards
// are recorded on the card.
func (s *Service) CheckCard(ctx context.Context, req CheckCardRequest) (*CheckCardResult, error) {
	var card model.CardInstance
	if err := s.db.WithContext(ctx).First(&card, req.CardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrCardNotFound
		}
		return nil, err
	}
	var owner model.CardPool
	if err := s.db.WithContext(ctx).First(&owner, card.PoolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	patterns, err := s.PoolPatterns(ctx, &owner)
	if err != nil {
		return nil, err
	}
	layout, err := pool.Layout(&card)
	if err != nil {
		return nil, err
	}

	balls := req.BallsDrawn
	if balls == 0 {
		balls = len(req.Drawn)
	}
	mode := req.Mode
	if mode == "" {
		mode = bingo.CheckFirstMatch
	}

	check := bingo.CheckCard(patterns, layout, bingo.NewNumberSet(req.Drawn...), balls, mode)
	result := &CheckCardResult{CardID: card.ID, CardCheck: check}
	if check.IsWinner && card.Status == string(bingo.StatusSold) {
		if err := RecordWin(s.db.WithContext(ctx), &card, check); err != nil {
			return nil, err
		}
		result.Recorded = true
	}
	return result, nil
}

// RecordWin merges newly matched pattern codes into the card. A code already
// on the card adds nothing, so repeated checks are idempotent.
func RecordWin(tx *gorm.DB, card *model.CardInstance, check bingo.CardCheck) error {
	var codes []string
	if len(card.WinningPatternsJSON) > 0 {
		if err := json.Unmarshal(card.WinningPatternsJSON, &codes); err != nil {
			return fmt.Errorf("decode winning patterns of card %d: %w", card.ID, err)
		}
	}
	have := make(map[string]bool, len(codes))
	for _, c := range codes {
		have[c] = true
	}

	multiplier := card.PrizeMultiplier
	added := false
	for _, m := range check.Matches {
		if have[m.PatternCode] {
			continue
		}
		have[m.PatternCode] = true
		codes = append(codes, m.PatternCode)
		multiplier += m.PrizeMultiplier
		added = true
	}
	if !added {
		return nil
	}

	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	if err := tx.Model(&model.CardInstance{}).Where("id = ?", card.ID).Updates(map[string]interface{}{
		"is_winner":             true,
		"winning_patterns_json": datatypes.JSON(raw),
		"prize_multiplier":      multiplier,
	}).Error; err != nil {
		return err
	}
	card.IsWinner = true
	card.WinningPatternsJSON = raw
	card.PrizeMultiplier = multiplier
	return nil
}
