package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/repo"
	"bingo-service/internal/service/pattern"
	"bingo-service/internal/service/pool"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/logger"
	"bingo-service/pkg/utils/random"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const codeAttempts = 5

type Config struct {
	LockTTL    time.Duration
	CodeLength int
}

func DefaultConfig() Config {
	return Config{LockTTL: 10 * time.Second, CodeLength: 8}
}

// Service runs draws for games played against a generated card pool.
type Service struct {
	db       *gorm.DB
	engine   *bingo.DrawEngine
	locker   repo.Locker
	patterns *pattern.Service
	codes    random.Source
	cfg      Config
	now      func() time.Time
}

func NewService(db *gorm.DB, engine *bingo.DrawEngine, locker repo.Locker, patterns *pattern.Service, cfg Config) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultConfig().CodeLength
	}
	return &Service{
		db:       db,
		engine:   engine,
		locker:   locker,
		patterns: patterns,
		codes:    random.NewSource(),
		cfg:      cfg,
		now:      time.Now,
	}
}

type DrawResult struct {
	GameID     int64  `json:"gameId"`
	Number     int    `json:"number"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	Sequence   int    `json:"sequence"`
	BallsDrawn int    `json:"ballsDrawn"`
	Remaining  int    `json:"remaining"`
	Completed  bool   `json:"completed"`
}

type Winner struct {
	CardID          int64    `json:"cardId"`
	CardNumber      int      `json:"cardNumber"`
	PlayerID        *int64   `json:"playerId,omitempty"`
	Patterns        []string `json:"patterns"`
	PrizeMultiplier float64  `json:"prizeMultiplier"`
	Jackpot         bool     `json:"jackpot"`
}

type SweepResult struct {
	GameID     int64    `json:"gameId"`
	BallsDrawn int      `json:"ballsDrawn"`
	Checked    int      `json:"checked"`
	Winners    []Winner `json:"winners"`
}

func (s *Service) CreateGame(ctx context.Context, poolID int64) (*model.Game, error) {
	var target model.CardPool
	if err := s.db.WithContext(ctx).First(&target, poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	if !target.Generated {
		return nil, appErr.ErrPoolNotGenerated
	}

	var lastErr error
	for i := 0; i < codeAttempts; i++ {
		game := model.Game{
			OperatorID: target.OperatorID,
			PoolID:     target.ID,
			Code:       random.Code(s.codes, s.cfg.CodeLength),
			Format:     target.Format,
			Status:     StatusActive,
		}
		err := s.db.WithContext(ctx).Create(&game).Error
		if err == nil {
			logger.Log.Info("game created",
				zap.Int64("game_id", game.ID),
				zap.Int64("pool_id", poolID),
				zap.String("code", game.Code))
			return &game, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("allocate game code: %w", lastErr)
}

func (s *Service) GetGame(ctx context.Context, id int64) (*model.Game, error) {
	var game model.Game
	if err := s.db.WithContext(ctx).First(&game, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func drawLockKey(gameID int64) string {
	return fmt.Sprintf("bingo:lock:game:%d:draw", gameID)
}

// DrawBall draws the next number. Draws for one game are serialized; the game
// completes with its last ball and further draws return ErrDrawExhausted.
func (s *Service) DrawBall(ctx context.Context, gameID int64) (*DrawResult, error) {
	release, err := s.locker.Acquire(ctx, drawLockKey(gameID), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *DrawResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game model.Game
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&game, gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrGameNotFound
			}
			return err
		}
		if game.Status == StatusCompleted {
			return appErr.ErrDrawExhausted
		}
		format, err := bingo.ParseFormat(game.Format)
		if err != nil {
			return err
		}

		drawn, err := drawnNumbers(tx, gameID)
		if err != nil {
			return err
		}
		number, err := s.engine.Draw(format, drawn)
		if err != nil {
			return err
		}

		now := s.now()
		ball := model.DrawnBall{
			GameID:   gameID,
			Number:   number,
			Sequence: len(drawn) + 1,
			DrawnAt:  now,
		}
		if err := tx.Create(&ball).Error; err != nil {
			return err
		}

		remaining := format.MaxBall() - ball.Sequence
		updates := map[string]interface{}{"balls_drawn": ball.Sequence}
		if remaining == 0 {
			updates["status"] = StatusCompleted
			updates["completed_at"] = now
		}
		if err := tx.Model(&game).Updates(updates).Error; err != nil {
			return err
		}

		result = &DrawResult{
			GameID:     gameID,
			Number:     number,
			Label:      bingo.BallLabel(format, number),
			Color:      bingo.BallColor(format, number),
			Sequence:   ball.Sequence,
			BallsDrawn: ball.Sequence,
			Remaining:  remaining,
			Completed:  remaining == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Completed {
		logger.Log.Info("game draw exhausted",
			zap.Int64("game_id", gameID),
			zap.Int("balls", result.BallsDrawn))
	}
	return result, nil
}

func (s *Service) ListBalls(ctx context.Context, gameID int64) ([]model.DrawnBall, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	var balls []model.DrawnBall
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("sequence ASC").Find(&balls).Error; err != nil {
		return nil, err
	}
	return balls, nil
}

// CheckAllCards evaluates the sold cards of the game's pool that have not won
// yet against the balls drawn so far, and records the new wins.
func (s *Service) CheckAllCards(ctx context.Context, gameID int64, mode bingo.CheckMode) (*SweepResult, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var target model.CardPool
	if err := s.db.WithContext(ctx).First(&target, game.PoolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	patterns, err := s.patterns.PoolPatterns(ctx, &target)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = bingo.CheckAll
	}

	result := &SweepResult{GameID: gameID, Winners: []Winner{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		drawn, err := drawnNumbers(tx, gameID)
		if err != nil {
			return err
		}
		result.BallsDrawn = len(drawn)

		var cards []model.CardInstance
		if err := tx.Where("pool_id = ? AND status = ? AND is_winner = ?", target.ID, string(bingo.StatusSold), false).
			Order("card_number ASC").
			Find(&cards).Error; err != nil {
			return err
		}

		for i := range cards {
			card := &cards[i]
			layout, err := pool.Layout(card)
			if err != nil {
				return err
			}
			result.Checked++
			check := bingo.CheckCard(patterns, layout, drawn, len(drawn), mode)
			if !check.IsWinner {
				continue
			}
			if err := pattern.RecordWin(tx, card, check); err != nil {
				return err
			}
			result.Winners = append(result.Winners, Winner{
				CardID:          card.ID,
				CardNumber:      card.CardNumber,
				PlayerID:        card.PlayerID,
				Patterns:        check.WinningPatterns,
				PrizeMultiplier: check.TotalMultiplier,
				Jackpot:         check.JackpotWon,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("game cards checked",
		zap.Int64("game_id", gameID),
		zap.Int("balls", result.BallsDrawn),
		zap.Int("checked", result.Checked),
		zap.Int("winners", len(result.Winners)))
	return result, nil
}

// CheckCardInGame runs the built-in lines on one card of the game's pool.
func (s *Service) CheckCardInGame(ctx context.Context, gameID, cardID int64) (*bingo.WinnerResult, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var card model.CardInstance
	if err := s.db.WithContext(ctx).Where("id = ? AND pool_id = ?", cardID, game.PoolID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrCardNotFound
		}
		return nil, err
	}
	layout, err := pool.Layout(&card)
	if err != nil {
		return nil, err
	}
	drawn, err := drawnNumbers(s.db.WithContext(ctx), gameID)
	if err != nil {
		return nil, err
	}
	result := bingo.CheckWinner(layout, drawn)
	return &result, nil
}

func drawnNumbers(tx *gorm.DB, gameID int64) (bingo.NumberSet, error) {
	var numbers []int
	if err := tx.Model(&model.DrawnBall{}).Where("game_id = ?", gameID).Pluck("number", &numbers).Error; err != nil {
		return nil, err
	}
	return bingo.NewNumberSet(numbers...), nil
}
