package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/repo"
	"bingo-service/internal/service/operator"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ScopeSession = "session"
	ScopePack    = "pack"
)

type Config struct {
	LockTTL   time.Duration
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		LockTTL:   10 * time.Second,
		BatchSize: 100,
	}
}

// Directory is the tenant collaborator: operator quotas and player identity.
type Directory interface {
	Tenant(ctx context.Context, operatorID int64) (*operator.Tenant, error)
	GetPlayer(ctx context.Context, playerID int64) (*model.Player, error)
}

// LayoutGenerator produces one fresh card layout; *bingo.Generator is the
// production implementation.
type LayoutGenerator interface {
	Generate(format bingo.Format) (bingo.Layout, error)
}

type Service struct {
	db     *gorm.DB
	gen    LayoutGenerator
	dir    Directory
	locker repo.Locker
	cfg    Config
	flight singleflight.Group
	now    func() time.Time
}

func NewService(db *gorm.DB, gen LayoutGenerator, dir Directory, locker repo.Locker, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}
	return &Service{
		db:     db,
		gen:    gen,
		dir:    dir,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

type CreatePoolParams struct {
	OperatorID     int64
	Scope          string
	Name           string
	Format         string
	TargetCapacity int
	ReuseAllowed   bool
	EntryFee       decimal.Decimal
	// PatternCodes must already be validated for Format; they are stored as given.
	PatternCodes []string
}

type GenerateResult struct {
	PoolID           int64  `json:"poolId"`
	Created          int    `json:"created"`
	Total            int64  `json:"total"`
	AlreadyGenerated bool   `json:"alreadyGenerated"`
	Notice           string `json:"notice,omitempty"` // explains a no-op call, not an error
}

type ReuseRequest struct {
	SourcePoolID int64
	DestPoolID   int64
}

func (s *Service) CreatePool(ctx context.Context, params CreatePoolParams) (*model.CardPool, error) {
	format, err := bingo.ParseFormat(params.Format)
	if err != nil {
		return nil, err
	}
	scope := strings.ToLower(strings.TrimSpace(params.Scope))
	if scope == "" {
		scope = ScopeSession
	}
	if scope != ScopeSession && scope != ScopePack {
		return nil, fmt.Errorf("%w: scope must be session or pack", appErr.ErrInvalidPool)
	}
	if params.TargetCapacity <= 0 {
		return nil, fmt.Errorf("%w: target capacity must be positive", appErr.ErrInvalidPool)
	}
	if params.EntryFee.IsNegative() {
		return nil, fmt.Errorf("%w: entry fee cannot be negative", appErr.ErrInvalidPool)
	}

	tenant, err := s.dir.Tenant(ctx, params.OperatorID)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, appErr.ErrOperatorInactive
	}
	if !tenant.Allows(format) {
		return nil, fmt.Errorf("%w: %s", appErr.ErrFormatNotAllowed, format)
	}
	if params.TargetCapacity > tenant.MaxCardsPerPool {
		return nil, &appErr.QuotaError{Scope: "pool", Limit: tenant.MaxCardsPerPool, Requested: params.TargetCapacity}
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = fmt.Sprintf("%s-ball %s", format, scope)
	}

	pool := model.CardPool{
		OperatorID:     params.OperatorID,
		Scope:          scope,
		Name:           name,
		Format:         string(format),
		TargetCapacity: params.TargetCapacity,
		ReuseAllowed:   params.ReuseAllowed,
		EntryFee:       params.EntryFee,
	}
	if len(params.PatternCodes) > 0 {
		raw, err := json.Marshal(params.PatternCodes)
		if err != nil {
			return nil, err
		}
		pool.PatternCodesJSON = raw
	}
	if err := s.db.WithContext(ctx).Create(&pool).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

func (s *Service) GetPool(ctx context.Context, id int64) (*model.CardPool, error) {
	var pool model.CardPool
	if err := s.db.WithContext(ctx).First(&pool, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// GenerateCards fills the pool with TargetCapacity fresh cards numbered 1..N.
// It runs at most once per pool; later calls report AlreadyGenerated.
func (s *Service) GenerateCards(ctx context.Context, poolID int64) (*GenerateResult, error) {
	v, err, _ := s.flight.Do(flightKey("generate", poolID), func() (interface{}, error) {
		return s.generateCards(ctx, poolID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*GenerateResult), nil
}

func (s *Service) generateCards(ctx context.Context, poolID int64) (*GenerateResult, error) {
	result := &GenerateResult{PoolID: poolID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := lockPool(tx, poolID)
		if err != nil {
			return err
		}
		if pool.Generated {
			result.AlreadyGenerated = true
			result.Notice = appErr.ErrPoolAlreadyGenerated.Error()
			return tx.Model(&model.CardInstance{}).Where("pool_id = ?", poolID).Count(&result.Total).Error
		}

		format, err := bingo.ParseFormat(pool.Format)
		if err != nil {
			return err
		}

		cards := make([]model.CardInstance, 0, pool.TargetCapacity)
		for i := 1; i <= pool.TargetCapacity; i++ {
			layout, err := s.gen.Generate(format)
			if err != nil {
				logger.Log.Error("card generation failed",
					zap.Int64("pool_id", poolID),
					zap.String("format", string(format)),
					zap.Error(err))
				return err
			}
			if res := bingo.Validate(layout); !res.IsValid {
				logger.Log.Error("generator produced an invalid layout",
					zap.Int64("pool_id", poolID),
					zap.Strings("errors", res.Errors))
				return fmt.Errorf("%w: %s", appErr.ErrGenerationExhausted, strings.Join(res.Errors, "; "))
			}
			card, err := newCard(pool.ID, i, layout.Format, layout.Grid)
			if err != nil {
				return err
			}
			cards = append(cards, card)
		}

		if err := tx.CreateInBatches(cards, s.cfg.BatchSize).Error; err != nil {
			return err
		}
		if err := tx.Model(pool).Updates(map[string]interface{}{
			"generated":    true,
			"generated_at": s.now(),
		}).Error; err != nil {
			return err
		}

		result.Created = len(cards)
		result.Total = int64(len(cards))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyGenerated {
		logger.Log.Info("pool cards generated",
			zap.Int64("pool_id", poolID),
			zap.Int("cards", result.Created))
	}
	return result, nil
}

// ReuseCards clones every card of the source pool, cell for cell and in
// card-number order, into an empty destination pool that allows reuse.
func (s *Service) ReuseCards(ctx context.Context, req ReuseRequest) (*GenerateResult, error) {
	if req.SourcePoolID == req.DestPoolID {
		return nil, fmt.Errorf("%w: source and destination are the same pool", appErr.ErrInvalidPool)
	}
	dest, err := s.GetPool(ctx, req.DestPoolID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.dir.Tenant(ctx, dest.OperatorID)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.flight.Do(flightKey("reuse", req.DestPoolID), func() (interface{}, error) {
		return s.reuseCards(ctx, req, tenant)
	})
	if err != nil {
		return nil, err
	}
	return v.(*GenerateResult), nil
}

func (s *Service) reuseCards(ctx context.Context, req ReuseRequest, tenant *operator.Tenant) (*GenerateResult, error) {
	result := &GenerateResult{PoolID: req.DestPoolID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dest, err := lockPool(tx, req.DestPoolID)
		if err != nil {
			return err
		}
		var source model.CardPool
		if err := tx.First(&source, req.SourcePoolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrPoolNotFound
			}
			return err
		}

		if source.OperatorID != dest.OperatorID {
			return appErr.ErrTenantMismatch
		}
		if source.Format != dest.Format {
			return fmt.Errorf("%w: %s vs %s", appErr.ErrFormatMismatch, source.Format, dest.Format)
		}
		if !dest.ReuseAllowed {
			return appErr.ErrReuseNotAllowed
		}
		if dest.Generated {
			result.AlreadyGenerated = true
			result.Notice = appErr.ErrPoolAlreadyGenerated.Error()
			return tx.Model(&model.CardInstance{}).Where("pool_id = ?", dest.ID).Count(&result.Total).Error
		}
		if !source.Generated {
			return appErr.ErrPoolNotGenerated
		}

		var originals []model.CardInstance
		if err := tx.Where("pool_id = ?", source.ID).Order("card_number ASC").Find(&originals).Error; err != nil {
			return err
		}
		if len(originals) == 0 {
			return appErr.ErrPoolNotGenerated
		}
		if len(originals) > tenant.MaxCardsPerPool {
			return &appErr.QuotaError{Scope: "pool", Limit: tenant.MaxCardsPerPool, Requested: len(originals)}
		}

		clones := make([]model.CardInstance, 0, len(originals))
		for _, original := range originals {
			layout, err := Layout(&original)
			if err != nil {
				return err
			}
			if res := bingo.Validate(layout); !res.IsValid {
				return fmt.Errorf("%w: card %d: %s", appErr.ErrInvalidLayout, original.ID, strings.Join(res.Errors, "; "))
			}
			clone, err := newCard(dest.ID, original.CardNumber, layout.Format, layout.Grid)
			if err != nil {
				return err
			}
			sourceID := original.ID
			clone.ReusedFromID = &sourceID
			clones = append(clones, clone)
		}

		if err := tx.CreateInBatches(clones, s.cfg.BatchSize).Error; err != nil {
			return err
		}
		if err := tx.Model(dest).Updates(map[string]interface{}{
			"generated":       true,
			"generated_at":    s.now(),
			"source_pool_id":  source.ID,
			"target_capacity": len(clones),
		}).Error; err != nil {
			return err
		}

		result.Created = len(clones)
		result.Total = int64(len(clones))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func lockPool(tx *gorm.DB, poolID int64) (*model.CardPool, error) {
	var pool model.CardPool
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pool, poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	return &pool, nil
}

func newCard(poolID int64, number int, format bingo.Format, grid bingo.Grid) (model.CardInstance, error) {
	raw, err := json.Marshal(grid)
	if err != nil {
		return model.CardInstance{}, err
	}
	return model.CardInstance{
		PoolID:      poolID,
		CardNumber:  number,
		Serial:      uuid.NewString(),
		Format:      string(format),
		NumbersJSON: raw,
		Status:      string(bingo.StatusAvailable),
	}, nil
}

// flightKey scopes in-flight deduplication by operation so a generate call
// never receives the result of a concurrent reuse on the same pool.
func flightKey(op string, poolID int64) string {
	return op + ":pool:" + strconv.FormatInt(poolID, 10)
}

// Layout decodes the stored grid of a card.
func Layout(card *model.CardInstance) (bingo.Layout, error) {
	format, err := bingo.ParseFormat(card.Format)
	if err != nil {
		return bingo.Layout{}, err
	}
	grid, err := bingo.DecodeGrid(card.NumbersJSON)
	if err != nil {
		return bingo.Layout{}, fmt.Errorf("card %d: %w", card.ID, err)
	}
	return bingo.Layout{Format: format, Grid: grid}, nil
}

// PatternCodes returns the pattern codes configured on a pool, possibly none.
func PatternCodes(pool *model.CardPool) ([]string, error) {
	if len(pool.PatternCodesJSON) == 0 {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal(pool.PatternCodesJSON, &codes); err != nil {
		return nil, fmt.Errorf("decode pattern codes of pool %d: %w", pool.ID, err)
	}
	return codes, nil
}
