package pool

import (
	"context"
	"errors"
	"fmt"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ItemResult struct {
	CardID     int64  `json:"cardId"`
	CardNumber int    `json:"cardNumber,omitempty"`
	Success    bool   `json:"success"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
	Err        error  `json:"-"`
}

type BulkResult struct {
	Items     []ItemResult    `json:"items"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

func (r *BulkResult) add(cardID int64, card *model.CardInstance, err error) {
	item := ItemResult{CardID: cardID}
	if err != nil {
		item.Err = err
		item.Error = err.Error()
		r.Failed++
	} else {
		item.Success = true
		item.CardNumber = card.CardNumber
		item.Status = card.Status
		r.Succeeded++
	}
	r.Items = append(r.Items, item)
}

func playerLockKey(poolID, playerID int64) string {
	return fmt.Sprintf("bingo:lock:pool:%d:player:%d", poolID, playerID)
}

// Reserve holds one available card for a player, subject to the operator's
// per-player quota for the pool.
func (s *Service) Reserve(ctx context.Context, poolID, cardID, playerID int64) (*model.CardInstance, error) {
	result, err := s.ReserveMany(ctx, poolID, playerID, []int64{cardID})
	if err != nil {
		return nil, err
	}
	item := result.Items[0]
	if item.Err != nil {
		return nil, item.Err
	}
	return s.GetCard(ctx, cardID)
}

// ReserveMany reserves several cards for one player. The quota is checked for
// the whole request up front; afterwards each card succeeds or fails on its own.
func (s *Service) ReserveMany(ctx context.Context, poolID, playerID int64, cardIDs []int64) (*BulkResult, error) {
	ids, valid := dedupe(cardIDs)
	if valid == 0 {
		return nil, appErr.ErrInvalidCardIDs
	}

	pool, err := s.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if !pool.Generated {
		return nil, appErr.ErrPoolNotGenerated
	}
	player, err := s.dir.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.OperatorID != pool.OperatorID {
		return nil, appErr.ErrTenantMismatch
	}
	tenant, err := s.dir.Tenant(ctx, pool.OperatorID)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, appErr.ErrOperatorInactive
	}

	release, err := s.locker.Acquire(ctx, playerLockKey(poolID, playerID), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	held, err := s.countHeld(ctx, poolID, playerID)
	if err != nil {
		return nil, err
	}
	if int(held)+valid > tenant.MaxCardsPerPlayer {
		return nil, &appErr.QuotaError{
			Scope:     "player",
			Limit:     tenant.MaxCardsPerPlayer,
			Current:   int(held),
			Requested: valid,
		}
	}

	result := &BulkResult{Items: make([]ItemResult, 0, len(ids)), TotalCost: decimal.Zero}
	for _, id := range ids {
		if id <= 0 {
			result.add(id, nil, fmt.Errorf("%w: invalid id %d", appErr.ErrCardNotFound, id))
			continue
		}
		card, err := s.reserveOne(ctx, poolID, id, playerID)
		result.add(id, card, err)
	}

	logger.Log.Info("cards reserved",
		zap.Int64("pool_id", poolID),
		zap.Int64("player_id", playerID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *Service) reserveOne(ctx context.Context, poolID, cardID, playerID int64) (*model.CardInstance, error) {
	var card model.CardInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CardInstance{}).
			Where("id = ? AND pool_id = ? AND status IN ?", cardID, poolID, bingo.AllowedFrom(bingo.ActionReserve)).
			Updates(map[string]interface{}{
				"status":      string(bingo.StatusReserved),
				"player_id":   playerID,
				"reserved_at": s.now(),
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return refused(tx, poolID, cardID, bingo.ActionReserve)
		}
		return tx.First(&card, cardID).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Sell confirms the purchase of a reserved card at the pool's entry fee.
func (s *Service) Sell(ctx context.Context, cardID int64) (*model.CardInstance, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	pool, err := s.GetPool(ctx, card.PoolID)
	if err != nil {
		return nil, err
	}
	return s.sellOne(ctx, pool, cardID, nil)
}

// SellReserved confirms every card the player holds in the pool.
func (s *Service) SellReserved(ctx context.Context, poolID, playerID int64) (*BulkResult, error) {
	pool, err := s.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	var reserved []model.CardInstance
	if err := s.db.WithContext(ctx).
		Where("pool_id = ? AND player_id = ? AND status = ?", poolID, playerID, string(bingo.StatusReserved)).
		Order("card_number ASC").
		Find(&reserved).Error; err != nil {
		return nil, err
	}
	if len(reserved) == 0 {
		return nil, appErr.ErrNoReservedCards
	}

	result := &BulkResult{Items: make([]ItemResult, 0, len(reserved)), TotalCost: decimal.Zero}
	for _, r := range reserved {
		card, err := s.sellOne(ctx, pool, r.ID, &playerID)
		result.add(r.ID, card, err)
		if err == nil {
			result.TotalCost = result.TotalCost.Add(card.PurchasePrice)
		}
	}

	logger.Log.Info("reserved cards sold",
		zap.Int64("pool_id", poolID),
		zap.Int64("player_id", playerID),
		zap.Int("sold", result.Succeeded),
		zap.String("total_cost", result.TotalCost.StringFixed(2)))
	return result, nil
}

func (s *Service) sellOne(ctx context.Context, pool *model.CardPool, cardID int64, playerID *int64) (*model.CardInstance, error) {
	var card model.CardInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.CardInstance{}).
			Where("id = ? AND pool_id = ? AND status IN ?", cardID, pool.ID, bingo.AllowedFrom(bingo.ActionSell))
		if playerID != nil {
			q = q.Where("player_id = ?", *playerID)
		}
		res := q.Updates(map[string]interface{}{
			"status":         string(bingo.StatusSold),
			"purchase_price": pool.EntryFee,
			"purchased_at":   s.now(),
			"version":        gorm.Expr("version + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return refused(tx, pool.ID, cardID, bingo.ActionSell)
		}
		return tx.First(&card, cardID).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Release returns a card to the available state and clears its holder.
func (s *Service) Release(ctx context.Context, cardID int64) (*model.CardInstance, error) {
	return s.apply(ctx, cardID, bingo.ActionRelease, map[string]interface{}{
		"status":      string(bingo.StatusAvailable),
		"player_id":   nil,
		"reserved_at": nil,
	})
}

// Cancel withdraws an unsold card from play.
func (s *Service) Cancel(ctx context.Context, cardID int64) (*model.CardInstance, error) {
	return s.apply(ctx, cardID, bingo.ActionCancel, map[string]interface{}{
		"status": string(bingo.StatusCancelled),
	})
}

func (s *Service) apply(ctx context.Context, cardID int64, action bingo.Action, updates map[string]interface{}) (*model.CardInstance, error) {
	current, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	updates["version"] = gorm.Expr("version + 1")

	var card model.CardInstance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CardInstance{}).
			Where("id = ? AND status IN ?", cardID, bingo.AllowedFrom(action)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return refused(tx, current.PoolID, cardID, action)
		}
		return tx.First(&card, cardID).Error
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// refused reports why a compare-and-swap update matched no row.
func refused(tx *gorm.DB, poolID, cardID int64, action bingo.Action) error {
	var card model.CardInstance
	if err := tx.Where("id = ? AND pool_id = ?", cardID, poolID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.ErrCardNotFound
		}
		return err
	}
	return bingo.TransitionError(card.ID, action, bingo.CardStatus(card.Status))
}

func (s *Service) GetCard(ctx context.Context, id int64) (*model.CardInstance, error) {
	var card model.CardInstance
	if err := s.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *Service) countHeld(ctx context.Context, poolID, playerID int64) (int64, error) {
	var held int64
	err := s.db.WithContext(ctx).
		Model(&model.CardInstance{}).
		Where("pool_id = ? AND player_id = ? AND status IN ?", poolID, playerID,
			[]string{string(bingo.StatusReserved), string(bingo.StatusSold)}).
		Count(&held).Error
	return held, err
}

// dedupe drops repeated ids but keeps non-positive ones so they are reported
// back as failed items. valid counts the positive ids.
func dedupe(ids []int64) (out []int64, valid int) {
	seen := make(map[int64]bool, len(ids))
	out = make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if id > 0 {
			valid++
		}
	}
	return out, valid
}
