package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CardFilter struct {
	PoolID   int64
	Status   string
	PlayerID *int64
	Page     int
	Size     int
}

type CardListResult struct {
	Items []model.CardInstance
	Total int64
}

type PlayerCards struct {
	Cards    []model.CardInstance
	Reserved int
	Sold     int
	Spent    decimal.Decimal
}

type Stats struct {
	PoolID    int64 `json:"poolId"`
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
	Cancelled int64 `json:"cancelled"`
	Winners   int64 `json:"winners"`
}

// CardView is the outward shape of a card instance.
type CardView struct {
	ID              int64      `json:"id"`
	PoolID          int64      `json:"poolId"`
	CardNumber      int        `json:"cardNumber"`
	Serial          string     `json:"serial"`
	Format          string     `json:"format"`
	Grid            bingo.Grid `json:"grid"`
	Status          string     `json:"status"`
	PlayerID        *int64     `json:"playerId,omitempty"`
	PurchasePrice   string     `json:"purchasePrice"`
	ReservedAt      *time.Time `json:"reservedAt,omitempty"`
	PurchasedAt     *time.Time `json:"purchasedAt,omitempty"`
	IsWinner        bool       `json:"isWinner"`
	WinningPatterns []string   `json:"winningPatterns"`
	PrizeMultiplier float64    `json:"prizeMultiplier"`
	ReusedFromID    *int64     `json:"reusedFromId,omitempty"`
}

func (s *Service) ListCards(ctx context.Context, filter CardFilter) (*CardListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = 20
	}
	if filter.Size > 100 {
		filter.Size = 100
	}

	var status bingo.CardStatus
	if filter.Status != "" {
		parsed, err := bingo.ParseCardStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.CardInstance{}).Where("pool_id = ?", filter.PoolID)
		if status != "" {
			q = q.Where("status = ?", string(status))
		}
		if filter.PlayerID != nil {
			q = q.Where("player_id = ?", *filter.PlayerID)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.CardInstance
	if total > 0 {
		if err := scoped().
			Order("card_number ASC").
			Limit(filter.Size).
			Offset((filter.Page - 1) * filter.Size).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &CardListResult{Items: items, Total: total}, nil
}

// PlayerCards lists what a player holds in a pool.
func (s *Service) PlayerCards(ctx context.Context, poolID, playerID int64) (*PlayerCards, error) {
	var cards []model.CardInstance
	if err := s.db.WithContext(ctx).
		Where("pool_id = ? AND player_id = ? AND status IN ?", poolID, playerID,
			[]string{string(bingo.StatusReserved), string(bingo.StatusSold)}).
		Order("card_number ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}

	out := &PlayerCards{Cards: cards, Spent: decimal.Zero}
	for _, c := range cards {
		switch bingo.CardStatus(c.Status) {
		case bingo.StatusReserved:
			out.Reserved++
		case bingo.StatusSold:
			out.Sold++
			out.Spent = out.Spent.Add(c.PurchasePrice)
		}
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context, poolID int64) (*Stats, error) {
	if _, err := s.GetPool(ctx, poolID); err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).
		Model(&model.CardInstance{}).
		Select("status, COUNT(*) AS count").
		Where("pool_id = ?", poolID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &Stats{PoolID: poolID}
	for _, r := range rows {
		stats.Total += r.Count
		switch bingo.CardStatus(r.Status) {
		case bingo.StatusAvailable:
			stats.Available = r.Count
		case bingo.StatusReserved:
			stats.Reserved = r.Count
		case bingo.StatusSold:
			stats.Sold = r.Count
		case bingo.StatusCancelled:
			stats.Cancelled = r.Count
		}
	}
	if err := s.db.WithContext(ctx).
		Model(&model.CardInstance{}).
		Where("pool_id = ? AND is_winner = ?", poolID, true).
		Count(&stats.Winners).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func View(card *model.CardInstance) (CardView, error) {
	layout, err := Layout(card)
	if err != nil {
		return CardView{}, err
	}
	patterns := []string{}
	if len(card.WinningPatternsJSON) > 0 {
		if err := json.Unmarshal(card.WinningPatternsJSON, &patterns); err != nil {
			return CardView{}, fmt.Errorf("decode winning patterns of card %d: %w", card.ID, err)
		}
	}
	return CardView{
		ID:              card.ID,
		PoolID:          card.PoolID,
		CardNumber:      card.CardNumber,
		Serial:          card.Serial,
		Format:          card.Format,
		Grid:            layout.Grid,
		Status:          card.Status,
		PlayerID:        card.PlayerID,
		PurchasePrice:   card.PurchasePrice.StringFixed(2),
		ReservedAt:      card.ReservedAt,
		PurchasedAt:     card.PurchasedAt,
		IsWinner:        card.IsWinner,
		WinningPatterns: patterns,
		PrizeMultiplier: card.PrizeMultiplier,
		ReusedFromID:    card.ReusedFromID,
	}, nil
}
