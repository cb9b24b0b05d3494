package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	appErr "bingo-service/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Defaults are applied to operators created without explicit limits.
type Defaults struct {
	MaxCardsPerPlayer int
	MaxCardsPerPool   int
	AllowedFormats    []bingo.Format
}

func DefaultConfig() Defaults {
	return Defaults{
		MaxCardsPerPlayer: 5,
		MaxCardsPerPool:   100,
		AllowedFormats:    append([]bingo.Format(nil), bingo.Formats...),
	}
}

type Service struct {
	db       *gorm.DB
	defaults Defaults
}

func NewService(db *gorm.DB, defaults Defaults) *Service {
	return &Service{db: db, defaults: defaults}
}

// Tenant is the read-only view of an operator that the card pool consumes.
type Tenant struct {
	ID                int64
	Code              string
	AllowedFormats    []bingo.Format
	MaxCardsPerPlayer int
	MaxCardsPerPool   int
	Active            bool
}

func (t *Tenant) Allows(f bingo.Format) bool {
	for _, allowed := range t.AllowedFormats {
		if allowed == f {
			return true
		}
	}
	return false
}

type OperatorParams struct {
	Code              string
	Name              string
	AllowedFormats    []string
	MaxCardsPerPlayer int
	MaxCardsPerPool   int
}

type LimitParams struct {
	MaxCardsPerPlayer *int
	MaxCardsPerPool   *int
	AllowedFormats    []string
	Status            *string
}

type PlayerParams struct {
	Username    string
	DisplayName string
	Phone       string
}

type OperatorListResult struct {
	Items []model.Operator
	Total int64
}

func (s *Service) CreateOperator(ctx context.Context, params OperatorParams) (*model.Operator, error) {
	code := strings.TrimSpace(params.Code)
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code may only contain letters, digits, '-' and '_'", appErr.ErrInvalidOperator)
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", appErr.ErrInvalidOperator)
	}

	formats, err := s.normalizeFormats(params.AllowedFormats)
	if err != nil {
		return nil, err
	}
	formatsJSON, err := json.Marshal(formats)
	if err != nil {
		return nil, err
	}

	maxPerPlayer := params.MaxCardsPerPlayer
	if maxPerPlayer <= 0 {
		maxPerPlayer = s.defaults.MaxCardsPerPlayer
	}
	maxPerPool := params.MaxCardsPerPool
	if maxPerPool <= 0 {
		maxPerPool = s.defaults.MaxCardsPerPool
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Operator{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, appErr.ErrDuplicateOperator
	}

	op := model.Operator{
		Code:               code,
		Name:               name,
		AllowedFormatsJSON: formatsJSON,
		MaxCardsPerPlayer:  maxPerPlayer,
		MaxCardsPerPool:    maxPerPool,
		Status:             StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErr.ErrDuplicateOperator
		}
		return nil, err
	}
	return &op, nil
}

func (s *Service) GetOperator(ctx context.Context, id int64) (*model.Operator, error) {
	var op model.Operator
	if err := s.db.WithContext(ctx).First(&op, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}

func (s *Service) AdminListOperators(ctx context.Context, page, size int) (*OperatorListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Operator{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.Operator
	if total > 0 {
		if err := s.db.WithContext(ctx).
			Model(&model.Operator{}).
			Order("id DESC").
			Limit(size).
			Offset((page - 1) * size).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &OperatorListResult{Items: items, Total: total}, nil
}

func (s *Service) UpdateLimits(ctx context.Context, id int64, params LimitParams) (*model.Operator, error) {
	updates := map[string]interface{}{}
	if params.MaxCardsPerPlayer != nil {
		if *params.MaxCardsPerPlayer <= 0 {
			return nil, fmt.Errorf("%w: maxCardsPerPlayer must be positive", appErr.ErrInvalidOperator)
		}
		updates["max_cards_per_player"] = *params.MaxCardsPerPlayer
	}
	if params.MaxCardsPerPool != nil {
		if *params.MaxCardsPerPool <= 0 {
			return nil, fmt.Errorf("%w: maxCardsPerPool must be positive", appErr.ErrInvalidOperator)
		}
		updates["max_cards_per_pool"] = *params.MaxCardsPerPool
	}
	if params.AllowedFormats != nil {
		formats, err := s.normalizeFormats(params.AllowedFormats)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(formats)
		if err != nil {
			return nil, err
		}
		updates["allowed_formats_json"] = datatypes.JSON(raw)
	}
	if params.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*params.Status))
		if status != StatusActive && status != StatusDisabled {
			return nil, fmt.Errorf("%w: status must be active or disabled", appErr.ErrInvalidOperator)
		}
		updates["status"] = status
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&model.Operator{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, appErr.ErrOperatorNotFound
		}
	}
	return s.GetOperator(ctx, id)
}

// Tenant loads the quota and format view of an operator.
func (s *Service) Tenant(ctx context.Context, operatorID int64) (*Tenant, error) {
	op, err := s.GetOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return TenantOf(op)
}

func TenantOf(op *model.Operator) (*Tenant, error) {
	var codes []string
	if len(op.AllowedFormatsJSON) > 0 {
		if err := json.Unmarshal(op.AllowedFormatsJSON, &codes); err != nil {
			return nil, fmt.Errorf("decode allowed formats of operator %d: %w", op.ID, err)
		}
	}
	formats := make([]bingo.Format, 0, len(codes))
	for _, code := range codes {
		f, err := bingo.ParseFormat(code)
		if err != nil {
			continue
		}
		formats = append(formats, f)
	}
	return &Tenant{
		ID:                op.ID,
		Code:              op.Code,
		AllowedFormats:    formats,
		MaxCardsPerPlayer: op.MaxCardsPerPlayer,
		MaxCardsPerPool:   op.MaxCardsPerPool,
		Active:            op.Status == StatusActive,
	}, nil
}

func (s *Service) CreatePlayer(ctx context.Context, operatorID int64, params PlayerParams) (*model.Player, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", appErr.ErrInvalidOperator)
	}
	if _, err := s.GetOperator(ctx, operatorID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.Player{}).
		Where("operator_id = ? AND username = ?", operatorID, username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, appErr.ErrDuplicatePlayer
	}

	player := model.Player{
		OperatorID:  operatorID,
		Username:    username,
		DisplayName: strings.TrimSpace(params.DisplayName),
		Phone:       strings.TrimSpace(params.Phone),
		Status:      StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErr.ErrDuplicatePlayer
		}
		return nil, err
	}
	return &player, nil
}

func (s *Service) GetPlayer(ctx context.Context, id int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (s *Service) normalizeFormats(codes []string) ([]bingo.Format, error) {
	if len(codes) == 0 {
		return append([]bingo.Format(nil), s.defaults.AllowedFormats...), nil
	}
	seen := make(map[bingo.Format]bool, len(codes))
	out := make([]bingo.Format, 0, len(codes))
	for _, code := range codes {
		f, err := bingo.ParseFormat(code)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}
