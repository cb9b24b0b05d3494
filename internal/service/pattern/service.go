package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/service/pool"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

const (
	maxGridRows = 5
	maxGridCols = 9
)

type Config struct {
	// DefaultPatterns apply to pools that configured none.
	DefaultPatterns []string
}

func DefaultConfig() Config {
	return Config{DefaultPatterns: []string{"horizontal_line", "vertical_line", "full_card"}}
}

type Service struct {
	db  *gorm.DB
	cfg Config
}

func NewService(db *gorm.DB, cfg Config) *Service {
	if len(cfg.DefaultPatterns) == 0 {
		cfg = DefaultConfig()
	}
	return &Service{db: db, cfg: cfg}
}

type PatternParams struct {
	OperatorID      *int64
	Code            string
	Name            string
	Description     string
	Category        string
	CompatibleWith  string
	Kind            string
	PrizeMultiplier float64
	HasJackpot      bool
	JackpotMaxBalls int
	Cells           []bingo.Position
}

// UpdateParams changes presentation and payout fields. Code and kind are fixed
// once a pattern exists.
type UpdateParams struct {
	Name            *string
	Description     *string
	CompatibleWith  *string
	PrizeMultiplier *float64
	HasJackpot      *bool
	JackpotMaxBalls *int
	Cells           []bingo.Position
	IsActive        *bool
}

type ListFilter struct {
	Page            int
	Size            int
	OperatorID      *int64
	Format          string
	Category        string
	IncludeInactive bool
}

type ListResult struct {
	Items []model.WinningPattern
	Total int64
}

// EnsureSystemPatterns seeds the built-in catalogue. Existing codes are left
// untouched, so it is safe on every start.
func (s *Service) EnsureSystemPatterns(ctx context.Context) error {
	created := 0
	for _, entry := range SystemCatalog() {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.WinningPattern{}).Where("code = ?", entry.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		category, err := bingo.ParseCategory(entry.Category)
		if err != nil {
			return err
		}
		record := model.WinningPattern{
			Code:            entry.Code,
			Name:            entry.Name,
			Description:     entry.Description,
			Category:        string(category),
			CompatibleWith:  entry.CompatibleWith,
			Kind:            entry.Kind,
			PrizeMultiplier: entry.PrizeMultiplier,
			HasJackpot:      entry.HasJackpot,
			JackpotMaxBalls: entry.JackpotMaxBalls,
			IsActive:        true,
			IsSystem:        true,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		created++
	}

	if created > 0 {
		logger.Log.Info("system patterns seeded", zap.Int("created", created))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, params PatternParams) (*model.WinningPattern, error) {
	code := strings.ToLower(strings.TrimSpace(params.Code))
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code may only contain lowercase letters, digits and '_'", appErr.ErrInvalidPattern)
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", appErr.ErrInvalidPattern)
	}
	kind, err := bingo.ParseKind(params.Kind)
	if err != nil {
		return nil, err
	}
	category, err := bingo.ParseCategory(params.Category)
	if err != nil {
		return nil, err
	}
	compat, err := bingo.ParseCompatibility(params.CompatibleWith)
	if err != nil {
		return nil, err
	}
	multiplier := params.PrizeMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	if multiplier < 0 {
		return nil, fmt.Errorf("%w: prize multiplier cannot be negative", appErr.ErrInvalidPattern)
	}
	if err := checkJackpot(params.HasJackpot, params.JackpotMaxBalls); err != nil {
		return nil, err
	}
	cellsJSON, err := encodeCells(kind, params.Cells)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.WinningPattern{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, appErr.ErrDuplicatePatternCode
	}

	record := model.WinningPattern{
		OperatorID:      params.OperatorID,
		Code:            code,
		Name:            name,
		Description:     strings.TrimSpace(params.Description),
		Category:        string(category),
		CompatibleWith:  string(compat),
		Kind:            string(kind),
		CellsJSON:       cellsJSON,
		PrizeMultiplier: multiplier,
		HasJackpot:      params.HasJackpot,
		JackpotMaxBalls: params.JackpotMaxBalls,
		IsActive:        true,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErr.ErrDuplicatePatternCode
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) Get(ctx context.Context, code string) (*model.WinningPattern, error) {
	var record model.WinningPattern
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", appErr.ErrPatternNotFound, code)
		}
		return nil, err
	}
	return &record, nil
}

// Update edits a custom pattern. operatorID, when set, must own the pattern.
func (s *Service) Update(ctx context.Context, code string, operatorID *int64, params UpdateParams) (*model.WinningPattern, error) {
	record, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if record.IsSystem {
		return nil, appErr.ErrPatternImmutable
	}
	if !owns(record, operatorID) {
		return nil, appErr.ErrTenantMismatch
	}

	updates := map[string]interface{}{}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", appErr.ErrInvalidPattern)
		}
		updates["name"] = name
	}
	if params.Description != nil {
		updates["description"] = strings.TrimSpace(*params.Description)
	}
	if params.CompatibleWith != nil {
		compat, err := bingo.ParseCompatibility(*params.CompatibleWith)
		if err != nil {
			return nil, err
		}
		updates["compatible_with"] = string(compat)
	}
	if params.PrizeMultiplier != nil {
		if *params.PrizeMultiplier <= 0 {
			return nil, fmt.Errorf("%w: prize multiplier must be positive", appErr.ErrInvalidPattern)
		}
		updates["prize_multiplier"] = *params.PrizeMultiplier
	}
	hasJackpot, maxBalls := record.HasJackpot, record.JackpotMaxBalls
	if params.HasJackpot != nil {
		hasJackpot = *params.HasJackpot
		updates["has_jackpot"] = hasJackpot
	}
	if params.JackpotMaxBalls != nil {
		maxBalls = *params.JackpotMaxBalls
		updates["jackpot_max_balls"] = maxBalls
	}
	if err := checkJackpot(hasJackpot, maxBalls); err != nil {
		return nil, err
	}
	if params.Cells != nil {
		cellsJSON, err := encodeCells(bingo.Kind(record.Kind), params.Cells)
		if err != nil {
			return nil, err
		}
		updates["cells_json"] = cellsJSON
	}
	if params.IsActive != nil {
		updates["is_active"] = *params.IsActive
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&model.WinningPattern{}).Where("id = ?", record.ID).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, appErr.ErrPatternNotFound
		}
	}
	return s.Get(ctx, code)
}

// Deactivate hides a custom pattern from new evaluations. Cards that already
// recorded it keep the code.
func (s *Service) Deactivate(ctx context.Context, code string, operatorID *int64) error {
	inactive := false
	_, err := s.Update(ctx, code, operatorID, UpdateParams{IsActive: &inactive})
	return err
}

// List returns system patterns plus, when OperatorID is set, that operator's
// custom ones.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = 20
	}
	if filter.Size > 100 {
		filter.Size = 100
	}

	var compat []string
	if filter.Format != "" {
		format, err := bingo.ParseFormat(filter.Format)
		if err != nil {
			return nil, err
		}
		compat = []string{string(bingo.CompatibleAll), string(format)}
	}
	var category bingo.Category
	if filter.Category != "" {
		parsed, err := bingo.ParseCategory(filter.Category)
		if err != nil {
			return nil, err
		}
		category = parsed
	}

	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.WinningPattern{})
		if filter.OperatorID != nil {
			q = q.Where("operator_id IS NULL OR operator_id = ?", *filter.OperatorID)
		} else {
			q = q.Where("operator_id IS NULL")
		}
		if !filter.IncludeInactive {
			q = q.Where("is_active = ?", true)
		}
		if compat != nil {
			q = q.Where("compatible_with IN ?", compat)
		}
		if category != "" {
			q = q.Where("category = ?", string(category))
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, err
	}
	var items []model.WinningPattern
	if total > 0 {
		if err := scoped().
			Order("is_system DESC, id ASC").
			Limit(filter.Size).
			Offset((filter.Page - 1) * filter.Size).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &ListResult{Items: items, Total: total}, nil
}

// ListCompatible returns every active pattern an operator may attach to a pool
// of the given format.
func (s *Service) ListCompatible(ctx context.Context, operatorID int64, format bingo.Format) ([]model.WinningPattern, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", appErr.ErrInvalidFormat, format)
	}
	var items []model.WinningPattern
	if err := s.db.WithContext(ctx).
		Where("operator_id IS NULL OR operator_id = ?", operatorID).
		Where("is_active = ?", true).
		Where("compatible_with IN ?", []string{string(bingo.CompatibleAll), string(format)}).
		Order("is_system DESC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Resolve loads active patterns by code, in the order given. An empty list
// resolves to the configured defaults.
func (s *Service) Resolve(ctx context.Context, operatorID int64, codes []string) ([]bingo.Pattern, error) {
	if len(codes) == 0 {
		codes = s.cfg.DefaultPatterns
	}

	var records []model.WinningPattern
	if err := s.db.WithContext(ctx).Where("code IN ?", codes).Find(&records).Error; err != nil {
		return nil, err
	}
	byCode := make(map[string]model.WinningPattern, len(records))
	for _, r := range records {
		byCode[r.Code] = r
	}

	out := make([]bingo.Pattern, 0, len(codes))
	for _, code := range codes {
		record, ok := byCode[code]
		if !ok || !owns(&record, &operatorID) {
			return nil, fmt.Errorf("%w: %s", appErr.ErrPatternNotFound, code)
		}
		if !record.IsActive {
			return nil, fmt.Errorf("%w: %s", appErr.ErrPatternInactive, code)
		}
		p, err := ToDomain(record)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ValidatePoolPatterns trims and dedupes codes and checks that each one names an
// active pattern of the operator that suits format. It returns the cleaned codes
// in request order and writes nothing.
func (s *Service) ValidatePoolPatterns(ctx context.Context, operatorID int64, format bingo.Format, codes []string) ([]string, error) {
	unique := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		unique = append(unique, code)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: at least one pattern code is required", appErr.ErrInvalidPattern)
	}

	patterns, err := s.Resolve(ctx, operatorID, unique)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if !p.CompatibleWith.Allows(format) {
			return nil, fmt.Errorf("%w: %s does not support %s-ball cards", appErr.ErrPatternMismatch, p.Code, format)
		}
	}
	return unique, nil
}

// ConfigurePoolPatterns sets which patterns pay out for a pool. Every code must
// exist, be active and suit the pool's format.
func (s *Service) ConfigurePoolPatterns(ctx context.Context, poolID int64, codes []string) (*model.CardPool, error) {
	var target model.CardPool
	if err := s.db.WithContext(ctx).First(&target, poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPoolNotFound
		}
		return nil, err
	}
	format, err := bingo.ParseFormat(target.Format)
	if err != nil {
		return nil, err
	}
	unique, err := s.ValidatePoolPatterns(ctx, target.OperatorID, format, codes)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(unique)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&target).Update("pattern_codes_json", datatypes.JSON(raw)).Error; err != nil {
		return nil, err
	}
	target.PatternCodesJSON = raw
	return &target, nil
}

// PoolPatterns resolves the patterns that pay out for a pool.
func (s *Service) PoolPatterns(ctx context.Context, target *model.CardPool) ([]bingo.Pattern, error) {
	codes, err := pool.PatternCodes(target)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, target.OperatorID, codes)
}

// ToDomain converts a stored pattern into the evaluator's form.
func ToDomain(record model.WinningPattern) (bingo.Pattern, error) {
	kind, err := bingo.ParseKind(record.Kind)
	if err != nil {
		return bingo.Pattern{}, err
	}
	compat, err := bingo.ParseCompatibility(record.CompatibleWith)
	if err != nil {
		return bingo.Pattern{}, err
	}
	category, err := bingo.ParseCategory(record.Category)
	if err != nil {
		return bingo.Pattern{}, err
	}
	var cells []bingo.Position
	if len(record.CellsJSON) > 0 {
		if err := json.Unmarshal(record.CellsJSON, &cells); err != nil {
			return bingo.Pattern{}, fmt.Errorf("decode cells of pattern %s: %w", record.Code, err)
		}
	}
	return bingo.Pattern{
		Code:            record.Code,
		Name:            record.Name,
		Category:        category,
		CompatibleWith:  compat,
		Kind:            kind,
		PrizeMultiplier: record.PrizeMultiplier,
		HasJackpot:      record.HasJackpot,
		JackpotMaxBalls: record.JackpotMaxBalls,
		Cells:           cells,
	}, nil
}

func owns(record *model.WinningPattern, operatorID *int64) bool {
	if record.OperatorID == nil || operatorID == nil {
		return true
	}
	return *record.OperatorID == *operatorID
}

func checkJackpot(hasJackpot bool, maxBalls int) error {
	if maxBalls < 0 {
		return fmt.Errorf("%w: jackpot ball limit cannot be negative", appErr.ErrInvalidPattern)
	}
	if hasJackpot && maxBalls == 0 {
		return fmt.Errorf("%w: jackpot patterns need a ball limit", appErr.ErrInvalidPattern)
	}
	return nil
}

func encodeCells(kind bingo.Kind, cells []bingo.Position) (datatypes.JSON, error) {
	if kind != bingo.KindCustom {
		if len(cells) > 0 {
			return nil, fmt.Errorf("%w: only custom patterns take cells", appErr.ErrInvalidPattern)
		}
		return nil, nil
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: custom patterns need at least one cell", appErr.ErrInvalidPattern)
	}
	seen := make(map[bingo.Position]bool, len(cells))
	for _, c := range cells {
		if c.Row < 0 || c.Row >= maxGridRows || c.Col < 0 || c.Col >= maxGridCols {
			return nil, fmt.Errorf("%w: cell (%d,%d) is off the card", appErr.ErrInvalidPattern, c.Row, c.Col)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: cell (%d,%d) listed twice", appErr.ErrInvalidPattern, c.Row, c.Col)
		}
		seen[c] = true
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
