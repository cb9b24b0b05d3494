package pattern_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/service/pattern"
	appErr "bingo-service/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}
	return db
}

func newSeededService(t *testing.T) (*gorm.DB, *pattern.Service) {
	t.Helper()
	db := openDB(t)
	svc := pattern.NewService(db, pattern.DefaultConfig())
	if err := svc.EnsureSystemPatterns(context.Background()); err != nil {
		t.Fatalf("seed system patterns: %v", err)
	}
	return db, svc
}

func int64Ptr(v int64) *int64 { return &v }

func TestEnsureSystemPatternsIsIdempotent(t *testing.T) {
	db, svc := newSeededService(t)
	if err := svc.EnsureSystemPatterns(context.Background()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	if err := db.Model(&model.WinningPattern{}).Where("is_system = ?", true).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if int(count) != len(pattern.SystemCatalog()) {
		t.Fatalf("expected %d system patterns, got %d", len(pattern.SystemCatalog()), count)
	}

	jackpot, err := svc.Get(context.Background(), "blackout_jackpot")
	if err != nil {
		t.Fatalf("get jackpot pattern: %v", err)
	}
	if !jackpot.HasJackpot || jackpot.JackpotMaxBalls != 50 || jackpot.Kind != string(bingo.KindFullCard) {
		t.Fatalf("unexpected jackpot pattern: %+v", jackpot)
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	raw := []byte(`
patterns:
  - code: line
    name: Line
    kind: horizontal_line
    prizeMultiplier: 1
  - code: line
    name: Line again
    kind: horizontal_line
    prizeMultiplier: 1
`)
	if _, err := pattern.LoadCatalog(raw); !errors.Is(err, appErr.ErrDuplicatePatternCode) {
		t.Fatalf("expected ErrDuplicatePatternCode, got %v", err)
	}
}

func TestCreateCustomPattern(t *testing.T) {
	_, svc := newSeededService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, pattern.PatternParams{
		OperatorID:      int64Ptr(1),
		Code:            "plus_sign",
		Name:            "Plus sign",
		Kind:            "custom",
		CompatibleWith:  "75",
		PrizeMultiplier: 3,
		Cells: []bingo.Position{
			{Row: 0, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 0}, {Row: 2, Col: 1},
			{Row: 2, Col: 3}, {Row: 2, Col: 4}, {Row: 3, Col: 2}, {Row: 4, Col: 2},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.IsSystem || !created.IsActive || created.Category != string(bingo.CategoryCustom) {
		t.Fatalf("unexpected custom pattern: %+v", created)
	}

	domain, err := pattern.ToDomain(*created)
	if err != nil {
		t.Fatalf("to domain: %v", err)
	}
	if len(domain.Cells) != 8 || domain.Kind != bingo.KindCustom {
		t.Fatalf("unexpected domain pattern: %+v", domain)
	}

	_, err = svc.Create(ctx, pattern.PatternParams{Code: "plus_sign", Name: "Again", Kind: "custom", Cells: domain.Cells})
	if !errors.Is(err, appErr.ErrDuplicatePatternCode) {
		t.Fatalf("expected ErrDuplicatePatternCode, got %v", err)
	}

	_, err = svc.Create(ctx, pattern.PatternParams{Code: "zigzag", Name: "Zigzag", Kind: "zigzag"})
	if !errors.Is(err, appErr.ErrInvalidPatternKind) {
		t.Fatalf("expected ErrInvalidPatternKind, got %v", err)
	}

	_, err = svc.Create(ctx, pattern.PatternParams{Code: "nowhere", Name: "Nowhere", Kind: "custom"})
	if !errors.Is(err, appErr.ErrInvalidPattern) {
		t.Fatalf("expected custom pattern without cells to be rejected, got %v", err)
	}

	_, err = svc.Create(ctx, pattern.PatternParams{Code: "quick", Name: "Quick", Kind: "full_card", HasJackpot: true})
	if !errors.Is(err, appErr.ErrInvalidPattern) {
		t.Fatalf("expected jackpot without ball limit to be rejected, got %v", err)
	}
}

func TestSystemPatternsAreImmutable(t *testing.T) {
	_, svc := newSeededService(t)
	ctx := context.Background()

	name := "Renamed"
	if _, err := svc.Update(ctx, "horizontal_line", nil, pattern.UpdateParams{Name: &name}); !errors.Is(err, appErr.ErrPatternImmutable) {
		t.Fatalf("expected ErrPatternImmutable, got %v", err)
	}
	if err := svc.Deactivate(ctx, "full_card", nil); !errors.Is(err, appErr.ErrPatternImmutable) {
		t.Fatalf("expected ErrPatternImmutable, got %v", err)
	}
}

func TestUpdateAndDeactivateCustomPattern(t *testing.T) {
	_, svc := newSeededService(t)
	ctx := context.Background()
	owner := int64Ptr(7)

	if _, err := svc.Create(ctx, pattern.PatternParams{
		OperatorID: owner,
		Code:       "corners_plus",
		Name:       "Corners plus",
		Kind:       "custom",
		Cells:      []bingo.Position{{Row: 0, Col: 0}, {Row: 0, Col: 4}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	multiplier := 4.0
	updated, err := svc.Update(ctx, "corners_plus", owner, pattern.UpdateParams{PrizeMultiplier: &multiplier})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PrizeMultiplier != 4 || updated.Kind != string(bingo.KindCustom) {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := svc.Update(ctx, "corners_plus", int64Ptr(8), pattern.UpdateParams{PrizeMultiplier: &multiplier}); !errors.Is(err, appErr.ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}

	if err := svc.Deactivate(ctx, "corners_plus", owner); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Resolve(ctx, 7, []string{"corners_plus"}); !errors.Is(err, appErr.ErrPatternInactive) {
		t.Fatalf("expected ErrPatternInactive, got %v", err)
	}
}

func TestListFiltersByFormatAndCategory(t *testing.T) {
	_, svc := newSeededService(t)
	ctx := context.Background()

	ninety, err := svc.List(ctx, pattern.ListFilter{Format: "90", Size: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ninety.Total != 3 {
		t.Fatalf("expected the three all-format patterns, got %d", ninety.Total)
	}
	for _, p := range ninety.Items {
		if p.CompatibleWith != string(bingo.CompatibleAll) {
			t.Fatalf("unexpected pattern %s for 90-ball listing", p.Code)
		}
	}

	special, err := svc.List(ctx, pattern.ListFilter{Category: "special", Size: 100})
	if err != nil {
		t.Fatalf("list special: %v", err)
	}
	if special.Total != 5 {
		t.Fatalf("expected 5 special patterns, got %d", special.Total)
	}

	if _, err := svc.Create(ctx, pattern.PatternParams{
		OperatorID: int64Ptr(3),
		Code:       "private_line",
		Name:       "Private",
		Kind:       "horizontal_line",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	mine, err := svc.List(ctx, pattern.ListFilter{OperatorID: int64Ptr(3), Size: 100})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	theirs, err := svc.List(ctx, pattern.ListFilter{OperatorID: int64Ptr(4), Size: 100})
	if err != nil {
		t.Fatalf("list theirs: %v", err)
	}
	if mine.Total != theirs.Total+1 {
		t.Fatalf("expected custom pattern visible only to its operator: %d vs %d", mine.Total, theirs.Total)
	}
}

func TestListCompatible(t *testing.T) {
	_, svc := newSeededService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, pattern.PatternParams{
		OperatorID: int64Ptr(3),
		Code:       "any_row",
		Name:       "Any row",
		Kind:       "horizontal_line",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, pattern.PatternParams{
		OperatorID:     int64Ptr(3),
		Code:           "retired",
		Name:           "Retired",
		Kind:           "full_card",
		CompatibleWith: "90",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(ctx, "retired", int64Ptr(3)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	seventyFive, err := svc.ListCompatible(ctx, 3, bingo.Format75)
	if err != nil {
		t.Fatalf("list compatible: %v", err)
	}
	if len(seventyFive) != 10 {
		t.Fatalf("expected 9 system patterns plus 1 custom for 75-ball, got %d", len(seventyFive))
	}
	if !seventyFive[0].IsSystem || seventyFive[len(seventyFive)-1].Code != "any_row" {
		t.Fatalf("expected system patterns first, got %s last", seventyFive[len(seventyFive)-1].Code)
	}

	ninety, err := svc.ListCompatible(ctx, 4, bingo.Format90)
	if err != nil {
		t.Fatalf("list compatible: %v", err)
	}
	if len(ninety) != 3 {
		t.Fatalf("expected only the all-format system patterns for another operator, got %d", len(ninety))
	}

	if _, err := svc.ListCompatible(ctx, 3, bingo.Format("60")); !errors.Is(err, appErr.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestValidatePoolPatternsWritesNothing(t *testing.T) {
	db, svc := newSeededService(t)
	ctx := context.Background()

	if _, err := svc.ValidatePoolPatterns(ctx, 1, bingo.Format90, []string{"diagonal_line"}); !errors.Is(err, appErr.ErrPatternMismatch) {
		t.Fatalf("expected ErrPatternMismatch, got %v", err)
	}
	if _, err := svc.ValidatePoolPatterns(ctx, 1, bingo.Format75, []string{" ", ""}); !errors.Is(err, appErr.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}

	codes, err := svc.ValidatePoolPatterns(ctx, 1, bingo.Format90, []string{" full_card", "horizontal_line", "full_card"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(codes) != 2 || codes[0] != "full_card" || codes[1] != "horizontal_line" {
		t.Fatalf("unexpected cleaned codes: %v", codes)
	}

	var pools int64
	if err := db.Model(&model.CardPool{}).Count(&pools).Error; err != nil {
		t.Fatalf("count pools: %v", err)
	}
	if pools != 0 {
		t.Fatalf("expected validation to leave the database alone, found %d pools", pools)
	}
}

func TestConfigurePoolPatterns(t *testing.T) {
	db, svc := newSeededService(t)
	ctx := context.Background()

	target := model.CardPool{OperatorID: 1, Scope: "session", Name: "Ninety", Format: "90", TargetCapacity: 1}
	if err := db.Create(&target).Error; err != nil {
		t.Fatalf("create pool: %v", err)
	}

	if _, err := svc.ConfigurePoolPatterns(ctx, target.ID, []string{"horizontal_line", "four_corners"}); !errors.Is(err, appErr.ErrPatternMismatch) {
		t.Fatalf("expected ErrPatternMismatch, got %v", err)
	}
	if _, err := svc.ConfigurePoolPatterns(ctx, target.ID, []string{"no_such_pattern"}); !errors.Is(err, appErr.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}

	updated, err := svc.ConfigurePoolPatterns(ctx, target.ID, []string{"full_card", "horizontal_line", "full_card"})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	var codes []string
	if err := json.Unmarshal(updated.PatternCodesJSON, &codes); err != nil {
		t.Fatalf("decode codes: %v", err)
	}
	if len(codes) != 2 || codes[0] != "full_card" || codes[1] != "horizontal_line" {
		t.Fatalf("unexpected stored codes: %v", codes)
	}

	resolved, err := svc.PoolPatterns(ctx, updated)
	if err != nil {
		t.Fatalf("pool patterns: %v", err)
	}
	if len(resolved) != 2 || resolved[0].Code != "full_card" {
		t.Fatalf("unexpected resolved patterns: %+v", resolved)
	}

	var fresh model.CardPool
	if err := db.Create(&model.CardPool{OperatorID: 1, Scope: "session", Name: "Defaults", Format: "75", TargetCapacity: 1}).Error; err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := db.Where("name = ?", "Defaults").First(&fresh).Error; err != nil {
		t.Fatalf("load pool: %v", err)
	}
	defaults, err := svc.PoolPatterns(ctx, &fresh)
	if err != nil {
		t.Fatalf("default patterns: %v", err)
	}
	if len(defaults) != len(pattern.DefaultConfig().DefaultPatterns) {
		t.Fatalf("expected default patterns, got %d", len(defaults))
	}
}

func scenarioCard(t *testing.T, db *gorm.DB, status bingo.CardStatus) (*model.CardPool, *model.CardInstance) {
	t.Helper()

	target := model.CardPool{OperatorID: 1, Scope: "session", Name: "Scenario", Format: "75", TargetCapacity: 1, Generated: true}
	if err := db.Create(&target).Error; err != nil {
		t.Fatalf("create pool: %v", err)
	}
	grid, err := bingo.GridFromRows([][]any{
		{3, 22, 38, 52, 67},
		{5, 17, 33, 49, 62},
		{7, 18, "FREE", 50, 63},
		{9, 19, 40, 55, 70},
		{1, 16, 41, 60, 75},
	})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	raw, err := json.Marshal(grid)
	if err != nil {
		t.Fatalf("marshal grid: %v", err)
	}
	card := model.CardInstance{
		PoolID:      target.ID,
		CardNumber:  1,
		Serial:      "serial-" + strings.ReplaceAll(t.Name(), "/", "-"),
		Format:      "75",
		NumbersJSON: datatypes.JSON(raw),
		Status:      string(status),
	}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("create card: %v", err)
	}
	return &target, &card
}

func TestCheckCardRecordsWins(t *testing.T) {
	db, svc := newSeededService(t)
	ctx := context.Background()
	target, card := scenarioCard(t, db, bingo.StatusSold)
	if _, err := svc.ConfigurePoolPatterns(ctx, target.ID, []string{"horizontal_line", "vertical_line"}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	row := []int{3, 22, 38, 52, 67}
	result, err := svc.CheckCard(ctx, pattern.CheckCardRequest{CardID: card.ID, Drawn: row, Mode: bingo.CheckAll})
	if err != nil {
		t.Fatalf("check card: %v", err)
	}
	if !result.IsWinner || !result.Recorded || len(result.WinningPatterns) != 1 || result.WinningPatterns[0] != "horizontal_line" {
		t.Fatalf("unexpected check result: %+v", result)
	}

	// B column completes a second pattern; the first one is not counted twice.
	more := append(append([]int{}, row...), 5, 7, 9, 1)
	if _, err := svc.CheckCard(ctx, pattern.CheckCardRequest{CardID: card.ID, Drawn: more, Mode: bingo.CheckAll}); err != nil {
		t.Fatalf("second check: %v", err)
	}

	var stored model.CardInstance
	if err := db.First(&stored, card.ID).Error; err != nil {
		t.Fatalf("reload card: %v", err)
	}
	var codes []string
	if err := json.Unmarshal(stored.WinningPatternsJSON, &codes); err != nil {
		t.Fatalf("decode codes: %v", err)
	}
	if !stored.IsWinner || len(codes) != 2 || stored.PrizeMultiplier != 2 {
		t.Fatalf("unexpected stored win: winner=%v codes=%v multiplier=%v", stored.IsWinner, codes, stored.PrizeMultiplier)
	}
}

func TestCheckCardLeavesUnsoldCardsAlone(t *testing.T) {
	db, svc := newSeededService(t)
	ctx := context.Background()
	_, card := scenarioCard(t, db, bingo.StatusAvailable)

	result, err := svc.CheckCard(ctx, pattern.CheckCardRequest{CardID: card.ID, Drawn: []int{3, 22, 38, 52, 67}})
	if err != nil {
		t.Fatalf("check card: %v", err)
	}
	if !result.IsWinner || result.Recorded {
		t.Fatalf("expected an unrecorded win, got %+v", result)
	}

	var stored model.CardInstance
	if err := db.First(&stored, card.ID).Error; err != nil {
		t.Fatalf("reload card: %v", err)
	}
	if stored.IsWinner {
		t.Fatalf("available card should not be marked as a winner")
	}

	if _, err := svc.CheckCard(ctx, pattern.CheckCardRequest{CardID: 404}); !errors.Is(err, appErr.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}
