package game_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"bingo-service/internal/bingo"
	"bingo-service/internal/model"
	"bingo-service/internal/repo"
	"bingo-service/internal/service/game"
	"bingo-service/internal/service/operator"
	"bingo-service/internal/service/pattern"
	"bingo-service/internal/service/pool"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/utils/random"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	pools    *pool.Service
	patterns *pattern.Service
	games    *game.Service
	operator *model.Operator
	player   *model.Player
}

func newFixture(t *testing.T) *fixture {
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

	ctx := context.Background()
	ops := operator.NewService(db, operator.DefaultConfig())
	op, err := ops.CreateOperator(ctx, operator.OperatorParams{Code: "acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	player, err := ops.CreatePlayer(ctx, op.ID, operator.PlayerParams{Username: "alice"})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	patterns := pattern.NewService(db, pattern.DefaultConfig())
	if err := patterns.EnsureSystemPatterns(ctx); err != nil {
		t.Fatalf("seed patterns: %v", err)
	}

	locker := repo.NewLocalLocker(time.Second)
	src := random.NewSeededSource(42)
	pools := pool.NewService(db, bingo.NewGenerator(src), ops, locker, pool.DefaultConfig())
	games := game.NewService(db, bingo.NewDrawEngine(src), locker, patterns, game.DefaultConfig())

	return &fixture{db: db, pools: pools, patterns: patterns, games: games, operator: op, player: player}
}

func (f *fixture) pool(t *testing.T, format string, capacity int) *model.CardPool {
	t.Helper()
	ctx := context.Background()
	p, err := f.pools.CreatePool(ctx, pool.CreatePoolParams{OperatorID: f.operator.ID, Format: format, TargetCapacity: capacity})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if _, err := f.pools.GenerateCards(ctx, p.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	return p
}

func TestCreateGameNeedsGeneratedPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.pools.CreatePool(ctx, pool.CreatePoolParams{OperatorID: f.operator.ID, Format: "75", TargetCapacity: 2})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if _, err := f.games.CreateGame(ctx, empty.ID); !errors.Is(err, appErr.ErrPoolNotGenerated) {
		t.Fatalf("expected ErrPoolNotGenerated, got %v", err)
	}

	p := f.pool(t, "75", 2)
	g, err := f.games.CreateGame(ctx, p.ID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if len(g.Code) != game.DefaultConfig().CodeLength || g.Status != game.StatusActive || g.Format != "75" {
		t.Fatalf("unexpected game: %+v", g)
	}
}

func TestDrawBallUntilExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pool(t, "75", 1)
	g, err := f.games.CreateGame(ctx, p.ID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	seen := make(map[int]bool)
	for i := 1; i <= 75; i++ {
		res, err := f.games.DrawBall(ctx, g.ID)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if res.Number < 1 || res.Number > 75 || seen[res.Number] {
			t.Fatalf("draw %d produced bad or repeated number %d", i, res.Number)
		}
		seen[res.Number] = true
		if res.Sequence != i || res.Remaining != 75-i {
			t.Fatalf("draw %d: unexpected sequence %d remaining %d", i, res.Sequence, res.Remaining)
		}
		if res.Label != bingo.BallLabel(bingo.Format75, res.Number) || res.Color == "" {
			t.Fatalf("draw %d: unexpected label %q color %q", i, res.Label, res.Color)
		}
		if res.Completed != (i == 75) {
			t.Fatalf("draw %d: completed=%v", i, res.Completed)
		}
	}

	if _, err := f.games.DrawBall(ctx, g.ID); !errors.Is(err, appErr.ErrDrawExhausted) {
		t.Fatalf("expected ErrDrawExhausted, got %v", err)
	}

	stored, err := f.games.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload game: %v", err)
	}
	if stored.Status != game.StatusCompleted || stored.BallsDrawn != 75 || stored.CompletedAt == nil {
		t.Fatalf("expected completed game, got %+v", stored)
	}

	balls, err := f.games.ListBalls(ctx, g.ID)
	if err != nil {
		t.Fatalf("list balls: %v", err)
	}
	if len(balls) != 75 || balls[0].Sequence != 1 || balls[74].Sequence != 75 {
		t.Fatalf("unexpected ball history of %d balls", len(balls))
	}
}

func TestDrawBallUnknownGame(t *testing.T) {
	f := newFixture(t)
	if _, err := f.games.DrawBall(context.Background(), 12345); !errors.Is(err, appErr.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestCheckAllCardsFindsWinners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.pool(t, "90", 3)

	cards, err := f.pools.ListCards(ctx, pool.CardFilter{PoolID: p.ID})
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	sold := cards.Items[0]
	if _, err := f.pools.Reserve(ctx, p.ID, sold.ID, f.player.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := f.pools.Sell(ctx, sold.ID); err != nil {
		t.Fatalf("sell: %v", err)
	}

	g, err := f.games.CreateGame(ctx, p.ID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for i := 0; i < 90; i++ {
		if _, err := f.games.DrawBall(ctx, g.ID); err != nil {
			t.Fatalf("draw %d: %v", i+1, err)
		}
	}

	sweep, err := f.games.CheckAllCards(ctx, g.ID, bingo.CheckAll)
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if sweep.BallsDrawn != 90 || sweep.Checked != 1 || len(sweep.Winners) != 1 {
		t.Fatalf("expected the single sold card to win, got %+v", sweep)
	}
	winner := sweep.Winners[0]
	if winner.CardID != sold.ID || len(winner.Patterns) != 3 || winner.PrizeMultiplier != 4 {
		t.Fatalf("unexpected winner: %+v", winner)
	}

	again, err := f.games.CheckAllCards(ctx, g.ID, bingo.CheckAll)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again.Checked != 0 || len(again.Winners) != 0 {
		t.Fatalf("expected recorded winners to be skipped, got %+v", again)
	}

	ad, err := f.games.CheckCardInGame(ctx, g.ID, sold.ID)
	if err != nil {
		t.Fatalf("ad-hoc check: %v", err)
	}
	if !ad.IsWinner || len(ad.UnmarkedNumbers) != 0 || len(ad.MarkedNumbers) != 15 {
		t.Fatalf("unexpected ad-hoc result: %+v", ad)
	}

	if _, err := f.games.CheckCardInGame(ctx, g.ID, 9999); !errors.Is(err, appErr.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}
