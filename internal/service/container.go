package service

import (
	"context"
	"time"

	"bingo-service/internal/bingo"
	"bingo-service/internal/config"
	"bingo-service/internal/repo"
	"bingo-service/internal/service/game"
	"bingo-service/internal/service/operator"
	"bingo-service/internal/service/pattern"
	"bingo-service/internal/service/pool"
	"bingo-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Generator *bingo.Generator
	Operator  *operator.Service
	Pattern   *pattern.Service
	Pool      *pool.Service
	Game      *game.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client, cfg config.BingoConfig) *Container {
	src := random.NewSource()
	if cfg.Seed != 0 {
		src = random.NewSeededSource(cfg.Seed)
	}
	lockTTL := time.Duration(cfg.LockTTLSeconds) * time.Second
	locker := repo.NewLocker(rdb, time.Duration(cfg.LockWaitMillis)*time.Millisecond)

	generator := bingo.NewGenerator(src, bingo.WithMaxAttempts(cfg.GenerationAttempts))
	engine := bingo.NewDrawEngine(src, bingo.WithDrawAttempts(cfg.DrawAttempts))

	defaults := operator.DefaultConfig()
	if cfg.Operator.MaxCardsPerPlayer > 0 {
		defaults.MaxCardsPerPlayer = cfg.Operator.MaxCardsPerPlayer
	}
	if cfg.Operator.MaxCardsPerPool > 0 {
		defaults.MaxCardsPerPool = cfg.Operator.MaxCardsPerPool
	}
	if len(cfg.Operator.AllowedFormats) > 0 {
		formats := make([]bingo.Format, 0, len(cfg.Operator.AllowedFormats))
		for _, code := range cfg.Operator.AllowedFormats {
			if f, err := bingo.ParseFormat(code); err == nil {
				formats = append(formats, f)
			}
		}
		if len(formats) > 0 {
			defaults.AllowedFormats = formats
		}
	}

	operators := operator.NewService(db, defaults)
	patterns := pattern.NewService(db, pattern.Config{DefaultPatterns: cfg.DefaultPatterns})

	return &Container{
		Generator: generator,
		Operator:  operators,
		Pattern:   patterns,
		Pool:      pool.NewService(db, generator, operators, locker, pool.Config{LockTTL: lockTTL}),
		Game:      game.NewService(db, engine, locker, patterns, game.Config{LockTTL: lockTTL}),
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Pattern.EnsureSystemPatterns(ctx)
}
