package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tenancy

type Operator struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement"`
	Code               string         `gorm:"uniqueIndex;size:64;not null"`
	Name               string         `gorm:"not null"`
	AllowedFormatsJSON datatypes.JSON // ["75","85","90"]
	MaxCardsPerPlayer  int            `gorm:"not null"`
	MaxCardsPerPool    int            `gorm:"not null"`
	Status             string         `gorm:"default:active;not null"` // active/disabled
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Player struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OperatorID  int64  `gorm:"uniqueIndex:idx_operator_username;not null"`
	Username    string `gorm:"uniqueIndex:idx_operator_username;size:128;not null"`
	DisplayName string
	Phone       string
	Status      string `gorm:"default:active;not null"` // active/banned
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cards

type CardPool struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	OperatorID       int64           `gorm:"index;not null"`
	Scope            string          `gorm:"size:16;not null"` // session/pack
	Name             string          `gorm:"not null"`
	Format           string          `gorm:"size:4;not null"`
	TargetCapacity   int             `gorm:"not null"`
	Generated        bool            `gorm:"not null"`
	ReuseAllowed     bool            `gorm:"not null"`
	EntryFee         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	PatternCodesJSON datatypes.JSON  // ["horizontal_line", ...]; empty means configured defaults
	SourcePoolID     *int64
	GeneratedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Cards []CardInstance `gorm:"foreignKey:PoolID;constraint:OnDelete:CASCADE"`
}

type CardInstance struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement"`
	PoolID              int64           `gorm:"uniqueIndex:idx_pool_card_number;not null"`
	CardNumber          int             `gorm:"uniqueIndex:idx_pool_card_number;not null"`
	Serial              string          `gorm:"uniqueIndex;size:36;not null"`
	Format              string          `gorm:"size:4;not null"`
	NumbersJSON         datatypes.JSON  `gorm:"not null"`               // grid wire shape
	Status              string          `gorm:"index;size:16;not null"` // available/reserved/sold/cancelled
	PlayerID            *int64          `gorm:"index"`
	PurchasePrice       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	ReservedAt          *time.Time
	PurchasedAt         *time.Time
	IsWinner            bool `gorm:"not null"`
	WinningPatternsJSON datatypes.JSON
	PrizeMultiplier     float64
	ReusedFromID        *int64
	Version             int `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type WinningPattern struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	OperatorID      *int64 `gorm:"index"` // nil for system patterns
	Code            string `gorm:"uniqueIndex;size:64;not null"`
	Name            string `gorm:"not null"`
	Description     string
	Category        string         `gorm:"size:16;not null"` // classic/special/custom
	CompatibleWith  string         `gorm:"size:8;not null"`  // all/75/85/90
	Kind            string         `gorm:"size:32;not null"`
	CellsJSON       datatypes.JSON // [{"row":0,"col":0}, ...] for custom kinds
	PrizeMultiplier float64        `gorm:"not null"`
	HasJackpot      bool           `gorm:"not null"`
	JackpotMaxBalls int            `gorm:"not null;default:0"`
	IsActive        bool           `gorm:"not null"`
	IsSystem        bool           `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Play

type Game struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OperatorID  int64  `gorm:"index;not null"`
	PoolID      int64  `gorm:"index;not null"`
	Code        string `gorm:"uniqueIndex;size:16;not null"`
	Format      string `gorm:"size:4;not null"`
	Status      string `gorm:"default:active;not null"` // active/completed
	BallsDrawn  int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type DrawnBall struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	GameID   int64     `gorm:"uniqueIndex:idx_game_number;not null"`
	Number   int       `gorm:"uniqueIndex:idx_game_number;not null"`
	Sequence int       `gorm:"not null"`
	DrawnAt  time.Time `gorm:"not null"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Operator{},
		&Player{},
		&CardPool{},
		&CardInstance{},
		&WinningPattern{},
		&Game{},
		&DrawnBall{},
	}
}
