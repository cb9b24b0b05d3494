package repo

import (
	"log"
	"strings"

	"bingo-service/internal/config"
	"bingo-service/internal/model"
	"bingo-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func dialector(conf config.DatabaseConfig) gorm.Dialector {
	switch strings.ToLower(conf.Driver) {
	case "mysql":
		return mysql.Open(conf.DSN)
	case "sqlite":
		return sqlite.Open(conf.DSN)
	default:
		return postgres.Open(conf.DSN)
	}
}

func InitDB() {
	conf := config.GlobalConfig.Database
	var err error
	DB, err = gorm.Open(dialector(conf), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", conf.Driver),
			zap.Error(err),
		)
	}

	if err := DB.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
