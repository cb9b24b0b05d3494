package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Bingo    BingoConfig    `mapstructure:"bingo"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	Mode         string   `mapstructure:"mode"` // debug, release
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type BingoConfig struct {
	GenerationAttempts int                  `mapstructure:"generationAttempts"`
	DrawAttempts       int                  `mapstructure:"drawAttempts"`
	LockTTLSeconds     int                  `mapstructure:"lockTTLSeconds"`
	LockWaitMillis     int                  `mapstructure:"lockWaitMillis"`
	Seed               uint64               `mapstructure:"seed"` // 0 = crypto seeded
	DefaultPatterns    []string             `mapstructure:"defaultPatterns"`
	Operator           OperatorDefaultsConf `mapstructure:"operator"`
}

type OperatorDefaultsConf struct {
	MaxCardsPerPlayer int      `mapstructure:"maxCardsPerPlayer"`
	MaxCardsPerPool   int      `mapstructure:"maxCardsPerPool"`
	AllowedFormats    []string `mapstructure:"allowedFormats"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("bingo.generationAttempts", 100)
	v.SetDefault("bingo.drawAttempts", 50)
	v.SetDefault("bingo.lockTTLSeconds", 10)
	v.SetDefault("bingo.lockWaitMillis", 2000)
	v.SetDefault("bingo.defaultPatterns", []string{"horizontal_line", "vertical_line", "full_card"})
	v.SetDefault("bingo.operator.maxCardsPerPlayer", 5)
	v.SetDefault("bingo.operator.maxCardsPerPool", 100)
	v.SetDefault("bingo.operator.allowedFormats", []string{"75", "85", "90"})
}

func LoadConfig(path string) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
