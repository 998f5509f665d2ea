package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Poll     PollConfig     `mapstructure:"poll"`
	Clock    ClockConfig    `mapstructure:"clock"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres, mysql
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

type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpcUrl"`
	ChainID        int64         `mapstructure:"chainId"`
	FactoryAddress string        `mapstructure:"factoryAddress"`
	RevealVerifier string        `mapstructure:"revealVerifier"`
	PrivateKey     string        `mapstructure:"privateKey"` // hex, empty means read-only
	ConfirmTimeout time.Duration `mapstructure:"confirmTimeout"`
	GasLimit       uint64        `mapstructure:"gasLimit"` // 0 lets the node estimate
}

type EngineConfig struct {
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

type ClockConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

var GlobalConfig *Config

func setDefaults() {
	viper.SetDefault("server.port", "8645")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "keys.db")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("chain.confirmTimeout", 2*time.Minute)
	viper.SetDefault("engine.baseUrl", "http://127.0.0.1:3000")
	viper.SetDefault("engine.timeout", 60*time.Second)
	viper.SetDefault("poll.interval", 2*time.Second)
	viper.SetDefault("poll.cacheTTL", time.Second)
	viper.SetDefault("clock.tick", time.Second)
}

func LoadConfig(path string) {
	setDefaults()
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ZKPOKER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
