package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	Broadcast  BroadcastConfig
	Credential CredentialConfig
	Scheduler  SchedulerConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type GatewayConfig struct {
	Endpoint    string
	Username    string
	Password    string
	Shortcode   string
	SenderID    string
	APIKey      string
	CountryCode string
	SendsPerSec int
}

type BroadcastConfig struct {
	BatchSize  int
	CostPerSMS float64
	StallAfter time.Duration
}

type CredentialConfig struct {
	Domain string
}

type SchedulerConfig struct {
	Interval time.Duration
}

func LoadAll() (*Config, error) {
	var errs []error

	collect := func(key string) string {
		v, err := requireEnv(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	collectInt := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	collectFloat := func(key string, def float64) float64 {
		v, err := getEnvFloat(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: collect("POSTGRES_URL"),
		},
		Gateway: GatewayConfig{
			Endpoint:    collect("GATEWAY_URL"),
			Username:    collect("GATEWAY_USERNAME"),
			Password:    collect("GATEWAY_PASSWORD"),
			Shortcode:   getEnv("GATEWAY_SHORTCODE", ""),
			SenderID:    getEnv("GATEWAY_SENDER_ID", ""),
			APIKey:      collect("GATEWAY_API_KEY"),
			CountryCode: getEnv("GATEWAY_COUNTRY_CODE", "260"),
			SendsPerSec: collectInt("GATEWAY_SENDS_PER_SEC", 10),
		},
		Broadcast: BroadcastConfig{
			BatchSize:  collectInt("BROADCAST_BATCH_SIZE", 50),
			CostPerSMS: collectFloat("BROADCAST_COST_PER_SMS", 0),
			StallAfter: time.Duration(collectInt("BROADCAST_STALL_AFTER_SECONDS", 600)) * time.Second,
		},
		Credential: CredentialConfig{
			Domain: collect("CREDENTIAL_DOMAIN"),
		},
		Scheduler: SchedulerConfig{
			Interval: time.Duration(collectInt("SCHED_INTERVAL_SECONDS", 2)) * time.Second,
		},
	}

	redisCfg, redisErrs := loadRedisConfig()
	cfg.Redis = redisCfg
	errs = append(errs, redisErrs...)

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, []error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 2)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, errs
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Broadcast.BatchSize <= 0 {
		errs = append(errs, errors.New("BROADCAST_BATCH_SIZE must be > 0"))
	}
	if cfg.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("SCHED_INTERVAL_SECONDS must be > 0"))
	}
	if len(cfg.Gateway.CountryCode) != 3 {
		errs = append(errs, errors.New("GATEWAY_COUNTRY_CODE must be 3 digits"))
	}
	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for env %s: %s", key, v)
	}
	return f, nil
}

func joinErrors(errs []error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return errors.Join(nonNil...)
}
