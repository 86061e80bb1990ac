package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/farellandr/userevents/internal/notify"
	"github.com/farellandr/userevents/internal/repository"
	"github.com/farellandr/userevents/internal/store"
	"github.com/lmittmann/tint"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	BackendDynamo   = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel slog.Level

	StoreBackend string
	Tables       store.TableNames

	DynamoEndpoint     string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ScanBatchSize  int32
	ScanMaxRounds  int
	RoleStrategy   repository.RoleStrategy
	MemoryPageSize int32

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SeedSampleData bool
}

// InitLogger installs a tint handler as the default slog logger. It runs
// before LoadConfig so it reads LOG_LEVEL itself.
func InitLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:         envString("PORT", "8080"),
		GinMode:      envString("GIN_MODE", "release"),
		StoreBackend: strings.ToLower(envString("STORE_BACKEND", BackendDynamo)),
		Tables: store.TableNames{
			Users:     envString("USERS_TABLE_NAME", "Users"),
			Events:    envString("EVENTS_TABLE_NAME", "Events"),
			Relations: envString("USER_EVENT_RELATIONS_TABLE_NAME", "UserEventRelations"),
			EmailLogs: envString("EMAIL_LOGS_TABLE_NAME", "EmailLogs"),
		},

		DynamoEndpoint:     os.Getenv("DYNAMODB_ENDPOINT_URL"),
		AWSRegion:          envString("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     envString("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("invalid GIN_MODE %q: want debug, release or test", cfg.GinMode)
	}

	switch cfg.StoreBackend {
	case BackendDynamo, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want %s, %s or %s", cfg.StoreBackend, BackendDynamo, BackendPostgres, BackendMemory)
	}

	batch, err := envInt("SCAN_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	if batch < 1 {
		return nil, fmt.Errorf("invalid SCAN_BATCH_SIZE %d: must be positive", batch)
	}
	cfg.ScanBatchSize = int32(batch)

	if cfg.ScanMaxRounds, err = envInt("SCAN_MAX_ROUNDS", 20); err != nil {
		return nil, err
	}
	if cfg.ScanMaxRounds < 1 {
		return nil, fmt.Errorf("invalid SCAN_MAX_ROUNDS %d: must be positive", cfg.ScanMaxRounds)
	}

	if cfg.RoleStrategy, err = repository.ParseRoleStrategy(envString("ROLE_QUERY_STRATEGY", string(repository.RoleStrategyIndex))); err != nil {
		return nil, fmt.Errorf("invalid ROLE_QUERY_STRATEGY: %w", err)
	}

	pageSize, err := envInt("MEMORY_PAGE_SIZE", 0)
	if err != nil {
		return nil, err
	}
	cfg.MemoryPageSize = int32(pageSize)

	if cfg.SMTPPort, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	if cfg.SeedSampleData, err = envBool("SEED_SAMPLE_DATA", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Schema() store.Schema {
	return store.NewSchema(c.Tables)
}

func (c *Config) RepositoryOptions() repository.Options {
	return repository.Options{
		ScanBatchSize: c.ScanBatchSize,
		ScanMaxRounds: c.ScanMaxRounds,
		RoleStrategy:  c.RoleStrategy,
	}
}

// InitStore builds the configured backend wrapped with metrics. The returned
// cleanup releases its connections.
func InitStore(ctx context.Context, cfg *Config) (store.Backend, func(), error) {
	schema := cfg.Schema()
	switch cfg.StoreBackend {
	case BackendMemory:
		var opts []store.MemoryOption
		if cfg.MemoryPageSize > 0 {
			opts = append(opts, store.WithPageSize(cfg.MemoryPageSize))
		}
		return store.Instrument(store.NewMemoryBackend(schema, opts...), BackendMemory), func() {}, nil

	case BackendPostgres:
		db, err := InitDatabase(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		backend, err := store.NewPostgresBackend(db, schema)
		if err != nil {
			return nil, nil, err
		}
		if err := backend.EnsureTables(ctx); err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return store.Instrument(backend, BackendPostgres), cleanup, nil

	default:
		client, err := InitDynamoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.Instrument(store.NewDynamoBackend(client, schema), BackendDynamo), func() {}, nil
	}
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// InitDynamoClient loads the default AWS configuration, overriding the region,
// static credentials and endpoint when they are set (e.g. DynamoDB Local).
func InitDynamoClient(ctx context.Context, cfg *Config) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var dynamoOpts []func(*dynamodb.Options)
	if cfg.DynamoEndpoint != "" {
		dynamoOpts = append(dynamoOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		})
	}
	return dynamodb.NewFromConfig(awsCfg, dynamoOpts...), nil
}

// InitSender returns an SMTP sender, or a logging stand-in when SMTP_HOST is
// not set.
func InitSender(cfg *Config) notify.Sender {
	if cfg.SMTPHost == "" {
		slog.Warn("SMTP_HOST is not set, emails will only be logged")
		return notify.LogSender{}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func envString(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Debug("env not set, using default", key, def)
		return def
	}
	slog.Debug("env", key, v)
	return v
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	slog.Debug("env", key, n)
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
