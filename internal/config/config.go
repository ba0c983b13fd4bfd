package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTAccessTTL     time.Duration
	RefreshTTL       time.Duration
	MaxSessions      int
	ResetTokenTTL    time.Duration
	VerifyTokenTTL   time.Duration
	LoginRatePerMin  int
	LoginRateBurst   int
}

type UploadConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

type WorkerConfig struct {
	Stream       string
	Group        string
	Consumer     string
	BlockTimeout time.Duration
	ClaimMinIdle time.Duration
}

type JobsConfig struct {
	SessionsCleanupSpec string
	FilesCleanupSpec    string
	OrphanCutoff        time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Upload           UploadConfig
	Worker           WorkerConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("KNOWLEDGE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucket", "knowledge-files")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "30m")
	v.SetDefault("security.refreshttl", "168h") // 7 days
	v.SetDefault("security.maxsessions", 10)
	v.SetDefault("security.resettokenttl", "1h")
	v.SetDefault("security.verifytokenttl", "24h")
	v.SetDefault("security.loginratepermin", 10)
	v.SetDefault("security.loginrateburst", 5)

	v.SetDefault("upload.maxsizebytes", 10<<20)
	v.SetDefault("upload.allowedextensions", ".jpg,.jpeg,.png,.gif,.webp,.svg,.pdf,.doc,.docx,.txt,.md,.tex,.bib,.csv,.xlsx,.pptx,.zip")

	v.SetDefault("worker.stream", "knowledge:maintenance")
	v.SetDefault("worker.group", "maintenance-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.blocktimeout", "5s")
	v.SetDefault("worker.claimminidle", "1m")

	v.SetDefault("jobs.sessionscleanupspec", "0 0 3 * * *")
	v.SetDefault("jobs.filescleanupspec", "0 30 3 * * *")
	v.SetDefault("jobs.orphancutoff", "720h") // 30 days
}
