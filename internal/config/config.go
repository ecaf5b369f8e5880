package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Vision    VisionConfig
	RemoveBG  RemoveBGConfig
	Watermark WatermarkConfig
	Worker    WorkerConfig
	Retry     RetryConfig
}

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type MongoConfig struct {
	URI          string        `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database     string        `env:"MONGO_DATABASE" env-default:"catalog"`
	QueryTimeout time.Duration `env:"MONGO_QUERY_TIMEOUT" env-default:"5s"`
}

type StorageConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket    string `env:"MINIO_BUCKET" env-default:"catalog-assets"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
	// PublicURL is the externally resolvable base used to build asset URLs.
	PublicURL string `env:"MINIO_PUBLIC_URL" env-default:"http://localhost:9000"`
}

type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	TasksTopic string   `env:"KAFKA_TASKS_TOPIC" env-default:"catalog-ingest-tasks"`
	GroupID    string   `env:"KAFKA_GROUP_ID" env-default:"catalog-ingest-workers"`
}

type VisionConfig struct {
	URL     string        `env:"VISION_URL" env-default:"http://localhost:11434"`
	Model   string        `env:"VISION_MODEL" env-default:"minicpm-v"`
	Timeout time.Duration `env:"VISION_TIMEOUT" env-default:"120s"`
}

type RemoveBGConfig struct {
	ModelPath   string `env:"REMOVEBG_MODEL_PATH" env-default:"./models/rmbg.onnx"`
	LibraryPath string `env:"REMOVEBG_ORT_LIBRARY" env-default:"./models/libonnxruntime.so"`
	InputSize   int    `env:"REMOVEBG_INPUT_SIZE" env-default:"1024"`
	// Threads caps intra-op parallelism; 0 leaves the runtime default.
	Threads int `env:"REMOVEBG_THREADS" env-default:"0"`
}

type WatermarkConfig struct {
	Text    string  `env:"WATERMARK_TEXT" env-default:"Corona Marine Parts"`
	Opacity float64 `env:"WATERMARK_OPACITY" env-default:"0.10"`
	Angle   float64 `env:"WATERMARK_ANGLE" env-default:"-35"`
}

type WorkerConfig struct {
	Concurrency int `env:"WORKER_CONCURRENCY" env-default:"4"`
}

type RetryConfig struct {
	Attempts int           `env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `env:"RETRY_DELAY" env-default:"500ms"`
	Backoff  float64       `env:"RETRY_BACKOFF" env-default:"2"`
}

func MustLoad() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Watermark.Opacity < 0 || c.Watermark.Opacity > 1 {
		return fmt.Errorf("watermark opacity must be between 0 and 1")
	}
	if c.RemoveBG.InputSize <= 0 {
		return fmt.Errorf("removebg input size must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive")
	}
	if _, err := os.Stat(c.RemoveBG.ModelPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat removebg model: %w", err)
	}
	return nil
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}
