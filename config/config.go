package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Paths    PathsConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// PathsConfig locates on-disk state. The database connection itself lives
// in the user-editable connection file under ConfigDir, not in env.
type PathsConfig struct {
	ConfigDir string
	DataDir   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers       []string
	TopicEvents   string
	TopicRequests string
	ConsumerGroup string
	Enabled       bool
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	TracingEnabled bool
}

// PipelineConfig carries per-stage command-line overrides, keyed by stage
// name. A bound stage shells out instead of running its built-in SQL.
type PipelineConfig struct {
	ExternalCommands map[string]string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Paths: PathsConfig{
			ConfigDir: getEnv("CONFIG_DIR", "."),
			DataDir:   getEnv("DATA_DIR", "./data"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicEvents:   getEnv("KAFKA_TOPIC_PIPELINE_EVENTS", "pipeline-events"),
			TopicRequests: getEnv("KAFKA_TOPIC_STAGE_REQUESTS", "pipeline-stage-requests"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "dw-pipeline-group"),
			Enabled:       getEnv("KAFKA_ENABLED", "true") == "true",
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			TracingEnabled: getEnv("TRACING_ENABLED", "true") == "true",
		},
		Pipeline: PipelineConfig{
			ExternalCommands: externalCommands(),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

// externalCommands reads PIPELINE_EXTERNAL_<STAGE> overrides, e.g.
// PIPELINE_EXTERNAL_DWD="python3 scripts/transform_dwd.py".
func externalCommands() map[string]string {
	out := make(map[string]string)
	for _, stage := range []string{"dwd", "dws", "ads"} {
		if v := os.Getenv("PIPELINE_EXTERNAL_" + strings.ToUpper(stage)); v != "" {
			out[stage] = v
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
