package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	LLM     LLMConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host                string
	Port                int
	ReadTimeout         int
	WriteTimeout        int
	BodyLimit           int
	ExperimentRateLimit int
}

// DataConfig locates the tabular store: a directory of CSV files plus a
// schema metadata JSON document.
type DataConfig struct {
	Dir string
}

type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float32
	TimeoutSec     int
	ThinkingBudget int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/unstructured-analytics")

	viper.SetEnvPrefix("UNSTRUCTURED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 120)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.experimentRateLimit", 30)

	viper.SetDefault("data.dir", "./data")

	viper.SetDefault("llm.baseURL", "https://generativelanguage.googleapis.com/v1beta/openai/")
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.model", "gemini-2.5-flash")
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.timeoutSec", 120)
	viper.SetDefault("llm.thinkingBudget", 4096)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
