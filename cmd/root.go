package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-matcher"
)

type Config struct {
	Sources      []string       `mapstructure:"sources"`
	Jobs         []string       `mapstructure:"jobs"`
	ExcludeFile  string         `mapstructure:"exclude-file"`
	ExcludeHosts []string       `mapstructure:"exclude-hosts"`
	MaxJobs      int            `mapstructure:"max-jobs"`
	Format       string         `mapstructure:"format"`
	UserAgent    string         `mapstructure:"user-agent"`
	Fetcher      *FetcherConfig `mapstructure:"fetcher"`
	AI           *AIConfig      `mapstructure:"ai"`
	Server       *ServerConfig  `mapstructure:"server"`
}

type FetcherConfig struct {
	Provider  string           `mapstructure:"provider"`
	Firecrawl *FirecrawlConfig `mapstructure:"firecrawl"`
	Direct    *DirectConfig    `mapstructure:"direct"`
}

type FirecrawlConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	APIURL       string        `mapstructure:"api-url"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
}

type DirectConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	Burst             int           `mapstructure:"burst"`
	MaxContentLength  int           `mapstructure:"max-content-length"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores a resume against job postings scraped from career pages",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"fetcher.firecrawl.api-key-file": "FIRECRAWL_API_KEY_FILE",
		"ai.gemini.api-key-file":         "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("format", "text")
	viper.SetDefault("fetcher.provider", "firecrawl")
	viper.SetDefault("server.listen", ":8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys, ignored when missing")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("provider", "", "content fetcher: firecrawl or direct")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("fetcher.provider", rootCmd.PersistentFlags().Lookup("provider"))
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("loading env file %s: %v", envFile, err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A config file is optional unless it was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Fetcher == nil {
		config.Fetcher = &FetcherConfig{}
	}
	if config.Fetcher.Firecrawl == nil {
		config.Fetcher.Firecrawl = &FirecrawlConfig{}
	}
	if config.Fetcher.Direct == nil {
		config.Fetcher.Direct = &DirectConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
