package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teamwerk/akquise-pilot/internal/admission"
	"github.com/teamwerk/akquise-pilot/internal/policy"
	"github.com/teamwerk/akquise-pilot/internal/scoring"
)

const (
	app = "akquise-pilot"
)

type Config struct {
	Database     *DatabaseConfig `mapstructure:"database"`
	AI           *AIConfig       `mapstructure:"ai"`
	Scoring      *scoring.Config `mapstructure:"scoring"`
	Thresholds   *policy.Config  `mapstructure:"thresholds"`
	Admission    *admission.Caps `mapstructure:"admission"`
	Run          *RunConfig      `mapstructure:"run"`
	ProfilesFile string          `mapstructure:"profiles-file"`
}

type DatabaseConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	SuggestRates   bool   `mapstructure:"suggest-rates"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type RunConfig struct {
	TopK        int `mapstructure:"top-k"`
	MaxParallel int `mapstructure:"max-parallel"`
	Limit       int `mapstructure:"limit"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "akquise-pilot matches sourced freelance and tender opportunities against the team and decides whether to apply",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("database.dsn", "DATABASE_URL"); err != nil {
		log.Fatalf("binding DATABASE_URL environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is akquise-pilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error. A missing file
	// is fine: built-in defaults cover everything but the database.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.Scoring == nil {
		cfg := scoring.DefaultConfig()
		config.Scoring = &cfg
	}
	if config.Thresholds == nil {
		cfg := policy.DefaultConfig()
		config.Thresholds = &cfg
	}
	if config.Admission == nil {
		config.Admission = &admission.Caps{
			Freelance: admission.DefaultFreelanceCap,
			Tender:    admission.DefaultTenderCap,
		}
	}
	if config.Run == nil {
		config.Run = &RunConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}

	return config, nil
}
