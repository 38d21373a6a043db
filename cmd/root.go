package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interviewer"
)

type Config struct {
	Job       uint             `mapstructure:"job"`
	Listen    string           `mapstructure:"listen"`
	Database  *DatabaseConfig  `mapstructure:"database"`
	Gateway   *GatewayConfig   `mapstructure:"gateway"`
	AI        *AIConfig        `mapstructure:"ai"`
	Events    *EventsConfig    `mapstructure:"events"`
	Interview *InterviewConfig `mapstructure:"interview"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type GatewayConfig struct {
	URL       string `mapstructure:"url"`
	TokenFile string `mapstructure:"token-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout-seconds"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type EventsConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type InterviewConfig struct {
	MaxFollowUps int `mapstructure:"max-follow-ups"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs asynchronous job interviews over a messaging channel and scores the answers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.dsn", "INTERVIEWER_DB_DSN"); err != nil {
		log.Fatalf("binding INTERVIEWER_DB_DSN environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("gateway.token-file", "GATEWAY_TOKEN_FILE"); err != nil {
		log.Fatalf("binding GATEWAY_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the serve and jobs commands. If there is no
	// config, we can skip initialization.
	if serveCmd.CalledAs() == "" && jobsAddCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
