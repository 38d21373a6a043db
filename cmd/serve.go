package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/ai"
	"github.com/hireflow/interviewer/internal/ai/gemini"
	"github.com/hireflow/interviewer/internal/events"
	"github.com/hireflow/interviewer/internal/gateway"
	"github.com/hireflow/interviewer/internal/interview"
	"github.com/hireflow/interviewer/internal/logger"
	"github.com/hireflow/interviewer/internal/secrets"
	"github.com/hireflow/interviewer/internal/store"
)

const defaultListen = ":8080"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview webhook server",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Uint("job", 0, "id of the job template to interview for")
	serveCmd.Flags().String("listen", "", "listen address for the webhook server")

	viper.BindPFlag("job", serveCmd.Flags().Lookup("job"))
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Job == 0 {
		logger.Fatal("a job template id is required under the 'job' key or --job flag")
	}

	if config.Database == nil || strings.TrimSpace(config.Database.DSN) == "" {
		logger.Fatal("database dsn is required",
			zap.String("hint", "set INTERVIEWER_DB_DSN or the 'database.dsn' key in the configuration file"),
		)
	}

	db, err := store.Open(config.Database.DSN)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}

	jobs := store.NewJobs(db)
	sessions := store.NewSessions(db)
	submissions := store.NewSubmissions(db)

	if _, err := jobs.Get(ctx, config.Job); err != nil {
		logger.Fatal("loading the configured job template", zap.Uint("job_id", config.Job), zap.Error(err))
	}

	delegate, scorer, err := newAIClients(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the ai clients", zap.Error(err))
	}

	publisher := newEventsPublisher(config.Events, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	maxFollowUps := 0
	if config.Interview != nil {
		maxFollowUps = config.Interview.MaxFollowUps
	}

	pipeline := interview.NewPipeline(scorer, submissions, logger)
	engine := interview.NewEngine(config.Job, maxFollowUps, interview.Deps{
		Jobs:     jobs,
		Sessions: sessions,
		Delegate: delegate,
		Scoring:  pipeline,
		Events:   publisher,
		Logger:   logger,
	})

	sender := newSender(config.Gateway, logger)

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	gateway.NewHandler(engine, sender, submissions, config.Job, logger).Register(router)

	listen := config.Listen
	if listen == "" {
		listen = defaultListen
	}

	logger.Info("webhook server listening", zap.String("address", listen), zap.Uint("job_id", config.Job))
	if err := router.Run(listen); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newAIClients(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Delegate, ai.Scorer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, nil, err
	}

	aiLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", generator.Model()),
	)

	timeout := time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second
	responder := gemini.NewResponder(generator, aiLogger, timeout, cfg.Gemini.MaxLogLength)
	evaluator := gemini.NewEvaluator(generator, aiLogger, timeout, cfg.Gemini.MaxLogLength)

	return responder, evaluator, nil
}

func newEventsPublisher(cfg *EventsConfig, logger *zap.Logger) *events.Publisher {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		logger.Info("telemetry events disabled", zap.String("reason", "no events url configured"))
		return nil
	}

	queue := cfg.Queue
	if queue == "" {
		queue = "interview_events"
	}

	publisher, err := events.New(cfg.URL, queue, logger)
	if err != nil {
		logger.Warn("telemetry events disabled", zap.Error(err))
		return nil
	}

	logger.Info("telemetry events enabled", zap.String("queue", queue))
	return publisher
}

func newSender(cfg *GatewayConfig, logger *zap.Logger) gateway.Sender {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		logger.Info("outbound sending disabled", zap.String("reason", "no gateway url configured"))
		return nil
	}

	token := ""
	if cfg.TokenFile != "" {
		loaded, err := secrets.Load(secrets.Source{
			Name: "gateway token",
			File: cfg.TokenFile,
		})
		if err != nil {
			logger.Fatal("loading the gateway token", zap.Error(err))
		}
		token = loaded
	}

	return gateway.NewClient(strings.TrimRight(cfg.URL, "/"), token, logger)
}
