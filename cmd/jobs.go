package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hireflow/interviewer/internal/interview"
	"github.com/hireflow/interviewer/internal/logger"
	"github.com/hireflow/interviewer/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage interview job templates",
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Interactively create a job template",
	Run: func(_ *cobra.Command, _ []string) {
		addJob()
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsAddCmd)
}

func addJob() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.Database == nil || strings.TrimSpace(config.Database.DSN) == "" {
		logger.Fatal("database dsn is required",
			zap.String("hint", "set INTERVIEWER_DB_DSN or the 'database.dsn' key in the configuration file"),
		)
	}

	job, err := promptJob()
	if err != nil {
		logger.Fatal("collecting the job template", zap.Error(err))
	}

	confirm := promptui.Select{
		Label: fmt.Sprintf("Create job %q with %d questions?", job.Title, len(job.Questions)),
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := confirm.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
	if answer != PromptYes {
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	db, err := store.Open(config.Database.DSN)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}

	id, err := store.NewJobs(db).Create(context.Background(), job)
	if err != nil {
		logger.Fatal("creating the job template", zap.Error(err))
	}

	logger.Info("job template created",
		zap.Uint("job_id", id),
		zap.String("title", job.Title),
		zap.String("language", job.Language),
		zap.Int("questions", len(job.Questions)),
	)
}

func promptJob() (*interview.Job, error) {
	title, err := (&promptui.Prompt{
		Label: "Job title",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("title must not be empty")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return nil, err
	}

	_, language, err := (&promptui.Select{
		Label: "Interview language",
		Items: []string{"en", "es"},
	}).Run()
	if err != nil {
		return nil, err
	}

	roleInfo, err := (&promptui.Prompt{
		Label: "Role description for scoring (optional)",
	}).Run()
	if err != nil {
		return nil, err
	}

	var questions []string
	for {
		question, err := (&promptui.Prompt{
			Label: fmt.Sprintf("Question %d (empty to finish)", len(questions)+1),
		}).Run()
		if err != nil {
			return nil, err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			break
		}
		questions = append(questions, question)
	}

	return &interview.Job{
		Title:     strings.TrimSpace(title),
		RoleInfo:  strings.TrimSpace(roleInfo),
		Language:  language,
		Questions: questions,
	}, nil
}
