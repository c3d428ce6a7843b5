package main

import (
	"context"
	"fmt"
	"os"

	"certhub/config"
	"certhub/dep"
	"certhub/handler"
	"certhub/job/run_campaigns"
	"certhub/pkg/logutil"
	"certhub/pkg/service"
	"certhub/repo"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		opt = config.NewOptions()
		ctx = logutil.InitZeroLog(context.Background(), config.LogLevelDebug)
	)

	cfg := config.NewConfig()
	if err := cfg.Load(ctx, opt.ConfigPath); err != nil {
		log.Ctx(ctx).Error().Msgf("load config failed: %v", err)
		os.Exit(1)
	}

	// base repo
	baseRepo, err := repo.NewBaseRepo(ctx, cfg.MetadataDB)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init base repo failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if baseRepo != nil {
			if err := baseRepo.Close(ctx); err != nil {
				log.Ctx(ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	campaignRepo := repo.NewCampaignRepo(ctx, baseRepo)
	recipientRepo := repo.NewRecipientRepo(ctx, baseRepo)

	emailService, err := dep.NewEmailService(ctx, cfg.Brevo, cfg.Sender)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init email service failed, err: %v", err)
		os.Exit(1)
	}

	dispatcher := handler.NewDispatcher(campaignRepo, recipientRepo, emailService, cfg.WebPages, cfg.Dispatch)

	jobs := map[string]service.Job{
		"run-campaigns": run_campaigns.New(campaignRepo, dispatcher, cfg.Dispatch.MaxConcurrentRun),
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <job_name>")
		os.Exit(1)
	}

	jobName := os.Args[1]
	job, exists := jobs[jobName]
	if !exists {
		log.Ctx(ctx).Error().Msgf("job %s not found", jobName)
		os.Exit(1)
	}

	if err := job.Init(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("init job err: %v", err)
		os.Exit(1)
	}

	if err := job.Run(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("run job err: %v", err)
		os.Exit(1)
	}

	if err := job.CleanUp(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("cleanup job err: %v", err)
		os.Exit(1)
	}

	log.Ctx(ctx).Info().Msg("job executed successfully")
	os.Exit(0)
}
