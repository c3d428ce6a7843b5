package run_campaigns

import (
	"context"

	"certhub/entity"
	"certhub/handler"
	"certhub/pkg/service"
	"certhub/repo"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RunCampaigns resumes delivery of campaigns stuck in SENDING, typically after
// a server restart. Recipients already SENT or FAILED are left untouched.
type RunCampaigns struct {
	campaignRepo repo.CampaignRepo
	dispatcher   handler.Dispatcher
	concurrency  int
}

func New(campaignRepo repo.CampaignRepo, dispatcher handler.Dispatcher, concurrency int) service.Job {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RunCampaigns{
		campaignRepo: campaignRepo,
		dispatcher:   dispatcher,
		concurrency:  concurrency,
	}
}

func (h *RunCampaigns) Init(_ context.Context) error {
	return nil
}

func (h *RunCampaigns) Run(ctx context.Context) error {
	campaigns, err := h.campaignRepo.GetManyByStatus(ctx, entity.CampaignStatusSending)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get sending campaigns failed: %v", err)
		return err
	}

	log.Ctx(ctx).Info().Msgf("number of campaigns to be resumed: %d", len(campaigns))

	var (
		g  = new(errgroup.Group)
		ch = make(chan struct{}, h.concurrency)
	)
	for _, campaign := range campaigns {
		ch <- struct{}{}

		campaign := campaign
		g.Go(func() error {
			defer func() {
				<-ch
			}()

			if err := h.dispatcher.RunCampaign(ctx, campaign); err != nil {
				// log and move on, one bad campaign must not stop the rest
				log.Ctx(ctx).Error().Msgf("[campaign ID %d] run failed: %v", campaign.GetID(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (h *RunCampaigns) CleanUp(_ context.Context) error {
	return nil
}
