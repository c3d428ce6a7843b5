package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"certhub/config"
	"certhub/dep"
	"certhub/handler"
	"certhub/middleware"
	"certhub/pkg/logutil"
	"certhub/pkg/router"
	"certhub/pkg/service"
	"certhub/render"
	"certhub/repo"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type server struct {
	ctx context.Context
	opt *config.Option
	cfg *config.Config

	baseRepo       repo.BaseRepo
	baseCache      repo.BaseCache
	campaignRepo   repo.CampaignRepo
	recipientRepo  repo.RecipientRepo
	planRepo       repo.PlanRepo
	typographyRepo repo.TypographyRepo
	userRepo       repo.UserRepo
	sessionRepo    repo.SessionRepo
	fileRepo       repo.FileRepo

	emailService dep.EmailService
	fetcher      dep.Fetcher

	dispatcher handler.Dispatcher

	// api handlers
	campaignHandler    handler.CampaignHandler
	certificateHandler handler.CertificateHandler
	typographyHandler  handler.TypographyHandler
}

func main() {
	s := new(server)
	if err := service.Run(s); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func (s *server) Init() error {
	opt := config.NewOptions()

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		opt.LogLevel = logLevel
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		opt.ConfigPath = configPath
	}

	if serverPort := os.Getenv("PORT"); serverPort != "" {
		if port, err := strconv.Atoi(serverPort); err == nil {
			opt.Port = port
		}
	}

	s.opt = opt

	return nil
}

func (s *server) Start() error {
	var err error

	// ====== init logger ===== //

	s.ctx = logutil.InitZeroLog(context.Background(), s.opt.LogLevel)

	// ===== init config ===== //

	s.cfg = config.NewConfig()
	if err = s.cfg.Load(s.ctx, s.opt.ConfigPath); err != nil {
		log.Ctx(s.ctx).Error().Msgf("load config failed, err: %v", err)
		return err
	}

	// ===== init repos ===== //

	s.baseRepo, err = repo.NewBaseRepo(s.ctx, s.cfg.MetadataDB)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init base repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.baseRepo != nil {
			if err := s.baseRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	s.baseCache = repo.NewBaseCache(s.ctx)

	s.fileRepo, err = repo.NewFileRepo(s.ctx, s.cfg.FileStore)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init file repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.fileRepo != nil {
			if err := s.fileRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close file repo failed, err: %v", err)
				return
			}
		}
	}()

	s.campaignRepo = repo.NewCampaignRepo(s.ctx, s.baseRepo)
	s.recipientRepo = repo.NewRecipientRepo(s.ctx, s.baseRepo)
	s.planRepo = repo.NewPlanRepo(s.ctx, s.baseRepo, s.baseCache)
	s.typographyRepo = repo.NewTypographyRepo(s.ctx, s.baseRepo)
	s.userRepo = repo.NewUserRepo(s.ctx, s.baseRepo)
	s.sessionRepo = repo.NewSessionRepo(s.ctx, s.baseRepo)

	// ===== init deps ===== //

	s.emailService, err = dep.NewEmailService(s.ctx, s.cfg.Brevo, s.cfg.Sender)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init email service failed, err: %v", err)
		return err
	}

	s.fetcher = dep.NewFetcher(s.ctx)

	// ===== init handlers ===== //

	s.dispatcher = handler.NewDispatcher(s.campaignRepo, s.recipientRepo, s.emailService, s.cfg.WebPages, s.cfg.Dispatch)

	s.campaignHandler = handler.NewCampaignHandler(s.campaignRepo, s.planRepo, s.typographyRepo, s.fileRepo, s.dispatcher)
	s.certificateHandler = handler.NewCertificateHandler(s.campaignRepo, s.recipientRepo, s.typographyRepo,
		s.fileRepo, s.baseCache, s.fetcher, render.NewCompositor())
	s.typographyHandler = handler.NewTypographyHandler(s.typographyRepo, s.fileRepo)

	// ===== start server ===== //

	go func() {
		addr := fmt.Sprintf(":%d", s.opt.Port)

		log.Info().Msgf("starting HTTP server at %s", addr)

		c := cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type", "X-Session-ID"},
			AllowCredentials: true,
		})

		httpServer := &http.Server{
			BaseContext: func(_ net.Listener) context.Context {
				return s.ctx
			},
			Addr:    addr,
			Handler: middleware.Log(c.Handler(s.registerRoutes())),
		}
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fail to start HTTP server, err: %v", err)
		}
	}()

	return nil
}

func (s *server) Stop() error {
	if s.baseRepo != nil {
		if err := s.baseRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
			return err
		}
	}

	if s.baseCache != nil {
		if err := s.baseCache.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base cache failed, err: %v", err)
			return err
		}
	}

	if s.fileRepo != nil {
		if err := s.fileRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close file repo failed, err: %v", err)
			return err
		}
	}

	if s.emailService != nil {
		if err := s.emailService.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close email service failed, err: %v", err)
			return err
		}
	}

	return nil
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct{}

func (s *server) registerRoutes() http.Handler {
	r := &router.HttpRouter{
		Router: mux.NewRouter(),
	}

	sessionMiddleware := router.NewSessionMiddleware(s.userRepo, s.sessionRepo)

	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathHealthCheck,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(HealthCheckRequest),
			Res: new(HealthCheckResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return nil
			},
		},
	})

	// create_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathCreateCampaign,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.CreateCampaignRequest),
			Res: new(handler.CreateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.CreateCampaign(ctx, req.(*handler.CreateCampaignRequest), res.(*handler.CreateCampaignResponse))
			},
		},
	})

	// get_campaigns
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathGetCampaigns,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.GetCampaignsRequest),
			Res: new(handler.GetCampaignsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaigns(ctx, req.(*handler.GetCampaignsRequest), res.(*handler.GetCampaignsResponse))
			},
		},
	})

	// get_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathGetCampaign,
		Method:      http.MethodGet,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.GetCampaignRequest),
			Res: new(handler.GetCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaign(ctx, req.(*handler.GetCampaignRequest), res.(*handler.GetCampaignResponse))
			},
		},
	})

	// update_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathUpdateCampaign,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.UpdateCampaignRequest),
			Res: new(handler.UpdateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.UpdateCampaign(ctx, req.(*handler.UpdateCampaignRequest), res.(*handler.UpdateCampaignResponse))
			},
		},
	})

	// delete_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathDeleteCampaign,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.DeleteCampaignRequest),
			Res: new(handler.DeleteCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.DeleteCampaign(ctx, req.(*handler.DeleteCampaignRequest), res.(*handler.DeleteCampaignResponse))
			},
		},
	})

	// upload_template
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathUploadTemplate,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.UploadTemplateRequest),
			Res: new(handler.UploadTemplateResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.UploadTemplate(ctx, req.(*handler.UploadTemplateRequest), res.(*handler.UploadTemplateResponse))
			},
		},
	})

	// upload_recipients
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathUploadRecipients,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.UploadRecipientsRequest),
			Res: new(handler.UploadRecipientsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.UploadRecipients(ctx, req.(*handler.UploadRecipientsRequest), res.(*handler.UploadRecipientsResponse))
			},
		},
	})

	// activate_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathActivateCampaign,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.ActivateCampaignRequest),
			Res: new(handler.ActivateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.ActivateCampaign(ctx, req.(*handler.ActivateCampaignRequest), res.(*handler.ActivateCampaignResponse))
			},
		},
	})

	// claim_certificate, public
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathClaimCertificate,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.ClaimCertificateRequest),
			Res: new(handler.ClaimCertificateResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.certificateHandler.ClaimCertificate(ctx, req.(*handler.ClaimCertificateRequest), res.(*handler.ClaimCertificateResponse))
			},
		},
	})

	// download_certificate, public, streams the PNG
	r.Methods(http.MethodGet).
		Path(fmt.Sprintf("/api/v1%s", config.PathDownloadCertificate)).
		HandlerFunc(s.certificateHandler.DownloadCertificate)

	// create_typography
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathCreateTypography,
		Method:      http.MethodPost,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.CreateTypographyRequest),
			Res: new(handler.CreateTypographyResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.typographyHandler.CreateTypography(ctx, req.(*handler.CreateTypographyRequest), res.(*handler.CreateTypographyResponse))
			},
		},
	})

	// get_typographies
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:        config.PathGetTypographies,
		Method:      http.MethodGet,
		Middlewares: []router.Middleware{sessionMiddleware},
		Handler: router.Handler{
			Req: new(handler.GetTypographiesRequest),
			Res: new(handler.GetTypographiesResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.typographyHandler.GetTypographies(ctx, req.(*handler.GetTypographiesRequest), res.(*handler.GetTypographiesResponse))
			},
		},
	})

	return r
}
