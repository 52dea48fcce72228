package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/genstudio/jobtrack/internal/config"
	"github.com/genstudio/jobtrack/internal/gateway"
	"github.com/genstudio/jobtrack/internal/httpapi"
	"github.com/genstudio/jobtrack/internal/media"
	"github.com/genstudio/jobtrack/internal/persistence"
	"github.com/genstudio/jobtrack/internal/track"
	"github.com/genstudio/jobtrack/pkg/log"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the job tracking daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

// swappableGateway lets the settings endpoint replace the gateway client
// without restarting in-flight poll loops.
type swappableGateway struct {
	mu     sync.RWMutex
	client *gateway.Client
}

func (g *swappableGateway) get() *gateway.Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client
}

func (g *swappableGateway) swap(client *gateway.Client) {
	g.mu.Lock()
	g.client = client
	g.mu.Unlock()
}

func (g *swappableGateway) CreateJob(ctx context.Context, req gateway.GenerationRequest) (*gateway.CreateJobResponse, error) {
	return g.get().CreateJob(ctx, req)
}

func (g *swappableGateway) JobStatus(ctx context.Context, taskID, provider string) (*gateway.StatusResponse, error) {
	return g.get().JobStatus(ctx, taskID, provider)
}

// sweepService registers the periodic stale-job sweep with the cron engine.
type sweepService struct {
	tracker *track.Tracker
	cron    *cron.Cron
	expr    string
}

func (s *sweepService) Schedule(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.expr, func() {
		active := s.tracker.Sweep(context.Background())
		log.Debug("Sweep finished, %d jobs still tracked", active)
	})
	return err
}

func runServe(ctx context.Context) error {
	settingsPath := config.RuntimeSettingsFilePath()

	var opts []config.Option
	if settings, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(settings))
	} else if !os.IsNotExist(err) {
		log.Warn("Ignoring settings file %s: %v", settingsPath, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return err
	}
	log.InitLogger(log.ParseLevel(cfg.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	gwClient, err := gateway.NewClient(&gateway.Config{
		APIURL:  cfg.Gateway.APIURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	})
	if err != nil {
		return err
	}
	gw := &swappableGateway{client: gwClient}

	tracker := track.New(store, gw, media.NewReducer())

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		return err
	}

	applySettings := func(next config.RuntimeSettings) error {
		client, err := gateway.NewClient(&gateway.Config{
			APIURL:  next.GatewayAPIURL,
			APIKey:  next.GatewayAPIKey,
			Timeout: cfg.Gateway.Timeout,
		})
		if err != nil {
			return err
		}
		gw.swap(client)
		log.Info("Gateway settings updated")
		return nil
	}

	cronEngine := cron.New()
	scheduler := &sweepService{
		tracker: tracker,
		cron:    cronEngine,
		expr:    cfg.Sweep.CronExpr,
	}

	httpSrv := httpapi.NewServer(
		tracker,
		httpapi.WithStatusQuerier(gw),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(applySettings),
		httpapi.WithSweepSchedule(cfg.Sweep.CronExpr),
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIStaticDir != ""),
	)

	// Jobs persisted by a previous run finish on their own schedule, the
	// server does not wait for them before accepting requests.
	go func() {
		err := tracker.Resume(ctx, func(job track.TrackedJob) track.Callbacks {
			return track.Callbacks{
				OnComplete: func(url string) {
					log.Info("Resumed job %s finished: %s", job.JobID, url)
				},
				OnError: func(message string) {
					log.Warn("Resumed job %s failed: %s", job.JobID, message)
				},
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Resume ended early: %v", err)
		}
	}()

	return runWithComponents(ctx, cfg, scheduler, cronEngine, httpSrv)
}

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpListener interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, cronEngine cronRunner, srv httpListener) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronEngine.Start()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		serveErr <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cronEngine.Stop()
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}
	cronEngine.Stop()
	return nil
}
