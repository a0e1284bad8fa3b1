package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	catalogx "github.com/aryanranjan/aria/brain/catalog"
	continuityx "github.com/aryanranjan/aria/brain/continuity"
	convlogx "github.com/aryanranjan/aria/brain/convlog"
	gatewayx "github.com/aryanranjan/aria/brain/gateway"
	orchestratorx "github.com/aryanranjan/aria/brain/orchestrator"
	sessionx "github.com/aryanranjan/aria/brain/session"
	workerx "github.com/aryanranjan/aria/brain/worker"
	configx "github.com/aryanranjan/aria/pkg/config"
	groqx "github.com/aryanranjan/aria/pkg/groq"
	_ "github.com/aryanranjan/aria/pkg/logger/autoload"
	twiliox "github.com/aryanranjan/aria/pkg/twilio"
	serverx "github.com/aryanranjan/aria/server"
)

func main() {
	redisCfg := configx.MustNew[sessionx.UpstashRedisConfig]("REDIS")
	store, err := sessionx.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}

	continuity, err := continuityx.New(store)
	if err != nil {
		log.Fatal().Err(err).Msg("continuity manager init failed")
	}

	groqCfg := configx.MustNew[groqx.Config]("GROQ")
	generator, err := gatewayx.NewGroq(*groqCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("groq gateway init failed")
	}

	logCfg := configx.MustNew[convlogx.Config]("CONVLOG")
	convlog, err := convlogx.NewPostgres(*logCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("conversation log init failed")
	}
	defer convlog.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	if err := convlog.Init(initCtx); err != nil {
		// Analytics is best-effort end to end; the brain replies without it.
		log.Warn().Err(err).Msg("conversation log schema init failed")
	}
	cancelInit()

	catalog := catalogx.NewMemory()
	workers := workerx.NewRegistry(catalog)

	brain, err := orchestratorx.New(continuity, generator, convlog, workers, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	var whatsapp *twiliox.Client
	if twilioCfg, err := configx.New[twiliox.Config]("TWILIO"); err == nil {
		if client, err := twiliox.NewClient(*twilioCfg); err == nil {
			whatsapp = client
		}
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv, err := serverx.New(*serverCfg, brain, store, convlog, whatsapp)
	if err != nil {
		log.Fatal().Err(err).Msg("server init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", serverCfg.Addr).Msg("aria is ready")
		return srv.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("aria exited with error")
	}
	log.Info().Msg("aria shutdown complete")
}
