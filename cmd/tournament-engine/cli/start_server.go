package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradearena-io/tournament-engine/internal/api"
	"github.com/tradearena-io/tournament-engine/internal/clients/venueclient"
	"github.com/tradearena-io/tournament-engine/internal/config"
	"github.com/tradearena-io/tournament-engine/internal/db"
	dbmodel "github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/observability/tracing"
	"github.com/tradearena-io/tournament-engine/internal/queue"
	"github.com/tradearena-io/tournament-engine/internal/services"
	"github.com/tradearena-io/tournament-engine/internal/ws"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the tournament engine server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up tournament db model")
	}

	// create new db client
	mongoClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient := db.NewDbWithMetrics(mongoClient)

	venueClient := venueclient.NewVenueClient(&cfg.Venue)

	queueManager, err := queue.NewQueueManager(&cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize queue manager")
	}
	defer queueManager.Shutdown()

	hub := ws.NewHub()

	service := services.NewService(cfg, dbClient, venueClient, queueManager, hub)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service.StartEngineSync(ctx)

	apiServer := api.New(&cfg.Api, service, dbClient, hub)
	if err := apiServer.Start(ctx); err != nil {
		log.Error().Err(err).Msg("API server stopped with error")
		return err
	}

	log.Info().Msg("Tournament engine shut down")
	return nil
}
