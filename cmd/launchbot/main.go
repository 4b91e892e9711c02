package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/coinlaunch/launchbot/internal/blockchain"
	"github.com/coinlaunch/launchbot/internal/commenter"
	"github.com/coinlaunch/launchbot/internal/config"
	"github.com/coinlaunch/launchbot/internal/http_api"
	"github.com/coinlaunch/launchbot/internal/ingest"
	"github.com/coinlaunch/launchbot/internal/minter"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/notificator"
	"github.com/coinlaunch/launchbot/internal/pinning"
	"github.com/coinlaunch/launchbot/internal/poller"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/internal/social"
	"github.com/coinlaunch/launchbot/internal/vault"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "launchbot",
		Usage: "Launchbot mints tokens requested through social mentions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "chain-rpc-url", Aliases: []string{"b"}, Usage: "Chain RPC URL"},
			&cli.StringFlag{Name: "launchpad-address", Aliases: []string{"s"}, Usage: "Launchpad contract address"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
			&cli.BoolFlag{Name: "mock", Aliases: []string{"m"}, Usage: "Mock mode: no chain or social API calls"},
			&cli.StringFlag{Name: "initial-liquidity", Aliases: []string{"l"}, Usage: "Initial liquidity per launch, in base units"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("chain-rpc-url") {
		cfg.ChainRPCURL = c.String("chain-rpc-url")
	}
	if c.IsSet("launchpad-address") {
		cfg.LaunchpadAddress = c.String("launchpad-address")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if c.IsSet("mock") {
		cfg.MockMode = c.Bool("mock")
	}
	if c.IsSet("initial-liquidity") {
		liquidity, ok := new(big.Int).SetString(c.String("initial-liquidity"), 10)
		if ok {
			cfg.InitialLiquidity = liquidity
		}
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	var repo models.Repository
	if cfg.MockMode {
		log.Warn("MOCK_MODE: using the in-memory repository")
		repo = repository.NewMemory()
	} else {
		repo, err = repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
	}

	// Initialize chain and social services
	var (
		chainService  models.ChainService
		socialService models.SocialService
		keyVault      models.KeyVault
	)
	if cfg.MockMode {
		log.Warn("MOCK_MODE: chain and social clients are fakes")
		chainService = blockchain.NewMock(cfg.NetworkID, log)
		socialService = social.NewMockSocial(log)
		keyVault, err = vault.NewVault("mock-secret", cfg.NetworkID, repo, log)
		if err != nil {
			return fmt.Errorf("failed to initialize key vault: %v", err)
		}
	} else {
		gocore, err := blockchain.NewGocore(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize blockchain service: %v", err)
		}
		if err := gocore.Run(); err != nil {
			return fmt.Errorf("failed to start blockchain service: %v", err)
		}
		defer gocore.Close()
		chainService = gocore

		if cfg.XBearerToken == "" {
			log.Warn("X_BEARER_TOKEN not set - using the mock social client")
			socialService = social.NewMockSocial(log)
		} else {
			socialService = social.NewXClient(cfg, repo, log)
		}

		keyVault, err = vault.NewVault(cfg.VaultSecret, cfg.NetworkID, repo, log)
		if err != nil {
			return fmt.Errorf("failed to initialize key vault: %v", err)
		}
	}

	// Initialize ops alerts
	var alerts models.AlertService
	telegram, err := notificator.NewTelegramNotificator(cfg.TelegramBotToken, cfg.TelegramOpsChatID, log)
	if err != nil {
		log.Warn("Ops alerts disabled: ", err)
		alerts = notificator.NewNoop(log)
	} else {
		alerts = telegram
	}

	// Assemble the pipeline
	pinningService := pinning.NewPinata(cfg.PinataJWT, cfg.PinataGateway, log)
	mint := minter.NewMinter(repo, chainService, keyVault, pinningService, cfg.InitialLiquidity, log)
	comment := commenter.NewCommenter(repo, socialService, cfg.ExplorerURL, log)
	ingestor := ingest.NewIngestor(cfg.XHandle, repo, socialService, log)
	pipeline := poller.NewPoller(repo, ingestor, mint, comment, alerts,
		time.Duration(cfg.PollingInterval)*time.Second, cfg.Concurrency, log)

	apiServer := http_api.NewHTTPServer(repo, socialService, chainService, keyVault, mint, cfg.APIPort, log)
	go apiServer.Start()

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline.Run(ctx)

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down HTTP server: ", err)
	}
	return nil
}
