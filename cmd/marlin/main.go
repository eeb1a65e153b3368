package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/tesserapt/marlin/internal/amm"
	"github.com/tesserapt/marlin/internal/config"
	"github.com/tesserapt/marlin/internal/converter"
	"github.com/tesserapt/marlin/internal/engine"
	"github.com/tesserapt/marlin/internal/logger"
	"github.com/tesserapt/marlin/internal/oracle"
	"github.com/tesserapt/marlin/internal/staking"
	"github.com/tesserapt/marlin/internal/state"
	"github.com/tesserapt/marlin/internal/tokenization"
	"github.com/tesserapt/marlin/internal/types"
	"github.com/tesserapt/marlin/internal/web"
	"github.com/tesserapt/marlin/internal/wrapper"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ConverterEscrow is the pool-side identity for the converter's swaps.
const ConverterEscrow = types.Address("marlin/converter-escrow")

// main is the entry point for the marlin engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Marlin Engine Starting...")

	// Initialize Database Connection (audit trail)
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Component Initialization ---
	admin := types.Address(config.AdminAddress)
	params := config.DefaultParameters

	priceOracle, err := oracle.New(oracle.Config{
		Admin:              admin,
		MaxDeviationBps:    params.MaxDeviationBps,
		MinUpdateInterval:  params.MinUpdateInterval,
		StalenessThreshold: params.StalenessThreshold,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price oracle")
	}

	splitter, err := tokenization.New(tokenization.Config{
		Admin:  admin,
		Name:   config.TokenName,
		Symbol: config.TokenSymbol,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token splitter")
	}

	syWrapper, err := wrapper.New(wrapper.Config{
		Admin:        admin,
		Name:         config.TokenName,
		Symbol:       config.TokenSymbol,
		YieldRateBps: params.YieldRateBps,
		SY:           splitter,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token wrapper")
	}

	pool, err := amm.New(amm.Config{
		Admin:   admin,
		FeeRate: params.SwapFeeRate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AMM pool")
	}

	stakingEngine, err := staking.New(staking.Config{
		Admin:          admin,
		RewardAmount:   params.RewardAmount,
		RewardInterval: params.RewardInterval,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize staking engine")
	}

	autoConverter, err := converter.New(converter.Config{
		Admin:      admin,
		Prices:     priceOracle,
		Market:     engine.NewPoolMarket(pool, ConverterEscrow),
		Maturities: splitter,
		FeeBps:     params.ConversionFeeBps,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auto-converter")
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating engine instance with dependency injection...")
	eng, err := engine.New(engine.Config{
		Oracle:    priceOracle,
		Wrapper:   syWrapper,
		Splitter:  splitter,
		Pool:      pool,
		Staking:   stakingEngine,
		Converter: autoConverter,
		Store:     state.NewPostgresStore(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	// --- 4. Start Web Server ---
	webServer := web.NewWebServer(eng, config.WebPort)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting marlin API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Wait for Shutdown Signal ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, stopping...")
}
