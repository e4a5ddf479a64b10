package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"askpdf/internal/config"
	"askpdf/internal/embedding"
	"askpdf/internal/llmservice"
	"askpdf/internal/web"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	addr := flag.String("addr", "", "Address to listen on, overrides the config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	log.Debug().
		Str("model", cfg.LLM.Model).
		Str("embedding_model", cfg.EmbedLLM.Model).
		Interface("rag", cfg.RAG).
		Msg("Loaded config")

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.EmbedBatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm, err := llmservice.NewLLM(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg, embedder, llmservice.NewAnswerer(llm))
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error running web server")
	}
}
