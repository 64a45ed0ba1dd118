package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/neurlang/mldemos/cloud"
	"github.com/neurlang/mldemos/config"
	"github.com/neurlang/mldemos/logger"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	projectID := flag.String("project", "", "Google Cloud project id")
	location := flag.String("location", "", "model region")
	modelID := flag.String("model", "", "AutoML model id")
	content := flag.String("content", "", "text to classify")
	mimeType := flag.String("mime-type", "", "text/plain or text/html")
	flag.Parse()

	cfg, err := config.LoadPredict(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.ApplyOverrides(config.PredictOverrides{
		ProjectID: *projectID,
		Location:  *location,
		ModelID:   *modelID,
		Content:   *content,
		MimeType:  *mimeType,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.AppName, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal().Err(err).Msg("prediction failed")
	}
}

func run(ctx context.Context, cfg *config.Predict) error {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	name := cloud.ModelName(cfg.ProjectID, cfg.Location, cfg.ModelID)
	classifier, err := cloud.Dial(ctx, name, cfg.MimeType, opts...)
	if err != nil {
		return err
	}
	defer classifier.Close()

	payloads, err := classifier.Predict(ctx, cfg.Content)
	if err != nil {
		return err
	}
	return cloud.PrintAnnotations(os.Stdout, payloads)
}
