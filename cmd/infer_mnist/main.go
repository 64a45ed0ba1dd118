package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/neurlang/mldemos/config"
	"github.com/neurlang/mldemos/cv"
	"github.com/neurlang/mldemos/datasets/mnist"
	"github.com/neurlang/mldemos/inference"
	"github.com/neurlang/mldemos/logger"
	"github.com/neurlang/mldemos/model"
	"github.com/neurlang/mldemos/model/registry"
	"github.com/neurlang/mldemos/net/feedforward"
	"github.com/neurlang/mldemos/trainer"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	modelDir := flag.String("model-dir", "", "directory of the saved model")
	modelName := flag.String("name", "", "model name")
	imageURL := flag.String("image", "", "image URL or path to classify")
	topK := flag.Int("top-k", 0, "number of classes printed")
	evaluate := flag.Bool("evaluate", false, "evaluate the model on the MNIST test set")
	dataDir := flag.String("data-dir", "", "MNIST cache directory")
	reg := flag.String("registry", "", "model registry database; resolves the model directory by name")
	logLevel := flag.String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	flag.Parse()

	cfg, err := config.LoadInfer(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.ApplyOverrides(config.InferOverrides{
		ModelDir:  *modelDir,
		ModelName: *modelName,
		Image:     *imageURL,
		TopK:      *topK,
		Evaluate:  *evaluate,
		DataDir:   *dataDir,
		Registry:  *reg,
		LogLevel:  *logLevel,
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
		log.Fatal().Err(err).Msg("inference failed")
	}
}

func resolveDir(cfg *config.Infer) (string, error) {
	if cfg.Registry == "" {
		return cfg.ModelDir, nil
	}
	r, err := registry.Open(cfg.Registry)
	if err != nil {
		return "", err
	}
	defer r.Close()
	entry, err := r.Get(cfg.ModelName)
	if err != nil {
		return "", err
	}
	log.Debug().Str("model", entry.Name).Str("dir", entry.Dir).Int("epoch", entry.Epoch).Msg("model resolved")
	return entry.Dir, nil
}

func run(ctx context.Context, cfg *config.Infer) error {
	dir, err := resolveDir(cfg)
	if err != nil {
		return err
	}
	m := model.New(cfg.ModelName, feedforward.NewMLP(mnist.ImgSize*mnist.ImgSize, mnist.Classes, 128, 64))
	if err := m.Load(dir); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Int("epoch", m.Epoch()).Msg("model loaded")

	if cfg.Evaluate {
		_, test, err := mnist.New(ctx, mnist.Options{CacheDir: cfg.DataDir, MirrorURL: cfg.MirrorURL})
		if err != nil {
			return err
		}
		ev, err := trainer.Evaluate(m.Network(), test, 100)
		if err != nil {
			return err
		}
		log.Info().
			Int("correct", ev.Correct).
			Int("total", ev.Total).
			Int("percent", ev.Percent()).
			Hex("fingerprint", ev.Fingerprint[:]).
			Msg("test set evaluated")
	}

	if cfg.Image == "" {
		return nil
	}
	img, err := cv.FromURL(ctx, cfg.Image)
	if err != nil {
		return err
	}
	predictor, err := inference.NewPredictor[image.Image, *inference.Classifications](m, inference.NewDigitTranslator())
	if err != nil {
		return err
	}
	defer predictor.Close()
	classifications, err := predictor.Predict(ctx, img)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", classifications.Best().ClassName, classifications.Format(cfg.TopK))
	return nil
}
