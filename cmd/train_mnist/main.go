package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	_ "go.uber.org/automaxprocs"

	"github.com/neurlang/mldemos/config"
	"github.com/neurlang/mldemos/cv"
	"github.com/neurlang/mldemos/datasets/mnist"
	"github.com/neurlang/mldemos/inference"
	"github.com/neurlang/mldemos/logger"
	"github.com/neurlang/mldemos/metrics"
	"github.com/neurlang/mldemos/model"
	"github.com/neurlang/mldemos/model/registry"
	"github.com/neurlang/mldemos/net/feedforward"
	"github.com/neurlang/mldemos/trainer"
)

func newNetwork() *feedforward.FeedforwardNetwork {
	return feedforward.NewMLP(mnist.ImgSize*mnist.ImgSize, mnist.Classes, 128, 64)
}

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	epochs := flag.Int("epochs", 0, "number of epochs")
	batchSize := flag.Int("batch-size", 0, "batch size")
	learningRate := flag.Float64("lr", 0, "Adam learning rate")
	seed := flag.Int64("seed", 0, "initialisation and shuffling seed")
	dataDir := flag.String("data-dir", "", "MNIST cache directory")
	modelDir := flag.String("model-dir", "", "model destination directory")
	imageURL := flag.String("image", "", "image URL or path classified after training")
	logLevel := flag.String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	resume := flag.Bool("resume", false, "resume training from the saved model")
	pgo := flag.Bool("pgo", false, "write a cpu profile to default.pgo")
	flag.Parse()

	cfg, err := config.LoadTrain(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.ApplyOverrides(config.TrainOverrides{
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Seed:         *seed,
		DataDir:      *dataDir,
		ModelDir:     *modelDir,
		ImageURL:     *imageURL,
		LogLevel:     *logLevel,
		Resume:       *resume,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.AppName, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	stopProfile := func() {}
	if *pgo {
		if stopProfile, err = startProfile("default.pgo"); err != nil {
			log.Fatal().Err(err).Msg("cpu profile")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	// log.Fatal exits without running deferred calls
	stopProfile()
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
}

func run(ctx context.Context, cfg *config.Train) error {
	train, test, err := mnist.New(ctx, mnist.Options{CacheDir: cfg.DataDir, MirrorURL: cfg.MirrorURL})
	if err != nil {
		return err
	}
	log.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("mnist loaded")

	stats, err := metrics.New(cfg.MetricsAddress, metrics.Tag(metrics.TagModel, cfg.ModelName))
	if err != nil {
		return err
	}
	defer stats.Close()

	net := newNetwork()
	m := model.New(cfg.ModelName, net)
	start, err := trainer.Resume(m, cfg.ModelDir, cfg.Resume)
	if err != nil {
		return err
	}

	tr, err := trainer.New(net, trainer.Config{
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
		StartEpoch:   start,
		Listeners: []trainer.Listener{
			trainer.LoggingListener{Model: cfg.ModelName},
			trainer.MetricsListener{Client: stats, Model: cfg.ModelName},
		},
	}, train.Shape())
	if err != nil {
		return err
	}
	err = trainer.Fit(ctx, tr, train, cfg.Epochs)
	if err == nil {
		err = tr.Commit()
	}
	epoch := tr.Epoch()
	if cerr := tr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	m.SetProperty(model.EpochProperty, strconv.Itoa(epoch))
	var before *trainer.Evaluation
	if cfg.Evaluate {
		ev, err := trainer.Evaluate(net, test, cfg.BatchSize)
		if err != nil {
			return err
		}
		before = &ev
		m.SetProperty("Accuracy", strconv.FormatFloat(ev.Accuracy(), 'f', 4, 64))
		if err := stats.Gauge(metrics.EvalAccuracy, ev.Accuracy(), nil, 1); err != nil {
			log.Warn().Err(err).Str("metric", metrics.EvalAccuracy).Msg("statsd gauge failed")
		}
		log.Info().Float64("accuracy", ev.Accuracy()).Int("epoch", epoch).Msg("test set evaluated")
	}
	if err := m.Save(cfg.ModelDir, cfg.ModelName); err != nil {
		return err
	}
	log.Info().Str("dir", cfg.ModelDir).Str("params", model.ParamsFile(cfg.ModelName, epoch)).Msg("model saved")

	if cfg.Registry != "" {
		if err := record(cfg, newEntry(cfg, epoch, before)); err != nil {
			return err
		}
	}

	reloaded := model.New(cfg.ModelName, newNetwork())
	if err := reloaded.Load(cfg.ModelDir); err != nil {
		return err
	}
	if before != nil {
		after, err := trainer.Evaluate(reloaded.Network(), test, cfg.BatchSize)
		if err != nil {
			return err
		}
		if after.Fingerprint != before.Fingerprint {
			return fmt.Errorf("reloaded model predicts differently: %x != %x", after.Fingerprint, before.Fingerprint)
		}
		log.Info().Hex("fingerprint", after.Fingerprint[:]).Msg("reloaded model matches")
	}

	img, err := cv.FromURL(ctx, cfg.ImageURL)
	if err != nil {
		return err
	}
	predictor, err := inference.NewPredictor[image.Image, *inference.Classifications](reloaded, inference.NewDigitTranslator())
	if err != nil {
		return err
	}
	defer predictor.Close()
	classifications, err := predictor.Predict(ctx, img)
	if err != nil {
		return err
	}
	fmt.Println("zero: " + classifications.String())
	return nil
}

// newEntry describes the saved model for the registry. ev is nil when the test
// set was not evaluated.
func newEntry(cfg *config.Train, epoch int, ev *trainer.Evaluation) registry.Entry {
	e := registry.Entry{
		Name:    cfg.ModelName,
		Dir:     cfg.ModelDir,
		Epoch:   epoch,
		SavedAt: time.Now().UTC(),
	}
	if ev == nil {
		log.Info().Str("model", cfg.ModelName).Msg("no evaluation, accuracy not recorded")
		return e
	}
	e.Evaluated = true
	e.Accuracy = ev.Accuracy()
	return e
}

func record(cfg *config.Train, e registry.Entry) error {
	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return err
	}
	defer reg.Close()
	return reg.Put(e)
}
