package config

import (
	"errors"
	"fmt"
)

// Train captures the knobs of the digit classifier demo.
type Train struct {
	AppName        string  `mapstructure:"app_name"`
	LogLevel       string  `mapstructure:"log_level"`
	Epochs         int     `mapstructure:"epochs"`
	BatchSize      int     `mapstructure:"batch_size"`
	LearningRate   float64 `mapstructure:"learning_rate"`
	Seed           int64   `mapstructure:"seed"`
	DataDir        string  `mapstructure:"data_dir"`
	MirrorURL      string  `mapstructure:"mirror_url"`
	ModelDir       string  `mapstructure:"model_dir"`
	ModelName      string  `mapstructure:"model_name"`
	ImageURL       string  `mapstructure:"image_url"`
	Evaluate       bool    `mapstructure:"evaluate"`
	Resume         bool    `mapstructure:"resume"`
	MetricsAddress string  `mapstructure:"metrics_address"`
	Registry       string  `mapstructure:"registry"`
}

// TrainOverrides captures CLI supplied values.
type TrainOverrides struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	DataDir      string
	ModelDir     string
	ImageURL     string
	LogLevel     string
	Resume       bool
}

// DefaultImageURL is the handwritten zero classified at the end of the demo.
const DefaultImageURL = "https://djl-ai.s3.amazonaws.com/resources/images/0.png"

func trainDefaults() map[string]interface{} {
	return map[string]interface{}{
		"app_name":        "train_mnist",
		"log_level":       "INFO",
		"epochs":          2,
		"batch_size":      32,
		"learning_rate":   0.001,
		"seed":            1,
		"data_dir":        "",
		"mirror_url":      "",
		"model_dir":       "build/mlp",
		"model_name":      "mlp",
		"image_url":       DefaultImageURL,
		"evaluate":        true,
		"resume":          false,
		"metrics_address": "",
		"registry":        "",
	}
}

// LoadTrain reads a Train config; path may be empty.
func LoadTrain(path string) (*Train, error) {
	cfg := &Train{}
	if err := load(path, "MLP", trainDefaults(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Train) ApplyOverrides(o TrainOverrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.ModelDir != "" {
		c.ModelDir = o.ModelDir
	}
	if o.ImageURL != "" {
		c.ImageURL = o.ImageURL
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Resume {
		c.Resume = true
	}
}

// Validate verifies the config is runnable.
func (c *Train) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.ModelDir == "" {
		return errors.New("model_dir must be set")
	}
	if c.ModelName == "" {
		return errors.New("model_name must be set")
	}
	return nil
}
