package config

import "errors"

// Infer captures the knobs of the saved-model classifier.
type Infer struct {
	AppName   string `mapstructure:"app_name"`
	LogLevel  string `mapstructure:"log_level"`
	ModelDir  string `mapstructure:"model_dir"`
	ModelName string `mapstructure:"model_name"`
	Image     string `mapstructure:"image"`
	TopK      int    `mapstructure:"top_k"`
	Evaluate  bool   `mapstructure:"evaluate"`
	DataDir   string `mapstructure:"data_dir"`
	MirrorURL string `mapstructure:"mirror_url"`
	Registry  string `mapstructure:"registry"`
}

// InferOverrides captures CLI supplied values.
type InferOverrides struct {
	ModelDir  string
	ModelName string
	Image     string
	TopK      int
	Evaluate  bool
	DataDir   string
	Registry  string
	LogLevel  string
}

func inferDefaults() map[string]interface{} {
	return map[string]interface{}{
		"app_name":   "infer_mnist",
		"log_level":  "INFO",
		"model_dir":  "build/mlp",
		"model_name": "mlp",
		"image":      DefaultImageURL,
		"top_k":      5,
		"evaluate":   false,
		"data_dir":   "",
		"mirror_url": "",
		"registry":   "",
	}
}

// LoadInfer reads an Infer config; path may be empty.
func LoadInfer(path string) (*Infer, error) {
	cfg := &Infer{}
	if err := load(path, "MLP", inferDefaults(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Infer) ApplyOverrides(o InferOverrides) {
	if o.ModelDir != "" {
		c.ModelDir = o.ModelDir
	}
	if o.ModelName != "" {
		c.ModelName = o.ModelName
	}
	if o.Image != "" {
		c.Image = o.Image
	}
	if o.TopK > 0 {
		c.TopK = o.TopK
	}
	if o.Evaluate {
		c.Evaluate = true
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Registry != "" {
		c.Registry = o.Registry
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Infer) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ModelDir == "" && c.Registry == "" {
		return errors.New("model_dir or registry must be set")
	}
	if c.Image == "" && !c.Evaluate {
		return errors.New("nothing to do: set image or evaluate")
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	return nil
}
