package config

import (
	"errors"
	"fmt"
)

// Predict captures the knobs of the cloud text classifier demo.
type Predict struct {
	AppName   string `mapstructure:"app_name"`
	LogLevel  string `mapstructure:"log_level"`
	ProjectID string `mapstructure:"project_id"`
	Location  string `mapstructure:"location"`
	ModelID   string `mapstructure:"model_id"`
	Content   string `mapstructure:"content"`
	MimeType  string `mapstructure:"mime_type"`
	Endpoint  string `mapstructure:"endpoint"`
}

// PredictOverrides captures CLI supplied values.
type PredictOverrides struct {
	ProjectID string
	Location  string
	ModelID   string
	Content   string
	MimeType  string
}

func predictDefaults() map[string]interface{} {
	return map[string]interface{}{
		"app_name":   "predict_text",
		"log_level":  "WARN",
		"project_id": "",
		"location":   "us-central1",
		"model_id":   "",
		"content":    "Uranus is where the sun doesn't shine.",
		"mime_type":  "text/plain",
		"endpoint":   "",
	}
}

// LoadPredict reads a Predict config; path may be empty.
func LoadPredict(path string) (*Predict, error) {
	cfg := &Predict{}
	if err := load(path, "AUTOML", predictDefaults(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-empty override.
func (c *Predict) ApplyOverrides(o PredictOverrides) {
	if o.ProjectID != "" {
		c.ProjectID = o.ProjectID
	}
	if o.Location != "" {
		c.Location = o.Location
	}
	if o.ModelID != "" {
		c.ModelID = o.ModelID
	}
	if o.Content != "" {
		c.Content = o.Content
	}
	if o.MimeType != "" {
		c.MimeType = o.MimeType
	}
}

// Validate verifies the config is runnable.
func (c *Predict) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ProjectID == "" {
		return errors.New("project_id must be set")
	}
	if c.Location == "" {
		return errors.New("location must be set")
	}
	if c.ModelID == "" {
		return errors.New("model_id must be set")
	}
	if c.Content == "" {
		return fmt.Errorf("content must not be empty")
	}
	return nil
}
