// Package cloud classifies text with a hosted AutoML Natural Language model.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"

	automl "cloud.google.com/go/automl/apiv1"
	"cloud.google.com/go/automl/apiv1/automlpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Supported mime types of the text content.
const (
	MimeTypeText = "text/plain"
	MimeTypeHTML = "text/html"
)

// ErrMimeType is returned for content types the service does not classify.
var ErrMimeType = errors.New("cloud: unsupported mime type")

// PredictionClient is the part of the AutoML prediction client used here.
// *automl.PredictionClient satisfies it.
type PredictionClient interface {
	Predict(ctx context.Context, req *automlpb.PredictRequest, opts ...gax.CallOption) (*automlpb.PredictResponse, error)
	Close() error
}

// ModelName returns the full resource name of a model.
func ModelName(project, location, model string) string {
	return fmt.Sprintf("projects/%s/locations/%s/models/%s", project, location, model)
}

func checkMimeType(mimeType string) (string, error) {
	switch mimeType {
	case "":
		return MimeTypeText, nil
	case MimeTypeText, MimeTypeHTML:
		return mimeType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrMimeType, mimeType)
}

// NewTextRequest builds a prediction request for a text snippet. An empty mime
// type means text/plain.
func NewTextRequest(name, content, mimeType string) (*automlpb.PredictRequest, error) {
	mimeType, err := checkMimeType(mimeType)
	if err != nil {
		return nil, err
	}
	return &automlpb.PredictRequest{
		Name: name,
		Payload: &automlpb.ExamplePayload{
			Payload: &automlpb.ExamplePayload_TextSnippet{
				TextSnippet: &automlpb.TextSnippet{
					Content:  content,
					MimeType: mimeType,
				},
			},
		},
	}, nil
}

// Classifier sends text to one model.
type Classifier struct {
	client   PredictionClient
	name     string
	mimeType string
}

// NewClassifier wraps client for the model called name.
func NewClassifier(client PredictionClient, name, mimeType string) (*Classifier, error) {
	mimeType, err := checkMimeType(mimeType)
	if err != nil {
		return nil, err
	}
	return &Classifier{client: client, name: name, mimeType: mimeType}, nil
}

// Dial opens a prediction client and wraps it for the model called name.
func Dial(ctx context.Context, name, mimeType string, opts ...option.ClientOption) (*Classifier, error) {
	if _, err := checkMimeType(mimeType); err != nil {
		return nil, err
	}
	client, err := automl.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloud: create prediction client: %w", err)
	}
	c, err := NewClassifier(client, name, mimeType)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// Name returns the model resource name.
func (c *Classifier) Name() string {
	return c.name
}

// Predict classifies content and returns the annotations of the response.
func (c *Classifier) Predict(ctx context.Context, content string, opts ...gax.CallOption) ([]*automlpb.AnnotationPayload, error) {
	req, err := NewTextRequest(c.name, content, c.mimeType)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("model", c.name).Int("bytes", len(content)).Msg("sending prediction request")
	resp, err := c.client.Predict(ctx, req, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloud: predict: %w", err)
	}
	return resp.GetPayload(), nil
}

// Close closes the underlying client.
func (c *Classifier) Close() error {
	return c.client.Close()
}

// PrintAnnotations writes the class name and score of every annotation.
func PrintAnnotations(w io.Writer, payloads []*automlpb.AnnotationPayload) error {
	for _, p := range payloads {
		if _, err := fmt.Fprintf(w, "Predicted class name: %s\n", p.GetDisplayName()); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Predicted sentiment score: %.2f\n\n", p.GetClassification().GetScore()); err != nil {
			return err
		}
	}
	return nil
}
