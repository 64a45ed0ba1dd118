package cloud

import (
	"bytes"
	"context"
	"net"
	"testing"

	automl "cloud.google.com/go/automl/apiv1"
	"cloud.google.com/go/automl/apiv1/automlpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
)

type fakePrediction struct {
	automlpb.UnimplementedPredictionServiceServer
	got *automlpb.PredictRequest
}

func (f *fakePrediction) Predict(_ context.Context, req *automlpb.PredictRequest) (*automlpb.PredictResponse, error) {
	f.got = proto.Clone(req).(*automlpb.PredictRequest)
	if req.GetPayload().GetTextSnippet().GetContent() == "" {
		return nil, status.Error(codes.InvalidArgument, "empty content")
	}
	return &automlpb.PredictResponse{
		Payload: []*automlpb.AnnotationPayload{
			annotation("negative", 0.8712),
			annotation("positive", 0.1288),
		},
	}, nil
}

func annotation(name string, score float32) *automlpb.AnnotationPayload {
	return &automlpb.AnnotationPayload{
		DisplayName: name,
		Detail: &automlpb.AnnotationPayload_Classification{
			Classification: &automlpb.ClassificationAnnotation{Score: score},
		},
	}
}

func dialFake(t *testing.T, fake *fakePrediction) *automl.PredictionClient {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	automlpb.RegisterPredictionServiceServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client, err := automl.NewPredictionClient(context.Background(), option.WithGRPCConn(conn))
	require.NoError(t, err)
	return client
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "projects/p/locations/us-central1/models/TCN1",
		ModelName("p", "us-central1", "TCN1"))
}

func TestNewTextRequest(t *testing.T) {
	req, err := NewTextRequest("m", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "m", req.GetName())
	assert.Equal(t, "hello", req.GetPayload().GetTextSnippet().GetContent())
	assert.Equal(t, MimeTypeText, req.GetPayload().GetTextSnippet().GetMimeType())

	req, err = NewTextRequest("m", "<p>hello</p>", MimeTypeHTML)
	require.NoError(t, err)
	assert.Equal(t, MimeTypeHTML, req.GetPayload().GetTextSnippet().GetMimeType())

	_, err = NewTextRequest("m", "hello", "application/pdf")
	assert.ErrorIs(t, err, ErrMimeType)
	_, err = NewClassifier(nil, "m", "image/png")
	assert.ErrorIs(t, err, ErrMimeType)
}

func TestClassifierPredict(t *testing.T) {
	fake := &fakePrediction{}
	name := ModelName("p", "us-central1", "TCN1")
	c, err := NewClassifier(dialFake(t, fake), name, "")
	require.NoError(t, err)
	defer c.Close()

	payloads, err := c.Predict(context.Background(), "Uranus is where the sun doesn't shine.")
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, name, fake.got.GetName())
	assert.Equal(t, "Uranus is where the sun doesn't shine.", fake.got.GetPayload().GetTextSnippet().GetContent())

	var out bytes.Buffer
	require.NoError(t, PrintAnnotations(&out, payloads))
	assert.Equal(t, "Predicted class name: negative\n"+
		"Predicted sentiment score: 0.87\n\n"+
		"Predicted class name: positive\n"+
		"Predicted sentiment score: 0.13\n\n", out.String())

	_, err = c.Predict(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPrintAnnotationsEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintAnnotations(&out, nil))
	assert.Empty(t, out.String())
}
