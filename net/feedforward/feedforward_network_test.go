package feedforward

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/layer/activation"
	"github.com/neurlang/mldemos/layer/flatten"
)

func demoNet() *FeedforwardNetwork {
	var net FeedforwardNetwork
	net.NewCombiner(flatten.MustNew(28 * 28))
	net.NewLayer(128)
	net.NewCombiner(activation.ReLU{})
	net.NewLayer(64)
	net.NewCombiner(activation.ReLU{})
	net.NewLayer(10)
	return &net
}

func TestNewMLP(t *testing.T) {
	assert.Equal(t, demoNet().Describe(), NewMLP(28*28, 10, 128, 64).Describe())
	assert.Equal(t, []string{"BatchFlatten(4)", "Linear(2)"}, NewMLP(4, 2).Describe())
}

func TestInitialize(t *testing.T) {
	net := demoNet()
	assert.False(t, net.Initialized())
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))

	assert.True(t, net.Initialized())
	assert.Equal(t, 6, net.Len())
	assert.Equal(t, tensor.Shape{10}, net.OutputShape())
	assert.Equal(t, tensor.Shape{28, 28}, net.InputShape())
	assert.Equal(t, []string{"BatchFlatten(784)", "Linear(128)", "ReLU", "Linear(64)", "ReLU", "Linear(10)"}, net.Describe())

	params := net.Params()
	require.Len(t, params, 6)
	assert.Equal(t, "01_weight", params[0].Name)
	assert.Equal(t, tensor.Shape{784, 128}, params[0].Param.Value.Shape())
	assert.Equal(t, "05_bias", params[5].Name)
	assert.Equal(t, tensor.Shape{1, 10}, params[5].Param.Value.Shape())
}

func TestInitializeDeterministic(t *testing.T) {
	a, b := demoNet(), demoNet()
	require.NoError(t, a.Initialize(tensor.Shape{28, 28}, 7))
	require.NoError(t, b.Initialize(tensor.Shape{28, 28}, 7))
	for i, p := range a.Params() {
		assert.Equal(t, p.Param.Value.Data(), b.Params()[i].Param.Value.Data(), p.Name)
	}
}

func TestInitializeErrors(t *testing.T) {
	var empty FeedforwardNetwork
	assert.Error(t, empty.Initialize(tensor.Shape{28, 28}, 1))

	net := demoNet()
	assert.Error(t, net.Initialize(tensor.Shape{27, 28}, 1))
	assert.False(t, net.Initialized())

	_, err := net.NewSession(tensor.Shape{1, 28, 28})
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, net.WriteCompressedWeights(new(bytes.Buffer)), ErrNotInitialized)
}

func TestNewCombinerDiscardsInitialization(t *testing.T) {
	net := demoNet()
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	net.NewLayer(2)
	assert.False(t, net.Initialized())
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	assert.Equal(t, tensor.Shape{2}, net.OutputShape())

	net.Reset()
	assert.False(t, net.Initialized())
	assert.ErrorIs(t, net.WriteCompressedWeights(new(bytes.Buffer)), ErrNotInitialized)
}

func TestSessionRun(t *testing.T) {
	net := demoNet()
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	s, err := net.NewSession(tensor.Shape{2, 28, 28})
	require.NoError(t, err)
	defer s.Close()

	out, err := s.Run(tensor.New(tensor.WithShape(2, 28, 28), tensor.Of(tensor.Float64)))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 10}, out.Shape())
	// zero input and zero biases
	for _, v := range out.Data().([]float64) {
		assert.Zero(t, v)
	}

	_, err = s.Run(tensor.New(tensor.WithShape(3, 28, 28), tensor.Of(tensor.Float64)))
	assert.Error(t, err)
}

func TestWeightsRoundTrip(t *testing.T) {
	src := demoNet()
	require.NoError(t, src.Initialize(tensor.Shape{28, 28}, 1))
	var buf bytes.Buffer
	require.NoError(t, src.WriteCompressedWeights(&buf))

	dst := demoNet()
	require.NoError(t, dst.Initialize(tensor.Shape{28, 28}, 2))
	require.NoError(t, dst.ReadCompressedWeights(&buf))
	for i, p := range src.Params() {
		assert.Equal(t, p.Param.Value.Data(), dst.Params()[i].Param.Value.Data(), p.Name)
	}
}

func TestWeightsFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "w.params")
	src := demoNet()
	require.NoError(t, src.Initialize(tensor.Shape{28, 28}, 3))
	require.NoError(t, src.WriteCompressedWeightsToFile(name))

	dst := demoNet()
	require.NoError(t, dst.Initialize(tensor.Shape{28, 28}, 4))
	require.NoError(t, dst.ReadCompressedWeightsFromFile(name))
	assert.Equal(t, src.Params()[2].Param.Value.Data(), dst.Params()[2].Param.Value.Data())
}

func TestWeightsMismatch(t *testing.T) {
	src := demoNet()
	require.NoError(t, src.Initialize(tensor.Shape{28, 28}, 1))
	var buf bytes.Buffer
	require.NoError(t, src.WriteCompressedWeights(&buf))

	var other FeedforwardNetwork
	other.NewCombiner(flatten.MustNew(28 * 28))
	other.NewLayer(32)
	other.NewLayer(10)
	require.NoError(t, other.Initialize(tensor.Shape{28, 28}, 1))
	assert.Error(t, other.ReadCompressedWeights(bytes.NewReader(buf.Bytes())))

	assert.Error(t, src.ReadCompressedWeights(bytes.NewReader([]byte("not zstd at all"))))
}

func TestWeightsForgedCount(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(weightsMagic))
	require.NoError(t, err)
	require.NoError(t, binary.Write(zw, binary.LittleEndian, uint32(0xFFFFFFFF)))
	require.NoError(t, zw.Close())

	net := demoNet()
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	err = net.ReadCompressedWeights(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4294967295 parameters")
}

func TestWeightsForgedChunkLength(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(weightsMagic))
	require.NoError(t, err)
	require.NoError(t, binary.Write(zw, binary.LittleEndian, uint32(6)))
	require.NoError(t, binary.Write(zw, binary.LittleEndian, uint64(maxChunk)))
	_, err = zw.Write([]byte("01_weight"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	net := demoNet()
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	assert.Error(t, net.ReadCompressedWeights(bytes.NewReader(buf.Bytes())))
}

func TestWeightsMismatchLeavesParams(t *testing.T) {
	var other FeedforwardNetwork
	other.NewCombiner(flatten.MustNew(28 * 28))
	other.NewLayer(128)
	other.NewCombiner(activation.ReLU{})
	other.NewLayer(64)
	other.NewCombiner(activation.ReLU{})
	other.NewLayer(5)
	require.NoError(t, other.Initialize(tensor.Shape{28, 28}, 2))
	var buf bytes.Buffer
	require.NoError(t, other.WriteCompressedWeights(&buf))

	net := demoNet()
	require.NoError(t, net.Initialize(tensor.Shape{28, 28}, 1))
	var before [][]float64
	for _, p := range net.Params() {
		before = append(before, append([]float64(nil), p.Param.Value.Data().([]float64)...))
	}
	require.Error(t, net.ReadCompressedWeights(bytes.NewReader(buf.Bytes())))
	for i, p := range net.Params() {
		assert.Equal(t, before[i], p.Param.Value.Data(), p.Name)
	}
}
