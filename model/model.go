// Package model binds a feedforward network to a name and free-form properties and
// persists it to a directory.
package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/net/feedforward"
)

// EpochProperty names the property holding the number of trained epochs.
const EpochProperty = "Epoch"

// Model is a named network with properties.
type Model struct {
	name  string
	net   *feedforward.FeedforwardNetwork
	props map[string]string
}

// Metadata is the yaml document written next to the parameters.
type Metadata struct {
	Name       string            `yaml:"name"`
	Block      []string          `yaml:"block"`
	InputShape []int             `yaml:"input_shape"`
	Params     []ParamInfo       `yaml:"params"`
	Weights    string            `yaml:"weights"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// ParamInfo describes one persisted parameter.
type ParamInfo struct {
	Name  string `yaml:"name"`
	Shape []int  `yaml:"shape"`
}

// New creates a model around net.
func New(name string, net *feedforward.FeedforwardNetwork) *Model {
	return &Model{name: name, net: net, props: make(map[string]string)}
}

// Name returns the name the model was created, saved or loaded with.
func (m *Model) Name() string {
	return m.name
}

// Network returns the underlying network.
func (m *Model) Network() *feedforward.FeedforwardNetwork {
	return m.net
}

// SetProperty sets a property, replacing any previous value.
func (m *Model) SetProperty(key, value string) {
	m.props[key] = value
}

// Property returns a property and whether it is set.
func (m *Model) Property(key string) (string, bool) {
	v, ok := m.props[key]
	return v, ok
}

// Epoch returns the EpochProperty as a number, 0 when unset or malformed.
func (m *Model) Epoch() int {
	v, ok := m.props[EpochProperty]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParamsFile returns the parameter file name for a model name and epoch.
func ParamsFile(name string, epoch int) string {
	return fmt.Sprintf("%s-%04d.params", name, epoch)
}

// MetadataFile returns the metadata file name for a model name.
func MetadataFile(name string) string {
	return name + ".yaml"
}

// Save writes the parameters and the metadata of the model into dir under name.
// The directory is created when missing.
func (m *Model) Save(dir, name string) error {
	if name == "" {
		return errors.New("model: empty name")
	}
	if !m.net.Initialized() {
		return feedforward.ErrNotInitialized
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("model: create %s: %w", dir, err)
	}
	m.name = name

	meta := Metadata{
		Name:       name,
		Block:      m.net.Describe(),
		InputShape: []int(m.net.InputShape()),
		Weights:    ParamsFile(name, m.Epoch()),
		Properties: m.props,
	}
	for _, p := range m.net.Params() {
		meta.Params = append(meta.Params, ParamInfo{Name: p.Name, Shape: []int(p.Param.Value.Shape().Clone())})
	}

	weights := filepath.Join(dir, meta.Weights)
	if err := m.net.WriteCompressedWeightsToFile(weights); err != nil {
		return fmt.Errorf("model: write %s: %w", weights, err)
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return err
	}
	metaPath := filepath.Join(dir, MetadataFile(name))
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("model: write %s: %w", metaPath, err)
	}
	log.Debug().Str("dir", dir).Str("weights", meta.Weights).Msg("model saved")
	return nil
}

// ReadMetadata reads the metadata of the model called name from dir.
func ReadMetadata(dir, name string) (*Metadata, error) {
	path := filepath.Join(dir, MetadataFile(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("model: parse %s: %w", path, err)
	}
	return &meta, nil
}

// Load restores the model saved in dir under the model's name. The network must
// have the same blocks as the saved one; it is initialised from the stored input
// shape when needed. A failed load leaves the network as it was.
func (m *Model) Load(dir string) (err error) {
	meta, err := ReadMetadata(dir, m.name)
	if err != nil {
		return err
	}
	if got := m.net.Describe(); !slices.Equal(got, meta.Block) {
		return fmt.Errorf("model: network %v does not match saved %v", got, meta.Block)
	}
	in := tensor.Shape(meta.InputShape)
	if !m.net.Initialized() {
		if err := m.net.Initialize(in, 0); err != nil {
			return fmt.Errorf("model: %w", err)
		}
		// a failed load must not leave random parameters behind
		defer func() {
			if err != nil {
				m.net.Reset()
			}
		}()
	} else if !slices.Equal([]int(m.net.InputShape()), []int(in)) {
		return fmt.Errorf("model: network input %v does not match saved %v", m.net.InputShape(), in)
	}

	params := m.net.Params()
	if len(params) != len(meta.Params) {
		return fmt.Errorf("model: saved %d parameters, network has %d", len(meta.Params), len(params))
	}
	for i, p := range params {
		want := meta.Params[i]
		if p.Name != want.Name || !slices.Equal([]int(p.Param.Value.Shape()), want.Shape) {
			return fmt.Errorf("model: parameter %s %v does not match saved %s %v",
				p.Name, p.Param.Value.Shape(), want.Name, want.Shape)
		}
	}

	weights, err := m.paramsPath(dir, meta)
	if err != nil {
		return err
	}
	if err := m.net.ReadCompressedWeightsFromFile(weights); err != nil {
		return fmt.Errorf("model: read %s: %w", weights, err)
	}
	m.props = make(map[string]string, len(meta.Properties))
	for k, v := range meta.Properties {
		m.props[k] = v
	}
	log.Debug().Str("dir", dir).Str("weights", filepath.Base(weights)).Msg("model loaded")
	return nil
}

// paramsPath picks the file named in the metadata, or the highest epoch present.
func (m *Model) paramsPath(dir string, meta *Metadata) (string, error) {
	if meta.Weights != "" {
		path := filepath.Join(dir, meta.Weights)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, m.name+"-*.params"))
	if err != nil {
		return "", err
	}
	best, bestEpoch := "", -1
	for _, match := range matches {
		digits := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(match), m.name+"-"), ".params")
		epoch, err := strconv.Atoi(digits)
		if err != nil || epoch < 0 {
			continue
		}
		if epoch > bestEpoch {
			best, bestEpoch = match, epoch
		}
	}
	if best == "" {
		return "", fmt.Errorf("model: no parameter file for %s in %s", m.name, dir)
	}
	return best, nil
}

// PropertyKeys lists property names in order.
func (m *Model) PropertyKeys() []string {
	keys := make([]string, 0, len(m.props))
	for k := range m.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
