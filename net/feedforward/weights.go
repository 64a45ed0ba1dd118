package feedforward

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/klauspost/compress/zstd"
	"gorgonia.org/tensor"
)

const weightsMagic = "MLPW\x01"

// WriteCompressedWeightsToFile writes model weights to a zstd file
func (f FeedforwardNetwork) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = f.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteCompressedWeights writes model weights to a writer: a zstd stream holding,
// for every parameter, its name and its value in npy format.
func (f FeedforwardNetwork) WriteCompressedWeights(w io.Writer) error {
	if !f.Initialized() {
		return ErrNotInitialized
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	params := f.Params()
	if _, err := io.WriteString(zw, weightsMagic); err != nil {
		zw.Close()
		return err
	}
	if err := binary.Write(zw, binary.LittleEndian, uint32(len(params))); err != nil {
		zw.Close()
		return err
	}
	var npy bytes.Buffer
	for _, p := range params {
		npy.Reset()
		if err := p.Param.Value.WriteNpy(&npy); err != nil {
			zw.Close()
			return fmt.Errorf("feedforward: encode %s: %w", p.Name, err)
		}
		if err := writeChunk(zw, []byte(p.Name)); err != nil {
			zw.Close()
			return err
		}
		if err := writeChunk(zw, npy.Bytes()); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

// ReadCompressedWeightsFromFile reads model weights from a zstd file
func (f FeedforwardNetwork) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return f.ReadCompressedWeights(bufio.NewReader(file))
}

// ReadCompressedWeights reads model weights from a reader. Every parameter of the
// network must be present with its exact shape.
func (f FeedforwardNetwork) ReadCompressedWeights(r io.Reader) error {
	if !f.Initialized() {
		return ErrNotInitialized
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	magic := make([]byte, len(weightsMagic))
	if _, err := io.ReadFull(zr, magic); err != nil {
		return fmt.Errorf("feedforward: read header: %w", err)
	}
	if string(magic) != weightsMagic {
		return errors.New("feedforward: not a weights file")
	}
	var count uint32
	if err := binary.Read(zr, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("feedforward: read header: %w", err)
	}

	params := f.Params()
	if count != uint32(len(params)) {
		return fmt.Errorf("feedforward: file holds %d parameters, network has %d", count, len(params))
	}

	values := make(map[string]*tensor.Dense, len(params))
	for i := uint32(0); i < count; i++ {
		name, err := readChunk(zr)
		if err != nil {
			return fmt.Errorf("feedforward: read parameter %d: %w", i, err)
		}
		blob, err := readChunk(zr)
		if err != nil {
			return fmt.Errorf("feedforward: read parameter %s: %w", name, err)
		}
		t := new(tensor.Dense)
		if err := t.ReadNpy(bytes.NewReader(blob)); err != nil {
			return fmt.Errorf("feedforward: decode %s: %w", name, err)
		}
		values[string(name)] = t
	}

	// nothing is written until every parameter is present with its exact shape
	for _, p := range params {
		v, ok := values[p.Name]
		if !ok {
			return fmt.Errorf("feedforward: parameter %s missing", p.Name)
		}
		if !slices.Equal([]int(v.Shape()), []int(p.Param.Value.Shape())) {
			return fmt.Errorf("feedforward: parameter %s has shape %v, network expects %v", p.Name, v.Shape(), p.Param.Value.Shape())
		}
		if v.Dtype() != tensor.Float64 {
			return fmt.Errorf("feedforward: parameter %s holds %v, expected float64", p.Name, v.Dtype())
		}
	}
	for _, p := range params {
		if err := p.Param.Set(values[p.Name]); err != nil {
			return err
		}
	}
	return nil
}

const maxChunk = 1 << 30

func writeChunk(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readChunk(r io.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxChunk {
		return nil, fmt.Errorf("chunk of %d bytes too large", n)
	}
	// the buffer grows with the data actually present, not with the declared length
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
