package sequential

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// The on-disk network format is a small JSON schema:
//
//	{"layers": [
//	  {"weights": [[...], ...], "bias": [...], "activation": "relu"},
//	  ...
//	]}
//
// weights[k][j] is the coefficient from input k to output j, matching
// the x·W + b orientation of Dense.

type layerFile struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type networkFile struct {
	Layers []layerFile `json:"layers"`
}

// Load reads and validates a network from a JSON file.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sequential: failed to read network file: %w", err)
	}
	var file networkFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("sequential: failed to unmarshal network file: %w", err)
	}

	n := &Network{Layers: make([]Dense, 0, len(file.Layers))}
	for i, l := range file.Layers {
		rows := len(l.Weights)
		if rows == 0 {
			return nil, fmt.Errorf("sequential: layer %d has no weights", i)
		}
		cols := len(l.Weights[0])
		flat := make([]float64, 0, rows*cols)
		for k, row := range l.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("sequential: layer %d weight row %d has %d entries, want %d", i, k, len(row), cols)
			}
			flat = append(flat, row...)
		}
		if len(l.Bias) != cols {
			return nil, fmt.Errorf("sequential: layer %d bias length %d vs weight columns %d", i, len(l.Bias), cols)
		}
		n.Layers = append(n.Layers, Dense{
			Weights:    mat.NewDense(rows, cols, flat),
			Bias:       mat.NewVecDense(cols, append([]float64(nil), l.Bias...)),
			Activation: l.Activation,
		})
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Save writes the network to a JSON file.
func Save(path string, n *Network) error {
	if err := n.Validate(); err != nil {
		return err
	}
	file := networkFile{Layers: make([]layerFile, 0, len(n.Layers))}
	for i := range n.Layers {
		d := &n.Layers[i]
		rows, cols := d.Weights.Dims()
		weights := make([][]float64, rows)
		for k := 0; k < rows; k++ {
			weights[k] = make([]float64, cols)
			for j := 0; j < cols; j++ {
				weights[k][j] = d.Weights.At(k, j)
			}
		}
		bias := make([]float64, d.Bias.Len())
		for j := range bias {
			bias[j] = d.Bias.AtVec(j)
		}
		file.Layers = append(file.Layers, layerFile{Weights: weights, Bias: bias, Activation: d.Activation})
	}
	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("sequential: failed to marshal network: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sequential: failed to write network file: %w", err)
	}
	return nil
}
