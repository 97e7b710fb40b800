// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Network is a small fully connected classifier: standardized input, ReLU
// hidden layers and a softmax output. Fields are exported for gob.
//
// Weights[l] is the row-major (out x in) matrix of layer l.
type Network struct {
	Sizes   []int
	Weights [][]float64
	Biases  [][]float64
	Mean    []float64
	Std     []float64
}

// NewNetwork allocates a network with He-initialized weights.
func NewNetwork(sizes []int, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least input and output layers, got %v", sizes)
	}
	n := &Network{
		Sizes:   append([]int(nil), sizes...),
		Weights: make([][]float64, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
		Mean:    make([]float64, sizes[0]),
		Std:     make([]float64, sizes[0]),
	}
	for i := range n.Std {
		n.Std[i] = 1
	}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2 / float64(in))
		w := make([]float64, in*out)
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
		n.Weights[l] = w
		n.Biases[l] = make([]float64, out)
	}
	return n, nil
}

func (n *Network) layers() int {
	return len(n.Sizes) - 1
}

func (n *Network) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = (x[i] - n.Mean[i]) / n.Std[i]
	}
	return out
}

// affine computes W*in + b for layer l into out.
func (n *Network) affine(l int, in, out []float64) {
	w := n.Weights[l]
	cols := n.Sizes[l]
	for o := range out {
		row := w[o*cols : (o+1)*cols]
		out[o] = dot(row, in) + n.Biases[l][o]
	}
}

// Forward returns the output distribution for one input.
func (n *Network) Forward(x []float64) ([]float64, error) {
	if len(x) != n.Sizes[0] {
		return nil, fmt.Errorf("input has %d features, network expects %d", len(x), n.Sizes[0])
	}
	a := n.standardize(x)
	for l := 0; l < n.layers(); l++ {
		z := make([]float64, n.Sizes[l+1])
		n.affine(l, a, z)
		if l < n.layers()-1 {
			relu(z)
		} else {
			softmax(z)
		}
		a = z
	}
	return a, nil
}

// TrainOptions controls Fit.
type TrainOptions struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	Dropout      float64
}

// Fit trains the network with mini-batch SGD on cross-entropy against soft
// labels. Standardization statistics are computed from x first. Returns the
// mean loss of the final epoch.
//
//nolint:gocritic // hugeParam: options passed by value for immutability
func (n *Network) Fit(ctx context.Context, x, y [][]float64, opts TrainOptions, rng *rand.Rand) (float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, fmt.Errorf("need matching non-empty inputs and labels, got %d and %d", len(x), len(y))
	}
	n.fitStandardization(x)

	inputs := make([][]float64, len(x))
	for i := range x {
		if len(x[i]) != n.Sizes[0] || len(y[i]) != n.Sizes[len(n.Sizes)-1] {
			return 0, fmt.Errorf("sample %d has wrong shape", i)
		}
		inputs[i] = n.standardize(x[i])
	}

	batch := opts.BatchSize
	if batch < 1 {
		batch = 1
	}
	keep := 1 - opts.Dropout

	gradW := make([][]float64, n.layers())
	gradB := make([][]float64, n.layers())
	for l := range gradW {
		gradW[l] = make([]float64, len(n.Weights[l]))
		gradB[l] = make([]float64, len(n.Biases[l]))
	}

	var epochLoss float64
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if ContextCancelled(ctx) {
			return 0, ctx.Err()
		}
		order := rng.Perm(len(inputs))
		epochLoss = 0

		for start := 0; start < len(order); start += batch {
			end := start + batch
			if end > len(order) {
				end = len(order)
			}
			for l := range gradW {
				clear(gradW[l])
				clear(gradB[l])
			}
			for _, idx := range order[start:end] {
				epochLoss += n.backprop(inputs[idx], y[idx], keep, rng, gradW, gradB)
			}
			step := opts.LearningRate / float64(end-start)
			for l := range n.Weights {
				for i := range n.Weights[l] {
					n.Weights[l][i] -= step * gradW[l][i]
				}
				for i := range n.Biases[l] {
					n.Biases[l][i] -= step * gradB[l][i]
				}
			}
		}
		epochLoss /= float64(len(inputs))
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return 0, fmt.Errorf("training diverged at epoch %d", epoch)
		}
	}
	return epochLoss, nil
}

func (n *Network) fitStandardization(x [][]float64) {
	dims := n.Sizes[0]
	for j := 0; j < dims; j++ {
		var sum, sq float64
		for i := range x {
			sum += x[i][j]
		}
		mean := sum / float64(len(x))
		for i := range x {
			d := x[i][j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(x)))
		if std < 1e-8 {
			std = 1
		}
		n.Mean[j] = mean
		n.Std[j] = std
	}
}

// backprop runs one forward and backward pass, accumulating gradients, and
// returns the sample loss. Hidden activations use inverted dropout with
// keep probability keep.
func (n *Network) backprop(x, y []float64, keep float64, rng *rand.Rand, gradW, gradB [][]float64) float64 {
	depth := n.layers()
	acts := make([][]float64, depth+1)
	masks := make([][]float64, depth)
	acts[0] = x

	for l := 0; l < depth; l++ {
		z := make([]float64, n.Sizes[l+1])
		n.affine(l, acts[l], z)
		if l < depth-1 {
			mask := make([]float64, len(z))
			for i := range z {
				if z[i] <= 0 {
					z[i] = 0
					continue
				}
				if keep < 1 && rng.Float64() >= keep {
					z[i] = 0
					continue
				}
				mask[i] = 1 / keep
				z[i] *= mask[i]
			}
			masks[l] = mask
		} else {
			softmax(z)
		}
		acts[l+1] = z
	}

	out := acts[depth]
	var loss float64
	delta := make([]float64, len(out))
	for i := range out {
		if y[i] > 0 {
			loss -= y[i] * math.Log(math.Max(out[i], 1e-12))
		}
		delta[i] = out[i] - y[i]
	}

	for l := depth - 1; l >= 0; l-- {
		in := acts[l]
		cols := n.Sizes[l]
		for o, d := range delta {
			if d == 0 {
				continue
			}
			row := gradW[l][o*cols : (o+1)*cols]
			for i := range in {
				row[i] += d * in[i]
			}
			gradB[l][o] += d
		}
		if l == 0 {
			break
		}
		prev := make([]float64, cols)
		w := n.Weights[l]
		for o, d := range delta {
			if d == 0 {
				continue
			}
			row := w[o*cols : (o+1)*cols]
			for i := range prev {
				prev[i] += row[i] * d
			}
		}
		// ReLU and dropout share one mask: zero where the unit was inactive
		// or dropped, 1/keep otherwise.
		for i := range prev {
			prev[i] *= masks[l-1][i]
		}
		delta = prev
	}
	return loss
}

func relu(v []float64) {
	for i := range v {
		if v[i] < 0 {
			v[i] = 0
		}
	}
}

func softmax(v []float64) {
	maxV := math.Inf(-1)
	for _, x := range v {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i := range v {
		v[i] = math.Exp(v[i] - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
