package personalization

import (
	"fmt"
	"math"
	"math/rand"
)

// Layer is a dense layer: out = W·in + B. W is indexed [out][in].
type Layer struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

// Network is a feed-forward net with ReLU hidden layers and one sigmoid
// output. It is plain data so models persist as JSON.
type Network struct {
	Sizes  []int   `json:"sizes"`
	Layers []Layer `json:"layers"`
}

// NewNetwork builds a network with He-initialised weights. sizes holds the
// input width, the hidden widths and the output width (1).
func NewNetwork(sizes []int, rng *rand.Rand) *Network {
	n := &Network{Sizes: append([]int(nil), sizes...)}
	for i := 1; i < len(sizes); i++ {
		in, out := sizes[i-1], sizes[i]
		scale := math.Sqrt(2 / float64(in))
		l := Layer{W: make([][]float64, out), B: make([]float64, out)}
		for o := range l.W {
			l.W[o] = make([]float64, in)
			for k := range l.W[o] {
				l.W[o][k] = rng.NormFloat64() * scale
			}
		}
		n.Layers = append(n.Layers, l)
	}
	return n
}

// Validate checks the shapes against Sizes.
func (n *Network) Validate() error {
	if n == nil || len(n.Sizes) < 2 || len(n.Layers) != len(n.Sizes)-1 {
		return fmt.Errorf("malformed network")
	}
	if n.Sizes[len(n.Sizes)-1] != 1 {
		return fmt.Errorf("network output width %d, want 1", n.Sizes[len(n.Sizes)-1])
	}
	for i, l := range n.Layers {
		in, out := n.Sizes[i], n.Sizes[i+1]
		if len(l.W) != out || len(l.B) != out {
			return fmt.Errorf("layer %d: want %d outputs", i, out)
		}
		for _, row := range l.W {
			if len(row) != in {
				return fmt.Errorf("layer %d: want %d inputs", i, in)
			}
		}
	}
	return nil
}

// Predict returns the sigmoid output for x.
func (n *Network) Predict(x []float64) (float64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	if len(x) != n.Sizes[0] {
		return 0, fmt.Errorf("input has %d features, model expects %d", len(x), n.Sizes[0])
	}
	acts, _ := n.forward(x, 0, nil)
	return acts[len(acts)-1][0], nil
}

// forward returns the activations of every layer (index 0 is the input) and
// the dropout masks applied to hidden layers. dropout 0 disables masking.
func (n *Network) forward(x []float64, dropout float64, rng *rand.Rand) ([][]float64, [][]float64) {
	acts := make([][]float64, 0, len(n.Layers)+1)
	masks := make([][]float64, len(n.Layers))
	acts = append(acts, x)

	in := x
	for li, l := range n.Layers {
		out := make([]float64, len(l.B))
		last := li == len(n.Layers)-1
		for o := range out {
			z := l.B[o]
			for k, w := range l.W[o] {
				z += w * in[k]
			}
			if last {
				out[o] = sigmoid(z)
			} else {
				out[o] = math.Max(0, z)
			}
		}

		if !last && dropout > 0 {
			mask := make([]float64, len(out))
			keep := 1 - dropout
			for o := range out {
				if rng.Float64() < keep {
					mask[o] = 1 / keep
				}
				out[o] *= mask[o]
			}
			masks[li] = mask
		}

		acts = append(acts, out)
		in = out
	}
	return acts, masks
}

// gradients holds per-layer weight and bias gradients shaped like Layers.
type gradients []Layer

func (n *Network) zeroGradients() gradients {
	g := make(gradients, len(n.Layers))
	for i, l := range n.Layers {
		g[i] = Layer{W: make([][]float64, len(l.W)), B: make([]float64, len(l.B))}
		for o := range l.W {
			g[i].W[o] = make([]float64, len(l.W[o]))
		}
	}
	return g
}

// backward accumulates into g the gradient of the binary cross-entropy of one
// sample with soft label y, and returns that loss.
func (n *Network) backward(g gradients, acts, masks [][]float64, y float64) float64 {
	p := acts[len(acts)-1][0]

	// sigmoid + cross-entropy: dL/dz = p - y
	delta := []float64{p - y}
	for li := len(n.Layers) - 1; li >= 0; li-- {
		in := acts[li]
		for o, d := range delta {
			g[li].B[o] += d
			for k := range in {
				g[li].W[o][k] += d * in[k]
			}
		}
		if li == 0 {
			break
		}

		prev := make([]float64, len(in))
		for k := range prev {
			if in[k] <= 0 {
				continue
			}
			var sum float64
			for o, d := range delta {
				sum += n.Layers[li].W[o][k] * d
			}
			if mask := masks[li-1]; mask != nil {
				sum *= mask[k]
			}
			prev[k] = sum
		}
		delta = prev
	}

	return crossEntropy(p, y)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

const epsilon = 1e-7

func crossEntropy(p, y float64) float64 {
	p = math.Min(math.Max(p, epsilon), 1-epsilon)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}
