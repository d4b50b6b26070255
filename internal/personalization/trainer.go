package personalization

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainingConfig holds the optimiser settings. Zero fields take the values
// of DefaultTrainingConfig.
type TrainingConfig struct {
	Hidden          []int   `mapstructure:"hidden"`
	Epochs          int     `mapstructure:"epochs"`
	BatchSize       int     `mapstructure:"batch-size"`
	LearningRate    float64 `mapstructure:"learning-rate"`
	Momentum        float64 `mapstructure:"momentum"`
	Dropout         float64 `mapstructure:"dropout"`
	ValidationSplit float64 `mapstructure:"validation-split"`
	Seed            int64   `mapstructure:"seed"`
}

var DefaultTrainingConfig = TrainingConfig{
	Hidden:          []int{16, 8},
	Epochs:          150,
	BatchSize:       8,
	LearningRate:    0.05,
	Momentum:        0.9,
	Dropout:         0.2,
	ValidationSplit: 0.2,
	Seed:            42,
}

func (c TrainingConfig) withDefaults() TrainingConfig {
	d := DefaultTrainingConfig
	if len(c.Hidden) == 0 {
		c.Hidden = d.Hidden
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		c.Momentum = d.Momentum
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		c.Dropout = d.Dropout
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = d.ValidationSplit
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}

type Sample struct {
	Features []float64
	Label    float64
}

type Metrics struct {
	SampleCount     int     `json:"sample_count"`
	TrainCount      int     `json:"train_count"`
	ValidationCount int     `json:"validation_count"`
	TrainLoss       float64 `json:"train_loss"`
	// FinalLoss and FinalAccuracy are measured on the validation split.
	FinalLoss     float64 `json:"final_loss"`
	FinalAccuracy float64 `json:"final_accuracy"`
}

// Fit trains a fresh network on samples. The run is deterministic for a
// given seed and sample order.
func Fit(samples []Sample, cfg TrainingConfig) (*Network, Metrics, error) {
	cfg = cfg.withDefaults()
	if len(samples) < 2 {
		return nil, Metrics{}, fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	width := len(samples[0].Features)
	for i, s := range samples {
		if len(s.Features) != width {
			return nil, Metrics{}, fmt.Errorf("sample %d has %d features, want %d", i, len(s.Features), width)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	shuffled := append([]Sample(nil), samples...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nVal := int(math.Round(float64(len(shuffled)) * cfg.ValidationSplit))
	if nVal < 1 {
		nVal = 1
	}
	val, train := shuffled[:nVal], shuffled[nVal:]

	sizes := append([]int{width}, cfg.Hidden...)
	sizes = append(sizes, 1)
	net := NewNetwork(sizes, rng)
	velocity := net.zeroGradients()

	var trainLoss float64
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })

		trainLoss = 0
		for start := 0; start < len(train); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(train))
			grad := net.zeroGradients()
			for _, s := range train[start:end] {
				acts, masks := net.forward(s.Features, cfg.Dropout, rng)
				trainLoss += net.backward(grad, acts, masks, s.Label)
			}
			net.step(grad, velocity, cfg.LearningRate/float64(end-start), cfg.Momentum)
		}
		trainLoss /= float64(len(train))
	}

	loss, acc := net.evaluate(val)
	return net, Metrics{
		SampleCount:     len(samples),
		TrainCount:      len(train),
		ValidationCount: len(val),
		TrainLoss:       trainLoss,
		FinalLoss:       loss,
		FinalAccuracy:   acc,
	}, nil
}

// step applies momentum SGD: v = mu*v - lr*g; w += v.
func (n *Network) step(grad, velocity gradients, lr, mu float64) {
	for li := range n.Layers {
		l, g, v := &n.Layers[li], grad[li], velocity[li]
		for o := range l.W {
			for k := range l.W[o] {
				v.W[o][k] = mu*v.W[o][k] - lr*g.W[o][k]
				l.W[o][k] += v.W[o][k]
			}
			v.B[o] = mu*v.B[o] - lr*g.B[o]
			l.B[o] += v.B[o]
		}
	}
}

// evaluate returns the mean loss and the share of samples where prediction
// and label fall on the same side of 0.5.
func (n *Network) evaluate(samples []Sample) (float64, float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var loss float64
	var correct int
	for _, s := range samples {
		acts, _ := n.forward(s.Features, 0, nil)
		p := acts[len(acts)-1][0]
		loss += crossEntropy(p, s.Label)
		if (p >= 0.5) == (s.Label >= 0.5) {
			correct++
		}
	}
	return loss / float64(len(samples)), float64(correct) / float64(len(samples))
}
