package forest

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sort"

	"daily-alpha/internal/ta"
)

type TrainOptions struct {
	Trees    int
	MaxDepth int
	MinSplit int
	MinLeaf  int
	Seed     int64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Trees:    100,
		MaxDepth: 5,
		MinSplit: 3,
		MinLeaf:  2,
		Seed:     42,
	}
}

// Node is one decision-tree node in flattened form. Leaf nodes carry the
// weighted probability of the positive class; internal nodes route on
// Feature <= Threshold.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Prob      float64 `json:"prob"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Artifact struct {
	FeatureNames []string  `json:"feature_names"`
	Trees        []Tree    `json:"trees"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	MaxDepth     int       `json:"max_depth"`
	MinSplit     int       `json:"min_split"`
	MinLeaf      int       `json:"min_leaf"`
	Seed         int64     `json:"seed"`
}

// Model is a bagged ensemble of shallow decision trees with balanced class
// weights, trained on standardized features.
type Model struct {
	artifact Artifact
}

// Train fits the forest. Class weights are balanced: each class contributes
// equal total weight regardless of how lopsided the labels are.
func Train(samples [][]float64, labels []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(labels) {
		return nil, errors.New("invalid training dataset")
	}
	if len(samples[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	def := DefaultTrainOptions()
	if opts.Trees <= 0 {
		opts.Trees = def.Trees
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MinSplit <= 0 {
		opts.MinSplit = def.MinSplit
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = def.MinLeaf
	}

	featCount := len(samples[0])
	means, stds := fitScaler(samples)
	scaled := make([][]float64, len(samples))
	for i := range samples {
		scaled[i] = normalize(samples[i], means, stds)
	}

	weights := balancedClassWeights(labels)

	rng := rand.New(rand.NewSource(opts.Seed))
	trees := make([]Tree, 0, opts.Trees)
	for t := 0; t < opts.Trees; t++ {
		idx := bootstrapSample(rng, len(scaled))
		builder := &treeBuilder{
			samples:  scaled,
			labels:   labels,
			weights:  weights,
			maxDepth: opts.MaxDepth,
			minSplit: opts.MinSplit,
			minLeaf:  opts.MinLeaf,
			features: featCount,
			rng:      rng,
		}
		builder.grow(idx, 0)
		trees = append(trees, Tree{Nodes: builder.nodes})
	}

	if len(featureNames) != featCount {
		featureNames = make([]string, featCount)
		for i := range featureNames {
			featureNames[i] = "f" + itoa(i)
		}
	}

	return &Model{artifact: Artifact{
		FeatureNames: featureNames,
		Trees:        trees,
		Means:        means,
		Stds:         stds,
		MaxDepth:     opts.MaxDepth,
		MinSplit:     opts.MinSplit,
		MinLeaf:      opts.MinLeaf,
		Seed:         opts.Seed,
	}}, nil
}

// PredictProb returns the forest's averaged probability of the positive
// class. The sample is raw; scaling happens against the trained means/stds.
func (m *Model) PredictProb(sample []float64) float64 {
	if m == nil || len(sample) != len(m.artifact.Means) || len(m.artifact.Trees) == 0 {
		return 0.5
	}
	x := normalize(sample, m.artifact.Means, m.artifact.Stds)
	sum := 0.0
	for i := range m.artifact.Trees {
		sum += m.artifact.Trees[i].predict(x)
	}
	return sum / float64(len(m.artifact.Trees))
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	probs := make([]float64, len(samples))
	for i := range samples {
		probs[i] = m.PredictProb(samples[i])
	}
	return probs
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.artifact.FeatureNames))
	copy(out, m.artifact.FeatureNames)
	return out
}

func (m *Model) TreeCount() int {
	if m == nil {
		return 0
	}
	return len(m.artifact.Trees)
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	return json.Marshal(m.artifact)
}

func UnmarshalBinary(data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if len(a.Trees) == 0 || len(a.Means) == 0 || len(a.Means) != len(a.Stds) {
		return nil, errors.New("invalid artifact")
	}
	return &Model{artifact: a}, nil
}

func (t *Tree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0.5
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	samples  [][]float64
	labels   []float64
	weights  map[float64]float64
	maxDepth int
	minSplit int
	minLeaf  int
	features int
	rng      *rand.Rand
	nodes    []Node
}

// grow recursively builds the subtree over idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	prob := b.weightedProb(idx)
	if depth >= b.maxDepth || len(idx) < b.minSplit || prob == 0 || prob == 1 {
		b.nodes[nodeIdx] = Node{Leaf: true, Prob: prob}
		return nodeIdx
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		b.nodes[nodeIdx] = Node{Leaf: true, Prob: prob}
		return nodeIdx
	}

	var left, right []int
	for _, i := range idx {
		if b.samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		b.nodes[nodeIdx] = Node{Leaf: true, Prob: prob}
		return nodeIdx
	}

	leftIdx := b.grow(left, depth+1)
	rightIdx := b.grow(right, depth+1)
	b.nodes[nodeIdx] = Node{Feature: feature, Threshold: threshold, Left: leftIdx, Right: rightIdx}
	return nodeIdx
}

// bestSplit searches a sqrt-sized random feature subset for the threshold
// minimizing class-weighted gini impurity.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	subset := b.featureSubset()

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	for _, f := range subset {
		values := make([]float64, 0, len(idx))
		for _, i := range idx {
			values = append(values, b.samples[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2
			gini := b.splitGini(idx, f, threshold)
			if gini < bestGini {
				bestGini = gini
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) featureSubset() []int {
	k := int(math.Ceil(math.Sqrt(float64(b.features))))
	perm := b.rng.Perm(b.features)
	return perm[:k]
}

// splitGini is the weight-proportional average of the two children's gini
// impurities, with balanced class weights applied to every count.
func (b *treeBuilder) splitGini(idx []int, feature int, threshold float64) float64 {
	var leftPos, leftNeg, rightPos, rightNeg float64
	for _, i := range idx {
		w := b.weights[b.labels[i]]
		if b.samples[i][feature] <= threshold {
			if b.labels[i] == 1 {
				leftPos += w
			} else {
				leftNeg += w
			}
		} else {
			if b.labels[i] == 1 {
				rightPos += w
			} else {
				rightNeg += w
			}
		}
	}
	total := leftPos + leftNeg + rightPos + rightNeg
	if total == 0 {
		return math.Inf(1)
	}
	leftTotal := leftPos + leftNeg
	rightTotal := rightPos + rightNeg
	return leftTotal/total*gini(leftPos, leftNeg) + rightTotal/total*gini(rightPos, rightNeg)
}

func gini(pos, neg float64) float64 {
	total := pos + neg
	if total == 0 {
		return 0
	}
	p := pos / total
	q := neg / total
	return 1 - p*p - q*q
}

func (b *treeBuilder) weightedProb(idx []int) float64 {
	var pos, total float64
	for _, i := range idx {
		w := b.weights[b.labels[i]]
		total += w
		if b.labels[i] == 1 {
			pos += w
		}
	}
	if total == 0 {
		return 0.5
	}
	return pos / total
}

// balancedClassWeights gives each class weight n / (2 * count_class), so
// both classes carry equal mass in impurity and leaf probabilities.
func balancedClassWeights(labels []float64) map[float64]float64 {
	counts := map[float64]float64{}
	for _, l := range labels {
		counts[l]++
	}
	weights := map[float64]float64{0: 1, 1: 1}
	n := float64(len(labels))
	for class, count := range counts {
		weights[class] = n / (2 * count)
	}
	return weights
}

func bootstrapSample(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

func fitScaler(samples [][]float64) ([]float64, []float64) {
	featCount := len(samples[0])
	means := make([]float64, featCount)
	stds := make([]float64, featCount)
	column := make([]float64, len(samples))
	for j := 0; j < featCount; j++ {
		for i := range samples {
			column[i] = samples[i][j]
		}
		means[j], stds[j] = ta.MeanStd(column)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
