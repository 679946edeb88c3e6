package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/ml/forest"

	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrInsufficientData means too few labeled rows exist to fit a model.
	ErrInsufficientData = errors.New("ml: insufficient training data")
	// ErrNotTrained means prediction was requested with no usable model.
	ErrNotTrained = errors.New("ml: model not trained")
)

// DefaultMinSamples is the labeled-row floor below which training declines.
const DefaultMinSamples = 10

// DaySource supplies the full history for training.
type DaySource interface {
	ListAllAscending(ctx context.Context) ([]*domain.TradingDayRecord, error)
}

type TrainResult struct {
	Success  bool    `json:"success"`
	Samples  int     `json:"samples"`
	Accuracy float64 `json:"accuracy"`
	Message  string  `json:"message"`
}

type PredictionResult struct {
	Direction       domain.Direction `json:"prediction"`
	ProbabilityUp   float64          `json:"probability_up"`
	ProbabilityDown float64          `json:"probability_down"`
	Confidence      float64          `json:"confidence"`
}

type EvaluationResult struct {
	Evaluated int     `json:"evaluated"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
	Message   string  `json:"message"`
}

type Status struct {
	IsTrained       bool     `json:"is_trained"`
	TrainingSamples int      `json:"training_samples"`
	Accuracy        float64  `json:"accuracy"`
	MinRequired     int      `json:"min_required"`
	Features        []string `json:"features"`
	Ready           bool     `json:"ready_for_prediction"`
}

// artifactFile is the on-disk model shape: the forest plus its training
// provenance in one JSON document.
type artifactFile struct {
	Model           json.RawMessage `json:"model"`
	TrainingSamples int             `json:"training_samples"`
	Accuracy        float64         `json:"accuracy"`
	TrainedAt       time.Time       `json:"trained_at"`
}

// Pipeline owns the direction classifier: dataset assembly, training with
// cross-validated accuracy, the persisted artifact, and predictions.
type Pipeline struct {
	mu         sync.RWMutex
	modelPath  string
	minSamples int
	days       DaySource
	tracer     trace.Tracer

	model    *forest.Model
	samples  int
	accuracy float64
}

// NewPipeline creates the pipeline and reloads a previously saved artifact
// when one exists at modelPath.
func NewPipeline(modelPath string, minSamples int, days DaySource, tracer trace.Tracer) *Pipeline {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	p := &Pipeline{
		modelPath:  modelPath,
		minSamples: minSamples,
		days:       days,
		tracer:     tracer,
	}
	if err := p.loadArtifact(); err != nil {
		log.Printf("no model artifact loaded: %v", err)
	}
	return p
}

func (p *Pipeline) IsTrained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Train fits a fresh forest on the full stored history. Unless force is
// set, an already trained model is left alone.
func (p *Pipeline) Train(ctx context.Context, force bool) (*TrainResult, error) {
	ctx, span := p.tracer.Start(ctx, "ml.train")
	defer span.End()

	if !force && p.IsTrained() {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return &TrainResult{
			Success:  true,
			Samples:  p.samples,
			Accuracy: p.accuracy,
			Message:  "model already trained",
		}, nil
	}

	days, err := p.days.ListAllAscending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training history: %w", err)
	}

	samples, labels := PrepareDataset(days)
	if len(samples) < p.minSamples {
		return &TrainResult{
			Message: fmt.Sprintf("insufficient data for training (have %d labeled, need %d)", len(samples), p.minSamples),
		}, ErrInsufficientData
	}

	accuracy := 0.5
	if len(samples) >= DefaultMinSamples {
		folds := len(samples) / 2
		if folds > 5 {
			folds = 5
		}
		accuracy = crossValidate(samples, labels, folds)
	}

	model, err := forest.Train(samples, labels, FeatureNames, forest.DefaultTrainOptions())
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	p.mu.Lock()
	p.model = model
	p.samples = len(samples)
	p.accuracy = accuracy
	p.mu.Unlock()

	if err := p.saveArtifact(); err != nil {
		log.Printf("failed to persist model artifact: %v", err)
	}

	log.Printf("model trained on %d samples, cv accuracy %.1f%%", len(samples), accuracy*100)
	return &TrainResult{
		Success:  true,
		Samples:  len(samples),
		Accuracy: accuracy,
		Message:  fmt.Sprintf("model trained on %d samples", len(samples)),
	}, nil
}

// Predict classifies the day's next session. An untrained pipeline makes
// one lazy training attempt before giving up.
func (p *Pipeline) Predict(ctx context.Context, day *domain.TradingDayRecord, avgVolume float64) (*PredictionResult, error) {
	ctx, span := p.tracer.Start(ctx, "ml.predict")
	defer span.End()

	if !p.IsTrained() {
		if _, err := p.Train(ctx, false); err != nil {
			if errors.Is(err, ErrInsufficientData) {
				return nil, fmt.Errorf("%w: %v", ErrNotTrained, err)
			}
			return nil, err
		}
	}

	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()
	if model == nil {
		return nil, ErrNotTrained
	}

	probUp := model.PredictProb(FeatureVector(day, avgVolume))
	direction := domain.DirectionDown
	if probUp > 0.5 {
		direction = domain.DirectionUp
	}
	confidence := probUp
	if 1-probUp > confidence {
		confidence = 1 - probUp
	}

	return &PredictionResult{
		Direction:       direction,
		ProbabilityUp:   probUp,
		ProbabilityDown: 1 - probUp,
		Confidence:      confidence,
	}, nil
}

// Evaluate measures realized accuracy over the resolved predictions.
func (p *Pipeline) Evaluate(outcomes []*domain.PredictionOutcome) *EvaluationResult {
	if len(outcomes) == 0 {
		return &EvaluationResult{Message: "no evaluable rows"}
	}
	correct := 0
	for _, o := range outcomes {
		if o.Prediction == o.Actual {
			correct++
		}
	}
	acc := float64(correct) / float64(len(outcomes))
	return &EvaluationResult{
		Evaluated: len(outcomes),
		Correct:   correct,
		Accuracy:  acc,
		Message:   fmt.Sprintf("%d/%d correct (%.1f%%)", correct, len(outcomes), acc*100),
	}
}

func (p *Pipeline) Status() *Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &Status{
		IsTrained:       p.model != nil,
		TrainingSamples: p.samples,
		Accuracy:        p.accuracy,
		MinRequired:     p.minSamples,
		Features:        FeatureNames,
		Ready:           p.model != nil && p.samples >= p.minSamples,
	}
}

func (p *Pipeline) loadArtifact() error {
	data, err := os.ReadFile(p.modelPath)
	if err != nil {
		return err
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse artifact: %w", err)
	}
	model, err := forest.UnmarshalBinary(file.Model)
	if err != nil {
		return fmt.Errorf("restore forest: %w", err)
	}
	if got := model.FeatureNames(); len(got) != len(FeatureNames) {
		return fmt.Errorf("stale artifact: %d features, want %d", len(got), len(FeatureNames))
	}
	p.mu.Lock()
	p.model = model
	p.samples = file.TrainingSamples
	p.accuracy = file.Accuracy
	p.mu.Unlock()
	log.Printf("loaded model artifact (%d samples, %.1f%% accuracy)", file.TrainingSamples, file.Accuracy*100)
	return nil
}

func (p *Pipeline) saveArtifact() error {
	p.mu.RLock()
	model := p.model
	samples := p.samples
	accuracy := p.accuracy
	p.mu.RUnlock()

	blob, err := model.MarshalBinary()
	if err != nil {
		return err
	}
	data, err := json.Marshal(artifactFile{
		Model:           blob,
		TrainingSamples: samples,
		Accuracy:        accuracy,
		TrainedAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(p.modelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(p.modelPath, data, 0o644)
}

// crossValidate estimates accuracy with k-fold splits, refitting the forest
// on each training partition.
func crossValidate(samples [][]float64, labels []float64, folds int) float64 {
	if folds < 2 {
		return 0.5
	}
	n := len(samples)
	total := 0
	correct := 0
	for f := 0; f < folds; f++ {
		var trainX [][]float64
		var trainY []float64
		var testX [][]float64
		var testY []float64
		for i := 0; i < n; i++ {
			if i%folds == f {
				testX = append(testX, samples[i])
				testY = append(testY, labels[i])
			} else {
				trainX = append(trainX, samples[i])
				trainY = append(trainY, labels[i])
			}
		}
		if len(trainX) == 0 || len(testX) == 0 {
			continue
		}
		model, err := forest.Train(trainX, trainY, FeatureNames, forest.DefaultTrainOptions())
		if err != nil {
			continue
		}
		for i, prob := range model.PredictBatch(testX) {
			pred := 0.0
			if prob > 0.5 {
				pred = 1.0
			}
			if pred == testY[i] {
				correct++
			}
			total++
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(correct) / float64(total)
}
