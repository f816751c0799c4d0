package adapters

import (
	"context"
	"fmt"
	"math"
	"sort"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

// TreeAdapter forecasts the cumulative horizon return with gradient-boosted
// regression trees over lagged return and trailing volatility features. The
// train/validation split is strictly time ordered, and the feature builder
// rejects any lag at or beyond the horizon, so nothing from inside the
// forecast window can leak into training.
type TreeAdapter struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewTreeAdapter(cfg config.EngineConfig, log *xlogger.Logger) (*TreeAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &TreeAdapter{cfg: cfg, log: log}, nil
}

func (a *TreeAdapter) Name() string { return "gbt" }

func (a *TreeAdapter) FitAndForecast(ctx context.Context, series models.TimeSeries, _ map[string]models.TimeSeries, horizonSteps int) (models.ModelArtifact, error) {
	if err := ctx.Err(); err != nil {
		return models.ModelArtifact{}, err
	}
	if series.Len() < a.cfg.MinTrainSize {
		return models.ModelArtifact{}, &models.DataInsufficientError{Component: a.Name(), Need: a.cfg.MinTrainSize, Got: series.Len()}
	}

	values := series.Values()
	returns := features.LogReturnsOf(values)
	spec := features.LagSpecForHorizon(horizonSteps)

	X, y, err := features.BuildSupervised(returns, horizonSteps, spec)
	if err != nil {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: err}
	}
	if len(X) < 40 {
		return models.ModelArtifact{}, &models.DataInsufficientError{Component: a.Name(), Need: 40, Got: len(X)}
	}

	// Time-ordered split: the newest fifth validates, never shuffled.
	split := len(X) * 4 / 5
	trainX, trainY := X[:split], y[:split]
	valX, valY := X[split:], y[split:]

	boost, err := fitBoosted(trainX, trainY, valX, valY, boostParams{
		rounds:       a.cfg.TreeRounds,
		learningRate: a.cfg.TreeLearningRate,
		maxDepth:     a.cfg.TreeMaxDepth,
		minLeaf:      5,
	})
	if err != nil {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: err}
	}
	if a.log != nil {
		a.log.Debug("gbt fitted",
			xlogger.String("symbol", series.Symbol),
			xlogger.Int("rounds", boost.roundsUsed),
			xlogger.Int("train_rows", len(trainX)))
	}

	// Latest feature row uses only observed history.
	row := latestFeatureRow(returns, spec)
	cumReturn := boost.predict(row)

	// Validation residual spread, in cumulative-return space.
	var valResid []float64
	for i, r := range valX {
		valResid = append(valResid, valY[i]-boost.predict(r))
	}
	sigmaH := features.StdDev(valResid)
	if sigmaH <= 0 {
		sigmaH = features.StdDev(trainY)
	}

	last := values[len(values)-1]
	points := make([]float64, horizonSteps)
	stds := make([]float64, horizonSteps)
	for s := 1; s <= horizonSteps; s++ {
		frac := float64(s) / float64(horizonSteps)
		level := last * math.Exp(cumReturn*frac)
		points[s-1] = level
		stds[s-1] = level * sigmaH * math.Sqrt(frac)
	}

	// Backtest score: validation error mapped to level terms.
	var predLevels, actLevels []float64
	for i := range valX {
		predLevels = append(predLevels, last*math.Exp(boost.predict(valX[i])))
		actLevels = append(actLevels, last*math.Exp(valY[i]))
	}
	rmse := features.RMSE(predLevels, actLevels)

	return models.ModelArtifact{
		ModelName:     a.Name(),
		PointForecast: points,
		ResidualStd:   stds,
		BacktestRMSE:  rmse,
	}, nil
}

func latestFeatureRow(returns []float64, spec features.LagSpec) []float64 {
	i := len(returns) - 1
	row := make([]float64, 0, len(spec.ReturnLags)+len(spec.VolWindows))
	for _, l := range spec.ReturnLags {
		idx := i - (l - 1)
		if idx < 0 {
			idx = 0
		}
		row = append(row, returns[idx])
	}
	for _, w := range spec.VolWindows {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		row = append(row, features.StdDev(returns[start:i+1]))
	}
	return row
}

type boostParams struct {
	rounds       int
	learningRate float64
	maxDepth     int
	minLeaf      int
}

type boostedModel struct {
	base       float64
	trees      []*treeNode
	lr         float64
	roundsUsed int
}

func (m *boostedModel) predict(row []float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.lr * t.predict(row)
	}
	return out
}

// fitBoosted runs squared-loss gradient boosting with early stopping on the
// validation window.
func fitBoosted(trainX [][]float64, trainY []float64, valX [][]float64, valY []float64, p boostParams) (*boostedModel, error) {
	if len(trainX) == 0 {
		return nil, fmt.Errorf("gbt: empty training set")
	}
	m := &boostedModel{base: features.Mean(trainY), lr: p.learningRate}

	pred := make([]float64, len(trainY))
	for i := range pred {
		pred[i] = m.base
	}

	bestVal := math.Inf(1)
	bestRounds := 0
	patience := 10
	sinceBest := 0

	for round := 0; round < p.rounds; round++ {
		grad := make([]float64, len(trainY))
		for i := range trainY {
			grad[i] = trainY[i] - pred[i]
		}
		tree := growTree(trainX, grad, p.maxDepth, p.minLeaf)
		if tree == nil {
			break
		}
		m.trees = append(m.trees, tree)
		for i := range pred {
			pred[i] += m.lr * tree.predict(trainX[i])
		}

		if len(valX) > 0 {
			var sse float64
			for i := range valX {
				d := valY[i] - m.predict(valX[i])
				sse += d * d
			}
			if sse < bestVal {
				bestVal = sse
				bestRounds = len(m.trees)
				sinceBest = 0
			} else {
				sinceBest++
				if sinceBest >= patience {
					break
				}
			}
		} else {
			bestRounds = len(m.trees)
		}
	}

	if bestRounds == 0 && len(m.trees) > 0 {
		bestRounds = len(m.trees)
	}
	m.trees = m.trees[:bestRounds]
	m.roundsUsed = bestRounds
	return m, nil
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

func (t *treeNode) predict(row []float64) float64 {
	node := t
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// growTree fits one regression tree to the gradient by greedy SSE splits.
func growTree(X [][]float64, y []float64, depth, minLeaf int) *treeNode {
	if len(X) == 0 {
		return nil
	}
	if depth <= 0 || len(X) < 2*minLeaf {
		return &treeNode{leaf: true, value: features.Mean(y)}
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestScore := sse(y)
	nFeatures := len(X[0])

	for f := 0; f < nFeatures; f++ {
		thresholds := candidateThresholds(X, f)
		for _, th := range thresholds {
			var leftY, rightY []float64
			for i, row := range X {
				if row[f] <= th {
					leftY = append(leftY, y[i])
				} else {
					rightY = append(rightY, y[i])
				}
			}
			if len(leftY) < minLeaf || len(rightY) < minLeaf {
				continue
			}
			score := sse(leftY) + sse(rightY)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = th
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: features.Mean(y)}
	}

	var leftX, rightX [][]float64
	var leftY, rightY []float64
	for i, row := range X {
		if row[bestFeature] <= bestThreshold {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      growTree(leftX, leftY, depth-1, minLeaf),
		right:     growTree(rightX, rightY, depth-1, minLeaf),
	}
}

// candidateThresholds returns up to 16 quantile cut points for a feature.
func candidateThresholds(X [][]float64, f int) []float64 {
	vals := make([]float64, len(X))
	for i, row := range X {
		vals[i] = row[f]
	}
	sort.Float64s(vals)
	const maxCuts = 16
	step := len(vals) / (maxCuts + 1)
	if step < 1 {
		step = 1
	}
	var out []float64
	for i := step; i < len(vals); i += step {
		if len(out) > 0 && vals[i] == out[len(out)-1] {
			continue
		}
		out = append(out, vals[i])
	}
	return out
}

func sse(y []float64) float64 {
	m := features.Mean(y)
	var s float64
	for _, v := range y {
		d := v - m
		s += d * d
	}
	return s
}
