// Package cluster groups stores by the shape of their category revenue mix.
// Cluster membership supplies the store-group fallback key for baseline
// lookups: a store with no history of its own borrows its group's history,
// clearly labeled as an estimate.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/retailops/shelfwise/pkg/ingest"
)

var (
	// ErrInvalidK is returned when the cluster count is not positive
	ErrInvalidK = errors.New("cluster count must be positive")
	// ErrInvalidIterations is returned when the iteration cap is not positive
	ErrInvalidIterations = errors.New("max iterations must be positive")
)

// Config holds clustering settings.
type Config struct {
	// K is the number of store groups
	K int `yaml:"k" default:"4"`

	// MaxIterations caps Lloyd's algorithm iterations
	MaxIterations int `yaml:"maxIterations" default:"50"`

	// Seed makes runs reproducible
	Seed int64 `yaml:"seed" default:"1"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.K <= 0 {
		return ErrInvalidK
	}

	if c.MaxIterations <= 0 {
		return ErrInvalidIterations
	}

	return nil
}

// Assignment maps stores to their group keys.
type Assignment struct {
	groups   map[string]string
	clusters map[string][]string
}

// NewAssignment builds an assignment from explicit store to group pairs,
// for callers that bring their own grouping instead of clustering.
func NewAssignment(groups map[string]string) *Assignment {
	a := &Assignment{
		groups:   make(map[string]string, len(groups)),
		clusters: make(map[string][]string),
	}

	for storeID, key := range groups {
		a.groups[storeID] = key
		a.clusters[key] = append(a.clusters[key], storeID)
	}
	for _, ids := range a.clusters {
		sort.Strings(ids)
	}

	return a
}

// GroupKey returns the group key for a store. Satisfies
// baseline.GroupResolver.
func (a *Assignment) GroupKey(storeID string) (string, bool) {
	key, ok := a.groups[storeID]
	return key, ok
}

// Groups returns group key -> member store IDs, members sorted.
func (a *Assignment) Groups() map[string][]string {
	return a.clusters
}

// Clusterer runs k-means over per-store feature vectors.
type Clusterer struct {
	log logrus.FieldLogger
	cfg Config
}

// New creates a clusterer.
func New(log logrus.FieldLogger, cfg *Config) (*Clusterer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cluster config: %w", err)
	}

	return &Clusterer{
		log: log.WithField("service", "cluster"),
		cfg: *cfg,
	}, nil
}

// Cluster assigns every store in the snapshot to a group. The feature vector
// of a store is its revenue share per category, so stores cluster by mix
// shape rather than absolute size. Deterministic for a fixed seed.
func (c *Clusterer) Cluster(snapshot *ingest.Snapshot) (*Assignment, error) {
	stores := snapshot.Stores()
	categories := snapshot.Categories()

	assignment := &Assignment{
		groups:   make(map[string]string, len(stores)),
		clusters: make(map[string][]string),
	}

	if len(stores) == 0 {
		return assignment, nil
	}

	features := make([][]float64, len(stores))
	for i, storeID := range stores {
		features[i] = featureVector(snapshot, storeID, categories)
	}

	k := c.cfg.K
	if k > len(stores) {
		k = len(stores)
	}

	rng := rand.New(rand.NewSource(c.cfg.Seed)) //nolint:gosec // Reproducible clustering, not cryptography
	centroids := seedCentroids(rng, features, k)

	members := make([]int, len(stores))
	for iter := 0; iter < c.cfg.MaxIterations; iter++ {
		moved := assignMembers(features, centroids, members)
		recomputeCentroids(features, members, centroids)

		if !moved {
			break
		}
	}

	for i, storeID := range stores {
		key := fmt.Sprintf("group_%d", members[i])
		assignment.groups[storeID] = key
		assignment.clusters[key] = append(assignment.clusters[key], storeID)
	}
	for _, ids := range assignment.clusters {
		sort.Strings(ids)
	}

	c.log.WithFields(logrus.Fields{
		"stores": len(stores),
		"groups": len(assignment.clusters),
	}).Info("Clustered stores")

	return assignment, nil
}

// featureVector is the store's revenue share per category. Zero-revenue
// stores get a zero vector rather than NaNs.
func featureVector(snapshot *ingest.Snapshot, storeID string, categories []string) []float64 {
	vec := make([]float64, len(categories))

	total := snapshot.StoreRevenue(storeID)
	if total <= 0 {
		return vec
	}

	for i, categoryKey := range categories {
		if rec, ok := snapshot.Record(storeID, categoryKey); ok {
			vec[i] = rec.Revenue / total
		}
	}

	return vec
}

// seedCentroids picks initial centroids with k-means++ weighting.
func seedCentroids(rng *rand.Rand, features [][]float64, k int) [][]float64 {
	centroids := make([][]float64, 0, k)

	first := features[rng.Intn(len(features))]
	centroids = append(centroids, append([]float64(nil), first...))

	for len(centroids) < k {
		weights := make([]float64, len(features))
		sum := 0.0
		for i, f := range features {
			d := nearestDistance(f, centroids)
			weights[i] = d * d
			sum += weights[i]
		}

		idx := 0
		if sum > 0 {
			target := rng.Float64() * sum
			for i, w := range weights {
				target -= w
				if target <= 0 {
					idx = i
					break
				}
			}
		} else {
			idx = rng.Intn(len(features))
		}

		centroids = append(centroids, append([]float64(nil), features[idx]...))
	}

	return centroids
}

func nearestDistance(f []float64, centroids [][]float64) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		if d := floats.Distance(f, c, 2); d < best {
			best = d
		}
	}

	return best
}

func assignMembers(features, centroids [][]float64, members []int) bool {
	moved := false
	for i, f := range features {
		best, bestDist := 0, math.MaxFloat64
		for j, c := range centroids {
			if d := floats.Distance(f, c, 2); d < bestDist {
				best, bestDist = j, d
			}
		}

		if members[i] != best {
			members[i] = best
			moved = true
		}
	}

	return moved
}

func recomputeCentroids(features [][]float64, members []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	for j := range centroids {
		for i := range centroids[j] {
			centroids[j][i] = 0
		}
	}

	for i, f := range features {
		j := members[i]
		floats.Add(centroids[j], f)
		counts[j]++
	}

	for j := range centroids {
		if counts[j] > 0 {
			floats.Scale(1/float64(counts[j]), centroids[j])
		}
	}
}
