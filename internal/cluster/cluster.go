// Package cluster groups accepted candidates by embedding similarity so
// near-duplicate questions can be reviewed together.
package cluster

import (
	"fmt"
	"math"
)

// Member is one accepted candidate entering clustering.
type Member struct {
	ID     string
	Stem   string
	Vector []float64
}

// Cluster is one group of near-duplicate members. Clusters partition the
// input: every member lands in exactly one, singletons allowed.
type Cluster struct {
	ID               string   `json:"id"`
	MemberIDs        []string `json:"member_ids"`
	RepresentativeID string   `json:"representative_id"`
	Summary          string   `json:"summary,omitempty"`
}

// Engine clusters members greedily against a running mean centroid.
// Iteration follows the input order, so identical inputs always produce
// identical clusters. Every seed scans the remaining members, making this
// O(n²); fine at dataset-building scale.
type Engine struct {
	threshold float64
}

// NewEngine creates an Engine with the given cosine similarity threshold.
func NewEngine(threshold float64) *Engine {
	return &Engine{threshold: threshold}
}

type workingCluster struct {
	memberIdx []int
	sum       []float64
	centroid  []float64
}

func (w *workingCluster) add(idx int, v []float64) {
	if w.sum == nil {
		w.sum = make([]float64, len(v))
		w.centroid = make([]float64, len(v))
	}
	w.memberIdx = append(w.memberIdx, idx)
	n := float64(len(w.memberIdx))
	for i, x := range v {
		w.sum[i] += x
		w.centroid[i] = w.sum[i] / n
	}
}

// Build partitions members into clusters. The earliest unclustered member
// seeds a cluster and its scan absorbs every remaining unclustered member
// whose similarity to the running centroid meets the threshold; only then
// does the next unclustered member seed the next cluster.
func (e *Engine) Build(members []Member) []Cluster {
	clustered := make([]bool, len(members))
	var working []*workingCluster

	for i := range members {
		if clustered[i] {
			continue
		}
		w := &workingCluster{}
		w.add(i, members[i].Vector)
		clustered[i] = true
		for j := i + 1; j < len(members); j++ {
			if clustered[j] {
				continue
			}
			if cosine(members[j].Vector, w.centroid) >= e.threshold {
				w.add(j, members[j].Vector)
				clustered[j] = true
			}
		}
		working = append(working, w)
	}

	out := make([]Cluster, len(working))
	for ci, w := range working {
		c := Cluster{ID: fmt.Sprintf("cluster-%03d", ci)}
		for _, idx := range w.memberIdx {
			c.MemberIDs = append(c.MemberIDs, members[idx].ID)
		}
		c.RepresentativeID = members[representative(w, members)].ID
		out[ci] = c
	}
	return out
}

// representative picks the member closest to the final centroid. Ties go
// to the earliest member in input order.
func representative(w *workingCluster, members []Member) int {
	best := w.memberIdx[0]
	bestSim := cosine(members[best].Vector, w.centroid)
	for _, idx := range w.memberIdx[1:] {
		if sim := cosine(members[idx].Vector, w.centroid); sim > bestSim {
			best = idx
			bestSim = sim
		}
	}
	return best
}

// cosine returns the cosine similarity of a and b, 0 when either has zero
// magnitude or the lengths differ.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
