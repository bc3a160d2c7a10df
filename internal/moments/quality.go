package moments

import (
	"math"
	"time"
)

// computeQualityMetrics derives descriptive aggregates for a finished,
// ranked cluster. Purely informational: downstream consumers use them to
// filter or explain low-confidence clusters.
func computeQualityMetrics(c *Cluster) *ClusterQualityMetrics {
	coherence := meanRepresentativeSimilarity(c)
	return &ClusterQualityMetrics{
		Diversity:          diversityMetric(c),
		Representativeness: coherence,
		TemporalCoherence:  temporalCoherenceMetric(c),
		// Same computation as representativeness, kept as a distinct
		// named metric for reporting.
		VisualCoherence:      coherence,
		AestheticConsistency: aestheticConsistencyMetric(c),
		SaliencyAlignment:    saliencyAlignmentMetric(c),
	}
}

// diversityMetric is one minus the mean pairwise similarity. A cluster of
// one photo has no pairs and reports a fixed neutral value.
func diversityMetric(c *Cluster) float64 {
	if len(c.Members) < 2 {
		return neutralScore
	}

	var sum float64
	var pairs int
	for i := 0; i < len(c.Members); i++ {
		for j := i + 1; j < len(c.Members); j++ {
			sum += Similarity(c.Members[i].Fingerprint, c.Members[j].Fingerprint)
			pairs++
		}
	}

	return clamp01(1 - sum/float64(pairs))
}

// meanRepresentativeSimilarity averages each member's similarity to the
// representative fingerprint.
func meanRepresentativeSimilarity(c *Cluster) float64 {
	if len(c.Members) == 0 {
		return 0
	}

	var sum float64
	for _, m := range c.Members {
		sum += Similarity(m.Fingerprint, c.RepresentativeFingerprint)
	}
	return clamp01(sum / float64(len(c.Members)))
}

// temporalCoherenceMetric tiers by duration and member count: a tight
// multi-shot burst is highly coherent, an hour-long sprawl is not.
func temporalCoherenceMetric(c *Cluster) float64 {
	duration := c.EndTime.Sub(c.StartTime)
	n := len(c.Members)
	switch {
	case duration <= time.Minute && n >= 3:
		return 1.0
	case duration <= 5*time.Minute && n >= 2:
		return 0.8
	case duration <= time.Hour:
		return 0.6
	default:
		return 0.3
	}
}

// aestheticConsistencyMetric rewards tight quality distributions:
// 1 - min(1, 2*stddev) over the members' quality factors.
func aestheticConsistencyMetric(c *Cluster) float64 {
	if len(c.Members) < 2 {
		return 1.0
	}

	qualities := make([]float64, len(c.Members))
	var mean float64
	for i, m := range c.Members {
		qualities[i] = qualityFactor(m)
		mean += qualities[i]
	}
	mean /= float64(len(qualities))

	var variance float64
	for _, q := range qualities {
		variance += (q - mean) * (q - mean)
	}
	variance /= float64(len(qualities))

	return clamp01(1 - minFloat(1, 2*math.Sqrt(variance)))
}

// saliencyAlignmentMetric averages, over all member pairs with saliency
// data, the symmetric mean of best-IoU matches between their salient
// region sets. Neutral when fewer than 2 members carry saliency data.
func saliencyAlignmentMetric(c *Cluster) float64 {
	var withSaliency []*Photo
	for _, m := range c.Members {
		if m.Quality != nil && len(m.Quality.Salient) > 0 {
			withSaliency = append(withSaliency, m)
		}
	}
	if len(withSaliency) < 2 {
		return neutralScore
	}

	var sum float64
	var pairs int
	for i := 0; i < len(withSaliency); i++ {
		for j := i + 1; j < len(withSaliency); j++ {
			sum += regionSetOverlap(withSaliency[i].Quality.Salient, withSaliency[j].Quality.Salient)
			pairs++
		}
	}

	return clamp01(sum / float64(pairs))
}

// regionSetOverlap is the symmetric mean of each region's best IoU against
// the other photo's region set.
func regionSetOverlap(a, b []SalientRegion) float64 {
	return (bestIoUMean(a, b) + bestIoUMean(b, a)) / 2
}

func bestIoUMean(from, against []SalientRegion) float64 {
	if len(from) == 0 {
		return 0
	}
	var sum float64
	for _, r := range from {
		best := 0.0
		for _, o := range against {
			if iou := regionIoU(r, o); iou > best {
				best = iou
			}
		}
		sum += best
	}
	return sum / float64(len(from))
}

// regionIoU computes intersection over union for two relative [x,y,w,h]
// boxes.
func regionIoU(a, b SalientRegion) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.W, b.X+b.W)
	y2 := math.Min(a.Y+a.H, b.Y+b.H)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.W*a.H + b.W*b.H - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
