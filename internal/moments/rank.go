package moments

import "sort"

// Combined-score weights. Quality dominates, relevance and uniqueness
// keep near-duplicates of the winner out of second place, the rest nudge.
const (
	weightQuality    = 0.30
	weightRelevance  = 0.25
	weightUniqueness = 0.20
	weightTemporal   = 0.10
	weightSaliency   = 0.10
	weightAesthetic  = 0.05
	neutralScore     = 0.5
	utilityAesthetic = 0.1
)

// rankCluster scores every member on six factors, sorts descending by
// combined score (stable, so ties keep insertion order), assigns ranks
// and picks the representative.
func rankCluster(c *Cluster) {
	if len(c.Members) == 0 {
		return
	}

	avgFaces, avgFacesKnown := c.averageFaceCount()

	scores := make([]PhotoScore, len(c.Members))
	for i, p := range c.Members {
		s := PhotoScore{
			Photo:              p,
			PhotoID:            p.ID,
			QualityScore:       qualityFactor(p),
			ClusterRelevance:   relevanceFactor(p, c, avgFaces, avgFacesKnown),
			UniquenessScore:    uniquenessFactor(p, c.Members),
			TemporalOptimality: temporalFactor(p, c),
			SaliencyScore:      saliencyFactor(p),
			AestheticScore:     aestheticFactor(p),
		}
		s.Combined = weightQuality*s.QualityScore +
			weightRelevance*s.ClusterRelevance +
			weightUniqueness*s.UniquenessScore +
			weightTemporal*s.TemporalOptimality +
			weightSaliency*s.SaliencyScore +
			weightAesthetic*s.AestheticScore
		scores[i] = s
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Combined > scores[j].Combined
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}

	c.RankedMembers = scores

	// A utility photo never represents a cluster when any real photo is
	// available, even if its combined score somehow came out on top.
	top := scores[0]
	for _, s := range scores {
		if s.Photo.Quality == nil || !s.Photo.Quality.IsUtility {
			top = s
			break
		}
	}
	c.Representative = top.Photo

	if len(c.Members) == 1 {
		// A singleton ranks trivially; confidence is just the photo's
		// own quality.
		c.RankingConfidence = top.QualityScore
	} else {
		c.RankingConfidence = top.Combined
	}
}

// qualityFactor prefers face-specific quality for photos with faces and
// falls back to general technical quality. Missing quality data is
// neutral, never an error. Utility photos (screenshots, scans) are pinned
// near zero regardless of how sharp they are.
func qualityFactor(p *Photo) float64 {
	if p.Quality == nil {
		return neutralScore
	}
	if p.Quality.IsUtility {
		return utilityAesthetic
	}
	if cnt, ok := p.faceCount(); ok && cnt > 0 && p.Quality.FaceQuality > 0 {
		return clamp01(p.Quality.FaceQuality)
	}
	return clamp01(p.Quality.Technical)
}

// relevanceFactor blends visual similarity to the representative
// fingerprint (0.7) with face-count consistency against the cluster
// average (0.3).
func relevanceFactor(p *Photo, c *Cluster, avgFaces float64, avgKnown bool) float64 {
	visual := neutralScore
	if len(p.Fingerprint) > 0 && len(c.RepresentativeFingerprint) > 0 {
		visual = Similarity(p.Fingerprint, c.RepresentativeFingerprint)
	}

	faces := neutralScore
	if cnt, ok := p.faceCount(); ok && avgKnown {
		delta := float64(cnt) - avgFaces
		if delta < 0 {
			delta = -delta
		}
		faces = 1 - minFloat(1, delta/3)
	}

	return clamp01(0.7*visual + 0.3*faces)
}

// uniquenessFactor penalizes near-duplicates of other members so the
// second-ranked photo is not a copy of the winner, with a small bonus for
// distinct salient regions.
func uniquenessFactor(p *Photo, members []*Photo) float64 {
	score := 1.0
	for _, other := range members {
		if other == p {
			continue
		}
		if len(p.Fingerprint) == 0 || len(other.Fingerprint) == 0 {
			continue
		}
		sim := Similarity(p.Fingerprint, other.Fingerprint)
		switch {
		case sim > 0.8:
			score -= 0.3
		case sim > 0.6:
			score -= 0.1
		}
	}

	if p.Quality != nil {
		score += 0.05 * float64(len(p.Quality.Salient))
	}

	return clamp01(score)
}

// temporalFactor scores a photo by its position in the cluster's time
// span. The very first and last shots of a burst are more likely test
// shots, so the middle 60% scores full marks.
func temporalFactor(p *Photo, c *Cluster) float64 {
	span := c.EndTime.Sub(c.StartTime)
	if span <= 0 {
		return 1.0
	}

	frac := float64(p.TakenAt.Sub(c.StartTime)) / float64(span)
	edge := minFloat(frac, 1-frac)
	switch {
	case edge >= 0.2:
		return 1.0
	case edge >= 0.1:
		return 0.7
	default:
		return 0.4
	}
}

// saliencyFactor rewards well-composed photos: 1-3 salient regions reads
// as deliberate composition, more than 3 as possible clutter.
func saliencyFactor(p *Photo) float64 {
	if p.Quality == nil {
		return neutralScore
	}

	score := 0.5
	switch n := len(p.Quality.Salient); {
	case n >= 1 && n <= 3:
		score += 0.3
	case n > 3:
		score += 0.1
	}
	score += 0.2 * clamp01(p.Quality.Composition)

	return clamp01(score)
}

// aestheticFactor normalizes the analyzer's native [-1,1] aesthetic score
// to [0,1] and blends it 80/20 with a neutral baseline. Utility photos
// (screenshots, scans) get a fixed low value regardless of other scores.
func aestheticFactor(p *Photo) float64 {
	if p.Quality == nil {
		return neutralScore
	}
	if p.Quality.IsUtility {
		return utilityAesthetic
	}

	score := neutralScore
	if p.Quality.HasAesthetic {
		normalized := (clampRange(p.Quality.Aesthetic, -1, 1) + 1) / 2
		score = 0.8*normalized + 0.2*neutralScore
	}

	if cnt, ok := p.faceCount(); ok && cnt > 0 {
		score += minFloat(0.2, 0.2*clamp01(p.Quality.FaceQuality))
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
