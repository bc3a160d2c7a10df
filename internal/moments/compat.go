package moments

import (
	"math"
	"time"
)

// compatibility evaluation: a candidate photo joins an existing cluster
// when the burst override fires, or when all four predicates (visual,
// temporal, spatial, subject-count) hold. Missing data is permissive by
// design: an analysis failure must never split a cluster.

// matchReason explains a compatibility decision for diagnostics.
type matchReason string

const (
	reasonBurst          matchReason = "burst_window"
	reasonAllPredicates  matchReason = "all_predicates"
	reasonNoFingerprint  matchReason = "cluster_without_fingerprint"
	reasonVisual         matchReason = "visual_below_threshold"
	reasonTemporal       matchReason = "time_gap_exceeded"
	reasonSpatial        matchReason = "location_radius_exceeded"
	reasonSubjectCount   matchReason = "subject_count_mismatch"
)

// faceBand groups face counts into compatibility bands: solo/couple shots
// (1-2 faces) never merge with crowd shots (3+), but zero or unknown
// counts are compatible with anything.
type faceBand int

const (
	bandWildcard faceBand = iota // 0 faces or count unknown
	bandSmall                    // 1-2 faces
	bandCrowd                    // 3+ faces
)

func faceBandOf(count int, known bool) faceBand {
	switch {
	case !known || count == 0:
		return bandWildcard
	case count <= 2:
		return bandSmall
	default:
		return bandCrowd
	}
}

// faceCountCompatible implements the subject-count table as pure data:
// wildcard bands match everything, otherwise bands must be equal.
func faceCountCompatible(a, b faceBand) bool {
	if a == bandWildcard || b == bandWildcard {
		return true
	}
	return a == b
}

// isCompatible decides whether photo p belongs to cluster c. The returned
// reason names the first failing predicate (or the rule that admitted p).
func isCompatible(p *Photo, c *Cluster, crit Criteria) (bool, matchReason) {
	// Burst override: rapid-fire shutter bursts cluster on temporal
	// proximity alone, since motion blur or a blink can momentarily
	// tank visual similarity.
	for _, m := range c.Members {
		if absDuration(p.TakenAt.Sub(m.TakenAt)) <= crit.BurstWindow {
			return true, reasonBurst
		}
	}

	// Defensive guard: a cluster that somehow has no representative
	// fingerprint never accepts members.
	if len(c.RepresentativeFingerprint) == 0 {
		return false, reasonNoFingerprint
	}

	// Visual: compare against the fixed representative fingerprint.
	// A candidate without a fingerprint passes; similarity against an
	// absent vector is undefined, not a mismatch.
	if len(p.Fingerprint) > 0 {
		if Similarity(p.Fingerprint, c.RepresentativeFingerprint) < crit.VisualSimilarityThreshold {
			return false, reasonVisual
		}
	}

	// Temporal: rolling window against the most recently added member.
	// The cluster as a whole may span longer than the gap threshold as
	// long as consecutive gaps stay small.
	last := c.lastMember()
	if last == nil {
		return false, reasonNoFingerprint
	}
	if absDuration(p.TakenAt.Sub(last.TakenAt)) > crit.TimeGapThreshold {
		return false, reasonTemporal
	}

	// Spatial: only enforced when both sides carry coordinates.
	if p.Location != nil && c.CenterLocation != nil {
		d := haversineMeters(p.Location.Lat, p.Location.Lng, c.CenterLocation.Lat, c.CenterLocation.Lng)
		if d > crit.LocationRadiusMeters {
			return false, reasonSpatial
		}
	}

	// Subject-count: compatible if ANY member's band matches.
	pBand := faceBandOf(p.faceCount())
	ok := false
	for _, m := range c.Members {
		if faceCountCompatible(pBand, faceBandOf(m.faceCount())) {
			ok = true
			break
		}
	}
	if !ok {
		return false, reasonSubjectCount
	}

	return true, reasonAllPredicates
}

// haversineMeters computes the great-circle distance between two WGS84
// coordinates in meters.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusM = 6371000.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
