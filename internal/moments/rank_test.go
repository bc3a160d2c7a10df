package moments

import (
	"math"
	"testing"
	"time"
)

func qualityPtr(q QualityScores) *QualityScores { return &q }

func TestRankClusterOrdering(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	fp := []float32{1, 0, 0}

	sharp := testPhoto("sharp", base.Add(20*time.Second), fp)
	sharp.Quality = qualityPtr(QualityScores{Technical: 0.9})

	blurry := testPhoto("blurry", base.Add(30*time.Second), fp)
	blurry.Quality = qualityPtr(QualityScores{Technical: 0.2})

	middling := testPhoto("middling", base.Add(40*time.Second), fp)
	middling.Quality = qualityPtr(QualityScores{Technical: 0.55})

	c := newTestCluster(
		testPhoto("anchor", base, fp),
		sharp, blurry, middling,
	)
	c.EndTime = base.Add(60 * time.Second)
	rankCluster(c)

	if len(c.RankedMembers) != 4 {
		t.Fatalf("expected 4 ranked members, got %d", len(c.RankedMembers))
	}
	for i, s := range c.RankedMembers {
		if s.Rank != i+1 {
			t.Errorf("position %d has rank %d", i, s.Rank)
		}
		if i > 0 && s.Combined > c.RankedMembers[i-1].Combined {
			t.Errorf("ranking not descending at position %d: %v > %v",
				i, s.Combined, c.RankedMembers[i-1].Combined)
		}
	}

	if c.Representative == nil {
		t.Fatal("no representative picked")
	}
	if c.Representative.ID == "blurry" {
		t.Error("blurry photo should not be the representative")
	}
}

func TestRankClusterUtilityNeverWins(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	fp := []float32{1, 0, 0}

	// The screenshot has perfect technical quality but is a utility photo.
	screenshot := testPhoto("screenshot", base.Add(25*time.Second), fp)
	screenshot.Quality = qualityPtr(QualityScores{Technical: 1.0, IsUtility: true})

	snapshot := testPhoto("snapshot", base.Add(30*time.Second), fp)
	snapshot.Quality = qualityPtr(QualityScores{Technical: 0.7, Aesthetic: 0.4, HasAesthetic: true})

	c := newTestCluster(testPhoto("anchor", base, fp), screenshot, snapshot)
	c.EndTime = base.Add(50 * time.Second)
	rankCluster(c)

	if c.Representative.ID == "screenshot" {
		t.Error("utility photo became representative despite alternatives")
	}
}

func TestRankClusterStableTies(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	fp := []float32{1, 0, 0}

	// Identical photos at the same offset produce identical scores; the
	// stable sort must keep member order.
	c := newTestCluster(
		testPhoto("first", base, fp),
		testPhoto("second", base, fp),
		testPhoto("third", base, fp),
	)
	rankCluster(c)

	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got := c.RankedMembers[i].PhotoID; got != id {
			t.Errorf("tie broken unstably at position %d: got %s, want %s", i, got, id)
		}
	}
}

func TestRankClusterSingletonConfidence(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

	p := testPhoto("only", base, []float32{1, 0})
	p.Quality = qualityPtr(QualityScores{Technical: 0.85})

	c := newTestCluster(p)
	rankCluster(c)

	if math.Abs(c.RankingConfidence-0.85) > 0.0001 {
		t.Errorf("singleton confidence = %v, want the photo's quality 0.85", c.RankingConfidence)
	}
	if c.Representative != p {
		t.Error("singleton must be its own representative")
	}
}

func TestQualityFactor(t *testing.T) {
	tests := []struct {
		name     string
		quality  *QualityScores
		faces    *int
		expected float64
	}{
		{"missing quality is neutral", nil, nil, 0.5},
		{"technical only", qualityPtr(QualityScores{Technical: 0.8}), nil, 0.8},
		{"face quality preferred with faces", qualityPtr(QualityScores{Technical: 0.9, FaceQuality: 0.6}), intPtr(2), 0.6},
		{"technical when no faces", qualityPtr(QualityScores{Technical: 0.9, FaceQuality: 0.6}), intPtr(0), 0.9},
		{"technical when face quality absent", qualityPtr(QualityScores{Technical: 0.7}), intPtr(2), 0.7},
		{"utility pinned low despite sharpness", qualityPtr(QualityScores{Technical: 1.0, IsUtility: true}), nil, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Photo{ID: "p", Quality: tt.quality, FaceCount: tt.faces}
			if got := qualityFactor(p); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("qualityFactor = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUniquenessFactor(t *testing.T) {
	fpA := []float32{1, 0, 0}

	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	dup1 := testPhoto("dup1", base, fpA)
	dup2 := testPhoto("dup2", base, fpA)
	distinct := testPhoto("distinct", base, []float32{0, 1, 0})
	members := []*Photo{dup1, dup2, distinct}

	// dup1 has one near-identical sibling: 1.0 - 0.3.
	if got := uniquenessFactor(dup1, members); math.Abs(got-0.7) > 0.0001 {
		t.Errorf("duplicate uniqueness = %v, want 0.7", got)
	}

	// distinct overlaps nobody.
	if got := uniquenessFactor(distinct, members); math.Abs(got-1.0) > 0.0001 {
		t.Errorf("distinct uniqueness = %v, want 1.0", got)
	}
}

func TestUniquenessFactorSaliencyBonus(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	p := testPhoto("p", base, []float32{1, 0})
	p.Quality = qualityPtr(QualityScores{Salient: []SalientRegion{
		{X: 0.1, Y: 0.1, W: 0.2, H: 0.2},
		{X: 0.5, Y: 0.5, W: 0.2, H: 0.2},
	}})

	// Alone in the member list: 1.0 clamps despite the bonus.
	if got := uniquenessFactor(p, []*Photo{p}); got != 1.0 {
		t.Errorf("uniqueness = %v, want clamped 1.0", got)
	}

	// Against a near-duplicate the bonus partially offsets the penalty:
	// 1.0 - 0.3 + 2*0.05 = 0.8.
	twin := testPhoto("twin", base, []float32{1, 0})
	if got := uniquenessFactor(p, []*Photo{p, twin}); math.Abs(got-0.8) > 0.0001 {
		t.Errorf("uniqueness = %v, want 0.8", got)
	}
}

func TestTemporalFactor(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	span := 100 * time.Second

	tests := []struct {
		name     string
		offset   time.Duration
		expected float64
	}{
		{"dead center", 50 * time.Second, 1.0},
		{"inside the middle band", 30 * time.Second, 1.0},
		{"near the start edge", 15 * time.Second, 0.7},
		{"near the end edge", 85 * time.Second, 0.7},
		{"first shot", 0, 0.4},
		{"last shot", span, 0.4},
	}

	c := &Cluster{StartTime: base, EndTime: base.Add(span)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPhoto("p", base.Add(tt.offset), nil)
			if got := temporalFactor(p, c); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("temporalFactor = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTemporalFactorZeroSpan(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	c := &Cluster{StartTime: base, EndTime: base}
	if got := temporalFactor(testPhoto("p", base, nil), c); got != 1.0 {
		t.Errorf("zero-span temporalFactor = %v, want 1.0", got)
	}
}

func TestSaliencyFactor(t *testing.T) {
	region := SalientRegion{X: 0.2, Y: 0.2, W: 0.3, H: 0.3}

	tests := []struct {
		name     string
		quality  *QualityScores
		expected float64
	}{
		{"missing quality is neutral", nil, 0.5},
		{"no regions", qualityPtr(QualityScores{}), 0.5},
		{"two regions read as composed", qualityPtr(QualityScores{Salient: []SalientRegion{region, region}}), 0.8},
		{"cluttered frame", qualityPtr(QualityScores{Salient: []SalientRegion{region, region, region, region, region}}), 0.6},
		{"composition adds on top", qualityPtr(QualityScores{Salient: []SalientRegion{region}, Composition: 1.0}), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Photo{ID: "p", Quality: tt.quality}
			if got := saliencyFactor(p); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("saliencyFactor = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAestheticFactor(t *testing.T) {
	tests := []struct {
		name     string
		quality  *QualityScores
		faces    *int
		expected float64
	}{
		{"missing quality is neutral", nil, nil, 0.5},
		{"utility photo is fixed low", qualityPtr(QualityScores{IsUtility: true, Aesthetic: 1, HasAesthetic: true}), nil, 0.1},
		{"no aesthetic data is neutral", qualityPtr(QualityScores{}), nil, 0.5},
		{"top aesthetic", qualityPtr(QualityScores{Aesthetic: 1, HasAesthetic: true}), nil, 0.9},
		{"bottom aesthetic", qualityPtr(QualityScores{Aesthetic: -1, HasAesthetic: true}), nil, 0.1},
		{"midpoint aesthetic", qualityPtr(QualityScores{Aesthetic: 0, HasAesthetic: true}), nil, 0.5},
		{"face quality bonus", qualityPtr(QualityScores{Aesthetic: 0, HasAesthetic: true, FaceQuality: 1}), intPtr(2), 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Photo{ID: "p", Quality: tt.quality, FaceCount: tt.faces}
			if got := aestheticFactor(p); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("aestheticFactor = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCombinedScoreInRange(t *testing.T) {
	base := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	fp := []float32{1, 0, 0}

	c := newTestCluster(
		testPhoto("a", base, fp),
		testPhoto("b", base.Add(10*time.Second), fp),
	)
	rankCluster(c)

	for _, s := range c.RankedMembers {
		if s.Combined < 0 || s.Combined > 1 {
			t.Errorf("combined score %v for %s out of [0,1]", s.Combined, s.PhotoID)
		}
	}
}
