package ai

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-moments/internal/moments"
)

// Labels that mark a photo as a utility image rather than a moment.
// Matched after diacritic folding, so "dokument" and "dokumentace" from a
// non-English model response still hit.
var utilityLabels = map[string]bool{
	"screenshot": true,
	"screen":     true,
	"document":   true,
	"dokument":   true,
	"scan":       true,
	"receipt":    true,
	"invoice":    true,
	"whiteboard": true,
	"text":       true,
	"qr code":    true,
	"qrcode":     true,
	"barcode":    true,
	"menu":       true,
	"ticket":     true,
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeLabel lowercases a label and strips diacritics so label
// matching survives model responses in different languages.
func normalizeLabel(label string) string {
	folded, _, err := transform.String(diacriticFolder, label)
	if err != nil {
		folded = label
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// isUtilityLabel reports whether a label (or its first word) marks the
// photo as a screenshot/document style image.
func isUtilityLabel(label string) bool {
	n := normalizeLabel(label)
	if utilityLabels[n] {
		return true
	}
	if first, _, ok := strings.Cut(n, " "); ok && utilityLabels[first] {
		return true
	}
	return false
}

// toQualityScores converts a model response into the engine's quality
// bundle, clamping everything to its documented range.
func toQualityScores(a *qualityAnalysis) *moments.QualityScores {
	q := &moments.QualityScores{
		Technical:   clamp(a.TechnicalQuality, 0, 1),
		FaceQuality: clamp(a.FaceQuality, 0, 1),
		Composition: clamp(a.Composition, 0, 1),
	}

	if a.Aesthetic != nil {
		q.Aesthetic = clamp(*a.Aesthetic, -1, 1)
		q.HasAesthetic = true
	}

	for _, label := range a.Labels {
		if isUtilityLabel(label) {
			q.IsUtility = true
			break
		}
	}

	for _, box := range a.SalientRegions {
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		q.Salient = append(q.Salient, moments.SalientRegion{
			X:     clamp(box.X, 0, 1),
			Y:     clamp(box.Y, 0, 1),
			W:     clamp(box.W, 0, 1),
			H:     clamp(box.H, 0, 1),
			Score: clamp(box.Score, 0, 1),
		})
	}

	return q
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
