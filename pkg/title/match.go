package title

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// numberRegex extracts sequence numbers from titles (e.g., "2", "3")
var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// Confidence represents the confidence level of a title match.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // Score < 0.70
	ConfidenceLow                      // Score >= 0.70
	ConfidenceMedium                   // Score >= 0.85
	ConfidenceHigh                     // Score >= 0.95
)

// containedScore is the floor for a reference that appears as whole words
// inside a candidate ("frieren" in "Sousou no Frieren").
const containedScore = 0.90

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

func confidenceFor(score float64) Confidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Result is one scored candidate.
type Result struct {
	Index      int        // position in the candidate slice
	Title      string     // the candidate as given
	Score      float64    // 0.0-1.0
	Confidence Confidence // derived from Score
}

// Score compares a reference against one candidate title using Jaro-Winkler
// similarity on cleaned titles, adjusted for sequence numbers.
func Score(ref, candidate string) float64 {
	return score(Clean(ref), Clean(candidate))
}

func score(ref, candidate string) float64 {
	if ref == "" || candidate == "" {
		return 0
	}
	if ref == candidate {
		return 1
	}
	s := float64(edlib.JaroWinklerSimilarity(ref, candidate))
	if containsWords(candidate, ref) {
		s = max(s, containedScore)
	}
	return adjustScoreForNumbers(s, extractNumbers(ref), extractNumbers(candidate))
}

// Rank scores every candidate and returns them best first. Candidates below
// low confidence are omitted.
func Rank(ref string, candidates []string) []Result {
	cleaned := Clean(ref)
	var results []Result
	for i, c := range candidates {
		s := score(cleaned, Clean(c))
		conf := confidenceFor(s)
		if conf == ConfidenceNone {
			continue
		}
		results = append(results, Result{Index: i, Title: c, Score: s, Confidence: conf})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Match returns the best candidate for ref. Index is -1 when nothing
// reaches low confidence.
func Match(ref string, candidates []string) Result {
	ranked := Rank(ref, candidates)
	if len(ranked) == 0 {
		return Result{Index: -1, Confidence: ConfidenceNone}
	}
	return ranked[0]
}

func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func extractNumbers(title string) []string {
	return numberRegex.FindAllString(title, -1)
}

// adjustScoreForNumbers modifies the similarity score based on sequence number matching.
// When the reference has numbers:
// - Matching numbers get a bonus
// - Mismatched numbers get a penalty
// - Missing numbers in candidate also get a penalty
func adjustScoreForNumbers(score float64, refNums, candidateNums []string) float64 {
	if len(refNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}

	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range refNums {
		if candidateSet[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}
