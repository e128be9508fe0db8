// Package match implements nearest-neighbor matching of face descriptors
// against the enrolled candidate set.
package match

import (
	"math"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// DefaultTolerance is the accept/reject distance threshold. Lower is
// stricter. 0.6 is the conventional threshold for dlib-style descriptors.
const DefaultTolerance = 0.6

// Candidate is one enrolled descriptor tagged with its identity. An
// identity with N descriptors contributes N candidates.
type Candidate struct {
	ID         string
	Name       string
	Descriptor domain.Descriptor
}

// Match is an accepted nearest-neighbor result.
type Match struct {
	ID       string
	Name     string
	Distance float64
}

// Matcher applies a fixed global tolerance to the nearest candidate.
type Matcher struct {
	tolerance float64
}

func New(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{tolerance: tolerance}
}

// Tolerance returns the configured accept/reject threshold.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Flatten expands enrolled identities into the candidate list, preserving
// store order then registration order of each identity's descriptors.
func Flatten(users []domain.Identity) []Candidate {
	var candidates []Candidate
	for _, u := range users {
		for _, d := range u.Descriptors {
			candidates = append(candidates, Candidate{
				ID:         u.ID,
				Name:       u.Name,
				Descriptor: d,
			})
		}
	}
	return candidates
}

// Recognize scans every candidate and accepts the closest one iff its
// euclidean distance is within tolerance. Ties keep the first-encountered
// minimum. The accept decision is made exactly once, from the returned
// distance itself.
//
// On rejection the match is nil and the outcome is OutcomeNoCandidates
// (empty candidate list) or OutcomeNotRecognized (best distance above
// tolerance).
func (m *Matcher) Recognize(probe domain.Descriptor, candidates []Candidate) (*Match, domain.RecognitionOutcome) {
	if len(candidates) == 0 {
		return nil, domain.OutcomeNoCandidates
	}

	best := 0
	bestDist := Distance(probe, candidates[0].Descriptor)
	for i := 1; i < len(candidates); i++ {
		if d := Distance(probe, candidates[i].Descriptor); d < bestDist {
			best = i
			bestDist = d
		}
	}

	if bestDist > m.tolerance {
		return nil, domain.OutcomeNotRecognized
	}

	return &Match{
		ID:       candidates[best].ID,
		Name:     candidates[best].Name,
		Distance: bestDist,
	}, ""
}

// Distance returns the euclidean distance between two descriptors.
func Distance(a, b domain.Descriptor) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
