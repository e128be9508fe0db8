package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// descriptorAt returns a 128-d descriptor whose first component is v and
// the rest are zero, so Distance(descriptorAt(0), descriptorAt(v)) == |v|.
func descriptorAt(v float64) domain.Descriptor {
	d := make(domain.Descriptor, domain.DescriptorLength)
	d[0] = v
	return d
}

func TestNew(t *testing.T) {
	assert.Equal(t, 0.5, New(0.5).Tolerance())
	assert.Equal(t, DefaultTolerance, New(0).Tolerance(), "non-positive tolerance falls back to the default")
	assert.Equal(t, DefaultTolerance, New(-1).Tolerance())
}

func TestDistance(t *testing.T) {
	a := domain.Descriptor{3, 0, 4}
	b := domain.Descriptor{0, 0, 0}

	assert.Equal(t, 5.0, Distance(a, b))
	assert.Zero(t, Distance(a, a))
}

func TestFlatten(t *testing.T) {
	users := []domain.Identity{
		{ID: "S1", Name: "Alice", Descriptors: []domain.Descriptor{descriptorAt(0.1), descriptorAt(0.2)}},
		{ID: "S2", Name: "Bob", Descriptors: []domain.Descriptor{descriptorAt(0.3)}},
	}

	candidates := Flatten(users)

	require.Len(t, candidates, 3)
	assert.Equal(t, "S1", candidates[0].ID)
	assert.Equal(t, "S1", candidates[1].ID)
	assert.Equal(t, "S2", candidates[2].ID)
	assert.Equal(t, "Bob", candidates[2].Name)

	assert.Empty(t, Flatten(nil))
}

func TestMatcher_Recognize(t *testing.T) {
	m := New(0.6)
	probe := descriptorAt(0)

	t.Run("no candidates", func(t *testing.T) {
		match, outcome := m.Recognize(probe, nil)
		assert.Nil(t, match)
		assert.Equal(t, domain.OutcomeNoCandidates, outcome)
	})

	t.Run("accepts nearest within tolerance", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "S1", Name: "Alice", Descriptor: descriptorAt(0.5)},
			{ID: "S2", Name: "Bob", Descriptor: descriptorAt(0.3)},
		}

		match, outcome := m.Recognize(probe, candidates)
		require.NotNil(t, match)
		assert.Empty(t, outcome)
		assert.Equal(t, "S2", match.ID)
		assert.Equal(t, "Bob", match.Name)
		assert.InDelta(t, 0.3, match.Distance, 1e-12)
	})

	t.Run("distance exactly at tolerance accepts", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "S1", Name: "Alice", Descriptor: descriptorAt(0.6)},
		}

		match, outcome := m.Recognize(probe, candidates)
		require.NotNil(t, match)
		assert.Empty(t, outcome)
		assert.Equal(t, 0.6, match.Distance)
	})

	t.Run("best distance above tolerance rejects", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "S1", Name: "Alice", Descriptor: descriptorAt(math.Nextafter(0.6, 1))},
		}

		match, outcome := m.Recognize(probe, candidates)
		assert.Nil(t, match)
		assert.Equal(t, domain.OutcomeNotRecognized, outcome)
	})

	t.Run("ties keep the first-encountered minimum", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "S1", Name: "Alice", Descriptor: descriptorAt(0.2)},
			{ID: "S2", Name: "Bob", Descriptor: descriptorAt(0.2)},
		}

		match, outcome := m.Recognize(probe, candidates)
		require.NotNil(t, match)
		assert.Empty(t, outcome)
		assert.Equal(t, "S1", match.ID)
	})

	t.Run("rejection only depends on the nearest candidate", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "S1", Name: "Alice", Descriptor: descriptorAt(2.0)},
			{ID: "S2", Name: "Bob", Descriptor: descriptorAt(0.1)},
			{ID: "S3", Name: "Carol", Descriptor: descriptorAt(1.5)},
		}

		match, outcome := m.Recognize(probe, candidates)
		require.NotNil(t, match)
		assert.Empty(t, outcome)
		assert.Equal(t, "S2", match.ID)
	})
}
