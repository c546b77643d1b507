package conflict

import (
	"math/rand"
	"testing"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func randomSections(rng *rand.Rand, n int) []domain.Section {
	slots := domain.DefaultSlots
	sections := make([]domain.Section, n)
	for i := range sections {
		var opts []testutil.SectionOption
		for c := rng.Intn(3); c > 0; c-- {
			day := domain.Weekdays[rng.Intn(len(domain.Weekdays))]
			opts = append(opts, testutil.WithClass(day, slots[rng.Intn(len(slots))]+":00"))
		}
		if rng.Intn(2) == 1 {
			day := domain.Weekdays[rng.Intn(len(domain.Weekdays))]
			opts = append(opts, testutil.WithLab(day, slots[rng.Intn(len(slots))]+":00"))
		}
		sections[i] = testutil.NewTestSection(i+1, "C"+string(rune('A'+i)), opts...)
	}
	return sections
}

// Detect is pure and order-insensitive.
func TestDetect_Property_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		sections := randomSections(rng, rng.Intn(6)+1)
		first := Detect(sections)
		second := Detect(sections)
		assert.Equal(t, first, second, "trial %d: repeated detection differs", trial)

		reversed := make([]domain.Section, len(sections))
		for i, s := range sections {
			reversed[len(sections)-1-i] = s
		}
		assert.Equal(t, first, Detect(reversed), "trial %d: order changed the result", trial)
	}
}

// Every marker has a partner from another section at the same day and slot,
// and Collides agrees with Detect.
func TestDetect_Property_MarkersArePaired(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		sections := randomSections(rng, rng.Intn(5)+2)
		set := Detect(sections)

		for m := range set {
			partnered := false
			for other := range set {
				if other.SectionID != m.SectionID && other.Day == m.Day && other.Slot == m.Slot {
					partnered = true
					break
				}
			}
			assert.True(t, partnered, "trial %d: marker %s has no partner", trial, m.Key())
		}

		for i, s := range sections {
			rest := append(append([]domain.Section{}, sections[:i]...), sections[i+1:]...)
			assert.Equal(t, set.HasSection(s.SectionID), Collides(rest, s),
				"trial %d: Collides disagrees for section %d", trial, s.SectionID)
		}
	}
}

// A lab always claims the slot after its start, except in the last slot.
func TestDetect_Property_LabClaimsFollowingSlot(t *testing.T) {
	slots := domain.DefaultSlots
	for i := 0; i < len(slots)-1; i++ {
		lab := testutil.NewTestSection(1, "LAB", testutil.WithLab(domain.Wednesday, slots[i]+":00"))
		class := testutil.NewTestSection(2, "CLS", testutil.WithClass(domain.Wednesday, slots[i+1]+":00"))

		set := Detect([]domain.Section{lab, class})
		assert.True(t, set.Has(labAt(1, domain.Wednesday, slots[i+1])), "slot %s", slots[i])
		assert.True(t, set.Has(classAt(2, domain.Wednesday, slots[i+1])), "slot %s", slots[i])

		if i+2 < len(slots) {
			far := testutil.NewTestSection(3, "FAR", testutil.WithClass(domain.Wednesday, slots[i+2]+":00"))
			assert.False(t, Collides([]domain.Section{lab}, far), "slot %s", slots[i])
		}
	}
}
