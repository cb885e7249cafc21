package layout

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/model"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.September, 1, hour, min, 0, 0, time.UTC)
}

func ev(id string, start, end time.Time) model.Event {
	return model.Event{ID: id, Title: id, Start: start, End: end}
}

func TestAllocate_NoOverlapSharesLane(t *testing.T) {
	// Back-to-back events may share a lane: end == start is not overlap.
	events := []model.Event{
		ev("a", at(9, 0), at(10, 0)),
		ev("b", at(10, 0), at(11, 0)),
	}

	alloc, err := Allocate(events)
	require.NoError(t, err)

	assert.Equal(t, 1, alloc.LaneCount)
	assert.Equal(t, alloc.LaneOf["a"], alloc.LaneOf["b"])
}

func TestAllocate_MutualOverlapUsesDistinctLanes(t *testing.T) {
	// Three mutually overlapping events need exactly three lanes.
	events := []model.Event{
		ev("a", at(9, 0), at(12, 0)),
		ev("b", at(9, 30), at(11, 0)),
		ev("c", at(10, 0), at(10, 30)),
	}

	alloc, err := Allocate(events)
	require.NoError(t, err)

	assert.Equal(t, 3, alloc.LaneCount)
	lanes := map[int]bool{}
	for _, e := range events {
		lanes[alloc.LaneOf[e.ID]] = true
	}
	assert.Len(t, lanes, 3)
}

func TestAllocate_NestedEvents(t *testing.T) {
	events := []model.Event{
		ev("outer", at(9, 0), at(12, 0)),
		ev("inner", at(10, 0), at(11, 0)),
	}

	alloc, err := Allocate(events)
	require.NoError(t, err)

	assert.Equal(t, 2, alloc.LaneCount)
	// The longer event starts first and wins lane 0.
	assert.Equal(t, 0, alloc.LaneOf["outer"])
	assert.Equal(t, 1, alloc.LaneOf["inner"])
}

func TestAllocate_LaneReuseAfterGap(t *testing.T) {
	// a and c fit in one lane; b overlaps a only.
	events := []model.Event{
		ev("a", at(9, 0), at(10, 0)),
		ev("b", at(9, 30), at(11, 30)),
		ev("c", at(10, 0), at(11, 0)),
	}

	alloc, err := Allocate(events)
	require.NoError(t, err)

	assert.Equal(t, 2, alloc.LaneCount)
	assert.Equal(t, 0, alloc.LaneOf["a"])
	assert.Equal(t, 1, alloc.LaneOf["b"])
	assert.Equal(t, 0, alloc.LaneOf["c"])
}

func TestAllocate_ZeroDurationEvents(t *testing.T) {
	t.Run("instant inside running event gets own lane", func(t *testing.T) {
		events := []model.Event{
			ev("long", at(9, 0), at(10, 0)),
			ev("ping", at(9, 30), at(9, 30)),
		}

		alloc, err := Allocate(events)
		require.NoError(t, err)

		assert.Equal(t, 2, alloc.LaneCount)
		assert.NotEqual(t, alloc.LaneOf["long"], alloc.LaneOf["ping"])
	})

	t.Run("two instants at the same time may share", func(t *testing.T) {
		events := []model.Event{
			ev("p1", at(9, 30), at(9, 30)),
			ev("p2", at(9, 30), at(9, 30)),
		}

		alloc, err := Allocate(events)
		require.NoError(t, err)
		assert.Equal(t, 1, alloc.LaneCount)
	})
}

func TestAllocate_InvalidInterval(t *testing.T) {
	events := []model.Event{
		ev("bad", at(11, 0), at(10, 0)),
	}

	_, err := Allocate(events)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestAllocate_Empty(t *testing.T) {
	alloc, err := Allocate(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, alloc.LaneCount)
	assert.Empty(t, alloc.LaneOf)
}

func TestAllocate_NoSharedLaneProperty(t *testing.T) {
	// Randomized input: overlapping events must never share a lane, and
	// the assignment must not depend on input order.
	rng := rand.New(rand.NewSource(42))

	base := make([]model.Event, 0, 40)
	for i := 0; i < 40; i++ {
		start := at(0, 0).Add(time.Duration(rng.Intn(22*60)) * time.Minute)
		end := start.Add(time.Duration(rng.Intn(180)) * time.Minute)
		base = append(base, ev(string(rune('A'+i%26))+string(rune('a'+i/26)), start, end))
	}

	reference, err := Allocate(base)
	require.NoError(t, err)

	for _, a := range base {
		for _, b := range base {
			if a.ID == b.ID {
				continue
			}
			if a.Overlaps(b) {
				assert.NotEqual(t, reference.LaneOf[a.ID], reference.LaneOf[b.ID],
					"overlapping events %s and %s share lane", a.ID, b.ID)
			}
		}
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := make([]model.Event, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		alloc, err := Allocate(shuffled)
		require.NoError(t, err)
		assert.Equal(t, reference.LaneCount, alloc.LaneCount)
		assert.Equal(t, reference.LaneOf, alloc.LaneOf)
	}
}

func TestSortForLayout(t *testing.T) {
	events := []model.Event{
		ev("b", at(9, 0), at(10, 0)),
		ev("a", at(9, 0), at(10, 0)),
		ev("long", at(9, 0), at(12, 0)),
		ev("early", at(8, 0), at(8, 30)),
	}

	sorted := SortForLayout(events)

	got := make([]string, 0, len(sorted))
	for _, e := range sorted {
		got = append(got, e.ID)
	}
	// Start ascending, then duration descending, then ID.
	assert.Equal(t, []string{"early", "long", "a", "b"}, got)

	// Input must be untouched.
	assert.Equal(t, "b", events[0].ID)
}
