package library

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionByStatus(t *testing.T) {
	list := []TrackedTitle{
		{ID: "a", Status: StatusWatching},
		{ID: "b", Status: StatusPlanToWatch},
		{ID: "c", Status: StatusWatching},
		{ID: "d", Status: StatusDropped},
		{ID: "e", Status: StatusCompleted},
	}

	p := PartitionByStatus(list)

	assert.Equal(t, []string{"a", "c"}, ids(p.Of(StatusWatching)))
	assert.Equal(t, []string{"e"}, ids(p.Of(StatusCompleted)))
	assert.Empty(t, p.Of(StatusOnHold))
	assert.Equal(t, []string{"b"}, ids(p.Of(StatusPlanToWatch)))
	assert.Equal(t, []string{"d"}, ids(p.Of(StatusDropped)))
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, map[Status]int{
		StatusWatching: 2, StatusCompleted: 1, StatusOnHold: 0, StatusPlanToWatch: 1, StatusDropped: 1,
	}, p.Counts())
}

func TestPartitionByStatus_Empty(t *testing.T) {
	p := PartitionByStatus(nil)
	assert.Equal(t, 0, p.Len())
	for _, s := range Statuses {
		assert.Empty(t, p.Of(s))
	}
	assert.Nil(t, p.Of(Status("rewatching")))
}

func TestPartitionByStatus_DropsUnknownStatus(t *testing.T) {
	p := PartitionByStatus([]TrackedTitle{{ID: "a", Status: "rewatching"}, {ID: "b", Status: StatusDropped}})
	assert.Equal(t, 1, p.Len())
}

// Every element lands in exactly the bucket matching its status, the
// buckets together are a permutation of the input, and order within a
// bucket follows the input.
func TestPartitionByStatus_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		list := make([]TrackedTitle, n)
		for i := range list {
			list[i] = TrackedTitle{
				ID:     fmt.Sprintf("t%d", i),
				Status: Statuses[rng.Intn(len(Statuses))],
			}
		}

		p := PartitionByStatus(list)

		seen := make(map[string]int)
		total := 0
		for _, s := range Statuses {
			bucket := p.Of(s)
			total += len(bucket)
			last := -1
			for _, t2 := range bucket {
				require.Equal(t, s, t2.Status)
				seen[t2.ID]++
				var idx int
				_, err := fmt.Sscanf(t2.ID, "t%d", &idx)
				require.NoError(t, err)
				require.Greater(t, idx, last, "relative order preserved")
				last = idx
			}
		}
		require.Equal(t, n, total)
		for _, item := range list {
			require.Equal(t, 1, seen[item.ID], "each element appears exactly once")
		}
	}
}

func ids(list []TrackedTitle) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}
