package central

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder collects lifecycle steps in call order.
type recorder struct {
	steps []string
}

func (r *recorder) coordinator(queued, pending []int) *lifecycleCoordinator[int] {
	return newLifecycleCoordinator(
		func() { r.steps = append(r.steps, "cancel") },
		func() []int { r.steps = append(r.steps, "closeQueue"); q := queued; queued = nil; return q },
		func() { r.steps = append(r.steps, "stopPool") },
		func() []int { r.steps = append(r.steps, "stopPoolNow"); p := pending; pending = nil; return p },
		func(left []int) { r.steps = append(r.steps, "abandon") },
	)
}

func TestLifecycle_Close_OrderAndIdempotence(t *testing.T) {
	r := &recorder{}
	lc := r.coordinator([]int{1, 2}, nil)

	lc.Close()
	lc.Close()

	require.Equal(t, []string{"closeQueue", "abandon", "stopPool"}, r.steps)
}

func TestLifecycle_Close_NothingQueued(t *testing.T) {
	r := &recorder{}
	lc := r.coordinator(nil, nil)

	lc.Close()
	require.Equal(t, []string{"closeQueue", "stopPool"}, r.steps)
}

func TestLifecycle_CloseNow(t *testing.T) {
	r := &recorder{}
	lc := r.coordinator([]int{1, 2}, []int{3})

	left := lc.CloseNow()
	require.Equal(t, []int{1, 2, 3}, left, "queued first, then never started")
	require.Equal(t, []string{"cancel", "closeQueue", "stopPoolNow"}, r.steps)

	lc.Close()
	require.Equal(t, []string{"cancel", "closeQueue", "stopPoolNow"}, r.steps, "Close after CloseNow is a no-op")

	require.Empty(t, lc.CloseNow())
}

func TestLifecycle_CloseNowAfterClose(t *testing.T) {
	r := &recorder{}
	lc := r.coordinator(nil, []int{7})

	lc.Close()
	require.Equal(t, []int{7}, lc.CloseNow())
	require.Equal(t, []string{"closeQueue", "stopPool", "cancel", "closeQueue", "stopPoolNow"}, r.steps)
}
