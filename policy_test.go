package central

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCapacity is a capacity with a fixed number of borrowable workers.
type fakeCapacity struct {
	free     int
	borrowed int
	waiting  bool
}

func (c *fakeCapacity) tryBorrow() bool {
	if c.free-c.borrowed <= 0 {
		return false
	}
	c.borrowed++
	return true
}

func (c *fakeCapacity) giveBack()           { c.borrowed-- }
func (c *fakeCapacity) unreservedFree() int { return c.free - c.borrowed }
func (c *fakeCapacity) quotaWaiting() bool  { return c.waiting }

func TestPolicy_String(t *testing.T) {
	require.Equal(t, "Pessimistic", Pessimistic.String())
	require.Equal(t, "Optimistic", Optimistic.String())
	require.Equal(t, "Policy(7)", Policy(7).String())
	require.False(t, Policy(7).valid())
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		reserve   *Quota
		secondary *Quota
		wantErr   error
	}{
		{name: "negative reserve", policy: Optimistic, reserve: Reserve(-1), secondary: Nil(), wantErr: ErrInvalidArgument},
		{name: "negative elastic", policy: Pessimistic, reserve: Reserve(1), secondary: Elastic(-3), wantErr: ErrInvalidArgument},
		{name: "nil reserve", policy: Pessimistic, reserve: nil, secondary: Nil(), wantErr: ErrInvalidArgument},
		{name: "pessimistic without reserve", policy: Pessimistic, reserve: Nil(), secondary: Elastic(4), wantErr: ErrInvalidConfiguration},
		{name: "optimistic without any slot", policy: Optimistic, reserve: Nil(), secondary: Nil(), wantErr: ErrInvalidConfiguration},
		{name: "optimistic elastic only", policy: Optimistic, reserve: Nil(), secondary: Elastic(2)},
		{name: "pessimistic reserve only", policy: Pessimistic, reserve: Reserve(1), secondary: Nil()},
		{name: "pessimistic ignores elastic", policy: Pessimistic, reserve: Reserve(1), secondary: Unlimited()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.validate(tt.reserve, tt.secondary)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPolicy_Decide(t *testing.T) {
	t.Run("reserve first", func(t *testing.T) {
		s := &submitter{reserve: Reserve(1), elastic: Elastic(1)}
		c := &fakeCapacity{free: 1}

		d := Optimistic.decide(s, c)
		require.Equal(t, admitNow, d.outcome)
		require.Same(t, s.reserve, d.slot)
		require.False(t, d.borrowed)
		require.Equal(t, 0, c.borrowed)
	})

	t.Run("optimistic borrows on elastic slot", func(t *testing.T) {
		s := &submitter{reserve: Reserve(1), elastic: Elastic(1)}
		s.reserve.TryAcquire()
		c := &fakeCapacity{free: 2}

		d := Optimistic.decide(s, c)
		require.Equal(t, admitNow, d.outcome)
		require.Same(t, s.elastic, d.slot)
		require.True(t, d.borrowed)
		require.Equal(t, 1, c.borrowed)

		d = Optimistic.decide(s, c)
		require.Equal(t, enqueue, d.outcome, "elastic quota exhausted")
		require.Equal(t, 1, d.priority)
	})

	t.Run("optimistic queues when no unreserved worker is idle", func(t *testing.T) {
		s := &submitter{reserve: Reserve(2), elastic: Unlimited()}
		s.reserve.TryAcquire()
		s.reserve.TryAcquire()
		c := &fakeCapacity{free: 0}

		d := Optimistic.decide(s, c)
		require.Equal(t, enqueue, d.outcome)
		require.Equal(t, 2, d.priority)
		require.Equal(t, s.elastic.Max(), s.elastic.Available(), "elastic slot must not leak")
	})

	t.Run("pessimistic never borrows", func(t *testing.T) {
		s := &submitter{reserve: Reserve(1), elastic: Unlimited()}
		s.reserve.TryAcquire()
		c := &fakeCapacity{free: 5}

		d := Pessimistic.decide(s, c)
		require.Equal(t, enqueue, d.outcome)
		require.Equal(t, 0, c.borrowed)
	})

	t.Run("pessimistic rejects unregistered", func(t *testing.T) {
		d := Pessimistic.decide(nil, &fakeCapacity{free: 5})
		require.Equal(t, reject, d.outcome)
		require.ErrorIs(t, d.err, ErrRejectedExecution)
	})

	t.Run("optimistic unregistered borrows when nothing waits", func(t *testing.T) {
		c := &fakeCapacity{free: 1}
		d := Optimistic.decide(nil, c)
		require.Equal(t, admitNow, d.outcome)
		require.Nil(t, d.slot)
		require.True(t, d.borrowed)
	})

	t.Run("optimistic unregistered queues behind waiting quota tasks", func(t *testing.T) {
		c := &fakeCapacity{free: 1, waiting: true}
		d := Optimistic.decide(nil, c)
		require.Equal(t, enqueue, d.outcome)
		require.Equal(t, lowestPriority, d.priority)
		require.Equal(t, 0, c.borrowed)
	})
}

func TestPolicy_HasRoom(t *testing.T) {
	full := &submitter{reserve: Reserve(1), elastic: Elastic(1)}
	full.reserve.TryAcquire()

	require.True(t, Pessimistic.hasRoom(&submitter{reserve: Reserve(1), elastic: Nil()}, &fakeCapacity{}))
	require.False(t, Pessimistic.hasRoom(full, &fakeCapacity{free: 3}))
	require.True(t, Optimistic.hasRoom(full, &fakeCapacity{free: 3}))
	require.False(t, Optimistic.hasRoom(full, &fakeCapacity{free: 0}))

	require.False(t, Pessimistic.hasRoom(nil, &fakeCapacity{free: 3}))
	require.True(t, Optimistic.hasRoom(nil, &fakeCapacity{free: 1}))
	require.False(t, Optimistic.hasRoom(nil, &fakeCapacity{free: 1, waiting: true}))
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "admitted", admitNow.String())
	require.Equal(t, "queued", enqueue.String())
	require.Equal(t, "rejected", reject.String())
}
