package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

type memRepo struct {
	orders map[int64]Order
}

func newMemRepo(orders ...Order) *memRepo {
	m := &memRepo{orders: make(map[int64]Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memRepo) List(ctx context.Context, filters ListFilters) ([]Order, int, error) {
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	m.orders[id] = o
	return true, nil
}

func TestTransitionMap(t *testing.T) {
	legal := []struct{ from, to string }{
		{StatusPlaced, StatusApproved},
		{StatusPlaced, StatusDeclined},
		{StatusPlaced, StatusCancelled},
		{StatusApproved, StatusShipped},
		{StatusApproved, StatusCancelled},
		{StatusShipped, StatusDelivered},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to string }{
		{StatusPlaced, StatusShipped},
		{StatusPlaced, StatusDelivered},
		{StatusApproved, StatusDeclined},
		{StatusShipped, StatusCancelled},
		{StatusDelivered, StatusShipped},
		{StatusDeclined, StatusApproved},
		{StatusCancelled, StatusPlaced},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestTerminalStatusesHaveNoNextSteps(t *testing.T) {
	for _, status := range []string{StatusDelivered, StatusDeclined, StatusCancelled} {
		assert.Empty(t, NextStatuses(status), "%s is terminal", status)
	}
}

func TestChangeStatusApproves(t *testing.T) {
	repo := newMemRepo(Order{ID: 1, Reference: "PPY-1001", Status: StatusPlaced})
	svc := NewService(repo, nil)

	require.NoError(t, svc.ChangeStatus(context.Background(), 1, 1, StatusApproved))

	o, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, o.Status)
}

func TestChangeStatusRejectsIllegalMove(t *testing.T) {
	repo := newMemRepo(Order{ID: 1, Status: StatusPlaced})
	svc := NewService(repo, nil)

	err := svc.ChangeStatus(context.Background(), 1, 1, StatusDelivered)
	require.ErrorIs(t, err, ErrIllegalTransition)

	o, getErr := repo.Get(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPlaced, o.Status)
}

func TestChangeStatusMissingOrder(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	err := svc.ChangeStatus(context.Background(), 1, 99, StatusApproved)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestChangeStatusLosesRaceGracefully(t *testing.T) {
	repo := newMemRepo(Order{ID: 1, Status: StatusPlaced})
	svc := NewService(repo, nil)

	// Another admin declines the order between the read and the update.
	_, err := repo.UpdateStatus(context.Background(), 1, StatusPlaced, StatusDeclined)
	require.NoError(t, err)

	raced := &racingRepo{memRepo: repo}
	svc = NewService(raced, nil)
	err = svc.ChangeStatus(context.Background(), 1, 1, StatusApproved)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

// racingRepo reports the pre-race status on Get so the service's check
// passes, leaving the database-level guard to catch the conflict.
type racingRepo struct {
	*memRepo
}

func (r *racingRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, err := r.memRepo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	o.Status = StatusPlaced
	return o, nil
}
