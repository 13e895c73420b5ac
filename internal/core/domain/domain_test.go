package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBalance_CanDebit(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		debit  int64
		want   bool
	}{
		{"exact", 100, 100, true},
		{"covered", 100, 50, true},
		{"short", 100, 101, false},
		{"zero balance", 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Balance{Amount: tt.amount}
			assert.Equal(t, tt.want, b.CanDebit(tt.debit))
		})
	}
}

func TestSubscription_PeriodsDue(t *testing.T) {
	period := 24 * time.Hour
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"not yet due", 12 * time.Hour, 0},
		{"exactly one period", 24 * time.Hour, 1},
		{"partial second period rounds up", 36 * time.Hour, 2},
		{"two and a half periods", 60 * time.Hour, 3},
		{"many whole periods", 5 * 24 * time.Hour, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{LastSettled: base}
			assert.Equal(t, tt.want, sub.PeriodsDue(base.Add(tt.elapsed), period))
		})
	}
}

func TestService_FlattenUnique(t *testing.T) {
	ownerA := uuid.New()
	ownerB := uuid.New()
	ownerC := uuid.New()

	svc := &Service{
		ID:    1,
		Price: 100,
		Owner: ownerA,
		DependsOn: []ServiceNode{
			{
				ID:    2,
				Price: 30,
				Owner: ownerB,
				DependsOn: []ServiceNode{
					{ID: 3, Price: 10, Owner: ownerC},
				},
			},
			{ID: 3, Price: 10, Owner: ownerC}, // repeated dependency, visited once
		},
	}

	nodes := svc.FlattenUnique()
	assert.Len(t, nodes, 3)
	assert.Equal(t, int64(1), nodes[0].ID)

	var total int64
	for _, n := range nodes {
		total += n.Price
	}
	assert.Equal(t, int64(140), total)
}

func TestService_FlattenUnique_CycleSafe(t *testing.T) {
	// A snapshot should never contain a cycle, but the walk must terminate
	// even if one slips into storage.
	a := ServiceNode{ID: 2, Price: 20, Owner: uuid.New()}
	a.DependsOn = []ServiceNode{{ID: 1, Price: 100, Owner: uuid.New(), DependsOn: []ServiceNode{a}}}

	svc := &Service{ID: 1, Price: 100, Owner: uuid.New(), DependsOn: []ServiceNode{a}}
	nodes := svc.FlattenUnique()
	assert.Len(t, nodes, 2)
}
