package revenue

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func applyPlan(t *testing.T, buckets map[Period]Bucket, evt LifecycleEvent) {
	t.Helper()
	steps, err := Plan(evt)
	require.NoError(t, err)
	for _, step := range steps {
		b, ok := buckets[step.Period]
		if !ok {
			b = Bucket{Period: step.Period}
		}
		out, err := step.Apply(b)
		require.NoError(t, err)
		buckets[step.Period] = out.Bucket
	}
}

func TestPlan_Validation(t *testing.T) {
	valid := *snap(100, StatusPaid, "2025-03")

	tests := []struct {
		name  string
		evt   LifecycleEvent
		field string
	}{
		{name: "missing event id", evt: LifecycleEvent{Operation: OperationCreated, Current: valid}, field: "event_id"},
		{name: "unknown operation", evt: LifecycleEvent{EventID: "e", Operation: "archived", Current: valid}, field: "operation"},
		{name: "update without previous", evt: LifecycleEvent{EventID: "e", Operation: OperationUpdated, Current: valid}, field: "previous"},
		{name: "create with previous", evt: LifecycleEvent{EventID: "e", Operation: OperationCreated, Current: valid, Previous: &valid}, field: "previous"},
		{name: "negative amount", evt: LifecycleEvent{EventID: "e", Operation: OperationCreated, Current: *snap(-1, StatusPaid, "2025-03")}, field: "current.amount"},
		{name: "unknown status", evt: LifecycleEvent{EventID: "e", Operation: OperationCreated, Current: *snap(1, Status("refunded"), "2025-03")}, field: "current.status"},
		{name: "missing period", evt: LifecycleEvent{EventID: "e", Operation: OperationCreated, Current: InvoiceSnapshot{ID: "inv-1", Status: StatusPaid}}, field: "current.date"},
		{
			name: "previous for another invoice",
			evt: LifecycleEvent{
				EventID:   "e",
				Operation: OperationUpdated,
				Current:   valid,
				Previous:  &InvoiceSnapshot{ID: "inv-2", Amount: 1, Status: StatusPaid, Period: valid.Period},
			},
			field: "previous.id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.evt)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestPlan_NoneProducesNoSteps(t *testing.T) {
	steps, err := Plan(LifecycleEvent{
		EventID:   "e",
		Operation: OperationUpdated,
		Previous:  snap(10, StatusPaid, "2025-03"),
		Current:   *snap(10, StatusPaid, "2025-03"),
	})
	require.NoError(t, err)
	require.Empty(t, steps)

	steps, err = Plan(LifecycleEvent{EventID: "e", Operation: OperationDeleted, Current: *snap(10, StatusVoid, "2025-03")})
	require.NoError(t, err)
	require.Empty(t, steps)
}

func TestPlan_PeriodChangeDecomposesInAscendingOrder(t *testing.T) {
	steps, err := Plan(LifecycleEvent{
		EventID:   "e",
		Operation: OperationUpdated,
		Previous:  snap(1000, StatusPending, "2025-04"),
		Current:   *snap(1000, StatusPending, "2025-03"),
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)

	require.Equal(t, MustParsePeriod("2025-03"), steps[0].Period)
	require.Equal(t, ChangeBecameEligible, steps[0].Kind)
	require.True(t, steps[0].Additive())

	require.Equal(t, MustParsePeriod("2025-04"), steps[1].Period)
	require.Equal(t, ChangeBecameIneligible, steps[1].Kind)
	require.False(t, steps[1].Additive())
}

func TestPlan_PeriodChangeFromIneligible(t *testing.T) {
	steps, err := Plan(LifecycleEvent{
		EventID:   "e",
		Operation: OperationUpdated,
		Previous:  snap(1000, StatusDraft, "2025-04"),
		Current:   *snap(1000, StatusPaid, "2025-03"),
	})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, MustParsePeriod("2025-03"), steps[0].Period)
	require.Equal(t, ChangeBecameEligible, steps[0].Kind)
}

func TestStep_StatusSwapWithAmountChange(t *testing.T) {
	step := Step{
		Period:   MustParsePeriod("2025-03"),
		Kind:     ChangeStatusSwapped,
		Previous: snap(5000, StatusPending, "2025-03"),
		Current:  snap(7000, StatusPaid, "2025-03"),
	}
	out, err := step.Apply(bucketOf(1, 0, 5000))
	require.NoError(t, err)
	require.Empty(t, out.Clamped)
	require.Equal(t, bucketOf(1, 7000, 0), out.Bucket)
}

func TestStep_PeriodChangedIsNotDirectlyApplicable(t *testing.T) {
	_, err := Step{Kind: ChangePeriodChanged}.Apply(Bucket{})
	require.ErrorIs(t, err, ErrInvariant)
	require.False(t, IsRetryable(err))
}

func TestPlan_Scenarios(t *testing.T) {
	march := MustParsePeriod("2025-03")
	april := MustParsePeriod("2025-04")
	buckets := map[Period]Bucket{}

	inv1 := InvoiceSnapshot{ID: "inv-1", Amount: 5000, Status: StatusPending, Period: march}
	applyPlan(t, buckets, LifecycleEvent{EventID: "e1", Operation: OperationCreated, Current: inv1})
	require.Equal(t, bucketOf(1, 0, 5000), buckets[march])

	paid := inv1
	paid.Status = StatusPaid
	applyPlan(t, buckets, LifecycleEvent{EventID: "e2", Operation: OperationUpdated, Previous: &inv1, Current: paid})
	require.Equal(t, bucketOf(1, 5000, 0), buckets[march])

	bigger := paid
	bigger.Amount = 7000
	applyPlan(t, buckets, LifecycleEvent{EventID: "e3", Operation: OperationUpdated, Previous: &paid, Current: bigger})
	require.Equal(t, bucketOf(1, 7000, 0), buckets[march])

	voided := bigger
	voided.Status = StatusVoid
	applyPlan(t, buckets, LifecycleEvent{EventID: "e4", Operation: OperationUpdated, Previous: &bigger, Current: voided})
	require.Equal(t, bucketOf(0, 0, 0), buckets[march])

	inv2 := InvoiceSnapshot{ID: "inv-2", Amount: 1000, Status: StatusPending, Period: april}
	applyPlan(t, buckets, LifecycleEvent{EventID: "e5", Operation: OperationCreated, Current: inv2})
	moved := inv2
	moved.Period = march
	applyPlan(t, buckets, LifecycleEvent{EventID: "e6", Operation: OperationUpdated, Previous: &inv2, Current: moved})

	aprilWant := bucketOf(0, 0, 0)
	aprilWant.Period = april
	require.Equal(t, aprilWant, buckets[april])
	require.Equal(t, bucketOf(1, 0, 1000), buckets[march])
}

// Random lifecycles over a handful of invoices: every prefix keeps the invariants and
// each bucket's count equals the number of live eligible invoices in that period.
func TestPlan_RandomLifecyclesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(20250301))
	periods := []Period{MustParsePeriod("2025-01"), MustParsePeriod("2025-02"), MustParsePeriod("2025-03")}
	statuses := []Status{StatusPaid, StatusPending, StatusDraft, StatusVoid}

	randomSnapshot := func(id string) InvoiceSnapshot {
		return InvoiceSnapshot{
			ID:     id,
			Amount: rng.Int63n(10000),
			Status: statuses[rng.Intn(len(statuses))],
			Period: periods[rng.Intn(len(periods))],
		}
	}

	for run := 0; run < 50; run++ {
		buckets := map[Period]Bucket{}
		live := map[string]InvoiceSnapshot{}

		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("inv-%d", rng.Intn(8))
			evtID := fmt.Sprintf("evt-%d-%d", run, i)
			prev, exists := live[id]

			switch {
			case !exists:
				curr := randomSnapshot(id)
				applyPlan(t, buckets, LifecycleEvent{EventID: evtID, Operation: OperationCreated, Current: curr})
				live[id] = curr
			case rng.Intn(4) == 0:
				applyPlan(t, buckets, LifecycleEvent{EventID: evtID, Operation: OperationDeleted, Current: prev})
				delete(live, id)
			default:
				curr := randomSnapshot(id)
				p := prev
				applyPlan(t, buckets, LifecycleEvent{EventID: evtID, Operation: OperationUpdated, Previous: &p, Current: curr})
				live[id] = curr
			}

			want := map[Period]Bucket{}
			for _, inv := range live {
				if !inv.Eligible() {
					continue
				}
				b := want[inv.Period]
				want[inv.Period] = Add(b, inv.Amount, inv.Status).Bucket
			}
			for _, p := range periods {
				got := buckets[p]
				require.True(t, got.Consistent(), "run %d step %d period %s: %+v", run, i, p, got)
				require.Equal(t, want[p].InvoiceCount, got.InvoiceCount, "run %d step %d period %s", run, i, p)
				require.Equal(t, want[p].TotalPaidAmount, got.TotalPaidAmount)
				require.Equal(t, want[p].TotalPendingAmount, got.TotalPendingAmount)
			}
		}
	}
}
