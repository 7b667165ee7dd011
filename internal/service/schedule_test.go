package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/fulfillment/internal/models"
)

func TestStatusFor(t *testing.T) {
	require.Equal(t, models.OrderStatusPending, statusFor(0, 10))
	require.Equal(t, models.OrderStatusPartial, statusFor(3, 10))
	require.Equal(t, models.OrderStatusPartial, statusFor(9, 10))
	require.Equal(t, models.OrderStatusCompleted, statusFor(10, 10))
	require.Equal(t, models.OrderStatusCompleted, statusFor(12, 10))
}

// Deleting dispatches moves the dispatched total back down, and the status
// must follow it back down as well.
func TestStatusForMovesBackwards(t *testing.T) {
	require.Equal(t, models.OrderStatusCompleted, statusFor(10, 10))
	require.Equal(t, models.OrderStatusPartial, statusFor(6, 10))
	require.Equal(t, models.OrderStatusPending, statusFor(0, 10))
}

func TestTotalDeliveriesFor(t *testing.T) {
	require.Equal(t, 5, totalDeliveriesFor(10, 2))
	require.Equal(t, 4, totalDeliveriesFor(10, 3))
	require.Equal(t, 1, totalDeliveriesFor(1, 5))
	require.Equal(t, 0, totalDeliveriesFor(10, 0))
}

func TestBuildSchedule(t *testing.T) {
	orderID := uuid.New()
	orderDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	schedule := buildSchedule(orderID, orderDate, 10, 7, 3, 4)

	require.Len(t, schedule, 4)

	total := 0
	for i, d := range schedule {
		require.Equal(t, orderID, d.OrderID)
		require.Equal(t, i+1, d.SequenceNumber)
		require.Equal(t, orderDate.AddDate(0, 0, i*7), d.ScheduledDate)
		require.Equal(t, models.DeliveryStatusPending, d.Status)
		total += d.Quantity
	}

	// 3+3+3+1: the last slot takes the remainder.
	require.Equal(t, 3, schedule[0].Quantity)
	require.Equal(t, 1, schedule[3].Quantity)
	require.Equal(t, 10, total)
}

func TestBuildScheduleExactFit(t *testing.T) {
	schedule := buildSchedule(uuid.New(), time.Now(), 9, 1, 3, 3)

	require.Len(t, schedule, 3)
	for _, d := range schedule {
		require.Equal(t, 3, d.Quantity)
	}
}

func TestBuildScheduleEmpty(t *testing.T) {
	require.Nil(t, buildSchedule(uuid.New(), time.Now(), 10, 7, 3, 0))
}

func pendingSchedule(quantities ...int) []*models.ScheduledDelivery {
	orderID := uuid.New()
	deliveries := make([]*models.ScheduledDelivery, 0, len(quantities))
	for i, q := range quantities {
		deliveries = append(deliveries, &models.ScheduledDelivery{
			ID:             uuid.New(),
			OrderID:        orderID,
			SequenceNumber: i + 1,
			Quantity:       q,
			Status:         models.DeliveryStatusPending,
		})
	}
	return deliveries
}

func pendingSum(deliveries []*models.ScheduledDelivery) int {
	total := 0
	for _, d := range deliveries {
		if d.Status == models.DeliveryStatusPending {
			total += d.Quantity
		}
	}
	return total
}

func TestRedistributeSchedulePartialDispatch(t *testing.T) {
	// 10 ordered as 3+3+3+1, then 4 dispatched: 6 remain, needing two
	// slots of 3. The extra two slots close out at zero.
	deliveries := pendingSchedule(3, 3, 3, 1)

	changed := redistributeSchedule(10, 4, 3, deliveries)

	require.Equal(t, 6, pendingSum(deliveries))
	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, 3, deliveries[1].Quantity)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[2].Status)
	require.Equal(t, 0, deliveries[2].Quantity)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[3].Status)
	require.Equal(t, 0, deliveries[3].Quantity)
	require.NotEmpty(t, changed)
}

func TestRedistributeScheduleFullyDispatched(t *testing.T) {
	deliveries := pendingSchedule(3, 3, 3, 1)

	changed := redistributeSchedule(10, 10, 3, deliveries)

	require.Len(t, changed, 4)
	for _, d := range deliveries {
		require.Equal(t, models.DeliveryStatusCompleted, d.Status)
		require.Equal(t, 0, d.Quantity)
	}
}

func TestRedistributeScheduleOverDispatched(t *testing.T) {
	deliveries := pendingSchedule(3, 3)

	redistributeSchedule(6, 8, 3, deliveries)

	for _, d := range deliveries {
		require.Equal(t, models.DeliveryStatusCompleted, d.Status)
		require.Equal(t, 0, d.Quantity)
	}
}

// Slots that hold an actual delivery stay completed. When fewer usable
// slots remain than the remainder would need, no rows are added and the
// last pending slot absorbs the surplus.
func TestRedistributeScheduleDeliveredSlotsStayClosed(t *testing.T) {
	deliveries := pendingSchedule(3, 3, 3, 1)
	deliveries[0].Status = models.DeliveryStatusCompleted
	deliveries[1].Status = models.DeliveryStatusCompleted
	deliveries[2].Status = models.DeliveryStatusCompleted

	redistributeSchedule(10, 1, 3, deliveries)

	require.Len(t, deliveries, 4)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[0].Status)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[1].Status)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[2].Status)
	require.Equal(t, models.DeliveryStatusPending, deliveries[3].Status)
	require.Equal(t, 9, deliveries[3].Quantity)
	require.Equal(t, 9, pendingSum(deliveries))
}

// Deleting the dispatch that completed an order must bring the whole
// schedule back: the slots were closed by the algorithm at quantity zero,
// so they all reopen and the pending sum matches the remainder again.
func TestRedistributeScheduleReopensAfterDispatchDeleted(t *testing.T) {
	deliveries := pendingSchedule(10, 10, 10, 10, 10)

	redistributeSchedule(50, 50, 10, deliveries)
	for _, d := range deliveries {
		require.Equal(t, models.DeliveryStatusCompleted, d.Status)
		require.Equal(t, 0, d.Quantity)
	}

	changed := redistributeSchedule(50, 0, 10, deliveries)

	require.Len(t, changed, 5)
	for _, d := range deliveries {
		require.Equal(t, models.DeliveryStatusPending, d.Status)
		require.Equal(t, 10, d.Quantity)
	}
	require.Equal(t, 50, pendingSum(deliveries))
}

func TestRedistributeScheduleReopensOnlyWhatIsNeeded(t *testing.T) {
	deliveries := pendingSchedule(3, 3, 3, 1)
	redistributeSchedule(10, 10, 3, deliveries)

	// 4 undispatched again: two slots of 3 cover it, the rest stay closed.
	redistributeSchedule(10, 6, 3, deliveries)

	require.Equal(t, models.DeliveryStatusPending, deliveries[0].Status)
	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, models.DeliveryStatusPending, deliveries[1].Status)
	require.Equal(t, 1, deliveries[1].Quantity)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[2].Status)
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[3].Status)
	require.Equal(t, 4, pendingSum(deliveries))
}

func TestRedistributeScheduleReopenSkipsDeliveredSlots(t *testing.T) {
	now := time.Now()
	deliveries := pendingSchedule(3, 3, 3, 1)
	deliveries[0].Status = models.DeliveryStatusCompleted
	deliveries[0].Quantity = 0
	deliveries[0].DeliveredAt = &now
	deliveries[1].Status = models.DeliveryStatusCompleted
	deliveries[1].Quantity = 0

	redistributeSchedule(10, 0, 3, deliveries)

	// Slot 1 was actually delivered and never comes back; slot 2 reopens.
	require.Equal(t, models.DeliveryStatusCompleted, deliveries[0].Status)
	require.Equal(t, models.DeliveryStatusPending, deliveries[1].Status)
	require.Equal(t, 10, pendingSum(deliveries))
}

func TestRedistributeScheduleLastSlotTakesSurplus(t *testing.T) {
	deliveries := pendingSchedule(3, 3)

	redistributeSchedule(20, 0, 3, deliveries)

	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, 17, deliveries[1].Quantity)
	require.Equal(t, 20, pendingSum(deliveries))
}

func TestRedistributeScheduleEvenSplit(t *testing.T) {
	// No preferred batch size: 7 over 3 slots splits 3+2+2 with the
	// earlier slots taking the extras.
	deliveries := pendingSchedule(0, 0, 0)

	redistributeSchedule(7, 0, 0, deliveries)

	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, 2, deliveries[1].Quantity)
	require.Equal(t, 2, deliveries[2].Quantity)
}

func TestRedistributeScheduleEvenSplitReopens(t *testing.T) {
	deliveries := pendingSchedule(3, 2, 2)
	redistributeSchedule(7, 7, 0, deliveries)

	redistributeSchedule(7, 0, 0, deliveries)

	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, 2, deliveries[1].Quantity)
	require.Equal(t, 2, deliveries[2].Quantity)
	require.Equal(t, 7, pendingSum(deliveries))
}

func TestRedistributeScheduleIdempotent(t *testing.T) {
	deliveries := pendingSchedule(3, 3, 3, 1)

	first := redistributeSchedule(10, 4, 3, deliveries)
	require.NotEmpty(t, first)

	second := redistributeSchedule(10, 4, 3, deliveries)
	require.Empty(t, second)
	require.Equal(t, 6, pendingSum(deliveries))
}

func TestRedistributeScheduleSkipsCompletedSlots(t *testing.T) {
	deliveries := pendingSchedule(3, 3, 3, 1)
	deliveries[0].Status = models.DeliveryStatusCompleted

	redistributeSchedule(10, 3, 3, deliveries)

	// The completed slot keeps its historical quantity.
	require.Equal(t, 3, deliveries[0].Quantity)
	require.Equal(t, 7, pendingSum(deliveries))
}
