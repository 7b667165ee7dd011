package service

import (
	"time"

	"github.com/google/uuid"

	"example.com/backstage/services/fulfillment/internal/models"
)

// statusFor derives an order's status from its dispatched total. It is a
// pure function of the two quantities, so deleting dispatches moves the
// status backwards as well as forwards.
func statusFor(totalDispatched, orderedQuantity int) models.OrderStatus {
	switch {
	case totalDispatched <= 0:
		return models.OrderStatusPending
	case totalDispatched < orderedQuantity:
		return models.OrderStatusPartial
	default:
		return models.OrderStatusCompleted
	}
}

// totalDeliveriesFor computes how many deliveries a recurring order needs
// when the caller did not supply an explicit count.
func totalDeliveriesFor(orderedQuantity, trucksPerDelivery int) int {
	if trucksPerDelivery <= 0 {
		return 0
	}
	return (orderedQuantity + trucksPerDelivery - 1) / trucksPerDelivery
}

// buildSchedule generates the full initial scheduled-delivery set of a
// recurring order. Every slot gets trucksPerDelivery trucks except the last,
// which takes the remainder so the total sums exactly to orderedQuantity.
func buildSchedule(orderID uuid.UUID, orderDate time.Time, orderedQuantity, frequencyDays, trucksPerDelivery, totalDeliveries int) []models.ScheduledDelivery {
	if totalDeliveries <= 0 {
		return nil
	}

	deliveries := make([]models.ScheduledDelivery, 0, totalDeliveries)
	for i := 1; i <= totalDeliveries; i++ {
		quantity := trucksPerDelivery
		if i == totalDeliveries {
			quantity = orderedQuantity - trucksPerDelivery*(totalDeliveries-1)
		}
		deliveries = append(deliveries, models.ScheduledDelivery{
			ID:             uuid.New(),
			OrderID:        orderID,
			SequenceNumber: i,
			ScheduledDate:  orderDate.AddDate(0, 0, (i-1)*frequencyDays),
			Quantity:       quantity,
			Status:         models.DeliveryStatusPending,
		})
	}
	return deliveries
}

// redistributeSchedule recomputes the pending slots of a recurring order so
// that their quantities sum exactly to the undispatched remainder. It
// mutates the passed rows in place and returns the ones that changed, in a
// stable order, so the caller can persist them individually.
//
// The record set never grows: no new rows are ever created. Slots the
// algorithm itself closed out (quantity zero, no recorded delivery) are
// reopened in sequence order when the remainder grows back, for example
// after a dispatch is deleted. Slots that carry an actual delivery stay
// completed; once every reopenable slot is in use the surplus piles onto
// the last pending slot.
//
// deliveries must be the full set ordered by sequence number.
func redistributeSchedule(orderedQuantity, totalDispatched, trucksPerDelivery int, deliveries []*models.ScheduledDelivery) []*models.ScheduledDelivery {
	var changed []*models.ScheduledDelivery

	remaining := orderedQuantity - totalDispatched
	if remaining <= 0 {
		// Fully dispatched (or over): close out every pending slot.
		for _, d := range deliveries {
			if d.Status == models.DeliveryStatusPending {
				d.Status = models.DeliveryStatusCompleted
				d.Quantity = 0
				changed = append(changed, d)
			}
		}
		return changed
	}

	pending := pendingSlots(deliveries)

	if trucksPerDelivery > 0 {
		needed := (remaining + trucksPerDelivery - 1) / trucksPerDelivery
		if needed > len(pending) {
			reopenSlots(deliveries, needed-len(pending))
			pending = pendingSlots(deliveries)
		}
		if len(pending) == 0 {
			return changed
		}
		if needed < len(pending) {
			for _, d := range pending[needed:] {
				d.Status = models.DeliveryStatusCompleted
				d.Quantity = 0
				changed = append(changed, d)
			}
			pending = pending[:needed]
		}

		left := remaining
		for i, d := range pending {
			quantity := left
			if i < len(pending)-1 {
				quantity = min(trucksPerDelivery, left)
			}
			left -= quantity
			if d.Quantity != quantity {
				d.Quantity = quantity
				changed = append(changed, d)
			}
		}
		return changed
	}

	// No preferred batch size: spread evenly, earlier slots take the extras.
	if len(pending) == 0 {
		reopenSlots(deliveries, remaining)
		pending = pendingSlots(deliveries)
		if len(pending) == 0 {
			return changed
		}
	}
	base := remaining / len(pending)
	extra := remaining % len(pending)
	for i, d := range pending {
		quantity := base
		if i < extra {
			quantity++
		}
		if d.Quantity != quantity {
			d.Quantity = quantity
			changed = append(changed, d)
		}
	}
	return changed
}

// pendingSlots filters the pending slots, preserving sequence order.
func pendingSlots(deliveries []*models.ScheduledDelivery) []*models.ScheduledDelivery {
	var pending []*models.ScheduledDelivery
	for _, d := range deliveries {
		if d.Status == models.DeliveryStatusPending {
			pending = append(pending, d)
		}
	}
	return pending
}

// reopenSlots flips up to count algorithm-closed slots back to pending,
// earliest first. Only slots closed with quantity zero and no recorded
// delivery qualify; a slot that holds an actual delivery is history and
// stays completed.
func reopenSlots(deliveries []*models.ScheduledDelivery, count int) {
	for _, d := range deliveries {
		if count <= 0 {
			return
		}
		if d.Status == models.DeliveryStatusCompleted && d.Quantity == 0 && d.DeliveredAt == nil {
			d.Status = models.DeliveryStatusPending
			count--
		}
	}
}
