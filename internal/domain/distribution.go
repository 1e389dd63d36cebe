package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Distribution is the derived, point-in-time partition of a line's ordered
// quantity across buckets. It is never persisted; Reduce recomputes it from
// the event log on every read.
//
// AtStartLocation and AtTargetLocation double-count into ByLocation: the true
// partition is Waiting + sum(ByLocation) + sum(InTransit) + Delivered +
// Refunded. InTransitInvalid is a diagnostic tally of quantity whose
// originating logistics leg could not be matched in this order's own log; it
// is never reconciled back into a live bucket.
type Distribution struct {
	Waiting          int
	AtStartLocation  int
	AtTargetLocation int
	ByLocation       map[uuid.UUID]int
	InTransit        map[uuid.UUID]int
	InTransitInvalid int
	Delivered        int
	Refunded         int

	// Anomalies records clamped negative balances and other logged
	// inconsistencies surfaced during the replay. The log itself is never
	// corrected; callers log these as diagnostics.
	Anomalies []string

	startLocations  map[uuid.UUID]bool
	targetLocations map[uuid.UUID]bool
}

// NewDistribution returns an empty distribution
func NewDistribution() *Distribution {
	return &Distribution{
		ByLocation:      make(map[uuid.UUID]int),
		InTransit:       make(map[uuid.UUID]int),
		startLocations:  make(map[uuid.UUID]bool),
		targetLocations: make(map[uuid.UUID]bool),
	}
}

// Reduce replays the chronologically ordered event list for one
// (order, product) into its current distribution. Pure and deterministic:
// identical input yields an identical snapshot. An unrecognized status or a
// metadata variant that does not match its status is a programmer error.
func Reduce(events []ProductStatusEvent) (*Distribution, error) {
	d := NewDistribution()

	for _, e := range events {
		switch e.Status {
		case StatusWaitingForArrival:
			if _, ok := e.Meta.(WaitingMeta); !ok {
				return nil, metaMismatch(e)
			}
			d.Waiting += e.Quantity

		case StatusArrivedInOPP:
			m, ok := e.Meta.(ArrivedMeta)
			if !ok {
				return nil, metaMismatch(e)
			}
			switch {
			case m.FromLogisticsOrderID != nil:
				d.drawTransit(*m.FromLogisticsOrderID, e.Quantity)
			case m.FromSeller:
				d.drawWaiting(e.Quantity)
			}
			// Return orders open with neither source: quantity enters fresh.
			d.ByLocation[m.LocationID] += e.Quantity
			if m.IsStartLocation {
				d.startLocations[m.LocationID] = true
				d.AtStartLocation += e.Quantity
			}
			if m.IsTargetLocation {
				d.targetLocations[m.LocationID] = true
				d.AtTargetLocation += e.Quantity
			}

		case StatusSentToLogistics:
			m, ok := e.Meta.(SentMeta)
			if !ok {
				return nil, metaMismatch(e)
			}
			switch {
			case m.PreviousLogisticsOrderID != nil:
				d.drawTransit(*m.PreviousLogisticsOrderID, e.Quantity)
			case m.FromLocationID != nil:
				d.drawLocation(*m.FromLocationID, e.Quantity)
			default:
				d.anomaly("sent_to_logistics event %d names no source bucket", e.ID)
			}
			d.InTransit[m.LogisticsOrderID] += e.Quantity

		case StatusDelivered:
			m, ok := e.Meta.(DeliveredMeta)
			if !ok {
				return nil, metaMismatch(e)
			}
			d.drawLocation(m.LocationID, e.Quantity)
			d.Delivered += e.Quantity

		case StatusRefunded:
			m, ok := e.Meta.(RefundedMeta)
			if !ok {
				return nil, metaMismatch(e)
			}
			switch m.FromStatus {
			case StatusWaitingForArrival:
				d.drawWaiting(e.Quantity)
			case StatusArrivedInOPP:
				if m.LocationID == nil {
					d.anomaly("refunded event %d from arrived_in_opp names no location", e.ID)
				} else {
					d.drawLocation(*m.LocationID, e.Quantity)
				}
			case StatusSentToLogistics:
				if m.LogisticsOrderID == nil {
					d.anomaly("refunded event %d from sent_to_logistics names no logistics order", e.ID)
				} else {
					d.drawTransit(*m.LogisticsOrderID, e.Quantity)
				}
			default:
				d.anomaly("refunded event %d names non-refundable bucket %q", e.ID, m.FromStatus)
			}
			d.Refunded += e.Quantity

		default:
			return nil, fmt.Errorf("unknown product status %q in event %d", e.Status, e.ID)
		}
	}

	return d, nil
}

// drawWaiting removes quantity from the waiting bucket, clamping at zero
func (d *Distribution) drawWaiting(q int) {
	if q > d.Waiting {
		d.anomaly("waiting balance short by %d, clamped to zero", q-d.Waiting)
		d.Waiting = 0
		return
	}
	d.Waiting -= q
}

// drawTransit removes quantity from a logistics leg's bucket. A shortfall
// means the originating leg cannot be matched in this log (a re-targeted leg,
// or a return order's opening re-routed event); the unmatched amount is
// tallied in InTransitInvalid rather than failing.
func (d *Distribution) drawTransit(legID uuid.UUID, q int) {
	bal := d.InTransit[legID]
	take := q
	if take > bal {
		take = bal
	}
	d.InTransit[legID] = bal - take
	if shortfall := q - take; shortfall > 0 {
		d.InTransitInvalid += shortfall
	}
}

// drawLocation removes quantity from a location's bucket and from the start/
// target aggregates the location was flagged into, clamping at zero
func (d *Distribution) drawLocation(locationID uuid.UUID, q int) {
	bal := d.ByLocation[locationID]
	take := q
	if take > bal {
		take = bal
		d.anomaly("location %s balance short by %d, clamped to zero", locationID, q-bal)
	}
	d.ByLocation[locationID] = bal - take

	if d.startLocations[locationID] {
		if take > d.AtStartLocation {
			d.AtStartLocation = 0
		} else {
			d.AtStartLocation -= take
		}
	}
	if d.targetLocations[locationID] {
		if take > d.AtTargetLocation {
			d.AtTargetLocation = 0
		} else {
			d.AtTargetLocation -= take
		}
	}
}

func (d *Distribution) anomaly(format string, args ...interface{}) {
	d.Anomalies = append(d.Anomalies, fmt.Sprintf(format, args...))
}

func metaMismatch(e ProductStatusEvent) error {
	return fmt.Errorf("event %d: metadata %T does not match status %q", e.ID, e.Meta, e.Status)
}

// Total sums every live and terminal bucket; for a consistent log it equals
// the line's ordered quantity.
func (d *Distribution) Total() int {
	total := d.Waiting + d.Delivered + d.Refunded
	for _, q := range d.ByLocation {
		total += q
	}
	for _, q := range d.InTransit {
		total += q
	}
	return total
}

// Settled reports whether the full ordered quantity reached a terminal bucket
func (d *Distribution) Settled(ordered int) bool {
	return d.Delivered+d.Refunded >= ordered
}

// StartLocations lists the locations this line's quantity was handed in at
// (arrived events flagged is_start_location)
func (d *Distribution) StartLocations() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(d.startLocations))
	for id := range d.startLocations {
		out = append(out, id)
	}
	return out
}
