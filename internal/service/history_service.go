package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository"
)

// historyService derives the coarse buyer-facing status timeline from the
// event log plus the order-level status rows. Pure read; nothing is appended.
type historyService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewHistoryService creates the status history projector
func NewHistoryService(repos *repository.Repositories, logger *zap.Logger) *historyService {
	return &historyService{repos: repos, logger: logger}
}

// GetHistory returns the ordered milestone list for an order. A milestone
// qualifies only when every line's full ordered quantity has crossed its
// bucket; its timestamp is the latest qualifying event across lines.
func (s *historyService) GetHistory(ctx context.Context, orderID uuid.UUID) ([]StatusMilestone, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.OrderedLine.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	events, err := s.repos.ProductEvent.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	orderEvents, err := s.repos.OrderEvent.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	milestones := []StatusMilestone{
		{Status: MilestonePacking, OccurredAt: order.CreatedAt},
	}

	if at, ok := crossing(lines, events, func(e domain.ProductStatusEvent) bool {
		return e.Status == domain.StatusSentToLogistics
	}); ok {
		milestones = append(milestones, StatusMilestone{Status: MilestoneShipped, OccurredAt: at})
	}

	if at, ok := crossing(lines, events, func(e domain.ProductStatusEvent) bool {
		if e.Status != domain.StatusArrivedInOPP {
			return false
		}
		meta, ok := e.Meta.(domain.ArrivedMeta)
		return ok && meta.IsTargetLocation
	}); ok {
		milestones = append(milestones, StatusMilestone{Status: MilestoneWaitingForReceive, OccurredAt: at})
	}

	for _, e := range orderEvents {
		switch e.Status {
		case domain.OrderStatusDone:
			milestones = append(milestones, StatusMilestone{Status: MilestoneDone, OccurredAt: e.OccurredAt})
		case domain.OrderStatusCanceled:
			milestones = append(milestones, StatusMilestone{Status: MilestoneCanceled, OccurredAt: e.OccurredAt})
		}
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].OccurredAt.Before(milestones[j].OccurredAt)
	})
	return milestones, nil
}

// crossing finds the moment every line's cumulative matching quantity reached
// its ordered quantity. Returns false when any line never crosses.
func crossing(lines []*domain.OrderedLine, events []domain.ProductStatusEvent, match func(domain.ProductStatusEvent) bool) (time.Time, bool) {
	var latest time.Time
	for _, line := range lines {
		total := 0
		crossed := false
		for _, e := range events {
			if e.ProductID != line.ProductID || !match(e) {
				continue
			}
			total += e.Quantity
			if total >= line.Quantity {
				if e.OccurredAt.After(latest) {
					latest = e.OccurredAt
				}
				crossed = true
				break
			}
		}
		if !crossed {
			return time.Time{}, false
		}
	}
	return latest, true
}
