package admindata

import (
	"context"
	"fmt"

	"github.com/paperhub/admindata/pkg/domain"
	"github.com/paperhub/admindata/pkg/entitycache"
	"github.com/paperhub/admindata/pkg/fallback"
	"github.com/paperhub/admindata/pkg/gateway"
	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/metrics"
	"github.com/paperhub/admindata/pkg/models"
	"github.com/paperhub/admindata/pkg/mutation"
	"github.com/paperhub/admindata/pkg/synthetic"
)

// Entity type names used for metrics, refresh and logging
const (
	EntityPartners    = "partners"
	EntityEarnings    = "earnings"
	EntityDisputes    = "disputes"
	EntityArbitrators = "arbitrators"
)

// Service is the admin data layer: one request-scoped cache per entity type
// wired to the gateway, with degraded-mode substitution from the synthetic
// generator and optimistic mutations coordinated per entity id.
//
// Reads that hit an unreachable upstream are absorbed: the caller receives
// the synthetic dataset with persisted overrides applied and no error.
// Unauthorized is never absorbed.
type Service struct {
	gw      *gateway.Client
	store   *fallback.Store
	synth   *synthetic.Generator
	coord   *mutation.Coordinator
	metrics *metrics.Metrics
	logger  logger.Logger

	partners    *entitycache.Cache[models.Partner]
	earnings    *entitycache.Cache[models.Earning]
	disputes    *entitycache.Cache[models.Dispute]
	arbitrators *entitycache.Cache[models.Arbitrator]
}

// NewService wires the caches to the gateway with synthetic fallback.
// Metrics may be nil (tests).
func NewService(gw *gateway.Client, store *fallback.Store, synth *synthetic.Generator, log logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Default()
	}

	s := &Service{
		gw:      gw,
		store:   store,
		synth:   synth,
		coord:   mutation.NewCoordinator(log),
		metrics: m,
		logger:  log,
	}

	s.partners = entitycache.New(fetchWithFallback(s, EntityPartners, gw.ListPartners, synth.Partners))
	s.earnings = entitycache.New(fetchWithFallback(s, EntityEarnings, gw.ListEarnings, synth.Earnings))
	s.disputes = entitycache.New(fetchWithFallback(s, EntityDisputes, gw.ListDisputes, synth.Disputes))
	s.arbitrators = entitycache.New(fetchWithFallback(s, EntityArbitrators, gw.ListArbitrators, synth.Arbitrators))

	return s
}

// fetchWithFallback builds a cache fetcher that tries the gateway first and
// substitutes the synthetic dataset when the upstream is unreachable. Any
// other failure, Unauthorized in particular, surfaces unchanged.
func fetchWithFallback[T any](s *Service, entity string, remote func(context.Context) ([]T, error), degraded func(context.Context) []T) entitycache.FetchFunc[T] {
	return func(ctx context.Context) ([]T, error) {
		items, err := remote(ctx)
		if err == nil {
			return items, nil
		}
		if domain.IsUnreachable(err) {
			s.logger.Warn("upstream unreachable, serving synthetic dataset", "entity", entity)
			s.recordFallback(entity)
			return degraded(ctx), nil
		}
		return nil, err
	}
}

// Partners returns the cached partner collection
func (s *Service) Partners(ctx context.Context) ([]models.Partner, error) {
	s.recordCacheAccess(EntityPartners, s.partners.Valid())
	return s.partners.Get(ctx)
}

// Earnings returns the cached earning collection
func (s *Service) Earnings(ctx context.Context) ([]models.Earning, error) {
	s.recordCacheAccess(EntityEarnings, s.earnings.Valid())
	return s.earnings.Get(ctx)
}

// Disputes returns the cached dispute collection
func (s *Service) Disputes(ctx context.Context) ([]models.Dispute, error) {
	s.recordCacheAccess(EntityDisputes, s.disputes.Valid())
	return s.disputes.Get(ctx)
}

// Arbitrators returns the cached arbitrator roster
func (s *Service) Arbitrators(ctx context.Context) ([]models.Arbitrator, error) {
	s.recordCacheAccess(EntityArbitrators, s.arbitrators.Valid())
	return s.arbitrators.Get(ctx)
}

// Invalidate marks one entity type stale so the next read refetches
func (s *Service) Invalidate(entity string) error {
	switch entity {
	case EntityPartners:
		s.partners.Invalidate()
	case EntityEarnings:
		s.earnings.Invalidate()
	case EntityDisputes:
		s.disputes.Invalidate()
	case EntityArbitrators:
		s.arbitrators.Invalidate()
	default:
		return domain.NewBadRequestError("unknown entity type: " + entity)
	}
	return nil
}

// InvalidateAll marks every entity type stale
func (s *Service) InvalidateAll() {
	s.partners.Invalidate()
	s.earnings.Invalidate()
	s.disputes.Invalidate()
	s.arbitrators.Invalidate()
}

// Refresh invalidates and immediately refetches every entity type
func (s *Service) Refresh(ctx context.Context) error {
	s.InvalidateAll()

	if _, err := s.Partners(ctx); err != nil {
		return fmt.Errorf("refreshing partners: %w", err)
	}
	if _, err := s.Earnings(ctx); err != nil {
		return fmt.Errorf("refreshing earnings: %w", err)
	}
	if _, err := s.Disputes(ctx); err != nil {
		return fmt.Errorf("refreshing disputes: %w", err)
	}
	if _, err := s.Arbitrators(ctx); err != nil {
		return fmt.Errorf("refreshing arbitrators: %w", err)
	}
	return nil
}

// SubscribePartners registers a subscriber for partner collection changes
func (s *Service) SubscribePartners(fn entitycache.Subscriber[models.Partner]) func() {
	return s.partners.Subscribe(fn)
}

// SubscribeEarnings registers a subscriber for earning collection changes
func (s *Service) SubscribeEarnings(fn entitycache.Subscriber[models.Earning]) func() {
	return s.earnings.Subscribe(fn)
}

// SubscribeDisputes registers a subscriber for dispute collection changes
func (s *Service) SubscribeDisputes(fn entitycache.Subscriber[models.Dispute]) func() {
	return s.disputes.Subscribe(fn)
}

// Stats recomputes the derived aggregates from the current cached
// collections, so they are consistent with the data after every mutation
func (s *Service) Stats(ctx context.Context) (models.AdminStats, error) {
	var stats models.AdminStats

	partners, err := s.Partners(ctx)
	if err != nil {
		return stats, err
	}
	earnings, err := s.Earnings(ctx)
	if err != nil {
		return stats, err
	}
	disputes, err := s.Disputes(ctx)
	if err != nil {
		return stats, err
	}
	arbitrators, err := s.Arbitrators(ctx)
	if err != nil {
		return stats, err
	}

	stats.TotalPartners = len(partners)
	for _, p := range partners {
		if p.IsVerifiedPartner {
			stats.VerifiedPartners++
		}
		stats.TotalEarnings += p.TotalEarnings
	}

	for _, e := range earnings {
		if !e.IsPaid {
			stats.UnpaidEarningsCount++
			stats.UnpaidEarningsAmount += e.Amount
		}
	}

	for _, d := range disputes {
		if d.Resolved {
			stats.ResolvedDisputes++
		} else {
			stats.OpenDisputes++
		}
	}

	stats.Arbitrators = len(arbitrators)
	return stats, nil
}

// UpdatePartner applies a partial partner update optimistically and returns
// the committed partner record
func (s *Service) UpdatePartner(ctx context.Context, id int, patch models.PartnerPatch) (models.Partner, error) {
	if patch.IsEmpty() {
		return models.Partner{}, domain.NewBadRequestError("no partner fields to update")
	}

	outcome, err := mutation.Run(ctx, s.coord, fmt.Sprintf("partner:%d", id), mutation.Options[models.Partner]{
		Cache: s.partners,
		Match: func(p models.Partner) bool { return p.ID == id },
		Apply: patch.ApplyTo,
		Invoke: func(ctx context.Context) (*models.Partner, error) {
			return s.gw.UpdatePartner(ctx, id, patch)
		},
		Reconcile: reconcilePartner,
		Persist: func(ctx context.Context) error {
			return s.store.PutPartnerOverride(ctx, id, patch)
		},
	})
	s.recordMutation("update_partner", outcome)
	if err != nil {
		return models.Partner{}, err
	}

	return s.partnerByID(ctx, id)
}

// MarkEarningPaid marks an earning as paid out. The paid flag is monotonic:
// there is no operation to unmark it.
func (s *Service) MarkEarningPaid(ctx context.Context, earningID int) error {
	outcome, err := mutation.Run(ctx, s.coord, fmt.Sprintf("earning:%d", earningID), mutation.Options[models.Earning]{
		Cache: s.earnings,
		Match: func(e models.Earning) bool { return e.ID == earningID },
		Apply: func(e models.Earning) models.Earning {
			e.IsPaid = true
			return e
		},
		Invoke: func(ctx context.Context) (*models.Earning, error) {
			// Message-only success upstream, nothing to reconcile
			return nil, s.gw.MarkEarningPaid(ctx, earningID)
		},
		Persist: func(ctx context.Context) error {
			return s.store.MarkPaid(ctx, earningID)
		},
	})
	s.recordMutation("mark_earning_paid", outcome)
	return err
}

// AssignArbitrator assigns an arbitrator to a dispute and returns the
// committed dispute record
func (s *Service) AssignArbitrator(ctx context.Context, disputeID, arbitratorID int) (models.Dispute, error) {
	placeholder := s.arbitratorPlaceholder(ctx, arbitratorID)

	outcome, err := mutation.Run(ctx, s.coord, fmt.Sprintf("dispute:%d", disputeID), mutation.Options[models.Dispute]{
		Cache: s.disputes,
		Match: func(d models.Dispute) bool { return d.ID == disputeID },
		Apply: func(d models.Dispute) models.Dispute {
			arb := placeholder
			d.Arbitrator = &arb
			return d
		},
		Invoke: func(ctx context.Context) (*models.Dispute, error) {
			return s.gw.AssignArbitrator(ctx, disputeID, arbitratorID)
		},
		Reconcile: reconcileDispute,
		Persist: func(ctx context.Context) error {
			return s.store.AssignArbitrator(ctx, disputeID, arbitratorID)
		},
	})
	s.recordMutation("assign_arbitrator", outcome)
	if err != nil {
		return models.Dispute{}, err
	}

	return s.disputeByID(ctx, disputeID)
}

// ResolveDispute closes a dispute with a result text and returns the
// committed dispute record. A degraded-mode resolution stays cached for the
// session but is not persisted; resolution is an upstream-owned transition.
func (s *Service) ResolveDispute(ctx context.Context, disputeID int, result string) (models.Dispute, error) {
	outcome, err := mutation.Run(ctx, s.coord, fmt.Sprintf("dispute:%d", disputeID), mutation.Options[models.Dispute]{
		Cache: s.disputes,
		Match: func(d models.Dispute) bool { return d.ID == disputeID },
		Apply: func(d models.Dispute) models.Dispute {
			d.Resolved = true
			r := result
			d.Result = &r
			return d
		},
		Invoke: func(ctx context.Context) (*models.Dispute, error) {
			return s.gw.ResolveDispute(ctx, disputeID, result)
		},
		Reconcile: reconcileDispute,
	})
	s.recordMutation("resolve_dispute", outcome)
	if err != nil {
		return models.Dispute{}, err
	}

	return s.disputeByID(ctx, disputeID)
}

// reconcilePartner folds the authoritative partner over the optimistic one.
// Fields the server omitted keep their optimistically-merged values so a
// sparse response never regresses the record.
func reconcilePartner(optimistic, authoritative models.Partner) models.Partner {
	merged := authoritative
	merged.ID = optimistic.ID

	if merged.Username == "" {
		merged.Username = optimistic.Username
	}
	if merged.Email == "" {
		merged.Email = optimistic.Email
	}
	if merged.Name == "" {
		merged.Name = optimistic.Name
	}
	if merged.ReferralCode == "" {
		merged.ReferralCode = optimistic.ReferralCode
	}
	if merged.TotalReferrals == 0 {
		merged.TotalReferrals = optimistic.TotalReferrals
	}
	if merged.ActiveReferrals == 0 {
		merged.ActiveReferrals = optimistic.ActiveReferrals
	}
	if merged.TotalEarnings == 0 {
		merged.TotalEarnings = optimistic.TotalEarnings
	}
	if merged.DateJoined.IsZero() {
		merged.DateJoined = optimistic.DateJoined
	}
	return merged
}

// reconcileDispute folds the authoritative dispute over the optimistic one.
// The server's arbitrator object always wins over the optimistic placeholder.
func reconcileDispute(optimistic, authoritative models.Dispute) models.Dispute {
	merged := authoritative
	merged.ID = optimistic.ID

	if merged.Order.ID == 0 {
		merged.Order = optimistic.Order
	}
	if merged.Reason == "" {
		merged.Reason = optimistic.Reason
	}
	if merged.Result == nil {
		merged.Result = optimistic.Result
	}
	if merged.Arbitrator == nil {
		merged.Arbitrator = optimistic.Arbitrator
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = optimistic.CreatedAt
	}
	return merged
}

// arbitratorPlaceholder resolves the optimistic arbitrator object from the
// roster cache, falling back to a bare id reference
func (s *Service) arbitratorPlaceholder(ctx context.Context, arbitratorID int) models.Arbitrator {
	if arbitrators, err := s.Arbitrators(ctx); err == nil {
		for _, a := range arbitrators {
			if a.ID == arbitratorID {
				return a
			}
		}
	}
	return models.Arbitrator{ID: arbitratorID}
}

func (s *Service) partnerByID(ctx context.Context, id int) (models.Partner, error) {
	partners, err := s.Partners(ctx)
	if err != nil {
		return models.Partner{}, err
	}
	for _, p := range partners {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Partner{}, domain.NewNotFoundError("partner")
}

func (s *Service) disputeByID(ctx context.Context, id int) (models.Dispute, error) {
	disputes, err := s.Disputes(ctx)
	if err != nil {
		return models.Dispute{}, err
	}
	for _, d := range disputes {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Dispute{}, domain.NewNotFoundError("dispute")
}

func (s *Service) recordFallback(entity string) {
	if s.metrics != nil {
		s.metrics.RecordFallback(entity)
	}
}

func (s *Service) recordMutation(operation string, outcome mutation.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordMutation(operation, string(outcome))
	}
}

func (s *Service) recordCacheAccess(entity string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(entity)
	} else {
		s.metrics.RecordCacheMiss(entity)
	}
}
