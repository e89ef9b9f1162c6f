package fallback

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/paperhub/admindata/pkg/logger"
	"github.com/paperhub/admindata/pkg/models"
)

// Logical keys under which admin-applied edits are persisted
const (
	keyUpdatedPartners     = "admin_updated_partners"
	keyPaidEarnings        = "admin_paid_earnings"
	keyAssignedArbitrators = "admin_assigned_arbitrators"
)

// Store persists admin-applied overrides so that degraded-mode data stays
// consistent across restarts. All reads tolerate corrupt stored state: a
// value that fails to deserialize is logged and treated as empty, it never
// surfaces as an error to the caller.
type Store struct {
	kv     KV
	logger logger.Logger
}

// NewStore creates a fallback store over the given KV backend
func NewStore(kv KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	return &Store{kv: kv, logger: log}
}

// PartnerOverrides returns the persisted partner patches keyed by partner id
func (s *Store) PartnerOverrides(ctx context.Context) map[int]models.PartnerPatch {
	return readIntMap[models.PartnerPatch](ctx, s, keyUpdatedPartners)
}

// PutPartnerOverride merges patch into the persisted override for the given
// partner. The merge is field-level: fields absent from patch keep their
// previously persisted value. Applying the same patch twice is idempotent.
func (s *Store) PutPartnerOverride(ctx context.Context, partnerID int, patch models.PartnerPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	overrides := s.PartnerOverrides(ctx)
	overrides[partnerID] = overrides[partnerID].Merge(patch)

	return writeIntMap(ctx, s, keyUpdatedPartners, overrides)
}

// MarkPaid records that the given earning has been paid out. The paid set is
// append-only; there is no way to unmark an earning.
func (s *Store) MarkPaid(ctx context.Context, earningID int) error {
	ids := s.paidSet(ctx)
	if ids[earningID] {
		return nil
	}
	ids[earningID] = true

	sorted := make([]int, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	encoded, err := json.Marshal(sorted)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyPaidEarnings, string(encoded))
}

// IsPaid reports whether the given earning has been marked paid
func (s *Store) IsPaid(ctx context.Context, earningID int) bool {
	return s.paidSet(ctx)[earningID]
}

// PaidEarnings returns the full paid-earning id set
func (s *Store) PaidEarnings(ctx context.Context) map[int]bool {
	return s.paidSet(ctx)
}

// AssignArbitrator persists a dispute -> arbitrator assignment, last-write-wins
func (s *Store) AssignArbitrator(ctx context.Context, disputeID, arbitratorID int) error {
	assignments := s.ArbitratorAssignments(ctx)
	assignments[disputeID] = arbitratorID
	return writeIntMap(ctx, s, keyAssignedArbitrators, assignments)
}

// ArbitratorAssignments returns the persisted dispute -> arbitrator mapping
func (s *Store) ArbitratorAssignments(ctx context.Context) map[int]int {
	return readIntMap[int](ctx, s, keyAssignedArbitrators)
}

func (s *Store) paidSet(ctx context.Context) map[int]bool {
	raw, ok, err := s.kv.Get(ctx, keyPaidEarnings)
	if err != nil {
		s.logger.Warn("fallback store read failed", "key", keyPaidEarnings, "error", err)
		return map[int]bool{}
	}
	if !ok {
		return map[int]bool{}
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("fallback store contains corrupt data, treating as empty", "key", keyPaidEarnings, "error", err)
		return map[int]bool{}
	}

	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// readIntMap reads a persisted JSON object keyed by stringified ids. Corrupt
// contents yield an empty map.
func readIntMap[V any](ctx context.Context, s *Store, key string) map[int]V {
	result := make(map[int]V)

	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("fallback store read failed", "key", key, "error", err)
		return result
	}
	if !ok {
		return result
	}

	var byString map[string]V
	if err := json.Unmarshal([]byte(raw), &byString); err != nil {
		s.logger.Warn("fallback store contains corrupt data, treating as empty", "key", key, "error", err)
		return result
	}

	for k, v := range byString {
		id, err := strconv.Atoi(k)
		if err != nil {
			s.logger.Warn("fallback store contains non-numeric id, skipping", "key", key, "id", k)
			continue
		}
		result[id] = v
	}
	return result
}

func writeIntMap[V any](ctx context.Context, s *Store, key string, m map[int]V) error {
	byString := make(map[string]V, len(m))
	for id, v := range m {
		byString[strconv.Itoa(id)] = v
	}

	encoded, err := json.Marshal(byString)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(encoded))
}
