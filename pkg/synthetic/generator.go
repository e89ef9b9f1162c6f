package synthetic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/paperhub/admindata/pkg/fallback"
	"github.com/paperhub/admindata/pkg/models"
)

// Baseline collection sizes
const (
	partnerCount    = 6
	earningCount    = 12
	disputeCount    = 6
	arbitratorCount = 4
)

// baseTime anchors all synthetic timestamps so repeated generations are
// byte-identical regardless of wall clock
var baseTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

var orderTopics = []string{
	"Coursework on macroeconomic policy",
	"Thesis chapter on neural machine translation",
	"Essay on Silver Age poetry",
	"Lab report on organic synthesis",
	"Term paper on constitutional law",
	"Literature review on behavioral economics",
}

// Generator produces a deterministic baseline dataset per entity type and
// overlays fallback-store edits on top. The baseline is built once at
// construction from a seeded faker; every accessor returns a fresh copy so
// callers can never mutate the baseline in place.
type Generator struct {
	store *fallback.Store

	partners    []models.Partner
	earnings    []models.Earning
	disputes    []models.Dispute
	arbitrators []models.Arbitrator
}

// NewGenerator builds the baseline dataset from the given seed. The same
// seed always produces the same dataset.
func NewGenerator(seed int64, store *fallback.Store) *Generator {
	faker := gofakeit.New(seed)

	g := &Generator{store: store}
	g.arbitrators = buildArbitrators(faker)
	g.partners = buildPartners(faker)
	g.earnings = buildEarnings(faker, g.partners)
	g.disputes = buildDisputes(faker)

	return g
}

func buildPartners(faker *gofakeit.Faker) []models.Partner {
	partners := make([]models.Partner, 0, partnerCount)
	for i := 1; i <= partnerCount; i++ {
		total := 3 + faker.Number(0, 40)
		// Active referrals can never exceed total
		active := faker.Number(0, total)

		partners = append(partners, models.Partner{
			ID:                    i,
			Username:              faker.Username(),
			Email:                 faker.Email(),
			Name:                  faker.Name(),
			ReferralCode:          strings.ToUpper(faker.LetterN(8)),
			PartnerCommissionRate: float64(faker.Number(5, 25)),
			TotalReferrals:        total,
			ActiveReferrals:       active,
			TotalEarnings:         float64(faker.Number(1000, 90000)),
			IsVerifiedPartner:     i%2 == 1,
			DateJoined:            baseTime.AddDate(0, -i, -faker.Number(0, 20)),
		})
	}
	return partners
}

func buildEarnings(faker *gofakeit.Faker, partners []models.Partner) []models.Earning {
	types := []string{
		models.EarningTypeOrderCommission,
		models.EarningTypeRegistrationBonus,
		models.EarningTypeBonus,
	}

	earnings := make([]models.Earning, 0, earningCount)
	for i := 1; i <= earningCount; i++ {
		partner := partners[(i-1)%len(partners)]

		earnings = append(earnings, models.Earning{
			ID:           i,
			PartnerName:  partner.Name,
			ReferredUser: faker.Username(),
			Amount:       float64(faker.Number(150, 4500)),
			EarningType:  types[(i-1)%len(types)],
			// Paid flags live in the fallback store, never in the baseline
			IsPaid:    false,
			CreatedAt: baseTime.Add(-time.Duration(i*7) * time.Hour),
		})
	}
	return earnings
}

func buildDisputes(faker *gofakeit.Faker) []models.Dispute {
	reasons := []string{
		"Работа не соответствует требованиям задания",
		"Эксперт сорвал срок сдачи",
		"Высокий процент заимствований в готовой работе",
		"Клиент отказывается принимать выполненную работу",
		"Работа выполнена не по методичке",
		"Эксперт перестал выходить на связь",
	}

	disputes := make([]models.Dispute, 0, disputeCount)
	for i := 1; i <= disputeCount; i++ {
		d := models.Dispute{
			ID: i,
			Order: models.DisputeOrder{
				ID:     100 + i,
				Title:  orderTopics[(i-1)%len(orderTopics)],
				Client: faker.Username(),
				Expert: faker.Username(),
			},
			Reason:    reasons[(i-1)%len(reasons)],
			CreatedAt: baseTime.Add(-time.Duration(i*13) * time.Hour),
		}

		// The two oldest disputes are already resolved
		if i > disputeCount-2 {
			d.Resolved = true
			result := fmt.Sprintf("Спор решён в пользу клиента, заказ №%d возвращён на доработку", d.Order.ID)
			d.Result = &result
		}

		disputes = append(disputes, d)
	}
	return disputes
}

func buildArbitrators(faker *gofakeit.Faker) []models.Arbitrator {
	arbitrators := make([]models.Arbitrator, 0, arbitratorCount)
	for i := 1; i <= arbitratorCount; i++ {
		arbitrators = append(arbitrators, models.Arbitrator{
			ID:       i,
			Username: faker.Username(),
			Name:     faker.Name(),
			Email:    faker.Email(),
		})
	}
	return arbitrators
}

// Partners returns the baseline partners with persisted overrides applied.
// Overrides replace only the fields that were edited; everything else keeps
// its baseline value, so referral-count invariants are untouched.
func (g *Generator) Partners(ctx context.Context) []models.Partner {
	overrides := g.store.PartnerOverrides(ctx)

	partners := make([]models.Partner, 0, len(g.partners))
	for _, p := range g.partners {
		if patch, ok := overrides[p.ID]; ok {
			p = patch.ApplyTo(p)
		}
		partners = append(partners, p)
	}
	return partners
}

// Earnings returns the baseline earnings with paid flags computed from the
// fallback store, newest first
func (g *Generator) Earnings(ctx context.Context) []models.Earning {
	paid := g.store.PaidEarnings(ctx)

	earnings := make([]models.Earning, 0, len(g.earnings))
	for _, e := range g.earnings {
		e.IsPaid = paid[e.ID]
		earnings = append(earnings, e)
	}

	sortNewestFirst(earnings, func(e models.Earning) (time.Time, int) { return e.CreatedAt, e.ID })
	return earnings
}

// Disputes returns the baseline disputes with persisted arbitrator
// assignments applied, newest first. Assignments to already-resolved
// disputes are kept in the store but have no observable effect here.
func (g *Generator) Disputes(ctx context.Context) []models.Dispute {
	assignments := g.store.ArbitratorAssignments(ctx)

	disputes := make([]models.Dispute, 0, len(g.disputes))
	for _, d := range g.disputes {
		d.Result = clonePtr(d.Result)
		d.Arbitrator = clonePtr(d.Arbitrator)

		if arbitratorID, ok := assignments[d.ID]; ok && !d.Resolved {
			if arb := g.arbitratorByID(arbitratorID); arb != nil {
				d.Arbitrator = arb
			}
		}
		disputes = append(disputes, d)
	}

	sortNewestFirst(disputes, func(d models.Dispute) (time.Time, int) { return d.CreatedAt, d.ID })
	return disputes
}

// Arbitrators returns a copy of the arbitrator roster
func (g *Generator) Arbitrators(ctx context.Context) []models.Arbitrator {
	return append([]models.Arbitrator(nil), g.arbitrators...)
}

func (g *Generator) arbitratorByID(id int) *models.Arbitrator {
	for _, a := range g.arbitrators {
		if a.ID == id {
			arb := a
			return &arb
		}
	}
	return nil
}

// sortNewestFirst orders by creation time descending with id ascending as a
// deterministic tie-break
func sortNewestFirst[T any](items []T, key func(T) (time.Time, int)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi < idj
	})
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
