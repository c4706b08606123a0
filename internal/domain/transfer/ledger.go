// Package transfer implements the per-manager ledger state machine:
// NoTeam -> Committed -> (DraftPending -> Committed)*.
//
// Preview and Commit share one code path so the numbers a manager sees while
// drafting are the numbers charged on commit.
package transfer

import (
	"sort"
	"time"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/shopspring/decimal"
)

// Plan is the full consequence of committing a draft over a ledger.
type Plan struct {
	ManagerID   string `json:"manager_id"`
	FirstCommit bool   `json:"first_commit"`
	WindowOpen  bool   `json:"window_open"`
	Wildcard    bool   `json:"wildcard"`

	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Transfers int      `json:"transfers"`
	Charged   int      `json:"charged"` // transfers counted against the balance
	FreeUsed  int      `json:"free_used"`
	Penalized int      `json:"penalized"`

	PenaltyPoints      int `json:"penalty_points"`
	FreeTransfersAfter int `json:"free_transfers_after"`
	DeductionAfter     int `json:"deduction_after"`

	BankBefore decimal.Decimal `json:"bank_before"`
	BankAfter  decimal.Decimal `json:"bank_after"`

	Report roster.Report `json:"report"`
}

// OK reports whether the plan may be committed.
func (p Plan) OK() bool { return p.Report.Valid }

// Book computes plans and applies them.
type Book struct {
	rules     Rules
	validator *roster.Validator
}

// NewBook validates rules and returns a Book.
func NewBook(rules Rules, validator *roster.Validator) (*Book, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Book{rules: rules, validator: validator}, nil
}

// Rules returns the active rules.
func (b *Book) Rules() Rules { return b.rules }

// Diff returns ids added to and removed from baseline, sorted.
func Diff(baseline, draft []string) (added, removed []string) {
	base := toSet(baseline)
	next := toSet(draft)
	for id := range next {
		if _, ok := base[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range base {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// CountTransfers is ceil(|symmetric difference| / 2): one out and one in is a
// single transfer regardless of position.
func CountTransfers(baseline, draft []string) int {
	added, removed := Diff(baseline, draft)
	return (len(added) + len(removed) + 1) / 2
}

// Preview computes what committing draft over l would do. It never mutates l.
func (b *Book) Preview(l model.TeamLedger, draft model.RosterDraft, ctx roster.Context) Plan {
	p := Plan{
		ManagerID:   draft.ManagerID,
		FirstCommit: !l.Exists(),
		WindowOpen:  ctx.Settings.WindowOpen(ctx.Now),
		Wildcard:    l.WildcardPending,
	}
	ctx.Baseline = l
	p.Report = b.validator.Validate(draft, ctx)

	if p.FirstCommit {
		p.Added, _ = Diff(nil, draft.AthleteIDs)
		p.FreeTransfersAfter = b.rules.InitialFreeTransfers
		p.BankBefore = b.rules.Budget
		p.BankAfter = b.rules.Budget.Sub(p.Report.Summary.Cost)
	} else {
		p.Added, p.Removed = Diff(l.Roster, draft.AthleteIDs)
		p.Transfers = (len(p.Added) + len(p.Removed) + 1) / 2
		p.BankBefore = l.Bank
		p.BankAfter = l.Bank.Sub(b.value(p.Added, l, ctx.Catalog)).Add(b.value(p.Removed, l, ctx.Catalog))
		p.FreeTransfersAfter = l.FreeTransfers

		// transfers made while the window is open, or under a wildcard, are free
		if !p.WindowOpen && !p.Wildcard {
			p.Charged = p.Transfers
			p.FreeUsed = min(p.Charged, max(l.FreeTransfers, 0))
			p.Penalized = p.Charged - p.FreeUsed
			p.PenaltyPoints = p.Penalized * b.rules.PenaltyPoints
			p.FreeTransfersAfter = max(l.FreeTransfers, 0) - p.FreeUsed
		}
	}
	p.DeductionAfter = l.PendingDeduction + p.PenaltyPoints

	if p.BankAfter.IsNegative() {
		p.Report.Add(roster.CodeNegativeBank, "commit leaves the bank at %s", p.BankAfter.StringFixed(1))
	}
	if l.WildcardPending && l.TripleCaptainPending {
		p.Report.Add(roster.CodeChipConflict, "wildcard and triple captain are both pending")
	}
	return p
}

// Commit previews draft and, when the plan is OK, returns the updated ledger.
// On a failed plan the original ledger is returned unchanged.
func (b *Book) Commit(l model.TeamLedger, draft model.RosterDraft, ctx roster.Context) (model.TeamLedger, Plan) {
	p := b.Preview(l, draft, ctx)
	if !p.OK() {
		return l, p
	}
	return b.apply(l, draft, p, ctx.Catalog, ctx.Now), p
}

func (b *Book) apply(l model.TeamLedger, draft model.RosterDraft, p Plan, catalog model.Catalog, now time.Time) model.TeamLedger {
	out := l.Clone()
	if p.FirstCommit {
		out = model.TeamLedger{
			ManagerID:    draft.ManagerID,
			CreatedAt:    now,
			BucketPoints: map[string]int{},
		}
	}
	out.Roster = append([]string(nil), draft.AthleteIDs...)
	out.CaptainID = draft.CaptainID
	out.Bank = p.BankAfter
	out.FreeTransfers = p.FreeTransfersAfter
	out.PendingDeduction = p.DeductionAfter
	out.TransfersThisPeriod += p.Charged

	if out.PurchasePrices == nil {
		out.PurchasePrices = map[string]decimal.Decimal{}
	}
	for _, id := range p.Removed {
		delete(out.PurchasePrices, id)
	}
	for _, id := range p.Added {
		out.PurchasePrices[id] = catalog[id].Price
	}
	out.UpdatedAt = now
	return out
}

// value sums current prices, falling back to the purchase price for an
// athlete that has left the catalog.
func (b *Book) value(ids []string, l model.TeamLedger, catalog model.Catalog) decimal.Decimal {
	sum := decimal.Zero
	for _, id := range ids {
		if a, ok := catalog[id]; ok {
			sum = sum.Add(a.Price)
			continue
		}
		sum = sum.Add(l.PurchasePrices[id])
	}
	return sum
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
