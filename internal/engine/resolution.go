package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/drewwilen/BetThat/internal/model"
	"github.com/drewwilen/BetThat/internal/pricing"
)

// Resolve settles an outcome-group: every long position on the winning side
// is credited quantity * par value; losing positions receive nothing — their
// cost basis was already spent at trade time. The group is marked resolved
// with the resolver's identity and timestamp and becomes immutable.
//
// Resolving the same outcome-group twice fails with ErrAlreadyResolved and
// performs no second payout.
func (e *Engine) Resolve(ctx context.Context, marketID, outcome string, winner model.Side, resolvedBy string) ([]model.Payout, error) {
	if !winner.Valid() {
		return nil, ErrInvalidSide
	}

	g := e.group(marketID, outcome)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.halted {
		return nil, ErrOutcomeHalted
	}
	if g.resolved {
		return nil, ErrAlreadyResolved
	}

	positions := e.positions.ForOutcome(marketID, outcome)
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].AccountID < positions[j].AccountID
	})

	payouts := []model.Payout{}
	for _, p := range positions {
		if p.Side != winner || p.Quantity <= 0 {
			continue
		}

		amount := pricing.ParValue.Mul(decimal.NewFromInt(p.Quantity))
		if _, err := e.ledger.Apply(ctx, p.AccountID, amount); err != nil {
			// Group stays unresolved; the operator reconciles already-paid
			// credits against the returned payouts before retrying.
			return payouts, fmt.Errorf("payout to %s: %w", p.AccountID, err)
		}
		payouts = append(payouts, model.Payout{AccountID: p.AccountID, Amount: amount})
	}

	res := &model.Resolution{
		MarketID:   marketID,
		Outcome:    outcome,
		Winner:     winner,
		ResolvedBy: resolvedBy,
		ResolvedAt: time.Now().UTC(),
	}
	g.resolved = true
	g.resolution = res

	if err := e.store.InsertResolution(ctx, res); err != nil {
		slog.Warn("resolution audit insert failed",
			"market", marketID, "outcome", outcome, "err", err)
	}

	slog.Info("outcome resolved",
		"market", marketID,
		"outcome", outcome,
		"winner", winner,
		"resolved_by", resolvedBy,
		"payouts", len(payouts),
	)

	if e.notifier != nil {
		e.notifier.OutcomeResolved(marketID, outcome, winner)
	}
	return payouts, nil
}

// Resolution returns the recorded resolution for an outcome-group, or false
// if it is still active.
func (e *Engine) Resolution(marketID, outcome string) (model.Resolution, bool) {
	g := e.group(marketID, outcome)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolution == nil {
		return model.Resolution{}, false
	}
	return *g.resolution, true
}
