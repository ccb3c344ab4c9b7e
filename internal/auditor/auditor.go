// Package auditor recomputes persisted pick economics from their stored
// inputs and records findings. It reports drift; it never corrects rows.
package auditor

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"covertrack/internal/domain/audit"
	"covertrack/internal/domain/pick"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

// Recomputation tolerances. Premium and pack cost are dollar amounts,
// yield is a ratio. The placeholder band matches the selection pass.
const (
	dollarTolerance      = 0.05
	yieldTolerance       = 1e-4
	placeholderTolerance = 0.01
)

// Auditor verifies one run's persisted picks.
type Auditor struct {
	picks    pick.Repository
	findings audit.Repository
	log      *logger.Logger
}

// New creates an auditor.
func New(picks pick.Repository, findings audit.Repository) *Auditor {
	return &Auditor{
		picks:    picks,
		findings: findings,
		log:      logger.Get().With("component", "auditor"),
	}
}

// Summary is the outcome of one audit pass.
type Summary struct {
	RunID   uuid.UUID
	Checked int
	Failed  int
}

// Run audits the latest run.
func (a *Auditor) Run(ctx context.Context) (*Summary, error) {
	runID, err := a.picks.LatestRunID(ctx)
	if err != nil {
		return nil, err
	}
	return a.RunFor(ctx, runID)
}

// RunFor audits one specific run: every pick's pack cost, premium and yield
// are recomputed from the stored price and mid, source tags are checked for
// presence, and the premium is checked against the underlying price to catch
// a mid that is actually a misplaced spot.
func (a *Auditor) RunFor(ctx context.Context, runID uuid.UUID) (*Summary, error) {
	picks, err := a.picks.PicksByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(picks) == 0 {
		return nil, errors.Wrapf(errors.ErrNoPicks, "run %s", runID)
	}

	summary := &Summary{RunID: runID}
	for i := range picks {
		p := &picks[i]
		checks := []audit.Finding{
			a.compare(p, audit.FieldPackCost, p.Price*100, p.Pack100Cost, dollarTolerance),
			a.compare(p, audit.FieldPremium, p.Mid*100, p.Premium100, dollarTolerance),
			a.compare(p, audit.FieldYield, (p.Mid*100)/(p.Price*100), p.PremYield, yieldTolerance),
			a.sourcesPresent(p),
			a.premiumPlausible(p),
		}
		for _, f := range checks {
			f.RunID = runID
			f.Ticker = p.Ticker
			summary.Checked++
			if !f.Passed {
				summary.Failed++
				a.log.Warnf("%s %s: expected %s, got %s", p.Ticker, f.Field, f.Expected, f.Actual)
			}
			if err := a.findings.Record(ctx, &f); err != nil {
				return nil, errors.Wrapf(err, "record finding %s/%s", p.Ticker, f.Field)
			}
		}
	}

	a.log.Infof("run %s: %d checks, %d failed", runID, summary.Checked, summary.Failed)
	return summary, nil
}

func (a *Auditor) compare(p *pick.WeeklyPick, field string, expected, actual, tolerance float64) audit.Finding {
	return audit.Finding{
		Field:    field,
		Expected: fmt.Sprintf("%.6f", expected),
		Actual:   fmt.Sprintf("%.6f", actual),
		Passed:   math.Abs(expected-actual) <= tolerance,
		Source:   p.ChainSource,
	}
}

// sourcesPresent verifies both provenance tags survived persistence.
func (a *Auditor) sourcesPresent(p *pick.WeeklyPick) audit.Finding {
	passed := p.PriceSource != "" && p.ChainSource != ""
	return audit.Finding{
		Field:    audit.FieldSources,
		Expected: "price_source and chain_source set",
		Actual:   fmt.Sprintf("price_source=%q chain_source=%q", p.PriceSource, p.ChainSource),
		Passed:   passed,
		Source:   p.ChainSource,
	}
}

// premiumPlausible flags the two placeholder signatures: a premium that
// equals the underlying price (mid = price/100, a misplaced decimal) and a
// premium that equals the stock pack cost (a spot price persisted where the
// option mid belongs).
func (a *Auditor) premiumPlausible(p *pick.WeeklyPick) audit.Finding {
	equalsPrice := math.Abs(p.Premium100-p.Price) < placeholderTolerance
	equalsPack := p.Pack100Cost > 0 && math.Abs(p.Premium100-p.Pack100Cost) <= dollarTolerance
	return audit.Finding{
		Field:    audit.FieldPlaceholder,
		Expected: "premium distinct from price and pack cost",
		Actual:   fmt.Sprintf("premium_100=%.2f price=%.2f pack_100_cost=%.2f", p.Premium100, p.Price, p.Pack100Cost),
		Passed:   !equalsPrice && !equalsPack,
		Source:   p.ChainSource,
	}
}
