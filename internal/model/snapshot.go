package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot kinds. Manual snapshots are user-triggered; monthly and yearly
// snapshots are taken by the scheduler for timeline continuity.
const (
	SnapshotManual  = "manual"
	SnapshotMonthly = "monthly"
	SnapshotYearly  = "yearly"
)

// PortfolioSnapshot is an immutable point-in-time capture of a portfolio
// valuation, used only for historical reporting. Snapshots are append-only:
// a later "correction" is a new snapshot with a later TakenAt, never an edit.
// An empty portfolio still produces a valid zero-valued snapshot, because the
// timeline must record "nothing invested yet" states too.
type PortfolioSnapshot struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	TakenAt        time.Time          `json:"takenAt"`
	Kind           string             `json:"kind"`
	TotalValue     decimal.Decimal    `json:"totalValue"`
	TotalInvested  decimal.Decimal    `json:"totalInvested"`
	TotalReturn    decimal.Decimal    `json:"totalReturn"`
	TotalReturnPct float64            `json:"totalReturnPct"`
	Holdings       []HoldingValuation `json:"holdings"`
}
