// Package calculator computes per-participant bill splits with
// proportionally amortized tax and service charges.
package calculator

import (
	"fmt"
	"math"

	"splitbill/internal/models"
)

// Default rates applied when the caller does not supply one.
const (
	DefaultTaxRate     = 0.11
	DefaultServiceRate = 0.05
)

// AssignmentView is the read surface the calculator needs from the
// assignment ledger.
type AssignmentView interface {
	AssignmentsFor(itemID string) []string
}

// Share is one participant's calculated portion of a bill, keyed by
// participant id in Result. Names are resolved at the display boundary.
type Share struct {
	// BasePrice is the sum of this participant's item shares before tax
	// and service.
	BasePrice float64 `json:"base_price"`

	// FinalPrice is BasePrice scaled by the tax+service multiplier,
	// rounded to 2 decimal places.
	FinalPrice float64 `json:"final_price"`

	// Items describes each contributing share as "<name> (1/<n>)".
	Items []string `json:"items"`
}

// Result is the outcome of a split calculation.
type Result struct {
	// Shares maps participant id to that participant's share. Participants
	// with no assigned items do not appear.
	Shares map[string]*Share

	// GrandTotalEstimate is the sum of the independently rounded final
	// prices. It can differ from rounding the summed base prices by
	// accumulated rounding error; that divergence is accepted.
	GrandTotalEstimate float64
}

// CalculateSplit distributes each item's price equally among its assigned
// participants, then applies the 1+tax+service multiplier per participant.
//
// Policy, not error states:
//   - an item with no assignees is excluded entirely from the split;
//   - an assignment pointing at an unknown participant id is skipped,
//     but still counts toward the item's share divisor.
func CalculateSplit(items []models.LineItem, assignments AssignmentView, participantIDs []string, taxRate, serviceRate float64) Result {
	if taxRate < 0 {
		taxRate = DefaultTaxRate
	}
	if serviceRate < 0 {
		serviceRate = DefaultServiceRate
	}
	multiplier := 1 + taxRate + serviceRate

	known := make(map[string]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		known[id] = struct{}{}
	}

	shares := make(map[string]*Share)
	for _, item := range items {
		assigned := assignments.AssignmentsFor(item.ID)
		if len(assigned) == 0 {
			continue
		}

		perPerson := item.Price / float64(len(assigned))
		descriptor := fmt.Sprintf("%s (1/%d)", item.Name, len(assigned))

		for _, pid := range assigned {
			if _, ok := known[pid]; !ok {
				continue
			}
			share := shares[pid]
			if share == nil {
				share = &Share{}
				shares[pid] = share
			}
			share.BasePrice += perPerson
			share.Items = append(share.Items, descriptor)
		}
	}

	var grandTotal float64
	for _, share := range shares {
		share.FinalPrice = round2(share.BasePrice * multiplier)
		grandTotal += share.FinalPrice
	}

	return Result{Shares: shares, GrandTotalEstimate: grandTotal}
}

// round2 rounds to 2 decimal places using round-half-to-even, matching
// standard decimal rounding of the reference behavior.
func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
