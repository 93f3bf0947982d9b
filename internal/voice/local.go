package voice

import (
	"context"
	"fmt"
	"strings"
)

// LocalResponder answers from the numeric context alone, without a network
// call. It is the fallback when the remote responder is unreachable: the
// answers are templated but always correct for balance and activity
// questions, which covers most of what users ask.
type LocalResponder struct{}

// NewLocalResponder creates the rule-based fallback responder.
func NewLocalResponder() *LocalResponder {
	return &LocalResponder{}
}

// Respond matches the question against a few known intents and otherwise
// summarizes the account.
func (r *LocalResponder) Respond(_ context.Context, text string, vc Context) (string, error) {
	q := strings.ToLower(text)

	switch {
	case strings.Contains(q, "balance"):
		return fmt.Sprintf("Your current balance is ₱%s.", vc.Balance), nil

	case strings.Contains(q, "revenue") && vc.TotalRevenue != nil:
		return fmt.Sprintf("Your total revenue is ₱%s across %d transactions.",
			*vc.TotalRevenue, vc.TransactionCount), nil

	case strings.Contains(q, "last") || strings.Contains(q, "recent"):
		if len(vc.RecentTransactions) == 0 {
			return "You have no recent transactions.", nil
		}
		t := vc.RecentTransactions[0]
		direction := "to"
		if vc.Role == "merchant" {
			direction = "from"
		}
		return fmt.Sprintf("Your most recent transaction was ₱%s %s %s.",
			t.Amount, direction, t.OtherParty), nil

	case strings.Contains(q, "how many") || strings.Contains(q, "transactions"):
		return fmt.Sprintf("You have %d transactions.", vc.TransactionCount), nil
	}

	return fmt.Sprintf("Your balance is ₱%s and you have %d transactions.",
		vc.Balance, vc.TransactionCount), nil
}
