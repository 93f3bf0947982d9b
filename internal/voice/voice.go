// Package voice provides the assistant's speech capabilities behind small
// interfaces: transcription (audio -> text), conversational response
// (text + numeric context -> text), and speech synthesis (text -> audio).
//
// Each capability has a remote implementation talking to a cloud endpoint
// and, where one makes sense, a local fallback selected at the call site
// when the remote fails. The ledger never depends on this package.
package voice

import (
	"context"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Responder answers a user question given the account's numeric context.
type Responder interface {
	Respond(ctx context.Context, text string, vc Context) (string, error)
}

// Synthesizer converts text into spoken audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ContextTransaction is one recent transaction summarized for the assistant.
type ContextTransaction struct {
	ID         int64        `json:"id"`
	Amount     money.Amount `json:"amount"`
	Timestamp  string       `json:"timestamp"`
	OtherParty string       `json:"otherParty"`
}

// Context is the numeric context handed to the responder: who is asking,
// their balance, and a short window of recent activity.
type Context struct {
	AccountID          int64                `json:"accountId"`
	Role               models.Role          `json:"role"`
	Balance            money.Amount         `json:"balance"`
	TransactionCount   int                  `json:"transactionCount"`
	TotalRevenue       *money.Amount        `json:"totalRevenue,omitempty"`
	RecentTransactions []ContextTransaction `json:"recentTransactions"`
}

// Assistant bundles the capabilities with their fallbacks.
type Assistant struct {
	Transcriber Transcriber
	Responder   Responder
	// FallbackResponder answers locally when the remote responder fails.
	FallbackResponder Responder
	Synthesizer       Synthesizer
}

// Answer runs the responder, falling back to the local one on remote failure.
func (a *Assistant) Answer(ctx context.Context, text string, vc Context) (string, error) {
	reply, err := a.Responder.Respond(ctx, text, vc)
	if err == nil {
		return reply, nil
	}
	if a.FallbackResponder == nil {
		return "", err
	}
	return a.FallbackResponder.Respond(ctx, text, vc)
}
