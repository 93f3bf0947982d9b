package server

import (
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg" // register decoders for uploaded QR images
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gkash-app/gkash/internal/invoice"
	"github.com/gkash-app/gkash/internal/metrics"
	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
	"github.com/gkash-app/gkash/internal/qr"
	"github.com/gkash-app/gkash/internal/voice"
)

const qrImageSize = 256

type loginRequest struct {
	AccountID int64  `json:"accountId"`
	PIN       string `json:"pin"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login payload")
		return
	}

	account, err := s.auth.Authenticate(c.Request.Context(), req.AccountID, req.PIN)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "unauthenticated"})
		return
	}

	token, err := s.jwt.Generate(account)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "account": account})
}

func (s *Server) handleListAccounts(c *gin.Context) {
	ctx := c.Request.Context()

	if role := c.Query("role"); role != "" {
		account, err := s.directory.FindByRole(ctx, models.Role(role))
		if err != nil {
			writeLedgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, []*models.Account{account})
		return
	}

	accounts, err := s.directory.List(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid account id")
		return
	}

	account, err := s.directory.FindByID(c.Request.Context(), id)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("accountId"), 10, 64)
	if err != nil {
		badRequest(c, "accountId is required")
		return
	}
	role := models.Role(c.Query("role"))
	if !role.Valid() {
		badRequest(c, "role must be payer or merchant")
		return
	}

	txns, err := s.ledger.History(c.Request.Context(), accountID, role)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	c.JSON(http.StatusOK, txns)
}

type transferRequest struct {
	PayerID    int64        `json:"payerId"`
	MerchantID int64        `json:"merchantId"`
	Amount     money.Amount `json:"amount"`
	InvoiceID  string       `json:"invoiceId"`
}

func (s *Server) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid transfer payload")
		return
	}

	claims := sessionClaims(c)
	if claims == nil || claims.AccountID != req.PayerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "session does not match payer account", "kind": "forbidden"})
		return
	}

	start := time.Now()
	txn, err := s.ledger.Transfer(c.Request.Context(), req.PayerID, req.MerchantID, req.Amount, req.InvoiceID)
	s.metrics.TransferDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TransfersTotal.WithLabelValues(transferOutcome(err)).Inc()
		writeLedgerError(c, err)
		return
	}

	s.metrics.TransfersTotal.WithLabelValues(metrics.OutcomeCommitted).Inc()
	c.JSON(http.StatusOK, txn)
}

type depositRequest struct {
	AccountID int64        `json:"accountId"`
	Amount    money.Amount `json:"amount"`
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid deposit payload")
		return
	}

	claims := sessionClaims(c)
	if claims == nil || claims.AccountID != req.AccountID {
		c.JSON(http.StatusForbidden, gin.H{"error": "session does not match account", "kind": "forbidden"})
		return
	}

	account, err := s.ledger.Deposit(c.Request.Context(), req.AccountID, req.Amount)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	s.metrics.DepositsTotal.Inc()
	c.JSON(http.StatusOK, account)
}

type createInvoiceRequest struct {
	Amount money.Amount `json:"amount"`
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid invoice payload")
		return
	}
	if req.Amount <= 0 {
		badRequest(c, models.ErrInvalidAmount.Error())
		return
	}

	claims := sessionClaims(c)
	if claims == nil || claims.Role != string(models.RoleMerchant) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only merchants issue invoices", "kind": "forbidden"})
		return
	}

	inv := invoice.New(claims.AccountID, req.Amount)
	payload, err := invoice.Encode(inv)
	if err != nil {
		internalError(c, err)
		return
	}
	png, err := qr.Render(payload, qrImageSize)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"merchantId": inv.MerchantID,
		"amount":     inv.Amount,
		"timestamp":  inv.Timestamp.Format(time.RFC3339),
		"invoiceId":  inv.Nonce,
		"payload":    string(payload),
		"qr":         base64.StdEncoding.EncodeToString(png),
	})
}

// handleScan is the still-image scanning path: locate a QR code in an
// uploaded image and decode its payload into an invoice.
func (s *Server) handleScan(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		badRequest(c, "unreadable image")
		return
	}

	payload, err := qr.DecodeImage(img)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": qr.ErrNotFound.Error(), "kind": "not_found"})
		return
	}

	inv, err := invoice.Decode(payload)
	if err != nil {
		var decodeErr *invoice.DecodeError
		if errors.As(err, &decodeErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": string(decodeErr.Kind)})
			return
		}
		badRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"merchantId": inv.MerchantID,
		"amount":     inv.Amount,
		"timestamp":  inv.Timestamp.Format(time.RFC3339),
		"invoiceId":  inv.Nonce,
	})
}

func (s *Server) handleVoiceContext(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("accountId"), 10, 64)
	if err != nil {
		badRequest(c, "accountId is required")
		return
	}

	ctx := c.Request.Context()
	account, err := s.directory.FindByID(ctx, accountID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	txns, err := s.ledger.History(ctx, account.ID, account.Role)
	if err != nil {
		writeLedgerError(c, err)
		return
	}

	accounts, err := s.directory.List(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	c.JSON(http.StatusOK, buildVoiceContext(account, txns, names))
}

// buildVoiceContext summarizes an account for the assistant: balance,
// activity counts, revenue for merchants, and the five most recent
// transactions with the counterparty named.
func buildVoiceContext(account *models.Account, txns []*models.Transaction, names map[int64]string) voice.Context {
	vc := voice.Context{
		AccountID:          account.ID,
		Role:               account.Role,
		Balance:            account.Balance,
		TransactionCount:   len(txns),
		RecentTransactions: []voice.ContextTransaction{},
	}

	if account.Role == models.RoleMerchant {
		var revenue money.Amount
		for _, t := range txns {
			revenue += t.Amount
		}
		vc.TotalRevenue = &revenue
	}

	for i, t := range txns {
		if i == 5 {
			break
		}
		other := t.MerchantID
		if account.Role == models.RoleMerchant {
			other = t.PayerID
		}
		otherParty := names[other]
		if otherParty == "" {
			otherParty = strconv.FormatInt(other, 10)
		}
		vc.RecentTransactions = append(vc.RecentTransactions, voice.ContextTransaction{
			ID:         t.ID,
			Amount:     t.Amount,
			Timestamp:  t.Timestamp.Format(time.RFC3339),
			OtherParty: otherParty,
		})
	}
	return vc
}

func (s *Server) handleTranscribe(c *gin.Context) {
	file, _, err := c.Request.FormFile("audio")
	if err != nil {
		badRequest(c, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "unreadable audio")
		return
	}

	text, err := s.assistant.Transcriber.Transcribe(c.Request.Context(), audio)
	if err != nil {
		slog.Warn("Transcription failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed", "kind": "transient"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type chatRequest struct {
	Text    string        `json:"text"`
	Context voice.Context `json:"context"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		badRequest(c, "missing text or context")
		return
	}

	reply, err := s.assistant.Answer(c.Request.Context(), req.Text, req.Context)
	if err != nil {
		slog.Warn("Chat failed with no usable fallback", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable", "kind": "transient"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		badRequest(c, "missing text")
		return
	}

	audio, err := s.assistant.Synthesizer.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		// Local fallback: hand the text back so the device synthesizes it.
		slog.Warn("Remote synthesis failed, deferring to device", "error", err)
		c.JSON(http.StatusOK, gin.H{"audio": "", "text": req.Text, "synthesized": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"audio":       base64.StdEncoding.EncodeToString(audio),
		"text":        req.Text,
		"synthesized": true,
	})
}

func transferOutcome(err error) string {
	if errors.Is(err, models.ErrInsufficientBalance) {
		return metrics.OutcomeInsufficient
	}
	return metrics.OutcomeRejected
}

// writeLedgerError maps the ledger error taxonomy onto HTTP statuses:
// validation 400, unknown account 404, insufficient balance and invoice
// mismatch 409, anything else 500.
func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrRoleMismatch),
		errors.Is(err, models.ErrSameAccount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
	case errors.Is(err, models.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "not_found"})
	case errors.Is(err, models.ErrInsufficientBalance):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "insufficient_balance"})
	case errors.Is(err, models.ErrInvoiceMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "invoice_mismatch"})
	default:
		internalError(c, err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": "validation"})
}

func internalError(c *gin.Context, err error) {
	slog.Error("Unexpected handler error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": "internal"})
}
