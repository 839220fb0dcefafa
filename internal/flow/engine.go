// Package flow implements the guided transaction-entry dialogue: a state
// machine that collects amount, description, payment method, card,
// installments and category over several chat messages, lets the user correct
// any field, and commits the entry through the registration collaborator.
//
// The engine holds no goroutines. Callers serialize messages per
// conversation; different conversations may be processed concurrently.
package flow

import (
	"context"
	"fmt"
	"time"

	"fjacquet/finchat/internal/categorizer"
	"fjacquet/finchat/internal/intent"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/session"

	"github.com/shopspring/decimal"
)

// Options tunes the engine. Zero values fall back to the defaults.
type Options struct {
	MaxInstallments      int
	DescriptionMaxLength int
	// RejectOverlapping makes StartFlow refuse to replace a flow in progress.
	RejectOverlapping bool
}

// Dependencies are the collaborators of the engine. Sessions, Cards,
// Categories and Registrar are required; the rest are optional.
type Dependencies struct {
	Sessions   session.Store
	Cards      CardDirectory
	Categories CategoryDirectory
	Registrar  EntryRegistrar
	// History feeds the default suggester when Suggester is nil.
	History   HistoryLookup
	Suggester CategorySuggester
	Anomaly   AnomalyChecker
	Budget    BudgetChecker
	Tags      TagStore
	Keyboard  Keyboard
	Expiry    ExpiryListener
	Clock     func() time.Time
	Logger    logging.Logger
}

// Engine drives pending flows.
type Engine struct {
	sessions   session.Store
	cards      CardDirectory
	categories CategoryDirectory
	registrar  EntryRegistrar
	suggester  CategorySuggester
	anomaly    AnomalyChecker
	budget     BudgetChecker
	tags       TagStore
	keyboard   Keyboard
	expiry     ExpiryListener
	now        func() time.Time
	logger     logging.Logger
	opts       Options
}

// NewEngine validates the dependencies and builds an Engine.
func NewEngine(deps Dependencies, opts Options) (*Engine, error) {
	switch {
	case deps.Sessions == nil:
		return nil, fmt.Errorf("flow engine: session store is required")
	case deps.Cards == nil:
		return nil, fmt.Errorf("flow engine: card directory is required")
	case deps.Categories == nil:
		return nil, fmt.Errorf("flow engine: category directory is required")
	case deps.Registrar == nil:
		return nil, fmt.Errorf("flow engine: entry registrar is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.MaxInstallments <= 0 {
		opts.MaxInstallments = intent.DefaultMaxInstallments
	}
	if opts.DescriptionMaxLength <= 0 {
		opts.DescriptionMaxLength = models.DefaultDescriptionMaxLength
	}

	suggester := deps.Suggester
	if suggester == nil {
		var history categorizer.HistorySource
		if deps.History != nil {
			history = deps.History
		}
		suggester = categorizer.NewSuggester(history, nil, logger)
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &Engine{
		sessions:   deps.Sessions,
		cards:      deps.Cards,
		categories: deps.Categories,
		registrar:  deps.Registrar,
		suggester:  suggester,
		anomaly:    deps.Anomaly,
		budget:     deps.Budget,
		tags:       deps.Tags,
		keyboard:   deps.Keyboard,
		expiry:     deps.Expiry,
		now:        now,
		logger:     logger,
		opts:       opts,
	}, nil
}

// step is the outcome of a handler.
type step struct {
	reply   string
	options []string
	// rollback keeps the flow as it was before the message
	rollback bool
	// done removes the flow
	done bool
}

func reply(text string, options ...string) step {
	return step{reply: text, options: options}
}

func retry(text string, options ...string) step {
	return step{reply: text, options: options, rollback: true}
}

func finish(text string) step {
	return step{reply: text, done: true}
}

// StartFlow opens a flow for the conversation from a draft extracted by the
// NLU and returns the first prompt. A non-positive amount opens nothing.
func (e *Engine) StartFlow(ctx context.Context, conversationID, userID string, draft models.TransactionDraft, origin string) string {
	now := e.now()
	e.sweep(ctx, now)
	log := e.logger.WithFields(logging.Conversation(conversationID, userID)...)

	if !draft.Amount.GreaterThan(decimal.Zero) {
		log.Debug("Rejected draft without a positive amount")
		e.offer(conversationID, nil)
		return msgInvalidAmount
	}

	if e.sessions.Has(conversationID) {
		if e.opts.RejectOverlapping {
			log.Info("Refused to replace the flow in progress")
			return msgFlowInProgress
		}
		log.Info("Replacing the flow in progress")
	}

	if origin == "" {
		origin = models.OriginChat
	}
	f := models.PendingFlow{
		ConversationID: conversationID,
		UserID:         userID,
		Origin:         origin,
		Draft:          e.normalizeDraft(draft),
		StartedAt:      now,
		LastTouched:    now,
	}

	st := e.begin(ctx, &f)
	if st.rollback || st.done {
		// nothing to roll back to: the previous flow, if any, is gone too
		e.sessions.Remove(conversationID)
		e.offer(conversationID, st.options)
		log.Info("Flow not started", logging.F(logging.FieldOrigin, origin))
		return st.reply
	}

	enforceDraftInvariant(&f.Draft)
	f.LastTouched = now
	e.sessions.Set(f)
	e.offer(conversationID, st.options)
	log.Info("Flow started",
		logging.F(logging.FieldOrigin, origin),
		logging.F(logging.FieldNextState, string(f.State)))
	return st.reply
}

// ProcessPendingStep feeds a message to the conversation's pending flow. It
// returns false when there is no flow, in which case the message is a fresh
// request.
func (e *Engine) ProcessPendingStep(ctx context.Context, conversationID, userID, message string) (string, bool) {
	now := e.now()
	e.sweep(ctx, now)

	f, ok := e.sessions.Get(conversationID)
	if !ok {
		return "", false
	}
	log := e.logger.WithFields(logging.Conversation(conversationID, f.UserID)...)
	if userID != "" && userID != f.UserID {
		log.Debug("Message from another participant of the conversation", logging.F("sender_id", userID))
	}

	if intent.IsCancel(message) {
		e.sessions.Remove(conversationID)
		e.offer(conversationID, nil)
		log.Info("Flow cancelled", logging.F(logging.FieldState, string(f.State)))
		return msgCancelled, true
	}

	before := f.Clone()
	st := e.dispatch(ctx, &f, message)

	switch {
	case st.done:
		e.sessions.Remove(conversationID)
	case st.rollback:
		before.LastTouched = now
		e.sessions.Set(before)
	default:
		enforceDraftInvariant(&f.Draft)
		f.LastTouched = now
		e.sessions.Set(f)
	}
	e.offer(conversationID, st.options)

	next := string(f.State)
	if st.rollback {
		next = string(before.State)
	}
	log.Debug("Flow step processed",
		logging.F(logging.FieldState, string(before.State)),
		logging.F(logging.FieldNextState, next),
		logging.F(logging.FieldCorrecting, string(f.Correcting)),
		logging.F(logging.FieldStatus, stepStatus(st)))
	return st.reply, true
}

// Has reports whether the conversation has a pending flow.
func (e *Engine) Has(conversationID string) bool {
	return e.sessions.Has(conversationID)
}

// Pending returns a copy of the conversation's pending flow.
func (e *Engine) Pending(conversationID string) (models.PendingFlow, bool) {
	return e.sessions.Get(conversationID)
}

// Cancel discards the conversation's pending flow.
func (e *Engine) Cancel(conversationID string) bool {
	removed := e.sessions.Remove(conversationID)
	if removed {
		e.offer(conversationID, nil)
		e.logger.Info("Flow cancelled", logging.F(logging.FieldConversationID, conversationID))
	}
	return removed
}

func (e *Engine) dispatch(ctx context.Context, f *models.PendingFlow, message string) step {
	switch f.State {
	case models.StateAwaitingDescription:
		return e.handleDescription(ctx, f, message)
	case models.StateAwaitingPaymentMethod:
		return e.handlePaymentMethod(ctx, f, message)
	case models.StateAwaitingCard:
		return e.handleCard(ctx, f, message)
	case models.StateAwaitingInstallments:
		return e.handleInstallments(ctx, f, message)
	case models.StateAwaitingCategory:
		return e.handleCategory(ctx, f, message)
	case models.StateAwaitingConfirmation:
		return e.handleConfirmation(ctx, f, message)
	case models.StateAwaitingCorrection:
		return e.handleCorrection(ctx, f, message)
	case models.StateAwaitingNewValue, models.StateAwaitingNewDate, models.StateAwaitingNewDescription:
		return e.handleNewValue(ctx, f, message)
	default:
		e.logger.Warn("Flow in unknown state discarded",
			logging.F(logging.FieldConversationID, f.ConversationID),
			logging.F(logging.FieldState, string(f.State)))
		return finish(msgLostTrack)
	}
}

func (e *Engine) sweep(ctx context.Context, now time.Time) {
	expired := e.sessions.Sweep(now)
	if len(expired) == 0 {
		return
	}
	e.logger.Info("Expired idle flows", logging.F(logging.FieldCount, len(expired)))
	for _, id := range expired {
		e.offer(id, nil)
	}
	if e.expiry != nil {
		e.expiry.FlowsExpired(ctx, expired)
	}
}

func (e *Engine) offer(conversationID string, options []string) {
	if e.keyboard != nil {
		e.keyboard.Offer(conversationID, options)
	}
}

func (e *Engine) normalizeDraft(d models.TransactionDraft) models.TransactionDraft {
	d = d.Clone()
	d.Amount = d.Amount.Round(2)
	d.SetDescription(d.Description, e.opts.DescriptionMaxLength)
	if d.Kind == "" {
		d.Kind = models.KindExpense
	}
	if d.IsIncome() {
		d.SetPaymentMethod(models.PaymentPix)
	}
	if d.PaymentMethod == models.PaymentUnset && d.Installments > 1 {
		d.PaymentMethod = models.PaymentCredit
	}
	if d.Installments > e.opts.MaxInstallments {
		d.Installments = e.opts.MaxInstallments
	}
	enforceDraftInvariant(&d)
	return d
}

// enforceDraftInvariant keeps cards and installments on credit drafts only.
func enforceDraftInvariant(d *models.TransactionDraft) {
	if d.IsIncome() {
		d.PaymentMethod = models.PaymentPix
	}
	if d.PaymentMethod != models.PaymentCredit {
		d.CardID = ""
		d.Installments = 1
	}
}

func stepStatus(st step) string {
	switch {
	case st.done:
		return "finished"
	case st.rollback:
		return "retry"
	default:
		return "advanced"
	}
}
