package flow

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/finchat/internal/currencyutils"
	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"

	"github.com/shopspring/decimal"
)

// RegisterEntry finalizes a draft and hands it to the registrar. It is the
// commit step of a confirmed flow and may also be called directly.
//
// The card is the override, else the draft's pinned card, else the user's
// first card. A category missing or of the wrong class falls back to the
// neutral default. Tags, budget and anomaly checks are best effort: their
// alerts are appended to the returned text and their failures only logged.
func (e *Engine) RegisterEntry(ctx context.Context, userID string, draft models.TransactionDraft, origin, cardOverride string) (string, error) {
	d := draft.Clone()
	if !d.Amount.GreaterThan(decimal.Zero) {
		return "", flowerror.NewInputError("amount", d.Amount.String(), flowerror.ErrOutOfRange)
	}
	if d.Kind == "" {
		d.Kind = models.KindExpense
	}
	if d.PaymentMethod == models.PaymentUnset && !d.IsIncome() {
		return "", flowerror.NewInputError("payment_method", "", flowerror.ErrEmptyInput)
	}
	enforceDraftInvariant(&d)
	if origin == "" {
		origin = models.OriginChat
	}
	log := e.logger.WithFields(logging.F(logging.FieldUserID, userID), logging.F(logging.FieldOrigin, origin))

	cardID := ""
	if d.PaymentMethod == models.PaymentCredit {
		var err error
		if cardID, err = e.resolveCardID(ctx, userID, cardOverride, d.CardID); err != nil {
			return "", err
		}
		if d.Installments < 1 {
			d.Installments = 1
		}
	}

	category, err := e.entryCategory(ctx, userID, d)
	if err != nil {
		return "", err
	}

	valueDate := e.now()
	if d.ValueDate != nil {
		valueDate = *d.ValueDate
	}

	entry := models.Entry{
		UserID:        userID,
		Amount:        d.Amount.Round(2),
		Description:   d.Description,
		CategoryID:    category.ID,
		CategoryName:  category.Name,
		PaymentMethod: d.PaymentMethod,
		CardID:        cardID,
		Installments:  d.Installments,
		Kind:          d.Kind,
		ValueDate:     valueDate.UTC(),
		Origin:        origin,
	}

	persisted, err := e.registrar.Register(ctx, userID, entry)
	if err != nil {
		return "", flowerror.Collaborator("entries", "register", err)
	}
	if persisted.Category.ID == "" {
		persisted.Category = category
	}
	log.Info("Entry registered",
		logging.F(logging.FieldEntryID, persisted.ID),
		logging.F(logging.FieldCategory, persisted.Category.Name))

	var b strings.Builder
	b.WriteString(registered(persisted))

	if tags := textutils.ExtractTags(entry.Description); len(tags) > 0 && e.tags != nil {
		if err := e.tags.SaveTags(ctx, persisted.ID, userID, tags); err != nil {
			log.WithError(flowerror.Collaborator("tags", "save", err)).Warn("Could not save tags",
				logging.F(logging.FieldEntryID, persisted.ID))
		}
	}

	if entry.Kind == models.KindExpense && e.budget != nil {
		alert, err := e.budget.CheckLimit(ctx, userID, persisted.Category.ID, entry.Amount)
		if err != nil {
			log.WithError(flowerror.Collaborator("budget", "check_limit", err)).Warn("Budget check failed")
		} else if alert != "" {
			b.WriteString("\n\n")
			b.WriteString(alert)
		}
	}

	if e.anomaly != nil {
		alert, err := e.anomaly.CheckAnomaly(ctx, userID, persisted.Category.ID, entry.Amount)
		if err != nil {
			log.WithError(flowerror.Collaborator("anomaly", "check", err)).Warn("Anomaly check failed")
		} else if alert != "" {
			b.WriteString("\n\n")
			b.WriteString(alert)
		}
	}

	return b.String(), nil
}

func (e *Engine) resolveCardID(ctx context.Context, userID, override, pinned string) (string, error) {
	if override != "" {
		return override, nil
	}
	if pinned != "" {
		return pinned, nil
	}
	cards, err := e.cards.ListCards(ctx, userID)
	if err != nil {
		return "", flowerror.Collaborator("cards", "list", err)
	}
	if len(cards) == 0 {
		return "", &flowerror.MissingPrerequisiteError{What: "credit card", Guidance: msgNoCardGuidance}
	}
	return cards[0].ID, nil
}

// entryCategory returns the draft's category when it fits the draft's class,
// or the neutral default, created on demand.
func (e *Engine) entryCategory(ctx context.Context, userID string, d models.TransactionDraft) (models.Category, error) {
	if c := d.Category; c != nil && c.MatchesKind(d.Kind) {
		if c.ID != "" {
			return *c, nil
		}
		found, ok, err := e.categories.FindByName(ctx, userID, c.Name)
		if err != nil {
			return models.Category{}, flowerror.Collaborator("categories", "find", err)
		}
		if ok && found.MatchesKind(d.Kind) {
			return found, nil
		}
	}

	if d.Category != nil {
		e.logger.Warn("Category does not fit the entry, using the default",
			logging.F(logging.FieldUserID, userID),
			logging.F(logging.FieldCategory, d.Category.Name))
	}

	found, ok, err := e.categories.FindByName(ctx, userID, models.CategoryDefault)
	if err != nil {
		return models.Category{}, flowerror.Collaborator("categories", "find", err)
	}
	if ok {
		return found, nil
	}
	created, err := e.categories.Create(ctx, userID, models.CategoryDefault, false)
	if err != nil {
		return models.Category{}, flowerror.Collaborator("categories", "create", err)
	}
	return created, nil
}

// ProcessSplitExpense starts a flow for the caller's share of a bill split
// evenly among the participants.
func (e *Engine) ProcessSplitExpense(ctx context.Context, conversationID, userID string, split models.SplitExpense, origin string) string {
	if split.Participants < 2 {
		return "Para dividir uma conta, informe pelo menos 2 pessoas."
	}
	if !split.Total.GreaterThan(decimal.Zero) {
		return msgInvalidAmount
	}

	share := currencyutils.SplitEvenly(split.Total, split.Participants)
	description := strings.TrimSpace(split.Description)
	draft := models.TransactionDraft{
		Amount:        share,
		Description:   description,
		PaymentMethod: split.PaymentMethod,
		Installments:  split.Installments,
		Kind:          models.KindExpense,
	}
	if origin == "" {
		origin = models.OriginSplit
	}

	e.logger.Debug("Split expense",
		logging.F(logging.FieldConversationID, conversationID),
		logging.F("participants", split.Participants),
		logging.F("share", share.StringFixed(2)))

	summary := splitSummary(split, currencyutils.FormatBRL(share))
	return fmt.Sprintf("%s\n\n%s", summary, e.StartFlow(ctx, conversationID, userID, draft, origin))
}
