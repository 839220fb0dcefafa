package flow

import (
	"context"
	"errors"

	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/intent"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
)

func (e *Engine) handleDescription(ctx context.Context, f *models.PendingFlow, message string) step {
	description := models.CleanDescription(message, e.opts.DescriptionMaxLength)
	if !validDescription(description) {
		return retry(msgRetryDescription)
	}
	f.Draft.Description = description
	return e.advance(ctx, f)
}

func (e *Engine) handlePaymentMethod(ctx context.Context, f *models.PendingFlow, message string) step {
	if method, ok := intent.ParsePaymentMethod(message); ok {
		e.applyPaymentMethod(f, method)
		return e.advance(ctx, f)
	}
	if n, ok := intent.MenuIndex(message); ok && n <= len(paymentMenu) {
		e.applyPaymentMethod(f, paymentMenu[n-1])
		return e.advance(ctx, f)
	}

	cards, err := e.cards.ListCards(ctx, f.UserID)
	if err != nil {
		e.logger.WithError(flowerror.Collaborator("cards", "list", err)).Error("Could not list cards",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return retry(msgCardsUnavailable)
	}
	if i, ok := matchName(models.CardNames(cards), message); ok {
		e.applyPaymentMethod(f, models.PaymentCredit)
		f.Draft.CardID = cards[i].ID
		return e.advance(ctx, f)
	}

	options := append(append([]string(nil), paymentOptions...), models.CardNames(cards)...)
	return retry(msgRetryPayment, options...)
}

// applyPaymentMethod switches the draft's method. Moving to credit drops the
// card and asks for the installment count.
func (e *Engine) applyPaymentMethod(f *models.PendingFlow, method models.PaymentMethod) {
	d := &f.Draft
	if method == models.PaymentCredit && d.PaymentMethod != models.PaymentCredit {
		d.PaymentMethod = models.PaymentCredit
		d.CardID = ""
		d.Installments = 0
		f.AskInstallments = true
		return
	}
	d.SetPaymentMethod(method)
	f.AskInstallments = false
}

func (e *Engine) handleCard(ctx context.Context, f *models.PendingFlow, message string) step {
	cards := f.CandidateCards
	if len(cards) == 0 {
		st, resolved := e.resolveCard(ctx, f)
		if !resolved {
			return st
		}
		return e.advance(ctx, f)
	}

	idx := -1
	if n, ok := intent.MenuIndex(message); ok && n <= len(cards) {
		idx = n - 1
	} else if i, ok := matchName(models.CardNames(cards), message); ok {
		idx = i
	}
	if idx < 0 {
		return retry(msgRetryCard+"\n\n"+promptCard(cards), models.CardNames(cards)...)
	}

	f.Draft.CardID = cards[idx].ID
	f.CandidateCards = nil
	return e.advance(ctx, f)
}

func (e *Engine) handleInstallments(ctx context.Context, f *models.PendingFlow, message string) step {
	n, err := intent.ParseInstallments(message, e.opts.MaxInstallments)
	if err != nil {
		if errors.Is(err, flowerror.ErrOutOfRange) {
			return retry(retryInstallments(e.opts.MaxInstallments))
		}
		return retry(retryInstallments(e.opts.MaxInstallments) + "\n" + promptInstallments(e.opts.MaxInstallments))
	}
	f.Draft.Installments = n
	f.AskInstallments = false
	return e.advance(ctx, f)
}

func (e *Engine) handleCategory(ctx context.Context, f *models.PendingFlow, message string) step {
	candidates := f.CandidateCategories
	if n, ok := intent.MenuIndex(message); ok {
		if n <= len(candidates) {
			return e.pickCategory(ctx, f, candidates[n-1])
		}
		return retry(msgRetryCategory, categoryOptions(f)...)
	}

	if intent.IsConfirmation(message) {
		if f.SuggestedCategory != nil {
			return e.pickCategory(ctx, f, *f.SuggestedCategory)
		}
		return retry(msgRetryCategory, categoryOptions(f)...)
	}

	return e.categoryByName(ctx, f, message)
}
