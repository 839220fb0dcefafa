package flow

import (
	"context"
	"errors"

	"fjacquet/finchat/internal/currencyutils"
	"fjacquet/finchat/internal/dateutils"
	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/intent"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

func (e *Engine) handleConfirmation(ctx context.Context, f *models.PendingFlow, message string) step {
	switch m := intent.Match(message); m.Kind {
	case intent.Confirmed:
		return e.commit(ctx, f)
	case intent.Cancelled:
		return finish(msgCancelled)
	case intent.Correct:
		f.State = models.StateAwaitingCorrection
		f.Correcting = models.CorrectNone
		return reply(promptCorrection(), correctionOptions...)
	case intent.FieldSelected:
		return e.selectField(ctx, f, m.Field)
	}

	if edit, ok := intent.ParseFieldEdit(message); ok {
		return e.applyEdit(ctx, f, edit.Field, edit.Value)
	}
	if textutils.LooksNumeric(message) {
		if amount, err := currencyutils.ParsePositiveAmount(message); err == nil {
			f.Draft.Amount = amount
			return e.confirm(ctx, f)
		}
	}
	if date, err := dateutils.ParseDate(message, e.now()); err == nil {
		f.Draft.ValueDate = &date
		return e.confirm(ctx, f)
	}
	return e.recover(ctx, f, message)
}

func (e *Engine) handleCorrection(ctx context.Context, f *models.PendingFlow, message string) step {
	if n, ok := intent.MenuIndex(message); ok {
		if n <= len(correctionMenu) {
			return e.selectField(ctx, f, correctionMenu[n-1])
		}
		return retry(promptCorrection(), correctionOptions...)
	}

	switch m := intent.Match(message); m.Kind {
	case intent.FieldSelected:
		return e.selectField(ctx, f, m.Field)
	case intent.Confirmed:
		// nothing to change after all
		return e.confirm(ctx, f)
	case intent.Cancelled:
		return finish(msgCancelled)
	}

	if edit, ok := intent.ParseFieldEdit(message); ok {
		return e.applyEdit(ctx, f, edit.Field, edit.Value)
	}
	return e.recover(ctx, f, message)
}

func (e *Engine) handleNewValue(ctx context.Context, f *models.PendingFlow, message string) step {
	field := fieldOfState(f.State)

	if other, ok := intent.MatchField(message); ok && other != field {
		return e.selectField(ctx, f, other)
	}
	if intent.Match(message).Kind == intent.Correct {
		// back to the menu; the marker remembers the field being corrected
		f.State = models.StateAwaitingCorrection
		f.Correcting = field
		return reply(promptCorrection(), correctionOptions...)
	}

	if st, ok := e.applyValue(ctx, f, field, message); ok {
		return st
	}
	return retry(invalidFieldValue(field))
}

// selectField opens the correction of one field.
func (e *Engine) selectField(ctx context.Context, f *models.PendingFlow, field models.CorrectionTarget) step {
	f.Correcting = field
	switch field {
	case models.CorrectValue:
		f.State = models.StateAwaitingNewValue
		return reply(msgAskNewValue)
	case models.CorrectDate:
		f.State = models.StateAwaitingNewDate
		return reply(msgAskNewDate)
	case models.CorrectDescription:
		f.State = models.StateAwaitingNewDescription
		return reply(msgAskNewDescription)
	case models.CorrectCategory:
		return e.resolveCategory(ctx, f, true)
	case models.CorrectPaymentMethod:
		if f.Draft.IsIncome() {
			return retry("Receitas são sempre registradas como Pix. Quer corrigir outro campo?", correctionOptions...)
		}
		return e.askPaymentMethod(ctx, f)
	default:
		f.State = models.StateAwaitingCorrection
		return reply(promptCorrection(), correctionOptions...)
	}
}

// applyEdit applies a "field → value" instruction, re-asking in place when
// the value does not parse.
func (e *Engine) applyEdit(ctx context.Context, f *models.PendingFlow, field models.CorrectionTarget, value string) step {
	if st, ok := e.applyValue(ctx, f, field, value); ok {
		return st
	}
	return retry(invalidFieldValue(field), confirmOptions...)
}

// applyValue parses raw as the given field. It reports false, leaving the
// draft untouched, when raw is not a valid value for the field.
func (e *Engine) applyValue(ctx context.Context, f *models.PendingFlow, field models.CorrectionTarget, raw string) (step, bool) {
	d := &f.Draft
	switch field {
	case models.CorrectValue:
		amount, err := currencyutils.ParsePositiveAmount(raw)
		if err != nil {
			return step{}, false
		}
		d.Amount = amount
		return e.confirm(ctx, f), true

	case models.CorrectDate:
		date, err := dateutils.ParseDate(raw, e.now())
		if err != nil {
			return step{}, false
		}
		d.ValueDate = &date
		return e.confirm(ctx, f), true

	case models.CorrectDescription:
		description := models.CleanDescription(raw, e.opts.DescriptionMaxLength)
		if !validDescription(description) {
			return step{}, false
		}
		d.Description = description
		return e.confirm(ctx, f), true

	case models.CorrectPaymentMethod:
		if d.IsIncome() {
			return step{}, false
		}
		method, ok := intent.ParsePaymentMethod(raw)
		if !ok {
			return step{}, false
		}
		f.Correcting = models.CorrectPaymentMethod
		e.applyPaymentMethod(f, method)
		return e.advance(ctx, f), true

	case models.CorrectCategory:
		f.Correcting = models.CorrectCategory
		return e.categoryByName(ctx, f, raw), true
	}
	return step{}, false
}

// recover handles unrecognized input at confirmation or correction: the
// marker names the field when set, otherwise the shape of the text decides.
// Anything still unrecognized re-asks without touching the flow.
func (e *Engine) recover(ctx context.Context, f *models.PendingFlow, message string) step {
	field := f.Correcting
	if field == models.CorrectNone {
		field = e.inferField(message)
	}
	if field != models.CorrectNone {
		if st, ok := e.applyValue(ctx, f, field, message); ok {
			e.logger.Debug("Recovered unrecognized reply",
				logging.F(logging.FieldConversationID, f.ConversationID),
				logging.F(logging.FieldCorrecting, string(field)))
			return st
		}
	}

	if f.State == models.StateAwaitingCorrection {
		return retry("Não entendi. "+promptCorrection(), correctionOptions...)
	}
	return retry("Não entendi. Responda *sim* para salvar, *corrigir* para alterar ou *cancelar*.", confirmOptions...)
}

func (e *Engine) inferField(message string) models.CorrectionTarget {
	if _, ok := intent.ParsePaymentMethod(message); ok {
		return models.CorrectPaymentMethod
	}
	if dateutils.LooksLikeDate(message, e.now()) {
		return models.CorrectDate
	}
	if textutils.LooksNumeric(message) {
		return models.CorrectValue
	}
	return models.CorrectNone
}

func fieldOfState(state models.FlowState) models.CorrectionTarget {
	switch state {
	case models.StateAwaitingNewValue:
		return models.CorrectValue
	case models.StateAwaitingNewDate:
		return models.CorrectDate
	default:
		return models.CorrectDescription
	}
}

// commit registers the confirmed draft and ends the flow, whatever the outcome.
func (e *Engine) commit(ctx context.Context, f *models.PendingFlow) step {
	d := f.Draft.Clone()
	if d.PaymentMethod == models.PaymentCredit && d.Installments < 1 {
		d.Installments = 1
	}

	text, err := e.RegisterEntry(ctx, f.UserID, d, f.Origin, "")
	if err != nil {
		var missing *flowerror.MissingPrerequisiteError
		if errors.As(err, &missing) {
			return finish(missing.Guidance)
		}
		e.logger.WithError(err).Error("Entry registration failed, flow discarded",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return finish(msgRegistrationFailed)
	}
	return finish(text)
}
