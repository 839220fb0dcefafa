package flow

import (
	"context"
	"strings"
	"unicode/utf8"

	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/intent"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/textutils"
)

// begin routes a fresh flow to its first question.
func (e *Engine) begin(ctx context.Context, f *models.PendingFlow) step {
	if !validDescription(f.Draft.Description) {
		f.State = models.StateAwaitingDescription
		return reply(msgAskDescription)
	}
	return e.advance(ctx, f)
}

// advance resolves the next missing field, or shows the confirmation.
func (e *Engine) advance(ctx context.Context, f *models.PendingFlow) step {
	d := &f.Draft
	if d.IsIncome() {
		d.SetPaymentMethod(models.PaymentPix)
		return e.resolveCategory(ctx, f, false)
	}

	if d.PaymentMethod == models.PaymentUnset {
		return e.askPaymentMethod(ctx, f)
	}

	if d.PaymentMethod == models.PaymentCredit {
		if d.CardID == "" {
			if st, resolved := e.resolveCard(ctx, f); !resolved {
				return st
			}
		}
		if f.AskInstallments && d.Installments < 1 {
			f.State = models.StateAwaitingInstallments
			return reply(promptInstallments(e.opts.MaxInstallments))
		}
	}
	f.AskInstallments = false

	if f.Correcting == models.CorrectPaymentMethod {
		return e.confirm(ctx, f)
	}
	return e.resolveCategory(ctx, f, false)
}

func (e *Engine) askPaymentMethod(ctx context.Context, f *models.PendingFlow) step {
	cards, err := e.cards.ListCards(ctx, f.UserID)
	if err != nil {
		// the card list only decorates the prompt
		e.logger.WithError(flowerror.Collaborator("cards", "list", err)).Warn("Could not list cards for the payment prompt",
			logging.Conversation(f.ConversationID, f.UserID)...)
		cards = nil
	}
	f.State = models.StateAwaitingPaymentMethod
	options := append(append([]string(nil), paymentOptions...), models.CardNames(cards)...)
	return reply(promptPaymentMethod(cards), options...)
}

// resolveCard pins the card of a credit draft. It reports false together with
// the step to return when the user must pick, or the flow cannot continue.
func (e *Engine) resolveCard(ctx context.Context, f *models.PendingFlow) (step, bool) {
	cards, err := e.cards.ListCards(ctx, f.UserID)
	if err != nil {
		e.logger.WithError(flowerror.Collaborator("cards", "list", err)).Error("Could not list cards",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return retry(msgCardsUnavailable), false
	}

	switch len(cards) {
	case 0:
		e.logger.Info("Credit payment without any card on file", logging.Conversation(f.ConversationID, f.UserID)...)
		return finish(msgNoCardGuidance), false
	case 1:
		f.Draft.CardID = cards[0].ID
		f.CandidateCards = nil
		return step{}, true
	default:
		f.CandidateCards = cards
		f.State = models.StateAwaitingCard
		return reply(promptCard(cards), models.CardNames(cards)...), false
	}
}

// resolveCategory shows the confirmation when the draft already carries a
// category of the right class. Otherwise, or when forced, it lists the
// categories of the draft's class and asks.
func (e *Engine) resolveCategory(ctx context.Context, f *models.PendingFlow, force bool) step {
	d := &f.Draft
	if !force && d.Category != nil && !d.Category.IsDefault() {
		if d.Category.ID == "" {
			found, ok, err := e.categories.FindByName(ctx, f.UserID, d.Category.Name)
			if err != nil {
				e.logger.WithError(flowerror.Collaborator("categories", "find", err)).Warn("Could not look up the draft category",
					logging.Conversation(f.ConversationID, f.UserID)...)
			}
			if ok {
				d.Category = &found
			} else {
				d.Category = nil
			}
		}
		if d.Category != nil && d.Category.MatchesKind(d.Kind) {
			return e.confirm(ctx, f)
		}
	}

	categories, err := e.categories.ListCategories(ctx, f.UserID)
	if err != nil {
		e.logger.WithError(flowerror.Collaborator("categories", "list", err)).Error("Could not list categories",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return retry(msgCategoriesUnavailable)
	}

	f.CandidateCategories = models.FilterCategories(categories, d.Kind)
	f.SuggestedCategory = nil
	// without candidates a suggestion could name a category that does not exist
	if len(f.CandidateCategories) > 0 {
		if s, ok := e.suggester.Suggest(ctx, f.UserID, d.Description, d.Kind, f.CandidateCategories); ok {
			c := s.Category
			f.SuggestedCategory = &c
			e.logger.Debug("Category suggested",
				logging.F(logging.FieldConversationID, f.ConversationID),
				logging.F(logging.FieldCategory, c.Name),
				logging.F(logging.FieldStrategy, s.Strategy))
		}
	}
	f.State = models.StateAwaitingCategory
	text, options := promptCategory(f)
	return reply(text, options...)
}

// confirm shows the preview and waits for the user's decision.
func (e *Engine) confirm(ctx context.Context, f *models.PendingFlow) step {
	f.State = models.StateAwaitingConfirmation
	f.Correcting = models.CorrectNone
	f.CandidateCards = nil
	f.CandidateCategories = nil
	f.SuggestedCategory = nil
	return reply(preview(f.Draft, e.pinnedCard(ctx, f), e.now()), confirmOptions...)
}

// pinnedCard looks up the draft's card for the preview. Failures only hide
// the card name.
func (e *Engine) pinnedCard(ctx context.Context, f *models.PendingFlow) *models.Card {
	if f.Draft.PaymentMethod != models.PaymentCredit || f.Draft.CardID == "" {
		return nil
	}
	cards, err := e.cards.ListCards(ctx, f.UserID)
	if err != nil {
		e.logger.WithError(err).Debug("Could not look up the card for the preview")
		return nil
	}
	for _, c := range cards {
		if c.ID == f.Draft.CardID {
			card := c
			return &card
		}
	}
	return nil
}

// pickCategory attaches an existing category and shows the confirmation.
func (e *Engine) pickCategory(ctx context.Context, f *models.PendingFlow, c models.Category) step {
	f.Draft.Category = &c
	e.logger.Debug("Category selected",
		logging.F(logging.FieldConversationID, f.ConversationID),
		logging.F(logging.FieldCategory, c.Name))
	return e.confirm(ctx, f)
}

// categoryByName resolves a typed category name: first among the candidates,
// then through the directory, finally creating it in the draft's class.
func (e *Engine) categoryByName(ctx context.Context, f *models.PendingFlow, text string) step {
	d := &f.Draft

	candidates := f.CandidateCategories
	if len(candidates) == 0 {
		categories, err := e.categories.ListCategories(ctx, f.UserID)
		if err != nil {
			e.logger.WithError(flowerror.Collaborator("categories", "list", err)).Error("Could not list categories",
				logging.Conversation(f.ConversationID, f.UserID)...)
			return retry(msgCategoriesUnavailable)
		}
		candidates = models.FilterCategories(categories, d.Kind)
	}
	if i, ok := matchName(models.CategoryNames(candidates), text); ok {
		return e.pickCategory(ctx, f, candidates[i])
	}

	name := models.CleanDescription(text, e.opts.DescriptionMaxLength)
	if !validCategoryName(name) {
		return retry(msgRetryCategory, categoryOptions(f)...)
	}

	found, ok, err := e.categories.FindByName(ctx, f.UserID, name)
	if err != nil {
		e.logger.WithError(flowerror.Collaborator("categories", "find", err)).Error("Could not look up category",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return retry(msgCategoriesUnavailable)
	}
	if ok {
		if !found.MatchesKind(d.Kind) {
			return retry(wrongClass(found, d.Kind), categoryOptions(f)...)
		}
		return e.pickCategory(ctx, f, found)
	}

	created, err := e.categories.Create(ctx, f.UserID, name, d.IsIncome())
	if err != nil {
		e.logger.WithError(flowerror.Collaborator("categories", "create", err)).Error("Could not create category",
			logging.Conversation(f.ConversationID, f.UserID)...)
		return retry(msgCategoriesUnavailable)
	}
	e.logger.Info("Category created",
		logging.F(logging.FieldConversationID, f.ConversationID),
		logging.F(logging.FieldCategory, created.Name))
	return e.pickCategory(ctx, f, created)
}

func categoryOptions(f *models.PendingFlow) []string {
	if f.State != models.StateAwaitingCategory {
		return confirmOptions
	}
	_, options := promptCategory(f)
	return options
}

func wrongClass(c models.Category, kind models.TransactionKind) string {
	if kind == models.KindIncome {
		return "A categoria *" + c.Name + "* é de despesas. Escolha uma categoria de receitas."
	}
	return "A categoria *" + c.Name + "* é de receitas. Escolha uma categoria de despesas."
}

// matchName finds text among names: exact folded match first, then a unique
// partial match.
func matchName(names []string, text string) (int, bool) {
	want := textutils.Fold(text)
	if want == "" {
		return 0, false
	}
	for i, n := range names {
		if textutils.Fold(n) == want {
			return i, true
		}
	}

	if utf8.RuneCountInString(want) < 3 {
		return 0, false
	}
	found := -1
	for i, n := range names {
		folded := textutils.Fold(n)
		if strings.HasPrefix(folded, want) || textutils.ContainsPhrase(want, folded) || strings.Contains(folded, want) {
			if found >= 0 {
				return 0, false
			}
			found = i
		}
	}
	return found, found >= 0
}

func validDescription(description string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(description)) < 2 {
		return false
	}
	return !intent.IsGenericDescription(description) && !textutils.LooksNumeric(description)
}

func validCategoryName(name string) bool {
	if utf8.RuneCountInString(name) < 2 || textutils.LooksNumeric(name) {
		return false
	}
	// reserved words would otherwise be filed as category names
	return intent.Match(name).Kind == intent.Unrecognized
}
