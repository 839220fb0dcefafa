package persistence

import (
	"context"
	"fmt"
	"time"

	"fjacquet/finchat/internal/flow"
	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/session"
	"fjacquet/finchat/internal/textutils"
)

// Bridge moves pending flows between the session store and a repository.
type Bridge struct {
	sessions   session.Store
	repo       SnapshotRepository
	cards      flow.CardDirectory
	categories flow.CategoryDirectory
	suggester  flow.CategorySuggester
	ttl        time.Duration
	now        func() time.Time
	logger     logging.Logger
}

// BridgeDependencies are the collaborators of a Bridge. Suggester and Clock
// are optional. IdleTimeout must match the session store's so that restored
// flows expire when live ones would.
type BridgeDependencies struct {
	Sessions    session.Store
	Repository  SnapshotRepository
	Cards       flow.CardDirectory
	Categories  flow.CategoryDirectory
	Suggester   flow.CategorySuggester
	IdleTimeout time.Duration
	Clock       func() time.Time
	Logger      logging.Logger
}

// NewBridge validates the dependencies and creates a Bridge.
func NewBridge(deps BridgeDependencies) (*Bridge, error) {
	if deps.Sessions == nil || deps.Repository == nil {
		return nil, fmt.Errorf("persistence bridge needs a session store and a repository")
	}
	if deps.Cards == nil || deps.Categories == nil {
		return nil, fmt.Errorf("persistence bridge needs card and category directories")
	}
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = session.DefaultIdleTimeout
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewDiscardLogger()
	}
	return &Bridge{
		sessions:   deps.Sessions,
		repo:       deps.Repository,
		cards:      deps.Cards,
		categories: deps.Categories,
		suggester:  deps.Suggester,
		ttl:        deps.IdleTimeout,
		now:        deps.Clock,
		logger:     deps.Logger,
	}, nil
}

// Serialize returns the snapshot of the conversation's flow, or false when
// there is none.
func (b *Bridge) Serialize(conversationID string) (Snapshot, bool, error) {
	f, ok := b.sessions.Get(conversationID)
	if !ok {
		return Snapshot{}, false, nil
	}
	payload, err := encodeFlow(f)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to encode flow of %s: %w", conversationID, err)
	}
	return Snapshot{
		ConversationID: conversationID,
		UserID:         f.UserID,
		State:          string(f.State),
		Payload:        payload,
		UpdatedAt:      b.now(),
	}, true, nil
}

// Hydrate restores a flow from a payload into the session store. The draft,
// state, correction marker and timestamps are taken as they are; cards and
// categories are re-fetched since they may have changed.
func (b *Bridge) Hydrate(ctx context.Context, conversationID string, payload []byte) error {
	f, err := decodeFlow(conversationID, payload)
	if err != nil {
		return flowerror.NewInputError("snapshot", conversationID, err)
	}
	return b.hydrate(ctx, f)
}

func (b *Bridge) hydrate(ctx context.Context, f models.PendingFlow) error {
	conversationID := f.ConversationID
	if err := b.refresh(ctx, &f); err != nil {
		return err
	}
	b.sessions.Set(f)
	b.logger.Debug("Flow hydrated",
		logging.F(logging.FieldConversationID, conversationID),
		logging.F(logging.FieldUserID, f.UserID),
		logging.F(logging.FieldState, string(f.State)))
	return nil
}

func (b *Bridge) refresh(ctx context.Context, f *models.PendingFlow) error {
	cards, err := b.cards.ListCards(ctx, f.UserID)
	if err != nil {
		return flowerror.Collaborator("cards", "list", err)
	}
	categories, err := b.categories.ListCategories(ctx, f.UserID)
	if err != nil {
		return flowerror.Collaborator("categories", "list", err)
	}

	d := &f.Draft
	var lostCategory, lostCard bool
	if d.Category != nil {
		if c, ok := resolveCategory(categories, *d.Category); ok {
			d.Category = &c
		} else {
			b.logger.Info("Snapshot category no longer exists",
				logging.F(logging.FieldConversationID, f.ConversationID),
				logging.F(logging.FieldCategory, d.Category.Name))
			d.Category = nil
			lostCategory = true
		}
	}
	if d.CardID != "" && !hasCard(cards, d.CardID) {
		b.logger.Info("Snapshot card no longer exists",
			logging.F(logging.FieldConversationID, f.ConversationID))
		d.CardID = ""
		lostCard = d.PaymentMethod == models.PaymentCredit && len(cards) > 0
	}
	if pastChoices(f.State) {
		// the card is asked first and picking it leads on to the category
		switch {
		case lostCard:
			reopen(f, models.StateAwaitingCard)
		case lostCategory:
			reopen(f, models.StateAwaitingCategory)
		}
	}

	switch f.State {
	case models.StateAwaitingCard:
		f.CandidateCards = cards
	case models.StateAwaitingCategory:
		f.CandidateCategories = models.FilterCategories(categories, d.Kind)
		if len(f.CandidateCategories) > 0 && b.suggester != nil {
			if s, ok := b.suggester.Suggest(ctx, f.UserID, d.Description, d.Kind, f.CandidateCategories); ok {
				c := s.Category
				f.SuggestedCategory = &c
			}
		}
	}
	return nil
}

// pastChoices reports whether the flow already collected its card and
// category, so losing one of them means asking for it again.
func pastChoices(state models.FlowState) bool {
	switch state {
	case models.StateAwaitingConfirmation, models.StateAwaitingCorrection,
		models.StateAwaitingNewValue, models.StateAwaitingNewDate, models.StateAwaitingNewDescription:
		return true
	}
	return false
}

func reopen(f *models.PendingFlow, state models.FlowState) {
	f.State = state
	f.Correcting = models.CorrectNone
	f.CandidateCards = nil
	f.CandidateCategories = nil
	f.SuggestedCategory = nil
}

// Checkpoint saves the conversation's flow, or deletes its snapshot when the
// flow is gone.
func (b *Bridge) Checkpoint(ctx context.Context, conversationID string) error {
	s, ok, err := b.Serialize(conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return b.Forget(ctx, conversationID)
	}
	if err := b.repo.Save(ctx, s); err != nil {
		return flowerror.Collaborator("snapshots", "save", err)
	}
	return nil
}

// Forget deletes the conversation's snapshot.
func (b *Bridge) Forget(ctx context.Context, conversationID string) error {
	if err := b.repo.Delete(ctx, conversationID); err != nil {
		return flowerror.Collaborator("snapshots", "delete", err)
	}
	return nil
}

// Load returns the stored snapshot of a conversation.
func (b *Bridge) Load(ctx context.Context, conversationID string) (Snapshot, bool, error) {
	s, ok, err := b.repo.Load(ctx, conversationID)
	if err != nil {
		return Snapshot{}, false, flowerror.Collaborator("snapshots", "load", err)
	}
	return s, ok, nil
}

// FlowsExpired deletes the snapshots of flows the engine dropped for being
// idle. Failures are logged: a leftover snapshot is skipped by RestoreAll.
func (b *Bridge) FlowsExpired(ctx context.Context, conversationIDs []string) {
	for _, id := range conversationIDs {
		if err := b.Forget(ctx, id); err != nil {
			b.logger.WithError(err).Warn("Could not delete snapshot of expired flow",
				logging.F(logging.FieldConversationID, id))
		}
	}
}

// RestoreAll hydrates every stored snapshot and returns how many flows were
// restored. Snapshots idle longer than the idle timeout are deleted instead,
// and one that cannot be hydrated is logged and skipped.
func (b *Bridge) RestoreAll(ctx context.Context) (int, error) {
	snapshots, err := b.repo.List(ctx)
	if err != nil {
		return 0, flowerror.Collaborator("snapshots", "list", err)
	}

	now := b.now()
	restored, expired := 0, 0
	for _, s := range snapshots {
		log := b.logger.WithFields(logging.F(logging.FieldConversationID, s.ConversationID))
		f, err := decodeFlow(s.ConversationID, s.Payload)
		if err != nil {
			log.WithError(flowerror.NewInputError("snapshot", s.ConversationID, err)).Warn("Could not restore flow")
			continue
		}
		if f.Expired(now, b.ttl) {
			expired++
			if err := b.Forget(ctx, s.ConversationID); err != nil {
				log.WithError(err).Warn("Could not delete snapshot of expired flow")
			}
			continue
		}
		if err := b.hydrate(ctx, f); err != nil {
			log.WithError(err).Warn("Could not restore flow")
			continue
		}
		restored++
	}

	b.logger.Info("Pending flows restored",
		logging.F(logging.FieldCount, restored),
		logging.F("expired", expired),
		logging.F("skipped", len(snapshots)-restored-expired))
	return restored, nil
}

// resolveCategory finds want in the fresh list by id, then by name.
func resolveCategory(categories []models.Category, want models.Category) (models.Category, bool) {
	if want.ID != "" {
		for _, c := range categories {
			if c.ID == want.ID {
				return c, true
			}
		}
	}
	name := textutils.Fold(want.Name)
	if name == "" {
		return models.Category{}, false
	}
	for _, c := range categories {
		if textutils.Fold(c.Name) == name {
			return c, true
		}
	}
	return models.Category{}, false
}

func hasCard(cards []models.Card, id string) bool {
	for _, c := range cards {
		if c.ID == id {
			return true
		}
	}
	return false
}
