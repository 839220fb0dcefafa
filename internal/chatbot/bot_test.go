package chatbot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fjacquet/finchat/internal/directory"
	"fjacquet/finchat/internal/flow"
	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/keyboard"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/persistence"
	"fjacquet/finchat/internal/quickentry"
	"fjacquet/finchat/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2026, time.October, 18, 15, 30, 0, 0, time.UTC)

// stubEngine records what the bot asked of it.
type stubEngine struct {
	mu       sync.Mutex
	pending  map[string]models.PendingFlow
	started  []models.TransactionDraft
	splits   []models.SplitExpense
	steps    []string
	keyboard *keyboard.Registry
}

func newStubEngine(kb *keyboard.Registry) *stubEngine {
	return &stubEngine{pending: map[string]models.PendingFlow{}, keyboard: kb}
}

func (s *stubEngine) StartFlow(_ context.Context, conv, user string, draft models.TransactionDraft, origin string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, draft)
	s.pending[conv] = models.PendingFlow{ConversationID: conv, UserID: user, Origin: origin, State: models.StateAwaitingCategory}
	s.keyboard.Offer(conv, []string{"Mercado"})
	return "started"
}

func (s *stubEngine) ProcessPendingStep(_ context.Context, conv, _, message string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[conv]; !ok {
		return "", false
	}
	s.steps = append(s.steps, message)
	delete(s.pending, conv)
	return "done", true
}

func (s *stubEngine) ProcessSplitExpense(_ context.Context, conv, _ string, split models.SplitExpense, _ string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splits = append(s.splits, split)
	return "split"
}

func (s *stubEngine) Pending(conv string) (models.PendingFlow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.pending[conv]
	return f, ok
}

func (s *stubEngine) Cancel(conv string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[conv]
	delete(s.pending, conv)
	return ok
}

type recordingCheckpointer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingCheckpointer) Checkpoint(_ context.Context, conv string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, conv)
	return r.err
}

func newStubBot() (*Bot, *stubEngine, *recordingCheckpointer, *logging.MockLogger) {
	kb := keyboard.NewRegistry()
	engine := newStubEngine(kb)
	cp := &recordingCheckpointer{}
	logger := logging.NewMockLogger()
	parser := quickentry.NewParser(func() time.Time { return refNow }, 0)
	return New(engine, parser, kb, cp, logger), engine, cp, logger
}

func TestHandle_RejectsMissingIdentifiers(t *testing.T) {
	bot, _, cp, _ := newStubBot()

	_, err := bot.Handle(context.Background(), Message{UserID: "ana", Text: "oi"})
	assert.True(t, flowerror.IsInput(err))

	_, err = bot.Handle(context.Background(), Message{ConversationID: "c1", Text: "oi"})
	assert.True(t, flowerror.IsInput(err))

	assert.Empty(t, cp.calls)
}

func TestHandle_Dispatch(t *testing.T) {
	bot, engine, cp, _ := newStubBot()
	ctx := context.Background()

	resp, err := bot.Handle(ctx, Message{ConversationID: "c1", UserID: "ana", Text: "oi, tudo bem?"})
	require.NoError(t, err)
	assert.Equal(t, msgHelp, resp.Reply)
	assert.False(t, resp.Pending)

	resp, err = bot.Handle(ctx, Message{ConversationID: "c1", UserID: "ana", Text: "dividir 120 entre 3 pizza"})
	require.NoError(t, err)
	assert.Equal(t, "split", resp.Reply)
	require.Len(t, engine.splits, 1)
	assert.Equal(t, 3, engine.splits[0].Participants)

	resp, err = bot.Handle(ctx, Message{ConversationID: "c1", UserID: "ana", Text: "gastei 45,90 no mercado"})
	require.NoError(t, err)
	assert.Equal(t, "started", resp.Reply)
	assert.Equal(t, []string{"Mercado"}, resp.Options)
	assert.True(t, resp.Pending)
	assert.Equal(t, models.StateAwaitingCategory, resp.State)
	require.Len(t, engine.started, 1)
	assert.Equal(t, "mercado", engine.started[0].Description)

	// a pending flow takes the message even when it looks like a new entry
	resp, err = bot.Handle(ctx, Message{ConversationID: "c1", UserID: "ana", Text: "uber 23"})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Reply)
	assert.Empty(t, resp.Options)
	assert.False(t, resp.Pending)
	assert.Equal(t, []string{"uber 23"}, engine.steps)

	assert.Equal(t, []string{"c1", "c1", "c1", "c1"}, cp.calls)
}

func TestHandle_CheckpointFailureIsLogged(t *testing.T) {
	bot, _, cp, logger := newStubBot()
	cp.err = errors.New("db down")

	resp, err := bot.Handle(context.Background(), Message{ConversationID: "c1", UserID: "ana", Text: "uber 23"})

	require.NoError(t, err)
	assert.Equal(t, "started", resp.Reply)
	assert.True(t, logger.HasEntry("WARN", "Could not checkpoint flow"))
}

func TestCancel(t *testing.T) {
	bot, _, cp, _ := newStubBot()
	ctx := context.Background()

	assert.False(t, bot.Cancel(ctx, "c1"))

	_, err := bot.Handle(ctx, Message{ConversationID: "c1", UserID: "ana", Text: "uber 23"})
	require.NoError(t, err)
	assert.True(t, bot.Cancel(ctx, "c1"))
	assert.Len(t, cp.calls, 3)
}

func TestKeyedMutex(t *testing.T) {
	locks := newKeyedMutex()
	counters := map[string]*int{"a": new(int), "b": new(int)}
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := locks.Lock(key)
				defer unlock()
				*counters[key]++
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, *counters["a"])
	assert.Equal(t, 50, *counters["b"])
	assert.Equal(t, 0, locks.size())

	unlock := locks.Lock("a")
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Equal(t, 0, locks.size())
}

// stack is the real wiring of the bot over in-memory bindings.
type stack struct {
	bot   *Bot
	dir   *directory.Memory
	repo  *persistence.MemoryRepository
	store *session.MemoryStore
}

func newStack(t *testing.T) *stack {
	t.Helper()
	clock := func() time.Time { return refNow }
	logger := logging.NewMockLogger()

	dir := directory.NewMemory(directory.Options{Clock: clock}, logger)
	require.NoError(t, dir.Seed(models.Workspace{Users: []models.WorkspaceUser{{
		ID:         "ana",
		Cards:      []models.Card{{Name: "Nubank", DueDay: 10}},
		Categories: []models.WorkspaceCategory{{Name: "Mercado"}, {Name: "Lazer"}, {Name: "Salário", Income: true}},
	}}}))

	store := session.NewMemoryStore(time.Hour)
	kb := keyboard.NewRegistry()
	engine, err := flow.NewEngine(flow.Dependencies{
		Sessions:   store,
		Cards:      dir,
		Categories: dir,
		Registrar:  dir,
		History:    dir,
		Anomaly:    dir,
		Budget:     dir,
		Tags:       dir,
		Keyboard:   kb,
		Clock:      clock,
		Logger:     logger,
	}, flow.Options{})
	require.NoError(t, err)

	repo := persistence.NewMemoryRepository()
	bridge, err := persistence.NewBridge(persistence.BridgeDependencies{
		Sessions: store, Repository: repo, Cards: dir, Categories: dir, Clock: clock, Logger: logger,
	})
	require.NoError(t, err)

	parser := quickentry.NewParser(clock, 0)
	return &stack{bot: New(engine, parser, kb, bridge, logger), dir: dir, repo: repo, store: store}
}

func (s *stack) send(t *testing.T, text string) Response {
	t.Helper()
	resp, err := s.bot.Handle(context.Background(), Message{ConversationID: "c1", UserID: "ana", Text: text})
	require.NoError(t, err)
	return resp
}

func TestBot_EndToEnd(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	resp := s.send(t, "gastei 45,90 no mercado")
	assert.Equal(t, models.StateAwaitingPaymentMethod, resp.State)
	assert.Equal(t, []string{"Pix", "Débito", "Crédito", "Nubank"}, resp.Options)
	_, saved, err := s.repo.Load(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, saved)

	resp = s.send(t, "pix")
	assert.Equal(t, models.StateAwaitingCategory, resp.State)
	assert.Contains(t, resp.Options, "Mercado")

	resp = s.send(t, "1")
	assert.Equal(t, models.StateAwaitingConfirmation, resp.State)
	assert.Contains(t, resp.Reply, "Confere o lançamento?")
	assert.Contains(t, resp.Reply, "R$ 45,90")

	resp = s.send(t, "confirmar")
	assert.False(t, resp.Pending)
	assert.Contains(t, resp.Reply, "✅ Despesa registrada")

	entries := s.dir.Entries("ana")
	require.Len(t, entries, 1)
	assert.Equal(t, "Mercado", entries[0].Category.Name)
	assert.Equal(t, models.PaymentPix, entries[0].Entry.PaymentMethod)
	_, saved, err = s.repo.Load(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestBot_SurvivesRestart(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.send(t, "gastei 45,90 no mercado")
	s.send(t, "pix")

	// a new process: empty session store, same repository and directory
	store := session.NewMemoryStore(time.Hour)
	bridge, err := persistence.NewBridge(persistence.BridgeDependencies{
		Sessions: store, Repository: s.repo, Cards: s.dir, Categories: s.dir,
		Clock: func() time.Time { return refNow },
	})
	require.NoError(t, err)
	restored, err := bridge.RestoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	f, ok := store.Get("c1")
	require.True(t, ok)
	assert.Equal(t, models.StateAwaitingCategory, f.State)
	assert.Equal(t, []string{"Mercado", "Lazer"}, models.CategoryNames(f.CandidateCategories))
	assert.Equal(t, models.PaymentPix, f.Draft.PaymentMethod)
}
