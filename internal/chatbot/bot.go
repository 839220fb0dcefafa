// Package chatbot dispatches inbound chat messages: a message continues the
// conversation's pending flow when there is one, otherwise it is parsed as a
// new transaction request.
package chatbot

import (
	"context"
	"strings"

	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"
	"fjacquet/finchat/internal/quickentry"
)

const msgHelp = "Não entendi 🤔 Me diga o valor e o que foi, por exemplo: " +
	"\"gastei 45,90 no mercado\", \"recebi 5000 de salário\" ou \"dividir 120 entre 3 pizza\"."

// Engine is the flow state machine as seen by the bot.
type Engine interface {
	StartFlow(ctx context.Context, conversationID, userID string, draft models.TransactionDraft, origin string) string
	ProcessPendingStep(ctx context.Context, conversationID, userID, message string) (string, bool)
	ProcessSplitExpense(ctx context.Context, conversationID, userID string, split models.SplitExpense, origin string) string
	Pending(conversationID string) (models.PendingFlow, bool)
	Cancel(conversationID string) bool
}

// Parser extracts a transaction from a fresh message.
type Parser interface {
	Parse(text string) (quickentry.Result, bool)
}

// OptionSource hands out the quick replies offered with the last prompt.
type OptionSource interface {
	Consume(conversationID string) []string
}

// Checkpointer saves or forgets the conversation's flow after each message.
type Checkpointer interface {
	Checkpoint(ctx context.Context, conversationID string) error
}

// Message is an inbound chat message.
type Message struct {
	ConversationID string
	UserID         string
	Text           string
	Origin         string
}

// Response is the bot's answer to a Message.
type Response struct {
	Reply   string
	Options []string
	Pending bool
	State   models.FlowState
}

// Bot handles messages. Messages of one conversation are processed one at a
// time; different conversations run in parallel.
type Bot struct {
	engine      Engine
	parser      Parser
	options     OptionSource
	checkpoints Checkpointer
	locks       *keyedMutex
	logger      logging.Logger
}

// New creates a Bot. checkpoints may be nil.
func New(engine Engine, parser Parser, options OptionSource, checkpoints Checkpointer, logger logging.Logger) *Bot {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Bot{
		engine:      engine,
		parser:      parser,
		options:     options,
		checkpoints: checkpoints,
		locks:       newKeyedMutex(),
		logger:      logger,
	}
}

// Handle processes one message and returns the reply with its quick replies.
func (b *Bot) Handle(ctx context.Context, msg Message) (Response, error) {
	if strings.TrimSpace(msg.ConversationID) == "" {
		return Response{}, flowerror.NewInputError("conversation_id", msg.ConversationID, flowerror.ErrEmptyInput)
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return Response{}, flowerror.NewInputError("user_id", msg.UserID, flowerror.ErrEmptyInput)
	}

	unlock := b.locks.Lock(msg.ConversationID)
	defer unlock()

	reply, handled := b.engine.ProcessPendingStep(ctx, msg.ConversationID, msg.UserID, msg.Text)
	if !handled {
		reply = b.start(ctx, msg)
	}

	resp := Response{Reply: reply, Options: b.options.Consume(msg.ConversationID)}
	if f, ok := b.engine.Pending(msg.ConversationID); ok {
		resp.Pending = true
		resp.State = f.State
	}
	b.checkpoint(ctx, msg.ConversationID)
	return resp, nil
}

func (b *Bot) start(ctx context.Context, msg Message) string {
	result, ok := b.parser.Parse(msg.Text)
	if !ok {
		b.logger.Debug("Message not understood", logging.Conversation(msg.ConversationID, msg.UserID)...)
		return msgHelp
	}
	if result.IsSplit() {
		return b.engine.ProcessSplitExpense(ctx, msg.ConversationID, msg.UserID, *result.Split, msg.Origin)
	}
	return b.engine.StartFlow(ctx, msg.ConversationID, msg.UserID, result.Draft, msg.Origin)
}

// Cancel drops the conversation's flow. It reports whether there was one.
func (b *Bot) Cancel(ctx context.Context, conversationID string) bool {
	unlock := b.locks.Lock(conversationID)
	defer unlock()

	cancelled := b.engine.Cancel(conversationID)
	b.options.Consume(conversationID)
	b.checkpoint(ctx, conversationID)
	return cancelled
}

// Lock serializes outside work, such as a restore, with the conversation's messages.
func (b *Bot) Lock(conversationID string) func() {
	return b.locks.Lock(conversationID)
}

func (b *Bot) checkpoint(ctx context.Context, conversationID string) {
	if b.checkpoints == nil {
		return
	}
	if err := b.checkpoints.Checkpoint(ctx, conversationID); err != nil {
		b.logger.WithError(err).Warn("Could not checkpoint flow",
			logging.F(logging.FieldConversationID, conversationID))
	}
}
