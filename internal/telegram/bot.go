// Package telegram puts the amount keypad in a Telegram chat: /open starts an
// entry session, the inline keyboard drives it and ✓ commits the expense.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"viaggi/internal/cache"
	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/log"
	"viaggi/internal/services"
	"viaggi/internal/session"
)

var ErrClosed = errors.New("bot has closed")

// API is the part of *tgbotapi.BotAPI the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Config struct {
	MaxChats int
	// ChatTTL forgets a chat's open form after this long without a key.
	ChatTTL time.Duration
}

func DefaultConfig() Config {
	return Config{MaxChats: 1000, ChatTTL: 30 * time.Minute}
}

// chat is the form a user has open in a chat. Updates are handled one at a
// time, so it needs no lock.
type chat struct {
	sessionID   string
	tripID      string
	kind        core.TransactionKind
	category    string
	description string
}

type Bot struct {
	api      API
	sessions *session.Store
	expenses *services.ExpenseService
	chats    *cache.LRUCache[*chat]
	keyboard tgbotapi.InlineKeyboardMarkup
	logger   *log.Logger
	welcome  string
	help     string
}

func New(api API, sessions *session.Store, expenses *services.ExpenseService, cfg Config, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxChats <= 0 {
		cfg.MaxChats = DefaultConfig().MaxChats
	}
	if cfg.ChatTTL <= 0 {
		cfg.ChatTTL = DefaultConfig().ChatTTL
	}
	return &Bot{
		api:      api,
		sessions: sessions,
		expenses: expenses,
		chats:    cache.NewLRUCache[*chat](cfg.MaxChats, cfg.ChatTTL),
		keyboard: Keyboard(sessions.Engine().Options().Separator),
		logger:   logger.WithComponent(log.ComponentTelegram),
		welcome: fmt.Sprintf("%s\nThe form expires after %s of inactivity.",
			"Welcome! Type /open <trip> to enter an expense.", cfg.ChatTTL),
		help: strings.Join([]string{
			"Help:",
			"/open <trip> [expense|income|loan] - open the keypad.",
			"/note <category> <description> - describe the expense.",
			"/cancel - discard the open form.",
			"/help - send this message.",
		}, "\n"),
	}
}

// Chats exposes the chat table so a cache.Manager can sweep it.
func (b *Bot) Chats() cache.Cleaner {
	return b.chats
}

// Run handles updates until the channel closes or ctx is done.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	b.logger.Info("Telegram bot started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return ErrClosed
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.logger.ErrorContext(ctx, "Failed to handle update",
					"update_id", update.UpdateID, log.FieldError, err)
			}
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		return b.handleCommand(ctx, update.Message)
	default:
		return nil
	}
}

func chatKey(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + "_" + strconv.FormatInt(userID, 10)
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	key := chatKey(msg.Chat.ID, msg.From.ID)
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.reply(msg.Chat.ID, b.welcome)
	case "help":
		return b.reply(msg.Chat.ID, b.help)
	case "open":
		return b.open(ctx, msg.Chat.ID, key, args)
	case "note":
		c, ok := b.chats.Get(key)
		if !ok {
			return b.reply(msg.Chat.ID, "No open form. Try /open <trip>.")
		}
		if len(args) < 2 {
			return b.reply(msg.Chat.ID, "Usage: /note <category> <description>")
		}
		c.category = args[0]
		c.description = strings.Join(args[1:], " ")
		b.chats.Set(key, c)
		return b.reply(msg.Chat.ID, fmt.Sprintf("Noted: %s · %s", c.category, c.description))
	case "cancel":
		c, ok := b.chats.Get(key)
		if !ok {
			return b.reply(msg.Chat.ID, "No open form.")
		}
		b.discard(ctx, key, c)
		return b.reply(msg.Chat.ID, "Form discarded.")
	default:
		return b.reply(msg.Chat.ID, "Unknown command. Try /help")
	}
}

func (b *Bot) open(ctx context.Context, chatID int64, key string, args []string) error {
	if len(args) == 0 {
		return b.reply(chatID, "Usage: /open <trip> [expense|income|loan]")
	}
	kind := core.KindExpense
	if len(args) > 1 {
		k, err := core.ParseKind(args[1])
		if err != nil {
			return b.reply(chatID, err.Error())
		}
		kind = k
	}

	if prev, ok := b.chats.Get(key); ok {
		b.discard(ctx, key, prev)
	}
	snap, err := b.sessions.Open(ctx, session.OpenRequest{TripID: args[0], Kind: kind})
	if err != nil {
		return b.reply(chatID, err.Error())
	}
	c := &chat{sessionID: snap.ID, tripID: snap.TripID, kind: snap.Kind}

	msg := tgbotapi.NewMessage(chatID, render(c, snap.State))
	msg.ReplyMarkup = b.keyboard
	if _, err := b.api.Send(msg); err != nil {
		_ = b.sessions.Close(ctx, snap.ID)
		return err
	}
	b.chats.Set(key, c)

	b.logger.InfoContext(ctx, "Keypad opened",
		log.FieldChatID, chatID, log.FieldSessionID, snap.ID, log.FieldTripID, snap.TripID)
	return nil
}

func (b *Bot) discard(ctx context.Context, key string, c *chat) {
	b.chats.Delete(key)
	if err := b.sessions.Close(ctx, c.sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		b.logger.WarnContext(ctx, "Failed to close session", log.FieldSessionID, c.sessionID, log.FieldError, err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.From == nil {
		return b.answer(cb.ID, "")
	}
	key := chatKey(cb.Message.Chat.ID, cb.From.ID)

	c, ok := b.chats.Get(key)
	if !ok {
		return b.expired(cb)
	}

	switch cb.Data {
	case dataCancel:
		b.discard(ctx, key, c)
		if err := b.edit(cb, "Form discarded.", false); err != nil {
			return err
		}
		return b.answer(cb.ID, "")
	case dataCommit:
		return b.commit(ctx, cb, key, c)
	}

	token, err := keypad.ParseToken(cb.Data, b.sessions.Engine().Options().Separator)
	if err != nil {
		return b.answer(cb.ID, "Unknown key")
	}
	state, err := b.sessions.Press(ctx, c.sessionID, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		b.chats.Delete(key)
		return b.expired(cb)
	}
	b.chats.Set(key, c)

	notice := ""
	if err != nil {
		notice = err.Error()
	}
	if err := b.edit(cb, render(c, state), true); err != nil {
		return err
	}
	return b.answer(cb.ID, notice)
}

func (b *Bot) commit(ctx context.Context, cb *tgbotapi.CallbackQuery, key string, c *chat) error {
	if c.category == "" || c.description == "" {
		return b.answer(cb.ID, "Describe it first: /note <category> <description>")
	}

	res, err := b.expenses.Commit(ctx, services.CommitRequest{
		SessionID:   c.sessionID,
		Description: c.description,
		Category:    c.category,
		PaidBy:      displayName(cb.From),
	})
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		b.chats.Delete(key)
		return b.expired(cb)
	case services.IsRejection(err):
		return b.answer(cb.ID, err.Error())
	case err != nil:
		b.logger.ErrorContext(ctx, "Commit failed", log.FieldSessionID, c.sessionID, log.FieldError, err)
		return b.answer(cb.ID, "Could not save, please try again.")
	}

	b.chats.Delete(key)
	text := fmt.Sprintf("Saved %s %s · %s · %s",
		res.Expense.Kind, res.Expense.Amount.Abs().FormatEuros(), res.Expense.Category, res.Expense.Description)
	if err := b.edit(cb, text, false); err != nil {
		return err
	}
	return b.answer(cb.ID, "Saved")
}

func (b *Bot) expired(cb *tgbotapi.CallbackQuery) error {
	if err := b.edit(cb, "This form has expired, please /open a new one.", false); err != nil {
		return err
	}
	return b.answer(cb.ID, "")
}

// edit rewrites the keypad message, skipping the call when nothing changed
// since Telegram rejects identical edits.
func (b *Bot) edit(cb *tgbotapi.CallbackQuery, text string, withKeyboard bool) error {
	if withKeyboard && text == cb.Message.Text {
		return nil
	}
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	if withKeyboard {
		edit.ReplyMarkup = &b.keyboard
	}
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) answer(callbackID, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// render is the keypad message: the form header over the calculator line.
func render(c *chat, st keypad.State) string {
	var sb strings.Builder
	sb.WriteString(c.tripID)
	sb.WriteString(" · ")
	sb.WriteString(string(c.kind))
	if c.category != "" {
		sb.WriteString("\n")
		sb.WriteString(c.category)
		sb.WriteString(" · ")
		sb.WriteString(c.description)
	}
	sb.WriteString("\n\n")
	sb.WriteString(st.Display)
	if st.Pending() && st.WaitingForOperand {
		sb.WriteString(" ")
		sb.WriteString(operatorSymbols[st.Operator])
	}
	return sb.String()
}
