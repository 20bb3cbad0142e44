package telegram

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"viaggi/internal/keypad"
	"viaggi/internal/ledger/memory"
	"viaggi/internal/services"
	"viaggi/internal/session"
)

type fakeAPI struct {
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the most recent message or edit.
func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		switch c := f.sent[i].(type) {
		case tgbotapi.MessageConfig:
			return c.Text
		case tgbotapi.EditMessageTextConfig:
			return c.Text
		}
	}
	t.Fatal("nothing sent")
	return ""
}

func (f *fakeAPI) lastAnswer(t *testing.T) string {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if c, ok := f.sent[i].(tgbotapi.CallbackConfig); ok {
			return c.Text
		}
	}
	t.Fatal("no callback answered")
	return ""
}

const (
	chatID = int64(42)
	userID = int64(7)
)

var giulia = &tgbotapi.User{ID: userID, UserName: "giulia"}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      giulia,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

type fixture struct {
	api    *fakeAPI
	bot    *Bot
	ledger *memory.Store
	// screen is the keypad message as the user currently sees it.
	screen string
}

func newFixture(t *testing.T, opts keypad.Options) *fixture {
	t.Helper()
	sessions := session.NewStore(keypad.MustNew(opts), session.DefaultConfig(), nil)
	ledger := memory.New(nil)
	f := &fixture{api: &fakeAPI{}, ledger: ledger}
	f.bot = New(f.api, sessions, services.NewExpenseService(sessions, ledger, nil, nil), DefaultConfig(), nil)
	return f
}

func (f *fixture) send(t *testing.T, u tgbotapi.Update) {
	t.Helper()
	if err := f.bot.HandleUpdate(context.Background(), u); err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
}

func (f *fixture) tap(t *testing.T, data ...string) {
	t.Helper()
	for _, d := range data {
		f.send(t, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + d,
			From: giulia,
			Data: d,
			Message: &tgbotapi.Message{
				MessageID: 1,
				Chat:      &tgbotapi.Chat{ID: chatID},
				Text:      f.screen,
			},
		}})
		f.screen = f.api.lastText(t)
	}
}

func TestKeyboard_ButtonsAreKeys(t *testing.T) {
	for _, sep := range []rune{',', '.'} {
		kb := Keyboard(sep)
		seen := 0
		for _, row := range kb.InlineKeyboard {
			for _, b := range row {
				data := *b.CallbackData
				seen++
				if data == dataCommit || data == dataCancel {
					continue
				}
				if _, err := keypad.ParseToken(data, sep); err != nil {
					t.Errorf("button %q sends %q: %v", b.Text, data, err)
				}
			}
		}
		if seen != 19 {
			t.Errorf("keyboard has %d buttons, want 19", seen)
		}
		if got := kb.InlineKeyboard[3][0].Text; got != string(sep) {
			t.Errorf("separator label = %q, want %q", got, string(sep))
		}
	}
}

func TestBot_EntryFlow(t *testing.T) {
	f := newFixture(t, keypad.DefaultOptions())

	f.send(t, command("/open lisbon"))
	open, ok := f.api.sent[0].(tgbotapi.MessageConfig)
	if !ok || open.ReplyMarkup == nil {
		t.Fatalf("open sent %T without keyboard", f.api.sent[0])
	}
	f.screen = open.Text
	if !strings.HasSuffix(f.screen, "\n0") {
		t.Fatalf("screen = %q", f.screen)
	}

	f.tap(t, "1", "2", ",", "5", "+")
	if !strings.HasSuffix(f.screen, "12,5 +") {
		t.Errorf("screen = %q, want pending operator", f.screen)
	}
	f.tap(t, "3", "=")
	if !strings.HasSuffix(f.screen, "15,5") {
		t.Fatalf("screen = %q, want 15,5", f.screen)
	}

	f.tap(t, dataCommit)
	if got := f.api.lastAnswer(t); !strings.Contains(got, "/note") {
		t.Errorf("undescribed commit answered %q", got)
	}

	f.send(t, command("/note Cibo Pastéis de nata"))
	f.tap(t, dataCommit)
	if !strings.Contains(f.screen, "€15,50") || !strings.Contains(f.screen, "Pastéis de nata") {
		t.Errorf("saved screen = %q", f.screen)
	}

	got, _ := f.ledger.ListExpenses(context.Background(), "lisbon")
	if len(got) != 1 || got[0].Amount.Cents != 1550 || got[0].PaidBy != "giulia" || got[0].Category != "Cibo" {
		t.Fatalf("ledger = %+v", got)
	}

	f.tap(t, "1")
	if !strings.Contains(f.screen, "expired") {
		t.Errorf("key after commit shows %q", f.screen)
	}
}

func TestBot_ZeroAmountRejected(t *testing.T) {
	f := newFixture(t, keypad.DefaultOptions())
	f.send(t, command("/open lisbon"))
	f.screen = f.api.lastText(t)
	f.send(t, command("/note Cibo Caffè"))

	f.tap(t, dataCommit)
	if got := f.api.lastAnswer(t); got != keypad.ErrZeroAmount.Error() {
		t.Errorf("answer = %q", got)
	}
	if got, _ := f.ledger.ListExpenses(context.Background(), "lisbon"); len(got) != 0 {
		t.Errorf("zero amount saved: %+v", got)
	}
}

func TestBot_StrictDivisionKeepsDisplay(t *testing.T) {
	opts := keypad.DefaultOptions()
	opts.Division = keypad.DivideByZeroFails
	f := newFixture(t, opts)
	f.send(t, command("/open lisbon"))
	f.screen = f.api.lastText(t)

	f.tap(t, "8", "÷", "0", "=")
	if got := f.api.lastAnswer(t); !strings.Contains(got, keypad.ErrDivisionByZero.Error()) {
		t.Errorf("answer = %q", got)
	}
	if !strings.HasSuffix(f.screen, "\n0") {
		t.Errorf("screen = %q, want the typed divisor", f.screen)
	}
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", "Welcome"},
		{"/help", "/open <trip>"},
		{"/open", "Usage: /open"},
		{"/open lisbon gift", "invalid transaction kind"},
		{"/note Cibo", "No open form"},
		{"/cancel", "No open form"},
		{"/dance", "Unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f := newFixture(t, keypad.DefaultOptions())
			f.send(t, command(tt.text))
			if got := f.api.lastText(t); !strings.Contains(got, tt.want) {
				t.Errorf("%s replied %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestBot_ReopenDiscardsPreviousForm(t *testing.T) {
	f := newFixture(t, keypad.DefaultOptions())
	f.send(t, command("/open lisbon"))
	f.send(t, command("/open porto income"))
	if n := f.bot.sessions.Len(); n != 1 {
		t.Errorf("sessions held = %d, want 1", n)
	}
	f.send(t, command("/cancel"))
	if n := f.bot.sessions.Len(); n != 0 {
		t.Errorf("sessions held after cancel = %d", n)
	}
}

func TestBot_IgnoresPlainText(t *testing.T) {
	f := newFixture(t, keypad.DefaultOptions())
	f.send(t, tgbotapi.Update{Message: &tgbotapi.Message{From: giulia, Chat: &tgbotapi.Chat{ID: chatID}, Text: "ciao"}})
	if len(f.api.sent) != 0 {
		t.Errorf("sent %d messages for plain text", len(f.api.sent))
	}
}
