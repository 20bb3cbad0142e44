package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"viaggi/internal/amqp"
	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/ledger/memory"
	"viaggi/internal/session"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ExpenseCommittedMessage
	err  error
}

func (p *fakePublisher) PublishExpenseCommitted(_ context.Context, msg *amqp.ExpenseCommittedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

type outcomes map[string]int

func (o outcomes) Committed(outcome string) { o[outcome]++ }

type fixture struct {
	sessions *session.Store
	ledger   *memory.Store
	pub      *fakePublisher
	svc      *ExpenseService
	seen     outcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: session.NewStore(keypad.MustNew(keypad.DefaultOptions()), session.DefaultConfig(), nil),
		ledger:   memory.New(nil),
		pub:      &fakePublisher{},
		seen:     outcomes{},
	}
	f.svc = NewExpenseService(f.sessions, f.ledger, f.pub, nil)
	f.svc.SetObserver(f.seen)
	f.svc.today = func() core.Date { return core.NewDate(2025, 6, 3) }
	return f
}

func (f *fixture) open(t *testing.T, kind core.TransactionKind, keys ...keypad.Token) string {
	t.Helper()
	ctx := context.Background()
	snap, err := f.sessions.Open(ctx, session.OpenRequest{TripID: "lisbon", Kind: kind})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.sessions.Press(ctx, snap.ID, keys...); err != nil {
		t.Fatalf("Press: %v", err)
	}
	return snap.ID
}

func TestExpenseService_Commit(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, core.KindExpense, "1", "2", keypad.Separator, "5", keypad.Token(keypad.OpAdd), "3", keypad.Equals)

	res, err := f.svc.Commit(context.Background(), CommitRequest{
		SessionID:   id,
		Description: "  museum tickets ",
		Category:    "Attività",
		PaidBy:      "ana",
		SplitWith:   []string{"ana", "luis"},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Ref != "mem:1" || res.Expense.Amount.Cents != 1550 || res.Expense.Description != "museum tickets" {
		t.Fatalf("result = %+v", res)
	}
	if res.Expense.Date.String() != "2025-06-03" {
		t.Fatalf("date = %s, want today", res.Expense.Date)
	}

	if _, err := f.sessions.Get(context.Background(), id); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("session should be closed, got %v", err)
	}
	if len(f.pub.msgs) != 1 || f.pub.msgs[0].Ref != "mem:1" || f.pub.msgs[0].AmountCents != 1550 {
		t.Fatalf("published = %+v", f.pub.msgs)
	}
	if f.seen[OutcomeOK] != 1 {
		t.Fatalf("outcomes = %v", f.seen)
	}
}

func TestExpenseService_CommitSignConvention(t *testing.T) {
	tests := []struct {
		kind core.TransactionKind
		want int64
	}{
		{core.KindExpense, 4200},
		{core.KindIncome, -4200},
		{core.KindLoan, 4200},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := newFixture(t)
			id := f.open(t, tt.kind, "4", "2")
			res, err := f.svc.Commit(context.Background(), CommitRequest{
				SessionID: id, Description: "x", Category: "Altro",
			})
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if res.Expense.Amount.Cents != tt.want {
				t.Fatalf("amount = %d, want %d", res.Expense.Amount.Cents, tt.want)
			}
		})
	}
}

func nines(n int) []keypad.Token {
	ks := make([]keypad.Token, n)
	for i := range ks {
		ks[i] = "9"
	}
	return ks
}

func TestExpenseService_CommitRejections(t *testing.T) {
	huge := append(append(nines(15), keypad.Token(keypad.OpMul)), append(nines(15), keypad.Equals)...)
	tests := []struct {
		name string
		kind core.TransactionKind
		keys []keypad.Token
		req  CommitRequest
		want error
	}{
		{"zero expense", core.KindExpense, nil, CommitRequest{Description: "x", Category: "Cibo"}, keypad.ErrZeroAmount},
		{"rounds to zero cents", core.KindLoan, []keypad.Token{"0", keypad.Separator, "0", "0", "4"}, CommitRequest{Description: "x", Category: "Cibo"}, keypad.ErrZeroAmount},
		{"negative display", core.KindExpense, []keypad.Token{"1", keypad.Token(keypad.OpSub), "5", keypad.Equals}, CommitRequest{Description: "x", Category: "Cibo"}, keypad.ErrInvalidAmount},
		{"missing description", core.KindExpense, []keypad.Token{"5"}, CommitRequest{Category: "Cibo"}, core.ErrEmptyDescription},
		{"missing category", core.KindExpense, []keypad.Token{"5"}, CommitRequest{Description: "x"}, core.ErrEmptyCategory},
		{"beyond int64 cents", core.KindExpense, huge, CommitRequest{Description: "x", Category: "Cibo"}, keypad.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.open(t, tt.kind, tt.keys...)
			tt.req.SessionID = id

			_, err := f.svc.Commit(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if _, err := f.sessions.Get(context.Background(), id); err != nil {
				t.Fatalf("rejected commit must keep the session: %v", err)
			}
			if len(f.pub.msgs) != 0 {
				t.Fatal("nothing should be published")
			}
			if f.seen[OutcomeRejected] != 1 {
				t.Fatalf("outcomes = %v", f.seen)
			}
		})
	}
}

func TestExpenseService_CommitLongEntryStoresTypedAmount(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, core.KindExpense, nines(21)...)

	res, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "x", Category: "Cibo"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Amount.String() != "999999999999999" {
		t.Fatalf("committed = %s, want the capped entry", res.Amount)
	}
	if res.Expense.Amount.Cents != 99999999999999900 {
		t.Fatalf("stored cents = %d", res.Expense.Amount.Cents)
	}
	if got := res.Expense.Amount.FormatEuros(); got != "€999999999999999,00" {
		t.Fatalf("formatted = %s", got)
	}
}

func TestExpenseService_CommitIncomeZero(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, core.KindIncome)
	res, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "placeholder", Category: "Altro"})
	if err != nil {
		t.Fatalf("zero income should commit: %v", err)
	}
	if res.Expense.Amount.Cents != 0 {
		t.Fatalf("amount = %d", res.Expense.Amount.Cents)
	}
}

func TestExpenseService_CommitUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: "missing"})
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestExpenseService_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	id := f.open(t, core.KindExpense, "9")

	res, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "x", Category: "Cibo"})
	if err != nil {
		t.Fatalf("Commit should succeed when publishing fails: %v", err)
	}
	if got, _ := f.ledger.ListExpenses(context.Background(), "lisbon"); len(got) != 1 || got[0].ID != res.Ref {
		t.Fatalf("ledger = %+v", got)
	}
}

func TestExpenseService_NilPublisher(t *testing.T) {
	f := newFixture(t)
	f.svc = NewExpenseService(f.sessions, f.ledger, nil, nil)
	id := f.open(t, core.KindExpense, "9")
	if _, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "x", Category: "Cibo"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != OutcomeOK {
		t.Error("nil error is ok")
	}
	if Outcome(keypad.ErrZeroAmount) != OutcomeRejected {
		t.Error("zero amount is a rejection")
	}
	if Outcome(errors.New("disk full")) != OutcomeError {
		t.Error("unexpected errors are errors")
	}
}

type amountSpy struct {
	outcomes
	amounts map[string]int64
}

func (a *amountSpy) CommittedAmount(_ context.Context, kind string, cents int64) {
	a.amounts[kind] += cents
}

func TestExpenseService_AmountObserver(t *testing.T) {
	f := newFixture(t)
	spy := &amountSpy{outcomes: outcomes{}, amounts: map[string]int64{}}
	f.svc.SetObserver(spy)

	id := f.open(t, core.KindIncome, "2", "0")
	if _, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "refund", Category: "Altro"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	id = f.open(t, core.KindExpense)
	if _, err := f.svc.Commit(context.Background(), CommitRequest{SessionID: id, Description: "x", Category: "Altro"}); err == nil {
		t.Fatal("zero expense committed")
	}

	if spy.amounts["income"] != 2000 || len(spy.amounts) != 1 {
		t.Errorf("amounts = %v, want only income 2000", spy.amounts)
	}
	if spy.outcomes[OutcomeOK] != 1 || spy.outcomes[OutcomeRejected] != 1 {
		t.Errorf("outcomes = %v", spy.outcomes)
	}
}
