package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"

	"github.com/olkaphoto/concierge/internal/models"
	"github.com/olkaphoto/concierge/internal/store"
	"github.com/olkaphoto/concierge/internal/testutil"
)

// stubKnowledge returns a canned lookup result.
type stubKnowledge struct {
	res models.FAQResult
}

func (s stubKnowledge) Lookup(text string) models.FAQResult { return s.res }

// stubCompleter returns a canned answer and records the request.
type stubCompleter struct {
	answer   string
	err      error
	messages []openai.ChatCompletionMessageParamUnion
}

func (s *stubCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	s.messages = messages
	return s.answer, s.err
}

func newTestPipeline(knowledge Knowledge, ai Completer) (*Pipeline, *store.InMemoryStore, *testutil.MessengerRecorder) {
	st := store.NewInMemoryStore()
	msg := testutil.NewMessengerRecorder()
	return NewPipeline(st, knowledge, ai, msg, nil, "факты", 0), st, msg
}

func TestPipeline_SlashCommandIgnored(t *testing.T) {
	p, st, msg := newTestPipeline(stubKnowledge{}, nil)
	if err := p.Handle(context.Background(), textUpdate("/start")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Sent) != 0 {
		t.Error("slash commands must not produce pipeline output")
	}
	h, _ := st.GetHistory(1, 0)
	if len(h) != 0 {
		t.Error("slash commands must not land in history")
	}
}

func TestPipeline_GreetingPath(t *testing.T) {
	p, st, msg := newTestPipeline(stubKnowledge{}, nil)
	if err := p.Handle(context.Background(), textUpdate("Привет!")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := msg.Last(t)
	if !last.Keyboard {
		t.Error("greeting reply must carry the main menu keyboard")
	}
	if len(last.Rows) != 1 || last.Rows[0][0] != models.MenuButtonSurvey {
		t.Errorf("menu rows mismatch: %v", last.Rows)
	}

	h, _ := st.GetHistory(1, 0)
	if len(h) != 2 {
		t.Fatalf("expected user text plus assistant reply in history, got %d", len(h))
	}
	if h[0].Role != models.RoleUser || h[0].Content != "Привет!" {
		t.Errorf("first entry must be the user text: %+v", h[0])
	}
	if h[1].Role != models.RoleAssistant || h[1].Content != greetingReplyText {
		t.Errorf("second entry must be the greeting reply: %+v", h[1])
	}
}

func TestPipeline_FAQDirectAnswer(t *testing.T) {
	kbStub := stubKnowledge{res: models.FAQResult{
		Answer:      "Общий альбом 3500 ₽.",
		Suggestions: []string{"Оплата", "Условия и сроки"},
	}}
	p, st, msg := newTestPipeline(kbStub, nil)
	if err := p.Handle(context.Background(), textUpdate("сколько стоит альбом для сада")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msg.Sent) != 2 {
		t.Fatalf("expected answer plus related topics, got %d sends", len(msg.Sent))
	}
	if msg.Sent[0].Text != "Общий альбом 3500 ₽." {
		t.Errorf("answer mismatch: %q", msg.Sent[0].Text)
	}
	related := msg.Sent[1]
	if related.Text != relatedTopicsText || !related.Keyboard || !related.OneTime {
		t.Errorf("related topics prompt mismatch: %+v", related)
	}
	if len(related.Rows) != 2 || related.Rows[0][0] != "Оплата" {
		t.Errorf("suggestion rows mismatch: %v", related.Rows)
	}

	// the related-topics prompt stays out of the transcript
	h, _ := st.GetHistory(1, 0)
	if len(h) != 2 || h[1].Content != "Общий альбом 3500 ₽." {
		t.Errorf("history mismatch: %v", h)
	}
}

func TestPipeline_FAQSuggestionsOnly(t *testing.T) {
	kbStub := stubKnowledge{res: models.FAQResult{Suggestions: []string{"Оплата"}}}
	p, st, msg := newTestPipeline(kbStub, nil)
	if err := p.Handle(context.Background(), textUpdate("про деньги")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := msg.Last(t)
	if last.Text != disambiguateText || !last.Keyboard {
		t.Errorf("expected disambiguation prompt, got %+v", last)
	}
	h, _ := st.GetHistory(1, 0)
	if len(h) != 2 || h[1].Content != disambiguateText {
		t.Errorf("disambiguation prompt must land in history: %v", h)
	}
}

func TestPipeline_ModelAnswer(t *testing.T) {
	ai := &stubCompleter{answer: "Советую индивидуальный альбом."}
	p, st, msg := newTestPipeline(stubKnowledge{}, ai)
	if err := p.Handle(context.Background(), textUpdate("что посоветуете?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Last(t).Text != "Советую индивидуальный альбом." {
		t.Errorf("model answer mismatch: %q", msg.Last(t).Text)
	}
	h, _ := st.GetHistory(1, 0)
	if len(h) != 2 || h[1].Content != "Советую индивидуальный альбом." {
		t.Errorf("history mismatch: %v", h)
	}
	if len(ai.messages) == 0 {
		t.Fatal("completer did not receive a request")
	}
	last := ai.messages[len(ai.messages)-1]
	if last.OfUser == nil || last.OfUser.Content.OfString.Value != "что посоветуете?" {
		t.Error("new user text must be the last request message")
	}
}

func TestPipeline_ModelWindowExcludesCurrentText(t *testing.T) {
	ai := &stubCompleter{answer: "ответ"}
	p, st, _ := newTestPipeline(stubKnowledge{}, ai)
	st.AppendHistory(1, models.RoleUser, "старый вопрос", 50)

	if err := p.Handle(context.Background(), textUpdate("новый вопрос")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// system + 1 window entry + new text
	if len(ai.messages) != 3 {
		t.Fatalf("expected 3 request messages, got %d", len(ai.messages))
	}
	window := ai.messages[1]
	if window.OfUser == nil || window.OfUser.Content.OfString.Value != "старый вопрос" {
		t.Error("window entry must be the prior transcript, not the new text")
	}
}

func TestPipeline_ModelFailureFallsBack(t *testing.T) {
	ai := &stubCompleter{err: errors.New("provider down")}
	p, st, msg := newTestPipeline(stubKnowledge{}, ai)
	if err := p.Handle(context.Background(), textUpdate("что посоветуете?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := msg.Last(t)
	if !last.Keyboard {
		t.Error("fallback must carry the main menu keyboard")
	}
	h, _ := st.GetHistory(1, 0)
	if len(h) != 2 || h[1].Content != fallbackText {
		t.Errorf("fallback must land in history: %v", h)
	}
}

func TestPipeline_NilCompleterFallsBack(t *testing.T) {
	p, _, msg := newTestPipeline(stubKnowledge{}, nil)
	if err := p.Handle(context.Background(), textUpdate("что посоветуете?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.Last(t).Keyboard {
		t.Error("no model configured, expected the fallback menu")
	}
}

func TestPipeline_TrustFilterSubstitution(t *testing.T) {
	ai := &stubCompleter{answer: "Альбом стоит 9999 ₽."}
	p, st, msg := newTestPipeline(stubKnowledge{}, ai)
	if err := p.Handle(context.Background(), textUpdate("сколько выйдет?")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Last(t).Text != SafePriceRefusal {
		t.Errorf("expected safe refusal, got %q", msg.Last(t).Text)
	}

	// transcript keeps the raw answer and the substituted refusal
	h, _ := st.GetHistory(1, 0)
	if len(h) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(h))
	}
	if h[1].Content != "Альбом стоит 9999 ₽." || h[2].Content != SafePriceRefusal {
		t.Errorf("history shape mismatch: %v", h)
	}
}

func TestPipeline_HistoryObeysCap(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := testutil.NewMessengerRecorder()
	p := NewPipeline(st, stubKnowledge{}, nil, msg, nil, "факты", 4)

	for i := 0; i < 5; i++ {
		if err := p.Handle(context.Background(), textUpdate("Привет")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	h, _ := st.GetHistory(1, 0)
	if len(h) != 4 {
		t.Errorf("expected transcript capped at 4, got %d", len(h))
	}
}

// auditRecorder captures audit lines in memory.
type auditRecorder struct {
	lines []string
}

func (a *auditRecorder) Append(userID int64, role, text string) error {
	a.lines = append(a.lines, fmt.Sprintf("%d %s: %s", userID, role, text))
	return nil
}

func TestPipeline_AuditRecordsFAQAnswer(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := testutil.NewMessengerRecorder()
	audit := &auditRecorder{}
	knowledge := stubKnowledge{res: models.FAQResult{Answer: "Сроки: 2–3 недели."}}
	p := NewPipeline(st, knowledge, nil, msg, audit, "факты", 0)

	if err := p.Handle(context.Background(), textUpdate("какие сроки")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.lines) != 1 || audit.lines[0] != "1 assistant: Сроки: 2–3 недели." {
		t.Errorf("audit trail mismatch: %v", audit.lines)
	}
}

func TestPipeline_AuditRecordsModelAnswer(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := testutil.NewMessengerRecorder()
	audit := &auditRecorder{}
	ai := &stubCompleter{answer: "Съёмка проходит по записи."}
	p := NewPipeline(st, stubKnowledge{}, ai, msg, audit, "факты", 0)

	if err := p.Handle(context.Background(), textUpdate("как проходит съёмка")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.lines) != 1 || audit.lines[0] != "1 assistant: Съёмка проходит по записи." {
		t.Errorf("audit trail mismatch: %v", audit.lines)
	}
}

func TestPipeline_AuditRecordsFallbackButNotGreeting(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := testutil.NewMessengerRecorder()
	audit := &auditRecorder{}
	p := NewPipeline(st, stubKnowledge{}, nil, msg, audit, "факты", 0)
	ctx := context.Background()

	if err := p.Handle(ctx, textUpdate("Привет")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Handle(ctx, textUpdate("когда будет съёмка")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.lines) != 1 || audit.lines[0] != "1 assistant: "+fallbackText {
		t.Errorf("only the fallback answer belongs in the audit trail, got %v", audit.lines)
	}
}

func TestPipeline_SendMenuPreface(t *testing.T) {
	p, _, msg := newTestPipeline(stubKnowledge{}, nil)
	if err := p.SendMenu(context.Background(), 10, "С возвращением!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := msg.Last(t)
	if last.Text[:len("С возвращением!")] != "С возвращением!" {
		t.Errorf("preface must open the menu text: %q", last.Text)
	}
}
