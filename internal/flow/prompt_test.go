package flow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/olkaphoto/concierge/internal/models"
)

func TestRenderProfile_FieldOrder(t *testing.T) {
	p := models.Profile{
		"contact_method": "VK",
		"level":          "школа",
		"org_number":     "27",
	}
	got := RenderProfile(p)
	want := "- level: школа\n- org_number: 27\n- contact_method: VK"
	if got != want {
		t.Errorf("RenderProfile order mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRenderProfile_Empty(t *testing.T) {
	if got := RenderProfile(models.Profile{}); got != "- (пока нет данных)" {
		t.Errorf("empty profile placeholder mismatch: %q", got)
	}
}

func TestRenderProfile_UnknownFieldsSkipped(t *testing.T) {
	p := models.Profile{"contact": "+7 999 123-45-67"}
	if got := RenderProfile(p); got != "- (пока нет данных)" {
		t.Errorf("fields outside the card order must not render: %q", got)
	}
}

func TestBuildMessages_Shape(t *testing.T) {
	history := []models.HistoryMessage{
		{Role: models.RoleUser, Content: "вопрос"},
		{Role: models.RoleAssistant, Content: "ответ"},
	}
	msgs := BuildMessages("факты", models.Profile{}, history, "новый вопрос")

	// system + 2 history + new user text
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil {
		t.Error("first message must be the system prompt")
	}
	last := msgs[len(msgs)-1]
	if last.OfUser == nil {
		t.Fatal("last message must be the new user text")
	}
	if last.OfUser.Content.OfString.Value != "новый вопрос" {
		t.Errorf("last message content mismatch: %v", last.OfUser.Content.OfString)
	}
}

func TestBuildMessages_WindowTruncation(t *testing.T) {
	var history []models.HistoryMessage
	for i := 0; i < 30; i++ {
		history = append(history, models.HistoryMessage{Role: models.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}
	msgs := BuildMessages("факты", models.Profile{}, history, "новый")

	// system + last 12 + new user text
	if len(msgs) != historyWindow+2 {
		t.Fatalf("expected %d messages, got %d", historyWindow+2, len(msgs))
	}
	first := msgs[1]
	if first.OfUser == nil || first.OfUser.Content.OfString.Value != "msg 18" {
		t.Errorf("window must keep the most recent %d entries", historyWindow)
	}
}

func TestBuildMessages_SystemPromptCarriesFactsAndProfile(t *testing.T) {
	p := models.Profile{"level": "школа"}
	msgs := BuildMessages("Общий альбом 3500 ₽", p, nil, "вопрос")
	if msgs[0].OfSystem == nil {
		t.Fatal("first message must be the system prompt")
	}
	system := msgs[0].OfSystem.Content.OfString.Value
	if !strings.Contains(system, "Общий альбом 3500 ₽") {
		t.Error("system prompt must embed the facts block")
	}
	if !strings.Contains(system, "- level: школа") {
		t.Error("system prompt must embed the client card")
	}
	if !strings.Contains(system, "Не могу назвать точную цену") {
		t.Error("system prompt must carry the refusal instruction")
	}
}
