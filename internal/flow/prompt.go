package flow

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/olkaphoto/concierge/internal/models"
)

// historyWindow is how many recent transcript entries go to the model.
const historyWindow = 12

// sealedTopicsInstructions locks prices, conditions and quantities to the
// facts block.
const sealedTopicsInstructions = "ВАЖНО: Все цены, скидки, условия (минимум альбомов, сроки «до марта», " +
	"стоимость дубликатов, стоимость доп. разворотов, форматы и количественные " +
	"параметры) — отвечай ТОЛЬКО по фактам из блока Facts. Если вопрос не даёт " +
	"контекста (сад/школа/тип альбома), сначала уточни ИЛИ покажи краткие цены " +
	"для обоих вариантов (общий и индивидуальный) для соответствующего уровня " +
	"(сад/школа) из Facts, затем спроси, что выбрать. Если в Facts нет нужной " +
	"цены/условия — не придумывай, скажи, что уточнишь у фотографа."

const baseTone = "Говори кратко и по делу, дружелюбно. Можешь уточнять 1–2 ключевых момента, " +
	"предлагай помощь с бронированием. Не используй канцелярит."

const systemPromptTemplate = `Ты — дружелюбный консьерж‑ассистент фотографа. Общайся свободно: приветствуй, поддерживай диалог,
помогай выбрать альбом, объясняй процесс съёмки, давай советы по подготовке, мягко направляй к бронированию.

%s
%s

— Ниже факты (Facts). Они приоритетны для цен и условий.
— Если вопрос о ценах/условиях не покрыт фактами — ответь: «Не могу назвать точную цену. Давайте я уточню у фотографа.»

— Ниже краткая карточка клиента (Client Profile) — учитывай её контекст в ответах.

Facts:
%s

Client Profile:
%s`

// profileFieldOrder fixes the rendering order of the client card.
var profileFieldOrder = []string{"level", "org_number", "album_type", "count_children", "contact_method"}

// RenderProfile formats the durable profile as a short field list for the
// system prompt, or a placeholder when nothing is known yet.
func RenderProfile(p models.Profile) string {
	var lines []string
	for _, k := range profileFieldOrder {
		if v := p[k]; v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
		}
	}
	if len(lines) == 0 {
		return "- (пока нет данных)"
	}
	return strings.Join(lines, "\n")
}

// BuildMessages assembles the completion request: system prompt (tone,
// sealed-topic rules, facts, client card), then the recent history window
// chronologically, then the new user text last.
func BuildMessages(facts string, profile models.Profile, history []models.HistoryMessage, userText string) []openai.ChatCompletionMessageParamUnion {
	system := fmt.Sprintf(systemPromptTemplate, sealedTopicsInstructions, baseTone, facts, RenderProfile(profile))

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))
	return messages
}
