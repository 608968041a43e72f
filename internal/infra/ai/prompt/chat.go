package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
)

const chatTemplate = `You are NutriSift AI, a helpful and empathetic food safety consultant.

CONTEXT (PRODUCT ANALYSIS):
%s

USER QUESTION:
"%s"

INSTRUCTION:
Answer the user's question specifically based on the product context provided above.
- If the user asks about safety (pregnancy, diabetes, kids), check the ingredients list and sugar levels in the context.
- Be concise, friendly, and helpful.
- Do not hallucinate ingredients that are not in the context.
- If the question is irrelevant to the product, politely redirect to food safety topics.`

// GetChatPrompt embeds the finalized record and the user question verbatim.
// A nil record is embedded as null.
func GetChatPrompt(rec *analysis.Record, question string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("failed to marshal product context: %w", err)
	}
	return fmt.Sprintf(chatTemplate, bytes.TrimRight(buf.Bytes(), "\n"), question), nil
}
