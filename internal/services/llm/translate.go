package llm

import (
	"context"
	"fmt"
	"strings"
)

// TranslatePrompt is the system prompt used to translate a digest.
func TranslatePrompt(language string) string {
	return fmt.Sprintf("You are a translation engine. Your task is to translate the user input into %s. "+
		"Output only the translation. Do not add any commentary, prefixes, suffixes, or explanations. "+
		"Preserve the original formatting exactly.", strings.TrimSpace(language))
}

// Translate renders text in language using model.
func (c *Client) Translate(ctx context.Context, text, language, model string) (Completion, error) {
	return c.Complete(ctx, TranslatePrompt(language), text, model)
}
