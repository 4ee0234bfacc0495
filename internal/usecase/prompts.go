package usecase

import (
	"strings"

	"NewsTranslator/internal/domain"
)

const titlePrompt = "You are a highly skilled and concise professional translator. " +
	"When you receive a sentence in Danish, your task is to translate it into English. " +
	"VERY IMPORTANT: Do not output any notes, explanations, alternatives or comments " +
	"after or before the translation.\n\nDanish sentence: {text}\n\nEnglish translation:"

const bodyPrompt = `You are a highly skilled professional translator.

Here are your instructions:
- When you receive an article in Danish, your critical task is to translate it into English.
- You do not output any html, but the actual text of the article.
- You do not add any notes or explanations.
- The article to translate will be inside the <article> tags.
- Once prompted, just output the English translation.
- Do not output the title of the article, only the content.
- Make sure the translation is well formatted and easy to read (no useless line breaks, no extra spaces, etc.)

<article>

{text}

</article>

Here is the best English translation of the article above:`

// renderPrompt picks the template for the kind and substitutes the text.
func renderPrompt(kind domain.Kind, text string) string {
	tmpl := bodyPrompt
	if kind == domain.KindTitle {
		tmpl = titlePrompt
	}
	return strings.Replace(tmpl, "{text}", text, 1)
}

// buildRequest assembles the provider call for a field. Machine translation
// backends take raw text, so they get no prompt.
func buildRequest(provider domain.ProviderKind, kind domain.Kind, text string) domain.TranslationRequest {
	req := domain.TranslationRequest{
		Text:            text,
		Kind:            kind,
		MaxOutputTokens: domain.MaxOutputTokens(kind),
	}
	if provider != domain.ProviderTraditionalMT {
		req.Prompt = renderPrompt(kind, text)
	}
	return req
}

// cleanTitle keeps only the first line when a model rambles past the title.
func cleanTitle(original, translated string) string {
	translated = strings.TrimSpace(translated)
	if len(original) == 0 || float64(len(translated))/float64(len(original)) <= 2.0 {
		return translated
	}
	if idx := strings.IndexByte(translated, '\n'); idx > 0 {
		return strings.TrimSpace(translated[:idx])
	}
	return translated
}
