package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"lingocast/internal/language"
	"lingocast/internal/services/llm"
)

const (
	fixMaxTokens        = 4096
	splitMaxTokens      = 4096
	phraseMaxTokens     = 900
	complexityMaxTokens = 400
	translateMaxTokens  = 700
	tipsMaxTokens       = 300
)

const jsonOnly = "Respond with JSON only. Do not add commentary or code fences."

func languageName(code string) string {
	name := language.DisplayName(code)
	if name == "Unknown" || name == strings.ToUpper(code) {
		return code
	}
	return name
}

func fixPrompt(text, lang string) []llm.Message {
	return []llm.Message{
		llm.System(fmt.Sprintf(
			"You restore punctuation and capitalization in automatically generated %s captions. "+
				"Keep every word in its original order. Do not translate, summarize, or add words. "+
				"Return only the corrected text.", languageName(lang))),
		llm.User(text),
	}
}

func splitPrompt(entries []segment, corrected, lang string) []llm.Message {
	encoded, _ := json.Marshal(entries)
	var b strings.Builder
	b.WriteString("Caption entries (seconds):\n")
	b.Write(encoded)
	if corrected != "" {
		b.WriteString("\n\nPunctuated reference text:\n")
		b.WriteString(corrected)
	}
	return []llm.Message{
		llm.System(fmt.Sprintf(
			"You split %s caption entries into complete sentences. "+
				"Return a JSON array of objects with keys \"text\", \"start\", and \"duration\" (seconds). "+
				"Sentences must be in chronological order, cover the same words as the entries, and stay within the entries' timeline. %s",
			languageName(lang), jsonOnly)),
		llm.User(b.String()),
	}
}

func phrasePrompt(text, hint string) []llm.Message {
	user := "Sentence: " + text
	if strings.TrimSpace(hint) != "" {
		user += "\nContext: " + hint
	}
	return []llm.Message{
		llm.System("You find idioms, expressions, phrasal verbs, collocations, and common phrases that a language learner should study. " +
			"Return a JSON array of objects with keys \"phrase\", \"type\" (one of idiom, expression, phrasal_verb, collocation, common_phrase), " +
			"\"meaning\", \"difficulty\" (easy, medium, or hard), and \"example\". Return [] when there are none. " + jsonOnly),
		llm.User(user),
	}
}

func complexityPrompt(text string) []llm.Message {
	return []llm.Message{
		llm.System("You grade sentences for language learners. Return a JSON object with keys " +
			"\"level\" (CEFR A1, A2, B1, B2, C1, or C2), \"score\" (integer 1-10), \"grammar_points\" (array of strings), " +
			"\"vocabulary_level\" (basic, intermediate, or advanced), and \"tips\" (array of short strings). " + jsonOnly),
		llm.User(text),
	}
}

func translatePrompt(text, target, hint string) []llm.Message {
	user := text
	if strings.TrimSpace(hint) != "" {
		user = "Context: " + hint + "\n\nText: " + text
	}
	return []llm.Message{
		llm.System(fmt.Sprintf(
			"Translate the text into %s. Preserve meaning and tone. Return only the translation.",
			languageName(target))),
		llm.User(user),
	}
}

func tipsPrompt(s Sentence) []llm.Message {
	phrases := make([]string, 0, len(s.Phrases))
	for _, p := range s.Phrases {
		phrases = append(phrases, p.Phrase)
	}
	return []llm.Message{
		llm.System("You coach language learners. Return a JSON array of at most 3 short, practical study tips for the sentence. " + jsonOnly),
		llm.User(fmt.Sprintf("Sentence: %s\nLevel: %s\nPhrases: %s", s.OriginalText, s.Complexity.Level, strings.Join(phrases, ", "))),
	}
}
