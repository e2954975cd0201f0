package enrich

import (
	"context"
	"fmt"
	"strings"

	"lingocast/internal/batch"
	"lingocast/internal/services"
	"lingocast/internal/services/llm"
	"lingocast/internal/textutil"
)

const maxLearningTips = 3

const (
	tipAdvanced = "This sentence uses advanced structures; break it into clauses and study each one."
	tipIdioms   = "Practice the idioms here in context; they rarely translate word for word."
	tipLength   = "This is a long sentence; shadow it in shorter chunks before saying it whole."
)

var genericTips = []string{
	"Listen to the sentence again and repeat it aloud.",
	"Write the sentence from memory, then compare it with the original.",
}

// FixTranscript restores punctuation and casing in text. When inference fails
// the input is returned unchanged.
func (e *Enricher) FixTranscript(ctx context.Context, text, lang string) (string, error) {
	text = textutil.CollapseWhitespace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "enrich", "fix transcript", "text is empty", nil)
	}
	return e.correct(ctx, text, normalizeLanguage(lang)), nil
}

// TranslateText translates text into target. When inference fails the input
// is returned unchanged.
func (e *Enricher) TranslateText(ctx context.Context, text, target, hint string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "enrich", "translate", "text is empty", nil)
	}
	return e.translationFor(ctx, text, normalizeLanguage(target), hint), nil
}

// AnalyzeComplexity grades text, falling back to the length rule.
func (e *Enricher) AnalyzeComplexity(ctx context.Context, text string) (Complexity, error) {
	text = textutil.CollapseWhitespace(text)
	if text == "" {
		return Complexity{}, services.Wrap(services.ErrValidation, "enrich", "analyze complexity", "text is empty", nil)
	}
	return e.complexityFor(ctx, text), nil
}

// ExtractPhrases lists learnable phrases in text, falling back to the
// built-in phrase table.
func (e *Enricher) ExtractPhrases(ctx context.Context, text, hint string) ([]Phrase, error) {
	text = textutil.CollapseWhitespace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "enrich", "extract phrases", "text is empty", nil)
	}
	return e.phrasesFor(ctx, text, hint), nil
}

// TranslateBatch translates texts through the batch queue. Unlike
// TranslateText, a failed translation is reported in its Outcome rather than
// replaced by the source text.
func (e *Enricher) TranslateBatch(ctx context.Context, texts []string, target string) ([]batch.Outcome, error) {
	if e.queue == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "translate batch", "batch queue not configured", nil)
	}
	target = normalizeLanguage(target)
	requests := make([]batch.Request, len(texts))
	for i, text := range texts {
		text := strings.TrimSpace(text)
		requests[i] = batch.Request{
			Label: fmt.Sprintf("text-%d", i+1),
			Run: func(ctx context.Context) (string, error) {
				if text == "" {
					return "", services.Wrap(services.ErrValidation, "enrich", "translate batch", "text is empty", nil)
				}
				return e.translateCached(ctx, text, target, "")
			},
		}
	}
	return e.queue.Submit(ctx, requests)
}

// GetPhraseBreakdown returns a detailed view of the sentence with sentenceID.
// Phrase extraction is rerun (or served from cache) with a request for more
// detail, and up to three learning tips are assembled, rule-based tips first.
func (e *Enricher) GetPhraseBreakdown(ctx context.Context, sentenceID string, sentences []Sentence) (Breakdown, error) {
	var found *Sentence
	for i := range sentences {
		if sentences[i].ID == sentenceID {
			found = &sentences[i]
			break
		}
	}
	if found == nil {
		return Breakdown{}, services.Wrap(services.ErrNotFound, "enrich", "phrase breakdown", "sentence "+sentenceID+" not in list", nil)
	}
	s := found.clone()
	ctx = services.WithStage(ctx, "breakdown")

	phrases := e.phrasesFor(ctx, s.OriginalText, "detailed breakdown with meanings and examples")
	if len(phrases) == 0 && len(s.Phrases) > 0 {
		phrases = s.Phrases
	}
	s.Phrases = phrases

	tips := ruleTips(s)
	if len(tips) < maxLearningTips {
		tips = appendUnique(tips, e.modelTips(ctx, s)...)
	}
	if len(tips) < 2 {
		tips = appendUnique(tips, genericTips...)
	}
	if len(tips) > maxLearningTips {
		tips = tips[:maxLearningTips]
	}

	translated := s.TranslatedText
	if strings.TrimSpace(translated) == "" {
		translated = s.OriginalText
	}
	return Breakdown{
		SentenceID:     s.ID,
		OriginalText:   s.OriginalText,
		TranslatedText: translated,
		Phrases:        phrases,
		Complexity:     s.Complexity,
		LearningTips:   tips,
	}, nil
}

func ruleTips(s Sentence) []string {
	tips := make([]string, 0, maxLearningTips)
	if s.Complexity.Level.AtLeast(LevelC1) {
		tips = append(tips, tipAdvanced)
	}
	for _, p := range s.Phrases {
		if p.Type == PhraseIdiom {
			tips = append(tips, tipIdioms)
			break
		}
	}
	if s.WordCount > 20 {
		tips = append(tips, tipLength)
	}
	return tips
}

func (e *Enricher) modelTips(ctx context.Context, s Sentence) []string {
	content, err := e.invoke(ctx, llm.TaskLearningTips, tipsPrompt(s), tipsMaxTokens)
	if err != nil {
		e.fallbackLogged(ctx, llm.TaskLearningTips, err)
		return nil
	}
	var tips []string
	if err := llm.DecodeLLMJSON(content, &tips); err != nil {
		e.fallbackLogged(ctx, llm.TaskLearningTips, err)
		return nil
	}
	out := make([]string, 0, len(tips))
	for _, tip := range tips {
		if tip = strings.TrimSpace(tip); tip != "" {
			out = append(out, tip)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
