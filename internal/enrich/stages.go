package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"lingocast/internal/cache"
	"lingocast/internal/language"
	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/services/llm"
	"lingocast/internal/textutil"
	"lingocast/internal/transcript"
)

const (
	// maxCorrectionRunes bounds the text sent for correction in one request.
	maxCorrectionRunes = 12000
	// segmentationWindow is the number of entries segmented per request.
	segmentationWindow = 120
	// minCoverageSimilarity is the lowest token similarity accepted between
	// model output and the source text.
	minCoverageSimilarity = 0.5
	timelineTolerance     = 1.0
)

var errInferenceUnavailable = errors.New("inference client not configured")

// invoke calls the inference client, treating a missing client as a failure.
func (e *Enricher) invoke(ctx context.Context, task llm.TaskType, messages []llm.Message, maxTokens int) (string, error) {
	if e.ai == nil {
		return "", services.Wrap(services.ErrAIProcessing, "enrich", string(task), "", errInferenceUnavailable)
	}
	return e.ai.Invoke(ctx, task, messages, maxTokens)
}

func (e *Enricher) fallbackLogged(ctx context.Context, task llm.TaskType, err error) {
	logging.WithContext(ctx, e.logger).Debug("using fallback heuristic",
		logging.String(logging.FieldTask, string(task)),
		logging.String("reason", services.Kind(err)),
		logging.Error(err),
	)
}

// correct returns punctuation-restored text, or raw when correction fails.
func (e *Enricher) correct(ctx context.Context, raw, lang string) string {
	if utf8.RuneCountInString(raw) > maxCorrectionRunes {
		return raw
	}
	fixed, err := e.fixText(ctx, raw, lang)
	if err != nil {
		e.fallbackLogged(ctx, llm.TaskTranscriptFix, err)
		return raw
	}
	return fixed
}

func (e *Enricher) fixText(ctx context.Context, raw, lang string) (string, error) {
	content, err := e.invoke(ctx, llm.TaskTranscriptFix, fixPrompt(raw, lang), fixMaxTokens)
	if err != nil {
		return "", err
	}
	fixed := textutil.CollapseWhitespace(stripQuotes(content))
	if fixed == "" {
		return "", services.Wrap(services.ErrParse, "enrich", "transcript fix", "empty correction", nil)
	}
	if !covers(raw, fixed) {
		return "", services.Wrap(services.ErrParse, "enrich", "transcript fix", "correction diverges from source text", nil)
	}
	return fixed, nil
}

// segment splits entries into sentences, window by window. Each window uses
// the model when its output validates and the heuristic otherwise.
func (e *Enricher) segment(ctx context.Context, entries []transcript.Entry, corrected, lang string) []segment {
	out := make([]segment, 0, len(entries)/2+1)
	single := len(entries) <= segmentationWindow
	for start := 0; start < len(entries); start += segmentationWindow {
		window := entries[start:min(start+segmentationWindow, len(entries))]
		reference := ""
		if single {
			reference = corrected
		}
		segments, err := e.segmentWithModel(ctx, window, reference, lang)
		if err != nil {
			e.fallbackLogged(ctx, llm.TaskSentenceSplit, err)
			segments = fallbackSegments(window)
		}
		out = append(out, segments...)
	}
	return out
}

func (e *Enricher) segmentWithModel(ctx context.Context, window []transcript.Entry, reference, lang string) ([]segment, error) {
	input := make([]segment, 0, len(window))
	for _, entry := range window {
		input = append(input, segment{Text: entry.Text, Start: entry.Start, Duration: entry.Duration})
	}
	content, err := e.invoke(ctx, llm.TaskSentenceSplit, splitPrompt(input, reference, lang), splitMaxTokens)
	if err != nil {
		return nil, err
	}
	var segments []segment
	if err := llm.DecodeLLMJSON(content, &segments); err != nil {
		return nil, err
	}
	if err := validateSegments(segments, window); err != nil {
		return nil, services.Wrap(services.ErrParse, "enrich", "sentence split", "model output rejected", err)
	}
	for i := range segments {
		segments[i].Text = textutil.CollapseWhitespace(segments[i].Text)
	}
	return segments, nil
}

// validateSegments checks model segmentation against the source window.
func validateSegments(segments []segment, window []transcript.Entry) error {
	if len(segments) == 0 {
		return errors.New("no sentences returned")
	}
	first, end := transcript.Span(window)
	prev := -1.0
	texts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("sentence %d has empty text", i)
		}
		if !isFinite(seg.Start) || !isFinite(seg.Duration) || seg.Start < 0 || seg.Duration < 0 {
			return fmt.Errorf("sentence %d has invalid timing", i)
		}
		if seg.Start < prev {
			return fmt.Errorf("sentence %d starts before sentence %d", i, i-1)
		}
		if seg.Start < first-timelineTolerance || seg.Start+seg.Duration > end+timelineTolerance {
			return fmt.Errorf("sentence %d falls outside %.2f-%.2fs", i, first, end)
		}
		prev = seg.Start
		texts = append(texts, seg.Text)
	}
	if !covers(transcript.JoinText(window), strings.Join(texts, " ")) {
		return errors.New("sentences do not cover the caption text")
	}
	return nil
}

// covers reports whether candidate carries substantially the same words as
// source. Texts too short to fingerprint are accepted.
func covers(source, candidate string) bool {
	score, ok := textutil.Overlap(source, candidate)
	return !ok || score >= minCoverageSimilarity
}

// analyzeSentence fans out the per-sentence sub-calls and joins them.
func (e *Enricher) analyzeSentence(ctx context.Context, index int, seg segment, lang string) Sentence {
	text := textutil.CollapseWhitespace(seg.Text)
	var (
		wg         sync.WaitGroup
		phrases    []Phrase
		complexity Complexity
		translated = text
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer e.recoverSubcall(ctx, llm.TaskPhraseExtract, func() { phrases = fallbackPhrases(text) })
		phrases = e.phrasesFor(ctx, text, "")
	}()
	go func() {
		defer wg.Done()
		defer e.recoverSubcall(ctx, llm.TaskAnalysis, func() { complexity = fallbackComplexity(text) })
		complexity = e.complexityFor(ctx, text)
	}()
	// Captions are English study material; lang names the learner's
	// translation target.
	if !language.IsEnglish(lang) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.recoverSubcall(ctx, llm.TaskTranslation, func() { translated = text })
			translated = e.translationFor(ctx, text, lang, "")
		}()
	}
	wg.Wait()
	return newSentence(index, seg, translated, phrases, complexity)
}

// recoverSubcall turns a panic in one fan-out sub-call into that sub-call's
// fallback. It must be deferred directly.
func (e *Enricher) recoverSubcall(ctx context.Context, task llm.TaskType, fallback func()) {
	r := recover()
	if r == nil {
		return
	}
	logging.WithContext(ctx, e.logger).Error("sentence sub-call panicked; using fallback",
		logging.String(logging.FieldTask, string(task)),
		logging.Any("panic", r),
		logging.String(logging.FieldEventType, "subcall_panic"),
	)
	fallback()
}

func newSentence(index int, seg segment, translated string, phrases []Phrase, complexity Complexity) Sentence {
	text := textutil.CollapseWhitespace(seg.Text)
	if strings.TrimSpace(translated) == "" {
		translated = text
	}
	hasIdioms := false
	for _, p := range phrases {
		if p.Type == PhraseIdiom {
			hasIdioms = true
			break
		}
	}
	return Sentence{
		ID:             fmt.Sprintf("s-%d", index),
		OriginalText:   text,
		TranslatedText: translated,
		StartTime:      seg.Start,
		Duration:       seg.Duration,
		Phrases:        phrases,
		Complexity:     complexity,
		WordCount:      textutil.WordCount(text),
		CharacterCount: textutil.CharacterCount(text),
		HasIdioms:      hasIdioms,
	}
}

// phrasesFor returns cached, model, or table-matched phrases for text.
func (e *Enricher) phrasesFor(ctx context.Context, text, hint string) []Phrase {
	key := cache.NewContentKey(string(llm.TaskPhraseExtract), text, hint)
	if cached, ok := e.phrases.Get(key); ok {
		return clonePhrases(cached)
	}
	phrases, err := e.extractWithModel(ctx, text, hint)
	if err != nil {
		e.fallbackLogged(ctx, llm.TaskPhraseExtract, err)
		return fallbackPhrases(text)
	}
	e.phrases.Set(key, phrases)
	return clonePhrases(phrases)
}

func (e *Enricher) extractWithModel(ctx context.Context, text, hint string) ([]Phrase, error) {
	content, err := e.invoke(ctx, llm.TaskPhraseExtract, phrasePrompt(text, hint), phraseMaxTokens)
	if err != nil {
		return nil, err
	}
	phrases, err := decodePhrases(content)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "enrich", "phrase extract", "model output rejected", err)
	}
	return phrases, nil
}

// decodePhrases accepts a bare array or an object with a "phrases" array and
// validates every item.
func decodePhrases(content string) ([]Phrase, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, err
	}
	var phrases []Phrase
	if err := json.Unmarshal(raw, &phrases); err != nil {
		var wrapped struct {
			Phrases *[]Phrase `json:"phrases"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Phrases == nil {
			return nil, errors.New("expected an array of phrases")
		}
		phrases = *wrapped.Phrases
	}
	out := make([]Phrase, 0, len(phrases))
	for i, p := range phrases {
		p.Phrase = strings.TrimSpace(p.Phrase)
		p.Type = PhraseType(strings.ToLower(strings.TrimSpace(string(p.Type))))
		p.Difficulty = Difficulty(strings.ToLower(strings.TrimSpace(string(p.Difficulty))))
		if p.Phrase == "" {
			return nil, fmt.Errorf("phrase %d is empty", i)
		}
		if !p.Type.Valid() {
			return nil, fmt.Errorf("phrase %d has unknown type %q", i, p.Type)
		}
		if !p.Difficulty.Valid() {
			return nil, fmt.Errorf("phrase %d has unknown difficulty %q", i, p.Difficulty)
		}
		out = append(out, p)
	}
	return out, nil
}

// complexityFor returns cached, model, or rule-based complexity for text.
func (e *Enricher) complexityFor(ctx context.Context, text string) Complexity {
	key := cache.NewContentKey(string(llm.TaskAnalysis), text)
	if cached, ok := e.complexities.Get(key); ok {
		return cached.clone()
	}
	complexity, err := e.gradeWithModel(ctx, text)
	if err != nil {
		e.fallbackLogged(ctx, llm.TaskAnalysis, err)
		return fallbackComplexity(text)
	}
	e.complexities.Set(key, complexity)
	return complexity.clone()
}

func (e *Enricher) gradeWithModel(ctx context.Context, text string) (Complexity, error) {
	content, err := e.invoke(ctx, llm.TaskAnalysis, complexityPrompt(text), complexityMaxTokens)
	if err != nil {
		return Complexity{}, err
	}
	var c Complexity
	if err := llm.DecodeLLMJSON(content, &c); err != nil {
		return Complexity{}, err
	}
	c.Level = Level(strings.ToUpper(strings.TrimSpace(string(c.Level))))
	c.VocabularyLevel = VocabularyLevel(strings.ToLower(strings.TrimSpace(string(c.VocabularyLevel))))
	switch {
	case !c.Level.Valid():
		return Complexity{}, services.Wrap(services.ErrParse, "enrich", "analysis", fmt.Sprintf("unknown level %q", c.Level), nil)
	case c.Score < 1 || c.Score > 10:
		return Complexity{}, services.Wrap(services.ErrParse, "enrich", "analysis", fmt.Sprintf("score %d out of range", c.Score), nil)
	case !c.VocabularyLevel.Valid():
		return Complexity{}, services.Wrap(services.ErrParse, "enrich", "analysis", fmt.Sprintf("unknown vocabulary level %q", c.VocabularyLevel), nil)
	}
	if c.GrammarPoints == nil {
		c.GrammarPoints = []string{}
	}
	if c.Tips == nil {
		c.Tips = []string{}
	}
	return c, nil
}

// translationFor returns a cached or model translation, or text itself.
func (e *Enricher) translationFor(ctx context.Context, text, target, hint string) string {
	translated, err := e.translateCached(ctx, text, target, hint)
	if err != nil {
		e.fallbackLogged(ctx, llm.TaskTranslation, err)
		return text
	}
	return translated
}

func (e *Enricher) translateCached(ctx context.Context, text, target, hint string) (string, error) {
	key := cache.NewContentKey(string(llm.TaskTranslation), text, target, hint)
	if cached, ok := e.translations.Get(key); ok {
		return cached, nil
	}
	content, err := e.invoke(ctx, llm.TaskTranslation, translatePrompt(text, target, hint), translateMaxTokens)
	if err != nil {
		return "", err
	}
	translated := strings.TrimSpace(stripQuotes(content))
	if translated == "" {
		return "", services.Wrap(services.ErrParse, "enrich", "translation", "empty translation", nil)
	}
	e.translations.Set(key, translated)
	return translated, nil
}

func clonePhrases(in []Phrase) []Phrase {
	out := make([]Phrase, len(in))
	copy(out, in)
	return out
}

// stripQuotes removes one pair of wrapping quotes models sometimes add.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}
