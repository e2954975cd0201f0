package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"

	"lingocast/internal/batch"
	"lingocast/internal/cache"
	"lingocast/internal/services"
	"lingocast/internal/services/llm"
	"lingocast/internal/transcript"
)

type fakeAI struct {
	mu      sync.Mutex
	enabled bool
	calls   map[llm.TaskType]int
	respond func(task llm.TaskType, messages []llm.Message) (string, error)
}

func newFakeAI(respond func(task llm.TaskType, messages []llm.Message) (string, error)) *fakeAI {
	return &fakeAI{enabled: true, calls: make(map[llm.TaskType]int), respond: respond}
}

func disabledAI() *fakeAI {
	return &fakeAI{calls: make(map[llm.TaskType]int)}
}

func (f *fakeAI) Enabled() bool { return f.enabled }

func (f *fakeAI) Invoke(_ context.Context, task llm.TaskType, messages []llm.Message, _ int) (string, error) {
	f.mu.Lock()
	f.calls[task]++
	f.mu.Unlock()
	if !f.enabled || f.respond == nil {
		return "", services.Wrap(services.ErrAIProcessing, "llm", string(task), "inference disabled", nil)
	}
	return f.respond(task, messages)
}

func (f *fakeAI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAI) count(task llm.TaskType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

func lastUser(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func scenarioEntries() []transcript.Entry {
	return []transcript.Entry{
		{Text: "Hello world.", Start: 0, Duration: 2},
		{Text: "This is a test", Start: 2, Duration: 3},
	}
}

func checkInsightInvariants(t *testing.T, a *Artifact) {
	t.Helper()
	if a.Insights.TotalSentences != len(a.Sentences) {
		t.Fatalf("TotalSentences = %d, want %d", a.Insights.TotalSentences, len(a.Sentences))
	}
	words, phrases, dist := 0, 0, 0
	for _, s := range a.Sentences {
		words += s.WordCount
		phrases += len(s.Phrases)
	}
	for level, count := range a.Insights.DifficultyDistribution {
		if count < 0 {
			t.Fatalf("negative count for %s", level)
		}
		dist += count
	}
	if a.Insights.TotalWords != words {
		t.Fatalf("TotalWords = %d, want %d", a.Insights.TotalWords, words)
	}
	if a.Insights.TotalPhrases != phrases {
		t.Fatalf("TotalPhrases = %d, want %d", a.Insights.TotalPhrases, phrases)
	}
	if dist != len(a.Sentences) {
		t.Fatalf("difficulty distribution sums to %d, want %d", dist, len(a.Sentences))
	}
}

func TestProcessTranscriptScenario(t *testing.T) {
	e := New(Config{Inference: disabledAI()})
	artifact, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v1", "en")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if len(artifact.Sentences) < 1 {
		t.Fatal("expected at least one sentence")
	}
	checkInsightInvariants(t, artifact)
	last := artifact.Sentences[len(artifact.Sentences)-1]
	if end := last.StartTime + last.Duration; end > 5+1e-9 {
		t.Fatalf("last sentence ends at %v, beyond the timeline", end)
	}
	if artifact.Sentences[0].OriginalText != "Hello world." || artifact.Sentences[1].OriginalText != "This is a test" {
		t.Fatalf("unexpected heuristic segmentation %+v", artifact.Sentences)
	}
}

func TestProcessTranscriptFallbackDeterminism(t *testing.T) {
	ai := disabledAI()
	e := New(Config{Inference: ai})
	entries := []transcript.Entry{
		{Text: "Really the exam was", Start: 0, Duration: 1.5},
		{Text: "a piece of cake.", Start: 1.5, Duration: 1.5},
		{Text: "We should talk about the extraordinary circumstances surrounding this", Start: 3, Duration: 4},
		{Text: "situation before anyone makes a final decision about it.", Start: 7, Duration: 3},
		{Text: "Nos vemos.", Start: 10, Duration: 1},
	}

	artifact, err := e.ProcessTranscript(context.Background(), entries, "v2", "es")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if ai.count(llm.TaskTranslation) == 0 {
		t.Fatal("expected translation attempts for non-English input")
	}
	if len(artifact.Sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %+v", len(artifact.Sentences), artifact.Sentences)
	}
	for _, s := range artifact.Sentences {
		if s.TranslatedText != s.OriginalText {
			t.Fatalf("expected identity translation, got %q for %q", s.TranslatedText, s.OriginalText)
		}
		if s.Complexity.Level != LevelA2 && s.Complexity.Level != LevelB1 {
			t.Fatalf("unexpected fallback level %s", s.Complexity.Level)
		}
	}
	first, second, third := artifact.Sentences[0], artifact.Sentences[1], artifact.Sentences[2]
	if !first.HasIdioms || len(first.Phrases) != 1 || first.Phrases[0].Phrase != "piece of cake" || first.Phrases[0].Difficulty != DifficultyEasy {
		t.Fatalf("expected table idiom match, got %+v", first)
	}
	if first.Complexity.Level != LevelA2 || first.Complexity.Score != 3 || first.Complexity.VocabularyLevel != VocabularyBasic {
		t.Fatalf("unexpected complexity for short sentence %+v", first.Complexity)
	}
	if second.Complexity.Level != LevelB1 || second.Complexity.Score != 6 || second.Complexity.VocabularyLevel != VocabularyIntermediate {
		t.Fatalf("unexpected complexity for long sentence %+v", second.Complexity)
	}
	if second.HasIdioms || third.HasIdioms {
		t.Fatal("expected no idioms outside table matches")
	}
	if second.StartTime != 3 || math.Abs(second.Duration-7) > 1e-9 {
		t.Fatalf("unexpected span for merged sentence: start=%v duration=%v", second.StartTime, second.Duration)
	}
	checkInsightInvariants(t, artifact)
	if artifact.Degraded {
		t.Fatal("per-stage fallbacks must not mark the artifact degraded")
	}
}

func systemPrompt(messages []llm.Message) string {
	for _, m := range messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func modelResponder(t *testing.T) func(llm.TaskType, []llm.Message) (string, error) {
	return func(task llm.TaskType, messages []llm.Message) (string, error) {
		user := lastUser(messages)
		switch task {
		case llm.TaskTranscriptFix:
			if !strings.Contains(systemPrompt(messages), "English captions") {
				t.Errorf("expected correction of English captions, got %q", systemPrompt(messages))
			}
			return "Hello world. This is a test.", nil
		case llm.TaskSentenceSplit:
			return "```json\n[{\"text\":\"Hello world.\",\"start\":0,\"duration\":2},{\"text\":\"This is a test.\",\"start\":2,\"duration\":3}]\n```", nil
		case llm.TaskPhraseExtract:
			if strings.Contains(user, "Hello world") {
				return `[{"phrase":"hello world","type":"common_phrase","meaning":"a greeting","difficulty":"easy","example":"Hello world, how are you?"}]`, nil
			}
			return `{"phrases":[]}`, nil
		case llm.TaskAnalysis:
			return `{"level":"a1","score":2,"grammar_points":["present simple"],"vocabulary_level":"basic","tips":["Note the article."]}`, nil
		case llm.TaskTranslation:
			if !strings.Contains(systemPrompt(messages), "into Spanish") {
				t.Errorf("expected translation into Spanish, got %q", systemPrompt(messages))
			}
			if strings.Contains(user, "Hello world") {
				return `"Hola mundo."`, nil
			}
			return "Esto es una prueba.", nil
		}
		t.Errorf("unexpected task %s", task)
		return "", errors.New("unexpected task")
	}
}

func TestProcessTranscriptUsesValidatedModelOutput(t *testing.T) {
	ai := newFakeAI(modelResponder(t))
	e := New(Config{Inference: ai})
	entries := []transcript.Entry{
		{Text: "hello world", Start: 0, Duration: 2},
		{Text: "this is a test", Start: 2, Duration: 3},
	}

	artifact, err := e.ProcessTranscript(context.Background(), entries, "v3", "es-MX")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if artifact.Language != "es" {
		t.Fatalf("expected normalized language es, got %q", artifact.Language)
	}
	if len(artifact.Sentences) != 2 {
		t.Fatalf("expected model segmentation, got %+v", artifact.Sentences)
	}
	s0, s1 := artifact.Sentences[0], artifact.Sentences[1]
	if s0.ID != "s-0" || s1.ID != "s-1" {
		t.Fatalf("unexpected ids %q %q", s0.ID, s1.ID)
	}
	if s0.OriginalText != "Hello world." || s1.OriginalText != "This is a test." {
		t.Fatalf("unexpected originals %q / %q", s0.OriginalText, s1.OriginalText)
	}
	if s0.TranslatedText != "Hola mundo." || s1.TranslatedText != "Esto es una prueba." {
		t.Fatalf("unexpected translations %q / %q", s0.TranslatedText, s1.TranslatedText)
	}
	if len(s0.Phrases) != 1 || s0.Phrases[0].Type != PhraseCommonPhrase || len(s1.Phrases) != 0 {
		t.Fatalf("unexpected phrases %+v / %+v", s0.Phrases, s1.Phrases)
	}
	if s0.Complexity.Level != LevelA1 || s0.Complexity.Score != 2 || s0.Complexity.GrammarPoints[0] != "present simple" {
		t.Fatalf("unexpected complexity %+v", s0.Complexity)
	}
	if ai.count(llm.TaskTranscriptFix) != 1 || ai.count(llm.TaskSentenceSplit) != 1 {
		t.Fatalf("unexpected stage calls %+v", ai.calls)
	}
	if ai.count(llm.TaskTranslation) != 2 || ai.count(llm.TaskPhraseExtract) != 2 || ai.count(llm.TaskAnalysis) != 2 {
		t.Fatalf("expected one fan-out per sentence, got %+v", ai.calls)
	}
}

func TestSubcallPanicFallsBackPerSentence(t *testing.T) {
	ai := newFakeAI(func(task llm.TaskType, messages []llm.Message) (string, error) {
		switch task {
		case llm.TaskAnalysis, llm.TaskTranslation:
			panic("model client exploded")
		case llm.TaskTranscriptFix:
			return lastUser(messages), nil
		}
		return "", services.Wrap(services.ErrAIProcessing, "llm", string(task), "boom", nil)
	})
	e := New(Config{Inference: ai})

	artifact, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v5", "fr")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if artifact.Degraded {
		t.Fatal("sub-call panics must not degrade the whole artifact")
	}
	for _, s := range artifact.Sentences {
		if s.TranslatedText != s.OriginalText {
			t.Fatalf("expected identity translation, got %q", s.TranslatedText)
		}
		if s.Complexity.Level != LevelA2 || s.Complexity.Score != 3 {
			t.Fatalf("expected rule-based complexity, got %+v", s.Complexity)
		}
	}
	checkInsightInvariants(t, artifact)
}

func TestProcessPlaceholderBypassesCaches(t *testing.T) {
	store := &memoryStore{rows: make(map[cache.ArtifactKey][]byte)}
	e := New(Config{Inference: disabledAI(), Store: store})

	artifact, err := e.ProcessPlaceholder(context.Background(), scenarioEntries(), "v7", "en")
	if err != nil {
		t.Fatalf("ProcessPlaceholder returned error: %v", err)
	}
	if !artifact.Synthetic {
		t.Fatal("expected placeholder artifact to be flagged synthetic")
	}
	if _, ok := e.Cached(context.Background(), "v7", "en"); ok {
		t.Fatal("placeholder artifact must not be cached")
	}
	if len(store.rows) != 0 {
		t.Fatalf("placeholder artifact must not be persisted, store has %d rows", len(store.rows))
	}

	built, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v7", "en")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if built.Synthetic {
		t.Fatal("real transcript must not inherit the synthetic flag")
	}
	if _, ok := e.Cached(context.Background(), "v7", "en"); !ok {
		t.Fatal("expected real artifact to be cached")
	}
}

func TestProcessTranscriptCachesArtifacts(t *testing.T) {
	ai := newFakeAI(func(task llm.TaskType, messages []llm.Message) (string, error) {
		if task == llm.TaskTranscriptFix {
			return lastUser(messages), nil
		}
		return "", services.Wrap(services.ErrAIProcessing, "llm", string(task), "boom", nil)
	})
	e := New(Config{Inference: ai})

	first, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v1", "en")
	if err != nil {
		t.Fatalf("first ProcessTranscript returned error: %v", err)
	}
	calls := ai.total()
	if calls == 0 {
		t.Fatal("expected inference calls on first run")
	}
	first.Sentences[0].OriginalText = "mutated by caller"

	second, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v1", "en")
	if err != nil {
		t.Fatalf("second ProcessTranscript returned error: %v", err)
	}
	if ai.total() != calls {
		t.Fatalf("expected no inference on cache hit, calls went %d -> %d", calls, ai.total())
	}
	third, _ := e.ProcessTranscript(context.Background(), scenarioEntries(), "v1", "en")
	if !reflect.DeepEqual(second, third) {
		t.Fatal("expected identical artifacts from cache")
	}
	if second.Sentences[0].OriginalText != "Hello world." {
		t.Fatal("caller mutation leaked into the cache")
	}
	if stats := e.CacheStats(); stats.Hits != 2 {
		t.Fatalf("expected 2 cache hits, got %+v", stats)
	}
}

func TestProcessTranscriptIgnoresCallerCancellation(t *testing.T) {
	e := New(Config{Inference: disabledAI()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	artifact, err := e.ProcessTranscript(ctx, scenarioEntries(), "v1", "en")
	if err != nil || len(artifact.Sentences) != 2 {
		t.Fatalf("expected completed artifact despite cancellation, got %v %v", artifact, err)
	}
}

func TestSegmentationRejectsInvalidModelOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"not json", "Sure! Here are the sentences."},
		{"empty list", "[]"},
		{"empty text", `[{"text":"  ","start":0,"duration":2},{"text":"This is a test","start":2,"duration":3}]`},
		{"decreasing starts", `[{"text":"This is a test","start":2,"duration":3},{"text":"Hello world.","start":0,"duration":2}]`},
		{"outside timeline", `[{"text":"Hello world. This is a test","start":0,"duration":60}]`},
		{"negative duration", `[{"text":"Hello world. This is a test","start":0,"duration":-1}]`},
		{"hallucinated text", `[{"text":"Completely unrelated sentence about cooking pasta","start":0,"duration":5}]`},
		{"wrong shape", `{"sentences":"Hello world."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := newFakeAI(func(task llm.TaskType, _ []llm.Message) (string, error) {
				if task == llm.TaskSentenceSplit {
					return tt.output, nil
				}
				return "", services.Wrap(services.ErrAIProcessing, "llm", string(task), "off", nil)
			})
			e := New(Config{Inference: ai})
			artifact, err := e.ProcessTranscript(context.Background(), scenarioEntries(), "v-"+tt.name, "en")
			if err != nil {
				t.Fatalf("ProcessTranscript returned error: %v", err)
			}
			got := make([]string, len(artifact.Sentences))
			for i, s := range artifact.Sentences {
				got[i] = s.OriginalText
			}
			if strings.Join(got, "|") != "Hello world.|This is a test" {
				t.Fatalf("expected heuristic segmentation, got %q", got)
			}
		})
	}
}

func TestPassthroughOnMalformedEntries(t *testing.T) {
	ai := newFakeAI(func(llm.TaskType, []llm.Message) (string, error) {
		return "", errors.New("should not be called")
	})
	e := New(Config{Inference: ai})
	entries := []transcript.Entry{
		{Text: "Second.", Start: 5, Duration: 1},
		{Text: "First?", Start: 1, Duration: 1},
		{Text: "   ", Start: 6, Duration: 1},
	}
	artifact, err := e.ProcessTranscript(context.Background(), entries, "v4", "de")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if !artifact.Degraded || ai.total() != 0 {
		t.Fatalf("expected passthrough without inference, degraded=%v calls=%d", artifact.Degraded, ai.total())
	}
	if len(artifact.Sentences) != 2 {
		t.Fatalf("expected 1:1 mapping of non-empty entries, got %d", len(artifact.Sentences))
	}
	for _, s := range artifact.Sentences {
		if s.TranslatedText != s.OriginalText || len(s.Phrases) != 0 || s.Complexity.Level != LevelA2 || s.Complexity.Score != 3 {
			t.Fatalf("unexpected passthrough sentence %+v", s)
		}
	}
	checkInsightInvariants(t, artifact)
}

func TestEmptyEntriesYieldEmptyArtifact(t *testing.T) {
	e := New(Config{})
	artifact, err := e.ProcessTranscript(context.Background(), nil, "v5", "")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if artifact.Language != "en" || len(artifact.Sentences) != 0 || !artifact.Degraded {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	if artifact.Insights.RecommendedFocus[0] != focusGeneral {
		t.Fatalf("expected default focus, got %v", artifact.Insights.RecommendedFocus)
	}
	checkInsightInvariants(t, artifact)
}

func TestProcessTranscriptRequiresVideoID(t *testing.T) {
	e := New(Config{})
	if _, err := e.ProcessTranscript(context.Background(), scenarioEntries(), " ", "en"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

type memoryStore struct {
	mu   sync.Mutex
	rows map[cache.ArtifactKey][]byte
}

func (m *memoryStore) Get(_ context.Context, key cache.ArtifactKey) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.rows[key]
	return payload, ok, nil
}

func (m *memoryStore) Put(_ context.Context, key cache.ArtifactKey, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = payload
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key cache.ArtifactKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func TestPersistedArtifactsSurviveRestart(t *testing.T) {
	store := &memoryStore{rows: make(map[cache.ArtifactKey][]byte)}
	first := New(Config{Inference: disabledAI(), Store: store})
	original, err := first.ProcessTranscript(context.Background(), scenarioEntries(), "v6", "en")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	var decoded Artifact
	if err := json.Unmarshal(store.rows[ArtifactKey("v6", "en")], &decoded); err != nil {
		t.Fatalf("persisted payload not decodable: %v", err)
	}

	ai := disabledAI()
	second := New(Config{Inference: ai, Store: store})
	restored, err := second.ProcessTranscript(context.Background(), scenarioEntries(), "v6", "en")
	if err != nil {
		t.Fatalf("ProcessTranscript returned error: %v", err)
	}
	if ai.total() != 0 {
		t.Fatalf("expected store hit without inference, got %d calls", ai.total())
	}
	if !restored.ProcessedAt.Equal(original.ProcessedAt) || len(restored.Sentences) != len(original.Sentences) {
		t.Fatalf("restored artifact differs: %+v vs %+v", restored, original)
	}

	if err := second.Invalidate(context.Background(), "v6", "en"); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	if _, ok := store.rows[ArtifactKey("v6", "en")]; ok {
		t.Fatal("expected invalidate to remove persisted row")
	}
	if _, err := second.ProcessTranscript(context.Background(), scenarioEntries(), "v6", "en"); err != nil {
		t.Fatalf("ProcessTranscript after invalidate returned error: %v", err)
	}
	if ai.total() == 0 {
		t.Fatal("expected recomputation after invalidate")
	}
}

func TestComputeInsights(t *testing.T) {
	idiom := Phrase{Phrase: "x", Type: PhraseIdiom}
	phrasal := Phrase{Phrase: "y", Type: PhrasePhrasalVerb}
	sentences := []Sentence{
		{WordCount: 4, Complexity: Complexity{Level: LevelB1}, Phrases: []Phrase{idiom, idiom, idiom}},
		{WordCount: 5, Complexity: Complexity{Level: LevelA2}, Phrases: []Phrase{idiom, idiom, idiom, phrasal}},
		{WordCount: 6, Complexity: Complexity{Level: LevelA2}, Phrases: []Phrase{phrasal, phrasal, phrasal}},
		{WordCount: 7, Complexity: Complexity{Level: LevelB1}},
	}
	got := computeInsights(sentences)
	if got.TotalSentences != 4 || got.TotalWords != 22 || got.TotalPhrases != 10 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.AverageSentenceLength != 6 {
		t.Fatalf("expected rounded average 6, got %d", got.AverageSentenceLength)
	}
	if got.MostCommonDifficulty != LevelB1 {
		t.Fatalf("expected first-seen tie break to B1, got %s", got.MostCommonDifficulty)
	}
	wantFocus := []string{focusIdioms, focusPhrasalVerbs, grammarFocus[LevelB1]}
	if !reflect.DeepEqual(got.RecommendedFocus, wantFocus) {
		t.Fatalf("unexpected focus %v", got.RecommendedFocus)
	}
	if got.PhraseTypeBreakdown[PhraseIdiom] != 6 || got.PhraseTypeBreakdown[PhrasePhrasalVerb] != 4 {
		t.Fatalf("unexpected breakdown %v", got.PhraseTypeBreakdown)
	}
	// (2*4 + 10) / 60 rounds to 0.
	if got.EstimatedLearningTimeHours != 0 {
		t.Fatalf("unexpected hours %d", got.EstimatedLearningTimeHours)
	}

	many := make([]Sentence, 40)
	for i := range many {
		many[i] = Sentence{WordCount: 3, Complexity: Complexity{Level: LevelC1}}
	}
	if hours := computeInsights(many).EstimatedLearningTimeHours; hours != 1 {
		t.Fatalf("expected 80 minutes to round to 1 hour, got %d", hours)
	}
}

func TestGetPhraseBreakdown(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 22))
	sentences := []Sentence{
		{ID: "s-0", OriginalText: "Hello there.", TranslatedText: "Hello there.", WordCount: 2, Complexity: basicComplexity()},
		{
			ID:             "s-1",
			OriginalText:   "It was a piece of cake " + long,
			TranslatedText: "",
			WordCount:      28,
			Complexity:     Complexity{Level: LevelC1, Score: 8},
			Phrases:        []Phrase{{Phrase: "piece of cake", Type: PhraseIdiom, Difficulty: DifficultyEasy}},
		},
	}

	e := New(Config{Inference: disabledAI()})
	got, err := e.GetPhraseBreakdown(context.Background(), "s-1", sentences)
	if err != nil {
		t.Fatalf("GetPhraseBreakdown returned error: %v", err)
	}
	if !reflect.DeepEqual(got.LearningTips, []string{tipAdvanced, tipIdioms, tipLength}) {
		t.Fatalf("expected rule tips first, got %v", got.LearningTips)
	}
	if got.TranslatedText != got.OriginalText || len(got.Phrases) != 1 {
		t.Fatalf("unexpected breakdown %+v", got)
	}

	simple, err := e.GetPhraseBreakdown(context.Background(), "s-0", sentences)
	if err != nil {
		t.Fatalf("GetPhraseBreakdown returned error: %v", err)
	}
	if n := len(simple.LearningTips); n < 2 || n > 3 {
		t.Fatalf("expected 2-3 tips, got %v", simple.LearningTips)
	}

	if _, err := e.GetPhraseBreakdown(context.Background(), "s-9", sentences); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPhraseBreakdownUsesModelTips(t *testing.T) {
	ai := newFakeAI(func(task llm.TaskType, _ []llm.Message) (string, error) {
		switch task {
		case llm.TaskLearningTips:
			return `["Notice the greeting.", "Say it with rising intonation.", "Use it with friends.", "Extra tip."]`, nil
		case llm.TaskPhraseExtract:
			return `[]`, nil
		}
		return "", errors.New("unexpected")
	})
	e := New(Config{Inference: ai})
	sentences := []Sentence{{ID: "s-0", OriginalText: "Hey, how are you?", WordCount: 4, Complexity: basicComplexity()}}
	got, err := e.GetPhraseBreakdown(context.Background(), "s-0", sentences)
	if err != nil {
		t.Fatalf("GetPhraseBreakdown returned error: %v", err)
	}
	if len(got.LearningTips) != 3 || got.LearningTips[0] != "Notice the greeting." {
		t.Fatalf("unexpected tips %v", got.LearningTips)
	}
}

func TestDirectOperations(t *testing.T) {
	ai := newFakeAI(func(task llm.TaskType, messages []llm.Message) (string, error) {
		switch task {
		case llm.TaskTranslation:
			return "Bonjour", nil
		case llm.TaskAnalysis:
			return `{"level":"Z9","score":4,"vocabulary_level":"basic"}`, nil
		case llm.TaskTranscriptFix:
			return "Something else entirely, about elephants.", nil
		}
		return "", errors.New("down")
	})
	e := New(Config{Inference: ai})
	ctx := context.Background()

	if got, _ := e.TranslateText(ctx, "Hello", "fr", ""); got != "Bonjour" {
		t.Fatalf("TranslateText = %q", got)
	}
	_, _ = e.TranslateText(ctx, "Hello", "fr", "")
	if ai.count(llm.TaskTranslation) != 1 {
		t.Fatalf("expected cached translation, got %d calls", ai.count(llm.TaskTranslation))
	}
	complexity, _ := e.AnalyzeComplexity(ctx, "Short one.")
	if complexity.Level != LevelA2 {
		t.Fatalf("expected fallback for invalid level, got %+v", complexity)
	}
	phrases, _ := e.ExtractPhrases(ctx, "By the way, thank you.", "")
	if len(phrases) != 2 || phrases[0].Phrase != "by the way" || phrases[1].Phrase != "thank you" {
		t.Fatalf("unexpected fallback phrases %+v", phrases)
	}
	fixed, _ := e.FixTranscript(ctx, "so today we talk about verbs and tenses", "en")
	if fixed != "so today we talk about verbs and tenses" {
		t.Fatalf("expected divergent correction to be rejected, got %q", fixed)
	}
	if _, err := e.TranslateText(ctx, "  ", "fr", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranslateBatch(t *testing.T) {
	ai := newFakeAI(func(task llm.TaskType, messages []llm.Message) (string, error) {
		text := lastUser(messages)
		if text == "fail" {
			return "", services.Wrap(services.ErrAIProcessing, "llm", "translation", "boom", nil)
		}
		return "tr:" + text, nil
	})
	q := batch.New(batch.Config{ChunkSize: 3, ChunkDelay: -1, Cooldown: -1})
	defer q.Close()
	e := New(Config{Inference: ai, Queue: q})

	texts := []string{"uno", "dos", "tres", "fail", "cinco", "seis", "siete"}
	outcomes, err := e.TranslateBatch(context.Background(), texts, "en")
	if err != nil {
		t.Fatalf("TranslateBatch returned error: %v", err)
	}
	if len(outcomes) != len(texts) {
		t.Fatalf("expected %d outcomes, got %d", len(texts), len(outcomes))
	}
	for i, outcome := range outcomes {
		if i == 3 {
			if !errors.Is(outcome.Err, services.ErrAIProcessing) {
				t.Fatalf("expected failure for %q, got %+v", texts[i], outcome)
			}
			continue
		}
		if outcome.Value != fmt.Sprintf("tr:%s", texts[i]) {
			t.Fatalf("unexpected outcome %d: %+v", i, outcome)
		}
	}

	noQueue := New(Config{Inference: ai})
	if _, err := noQueue.TranslateBatch(context.Background(), texts, "en"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without queue, got %v", err)
	}
}
