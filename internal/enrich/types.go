package enrich

import (
	"maps"
	"slices"
	"time"
)

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists the CEFR levels in ascending order.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l.rank() >= 0
}

// AtLeast reports whether l is at or above other.
func (l Level) AtLeast(other Level) bool {
	return l.Valid() && l.rank() >= other.rank()
}

func (l Level) rank() int {
	for i, candidate := range Levels {
		if candidate == l {
			return i
		}
	}
	return -1
}

// PhraseType classifies an extracted phrase.
type PhraseType string

const (
	PhraseIdiom        PhraseType = "idiom"
	PhraseExpression   PhraseType = "expression"
	PhrasePhrasalVerb  PhraseType = "phrasal_verb"
	PhraseCollocation  PhraseType = "collocation"
	PhraseCommonPhrase PhraseType = "common_phrase"
)

// Valid reports whether t is a known phrase type.
func (t PhraseType) Valid() bool {
	switch t {
	case PhraseIdiom, PhraseExpression, PhrasePhrasalVerb, PhraseCollocation, PhraseCommonPhrase:
		return true
	}
	return false
}

// Difficulty grades a phrase.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// VocabularyLevel grades the vocabulary of a sentence.
type VocabularyLevel string

const (
	VocabularyBasic        VocabularyLevel = "basic"
	VocabularyIntermediate VocabularyLevel = "intermediate"
	VocabularyAdvanced     VocabularyLevel = "advanced"
)

// Valid reports whether v is a known vocabulary level.
func (v VocabularyLevel) Valid() bool {
	return v == VocabularyBasic || v == VocabularyIntermediate || v == VocabularyAdvanced
}

// Phrase is an idiom, expression, or other multi-word unit found in a sentence.
type Phrase struct {
	Phrase     string     `json:"phrase" yaml:"phrase"`
	Type       PhraseType `json:"type" yaml:"type"`
	Meaning    string     `json:"meaning" yaml:"meaning"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Example    string     `json:"example" yaml:"example"`
}

// Complexity grades one sentence.
type Complexity struct {
	Level           Level           `json:"level"`
	Score           int             `json:"score"`
	GrammarPoints   []string        `json:"grammar_points"`
	VocabularyLevel VocabularyLevel `json:"vocabulary_level"`
	Tips            []string        `json:"tips"`
}

// Sentence is one enriched unit of an artifact.
type Sentence struct {
	ID             string     `json:"id"`
	OriginalText   string     `json:"original_text"`
	TranslatedText string     `json:"translated_text"`
	StartTime      float64    `json:"start_time"`
	Duration       float64    `json:"duration"`
	Phrases        []Phrase   `json:"phrases"`
	Complexity     Complexity `json:"complexity"`
	WordCount      int        `json:"word_count"`
	CharacterCount int        `json:"character_count"`
	HasIdioms      bool       `json:"has_idioms"`
}

// Insights aggregates statistics over an artifact's sentences.
type Insights struct {
	TotalSentences             int                `json:"total_sentences"`
	TotalWords                 int                `json:"total_words"`
	TotalPhrases               int                `json:"total_phrases"`
	AverageSentenceLength      int                `json:"average_sentence_length"`
	DifficultyDistribution     map[Level]int      `json:"difficulty_distribution"`
	MostCommonDifficulty       Level              `json:"most_common_difficulty"`
	PhraseTypeBreakdown        map[PhraseType]int `json:"phrase_type_breakdown"`
	RecommendedFocus           []string           `json:"recommended_focus"`
	EstimatedLearningTimeHours int                `json:"estimated_learning_time_hours"`
}

// Artifact is the enriched result for one (video, language) pair.
type Artifact struct {
	VideoID     string     `json:"video_id"`
	Language    string     `json:"language"`
	Sentences   []Sentence `json:"sentences"`
	Insights    Insights   `json:"insights"`
	ProcessedAt time.Time  `json:"processed_at"`
	// Degraded is set when the whole-pipeline passthrough fallback produced
	// the artifact.
	Degraded bool `json:"degraded,omitempty"`
	// Synthetic is set when the artifact was built from the development
	// placeholder transcript. Synthetic artifacts are never cached.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Breakdown is the detailed view of one sentence.
type Breakdown struct {
	SentenceID     string     `json:"sentence_id"`
	OriginalText   string     `json:"original_text"`
	TranslatedText string     `json:"translated_text"`
	Phrases        []Phrase   `json:"phrases"`
	Complexity     Complexity `json:"complexity"`
	LearningTips   []string   `json:"learning_tips"`
}

// Clone returns a deep copy of a.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	out := *a
	out.Sentences = make([]Sentence, len(a.Sentences))
	for i, s := range a.Sentences {
		out.Sentences[i] = s.clone()
	}
	out.Insights = a.Insights.clone()
	return &out
}

func (s Sentence) clone() Sentence {
	s.Phrases = slices.Clone(s.Phrases)
	s.Complexity = s.Complexity.clone()
	return s
}

func (c Complexity) clone() Complexity {
	c.GrammarPoints = slices.Clone(c.GrammarPoints)
	c.Tips = slices.Clone(c.Tips)
	return c
}

func (i Insights) clone() Insights {
	i.DifficultyDistribution = maps.Clone(i.DifficultyDistribution)
	i.PhraseTypeBreakdown = maps.Clone(i.PhraseTypeBreakdown)
	i.RecommendedFocus = slices.Clone(i.RecommendedFocus)
	return i
}
