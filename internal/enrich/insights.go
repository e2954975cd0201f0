package enrich

import "math"

const (
	focusIdioms       = "Idioms and expressions"
	focusPhrasalVerbs = "Phrasal verbs"
	focusGeneral      = "General comprehension and vocabulary"
)

var grammarFocus = map[Level]string{
	LevelA1: "Basic sentence structure and present tense",
	LevelA2: "Basic sentence structure and present tense",
	LevelB1: "Past tenses and connectors",
	LevelB2: "Conditionals and complex clauses",
	LevelC1: "Advanced grammar and nuanced vocabulary",
	LevelC2: "Advanced grammar and nuanced vocabulary",
}

// computeInsights reduces sentences into aggregate statistics. The result does
// not depend on sentence order except for tie-breaking the most common level,
// which favors the level seen first.
func computeInsights(sentences []Sentence) Insights {
	insights := Insights{
		TotalSentences:         len(sentences),
		DifficultyDistribution: make(map[Level]int),
		PhraseTypeBreakdown:    make(map[PhraseType]int),
	}
	firstSeen := make([]Level, 0, len(Levels))
	for _, s := range sentences {
		insights.TotalWords += s.WordCount
		insights.TotalPhrases += len(s.Phrases)
		level := s.Complexity.Level
		if _, ok := insights.DifficultyDistribution[level]; !ok {
			firstSeen = append(firstSeen, level)
		}
		insights.DifficultyDistribution[level]++
		for _, p := range s.Phrases {
			insights.PhraseTypeBreakdown[p.Type]++
		}
	}
	if insights.TotalSentences > 0 {
		insights.AverageSentenceLength = int(math.Round(float64(insights.TotalWords) / float64(insights.TotalSentences)))
	}

	best := 0
	for _, level := range firstSeen {
		if count := insights.DifficultyDistribution[level]; count > best {
			best = count
			insights.MostCommonDifficulty = level
		}
	}

	focus := make([]string, 0, 3)
	if insights.PhraseTypeBreakdown[PhraseIdiom] > 5 {
		focus = append(focus, focusIdioms)
	}
	if insights.PhraseTypeBreakdown[PhrasePhrasalVerb] > 3 {
		focus = append(focus, focusPhrasalVerbs)
	}
	if grammar, ok := grammarFocus[insights.MostCommonDifficulty]; ok {
		focus = append(focus, grammar)
	}
	if len(focus) == 0 {
		focus = append(focus, focusGeneral)
	}
	insights.RecommendedFocus = focus

	minutes := float64(2*insights.TotalSentences + insights.TotalPhrases)
	insights.EstimatedLearningTimeHours = int(math.Round(minutes / 60))
	return insights
}
