package llm

import "strings"

// TaskType labels which model and prompt family an inference call uses.
type TaskType string

const (
	TaskTranscriptFix TaskType = "transcript_fix"
	TaskSentenceSplit TaskType = "sentence_split"
	TaskPhraseExtract TaskType = "phrase_extract"
	TaskTranslation   TaskType = "translation"
	TaskAnalysis      TaskType = "analysis"
	TaskLearningTips  TaskType = "learning_tips"
)

// Tasks lists every task type in a stable order.
func Tasks() []TaskType {
	return []TaskType{
		TaskTranscriptFix,
		TaskSentenceSplit,
		TaskPhraseExtract,
		TaskTranslation,
		TaskAnalysis,
		TaskLearningTips,
	}
}

const defaultModel = "meta-llama/llama-3.1-8b-instruct"

var builtinModels = map[TaskType]string{
	TaskTranscriptFix: "meta-llama/llama-3.1-8b-instruct",
	TaskSentenceSplit: "meta-llama/llama-3.1-8b-instruct",
	TaskPhraseExtract: "meta-llama/llama-3.1-70b-instruct",
	TaskTranslation:   "meta-llama/llama-3.1-70b-instruct",
	TaskAnalysis:      "meta-llama/llama-3.1-8b-instruct",
	TaskLearningTips:  "meta-llama/llama-3.1-8b-instruct",
}

// modelTable is built once per client and never mutated afterwards.
type modelTable struct {
	byTask   map[TaskType]string
	fallback string
}

func newModelTable(fallback string, overrides map[string]string) modelTable {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = defaultModel
	}
	table := modelTable{byTask: make(map[TaskType]string, len(builtinModels)), fallback: fallback}
	for task, model := range builtinModels {
		table.byTask[task] = model
	}
	for task, model := range overrides {
		key := TaskType(strings.ToLower(strings.TrimSpace(task)))
		if model = strings.TrimSpace(model); key != "" && model != "" {
			table.byTask[key] = model
		}
	}
	return table
}

func (t modelTable) lookup(task TaskType) string {
	if model, ok := t.byTask[task]; ok {
		return model
	}
	return t.fallback
}
