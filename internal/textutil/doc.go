// Package textutil provides text processing helpers shared by the enrichment
// stages: word and character counting, whitespace normalization, sentence
// boundary detection, and token overlap scoring for comparing model output with
// the source transcript.
//
// Tokenization is Unicode-aware: text is lowercased, split on anything that is
// not a letter or digit, and tokens shorter than 3 runes are dropped.
package textutil
