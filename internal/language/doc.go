// Package language normalizes the many ways caption tracks, flags, and model
// prompts name a language (ISO 639-1/2 codes, BCP-47 tags, English or native
// names) to one ISO 639-1 base code, on top of golang.org/x/text/language.
package language
