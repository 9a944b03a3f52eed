package constants

import "strings"

type ParserStrategy string

const (
	StrategyGrammar  ParserStrategy = "grammar"
	StrategyAssisted ParserStrategy = "assisted"
	// StrategyAuto picks assisted when an extraction provider is configured.
	StrategyAuto ParserStrategy = "auto"
)

var allStrategies = []ParserStrategy{StrategyGrammar, StrategyAssisted, StrategyAuto}

// CanonicalizeStrategy maps user input (including a few synonyms) to a strategy.
// Unknown input falls back to StrategyAuto with ok=false.
func CanonicalizeStrategy(input string) (ParserStrategy, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return StrategyAuto, false
	}

	synonyms := map[string]ParserStrategy{
		"regex":         StrategyGrammar,
		"deterministic": StrategyGrammar,
		"ai":            StrategyAssisted,
		"llm":           StrategyAssisted,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}
	for _, s := range allStrategies {
		if normalized == string(s) {
			return s, true
		}
	}
	return StrategyAuto, false
}

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)
