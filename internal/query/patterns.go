package query

import "strings"

// intentPattern pairs a phrase with the intent it signals. Order doesn't
// matter for correctness — matchLongest always picks the longest phrase
// present in the query — but phrases are grouped by intent for readability.
type intentPattern struct {
	phrase string
	intent ActionIntent
}

var intentPatterns = []intentPattern{
	{"where is", IntentFind},
	{"where are", IntentFind},
	{"find", IntentFind},
	{"locate", IntentFind},
	{"show me", IntentFind},
	{"search for", IntentFind},
	{"get", IntentFind},

	{"how does", IntentExplain},
	{"how do", IntentExplain},
	{"how is", IntentExplain},
	{"why does", IntentExplain},
	{"explain", IntentExplain},
	{"describe", IntentExplain},
	{"what is", IntentExplain},
	{"what does", IntentExplain},

	{"list all", IntentList},
	{"list", IntentList},
	{"show all", IntentList},
	{"enumerate", IntentList},

	{"fix", IntentFix},
	{"debug", IntentFix},
	{"resolve", IntentFix},
	{"why is", IntentFix},

	{"compare", IntentCompare},
	{"difference between", IntentCompare},
	{"vs", IntentCompare},
	{"versus", IntentCompare},
}

// targetPattern pairs a noun with the target type it signals.
type targetPattern struct {
	noun   string
	target TargetType
}

var targetPatterns = []targetPattern{
	{"function", TargetFunction},
	{"method", TargetFunction},
	{"func", TargetFunction},

	{"class", TargetClass},
	{"struct", TargetClass},
	{"interface", TargetClass},
	{"type", TargetClass},

	{"variable", TargetVariable},
	{"var", TargetVariable},
	{"field", TargetVariable},
	{"constant", TargetVariable},

	{"file", TargetFile},
	{"module", TargetFile},
	{"package", TargetFile},

	{"error", TargetError},
	{"exception", TargetError},
	{"panic", TargetError},
	{"failure", TargetError},

	{"test", TargetTest},
	{"spec", TargetTest},
	{"benchmark", TargetTest},

	{"config", TargetConfig},
	{"configuration", TargetConfig},
	{"setting", TargetConfig},
	{"option", TargetConfig},

	{"api", TargetAPI},
	{"endpoint", TargetAPI},
	{"route", TargetAPI},
	{"handler", TargetAPI},

	{"database", TargetDatabase},
	{"query", TargetDatabase},
	{"schema", TargetDatabase},
	{"table", TargetDatabase},

	{"auth", TargetAuth},
	{"authentication", TargetAuth},
	{"authorization", TargetAuth},
	{"login", TargetAuth},
	{"token", TargetAuth},
}

// matchIntent returns the longest intentPattern.phrase found in normalized,
// and IntentUnknown if none match.
func matchIntent(normalized string) ActionIntent {
	intent := IntentUnknown
	longest := -1
	for _, p := range intentPatterns {
		if strings.Contains(normalized, p.phrase) && len(p.phrase) > longest {
			intent = p.intent
			longest = len(p.phrase)
		}
	}
	return intent
}

// matchTarget returns the longest targetPattern.noun found among keywords,
// and TargetUnknown if none match.
func matchTarget(keywords []string) TargetType {
	target := TargetUnknown
	longest := -1
	for _, kw := range keywords {
		for _, p := range targetPatterns {
			if kw == p.noun && len(p.noun) > longest {
				target = p.target
				longest = len(p.noun)
			}
		}
	}
	return target
}

// leadingPatternPhrase returns the longest intent phrase that prefixes
// normalized, or "" if the intent wasn't matched via a leading phrase.
func leadingPatternPhrase(normalized string, intent ActionIntent) string {
	phrase := ""
	for _, p := range intentPatterns {
		if p.intent != intent {
			continue
		}
		if strings.HasPrefix(normalized, p.phrase) && len(p.phrase) > len(phrase) {
			phrase = p.phrase
		}
	}
	return phrase
}
