package query

// codeSynonyms maps natural-language vocabulary to code vocabulary so a query
// like "find the request handler" also expands to "req"/"Handler"/"route".
// Adapted from the hybrid engine's query-expansion dictionary: cross-language
// keyword variants (func/def/fn), common abbreviations (req/resp/ctx/cfg),
// and Go case variants (camelCase/PascalCase).
var codeSynonyms = map[string][]string{
	"function": {"func", "method", "fn", "def"},
	"method":   {"func", "fn", "def", "function"},
	"func":     {"function", "method", "def", "fn"},
	"def":      {"func", "function", "method"},
	"fn":       {"func", "function", "method", "def"},

	"class":     {"type", "struct", "interface"},
	"type":      {"class", "struct", "interface"},
	"struct":    {"class", "type", "structure"},
	"interface": {"protocol", "trait", "contract"},
	"object":    {"instance", "obj", "struct"},
	"instance":  {"object", "obj", "new"},

	"error":     {"err", "exception", "fail", "failure"},
	"err":       {"error"},
	"exception": {"error", "err", "panic"},
	"handle":    {"handler", "catch", "process"},
	"handler":   {"handle", "callback"},
	"retry":     {"attempt", "backoff"},
	"backoff":   {"retry", "delay", "exponential"},
	"panic":     {"fatal", "crash", "abort"},
	"recover":   {"catch", "handle", "rescue"},

	"request":  {"req", "http"},
	"req":      {"request", "http"},
	"response": {"resp", "reply"},
	"resp":     {"response", "reply"},
	"http":     {"request", "response", "web", "api"},
	"api":      {"endpoint", "handler", "route"},
	"endpoint": {"handler", "route", "api", "path"},
	"server":   {"serve", "listener", "daemon"},
	"client":   {"conn", "connection"},

	"context": {"ctx"},
	"ctx":     {"context"},
	"config":  {"cfg", "configuration", "settings", "options"},
	"cfg":     {"config", "configuration"},
	"options": {"opts", "config", "settings"},
	"opts":    {"options", "config"},
	"settings": {"config", "options", "preferences"},

	"database":   {"db", "store", "storage"},
	"db":         {"database", "store"},
	"store":      {"storage", "database", "repository", "db"},
	"storage":    {"store", "database", "persist"},
	"repository": {"repo", "store"},
	"repo":       {"repository", "store"},
	"insert":     {"add", "create", "save"},
	"update":     {"modify", "edit", "change"},
	"delete":     {"remove", "drop", "destroy"},

	"search":    {"find", "query", "lookup", "retrieve"},
	"find":      {"search", "get", "lookup", "query"},
	"index":     {"indexer", "indexing", "catalog"},
	"embed":     {"embedding", "embedder", "vector"},
	"embedding": {"embed", "vector"},
	"embedder":  {"embed", "embedding", "vector"},
	"vector":    {"embedding", "dense", "semantic"},
	"chunk":     {"segment", "block", "piece"},
	"token":     {"tokenize", "tokenizer", "word"},
	"parse":     {"parser", "parsing"},
	"ast":       {"tree", "syntax", "abstract"},

	"create": {"new", "make", "init", "initialize"},
	"new":    {"create", "make", "init"},
	"init":   {"initialize", "setup", "new"},
	"get":    {"fetch", "retrieve", "read", "load"},
	"set":    {"put", "assign", "write", "store"},
	"read":   {"get", "load", "fetch"},
	"write":  {"save", "store", "put"},
	"load":   {"read", "get", "fetch", "parse"},
	"save":   {"write", "store", "persist"},
	"close":  {"shutdown", "stop", "cleanup"},
	"start":  {"begin", "run", "launch", "init"},
	"stop":   {"halt", "end", "close", "shutdown"},
	"run":    {"execute", "start", "process"},

	"test":   {"testing", "spec", "check", "verify"},
	"mock":   {"fake", "stub", "spy"},
	"assert": {"expect", "require", "check"},
	"bench":  {"benchmark", "perf"},

	"async":     {"goroutine", "concurrent", "parallel"},
	"goroutine": {"async", "concurrent", "go"},
	"channel":   {"chan", "pipe"},
	"chan":      {"channel", "pipe"},
	"mutex":     {"lock", "sync"},
	"lock":      {"mutex", "sync"},
	"wait":      {"block", "await", "sync"},
	"sync":      {"synchronize", "wait", "concurrent"},

	"file":      {"path", "filesystem"},
	"path":      {"file", "filepath", "directory"},
	"directory": {"dir", "folder", "path"},
	"dir":       {"directory", "folder"},
	"reader":    {"read", "input", "stream"},
	"writer":    {"write", "output", "stream"},

	"log":   {"logger", "logging"},
	"debug": {"trace", "verbose", "log"},
	"warn":  {"warning", "alert"},
	"fatal": {"panic", "critical", "error"},

	"implementation": {"impl", "implement"},
	"where":          {"location", "file", "path"},
	"how":            {"implementation", "logic"},
	"what":           {"definition", "type"},
	"parameter":      {"param", "arg", "argument"},
	"argument":       {"arg", "param", "parameter"},
}

// synonymsOf returns the synonyms registered for term, or nil.
func synonymsOf(term string) []string {
	return codeSynonyms[term]
}

// codeVocabulary is every term that appears anywhere in codeSynonyms, as a
// key or as one of its synonyms. A keyword is a "code term" if it is a
// member of this set.
var codeVocabulary = buildCodeVocabulary()

func buildCodeVocabulary() map[string]struct{} {
	vocab := make(map[string]struct{}, len(codeSynonyms)*4)
	for term, synonyms := range codeSynonyms {
		vocab[term] = struct{}{}
		for _, s := range synonyms {
			vocab[s] = struct{}{}
		}
	}
	return vocab
}

// isCodeTerm reports whether term is a code-domain vocabulary entry, either
// as a synonym-table key or as one of another key's synonyms.
func isCodeTerm(term string) bool {
	_, ok := codeVocabulary[term]
	return ok
}
