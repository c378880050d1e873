package session

// Wire message type tags. Every frame is a single JSON object with a
// "type" discriminator; ClientMessage and ServerMessage carry the union
// of fields any message type might use, decoded/encoded loosely rather
// than through a sum type.

const (
	TypeFile    = "file"
	TypeSearch  = "search"
	TypeDelete  = "delete"
	TypeStats   = "stats"
	TypePing    = "ping"
	TypeAck     = "ack"
	TypeIndexed = "indexed"
	TypeResults = "results"
	TypeDeleted = "deleted"
	TypeStatsResult = "stats_result"
	TypePong    = "pong"
	TypeError   = "error"
)

// ClientMessage is the decoded shape of any client -> server frame. Only
// the fields relevant to Type are populated.
type ClientMessage struct {
	Type string `json:"type"`

	// file
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`

	// search / delete / stats share req_id
	ReqID string `json:"req_id,omitempty"`

	// search
	Query           string        `json:"query,omitempty"`
	TopK            int           `json:"top_k,omitempty"`
	Filters         *WireFilters  `json:"filters,omitempty"`
	IncludeContent  *bool         `json:"include_content,omitempty"`
	EnableReranking *bool         `json:"enable_reranking,omitempty"`

	// delete
	Paths      []string `json:"paths,omitempty"`
	PathPrefix string   `json:"path_prefix,omitempty"`
}

// WireFilters is the search message's "filters" object.
type WireFilters struct {
	PathPrefix string   `json:"path_prefix,omitempty"`
	Languages  []string `json:"languages,omitempty"`
}

// ServerMessage is the encoded shape of any server -> client frame. Only
// the fields relevant to Type are marshaled (empty ones are omitted).
type ServerMessage struct {
	Type string `json:"type"`

	// ack
	ConnID string `json:"conn_id,omitempty"`
	Store  string `json:"store,omitempty"`

	// indexed
	ChunksQueued int    `json:"chunks_queued,omitempty"`
	FilesCount   int    `json:"files_count,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`

	// results / deleted / stats_result / error share req_id
	ReqID *string `json:"req_id,omitempty"`

	// results
	Query        string       `json:"query,omitempty"`
	Results      []WireResult `json:"results,omitempty"`
	Total        int          `json:"total,omitempty"`
	SearchTimeMs int64        `json:"search_time_ms,omitempty"`

	// deleted
	SparseDeleted int `json:"sparse_deleted,omitempty"`
	DenseDeleted  int `json:"dense_deleted,omitempty"`

	// stats_result
	TrackedFiles int    `json:"tracked_files,omitempty"`
	TotalSize    int64  `json:"total_size,omitempty"`
	LastUpdated  string `json:"last_updated,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// WireResult is one entry of the results message's "results" array.
type WireResult struct {
	DocID      string   `json:"doc_id"`
	Path       string   `json:"path"`
	Language   string   `json:"language"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Content    string   `json:"content"`
	Symbols    []string `json:"symbols,omitempty"`
	FinalScore float64  `json:"final_score"`
}
