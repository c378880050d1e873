package session

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesearch/internal/pipeline"
	"github.com/Aman-CERP/codesearch/internal/query"
	"github.com/Aman-CERP/codesearch/internal/search"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
	"github.com/Aman-CERP/codesearch/internal/store"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

// testRig wires a Session up to an in-memory net.Pipe connection, a real
// Pipeline/storemgr.Manager pair and a fake embedder, so messages sent
// through client can be asserted against the replies it reads back.
type testRig struct {
	client *json.Encoder
	reader *bufio.Reader
}

func (r *testRig) send(t *testing.T, msg ClientMessage) {
	t.Helper()
	require.NoError(t, r.client.Encode(msg))
}

func (r *testRig) recv(t *testing.T) ServerMessage {
	t.Helper()
	var msg ServerMessage
	dec := json.NewDecoder(r.reader)
	require.NoError(t, dec.Decode(&msg))
	return msg
}

func newTestRig(t *testing.T, batchSize int, batchIdle time.Duration) *testRig {
	t.Helper()
	dataDir := t.TempDir()
	mgr, err := storemgr.New(dataDir, store.DefaultVectorStoreConfig(8), store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	pl := pipeline.New(dataDir, mgr, &fakeEmbedder{dim: 8}, pipeline.DefaultConfig(), nil)
	t.Cleanup(func() { _ = pl.Close() })

	parser := query.NewParser(nil, nil)

	engineFor := func(ctx context.Context) (*search.Engine, error) {
		st, err := mgr.Ensure(ctx, "demo")
		if err != nil {
			return nil, err
		}
		return search.New(st.Sparse, st.Dense, &fakeEmbedder{dim: 8}, nil, parser, nil)
	}

	serverConn, clientConn := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sess := newSession(ctx, serverConn, "demo", pl, mgr, engineFor, batchSize, batchIdle, nil)
	go sess.serve()
	t.Cleanup(func() { _ = clientConn.Close() })

	return &testRig{
		client: json.NewEncoder(clientConn),
		reader: bufio.NewReader(clientConn),
	}
}

func TestSession_FirstFrameTriggersAck(t *testing.T) {
	r := newTestRig(t, 1, 50*time.Millisecond)

	r.send(t, ClientMessage{Type: TypePing})

	ack := r.recv(t)
	require.Equal(t, TypeAck, ack.Type)
	require.Equal(t, "demo", ack.Store)
	require.NotEmpty(t, ack.ConnID)

	pong := r.recv(t)
	require.Equal(t, TypePong, pong.Type)
}

func TestSession_FileMessageFlushesOnBatchSize(t *testing.T) {
	r := newTestRig(t, 1, time.Hour)

	r.send(t, ClientMessage{Type: TypeFile, Path: "pkg/a.go", Content: "package a\n\nfunc A() {}\n"})

	_ = r.recv(t) // ack
	indexed := r.recv(t)
	require.Equal(t, TypeIndexed, indexed.Type)
	require.Equal(t, 1, indexed.FilesCount)
	require.Greater(t, indexed.ChunksQueued, 0)
	require.NotEmpty(t, indexed.BatchID)
}

func TestSession_SearchReturnsResults(t *testing.T) {
	r := newTestRig(t, 1, time.Hour)

	r.send(t, ClientMessage{Type: TypeFile, Path: "pkg/a.go", Content: "package a\n\nfunc Greet() string { return \"hi\" }\n"})
	_ = r.recv(t) // ack
	_ = r.recv(t) // indexed

	r.send(t, ClientMessage{Type: TypeSearch, ReqID: "q1", Query: "Greet", TopK: 5})
	results := r.recv(t)
	require.Equal(t, TypeResults, results.Type)
	require.NotNil(t, results.ReqID)
	require.Equal(t, "q1", *results.ReqID)
}

func TestSession_DuplicateReqIDErrors(t *testing.T) {
	r := newTestRig(t, 1, time.Hour)

	r.send(t, ClientMessage{Type: TypeStats, ReqID: "s1"})
	_ = r.recv(t) // ack
	_ = r.recv(t) // stats_result

	r.send(t, ClientMessage{Type: TypeStats, ReqID: "s1"})
	errMsg := r.recv(t)
	require.Equal(t, TypeError, errMsg.Type)
	require.Equal(t, "duplicate_req_id", errMsg.Code)
}

func TestSession_DeleteReturnsCounts(t *testing.T) {
	r := newTestRig(t, 1, time.Hour)

	r.send(t, ClientMessage{Type: TypeFile, Path: "pkg/a.go", Content: "package a\n\nfunc A() {}\n"})
	_ = r.recv(t) // ack
	_ = r.recv(t) // indexed

	r.send(t, ClientMessage{Type: TypeDelete, ReqID: "d1", Paths: []string{"pkg/a.go"}})
	deleted := r.recv(t)
	require.Equal(t, TypeDeleted, deleted.Type)
	require.Greater(t, deleted.SparseDeleted, 0)
}

func TestSession_StatsReportsTrackedFiles(t *testing.T) {
	r := newTestRig(t, 1, time.Hour)

	r.send(t, ClientMessage{Type: TypeFile, Path: "pkg/a.go", Content: "package a\n\nfunc A() {}\n"})
	_ = r.recv(t) // ack
	_ = r.recv(t) // indexed

	r.send(t, ClientMessage{Type: TypeStats, ReqID: "st1"})
	stats := r.recv(t)
	require.Equal(t, TypeStatsResult, stats.Type)
	require.Equal(t, 1, stats.TrackedFiles)
}
