package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ukodus-galaxy/application/services"
	"ukodus-galaxy/application/store"
	"ukodus-galaxy/domain/galaxy"
)

func newTestStore() *store.GraphStore {
	synth := services.NewEdgeSynthesizer(services.DefaultWeights(), zap.NewNop())
	return store.New(synth, zap.NewNop(), nil)
}

func newTestChannel(url string, st *store.GraphStore) *Channel {
	return NewChannel(url, time.Millisecond, st, zap.NewNop(), nil)
}

// liveServer upgrades one connection, writes each message, then closes.
func liveServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, msg := range messages {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannel_NewPuzzleAppliedToStore(t *testing.T) {
	st := newTestStore()
	st.SetDataset(nil, nil)

	srv := liveServer(t, []string{
		`{"type": "new_puzzle", "data": {
			"puzzle_hash": "abc123",
			"difficulty": "Hard",
			"se_rating": 4.4,
			"techniques": ["HiddenSingle", "XWing"],
			"edges": [{"source": "abc123", "target": "zzz", "similarity": 0.6}]
		}}`,
	})
	defer srv.Close()

	err := newTestChannel(wsURL(srv), st).connectAndPump(context.Background())
	require.Error(t, err, "server close ends the pump")

	nodes, edges := st.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, edges)

	node, _, _ := st.Neighbors("abc123")
	require.NotNil(t, node)
	assert.Equal(t, int64(1), node.PlayCount, "fresh live nodes default to one play")
}

func TestChannel_PlayResultAppliedToStore(t *testing.T) {
	st := newTestStore()
	st.SetDataset([]*galaxy.Node{
		{ID: "abc123", Difficulty: galaxy.DifficultyHard, Techniques: []string{"XWing"}},
	}, nil)

	srv := liveServer(t, []string{
		`{"type": "play_result", "data": {"puzzle_hash": "abc123", "play_count": 12}}`,
	})
	defer srv.Close()

	newTestChannel(wsURL(srv), st).connectAndPump(context.Background())

	node, _, _ := st.Neighbors("abc123")
	require.NotNil(t, node)
	assert.Equal(t, int64(12), node.PlayCount)
}

func TestChannel_MalformedMessagesDropped(t *testing.T) {
	st := newTestStore()
	st.SetDataset(nil, nil)

	srv := liveServer(t, []string{
		`this is not json`,
		`{"type": "new_puzzle", "data": {"difficulty": "Hard"}}`, // missing puzzle_hash
		`{"type": "teleport", "data": {}}`,                      // unknown type
		`{"type": "play_result", "data": {"play_count": 5}}`,    // missing puzzle_hash
	})
	defer srv.Close()

	newTestChannel(wsURL(srv), st).connectAndPump(context.Background())

	nodes, edges := st.Counts()
	assert.Equal(t, 0, nodes, "malformed messages never mutate the store")
	assert.Equal(t, 0, edges)
}

func TestChannel_RunReconnectsUntilCancelled(t *testing.T) {
	st := newTestStore()
	st.SetDataset(nil, nil)

	var hashes = []string{"aaa", "bbb"}
	var served int
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if served >= len(hashes) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		hash := hashes[served]
		served++

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type": "new_puzzle", "data": {"puzzle_hash": "`+hash+`", "difficulty": "Easy"}}`))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		newTestChannel(wsURL(srv), st).Run(ctx)
		close(done)
	}()

	// Both connections deliver their node across the reconnect.
	assert.Eventually(t, func() bool {
		n, _ := st.Counts()
		return n == 2
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
