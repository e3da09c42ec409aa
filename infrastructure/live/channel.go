package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ukodus-galaxy/application/store"
	"ukodus-galaxy/domain/galaxy"
	"ukodus-galaxy/pkg/observability"
)

const (
	// Maximum message size allowed from the channel
	maxMessageSize = 512 * 1024 // 512KB

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to write a control message to the peer
	writeWait = 10 * time.Second
)

// Envelope is the wire shape of every live message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// newPuzzlePayload is the data of a new_puzzle message: a node plus the
// server-computed edges to merge in.
type newPuzzlePayload struct {
	galaxy.Node
	Edges []galaxy.Edge `json:"edges,omitempty" validate:"omitempty,dive"`
}

// playResultPayload is the data of a play_result message.
type playResultPayload struct {
	PuzzleHash string `json:"puzzle_hash" validate:"required"`
	PlayCount  int64  `json:"play_count" validate:"gte=0"`
}

// Channel consumes the push-based live update stream and applies each
// message to the graph store. Messages are delivered as discrete,
// non-overlapping callbacks from a single reader goroutine. On close or
// error a single reconnect is scheduled after a fixed delay and the
// cycle repeats indefinitely: disconnects are a liveness hiccup, not a
// fatal condition.
type Channel struct {
	url      string
	delay    time.Duration
	store    *store.GraphStore
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewChannel creates a live channel consumer for the given URL.
func NewChannel(url string, delay time.Duration, st *store.GraphStore, logger *zap.Logger, metrics *observability.Metrics) *Channel {
	return &Channel{
		url:      url,
		delay:    delay,
		store:    st,
		validate: validator.New(),
		logger:   logger,
		metrics:  metrics,
	}
}

// Run dials the channel and pumps messages until the context is
// cancelled, reconnecting after every drop.
func (c *Channel) Run(ctx context.Context) {
	for {
		if err := c.connectAndPump(ctx); err != nil {
			c.logger.Warn("Live channel dropped", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
			if c.metrics != nil {
				c.metrics.LiveReconnects.Inc()
			}
		}
	}
}

func (c *Channel) connectAndPump(ctx context.Context) error {
	connID := uuid.New().String()
	logger := c.logger.With(zap.String("connectionID", connID))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("Live channel connected", zap.String("url", c.url))

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Ping loop keeps intermediaries from idling the connection out.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.handleMessage(message, logger)
	}
}

// handleMessage applies one envelope to the store. Malformed or
// unrecognized shapes are dropped with a log line; they never crash the
// consumer.
func (c *Channel) handleMessage(raw []byte, logger *zap.Logger) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.drop(logger, "undecodable envelope", err)
		return
	}

	switch env.Type {
	case "new_puzzle":
		var payload newPuzzlePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.drop(logger, "undecodable new_puzzle", err)
			return
		}
		if err := c.validate.Struct(&payload); err != nil {
			c.drop(logger, "invalid new_puzzle", err)
			return
		}
		node := payload.Node
		c.store.AddLiveNode(&node, payload.Edges)

	case "play_result":
		var payload playResultPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.drop(logger, "undecodable play_result", err)
			return
		}
		if err := c.validate.Struct(&payload); err != nil {
			c.drop(logger, "invalid play_result", err)
			return
		}
		c.store.UpdatePlayCount(payload.PuzzleHash, payload.PlayCount)

	default:
		c.drop(logger, "unrecognized message type "+env.Type, nil)
		return
	}

	if c.metrics != nil {
		c.metrics.LiveMessages.WithLabelValues(env.Type).Inc()
	}
}

func (c *Channel) drop(logger *zap.Logger, reason string, err error) {
	if c.metrics != nil {
		c.metrics.LiveDropped.Inc()
	}
	logger.Warn("Dropped live message", zap.String("reason", reason), zap.Error(err))
}
