package commands

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/multisite/internal/logger"
)

// inboxSize bounds the frames queued for one local node.
const inboxSize = 256

// ErrChannelClosed is returned when publishing on a closed channel.
var ErrChannelClosed = errors.New("command channel closed")

// Hub connects LocalChannels living in the same process.
type Hub struct {
	mu      sync.RWMutex
	members map[string]*LocalChannel
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{members: make(map[string]*LocalChannel)}
}

// Join attaches a node to the hub. Joining twice with the same id replaces
// the previous member.
func (h *Hub) Join(nodeID string, log logger.Logger) *LocalChannel {
	lc := &LocalChannel{
		hub:   h,
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
	lc.dispatcher = newDispatcher(nodeID, log, lc.publish)

	h.mu.Lock()
	h.members[nodeID] = lc
	h.mu.Unlock()
	return lc
}

func (h *Hub) leave(nodeID string, lc *LocalChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.members[nodeID] == lc {
		delete(h.members, nodeID)
	}
}

func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range h.members {
		m.enqueue(data)
	}
}

// LocalChannel is an in-process Channel. With a hub of one it makes
// broadcasts no-ops, which is the single-node deployment.
type LocalChannel struct {
	*dispatcher
	hub   *Hub
	inbox chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

var _ Channel = (*LocalChannel)(nil)

func (lc *LocalChannel) publish(_ context.Context, data []byte) error {
	select {
	case <-lc.done:
		return ErrChannelClosed
	default:
	}
	lc.hub.fanOut(data)
	return nil
}

func (lc *LocalChannel) enqueue(data []byte) {
	select {
	case lc.inbox <- data:
	default:
		lc.logger.Warn("local command inbox full, dropping frame", logger.String("node", lc.node))
	}
}

// Start delivers queued frames until ctx is done or the channel is closed.
func (lc *LocalChannel) Start(ctx context.Context) error {
	go func() {
		for {
			select {
			case data := <-lc.inbox:
				lc.deliver(ctx, data)
			case <-lc.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (lc *LocalChannel) Close() error {
	lc.closeOnce.Do(func() {
		close(lc.done)
		lc.hub.leave(lc.node, lc)
	})
	return nil
}
