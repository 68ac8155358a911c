package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/multisite/internal/logger"
)

type frameKind string

const (
	kindCommand  frameKind = "command"
	kindResponse frameKind = "response"
)

// frame is the wire envelope shared by every transport.
type frame struct {
	Kind     frameKind `json:"kind"`
	Origin   string    `json:"origin"`
	Target   string    `json:"target,omitempty"`
	Command  *Command  `json:"command,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// awaitBuffer bounds the responses queued for one waiter.
const awaitBuffer = 16

// dispatcher implements handler registration, response correlation and
// frame decoding. Transports only move bytes.
type dispatcher struct {
	node    string
	logger  logger.Logger
	publish func(ctx context.Context, data []byte) error

	mu       sync.RWMutex
	handlers map[Type]Handler
	waiters  map[string]map[chan Response]struct{}
}

func newDispatcher(node string, log logger.Logger, publish func(context.Context, []byte) error) *dispatcher {
	return &dispatcher{
		node:     node,
		logger:   log,
		publish:  publish,
		handlers: make(map[Type]Handler),
		waiters:  make(map[string]map[chan Response]struct{}),
	}
}

func (d *dispatcher) NodeID() string { return d.node }

func (d *dispatcher) RegisterHandler(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

func (d *dispatcher) Broadcast(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("broadcast %s: %w", cmd.Type, err)
	}
	c := cmd
	return d.send(ctx, frame{Kind: kindCommand, Origin: d.node, Command: &c})
}

func (d *dispatcher) RespondTo(ctx context.Context, cmd Command, resp Response) error {
	if resp.JobID == "" {
		resp.JobID = cmd.JobID
	}
	if resp.Node == "" {
		resp.Node = d.node
	}
	return d.send(ctx, frame{Kind: kindResponse, Origin: d.node, Target: cmd.origin, Response: &resp})
}

func (d *dispatcher) Await(jobID string) (<-chan Response, func()) {
	ch := make(chan Response, awaitBuffer)

	d.mu.Lock()
	set, ok := d.waiters[jobID]
	if !ok {
		set = make(map[chan Response]struct{})
		d.waiters[jobID] = set
	}
	set[ch] = struct{}{}
	d.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.waiters[jobID], ch)
			if len(d.waiters[jobID]) == 0 {
				delete(d.waiters, jobID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (d *dispatcher) send(ctx context.Context, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Kind, err)
	}
	if err := d.publish(ctx, data); err != nil {
		return fmt.Errorf("publish %s frame: %w", f.Kind, err)
	}
	return nil
}

// deliver decodes one inbound frame and routes it. Bad input is dropped.
func (d *dispatcher) deliver(ctx context.Context, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		d.logger.Warn("dropping malformed command frame", logger.Error(err))
		return
	}
	if f.Origin == d.node {
		return
	}

	switch f.Kind {
	case kindCommand:
		d.handleCommand(ctx, f)
	case kindResponse:
		d.handleResponse(f)
	default:
		d.logger.Warn("dropping frame of unknown kind",
			logger.String("kind", string(f.Kind)),
			logger.String("origin", f.Origin))
	}
}

func (d *dispatcher) handleCommand(ctx context.Context, f frame) {
	if f.Command == nil {
		d.logger.Warn("dropping command frame without payload", logger.String("origin", f.Origin))
		return
	}
	cmd := *f.Command
	if err := cmd.Validate(); err != nil {
		d.logger.Warn("dropping invalid command",
			logger.String("origin", f.Origin),
			logger.Error(err))
		return
	}
	cmd.origin = f.Origin

	d.mu.RLock()
	h := d.handlers[cmd.Type]
	d.mu.RUnlock()
	if h == nil {
		d.logger.Debug("no handler for command", logger.String("type", string(cmd.Type)))
		return
	}

	d.logger.Debug("command received",
		logger.String("type", string(cmd.Type)),
		logger.Site(cmd.Site),
		logger.Job(cmd.JobID),
		logger.String("origin", f.Origin))

	go h(ctx, cmd)
}

func (d *dispatcher) handleResponse(f frame) {
	if f.Target != d.node || f.Response == nil {
		return
	}
	resp := *f.Response

	d.mu.RLock()
	defer d.mu.RUnlock()

	for ch := range d.waiters[resp.JobID] {
		select {
		case ch <- resp:
		default:
			d.logger.Warn("response dropped, waiter is full", logger.Job(resp.JobID))
		}
	}
}
