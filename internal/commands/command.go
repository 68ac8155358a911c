// Package commands carries site transition commands between nodes so that a
// transition started on one node is replayed on every peer.
//
// Delivery is best-effort: malformed or undeliverable frames are logged and
// dropped, never retried.
package commands

import (
	"context"
	"errors"
	"fmt"
)

// Type names a command.
type Type string

const (
	ActivateSite   Type = "activate_site"
	DeactivateSite Type = "deactivate_site"
)

// Valid reports whether t is a known command type.
func (t Type) Valid() bool {
	return t == ActivateSite || t == DeactivateSite
}

// Command asks peers to replay a site transition locally.
type Command struct {
	Type  Type   `json:"type"`
	Site  string `json:"site"`
	JobID string `json:"jobId"`

	// origin is the node that broadcast the command, set on receipt.
	origin string
}

// Origin returns the node that sent the command ("" for local commands).
func (c Command) Origin() string { return c.origin }

// Validate checks the command is well formed.
func (c Command) Validate() error {
	var errs []error
	if !c.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown type %q", c.Type))
	}
	if c.Site == "" {
		errs = append(errs, errors.New("missing site"))
	}
	if c.JobID == "" {
		errs = append(errs, errors.New("missing jobId"))
	}
	return errors.Join(errs...)
}

// Response reports the outcome of a replayed command to its initiator.
type Response struct {
	JobID  string `json:"jobId"`
	Node   string `json:"node,omitempty"`
	Error  string `json:"error,omitempty"`
	Result bool   `json:"result"`
}

// Handler processes one inbound command. It answers with Channel.RespondTo.
type Handler func(ctx context.Context, cmd Command)

// Channel is the process-to-process command transport.
type Channel interface {
	// NodeID identifies this process on the channel.
	NodeID() string
	// Broadcast sends cmd to every peer. The sender never receives it.
	Broadcast(ctx context.Context, cmd Command) error
	// RegisterHandler installs the handler for one command type.
	RegisterHandler(t Type, h Handler)
	// RespondTo sends resp back to the node that broadcast cmd.
	RespondTo(ctx context.Context, cmd Command, resp Response) error
	// Await returns the responses correlated to jobID until cancel is called.
	Await(jobID string) (<-chan Response, func())
	// Start begins receiving. Handlers run with ctx.
	Start(ctx context.Context) error
	Close() error
}
