// Package jobs runs site activation and deactivation. A Job is one transition
// attempt: it persists the new active flag, then updates the routing
// registry. Jobs started locally are replayed on peers through the command
// channel.
package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/multisite/internal/commands"
)

// Transition is the state change a job performs.
type Transition int

const (
	Activate Transition = iota
	Deactivate
)

func (t Transition) String() string {
	if t == Activate {
		return "ACTIVATE_SITE"
	}
	return "DEACTIVATE_SITE"
}

// Command returns the command type replaying this transition on peers.
func (t Transition) Command() commands.Type {
	if t == Activate {
		return commands.ActivateSite
	}
	return commands.DeactivateSite
}

// TransitionFor maps a command type to its transition.
func TransitionFor(t commands.Type) (Transition, error) {
	switch t {
	case commands.ActivateSite:
		return Activate, nil
	case commands.DeactivateSite:
		return Deactivate, nil
	default:
		return 0, fmt.Errorf("no transition for command %q", t)
	}
}

// Job is a transient, one-shot transition. Its ID correlates peer responses
// with the initiator.
type Job struct {
	Name           string
	ID             string
	Site           string
	Transition     Transition
	RunAsInitiator bool
}

// New builds a job with a fresh id. Use WithID to replay a remote job.
func New(t Transition, siteUID string) *Job {
	return &Job{
		Name:       fmt.Sprintf("%s_%s", t, siteUID),
		ID:         uuid.NewString(),
		Site:       siteUID,
		Transition: t,
	}
}

// WithID sets an externally supplied id. Empty ids are ignored.
func (j *Job) WithID(id string) *Job {
	if id != "" {
		j.ID = id
	}
	return j
}

// AsInitiator marks the job as originating on this node.
func (j *Job) AsInitiator() *Job {
	j.RunAsInitiator = true
	return j
}

// Command returns the command peers need to replay the job.
func (j *Job) Command() commands.Command {
	return commands.Command{Type: j.Transition.Command(), Site: j.Site, JobID: j.ID}
}
