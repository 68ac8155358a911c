package jobs

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/logger"
)

// RegisterCommandHandlers installs the inbound handlers on the runner's
// channel. Without a channel it does nothing.
func (r *Runner) RegisterCommandHandlers() {
	if r.channel == nil {
		return
	}
	r.channel.RegisterHandler(commands.ActivateSite, r.onActivateSiteCommand)
	r.channel.RegisterHandler(commands.DeactivateSite, r.onDeactivateSiteCommand)
}

func (r *Runner) onActivateSiteCommand(ctx context.Context, cmd commands.Command) {
	r.replay(ctx, Activate, cmd)
}

func (r *Runner) onDeactivateSiteCommand(ctx context.Context, cmd commands.Command) {
	r.replay(ctx, Deactivate, cmd)
}

// replay runs a peer's job locally under the peer's job id and reports back.
func (r *Runner) replay(ctx context.Context, t Transition, cmd commands.Command) {
	job := New(t, cmd.Site).WithID(cmd.JobID)

	if !r.track() {
		r.logger.Debug("ignoring command, runner stopped",
			logger.Job(job.ID),
			logger.Site(job.Site),
			logger.String("origin", cmd.Origin()))
		return
	}
	defer r.wg.Done()

	ctx, span := r.startSpan(ctx, spanReplay, job, attrOrigin.String(cmd.Origin()))
	_, err := r.run(ctx, job)
	endSpan(span, err)

	resp := commands.Response{JobID: job.ID, Result: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if rerr := r.channel.RespondTo(ctx, cmd, resp); rerr != nil {
		r.logger.Warn("failed to answer command",
			logger.Job(job.ID),
			logger.Site(job.Site),
			logger.String("origin", cmd.Origin()),
			logger.Error(rerr))
	}
}

// propagate broadcasts a finished initiator job and logs peer responses in
// the background until the command timeout.
func (r *Runner) propagate(ctx context.Context, job *Job) {
	if r.channel == nil {
		return
	}

	responses, cancel := r.channel.Await(job.ID)
	if err := r.channel.Broadcast(ctx, job.Command()); err != nil {
		cancel()
		r.logger.Warn("failed to broadcast site transition",
			logger.Job(job.ID),
			logger.Site(job.Site),
			logger.Error(err))
		return
	}

	if !r.track() {
		cancel()
		return
	}
	go func() {
		defer r.wg.Done()
		defer cancel()

		timer := time.NewTimer(r.opts.CommandTimeout)
		defer timer.Stop()

		peers := 0
		for {
			select {
			case resp, ok := <-responses:
				if !ok {
					return
				}
				peers++
				if resp.Error != "" {
					r.logger.Warn("peer failed to replay site transition",
						logger.Job(resp.JobID),
						logger.Site(job.Site),
						logger.String("node", resp.Node),
						logger.String("error", resp.Error))
					continue
				}
				r.logger.Debug("peer replayed site transition",
					logger.Job(resp.JobID),
					logger.String("node", resp.Node))
			case <-timer.C:
				r.logger.Debug("stopped collecting peer responses",
					logger.Job(job.ID),
					logger.Int("responses", peers))
				return
			}
		}
	}()
}
