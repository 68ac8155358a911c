package sites

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/multisite/internal/store"
)

// Collisions holds how many other sites already use a display name or hostname.
type Collisions struct {
	DisplayName int
	Hostname    int
}

// Any reports whether either count is nonzero.
func (c Collisions) Any() bool { return c.DisplayName > 0 || c.Hostname > 0 }

// Validator checks display name and hostname uniqueness.
type Validator struct {
	store store.Store
}

func NewValidator(s store.Store) *Validator {
	return &Validator{store: s}
}

// CountCollisions runs both counts concurrently. excludeID, when set, removes
// that record from both counts.
func (v *Validator) CountCollisions(ctx context.Context, displayName, hostname, excludeID string) (Collisions, error) {
	var c Collisions
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if displayName == "" {
			return nil
		}
		n, err := v.store.Count(gctx, store.Filter{DisplayName: displayName, ExcludeID: excludeID})
		if err != nil {
			return fmt.Errorf("count display name: %w", err)
		}
		c.DisplayName = n
		return nil
	})
	g.Go(func() error {
		if hostname == "" {
			return nil
		}
		n, err := v.store.Count(gctx, store.Filter{Hostname: hostname, ExcludeID: excludeID})
		if err != nil {
			return fmt.Errorf("count hostname: %w", err)
		}
		c.Hostname = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Collisions{}, err
	}
	return c, nil
}

// IsTaken reports whether the display name or hostname is already used.
func (v *Validator) IsTaken(ctx context.Context, displayName, hostname, excludeID string) (bool, error) {
	c, err := v.CountCollisions(ctx, displayName, hostname, excludeID)
	if err != nil {
		return false, err
	}
	return c.Any(), nil
}
