package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/sites"
)

// Result summarises an import.
type Result struct {
	Created   int
	Activated int
	Skipped   int
}

// Importer creates seed entries through the site repository, so the usual
// uniqueness rules apply.
type Importer struct {
	repo   *sites.Repository
	logger logger.Logger
}

// NewImporter creates an importer.
func NewImporter(repo *sites.Repository, log logger.Logger) *Importer {
	return &Importer{repo: repo, logger: log}
}

// Import creates every entry that does not collide with an existing site and
// activates it when asked. Rejected entries are skipped; storage errors stop
// the import.
func (im *Importer) Import(ctx context.Context, f *File) (Result, error) {
	var res Result
	if f == nil {
		return res, nil
	}

	for _, e := range f.Sites {
		site, err := im.repo.Create(ctx, sites.NewSite{DisplayName: e.DisplayName, Hostname: e.Hostname})
		if errors.Is(err, domain.ErrValidation) {
			res.Skipped++
			im.logger.Info("seed entry skipped",
				logger.String("display_name", e.DisplayName),
				logger.String("hostname", e.Hostname),
				logger.String("reason", err.Error()))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed %q: %w", e.DisplayName, err)
		}
		res.Created++

		if e.Active {
			if _, err := im.repo.SetActive(ctx, site.UID, true); err != nil {
				return res, fmt.Errorf("activate seeded site %q: %w", e.DisplayName, err)
			}
			res.Activated++
		}
	}

	im.logger.Info("seed imported",
		logger.Int("created", res.Created),
		logger.Int("activated", res.Activated),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

// ImportFile loads path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := NewLoader(path).Load()
	if err != nil {
		return Result{}, err
	}
	return im.Import(ctx, f)
}
