// Package journal records user actions that reached the backend.
package journal

import (
	"context"
	"fmt"

	"camdash/internal/dto"
	"camdash/internal/logger"
	"camdash/internal/model"
	"camdash/internal/repository"
)

// Journal writes activity entries. A failing write is logged and never
// interrupts the workflow that produced it.
type Journal struct {
	repo   repository.ActivityRepository
	logger *logger.Logger
}

// New creates a journal over a repository.
func New(repo repository.ActivityRepository, log *logger.Logger) *Journal {
	return &Journal{repo: repo, logger: log}
}

// Record stores one entry.
func (j *Journal) Record(ctx context.Context, kind model.ActivityKind, subject, detail string) {
	a := &model.Activity{Kind: kind, Subject: subject, Detail: detail}
	if _, err := j.repo.Insert(context.WithoutCancel(ctx), a); err != nil {
		j.logger.Warning("activity %s for %q not recorded: %v", kind, subject, err)
	}
}

// Recent lists entries newest first.
func (j *Journal) Recent(ctx context.Context, filter *dto.ActivityFilter) ([]model.Activity, error) {
	entries, err := j.repo.Recent(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

// Summary tallies entries per kind.
func (j *Journal) Summary(ctx context.Context) (map[model.ActivityKind]int, error) {
	counts, err := j.repo.CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise activity: %w", err)
	}
	return counts, nil
}
