package app

import (
	"context"
	"time"

	"zonescout/internal/research/models"
	"zonescout/internal/research/service"
	dErrors "zonescout/pkg/domain-errors"
)

const defaultArchiveTimeout = 5 * time.Second

// boundedArchive saves runs under their own deadline. A run can finish close
// to the request deadline, so the save is detached from cancellation of the
// caller's context and bounded separately.
type boundedArchive struct {
	next    service.Archive
	timeout time.Duration
}

func newBoundedArchive(next service.Archive, timeout time.Duration) *boundedArchive {
	if timeout <= 0 {
		timeout = defaultArchiveTimeout
	}
	return &boundedArchive{next: next, timeout: timeout}
}

func (a *boundedArchive) Save(ctx context.Context, result *models.Result) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	if err := a.next.Save(ctx, result); err != nil {
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "archive save timed out")
		}
		return err
	}
	return nil
}
