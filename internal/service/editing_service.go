package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/transfer"
)

// EditingLockTTL bounds how long an editing session stays exclusive without
// the holder releasing it. A lock older than this is treated as free.
const EditingLockTTL = 30 * time.Minute

type EditingService interface {
	Acquire(ctx context.Context, postID, clientID, actorID int64, force bool) (*transfer.LockState, error)
	Release(ctx context.Context, postID, clientID, actorID int64, force bool) error
	Status(ctx context.Context, postID, clientID, actorID int64) (*transfer.EditingStatus, error)
}

type editingService struct {
	pr repository.PostRepository
	cr repository.ClientRepository
}

func NewEditingService(pr repository.PostRepository, cr repository.ClientRepository) EditingService {
	return &editingService{pr: pr, cr: cr}
}

// Acquire grants the actor an exclusive editing session on the post. The
// acquire itself is a single conditional update in the repository, so two
// racing calls cannot both win. A forced acquire overwrites the holder with
// no notification to the evicted actor.
func (s *editingService) Acquire(ctx context.Context, postID, clientID, actorID int64, force bool) (*transfer.LockState, error) {
	post, err := s.loadOwned(ctx, postID, clientID, actorID)
	if err != nil {
		return nil, err
	}

	if !post.Editable() {
		return nil, apperr.Newf(apperr.KindInvalidState, "post in status %q cannot be edited", post.Status)
	}

	now := time.Now()
	cutoff := now.Add(-EditingLockTTL)

	var claimed bool
	if force {
		claimed, err = s.pr.ForceClaimEditing(ctx, postID, actorID, now)
	} else {
		claimed, err = s.pr.ClaimEditing(ctx, postID, actorID, cutoff, now)
	}
	if err != nil {
		return nil, err
	}

	if !claimed {
		// The conditional update lost. Re-read to tell the caller who holds
		// the lock now.
		fresh, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, apperr.New(apperr.KindNotFound, "post not found")
		}
		if !fresh.Editable() {
			return nil, apperr.Newf(apperr.KindInvalidState, "post in status %q cannot be edited", fresh.Status)
		}

		conflict := apperr.New(apperr.KindConflict, "post is being edited by another user").
			With("can_force_start", true)
		if fresh.CurrentlyEditingBy != nil {
			conflict.With("current_holder", *fresh.CurrentlyEditingBy)
		}
		if fresh.EditingStartedAt != nil {
			conflict.With("lock_started_at", *fresh.EditingStartedAt)
		}
		return nil, conflict
	}

	return &transfer.LockState{
		Holder:         actorID,
		LockStartedAt:  now,
		LastModifiedAt: now,
	}, nil
}

// Release ends the actor's editing session. The clear is conditional on the
// actor still holding the lock, so a release racing a force takeover cannot
// evict the new holder. A non-holder may only release with force.
func (s *editingService) Release(ctx context.Context, postID, clientID, actorID int64, force bool) error {
	if _, err := s.loadOwned(ctx, postID, clientID, actorID); err != nil {
		return err
	}

	if force {
		if err := s.pr.ForceReleaseEditing(ctx, postID); err != nil {
			slog.Info(err.Error())
			return err
		}
		return nil
	}

	released, err := s.pr.ReleaseEditing(ctx, postID, actorID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if !released {
		// Either the lock was already free, or another actor holds it now.
		fresh, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.CurrentlyEditingBy == nil {
			return nil
		}
		return apperr.New(apperr.KindForbidden, "editing session belongs to another user").
			With("can_force_end", true).
			With("current_holder", *fresh.CurrentlyEditingBy)
	}
	return nil
}

// Status reports the lock state using the same TTL formula as Acquire.
func (s *editingService) Status(ctx context.Context, postID, clientID, actorID int64) (*transfer.EditingStatus, error) {
	post, err := s.loadOwned(ctx, postID, clientID, actorID)
	if err != nil {
		return nil, err
	}

	status := &transfer.EditingStatus{
		CanEdit: post.Editable(),
		Status:  post.Status,
	}

	if post.CurrentlyEditingBy != nil && post.EditingStartedAt != nil &&
		time.Since(*post.EditingStartedAt) < EditingLockTTL {
		status.IsActive = true
		status.Holder = post.CurrentlyEditingBy
	}

	return status, nil
}

func (s *editingService) loadOwned(ctx context.Context, postID, clientID, actorID int64) (*models.Post, error) {
	owned, err := s.cr.CheckByUserID(ctx, clientID, actorID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apperr.New(apperr.KindForbidden, "client belongs to another user")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.New(apperr.KindNotFound, "post not found")
	}
	if post.ClientID != clientID {
		return nil, apperr.New(apperr.KindForbidden, "post belongs to another client")
	}
	return post, nil
}
