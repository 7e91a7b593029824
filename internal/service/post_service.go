package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/gateway"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/transfer"
)

type PostService interface {
	CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (int64, error)
	Update(ctx context.Context, actorID int64, pu *transfer.PostUpdate) (*models.Post, error)
	MarkReady(ctx context.Context, userID, clientID, postID int64) error
	Approve(ctx context.Context, userID, clientID, postID int64) error
	Reject(ctx context.Context, userID, clientID, postID int64) error
	Schedule(ctx context.Context, userID int64, ps *transfer.PostSchedule) (int64, time.Duration, error)
	Unschedule(ctx context.Context, userID, clientID, postID int64) error
	Archive(ctx context.Context, userID, clientID, postID int64) error
	Remove(ctx context.Context, userID, clientID, postID int64) error
	List(ctx context.Context, userID, clientID int64) ([]*models.Post, error)
	Calendar(ctx context.Context, userID, clientID int64) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, userID, postID, clientID int64) (*models.Post, error)
	AssistCaption(ctx context.Context, userID int64, req *transfer.CaptionAssist) (string, error)
}

type postService struct {
	db        *sql.DB
	pr        repository.PostRepository
	cr        repository.ClientRepository
	pt        repository.PostTargetRepository
	pa        repository.PlatformAccountRepository
	spr       repository.ScheduledPostRepository
	ms        MediaService
	quota     QuotaService
	assistant gateway.CaptionAssistant
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	cr repository.ClientRepository,
	pt repository.PostTargetRepository,
	pa repository.PlatformAccountRepository,
	spr repository.ScheduledPostRepository,
	ms MediaService,
	quota QuotaService,
	assistant gateway.CaptionAssistant) PostService {
	return &postService{
		db:        db,
		pr:        pr,
		cr:        cr,
		pt:        pt,
		pa:        pa,
		spr:       spr,
		ms:        ms,
		quota:     quota,
		assistant: assistant,
	}
}

// CreateDraft creates a post in draft for one of the tenant's clients. The
// action is metered: it passes the quota gate first and records usage after
// the draft exists. A draft caption may still be empty; the publishing
// pipeline enforces non-emptiness later.
func (s *postService) CreateDraft(ctx context.Context, userID int64, pc *transfer.PostCreation, file *multipart.FileHeader) (int64, error) {
	if pc == nil {
		return 0, apperr.New(apperr.KindValidation, "post creation data is nil")
	}

	if _, err := s.quota.Authorize(ctx, userID, ResourcePosts, 1); err != nil {
		return 0, err
	}

	owned, err := s.cr.CheckByUserID(ctx, pc.ClientID, userID)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, apperr.New(apperr.KindForbidden, "client belongs to another user")
	}

	var selectedAccounts []int64
	if pc.SelectedAccounts != "" {
		if err := json.Unmarshal([]byte(pc.SelectedAccounts), &selectedAccounts); err != nil {
			return 0, apperr.Wrap(apperr.KindValidation, "invalid selected accounts format", err)
		}
	}

	var mediaReference string
	if file != nil {
		content, err := file.Open()
		if err != nil {
			return 0, fmt.Errorf("error opening file: %w", err)
		}
		defer content.Close()

		fileBytes, err := io.ReadAll(content)
		if err != nil {
			return 0, fmt.Errorf("error reading file content: %w", err)
		}

		mediaReference, _, err = s.ms.Store(ctx, fileBytes)
		if err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		ClientID:       pc.ClientID,
		ProjectID:      pc.ProjectID,
		Caption:        pc.Caption,
		MediaReference: mediaReference,
		Notes:          pc.Notes,
		Status:         models.PostStatusDraft,
		ApprovalStatus: models.ApprovalDraft,
		ScheduledDate:  pc.ScheduledDate,
		ScheduledTime:  pc.ScheduledTime,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.saveTargets(ctx, tx, userID, postID, selectedAccounts); err != nil {
		return 0, fmt.Errorf("error processing selected accounts: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Usage recording never undoes the created draft.
	if err := s.quota.RecordUsage(ctx, userID, ResourcePosts, 1); err != nil {
		slog.Error("failed to record post usage", "user_id", userID, "error", err)
	}

	return postID, nil
}

func (s *postService) saveTargets(ctx context.Context, tx *sql.Tx, userID, postID int64, accounts []int64) error {
	for _, accountID := range accounts {
		exists, err := s.pa.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return fmt.Errorf("error checking platform account %d: %w", accountID, err)
		}
		if !exists {
			return apperr.Newf(apperr.KindValidation, "platform account %d does not exist", accountID)
		}

		target := models.PostTarget{
			PostID:    postID,
			AccountID: accountID,
		}
		if err := s.pt.Create(ctx, tx, &target); err != nil {
			return fmt.Errorf("error saving target account %d: %w", accountID, err)
		}
	}
	return nil
}

// Update changes caption/media/notes. Editing an approved post flips
// needs_reapproval and snapshots the pre-edit caption once, without touching
// approval_status itself. The editing lock is advisory and not checked here.
func (s *postService) Update(ctx context.Context, actorID int64, pu *transfer.PostUpdate) (*models.Post, error) {
	post, err := s.loadOwned(ctx, actorID, pu.PostID, pu.ClientID)
	if err != nil {
		return nil, err
	}

	if !post.Editable() {
		return nil, apperr.Newf(apperr.KindInvalidState, "post in status %q cannot be edited", post.Status)
	}

	if post.ApprovalStatus == models.ApprovalApproved {
		post.NeedsReapproval = true
		if post.OriginalCaption == nil {
			snapshot := post.Caption
			post.OriginalCaption = &snapshot
		}
	}

	if pu.Caption != nil {
		post.Caption = *pu.Caption
	}
	if pu.MediaReference != nil {
		post.MediaReference = *pu.MediaReference
	}
	if pu.Notes != nil {
		post.Notes = *pu.Notes
	}
	post.LastEditedBy = &actorID

	if err := s.pr.UpdateContent(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) MarkReady(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusDraft {
		return apperr.Newf(apperr.KindInvalidState, "only draft posts can be marked ready, got %q", post.Status)
	}
	return s.pr.UpdateStatus(ctx, models.PostStatusReady, postID)
}

func (s *postService) Approve(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	return s.pr.UpdateApproval(ctx, post.ID, models.ApprovalApproved, false)
}

func (s *postService) Reject(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	return s.pr.UpdateApproval(ctx, post.ID, models.ApprovalRejected, false)
}

// Schedule moves the post into the calendar: the post row gets the new slot
// and status, and a scheduled-post copy is materialized for the calendar
// view. Returns the delay until the slot for the publish queue.
func (s *postService) Schedule(ctx context.Context, userID int64, ps *transfer.PostSchedule) (int64, time.Duration, error) {
	post, err := s.loadOwned(ctx, userID, ps.PostID, ps.ClientID)
	if err != nil {
		return 0, 0, err
	}

	if !post.Editable() {
		return 0, 0, apperr.Newf(apperr.KindInvalidState, "post in status %q cannot be scheduled", post.Status)
	}

	when, err := combineSchedule(ps.ScheduledDate, ps.ScheduledTime)
	if err != nil {
		return 0, 0, err
	}

	if err := s.pr.UpdateSchedule(ctx, post.ID, ps.ScheduledDate, ps.ScheduledTime); err != nil {
		return 0, 0, err
	}

	sp := models.ScheduledPost{
		PostID:         post.ID,
		ClientID:       post.ClientID,
		Caption:        post.Caption,
		MediaReference: post.MediaReference,
		ScheduledDate:  ps.ScheduledDate,
		ScheduledTime:  ps.ScheduledTime,
	}
	spID, err := s.spr.Create(ctx, nil, &sp)
	if err != nil {
		return 0, 0, err
	}

	delay := time.Until(when)
	if delay < 0 {
		delay = 0
	}

	return spID, delay, nil
}

// Unschedule takes the post off the calendar: the materialized calendar row
// is removed and the post drops back to ready. The queue task still fires at
// the old slot; the queue entry point skips posts that are no longer
// scheduled.
func (s *postService) Unschedule(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusScheduled {
		return apperr.Newf(apperr.KindInvalidState, "post in status %q is not scheduled", post.Status)
	}

	sp, err := s.spr.GetByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if sp != nil {
		if err := s.spr.Remove(ctx, sp.ID); err != nil {
			return err
		}
	}

	return s.pr.UpdateStatus(ctx, models.PostStatusReady, postID)
}

// Archive is reachable from every non-deleted state, including published.
func (s *postService) Archive(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusDeleted {
		return apperr.New(apperr.KindInvalidState, "post is deleted")
	}
	return s.pr.UpdateStatus(ctx, models.PostStatusArchived, postID)
}

// Remove soft-deletes the post. A published post keeps its audit trail: it
// may only be archived, never deleted.
func (s *postService) Remove(ctx context.Context, userID, clientID, postID int64) error {
	post, err := s.loadOwned(ctx, userID, postID, clientID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublished {
		return apperr.New(apperr.KindConflict, "published posts can only be archived")
	}
	return s.pr.UpdateStatus(ctx, models.PostStatusDeleted, postID)
}

func (s *postService) List(ctx context.Context, userID, clientID int64) ([]*models.Post, error) {
	if err := s.checkClient(ctx, userID, clientID); err != nil {
		return nil, err
	}

	posts, err := s.pr.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Calendar lists the client's materialized calendar rows.
func (s *postService) Calendar(ctx context.Context, userID, clientID int64) ([]*models.ScheduledPost, error) {
	if err := s.checkClient(ctx, userID, clientID); err != nil {
		return nil, err
	}
	return s.spr.ListByClientID(ctx, clientID)
}

func (s *postService) PostInfo(ctx context.Context, userID, postID, clientID int64) (*models.Post, error) {
	return s.loadOwned(ctx, userID, postID, clientID)
}

// AssistCaption is the metered AI action: authorize one credit, call the
// assistant, record the credit afterwards. A failed recording is logged and
// never undoes the suggestion.
func (s *postService) AssistCaption(ctx context.Context, userID int64, req *transfer.CaptionAssist) (string, error) {
	if _, err := s.quota.Authorize(ctx, userID, ResourceAICredits, 1); err != nil {
		return "", err
	}

	caption, err := s.assistant.SuggestCaption(ctx, req.Draft, req.Tone)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "caption assistant failed", err)
	}

	if err := s.quota.RecordUsage(ctx, userID, ResourceAICredits, 1); err != nil {
		slog.Error("failed to record AI credit usage", "user_id", userID, "error", err)
	}

	return caption, nil
}

func (s *postService) checkClient(ctx context.Context, userID, clientID int64) error {
	owned, err := s.cr.CheckByUserID(ctx, clientID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.New(apperr.KindForbidden, "client belongs to another user")
	}
	return nil
}

func (s *postService) loadOwned(ctx context.Context, userID, postID, clientID int64) (*models.Post, error) {
	if err := s.checkClient(ctx, userID, clientID); err != nil {
		return nil, err
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
