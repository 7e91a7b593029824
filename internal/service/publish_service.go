package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/relayne/postdeck/configs"
	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/gateway"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/repository"
	"github.com/relayne/postdeck/internal/transfer"
	"github.com/relayne/postdeck/pkg/utils"
)

// batchPublishDelay spaces out consecutive posts in one batch so the
// platform's rate limits are respected.
const batchPublishDelay = 2 * time.Second

const scheduleLayout = "2006-01-02 15:04"

// PublishService runs the four-stage pipeline that makes a post live on one
// platform account: caption precondition, media staging, remote scheduling,
// local persistence. The stages are not transactional; a remote job whose
// local persistence failed is reported as a partial outcome, never folded
// into plain failure. userID 0 marks internal runs (queue, reconcile) that
// carry no actor.
type PublishService interface {
	PublishToAccount(ctx context.Context, userID, postID, accountID int64, captionOverlay string) *transfer.PublishOutcome
	PublishBatch(ctx context.Context, userID int64, postIDs []int64, accountID int64) *transfer.BatchSummary
	PublishPost(ctx context.Context, postID int64) error
	History(ctx context.Context, userID, clientID, postID int64) ([]*models.ScheduleLog, error)
	Attempt(ctx context.Context, userID int64, remoteJobID string) (*models.ScheduleLog, error)
	ResumePartials(ctx context.Context) int
}

type publishService struct {
	cfg config.Config
	pr  repository.PostRepository
	pa  repository.PlatformAccountRepository
	pt  repository.PostTargetRepository
	sl  repository.ScheduleLogRepository
	cr  repository.ClientRepository
	ms  MediaService
	gw  gateway.PlatformGateway
}

func NewPublishService(
	cfg config.Config,
	pr repository.PostRepository,
	pa repository.PlatformAccountRepository,
	pt repository.PostTargetRepository,
	sl repository.ScheduleLogRepository,
	cr repository.ClientRepository,
	ms MediaService,
	gw gateway.PlatformGateway) PublishService {
	return &publishService{
		cfg: cfg,
		pr:  pr,
		pa:  pa,
		pt:  pt,
		sl:  sl,
		cr:  cr,
		ms:  ms,
		gw:  gw,
	}
}

// PublishToAccount runs the pipeline once for one (post, account) pair and
// reports the outcome. captionOverlay, when non-empty, stands in for an
// unsaved edit and replaces the stored caption for this run only.
func (s *publishService) PublishToAccount(ctx context.Context, userID, postID, accountID int64, captionOverlay string) *transfer.PublishOutcome {
	outcome := &transfer.PublishOutcome{PostID: postID, AccountID: accountID}

	remoteJobID, err := s.runPipeline(ctx, userID, postID, accountID, captionOverlay)
	outcome.RemoteJobID = remoteJobID
	if err != nil {
		if apperr.IsKind(err, apperr.KindPartial) {
			outcome.Status = transfer.OutcomePartial
		} else {
			outcome.Status = transfer.OutcomeFailed
		}
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = transfer.OutcomeSucceeded
	return outcome
}

func (s *publishService) runPipeline(ctx context.Context, userID, postID, accountID int64, captionOverlay string) (string, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	if post == nil {
		return "", apperr.New(apperr.KindNotFound, "post not found")
	}

	account, err := s.pa.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", apperr.New(apperr.KindNotFound, "platform account not found")
	}

	// Internal runs carry no actor; every handler call must own the account,
	// and the account must be connected to the post's client either way.
	if userID != 0 && account.UserID != userID {
		return "", apperr.New(apperr.KindForbidden, "platform account belongs to another user")
	}
	if account.ClientID != post.ClientID {
		return "", apperr.New(apperr.KindForbidden, "platform account is connected to another client")
	}

	// Stage 1: the caption, with any unsaved overlay applied, must survive
	// trimming. Fails before any external call.
	caption := post.Caption
	if captionOverlay != "" {
		caption = captionOverlay
	}
	if strings.TrimSpace(caption) == "" {
		return "", apperr.New(apperr.KindValidation, "empty caption")
	}

	// The gateway has no dedup key, so the schedule log is the idempotency
	// record per (post, account): a scheduled attempt refuses the rerun, a
	// partial attempt is completed without creating a second remote job.
	prior, err := s.priorAttempt(ctx, postID, accountID)
	if err != nil {
		return "", err
	}
	if prior != nil {
		if prior.Status == models.ScheduleLogScheduled {
			return prior.RemoteJobID, apperr.New(apperr.KindConflict, "post already scheduled through this account").
				With("remote_job_id", prior.RemoteJobID)
		}
		return s.resumeAttempt(ctx, prior, account.Platform)
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	// Stage 2: media staging. No repository writes have happened yet, so a
	// failure here is safe to retry from scratch.
	media, mimeType, err := s.ms.Fetch(ctx, post.MediaReference)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "media staging failed", err)
	}

	remoteMediaURL, err := s.gw.UploadMedia(ctx, accessToken, media, mimeType)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "media staging failed", err)
	}

	// Stage 3: remote scheduling. Staged media is not rolled back on failure;
	// an orphaned remote upload is accepted.
	publishAt, err := combineSchedule(post.ScheduledDate, post.ScheduledTime)
	if err != nil {
		return "", err
	}

	remoteJobID, err := s.gw.CreateScheduledJob(ctx, accessToken, &gateway.ScheduledJob{
		MediaURL:  remoteMediaURL,
		Caption:   caption,
		AccountID: account.AccountID,
		PublishAt: publishAt,
	})
	if err != nil {
		s.logAttempt(ctx, postID, accountID, remoteMediaURL, "", models.ScheduleLogFailed, err)
		return "", apperr.Wrap(apperr.KindUpstream, "remote scheduling failed", err)
	}

	// Stage 4: persistence. The remote job now exists; any failure from here
	// on leaves the system in a diagnosable partial state keyed by the job id.
	if err := s.pr.MarkExternalScheduled(ctx, postID, account.Platform, remoteJobID); err != nil {
		s.logAttempt(ctx, postID, accountID, remoteMediaURL, remoteJobID, models.ScheduleLogPartial, err)
		return remoteJobID, apperr.Wrap(apperr.KindPartial, "remote job created but post update failed", err).
			With("remote_job_id", remoteJobID)
	}

	log := &models.ScheduleLog{
		PostID:         postID,
		AccountID:      accountID,
		RemoteMediaURL: remoteMediaURL,
		RemoteJobID:    remoteJobID,
		Status:         models.ScheduleLogScheduled,
	}
	if _, err := s.sl.Create(ctx, log); err != nil {
		return remoteJobID, apperr.Wrap(apperr.KindPartial, "remote job created but schedule log write failed", err).
			With("remote_job_id", remoteJobID)
	}

	return remoteJobID, nil
}

// priorAttempt finds the attempt that already owns a remote job for this
// (post, account) pair. Failed attempts never block a rerun.
func (s *publishService) priorAttempt(ctx context.Context, postID, accountID int64) (*models.ScheduleLog, error) {
	logs, err := s.sl.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var partial *models.ScheduleLog
	for _, l := range logs {
		if l.AccountID != accountID {
			continue
		}
		if l.Status == models.ScheduleLogScheduled {
			return l, nil
		}
		if l.Status == models.ScheduleLogPartial {
			partial = l
		}
	}
	return partial, nil
}

// resumeAttempt finishes stage 4 for an attempt whose remote job exists but
// whose local writes failed.
func (s *publishService) resumeAttempt(ctx context.Context, attempt *models.ScheduleLog, platform string) (string, error) {
	if err := s.pr.MarkExternalScheduled(ctx, attempt.PostID, platform, attempt.RemoteJobID); err != nil {
		return attempt.RemoteJobID, apperr.Wrap(apperr.KindPartial, "remote job exists but post update failed", err).
			With("remote_job_id", attempt.RemoteJobID)
	}
	if err := s.sl.UpdateStatus(ctx, attempt.ID, models.ScheduleLogScheduled); err != nil {
		return attempt.RemoteJobID, apperr.Wrap(apperr.KindPartial, "remote job exists but schedule log update failed", err).
			With("remote_job_id", attempt.RemoteJobID)
	}
	return attempt.RemoteJobID, nil
}

// PublishBatch schedules each post to the same account strictly in
// submission order, with a fixed delay between posts. A failure on one post
// never aborts the rest; the summary carries per-post outcomes.
func (s *publishService) PublishBatch(ctx context.Context, userID int64, postIDs []int64, accountID int64) *transfer.BatchSummary {
	summary := &transfer.BatchSummary{
		Succeeded: []int64{},
		Failed:    []int64{},
		Partial:   []int64{},
	}

	for i, postID := range postIDs {
		if i > 0 {
			select {
			case <-ctx.Done():
				for _, rest := range postIDs[i:] {
					summary.Failed = append(summary.Failed, rest)
					summary.Outcomes = append(summary.Outcomes, transfer.PublishOutcome{
						PostID:    rest,
						AccountID: accountID,
						Status:    transfer.OutcomeFailed,
						Error:     ctx.Err().Error(),
					})
				}
				return summary
			case <-time.After(batchPublishDelay):
			}
		}

		outcome := s.PublishToAccount(ctx, userID, postID, accountID, "")
		summary.Outcomes = append(summary.Outcomes, *outcome)

		switch outcome.Status {
		case transfer.OutcomeSucceeded:
			summary.Succeeded = append(summary.Succeeded, postID)
		case transfer.OutcomePartial:
			summary.Partial = append(summary.Partial, postID)
		default:
			summary.Failed = append(summary.Failed, postID)
		}
	}

	return summary
}

// PublishPost is the queue entry point: it publishes the post to every
// selected platform account, sequentially, and promotes the post to
// published only when every account confirmed. The targets were validated
// against the post owner at draft creation.
func (s *publishService) PublishPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		// Unscheduled or deleted since the task was enqueued.
		slog.Info("skipping publish for post no longer scheduled", "post_id", postID)
		return nil
	}

	targets, err := s.pt.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no accounts selected for publishing")
	}

	allSucceeded := true
	for i, target := range targets {
		if i > 0 {
			time.Sleep(batchPublishDelay)
		}

		outcome := s.PublishToAccount(ctx, 0, postID, target.AccountID, "")
		if outcome.Status != transfer.OutcomeSucceeded {
			allSucceeded = false
			slog.Error("publish attempt did not succeed",
				"post_id", postID,
				"account_id", target.AccountID,
				"status", outcome.Status,
				"error", outcome.Error)
		}
	}

	if allSucceeded {
		if err := s.pr.UpdateStatus(ctx, models.PostStatusPublished, postID); err != nil {
			return err
		}
	}
	return nil
}

// History lists the publish attempts recorded for a post.
func (s *publishService) History(ctx context.Context, userID, clientID, postID int64) ([]*models.ScheduleLog, error) {
	owned, err := s.cr.CheckByUserID(ctx, clientID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apperr.New(apperr.KindForbidden, "client belongs to another user")
	}

	inClient, err := s.pr.CheckByClientID(ctx, postID, clientID)
	if err != nil {
		return nil, err
	}
	if !inClient {
		return nil, apperr.New(apperr.KindNotFound, "post not found")
	}

	return s.sl.ListByPostID(ctx, postID)
}

// Attempt looks one publish attempt up by its remote job id, the key a
// partial outcome hands back for reconciliation.
func (s *publishService) Attempt(ctx context.Context, userID int64, remoteJobID string) (*models.ScheduleLog, error) {
	attempt, err := s.sl.GetByRemoteJobID(ctx, remoteJobID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apperr.New(apperr.KindNotFound, "publish attempt not found")
	}

	post, err := s.pr.GetByID(ctx, attempt.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.New(apperr.KindNotFound, "post not found")
	}

	owned, err := s.cr.CheckByUserID(ctx, post.ClientID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apperr.New(apperr.KindForbidden, "post belongs to another user")
	}

	return attempt, nil
}

// ResumePartials finishes publish attempts whose remote job exists but whose
// local writes failed, and reports how many were reconciled.
func (s *publishService) ResumePartials(ctx context.Context) int {
	partials, err := s.sl.ListPartial(ctx)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	resumed := 0
	for _, p := range partials {
		account, err := s.pa.GetByID(ctx, p.AccountID)
		if err != nil || account == nil {
			slog.Warn("unreconcilable partial publish",
				"post_id", p.PostID,
				"account_id", p.AccountID,
				"remote_job_id", p.RemoteJobID)
			continue
		}
		if _, err := s.resumeAttempt(ctx, p, account.Platform); err != nil {
			slog.Warn("partial publish still unreconciled",
				"post_id", p.PostID,
				"account_id", p.AccountID,
				"remote_job_id", p.RemoteJobID,
				"error", err)
			continue
		}
		resumed++
	}
	return resumed
}

func (s *publishService) logAttempt(ctx context.Context, postID, accountID int64, mediaURL, jobID, status string, cause error) {
	log := &models.ScheduleLog{
		PostID:         postID,
		AccountID:      accountID,
		RemoteMediaURL: mediaURL,
		RemoteJobID:    jobID,
		Status:         status,
	}
	if cause != nil {
		log.ErrorMessage = cause.Error()
	}
	if _, err := s.sl.Create(ctx, log); err != nil {
		slog.Error("failed to write schedule log", "post_id", postID, "error", err)
	}
}

func combineSchedule(date, timeOfDay string) (time.Time, error) {
	t, err := time.ParseInLocation(scheduleLayout, fmt.Sprintf("%s %s", date, timeOfDay), time.Local)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindValidation, "invalid scheduled date/time", err)
	}
	return t, nil
}
