package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/relayne/postdeck/internal/gateway"
	"github.com/relayne/postdeck/internal/models"
)

// In-memory repository doubles. The post fake mirrors the SQL semantics the
// real repository relies on, in particular the conditional-update acquire.

type fakePostRepo struct {
	posts  map[int64]*models.Post
	nextID int64
	errs   map[string]error

	// beforeRelease lets a test interleave a competing write between the
	// caller's read and its conditional release.
	beforeRelease func()
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.Post), nextID: 1, errs: make(map[string]error)}
}

func (r *fakePostRepo) add(post *models.Post) *models.Post {
	if post.ID == 0 {
		post.ID = r.nextID
		r.nextID++
	}
	r.posts[post.ID] = post
	return post
}

func (r *fakePostRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	if err := r.errs["GetByID"]; err != nil {
		return nil, err
	}
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *fakePostRepo) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	cp := *post
	return r.add(&cp).ID, nil
}

func (r *fakePostRepo) ListByClientID(_ context.Context, clientID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.ClientID == clientID && p.Status != models.PostStatusDeleted {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CheckByClientID(_ context.Context, postID, clientID int64) (bool, error) {
	p, ok := r.posts[postID]
	return ok && p.ClientID == clientID, nil
}

func (r *fakePostRepo) UpdateContent(_ context.Context, post *models.Post) error {
	stored, ok := r.posts[post.ID]
	if !ok {
		return errors.New("post not found")
	}
	stored.Caption = post.Caption
	stored.MediaReference = post.MediaReference
	stored.Notes = post.Notes
	stored.NeedsReapproval = post.NeedsReapproval
	stored.OriginalCaption = post.OriginalCaption
	stored.EditCount++
	now := time.Now()
	stored.LastEditedAt = &now
	stored.LastEditedBy = post.LastEditedBy
	return nil
}

func (r *fakePostRepo) UpdateStatus(_ context.Context, status string, postID int64) error {
	if err := r.errs["UpdateStatus"]; err != nil {
		return err
	}
	stored, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	stored.Status = status
	return nil
}

func (r *fakePostRepo) UpdateSchedule(_ context.Context, postID int64, scheduledDate, scheduledTime string) error {
	stored, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	stored.ScheduledDate = scheduledDate
	stored.ScheduledTime = scheduledTime
	stored.Status = models.PostStatusScheduled
	return nil
}

func (r *fakePostRepo) UpdateApproval(_ context.Context, postID int64, approvalStatus string, needsReapproval bool) error {
	stored, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	stored.ApprovalStatus = approvalStatus
	stored.NeedsReapproval = needsReapproval
	return nil
}

func (r *fakePostRepo) ClaimEditing(_ context.Context, postID, actorID int64, cutoff, now time.Time) (bool, error) {
	stored, ok := r.posts[postID]
	if !ok || !stored.Editable() {
		return false, nil
	}
	free := stored.CurrentlyEditingBy == nil ||
		stored.EditingStartedAt == nil ||
		stored.EditingStartedAt.Before(cutoff) ||
		*stored.CurrentlyEditingBy == actorID
	if !free {
		return false, nil
	}
	stored.CurrentlyEditingBy = &actorID
	stored.EditingStartedAt = &now
	return true, nil
}

func (r *fakePostRepo) ForceClaimEditing(_ context.Context, postID, actorID int64, now time.Time) (bool, error) {
	stored, ok := r.posts[postID]
	if !ok || !stored.Editable() {
		return false, nil
	}
	stored.CurrentlyEditingBy = &actorID
	stored.EditingStartedAt = &now
	return true, nil
}

func (r *fakePostRepo) ReleaseEditing(_ context.Context, postID, actorID int64) (bool, error) {
	if r.beforeRelease != nil {
		r.beforeRelease()
	}
	stored, ok := r.posts[postID]
	if !ok {
		return false, errors.New("post not found")
	}
	if stored.CurrentlyEditingBy == nil || *stored.CurrentlyEditingBy != actorID {
		return false, nil
	}
	stored.CurrentlyEditingBy = nil
	stored.EditingStartedAt = nil
	return true, nil
}

func (r *fakePostRepo) ForceReleaseEditing(_ context.Context, postID int64) error {
	stored, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	stored.CurrentlyEditingBy = nil
	stored.EditingStartedAt = nil
	return nil
}

func (r *fakePostRepo) ClearExpiredLocks(_ context.Context, cutoff time.Time) (int64, error) {
	var cleared int64
	for _, p := range r.posts {
		if p.CurrentlyEditingBy != nil && p.EditingStartedAt != nil && p.EditingStartedAt.Before(cutoff) {
			p.CurrentlyEditingBy = nil
			p.EditingStartedAt = nil
			cleared++
		}
	}
	return cleared, nil
}

func (r *fakePostRepo) MarkExternalScheduled(_ context.Context, postID int64, platform, remoteJobID string) error {
	if err := r.errs["MarkExternalScheduled"]; err != nil {
		return err
	}
	stored, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	stored.ExternalStatus = models.ExternalStatusScheduled
	stored.ExternalPostID = remoteJobID
	for _, p := range stored.PlatformsScheduled {
		if p == platform {
			return nil
		}
	}
	stored.PlatformsScheduled = append(stored.PlatformsScheduled, platform)
	return nil
}

type fakeSubscriptionRepo struct {
	subs map[int64]*models.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[int64]*models.Subscription)}
}

func (r *fakeSubscriptionRepo) GetByUserID(_ context.Context, userID int64) (*models.Subscription, bool, error) {
	sub, ok := r.subs[userID]
	if !ok {
		return nil, false, nil
	}
	cp := *sub
	return &cp, true, nil
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *models.Subscription) (int64, error) {
	r.subs[sub.UserID] = sub
	return sub.UserID, nil
}

func (r *fakeSubscriptionRepo) IncrementPostsUsed(_ context.Context, userID int64, amount int) error {
	r.subs[userID].PostsUsedThisMonth += amount
	return nil
}

func (r *fakeSubscriptionRepo) IncrementClientsUsed(_ context.Context, userID int64, amount int) error {
	r.subs[userID].ClientsUsed += amount
	return nil
}

func (r *fakeSubscriptionRepo) ConsumeAICredits(_ context.Context, userID int64, fromPurchased, fromMonthly int) error {
	sub := r.subs[userID]
	sub.AICreditsPurchased -= fromPurchased
	sub.AICreditsUsedThisMonth += fromMonthly
	return nil
}

type fakeAccountRepo struct {
	accounts map[int64]*models.PlatformAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*models.PlatformAccount)}
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*models.PlatformAccount, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, a *models.PlatformAccount) (int64, error) {
	r.accounts[a.ID] = a
	return a.ID, nil
}

func (r *fakeAccountRepo) ListByUserID(_ context.Context, userID int64) ([]*models.PlatformAccount, error) {
	var out []*models.PlatformAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) CheckByUserID(_ context.Context, accountID, userID int64) (bool, error) {
	a, ok := r.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (r *fakeAccountRepo) Remove(_ context.Context, id int64) error {
	delete(r.accounts, id)
	return nil
}

type fakeTargetRepo struct {
	targets []*models.PostTarget
}

func (r *fakeTargetRepo) Create(_ context.Context, _ *sql.Tx, t *models.PostTarget) error {
	r.targets = append(r.targets, t)
	return nil
}

func (r *fakeTargetRepo) ListByPostID(_ context.Context, postID int64) ([]*models.PostTarget, error) {
	var out []*models.PostTarget
	for _, t := range r.targets {
		if t.PostID == postID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeLogRepo struct {
	logs   []*models.ScheduleLog
	nextID int64
	err    error
}

func (r *fakeLogRepo) Create(_ context.Context, sl *models.ScheduleLog) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.nextID++
	sl.ID = r.nextID
	r.logs = append(r.logs, sl)
	return sl.ID, nil
}

func (r *fakeLogRepo) GetByRemoteJobID(_ context.Context, remoteJobID string) (*models.ScheduleLog, error) {
	for _, l := range r.logs {
		if l.RemoteJobID == remoteJobID {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLogRepo) ListByPostID(_ context.Context, postID int64) ([]*models.ScheduleLog, error) {
	var out []*models.ScheduleLog
	for _, l := range r.logs {
		if l.PostID == postID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ListPartial(_ context.Context) ([]*models.ScheduleLog, error) {
	var out []*models.ScheduleLog
	for _, l := range r.logs {
		if l.Status == models.ScheduleLogPartial {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	for _, l := range r.logs {
		if l.ID == id {
			l.Status = status
		}
	}
	return nil
}

type fakeMediaService struct {
	fetchErr   error
	fetchCalls int
}

func (m *fakeMediaService) Store(_ context.Context, _ []byte) (string, string, error) {
	return "https://media.test/staged", "image/jpeg", nil
}

func (m *fakeMediaService) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, "", m.fetchErr
	}
	return []byte("media-bytes"), "image/jpeg", nil
}

type fakeGateway struct {
	uploadCalls int
	jobCalls    int
	uploadErr   error
	jobErr      error
	jobErrFor   map[string]error
	jobSeq      int
}

func (g *fakeGateway) UploadMedia(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	g.uploadCalls++
	if g.uploadErr != nil {
		return "", g.uploadErr
	}
	return "https://platform.test/media/abc", nil
}

func (g *fakeGateway) CreateScheduledJob(_ context.Context, _ string, job *gateway.ScheduledJob) (string, error) {
	g.jobCalls++
	if g.jobErr != nil {
		return "", g.jobErr
	}
	if err, ok := g.jobErrFor[job.Caption]; ok {
		return "", err
	}
	g.jobSeq++
	return fmt.Sprintf("job-%d", g.jobSeq), nil
}

type fakeAssistant struct {
	caption string
	err     error
	calls   int
}

func (a *fakeAssistant) SuggestCaption(_ context.Context, _, _ string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.caption, nil
}

type fakeClientRepo struct {
	clients map[int64]*models.Client
	nextID  int64
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[int64]*models.Client)}
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int64) (*models.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *fakeClientRepo) Create(_ context.Context, c *models.Client) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	r.clients[c.ID] = c
	return c.ID, nil
}

func (r *fakeClientRepo) ListByUserID(_ context.Context, userID int64) ([]*models.Client, error) {
	var out []*models.Client
	for _, c := range r.clients {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) CheckByUserID(_ context.Context, clientID, userID int64) (bool, error) {
	c, ok := r.clients[clientID]
	return ok && c.UserID == userID, nil
}

type fakeScheduledPostRepo struct {
	posts  []*models.ScheduledPost
	nextID int64
}

func (r *fakeScheduledPostRepo) Create(_ context.Context, _ *sql.Tx, sp *models.ScheduledPost) (int64, error) {
	r.nextID++
	sp.ID = r.nextID
	r.posts = append(r.posts, sp)
	return sp.ID, nil
}

func (r *fakeScheduledPostRepo) GetByPostID(_ context.Context, postID int64) (*models.ScheduledPost, error) {
	for _, sp := range r.posts {
		if sp.PostID == postID {
			return sp, nil
		}
	}
	return nil, nil
}

func (r *fakeScheduledPostRepo) ListByClientID(_ context.Context, clientID int64) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, sp := range r.posts {
		if sp.ClientID == clientID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (r *fakeScheduledPostRepo) Remove(_ context.Context, id int64) error {
	for i, sp := range r.posts {
		if sp.ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return nil
}
