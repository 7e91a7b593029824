package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayne/postdeck/internal/apperr"
	"github.com/relayne/postdeck/internal/models"
	"github.com/relayne/postdeck/internal/transfer"
)

type postFixture struct {
	svc       PostService
	pr        *fakePostRepo
	cr        *fakeClientRepo
	sr        *fakeSubscriptionRepo
	spr       *fakeScheduledPostRepo
	assistant *fakeAssistant
}

// newPostFixture seeds client 10 as owned by user 7.
func newPostFixture() *postFixture {
	f := &postFixture{
		pr:        newFakePostRepo(),
		cr:        newFakeClientRepo(),
		sr:        newFakeSubscriptionRepo(),
		spr:       &fakeScheduledPostRepo{},
		assistant: &fakeAssistant{caption: "suggested caption"},
	}
	f.cr.clients[10] = &models.Client{ID: 10, UserID: 7}
	f.svc = NewPostService(nil, f.pr, f.cr, &fakeTargetRepo{}, newFakeAccountRepo(),
		f.spr, &fakeMediaService{}, NewQuotaService(f.sr), f.assistant)
	return f
}

func strPtr(s string) *string { return &s }

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Caption = "old caption"
	p.Notes = "keep me"
	f.pr.add(p)

	updated, err := f.svc.Update(context.Background(), 7, &transfer.PostUpdate{
		PostID:   1,
		ClientID: 10,
		Caption:  strPtr("new caption"),
	})

	assert.NoError(t, err)
	assert.Equal(t, "new caption", updated.Caption)
	assert.Equal(t, "keep me", updated.Notes)
	assert.Equal(t, 1, f.pr.posts[1].EditCount)
	assert.Equal(t, int64(7), *f.pr.posts[1].LastEditedBy)
}

func TestUpdateApprovedPostFlagsReapproval(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusScheduled
	p.Caption = "approved text"
	p.ApprovalStatus = models.ApprovalApproved
	f.pr.add(p)

	updated, err := f.svc.Update(context.Background(), 7, &transfer.PostUpdate{
		PostID:   1,
		ClientID: 10,
		Caption:  strPtr("tweaked text"),
	})

	assert.NoError(t, err)
	assert.True(t, updated.NeedsReapproval)
	// Approval status itself is untouched; only the flag flips.
	assert.Equal(t, models.ApprovalApproved, updated.ApprovalStatus)
	require.NotNil(t, updated.OriginalCaption)
	assert.Equal(t, "approved text", *updated.OriginalCaption)
}

func TestUpdateApprovedPostSnapshotTakenOnce(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Caption = "v1"
	p.ApprovalStatus = models.ApprovalApproved
	f.pr.add(p)

	_, err := f.svc.Update(context.Background(), 7, &transfer.PostUpdate{
		PostID: 1, ClientID: 10, Caption: strPtr("v2"),
	})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), 7, &transfer.PostUpdate{
		PostID: 1, ClientID: 10, Caption: strPtr("v3"),
	})
	require.NoError(t, err)

	// The snapshot keeps the caption from before the first edit.
	assert.Equal(t, "v1", *f.pr.posts[1].OriginalCaption)
	assert.Equal(t, "v3", f.pr.posts[1].Caption)
	assert.Equal(t, 2, f.pr.posts[1].EditCount)
}

func TestUpdatePublishedPostRejected(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusPublished
	f.pr.add(p)

	_, err := f.svc.Update(context.Background(), 7, &transfer.PostUpdate{
		PostID: 1, ClientID: 10, Caption: strPtr("too late"),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestUpdateByNonOwnerRejected(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	// Client 10 belongs to user 7; user 8 cannot edit through it.
	_, err := f.svc.Update(context.Background(), 8, &transfer.PostUpdate{
		PostID: 1, ClientID: 10, Caption: strPtr("not mine"),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, "hello", f.pr.posts[1].Caption)
}

func TestMarkReadyFromDraft(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	err := f.svc.MarkReady(context.Background(), 7, 10, 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PostStatusReady, f.pr.posts[1].Status)
}

func TestMarkReadyFromScheduledRejected(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusScheduled
	f.pr.add(p)

	err := f.svc.MarkReady(context.Background(), 7, 10, 1)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestMarkReadyByNonOwnerRejected(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	err := f.svc.MarkReady(context.Background(), 8, 10, 1)

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, models.PostStatusDraft, f.pr.posts[1].Status)
}

func TestSchedulePost(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusReady
	p.Caption = "calendar me"
	f.pr.add(p)

	date := time.Now().Add(48 * time.Hour).Format("2006-01-02")
	spID, delay, err := f.svc.Schedule(context.Background(), 7, &transfer.PostSchedule{
		PostID:        1,
		ClientID:      10,
		ScheduledDate: date,
		ScheduledTime: "09:30",
	})

	assert.NoError(t, err)
	assert.Greater(t, delay, time.Duration(0))

	stored := f.pr.posts[1]
	assert.Equal(t, models.PostStatusScheduled, stored.Status)
	assert.Equal(t, date, stored.ScheduledDate)

	require.Len(t, f.spr.posts, 1)
	assert.Equal(t, spID, f.spr.posts[0].ID)
	assert.Equal(t, "calendar me", f.spr.posts[0].Caption)
}

func TestSchedulePastSlotZeroDelay(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	_, delay, err := f.svc.Schedule(context.Background(), 7, &transfer.PostSchedule{
		PostID:        1,
		ClientID:      10,
		ScheduledDate: "2020-01-01",
		ScheduledTime: "00:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), delay)
}

func TestScheduleInvalidSlot(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	_, _, err := f.svc.Schedule(context.Background(), 7, &transfer.PostSchedule{
		PostID:        1,
		ClientID:      10,
		ScheduledDate: "not-a-date",
		ScheduledTime: "09:30",
	})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUnschedulePost(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusReady
	f.pr.add(p)

	date := time.Now().Add(48 * time.Hour).Format("2006-01-02")
	_, _, err := f.svc.Schedule(context.Background(), 7, &transfer.PostSchedule{
		PostID:        1,
		ClientID:      10,
		ScheduledDate: date,
		ScheduledTime: "09:30",
	})
	require.NoError(t, err)
	require.Len(t, f.spr.posts, 1)

	err = f.svc.Unschedule(context.Background(), 7, 10, 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PostStatusReady, f.pr.posts[1].Status)
	assert.Empty(t, f.spr.posts)
}

func TestUnscheduleNonScheduledRejected(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	err := f.svc.Unschedule(context.Background(), 7, 10, 1)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestCalendarListsClientRows(t *testing.T) {
	f := newPostFixture()
	f.spr.posts = append(f.spr.posts,
		&models.ScheduledPost{ID: 1, PostID: 1, ClientID: 10},
		&models.ScheduledPost{ID: 2, PostID: 2, ClientID: 99},
	)

	scheduled, err := f.svc.Calendar(context.Background(), 7, 10)

	assert.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, int64(1), scheduled[0].PostID)
}

func TestCalendarByNonOwnerRejected(t *testing.T) {
	f := newPostFixture()

	_, err := f.svc.Calendar(context.Background(), 8, 10)

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestArchiveFromPublished(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusPublished
	f.pr.add(p)

	err := f.svc.Archive(context.Background(), 7, 10, 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PostStatusArchived, f.pr.posts[1].Status)
}

func TestArchiveDeletedPostRejected(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusDeleted
	f.pr.add(p)

	err := f.svc.Archive(context.Background(), 7, 10, 1)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestRemovePublishedPostRejected(t *testing.T) {
	f := newPostFixture()
	p := draftPost(1, 10)
	p.Status = models.PostStatusPublished
	f.pr.add(p)

	err := f.svc.Remove(context.Background(), 7, 10, 1)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, models.PostStatusPublished, f.pr.posts[1].Status)
}

func TestRemoveSoftDeletes(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	err := f.svc.Remove(context.Background(), 7, 10, 1)

	assert.NoError(t, err)
	assert.Equal(t, models.PostStatusDeleted, f.pr.posts[1].Status)
}

func TestListExcludesDeleted(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))
	deleted := draftPost(2, 10)
	deleted.Status = models.PostStatusDeleted
	f.pr.add(deleted)

	posts, err := f.svc.List(context.Background(), 7, 10)

	assert.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].ID)
}

func TestListByNonOwnerRejected(t *testing.T) {
	f := newPostFixture()
	f.pr.add(draftPost(1, 10))

	_, err := f.svc.List(context.Background(), 8, 10)

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestAssistCaptionConsumesCredit(t *testing.T) {
	f := newPostFixture()
	sub := activeSub(1)
	sub.AICreditsPurchased = 1
	f.sr.subs[1] = sub

	caption, err := f.svc.AssistCaption(context.Background(), 1, &transfer.CaptionAssist{
		Draft: "new sneakers drop",
		Tone:  "playful",
	})

	assert.NoError(t, err)
	assert.Equal(t, "suggested caption", caption)
	assert.Equal(t, 1, f.assistant.calls)
	assert.Equal(t, 0, f.sr.subs[1].AICreditsPurchased)
	assert.Equal(t, 0, f.sr.subs[1].AICreditsUsedThisMonth)
}

func TestAssistCaptionQuotaDeniedSkipsAssistant(t *testing.T) {
	f := newPostFixture()

	_, err := f.svc.AssistCaption(context.Background(), 1, &transfer.CaptionAssist{
		Draft: "anything",
	})

	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))
	assert.Zero(t, f.assistant.calls)
}

func TestCreateDraftWithoutSubscription(t *testing.T) {
	f := newPostFixture()
	f.cr.clients[10] = &models.Client{ID: 10, UserID: 1}

	_, err := f.svc.CreateDraft(context.Background(), 1, &transfer.PostCreation{
		ClientID: 10,
		Caption:  "draft",
	}, nil)

	assert.True(t, apperr.IsKind(err, apperr.KindSubscriptionInactive))
}
