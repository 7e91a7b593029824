package handlers

import (
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/relayne/postdeck/internal/queue"
	"github.com/relayne/postdeck/internal/service"
	"github.com/relayne/postdeck/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	publish     service.PublishService
	AsynqClient *asynq.Client
}

func NewPostHandler(s service.PostService, publish service.PublishService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: s, publish: publish, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := transfer.PostCreation{
		ClientID:         parseID(c.FormValue("client_id")),
		Caption:          c.FormValue("caption"),
		Notes:            c.FormValue("notes"),
		ScheduledDate:    c.FormValue("scheduled_date"),
		ScheduledTime:    c.FormValue("scheduled_time"),
		SelectedAccounts: c.FormValue("selected_accounts"),
	}

	var file = firstFile(form.File["files"])

	postID, err := h.s.CreateDraft(c.Context(), userID, &pc, file)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), userID, postID, clientID)
		if err != nil {
			return RespondError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID, clientID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pu transfer.PostUpdate
	if err := c.BodyParser(&pu); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, err := h.s.Update(c.Context(), userID, &pu)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) MarkReady(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.MarkReady(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ApprovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Approve(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RejectPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Reject(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var ps transfer.PostSchedule
	if err := c.BodyParser(&ps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	scheduledPostID, delay, err := h.s.Schedule(c.Context(), userID, &ps)
	if err != nil {
		return RespondError(c, err)
	}

	err = queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{PostID: ps.PostID}, delay)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error scheduling post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scheduled_post_id": scheduledPostID,
		"message":           "Post scheduled successfully",
	})
}

// PublishBatch runs the pipeline immediately for a batch of posts against
// one platform account and reports per-post outcomes.
func (h *PostHandler) PublishBatch(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body struct {
		PostIDs   []int64 `json:"post_ids"`
		AccountID int64   `json:"account_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}
	if len(body.PostIDs) == 0 || body.AccountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_ids and account_id are required",
		})
	}

	summary := h.publish.PublishBatch(c.Context(), userID, body.PostIDs, body.AccountID)
	return c.Status(fiber.StatusOK).JSON(summary)
}

// PublishLogs returns the recorded publish attempts, either for one post or
// by the remote job id a partial outcome handed back.
func (h *PostHandler) PublishLogs(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if remoteJobID := c.Query("remote_job_id"); remoteJobID != "" {
		attempt, err := h.publish.Attempt(c.Context(), userID, remoteJobID)
		if err != nil {
			return RespondError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(attempt)
	}

	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("post_id", 0))

	logs, err := h.publish.History(c.Context(), userID, clientID, postID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Unschedule(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// ListScheduled returns the client's calendar view.
func (h *PostHandler) ListScheduled(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))

	scheduled, err := h.s.Calendar(c.Context(), userID, clientID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(scheduled)
}

func (h *PostHandler) ArchivePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Archive(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	clientID := int64(c.QueryInt("client_id", 0))
	postID := int64(c.QueryInt("id", 0))

	if err := h.s.Remove(c.Context(), userID, clientID, postID); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) AssistCaption(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CaptionAssist
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	caption, err := h.s.AssistCaption(c.Context(), userID, &req)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"caption": caption,
	})
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func firstFile(files []*multipart.FileHeader) *multipart.FileHeader {
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
