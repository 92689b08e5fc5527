package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/database"
	apperrors "gofest/errors"
	"gofest/middleware"
	"gofest/model"
)

const (
	DEFAULT_PAGE_LIMIT int64 = 20
	MAX_PAGE_LIMIT     int64 = 100
)

func dbError(c *fiber.Ctx, err error) error {
	return apperrors.RaiseInternalServerError(c, fmt.Sprintf("database error: %v", err))
}

func queryInt64(c *fiber.Ctx, key string, fallback int64) int64 {
	n, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (h *Handler) ListFests(c *fiber.Ctx) error {
	query := model.FestQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Skip:     queryInt64(c, "skip", 0),
		Limit:    queryInt64(c, "limit", DEFAULT_PAGE_LIMIT),
	}
	if query.Skip < 0 {
		query.Skip = 0
	}
	if query.Limit < 1 {
		query.Limit = 1
	}
	if query.Limit > MAX_PAGE_LIMIT {
		query.Limit = MAX_PAGE_LIMIT
	}

	fests, total, err := h.Store.ListFests(c.UserContext(), query)
	if err != nil {
		return dbError(c, err)
	}
	return c.JSON(model.FestsPage{Fests: fests, Total: total, Skip: query.Skip, Limit: query.Limit})
}

func (h *Handler) GetFestBySlug(c *fiber.Ctx) error {
	fest, err := h.Store.GetFestBySlug(c.UserContext(), c.Params("slug"))
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.RaiseNotFoundError(c, "Fest not found")
	}
	if err != nil {
		return dbError(c, err)
	}
	return c.JSON(fest)
}

func (h *Handler) GetMyFests(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	fests, err := h.Store.GetFestsByHost(c.UserContext(), user.Id)
	if err != nil {
		return dbError(c, err)
	}
	return c.JSON(fests)
}

// uniqueSlug returns base, or the first of base-2, base-3... not yet taken.
func (h *Handler) uniqueSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for n := 2; ; n++ {
		_, err := h.Store.GetFestBySlug(ctx, slug)
		if errors.Is(err, database.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (h *Handler) CreateFest(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	if !user.CanHost() {
		return apperrors.RaisePermissionsError(c, "Only organizers can create fests")
	}

	fest := new(model.Fest)
	if err := c.BodyParser(fest); err != nil {
		return apperrors.RaiseBadRequestError(c, fmt.Sprintf("unacceptable fest parameters: %v", err))
	}
	fest.Id = primitive.NilObjectID
	fest.HostedBy = user.Id
	fest.RegistrationsCount = 0
	fest.ApplyDefaults()
	if fest.Slug == "" {
		fest.Slug = model.Slugify(fest.Title)
	}

	if err := fest.Validate(); err != nil {
		return apperrors.RaiseBadRequestError(c, err.Error())
	}

	slug, err := h.uniqueSlug(c.UserContext(), fest.Slug)
	if err != nil {
		return dbError(c, err)
	}
	fest.Slug = slug

	if err := h.Store.CreateFest(c.UserContext(), fest); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.RaiseBadRequestError(c, "A fest with this slug already exists")
		}
		return dbError(c, err)
	}
	h.Log.Infof("fest %v (%v) created by %v", fest.Id.Hex(), fest.Slug, user.Id.Hex())

	return c.Status(fiber.StatusCreated).JSON(fest)
}

// hostedFest loads the fest named by the :id param and checks the caller may manage it.
func (h *Handler) hostedFest(c *fiber.Ctx, denied string) (model.Fest, bool, error) {
	id, ok := paramId(c, "id")
	if !ok {
		return model.Fest{}, false, apperrors.RaiseBadRequestError(c, "Invalid fest id")
	}
	fest, err := h.Store.GetFest(c.UserContext(), id)
	if errors.Is(err, database.ErrNotFound) {
		return model.Fest{}, false, apperrors.RaiseNotFoundError(c, "Fest not found")
	}
	if err != nil {
		return model.Fest{}, false, dbError(c, err)
	}

	user, _ := middleware.CurrentUser(c)
	if !fest.IsHostedBy(user.Id) && !user.IsAdmin() {
		return model.Fest{}, false, apperrors.RaisePermissionsError(c, denied)
	}
	return fest, true, nil
}

func (h *Handler) UpdateFest(c *fiber.Ctx) error {
	existing, ok, err := h.hostedFest(c, "You don't have permission to edit this fest")
	if !ok {
		return err
	}

	updated := existing
	updated.Events = nil
	if err := c.BodyParser(&updated); err != nil {
		return apperrors.RaiseBadRequestError(c, fmt.Sprintf("unacceptable fest parameters: %v", err))
	}
	if updated.Events == nil {
		updated.Events = existing.Events
	}
	updated.Id = existing.Id
	updated.HostedBy = existing.HostedBy
	updated.RegistrationsCount = existing.RegistrationsCount
	updated.CreatedAt = existing.CreatedAt
	updated.ApplyDefaults()
	if updated.Slug == "" {
		updated.Slug = model.Slugify(updated.Title)
	}

	if err := updated.Validate(); err != nil {
		return apperrors.RaiseBadRequestError(c, err.Error())
	}

	if updated.Slug != existing.Slug {
		other, err := h.Store.GetFestBySlug(c.UserContext(), updated.Slug)
		if err == nil && other.Id != existing.Id {
			return apperrors.RaiseBadRequestError(c, "A fest with this slug already exists")
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return dbError(c, err)
		}
	}

	if err := h.Store.UpdateFest(c.UserContext(), &updated); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.RaiseBadRequestError(c, "A fest with this slug already exists")
		}
		return dbError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) DeleteFest(c *fiber.Ctx) error {
	fest, ok, err := h.hostedFest(c, "You don't have permission to delete this fest")
	if !ok {
		return err
	}

	deleted, err := h.Store.DeleteRegistrationsByFest(c.UserContext(), fest.Id)
	if err != nil {
		return dbError(c, err)
	}
	if err := h.Store.DeleteFest(c.UserContext(), fest.Id); err != nil {
		return dbError(c, err)
	}
	h.Log.Infof("fest %v deleted with %d registrations", fest.Id.Hex(), deleted)

	return c.JSON(fiber.Map{"message": "Fest deleted successfully"})
}
