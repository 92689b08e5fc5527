package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gofest/database"
	apperrors "gofest/errors"
	"gofest/mailer"
	"gofest/middleware"
	"gofest/model"
)

type registerRequest struct {
	RegisteredEvents []string `json:"registeredEvents"`
}

// pickEvents dedupes the requested event names keeping their order and checks
// each one is an event of the fest.
func pickEvents(fest model.Fest, requested []string) ([]string, error) {
	known := fest.EventNames()
	seen := mapset.NewThreadUnsafeSet[string]()
	picked := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" || seen.Contains(name) {
			continue
		}
		if !known.Contains(name) {
			return nil, fmt.Errorf("Unknown event: %v", name)
		}
		seen.Add(name)
		picked = append(picked, name)
	}
	return picked, nil
}

func (h *Handler) Register(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	ctx := c.UserContext()

	festId, ok := paramId(c, "id")
	if !ok {
		return apperrors.RaiseBadRequestError(c, "Invalid fest id")
	}
	fest, err := h.Store.GetFest(ctx, festId)
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.RaiseNotFoundError(c, "Fest not found")
	}
	if err != nil {
		return dbError(c, err)
	}
	if fest.Status != model.FestPublished {
		return apperrors.RaiseBadRequestError(c, "Fest is not open for registration")
	}
	if fest.IsHostedBy(user.Id) {
		return apperrors.RaiseBadRequestError(c, "You cannot register for your own fest")
	}

	req := new(registerRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperrors.RaiseBadRequestError(c, "Invalid request body")
		}
	}
	events, err := pickEvents(fest, req.RegisteredEvents)
	if err != nil {
		return apperrors.RaiseBadRequestError(c, err.Error())
	}

	reg, err := h.Store.FindRegistration(ctx, user.Id, fest.Id)
	found := err == nil
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return dbError(c, err)
	}
	if found && !reg.IsCancelled() {
		return apperrors.RaiseBadRequestError(c, "Already registered for this fest")
	}

	reg.User = user.Id
	reg.Fest = fest.Id
	reg.RegisteredEvents = events
	reg.Status = model.RegistrationRegistered
	reg.PaymentStatus = model.PaymentNotRequired
	reg.PaymentAmount = fest.Fee()
	if reg.PaymentAmount > 0 {
		reg.PaymentStatus = model.PaymentPending
	}

	if found {
		reg.RegistrationDate = time.Now().UTC()
		reactivated, err := h.Store.ReactivateRegistration(ctx, &reg)
		if err != nil {
			return dbError(c, err)
		}
		if !reactivated {
			return apperrors.RaiseBadRequestError(c, "Already registered for this fest")
		}
	} else {
		err := h.Store.CreateRegistration(ctx, &reg)
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.RaiseBadRequestError(c, "Already registered for this fest")
		}
		if err != nil {
			return dbError(c, err)
		}
	}

	if err := h.Store.IncRegistrations(ctx, fest.Id, 1); err != nil {
		return dbError(c, err)
	}
	fest.RegistrationsCount++

	organizerEmail := fest.Organizer.Email
	if host, err := h.Store.GetUser(ctx, fest.HostedBy); err == nil && host.Email != "" {
		organizerEmail = host.Email
	}
	mailer.Dispatch(h.Notifier, h.Log, mailer.Notice{
		Registration:   reg,
		User:           user,
		Fest:           fest,
		OrganizerEmail: organizerEmail,
	})

	view := reg.View()
	view.User = user.Summary()
	view.Fest = fest
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *Handler) GetMyRegistrations(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	regs, err := h.Store.GetRegistrationsByUser(c.UserContext(), user.Id)
	if err != nil {
		return dbError(c, err)
	}
	festIds := make([]primitive.ObjectID, 0, len(regs))
	for _, r := range regs {
		festIds = append(festIds, r.Fest)
	}
	fests, err := h.Store.GetFests(c.UserContext(), uniqueIds(festIds))
	if err != nil {
		return dbError(c, err)
	}

	views := make([]model.RegistrationView, 0, len(regs))
	for _, r := range regs {
		view := r.View()
		if fest, ok := fests[r.Fest]; ok {
			view.Fest = fest.Summary()
		} else {
			view.Fest = nil
		}
		views = append(views, view)
	}
	return c.JSON(views)
}

// ownedRegistration loads the registration named by :id if the caller owns it.
func (h *Handler) ownedRegistration(c *fiber.Ctx, denied string) (model.Registration, bool, error) {
	id, ok := paramId(c, "id")
	if !ok {
		return model.Registration{}, false, apperrors.RaiseBadRequestError(c, "Invalid registration id")
	}
	reg, err := h.Store.GetRegistration(c.UserContext(), id)
	if errors.Is(err, database.ErrNotFound) {
		return model.Registration{}, false, apperrors.RaiseNotFoundError(c, "Registration not found")
	}
	if err != nil {
		return model.Registration{}, false, dbError(c, err)
	}

	user, _ := middleware.CurrentUser(c)
	if !reg.IsOwnedBy(user.Id) {
		return model.Registration{}, false, apperrors.RaisePermissionsError(c, denied)
	}
	return reg, true, nil
}

func (h *Handler) GetRegistration(c *fiber.Ctx) error {
	reg, ok, err := h.ownedRegistration(c, "You don't have permission to view this registration")
	if !ok {
		return err
	}
	user, _ := middleware.CurrentUser(c)

	view := reg.View()
	view.User = user.Summary()
	fest, err := h.Store.GetFest(c.UserContext(), reg.Fest)
	switch {
	case err == nil:
		view.Fest = fest
	case errors.Is(err, database.ErrNotFound):
		view.Fest = nil
	default:
		return dbError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) CancelRegistration(c *fiber.Ctx) error {
	reg, ok, err := h.ownedRegistration(c, "You don't have permission to cancel this registration")
	if !ok {
		return err
	}
	if reg.IsCancelled() {
		return apperrors.RaiseBadRequestError(c, "Registration is already cancelled")
	}
	user, _ := middleware.CurrentUser(c)

	reg, cancelled, err := h.Store.CancelRegistration(c.UserContext(), reg.Id)
	if err != nil {
		return dbError(c, err)
	}
	if !cancelled {
		return apperrors.RaiseBadRequestError(c, "Registration is already cancelled")
	}
	if err := h.Store.IncRegistrations(c.UserContext(), reg.Fest, -1); err != nil {
		return dbError(c, err)
	}

	view := reg.View()
	view.User = user.Summary()
	if fest, err := h.Store.GetFest(c.UserContext(), reg.Fest); err == nil {
		view.Fest = fest.Summary()
	}
	return c.JSON(view)
}

func (h *Handler) GetFestRegistrations(c *fiber.Ctx) error {
	fest, ok, err := h.hostedFest(c, "You don't have permission to view registrations for this fest")
	if !ok {
		return err
	}

	regs, err := h.Store.GetRegistrationsByFest(c.UserContext(), fest.Id)
	if err != nil {
		return dbError(c, err)
	}
	userIds := make([]primitive.ObjectID, 0, len(regs))
	for _, r := range regs {
		userIds = append(userIds, r.User)
	}
	users, err := h.Store.GetUsers(c.UserContext(), uniqueIds(userIds))
	if err != nil {
		return dbError(c, err)
	}

	views := make([]model.RegistrationView, 0, len(regs))
	for _, r := range regs {
		view := r.View()
		if u, ok := users[r.User]; ok {
			view.User = u.Summary()
		}
		views = append(views, view)
	}
	return c.JSON(views)
}
