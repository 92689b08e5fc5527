package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"gofest/auth"
	"gofest/database"
	apperrors "gofest/errors"
	"gofest/middleware"
	"gofest/model"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	College  string `json:"college"`
	Role     string `json:"role"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	College *string `json:"college"`
	Bio     *string `json:"bio"`
	Avatar  *string `json:"avatar"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) authResponse(user model.User) (model.AuthResponse, error) {
	token, err := auth.CreateAccessToken(h.SecretKey, user.Id, user.Email)
	if err != nil {
		return model.AuthResponse{}, err
	}
	return model.AuthResponse{
		AccessToken: token,
		TokenType:   auth.TOKEN_TYPE,
		User:        user.View(),
	}, nil
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	req := new(signupRequest)
	if err := c.BodyParser(req); err != nil {
		return apperrors.RaiseBadRequestError(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.RaiseBadRequestError(c, "Name, email, and password are required")
	}
	if len(req.Password) < auth.MIN_PASSWORD_LENGTH {
		return apperrors.RaiseBadRequestError(c, "Password must be at least 6 characters")
	}

	role := model.RoleStudent
	if req.Role != "" {
		role = model.Role(req.Role)
	}
	if !model.Roles.Contains(role) {
		return apperrors.RaiseBadRequestError(c, fmt.Sprintf("Invalid role: %v", req.Role))
	}

	ctx := c.UserContext()
	if _, err := h.Store.GetUserByEmail(ctx, req.Email); err == nil {
		return apperrors.RaiseBadRequestError(c, "Email address already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if req.Phone != "" {
		if _, err := h.Store.GetUserByPhone(ctx, req.Phone); err == nil {
			return apperrors.RaiseBadRequestError(c, "Phone number already registered")
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	user := model.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: hash,
		College:  strings.TrimSpace(req.College),
		Role:     role,
		IsActive: true,
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.RaiseBadRequestError(c, "Email already registered")
		}
		return err
	}
	h.Log.Infof("user %v signed up as %v", user.Id.Hex(), user.Role)

	res, err := h.authResponse(user)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) Signin(c *fiber.Ctx) error {
	req := new(signinRequest)
	if err := c.BodyParser(req); err != nil {
		return apperrors.RaiseBadRequestError(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.RaiseBadRequestError(c, "Email and password are required")
	}

	user, err := h.Store.GetUserByEmail(c.UserContext(), normalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.RaiseUnauthorizedError(c, "Incorrect email or password")
	}
	if err != nil {
		return err
	}
	if !auth.IsPasswordHashCorrect(user.Password, req.Password) {
		return apperrors.RaiseUnauthorizedError(c, "Incorrect email or password")
	}
	if !user.IsActive {
		return apperrors.RaisePermissionsError(c, "Account is inactive")
	}

	res, err := h.authResponse(user)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	return c.JSON(user.View())
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	req := new(profileRequest)
	if err := c.BodyParser(req); err != nil {
		return apperrors.RaiseBadRequestError(c, "Invalid request body")
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && phone != user.Phone {
			other, err := h.Store.GetUserByPhone(c.UserContext(), phone)
			if err == nil && other.Id != user.Id {
				return apperrors.RaiseBadRequestError(c, "Phone number already registered")
			}
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return err
			}
		}
		user.Phone = phone
	}
	if req.College != nil {
		user.College = strings.TrimSpace(*req.College)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Avatar != nil {
		user.Avatar = strings.TrimSpace(*req.Avatar)
	}

	if err := h.Store.UpdateUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.RaiseBadRequestError(c, "Phone number already registered")
		}
		return err
	}
	return c.JSON(user.View())
}
