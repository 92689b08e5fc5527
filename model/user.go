package model

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

var Roles = mapset.NewSet[Role](RoleStudent, RoleOrganizer, RoleAdmin)

// HostRoles are the roles allowed to list new fests.
var HostRoles = mapset.NewSet[Role](RoleOrganizer, RoleAdmin)

type User struct {
	Id        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Role      Role               `json:"role" bson:"role"`
	College   string             `json:"college,omitempty" bson:"college,omitempty"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Bio       string             `json:"bio,omitempty" bson:"bio,omitempty"`
	Avatar    string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) CanHost() bool {
	return HostRoles.Contains(u.Role)
}

// UserView is the public shape returned by the auth endpoints.
type UserView struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
	College  string `json:"college,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (u User) View() UserView {
	return UserView{
		Id:       u.Id.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
		College:  u.College,
		Bio:      u.Bio,
		Avatar:   u.Avatar,
		IsActive: u.IsActive,
	}
}

type UserSummary struct {
	Id      primitive.ObjectID `json:"_id"`
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Phone   string             `json:"phone,omitempty"`
	College string             `json:"college,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		Id:      u.Id,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		College: u.College,
	}
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserView `json:"user"`
}
