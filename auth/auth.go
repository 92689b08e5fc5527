package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const TOKEN_TYPE string = "bearer"
const ACCESS_TOKEN_TTL time.Duration = 30 * 24 * time.Hour
const MIN_PASSWORD_LENGTH int = 6

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

func HashPassword(password string) (string, error) {
	if len(password) < MIN_PASSWORD_LENGTH {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func IsPasswordHashCorrect(dbHash, pass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(dbHash), []byte(pass))
	return err == nil
}

// CreateAccessToken signs an HS256 token carrying the user id as subject.
func CreateAccessToken(secret string, userId primitive.ObjectID, email string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	now := time.Now()
	claims := token.Claims.(jwt.MapClaims)
	claims["sub"] = userId.Hex()
	claims["email"] = email
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ACCESS_TOKEN_TTL).Unix()

	return token.SignedString([]byte(secret))
}
