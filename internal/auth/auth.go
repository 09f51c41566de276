package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDisabled возвращается, когда JWT_SECRET не задан и вход отключен
	ErrDisabled = errors.New("session auth is disabled")
)

// UserRepository определяет контракт чтения учетных записей операторов
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service - явный сессионный объект дашборда: выдает и проверяет токены
// вместо глобального состояния авторизации на фронтенде
type Service struct {
	users  UserRepository
	secret []byte
}

func NewService(users UserRepository, secret string) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
	}
}

// Claims - полезная нагрузка сессионного токена
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticate проверяет пару логин/пароль и выдает сессионный токен
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, string, error) {
	if len(s.secret) == 0 {
		return nil, "", ErrDisabled
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// ParseToken проверяет подпись и срок действия токена
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrDisabled
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
