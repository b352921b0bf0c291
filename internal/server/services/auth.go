package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/auth"
)

type LoginResult struct {
	Token  string
	UserID string
}

// AuthService checks credentials against the configured user table and
// issues access tokens.
type AuthService struct {
	users                       auth.Users
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	log                         logging.Logger
}

func NewAuthService(users auth.Users, secret string, validity time.Duration, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop{}
	}
	return &AuthService{
		users:                       users,
		jwtSecret:                   []byte(secret),
		accessTokenValidityDuration: validity,
		log:                         log.With("module", "auth"),
	}
}

// Login returns a fresh access token, or common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	userID, ok := s.users.Authenticate(username, password)
	if !ok {
		s.log.Warn(ctx, "login failed", "username", username)
		return nil, common.ErrorUnauthorized
	}

	token, err := s.IssueToken(userID)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login", "user_id", userID)
	return &LoginResult{Token: token, UserID: userID}, nil
}

// IssueToken mints an access token for userID without checking credentials.
func (s *AuthService) IssueToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

// Authenticate resolves an access token to its user id.
func (s *AuthService) Authenticate(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}
