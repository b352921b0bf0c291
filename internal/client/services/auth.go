package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/nibblelog/internal/client/client"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/entities"
	"github.com/dmitrijs2005/nibblelog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/nibblelog/internal/dbx"
)

// Session is the signed-in identity stored on the device.
type Session struct {
	UserID   string
	Username string
	Token    string
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*Session, error)
	Logout(ctx context.Context) error
	// Session returns ErrNotLoggedIn when no token is stored.
	Session(ctx context.Context) (*Session, error)
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

// Login exchanges credentials for a token and stores it. Signing in as a
// different user than before drops the local replica and the pull cursor;
// the outbox is kept since its rows are tagged with their author.
func (a *authService) Login(ctx context.Context, username, password string) (*Session, error) {
	res, err := a.client.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := metadata.NewSQLiteRepository(tx)

		prev, err := meta.GetString(ctx, metadata.KeyUserID)
		if err != nil {
			return err
		}
		if prev != "" && prev != res.UserID {
			if err := meta.Delete(ctx, metadata.KeyCursor); err != nil {
				return err
			}
			if err := entities.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		}

		if err := meta.SetString(ctx, metadata.KeyAccessToken, res.Token); err != nil {
			return err
		}
		if err := meta.SetString(ctx, metadata.KeyUserID, res.UserID); err != nil {
			return err
		}
		return meta.SetString(ctx, metadata.KeyUsername, username)
	})
	if err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	a.client.SetAccessToken(res.Token)
	return &Session{UserID: res.UserID, Username: username, Token: res.Token}, nil
}

// Logout forgets the token but keeps local data for offline viewing.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return metadata.NewSQLiteRepository(a.db).Delete(ctx, metadata.KeyAccessToken)
}

func (a *authService) Session(ctx context.Context) (*Session, error) {
	meta := metadata.NewSQLiteRepository(a.db)

	token, err := meta.GetString(ctx, metadata.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	s := &Session{Token: token}
	if s.UserID, err = meta.GetString(ctx, metadata.KeyUserID); err != nil {
		return nil, err
	}
	if s.Username, err = meta.GetString(ctx, metadata.KeyUsername); err != nil {
		return nil, err
	}
	return s, nil
}
