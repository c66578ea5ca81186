// Package services contains the client's application services. This file
// defines the identity provider: email and password sign-up and sign-in
// against the remote document store, with the session kept as a signed
// token in local metadata.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/cryptox"
	"github.com/dmitrijs2005/glucokeeper/internal/docstore"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
	"github.com/google/uuid"
)

// Account is a signed-in identity. ID scopes every remote document.
type Account struct {
	ID    string
	Email string
}

// AuthService defines the identity operations the controller and CLI use.
//
// Contract:
//   - SignUp: create an identity and sign it in.
//   - SignIn: verify credentials and persist a session token.
//   - Resolve: return the account of the stored session, or nil when there
//     is none (missing, expired or tampered tokens all count as none).
//   - SignOut: forget the stored session.
type AuthService interface {
	SignUp(ctx context.Context, email string, password []byte) (*Account, error)
	SignIn(ctx context.Context, email string, password []byte) (*Account, error)
	Resolve(ctx context.Context) (*Account, error)
	SignOut(ctx context.Context) error
}

type identityDoc struct {
	AccountID string    `json:"accountId"`
	Email     string    `json:"email"`
	Salt      []byte    `json:"salt"`
	Verifier  []byte    `json:"verifier"`
	CreatedAt time.Time `json:"createdAt"`
}

type authService struct {
	store    docstore.Store
	meta     metadata.Repository
	secret   []byte
	validity time.Duration
	log      logging.Logger
}

// NewAuthService binds identities in store to sessions kept in meta.
func NewAuthService(store docstore.Store, meta metadata.Repository, secret []byte, validity time.Duration, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{store: store, meta: meta, secret: secret, validity: validity, log: log}
}

func identityPath(email string) string {
	return docstore.Join("identities", cryptox.EmailKey(email))
}

func validateCredentials(email string, password []byte) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return common.NewValidationError("email", "must be an email address")
	}
	if len(password) == 0 {
		return common.NewValidationError("password", "required")
	}
	return nil
}

// SignUp stores a salt and verifier for email under a new account id and
// then signs in. An email that is already registered gives
// common.ErrAlreadyExists.
func (a *authService) SignUp(ctx context.Context, email string, password []byte) (*Account, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	path := identityPath(email)

	_, err := a.store.Get(ctx, path)
	if err == nil {
		return nil, common.ErrAlreadyExists
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("identity lookup error: %w", err)
	}

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	doc := identityDoc{
		AccountID: uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Salt:      salt,
		Verifier:  cryptox.MakeVerifier(key),
		CreatedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := a.store.Put(ctx, path, body); err != nil {
		return nil, fmt.Errorf("identity save error: %w", err)
	}
	a.log.Info(ctx, "account created", "account", doc.AccountID)

	return a.startSession(ctx, doc)
}

// SignIn checks password against the stored verifier. Unknown emails and
// wrong passwords both give common.ErrUnauthorized.
func (a *authService) SignIn(ctx context.Context, email string, password []byte) (*Account, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	body, err := a.store.Get(ctx, identityPath(email))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("identity lookup error: %w", err)
	}

	var doc identityDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("identity decode error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, doc.Salt)
	defer common.WipeByteArray(key)

	if !cryptox.VerifierMatches(doc.Verifier, cryptox.MakeVerifier(key)) {
		return nil, common.ErrUnauthorized
	}
	return a.startSession(ctx, doc)
}

func (a *authService) startSession(ctx context.Context, doc identityDoc) (*Account, error) {
	token, err := GenerateToken(doc.AccountID, doc.Email, a.secret, a.validity)
	if err != nil {
		return nil, fmt.Errorf("token error: %w", err)
	}
	if err := a.meta.Set(ctx, common.SessionTokenKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("session save error: %w", err)
	}
	return &Account{ID: doc.AccountID, Email: doc.Email}, nil
}

func (a *authService) Resolve(ctx context.Context) (*Account, error) {
	raw, err := a.meta.Get(ctx, common.SessionTokenKey)
	if err != nil {
		return nil, fmt.Errorf("session load error: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	claims, err := ParseToken(string(raw), a.secret)
	if err != nil {
		a.log.Info(ctx, "discarding stored session", "reason", err)
		if err := a.meta.Delete(ctx, common.SessionTokenKey); err != nil {
			return nil, fmt.Errorf("session delete error: %w", err)
		}
		return nil, nil
	}
	return &Account{ID: claims.Subject, Email: claims.Email}, nil
}

func (a *authService) SignOut(ctx context.Context) error {
	return a.meta.Delete(ctx, common.SessionTokenKey)
}
