package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

const (
	DisplayNameMinLength = 2
	DisplayNameMaxLength = 32
)

type displayNameRequest struct {
	DisplayName string `validate:"required,min=2,max=32"`
}

var validate = validator.New()

// validateDisplayName trims name and checks its length in runes.
func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)

	err := validate.Struct(displayNameRequest{DisplayName: name})
	if err == nil {
		return name, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err
	}
	switch verrs[0].Tag() {
	case "required":
		return "", ErrMissingDisplayName
	case "min":
		return "", ErrDisplayNameTooShort
	case "max":
		return "", ErrDisplayNameTooLong
	default:
		return "", err
	}
}

type Session struct {
	User    User
	Token   string
	TokenID string
}

type UserPatch struct {
	DisplayName *string
	Status      *string
}

// Directory owns users and their registration secrets. Writes to a user go
// through one lock so read-modify-write cycles do not interleave.
type Directory struct {
	mu     sync.Mutex
	store  UserStore
	tokens *TokenService
	logger *slog.Logger
	cost   int
	now    func() time.Time
}

// Register creates a user. The returned secret is the only copy that ever
// leaves the directory.
func (d *Directory) Register(ctx context.Context, displayName string) (User, string, error) {
	name, err := validateDisplayName(displayName)
	if err != nil {
		return User{}, "", err
	}

	userID := uuid.NewString()
	secret, random, err := newSecret(userID)
	if err != nil {
		return User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(random), d.cost)
	if err != nil {
		return User{}, "", fmt.Errorf("unable hash secret. Err: %w", err)
	}

	now := d.now()
	record := UserRecord{
		User: User{
			ID:          userID,
			DisplayName: name,
			LastSeen:    now,
			CreatedAt:   now,
		},
		SecretHash: hash,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.Insert(ctx, record); err != nil {
		return User{}, "", fmt.Errorf("unable insert user: %w", err)
	}

	d.logger.Info("user registered", slog.String("userId", userID))
	return record.User, secret, nil
}

// Login checks a registration secret and opens a session.
func (d *Directory) Login(ctx context.Context, secret string) (*Session, error) {
	userID, random, ok := parseSecret(secret)
	if !ok {
		return nil, ErrUserNotFound
	}

	record, err := d.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(record.SecretHash, []byte(random)); err != nil {
		return nil, ErrWrongSecret
	}

	return d.StartSession(ctx, record.ID)
}

// StartSession issues a session token for an existing user.
func (d *Directory) StartSession(ctx context.Context, userID protocol.UserID) (*Session, error) {
	user, err := d.Touch(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, tokenCtx, err := d.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:    user,
		Token:   token,
		TokenID: tokenCtx.TokenID,
	}, nil
}

func (d *Directory) EndSession(tokenID string) {
	d.tokens.Revoke(tokenID)
}

// VerifyToken resolves the user of a live session token.
func (d *Directory) VerifyToken(ctx context.Context, token string) (User, error) {
	tokenCtx, err := d.tokens.Verify(token)
	if err != nil {
		return User{}, err
	}
	return d.Get(ctx, tokenCtx.UserID)
}

func (d *Directory) Get(ctx context.Context, userID protocol.UserID) (User, error) {
	record, err := d.store.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return record.User, nil
}

// Touch stamps the last-seen time of a user.
func (d *Directory) Touch(ctx context.Context, userID protocol.UserID) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, err := d.store.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}

	record.LastSeen = d.now()
	if err := d.store.Update(ctx, record); err != nil {
		return User{}, err
	}
	return record.User, nil
}

// Update applies patch and reports the names of the properties that changed.
func (d *Directory) Update(ctx context.Context, userID protocol.UserID, patch UserPatch) (User, []string, error) {
	var name string
	if patch.DisplayName != nil {
		validated, err := validateDisplayName(*patch.DisplayName)
		if err != nil {
			return User{}, nil, err
		}
		name = validated
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	record, err := d.store.Get(ctx, userID)
	if err != nil {
		return User{}, nil, err
	}

	changed := make([]string, 0, 2)
	if patch.DisplayName != nil && name != record.DisplayName {
		record.DisplayName = name
		changed = append(changed, "displayName")
	}
	if patch.Status != nil && *patch.Status != record.Status {
		record.Status = *patch.Status
		changed = append(changed, "status")
	}
	record.LastSeen = d.now()

	if err := d.store.Update(ctx, record); err != nil {
		return User{}, nil, err
	}
	return record.User, changed, nil
}

type NewDirectoryParams struct {
	fx.In

	Store  UserStore
	Tokens *TokenService
	Config *variables.Config
	Logger *slog.Logger
}

func NewDirectory(params NewDirectoryParams) *Directory {
	cost := params.Config.SecretHashCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	return &Directory{
		store:  params.Store,
		tokens: params.Tokens,
		logger: params.Logger,
		cost:   cost,
		now:    time.Now,
	}
}
