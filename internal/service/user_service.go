package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
	"meeting-planner/internal/repository"
)

// UserInput is the data required to create a user. ID is generated when
// absent.
type UserInput struct {
	ID         *uuid.UUID `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	TelegramID *int64     `json:"telegram_id"`
}

func (in UserInput) Validate() error {
	return validateEmail(in.Email)
}

// UserUpdate changes the fields that are set.
type UserUpdate struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	TelegramID *int64  `json:"telegram_id"`
}

func (u UserUpdate) Validate() error {
	if u.Email != nil {
		return validateEmail(*u.Email)
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("email %q is not a valid address", email)
	}
	return nil
}

// UserService keeps the local copy of users in sync and links them to
// Telegram chats.
type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) Create(ctx context.Context, input UserInput) (*model.User, error) {
	u, err := s.create(ctx, input)
	return u, apperr.Boundary("create user", err)
}

func (s *UserService) create(ctx context.Context, input UserInput) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	if input.ID != nil {
		id = *input.ID
		if _, err := s.store.Users.Get(ctx, id); err == nil {
			return nil, apperr.Validation("User with ID %s already exists", id)
		} else if !isNotFound(err) {
			return nil, err
		}
	}
	if err := s.ensureEmailFree(ctx, input.Email, uuid.Nil); err != nil {
		return nil, err
	}

	user := model.User{
		ID:         id,
		Email:      strings.TrimSpace(input.Email),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		TelegramID: input.TelegramID,
	}
	if err := s.store.Users.Create(ctx, &user); err != nil {
		return nil, err
	}
	log.Infof("user %s created", user.ID)
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.get(ctx, id)
	return u, apperr.Boundary("get user", err)
}

func (s *UserService) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	skip, limit = page(skip, limit)
	users, err := s.store.Users.List(ctx, skip, limit)
	return users, apperr.Boundary("list users", err)
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, update UserUpdate) (*model.User, error) {
	u, err := s.update(ctx, id, update)
	return u, apperr.Boundary("update user", err)
}

func (s *UserService) update(ctx context.Context, id uuid.UUID, update UserUpdate) (*model.User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.TelegramID != nil {
		telegramID := *update.TelegramID
		user.TelegramID = &telegramID
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	log.Infof("user %s updated", id)
	return user, nil
}

// Delete removes a user, its attendances and its task assignments.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.Users.DeleteWithLinks(ctx, id)
	if err != nil {
		return apperr.Boundary("delete user", err)
	}
	if !deleted {
		return apperr.NotFound("User with ID %s not found", id)
	}
	log.Infof("user %s deleted", id)
	return nil
}

// LinkTelegram ties a Telegram chat to the user with the given email. A chat
// previously linked to someone else moves to this user; a user already linked
// to another chat is refused.
func (s *UserService) LinkTelegram(ctx context.Context, email string, telegramID int64) (*model.User, error) {
	user, err := s.store.Users.LinkTelegram(ctx, strings.TrimSpace(email), telegramID)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, apperr.NotFound("User with email %s not found", email)
		case errors.Is(err, repository.ErrTelegramLinked):
			return nil, apperr.Forbidden("User with email %s is already linked to another chat", email)
		}
		return nil, apperr.Boundary("link telegram", err)
	}
	return user, nil
}

func (s *UserService) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("No user is linked to this chat")
		}
		return nil, apperr.Boundary("find user by telegram id", err)
	}
	return user, nil
}

// ListLinked returns the users reachable on Telegram.
func (s *UserService) ListLinked(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users.ListLinked(ctx)
	return users, apperr.Boundary("list linked users", err)
}

func (s *UserService) get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.store.Users.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("User with ID %s not found", id)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, owner uuid.UUID) error {
	users, err := s.store.Users.GetByField(ctx, "email", strings.TrimSpace(email))
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != owner {
			return apperr.Validation("User with email %s already exists", email)
		}
	}
	return nil
}
