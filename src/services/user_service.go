package services

import (
	"context"
	"errors"
	"spendsage-server/src/access"
	"spendsage-server/src/auth"
	"spendsage-server/src/models"
	"spendsage-server/src/store"
	"spendsage-server/src/util"
	"time"

	"go.uber.org/zap"
)

type UserService struct {
	store  store.Store
	tokens *auth.TokenManager
	cache  UserCache
	log    *zap.Logger
}

func NewUserService(s store.Store, tokens *auth.TokenManager, cache UserCache, log *zap.Logger) *UserService {
	return &UserService{store: s, tokens: tokens, cache: cache, log: log.Named("users")}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = util.NormalizeEmail(in.Email)
	errs := &ValidationError{}
	switch {
	case in.Email == "":
		errs.Add("email", msgRequired)
	case !util.ValidateEmail(in.Email):
		errs.Add("email", "Enter a valid email address.")
	}
	switch {
	case in.Username == "":
		errs.Add("username", msgRequired)
	case !util.ValidateUsername(in.Username):
		errs.Add("username", "Enter a valid username of 3 to 150 letters, digits and @/./+/-/_ characters.")
	}
	switch {
	case in.Password == "":
		errs.Add("password", msgRequired)
	case !util.ValidatePassword(in.Password):
		errs.Add("password", "Password must be at least 8 characters with uppercase, lowercase, digit, and special character.")
	}
	if in.CurrencyPreference == "" {
		in.CurrencyPreference = models.DefaultCurrency
	} else if !util.ValidateCurrency(in.CurrencyPreference) {
		errs.Add("currency_preference", "Enter a valid currency code.")
	}
	maxLength(errs, "name", &in.Name, 255)
	maxLength(errs, "phone_number", &in.PhoneNumber, 20)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var out *models.User
	err = s.store.Update(ctx, func(r store.Repository) error {
		if _, err := r.GetUserByEmail(ctx, in.Email); err == nil {
			return fieldError("email", "A user with this email already exists.")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		var err error
		out, err = r.CreateUser(ctx, &models.User{
			Email:              in.Email,
			Username:           in.Username,
			Name:               in.Name,
			PhoneNumber:        in.PhoneNumber,
			CurrencyPreference: in.CurrencyPreference,
			PasswordHash:       hash,
		})
		return err
	})
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		return nil, fieldError("email", "A user with this email already exists.")
	case errors.Is(err, store.ErrConflict):
		return nil, fieldError("username", "A user with that username already exists.")
	case err != nil:
		return nil, err
	}
	s.log.Info("registered user", zap.Int64("user_id", out.ID))
	return out, nil
}

// Login checks the credentials and issues an access/refresh pair. Unknown
// email and wrong password are reported identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = util.NormalizeEmail(email)
	var user *models.User
	err := s.store.Update(ctx, func(r store.Repository) error {
		var err error
		user, err = r.GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if !auth.CheckPassword(user.PasswordHash, password) {
			return ErrInvalidCredentials
		}
		return r.TouchLastLogin(ctx, user.ID, time.Now())
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.Warn("failed login attempt", zap.String("email", email))
		}
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.Int64("user_id", user.ID))
	return &models.LoginResponse{Access: accessToken, Refresh: refresh, UserID: user.ID, Email: user.Email}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	user, err := s.Resolve(ctx, claims.UserID)
	if err != nil {
		return "", auth.ErrInvalidToken
	}
	return s.tokens.IssueAccess(user.ID, user.Email)
}

// Authenticate turns a bearer access token into a principal for an
// existing user.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (access.Principal, error) {
	claims, err := s.tokens.Parse(accessToken, auth.TokenAccess)
	if err != nil {
		return access.Principal{}, err
	}
	user, err := s.Resolve(ctx, claims.UserID)
	if err != nil {
		return access.Principal{}, auth.ErrInvalidToken
	}
	return access.Principal{UserID: user.ID, Email: user.Email}, nil
}

// Resolve loads a user by id through the cache.
func (s *UserService) Resolve(ctx context.Context, id int64) (*models.User, error) {
	if s.cache != nil {
		if u, ok := s.cache.Get(id); ok {
			return u, nil
		}
	}
	var user *models.User
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		user, err = r.GetUserByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(user)
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, p access.Principal) (*models.User, error) {
	var user *models.User
	err := s.store.View(ctx, func(r store.Repository) error {
		var err error
		user, err = r.GetUserByID(ctx, p.UserID)
		return err
	})
	return user, err
}

func (s *UserService) UpdateProfile(ctx context.Context, p access.Principal, in ProfileInput) (*models.User, error) {
	var out *models.User
	err := s.store.Update(ctx, func(r store.Repository) error {
		u, err := r.GetUserByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		if in.Username != nil {
			u.Username = *in.Username
		}
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.PhoneNumber != nil {
			u.PhoneNumber = *in.PhoneNumber
		}
		if in.CurrencyPreference != nil {
			u.CurrencyPreference = *in.CurrencyPreference
		}

		errs := &ValidationError{}
		if !util.ValidateUsername(u.Username) {
			errs.Add("username", "Enter a valid username of 3 to 150 letters, digits and @/./+/-/_ characters.")
		}
		if !util.ValidateCurrency(u.CurrencyPreference) {
			errs.Add("currency_preference", "Enter a valid currency code.")
		}
		maxLength(errs, "name", &u.Name, 255)
		maxLength(errs, "phone_number", &u.PhoneNumber, 20)
		if err := errs.Err(); err != nil {
			return err
		}

		out, err = r.UpdateUser(ctx, u)
		return err
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fieldError("username", "A user with that username already exists.")
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Del(p.UserID)
	}
	return out, nil
}
