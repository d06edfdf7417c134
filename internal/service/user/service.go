package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
	userrepo "storefront/internal/repository/user"
)

// ErrInvalidCredentials is returned when email/password do not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service registers storefront accounts and checks their passwords.
type Service struct {
	repo        userrepo.Repository
	passwordMin int
	cost        int
}

func New(repo userrepo.Repository) *Service {
	return &Service{repo: repo, passwordMin: 8, cost: bcrypt.DefaultCost}
}

// RegisterInput captures fields expected by the registration endpoint.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// Register creates a CUSTOMER account at BRONZE with no points.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, domain.Invalid("email %q is not valid", in.Email)
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, domain.Invalid("fullName is required")
	}
	if err := validatePassword(in.Password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, domain.User{
		Email:        email,
		FullName:     name,
		PasswordHash: string(hashed),
		Role:         domain.RoleCustomer,
		Active:       true,
	})
}

// Authenticate returns the account when the password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, domain.Fail(domain.ErrAccountInactive)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Invalid("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Invalid("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
