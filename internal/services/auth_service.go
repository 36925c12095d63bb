package services

import (
	"errors"
	"fmt"
	"strings"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
	"fixpoint_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors for Auth ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is deactivated")
)

// User roles.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

// TokenPair is returned on successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// --- AuthService Interface ---

type AuthService interface {
	// Register creates a user. When the payload names a new store it
	// bootstraps the store and its first admin user in one transaction.
	Register(req models.RegistrationPayload) (*models.User, error)
	Login(creds models.Credentials) (*models.User, *TokenPair, error)
	Refresh(refreshToken string) (*TokenPair, error)
	GetCurrentUser(userID int64) (*models.User, error)
}

// --- authService Implementation ---

type authService struct {
	userRepo repositories.UserRepository
	tx       TxRunner
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(repo repositories.UserRepository, tx TxRunner) AuthService {
	return &authService{userRepo: repo, tx: tx}
}

func (s *authService) Register(req models.RegistrationPayload) (*models.User, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if req.StoreID == nil && (req.StoreName == nil || strings.TrimSpace(*req.StoreName) == "") {
		return nil, fmt.Errorf("%w: either store_id or store_name is required", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := RoleTechnician
	if req.Role != nil {
		role = strings.ToLower(*req.Role)
	}
	if role != RoleAdmin && role != RoleTechnician {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
	}

	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if req.StoreID != nil {
			store, err := s.userRepo.GetStoreByID(*req.StoreID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return ErrStoreNotFound
				}
				return fmt.Errorf("failed to look up store: %w", err)
			}
			user.StoreID = store.ID
		} else {
			// First user of a new store is always its admin.
			store := &models.Store{Name: *req.StoreName}
			if _, err := s.userRepo.CreateStore(tx, store); err != nil {
				return fmt.Errorf("failed to create store: %w", err)
			}
			user.StoreID = store.ID
			user.Role = RoleAdmin
		}

		id, err := s.userRepo.CreateUser(tx, user, string(hashed))
		if err != nil {
			return err
		}
		user.ID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	return s.userRepo.FindUserByID(user.ID)
}

func (s *authService) Login(creds models.Credentials) (*models.User, *TokenPair, error) {
	user, hashedPassword, err := s.userRepo.FindUserByUsername(creds.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(creds.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	access, err := utils.GenerateAccessToken(user.ID, user.StoreID, user.Username, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := utils.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	access, err := utils.GenerateAccessToken(user.ID, user.StoreID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) GetCurrentUser(userID int64) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}
