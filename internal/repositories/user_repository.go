package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fixpoint_backend/internal/models"

	"github.com/lib/pq"
)

// UserRepository defines the interface for user and store database operations.
type UserRepository interface {
	CreateStore(executor SQLExecutor, store *models.Store) (int64, error)
	GetStoreByID(id int64) (*models.Store, error)

	CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error)
	FindUserByUsername(username string) (*models.User, string, error) // user, password hash, error
	FindUserByID(userID int64) (*models.User, error)
	// IsActiveStoreMember reports whether the user exists, is active and
	// belongs to the given store. Used to validate acting users on core
	// operations.
	IsActiveStoreMember(executor SQLExecutor, userID, storeID int64) (bool, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateStore(executor SQLExecutor, store *models.Store) (int64, error) {
	query := `INSERT INTO stores (name, phone, address, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, TRUE, $4, $4)
	          RETURNING id`
	err := executor.QueryRow(query, store.Name, store.Phone, store.Address, time.Now()).Scan(&store.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating store: %v", ErrDatabaseError, err)
	}
	return store.ID, nil
}

func (r *userRepository) GetStoreByID(id int64) (*models.Store, error) {
	store := &models.Store{}
	query := `SELECT id, name, phone, address, is_active, created_at, updated_at
	          FROM stores WHERE id = $1 AND is_active = TRUE`
	err := r.db.QueryRow(query, id).Scan(
		&store.ID, &store.Name, &store.Phone, &store.Address, &store.IsActive,
		&store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting store by ID %d: %v", ErrDatabaseError, id, err)
	}
	return store, nil
}

func (r *userRepository) CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	query := `INSERT INTO users (store_id, username, password_hash, email, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
	          RETURNING id`

	var userID int64
	err := executor.QueryRow(query,
		user.StoreID, user.Username, hashedPassword, user.Email, user.FullName, user.Role, time.Now(),
	).Scan(&userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return userID, nil
}

func (r *userRepository) FindUserByUsername(username string) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	query := `SELECT id, store_id, username, password_hash, email, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE username = $1`
	err := r.db.QueryRow(query, username).Scan(
		&user.ID, &user.StoreID, &user.Username, &hashedPassword, &user.Email, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: finding user by username: %v", ErrDatabaseError, err)
	}
	return user, hashedPassword, nil
}

func (r *userRepository) FindUserByID(userID int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, store_id, username, email, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE id = $1`
	err := r.db.QueryRow(query, userID).Scan(
		&user.ID, &user.StoreID, &user.Username, &user.Email, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	return user, nil
}

func (r *userRepository) IsActiveStoreMember(executor SQLExecutor, userID, storeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND store_id = $2 AND is_active = TRUE)`
	err := executor.QueryRow(query, userID, storeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking store membership for user %d: %v", ErrDatabaseError, userID, err)
	}
	return exists, nil
}
