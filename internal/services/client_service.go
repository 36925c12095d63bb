package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
)

// --- Custom Service Errors for Client ---
var (
	ErrPhoneNumberExists = errors.New("phone number already exists")
	ErrClientValidation  = errors.New("client data validation error")
)

// --- Client DTOs ---

type CreateClientRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Notes    *string `json:"notes"`
}

type UpdateClientRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Notes    *string `json:"notes"`
}

// --- ClientService Interface ---

type ClientService interface {
	CreateClient(storeID int64, req CreateClientRequest) (*models.Client, error)
	GetClientByID(storeID, clientID int64) (*models.Client, error)
	GetClients(storeID int64, page, pageSize int, searchTerm *string) ([]models.Client, int, error)
	UpdateClient(storeID, clientID int64, req UpdateClientRequest) (*models.Client, error)
	DeleteClient(storeID, clientID int64) error
}

// --- clientService Implementation ---

type clientService struct {
	clientRepo repositories.ClientRepository
	tx         TxRunner
}

// NewClientService creates a new instance of ClientService.
func NewClientService(repo repositories.ClientRepository, tx TxRunner) ClientService {
	return &clientService{clientRepo: repo, tx: tx}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)

func (s *clientService) validateClientData(fullName string, email *string) error {
	if strings.TrimSpace(fullName) == "" {
		return fmt.Errorf("%w: full name cannot be empty", ErrClientValidation)
	}
	if email != nil && *email != "" {
		em := strings.ToLower(strings.TrimSpace(*email))
		if !emailRegex.MatchString(em) {
			return fmt.Errorf("%w: email format is invalid", ErrClientValidation)
		}
	}
	return nil
}

func (s *clientService) CreateClient(storeID int64, req CreateClientRequest) (*models.Client, error) {
	if err := s.validateClientData(req.FullName, req.Email); err != nil {
		return nil, err
	}

	client := &models.Client{
		StoreID:  storeID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Tag:      TierNew,
		Notes:    req.Notes,
	}

	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		_, err := s.clientRepo.CreateClient(tx, client)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrPhoneNumberExists
		}
		return nil, fmt.Errorf("failed to create client in repository: %w", err)
	}
	return s.clientRepo.GetClientByID(storeID, client.ID)
}

func (s *clientService) GetClientByID(storeID, clientID int64) (*models.Client, error) {
	client, err := s.clientRepo.GetClientByID(storeID, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client by ID: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClients(storeID int64, page, pageSize int, searchTerm *string) ([]models.Client, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	clients, totalCount, err := s.clientRepo.GetClients(storeID, page, pageSize, searchTerm)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get clients: %w", err)
	}
	return clients, totalCount, nil
}

func (s *clientService) UpdateClient(storeID, clientID int64, req UpdateClientRequest) (*models.Client, error) {
	client, err := s.clientRepo.GetClientByID(storeID, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client for update: %w", err)
	}

	if req.FullName != nil {
		client.FullName = *req.FullName
	}
	if req.Phone != nil {
		client.Phone = req.Phone
	}
	if req.Email != nil {
		client.Email = req.Email
	}
	if req.Notes != nil {
		client.Notes = req.Notes
	}

	if err := s.validateClientData(client.FullName, client.Email); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.clientRepo.UpdateClient(tx, client)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrPhoneNumberExists
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to update client in repository: %w", err)
	}
	return s.clientRepo.GetClientByID(storeID, clientID)
}

func (s *clientService) DeleteClient(storeID, clientID int64) error {
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.clientRepo.DeactivateClient(tx, storeID, clientID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrClientNotFound
	}
	return err
}
