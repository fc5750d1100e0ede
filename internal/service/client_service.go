package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateClientRequest struct {
	Document         string `json:"document" binding:"required"`
	DocumentType     string `json:"document_type" binding:"omitempty,oneof=CC NIT CE PASAPORTE"`
	FullName         string `json:"full_name" binding:"required"`
	Email            string `json:"email" binding:"omitempty,email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	City             string `json:"city"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
	AcceptsData      *bool  `json:"accepts_data"`
}

type UpdateClientRequest struct {
	FullName         *string `json:"full_name"`
	Email            *string `json:"email" binding:"omitempty,email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	City             *string `json:"city"`
	AcceptsMarketing *bool   `json:"accepts_marketing"`
	AcceptsData      *bool   `json:"accepts_data"`
}

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (*model.Client, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	GetClientByDocument(ctx context.Context, document string) (*model.Client, error)
	ListClients(ctx context.Context, page, limit int, search string) ([]model.Client, int64, error)
}

type clientService struct {
	repo repository.ClientRepository
}

func NewClientService(repo repository.ClientRepository) ClientService {
	return &clientService{repo: repo}
}

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest) (*model.Client, error) {
	document := strings.TrimSpace(req.Document)
	if document == "" {
		return nil, &ValidationError{Msg: "client document is required"}
	}

	if _, err := s.repo.FindByDocument(ctx, document); err == nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("client with document %s already exists", document)}
	}

	docType := req.DocumentType
	if docType == "" {
		docType = "CC"
	}
	acceptsData := true
	if req.AcceptsData != nil {
		acceptsData = *req.AcceptsData
	}

	client := &model.Client{
		Document:         document,
		DocumentType:     docType,
		FullName:         strings.TrimSpace(req.FullName),
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		City:             req.City,
		AcceptsMarketing: req.AcceptsMarketing,
		AcceptsData:      acceptsData,
		IsActive:         true,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ValidationError{Msg: fmt.Sprintf("client with document %s already exists", document)}
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (*model.Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid client id"}
	}

	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "client", Ref: id}
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	if req.FullName != nil {
		client.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.City != nil {
		client.City = *req.City
	}
	if req.AcceptsMarketing != nil {
		client.AcceptsMarketing = *req.AcceptsMarketing
	}
	if req.AcceptsData != nil {
		client.AcceptsData = *req.AcceptsData
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (*model.Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid client id"}
	}

	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "client", Ref: id}
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClientByDocument(ctx context.Context, document string) (*model.Client, error) {
	client, err := s.repo.FindByDocument(ctx, strings.TrimSpace(document))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "client", Ref: document}
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, page, limit int, search string) ([]model.Client, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit, search)
}
