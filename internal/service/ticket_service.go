package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"piktor/internal/model"
	"piktor/internal/repository"
)

type TicketService interface {
	Create(ctx context.Context, userID, subject, message string) (*model.SupportTicket, error)
	Get(ctx context.Context, userID, ticketID string) (*model.SupportTicket, error)
	List(ctx context.Context, userID string) ([]model.SupportTicket, error)
}

type ticketService struct {
	repo repository.TicketRepository
}

func NewTicketService(repo repository.TicketRepository) TicketService {
	return &ticketService{repo: repo}
}

func (s *ticketService) Create(ctx context.Context, userID, subject, message string) (*model.SupportTicket, error) {
	ticket := &model.SupportTicket{
		ID:      uuid.NewString(),
		UserID:  userID,
		Subject: strings.TrimSpace(subject),
		Message: strings.TrimSpace(message),
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Get(ctx context.Context, userID, ticketID string) (*model.SupportTicket, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if ticket.UserID != userID {
		return nil, ErrNotOwner
	}
	return ticket, nil
}

func (s *ticketService) List(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	return s.repo.ListTicketsByUser(ctx, userID)
}
