package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"piktor/internal/model"
)

type TicketRepository interface {
	CreateTicket(ctx context.Context, t *model.SupportTicket) error
	GetTicketByID(ctx context.Context, ticketID string) (*model.SupportTicket, error)
	ListTicketsByUser(ctx context.Context, userID string) ([]model.SupportTicket, error)
}

type ticketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) TicketRepository {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) CreateTicket(ctx context.Context, t *model.SupportTicket) error {
	query := `INSERT INTO support_tickets (id, user_id, subject, message, status)
              VALUES ($1, $2, $3, $4, 'open') RETURNING status, created_at, updated_at`
	if err := r.db.QueryRowContext(ctx, query, t.ID, t.UserID, t.Subject, t.Message).
		Scan(&t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create support ticket: %w", err)
	}
	return nil
}

func (r *ticketRepo) GetTicketByID(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	var t model.SupportTicket
	query := `SELECT id, user_id, subject, message, status, created_at, updated_at
              FROM support_tickets WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, ticketID)
	if err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Message, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch ticket %s: %w", ticketID, err)
	}
	return &t, nil
}

func (r *ticketRepo) ListTicketsByUser(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	query := `SELECT id, user_id, subject, message, status, created_at, updated_at
              FROM support_tickets WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tickets []model.SupportTicket
	for rows.Next() {
		var t model.SupportTicket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Message, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tickets, nil
}
