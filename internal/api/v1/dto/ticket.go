package dto

import "time"

// TicketCreateDTO is used for incoming support ticket requests
type TicketCreateDTO struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// TicketResponseDTO is returned in API responses for support tickets
type TicketResponseDTO struct {
	TicketID  string    `json:"ticket_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
