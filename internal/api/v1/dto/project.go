package dto

import "time"

// ProjectCreateDTO is used for incoming project creation requests
type ProjectCreateDTO struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ProjectUpdateDTO is used for incoming project rename requests
type ProjectUpdateDTO struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ProjectResponseDTO is returned in API responses for projects
type ProjectResponseDTO struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
