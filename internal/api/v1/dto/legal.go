package dto

// LegalDocumentResponseDTO carries one legal page as markdown.
type LegalDocumentResponseDTO struct {
	Slug    string `json:"slug"`
	Content string `json:"content"`
}
