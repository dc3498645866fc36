package models

type UploadResponse struct {
	ID         string   `json:"id"`
	Confidence float64  `json:"confidence"`
	Messages   []string `json:"messages"`
}

type CandidateResponse struct {
	Candidate
	ExtractionStatus string `json:"extraction_status"`
}

type TelegramUsernameRequest struct {
	TelegramUsername string `json:"telegram_username"`
}

type DocumentResponse struct {
	ID      string         `json:"id"`
	Type    DocumentType   `json:"type"`
	Path    string         `json:"path"`
	Status  DocumentStatus `json:"status"`
	Source  DocumentSource `json:"source"`
	FileURL string         `json:"file_url"`
}

type CandidateSearchResult struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Score       float32 `json:"score"`
	Excerpt     string  `json:"excerpt"`
}
