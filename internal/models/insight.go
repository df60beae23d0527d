package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultFolderName is used when an analysis is archived without a folder.
const DefaultFolderName = "Uncategorized"

// ContextEntry is the bounded history shape fed back into a new generation
// request: at most 5 entries, analysis text cut to 1000 characters. The
// prompt builder applies its own, tighter 200-character excerpt on top.
type ContextEntry struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Analysis string    `json:"analysis"`
	Tags     []string  `json:"tags,omitempty"`
}

// ArchivedInsight is a generated analysis the user chose to keep. Only
// title, tags and folder_name are mutable after creation.
type ArchivedInsight struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Title        string          `json:"title"`
	AnalysisText string          `json:"analysis_text"`
	DataSnapshot json.RawMessage `json:"data_snapshot,omitempty"`
	Tags         []string        `json:"tags"`
	FolderName   string          `json:"folder_name"`
	GeneratedAt  time.Time       `json:"generated_at"`
	ArchivedAt   time.Time       `json:"archived_at"`
}
