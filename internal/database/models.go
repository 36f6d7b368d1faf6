// internal/database/models.go
package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Team is one row of the teams table.
type Team struct {
	TeamID    string
	Secret    string
	CreatedAt time.Time
}

// Activity is one row of the activity table. The (TeamID, BatchKey)
// pair is unique; duplicate webhook deliveries collide on it.
type Activity struct {
	ID            int64
	TeamID        string
	Author        string
	RepoName      string
	Branch        string
	Summary       string
	CommitCount   int32
	AuthorCounts  []byte
	RawEventCount int32
	LinesAdded    int32
	LinesRemoved  int32
	BatchKey      string
	EventAt       time.Time
	CreatedAt     time.Time
}

// GithubToken is one row of the github_tokens table. The token bytes
// are AES-GCM ciphertext; the database never sees plaintext.
type GithubToken struct {
	TeamID         string
	EncryptedToken []byte
	CreatedBy      pgtype.Text
	CreatedAt      time.Time
}

// PendingTokenRequest is one row of the pending_token_requests table.
type PendingTokenRequest struct {
	RequestID string
	UserID    string
	TeamID    string
	CreatedAt time.Time
}
