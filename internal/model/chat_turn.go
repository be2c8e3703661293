package model

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Attachment references an object already written to storage.
type Attachment struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// ChatTurn is one entry of a user's append-only conversation log. ID and
// CreatedAt are assigned by the store on insert.
type ChatTurn struct {
	ID        string    `gorm:"type:char(26);primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_chat_turns_user_created,priority:1" json:"user_id"`
	Role      Role      `gorm:"type:varchar(16);not null;check:chk_chat_turns_role,role IN ('user','assistant')" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	FileURL   *string   `gorm:"type:varchar(1024)" json:"file_url,omitempty"`
	FileName  *string   `gorm:"type:varchar(255)" json:"file_name,omitempty"`
	FileType  *string   `gorm:"type:varchar(128)" json:"file_type,omitempty"`
	FileSize  *int64    `json:"file_size,omitempty"`
	CreatedAt time.Time `gorm:"precision:6;not null;autoCreateTime;index:idx_chat_turns_user_created,priority:2" json:"created_at"`
}

func (ChatTurn) TableName() string { return "chat_turns" }

func (t *ChatTurn) BeforeCreate(tx *gorm.DB) error {
	t.ID = ulid.Make().String()
	t.CreatedAt = time.Now().UTC()
	return nil
}

// Attachment returns nil when the turn carries no file.
func (t *ChatTurn) Attachment() *Attachment {
	if t.FileURL == nil {
		return nil
	}
	a := &Attachment{URL: *t.FileURL}
	if t.FileName != nil {
		a.Name = *t.FileName
	}
	if t.FileType != nil {
		a.MimeType = *t.FileType
	}
	if t.FileSize != nil {
		a.SizeBytes = *t.FileSize
	}
	return a
}

func (t *ChatTurn) SetAttachment(a *Attachment) {
	if a == nil {
		t.FileURL, t.FileName, t.FileType, t.FileSize = nil, nil, nil, nil
		return
	}
	url, name, mime, size := a.URL, a.Name, a.MimeType, a.SizeBytes
	t.FileURL, t.FileName, t.FileType, t.FileSize = &url, &name, &mime, &size
}
