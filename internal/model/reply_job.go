package model

// ReplyJob asks the mentor to answer the user's latest turn.
type ReplyJob struct {
	UserID string `json:"user_id"`
	TurnID string `json:"turn_id"`
}
