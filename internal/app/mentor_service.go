package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mentorchat/internal/ai"
	"mentorchat/internal/logging"
	"mentorchat/internal/model"
)

const emptyReplyFallback = "The mentor could not produce an answer this time. Please try asking again."

// Completer is the external text-generation service.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// MentorService answers a learner's latest turn and appends the answer as an
// assistant turn through ChatService, so the reply follows the same write path
// as any other turn.
type MentorService struct {
	turns        TurnRepository
	chat         *ChatService
	llm          Completer
	cfg          ai.ChatConfig
	systemPrompt string
	maxContext   int
	logger       *slog.Logger
}

func NewMentorService(
	turns TurnRepository,
	chat *ChatService,
	llm Completer,
	cfg ai.ChatConfig,
	systemPrompt string,
	maxContext int,
	logger *slog.Logger,
) *MentorService {
	if maxContext <= 0 {
		maxContext = 20
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &MentorService{
		turns:        turns,
		chat:         chat,
		llm:          llm,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		maxContext:   maxContext,
		logger:       logger,
	}
}

// Reply returns (nil, nil) when the newest turn is not a user turn, which is
// the case when an earlier job already answered it.
func (s *MentorService) Reply(ctx context.Context, job model.ReplyJob) (*model.ChatTurn, error) {
	if strings.TrimSpace(job.UserID) == "" {
		return nil, ErrInvalidInput
	}
	if !s.cfg.Valid() || s.llm == nil {
		return nil, ErrLLMConfig
	}
	if s.turns == nil {
		return nil, &PersistError{Kind: PersistConnectionFailed, Err: fmt.Errorf("conversation store not configured")}
	}

	recent, err := s.turns.ListRecentByUserID(ctx, job.UserID, s.maxContext)
	if err != nil {
		return nil, classifyPersistError(err)
	}
	if len(recent) == 0 || recent[len(recent)-1].Role != model.RoleUser {
		logging.FromContext(ctx, s.logger).Info("mentor reply skipped: nothing to answer", "turn_id", job.TurnID)
		return nil, nil
	}

	answer, err := s.llm.Complete(ctx, s.cfg, s.buildPrompt(recent))
	if err != nil {
		return nil, fmt.Errorf("generate mentor reply failed: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyReplyFallback
	}

	return s.chat.Append(ctx, AppendInput{
		UserID:  job.UserID,
		Role:    model.RoleAssistant,
		Content: answer,
	})
}

func (s *MentorService) buildPrompt(turns []model.ChatTurn) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(turns)+1)
	if s.systemPrompt != "" {
		messages = append(messages, ai.ChatMessage{Role: "system", Content: s.systemPrompt})
	}
	for i := range turns {
		content := turns[i].Content
		if a := turns[i].Attachment(); a != nil {
			note := fmt.Sprintf("[attached file: %s (%s)]", a.Name, a.MimeType)
			if content == "" {
				content = note
			} else {
				content += "\n" + note
			}
		}
		messages = append(messages, ai.ChatMessage{Role: string(turns[i].Role), Content: content})
	}
	return messages
}
