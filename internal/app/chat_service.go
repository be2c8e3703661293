package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"mentorchat/internal/logging"
	"mentorchat/internal/model"
	"mentorchat/internal/repository"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

type TurnRepository interface {
	Create(ctx context.Context, turn *model.ChatTurn) error
	ListByUserID(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error)
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID string, limit int) ([]model.ChatTurn, bool, error)
	SetHistory(ctx context.Context, userID string, limit int, turns []model.ChatTurn) error
	DeleteHistory(ctx context.Context, userID string) error
	MarkDirty(ctx context.Context, userID string) error
	IsDirty(ctx context.Context, userID string) (bool, error)
}

type ReplyPublisher interface {
	PublishReplyJob(ctx context.Context, job model.ReplyJob) error
}

type ChatService struct {
	turns        TurnRepository
	uploads      *UploadService
	historyCache HistoryCache
	publisher    ReplyPublisher
	logger       *slog.Logger
}

type AppendInput struct {
	UserID     string
	Role       model.Role
	Content    string
	Attachment *model.Attachment
}

type SendInput struct {
	UserID  string
	Content string
	Bucket  string
	File    *FileMeta
	Body    io.Reader
}

type SendResult struct {
	Turn   *model.ChatTurn `json:"message,omitempty"`
	Upload *UploadedFile   `json:"attachment,omitempty"`
}

// NewChatService wires the conversation log. turns, historyCache and
// publisher may be nil: a nil repository makes every write fail as a
// connection failure, the other two simply switch their feature off.
func NewChatService(
	turns TurnRepository,
	uploads *UploadService,
	historyCache HistoryCache,
	publisher ReplyPublisher,
	logger *slog.Logger,
) *ChatService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ChatService{
		turns:        turns,
		uploads:      uploads,
		historyCache: historyCache,
		publisher:    publisher,
		logger:       logger,
	}
}

// Append writes one turn to the user's log. The store assigns ID and
// CreatedAt. Every failure is returned; nothing is retried.
func (s *ChatService) Append(ctx context.Context, input AppendInput) (*model.ChatTurn, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(input.Content) == "" && input.Attachment == nil {
		return nil, ErrMessageEmpty
	}
	if a := input.Attachment; a != nil {
		if strings.TrimSpace(a.URL) == "" || a.SizeBytes < 0 {
			return nil, ErrInvalidInput
		}
	}

	log := logging.FromContext(ctx, s.logger)
	if s.turns == nil {
		log.Error("save chat turn failed: conversation store not configured")
		return nil, &PersistError{Kind: PersistConnectionFailed, Err: errors.New("conversation store not configured")}
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, userID)
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}

	turn := &model.ChatTurn{
		UserID:  userID,
		Role:    input.Role,
		Content: input.Content,
	}
	turn.SetAttachment(input.Attachment)
	if err := s.turns.Create(ctx, turn); err != nil {
		persistErr := classifyPersistError(err)
		log.Error("save chat turn failed", "kind", persistErr.Kind.String(), "role", string(input.Role), "error", err)
		return nil, persistErr
	}

	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}
	if turn.Role == model.RoleUser && s.publisher != nil {
		if err := s.publisher.PublishReplyJob(ctx, model.ReplyJob{UserID: userID, TurnID: turn.ID}); err != nil {
			log.Warn("enqueue mentor reply failed", "turn_id", turn.ID, "error", err)
		}
	}
	return turn, nil
}

// Fetch returns the oldest limit turns of userID in conversation order. When
// the store cannot be read it returns an empty slice together with a
// *FetchError instead of failing hard.
func (s *ChatService) Fetch(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []model.ChatTurn{}, ErrInvalidInput
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return []model.ChatTurn{}, ErrInvalidLimit
	}

	log := logging.FromContext(ctx, s.logger)
	if s.turns == nil {
		log.Warn("fetch chat history failed: conversation store not configured")
		return []model.ChatTurn{}, &FetchError{Kind: FetchUnavailable, Err: errors.New("conversation store not configured")}
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID, limit); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	turns, err := s.turns.ListByUserID(ctx, userID, limit)
	if err != nil {
		kind := FetchInternal
		if errors.Is(err, repository.ErrConnection) {
			kind = FetchUnavailable
		}
		log.Warn("fetch chat history failed", "kind", kind.String(), "error", err)
		return []model.ChatTurn{}, &FetchError{Kind: kind, Err: err}
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}

	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, limit, turns)
		}
	}
	return turns, nil
}

// SendWithAttachment uploads the optional file first and only then appends the
// user turn that references it, so a stored turn never points at a missing
// object. If the append fails after the upload, the object is left behind and
// reported in the log.
func (s *ChatService) SendWithAttachment(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.File == nil {
		turn, err := s.Append(ctx, AppendInput{UserID: input.UserID, Role: model.RoleUser, Content: input.Content})
		if err != nil {
			return nil, err
		}
		return &SendResult{Turn: turn}, nil
	}

	if s.uploads == nil {
		return nil, &UploadError{Kind: UploadUnconfigured, Err: errors.New("upload service not configured")}
	}
	uploaded, err := s.uploads.Upload(ctx, UploadInput{
		UserID: input.UserID,
		Bucket: input.Bucket,
		File:   *input.File,
		Body:   input.Body,
	})
	if err != nil {
		return nil, err
	}

	turn, err := s.Append(ctx, AppendInput{
		UserID:     input.UserID,
		Role:       model.RoleUser,
		Content:    input.Content,
		Attachment: uploaded.Attachment(),
	})
	if err != nil {
		logging.FromContext(ctx, s.logger).Warn("attachment orphaned: chat turn not saved",
			"bucket", uploaded.Bucket, "storage_key", uploaded.StorageKey, "error", err)
		return &SendResult{Upload: uploaded}, err
	}
	return &SendResult{Turn: turn, Upload: uploaded}, nil
}

func classifyPersistError(err error) *PersistError {
	switch {
	case errors.Is(err, repository.ErrConnection):
		return &PersistError{Kind: PersistConnectionFailed, Err: err}
	case errors.Is(err, repository.ErrConstraint):
		return &PersistError{Kind: PersistWriteRejected, Err: err}
	default:
		return &PersistError{Kind: PersistInternal, Err: err}
	}
}
