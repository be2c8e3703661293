package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mentorchat/internal/model"
	"mentorchat/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ChatTurn{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestRepo(t *testing.T) *repository.TurnRepository {
	t.Helper()
	return repository.NewTurnRepository(openTestDB(t))
}

type putCall struct {
	bucket      string
	key         string
	size        int64
	contentType string
	body        []byte
}

type fakeStore struct {
	mu    sync.Mutex
	calls []putCall
	err   error
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, putCall{bucket: bucket, key: key, size: size, contentType: contentType, body: data})
	return f.err
}

func (f *fakeStore) PublicURL(bucket, key string) string {
	return "https://files.example.test/" + bucket + "/" + key
}

// recordingRepo wraps a real repository and counts writes.
type recordingRepo struct {
	TurnRepository
	creates   int
	createErr error
	listErr   error
}

func (r *recordingRepo) Create(ctx context.Context, turn *model.ChatTurn) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	return r.TurnRepository.Create(ctx, turn)
}

func (r *recordingRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.TurnRepository.ListByUserID(ctx, userID, limit)
}

type fakePublisher struct {
	jobs []model.ReplyJob
	err  error
}

func (p *fakePublisher) PublishReplyJob(_ context.Context, job model.ReplyJob) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

type memoryCache struct {
	entries map[string][]model.ChatTurn
	dirty   map[string]bool
	gets    int
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]model.ChatTurn{}, dirty: map[string]bool{}}
}

func (c *memoryCache) key(userID string, limit int) string { return fmt.Sprintf("%s:%d", userID, limit) }

func (c *memoryCache) GetHistory(_ context.Context, userID string, limit int) ([]model.ChatTurn, bool, error) {
	c.gets++
	turns, ok := c.entries[c.key(userID, limit)]
	if ok {
		c.hits++
	}
	return turns, ok, nil
}

func (c *memoryCache) SetHistory(_ context.Context, userID string, limit int, turns []model.ChatTurn) error {
	c.entries[c.key(userID, limit)] = turns
	return nil
}

func (c *memoryCache) DeleteHistory(_ context.Context, userID string) error {
	for k := range c.entries {
		if strings.HasPrefix(k, userID+":") {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) MarkDirty(_ context.Context, userID string) error {
	c.dirty[userID] = true
	return nil
}

func (c *memoryCache) IsDirty(_ context.Context, userID string) (bool, error) {
	return false, nil
}

func pngFile(name string) (FileMeta, io.Reader) {
	body := []byte("\x89PNG\r\n\x1a\nfake")
	return FileMeta{Name: name, SizeBytes: int64(len(body)), MimeType: "image/png"}, bytes.NewReader(body)
}
