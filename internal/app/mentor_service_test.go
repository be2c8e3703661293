package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorchat/internal/ai"
	"mentorchat/internal/model"
)

type fakeCompleter struct {
	got    []ai.ChatMessage
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.calls++
	f.got = messages
	return f.answer, f.err
}

var testLLMConfig = ai.ChatConfig{BaseURL: "http://llm.test/v1", APIKey: "k", Model: "m"}

func newTestMentor(t *testing.T, llm Completer) (*MentorService, *ChatService) {
	t.Helper()
	repo := newTestRepo(t)
	chat := NewChatService(repo, nil, nil, nil, nil)
	return NewMentorService(repo, chat, llm, testLLMConfig, "You are a mentor.", 10, nil), chat
}

func TestMentorReply_AppendsAssistantTurn(t *testing.T) {
	llm := &fakeCompleter{answer: "  Start by listing what you know.  "}
	mentor, chat := newTestMentor(t, llm)
	ctx := context.Background()

	_, err := chat.Append(ctx, AppendInput{
		UserID:  "u",
		Role:    model.RoleUser,
		Content: "Can you check my essay?",
		Attachment: &model.Attachment{
			URL: "https://files.example.test/b/u/1-x.pdf", Name: "essay.pdf", MimeType: "application/pdf", SizeBytes: 10,
		},
	})
	require.NoError(t, err)

	reply, err := mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "Start by listing what you know.", reply.Content)

	require.Len(t, llm.got, 2)
	assert.Equal(t, ai.ChatMessage{Role: "system", Content: "You are a mentor."}, llm.got[0])
	assert.Equal(t, "user", llm.got[1].Role)
	assert.Equal(t, "Can you check my essay?\n[attached file: essay.pdf (application/pdf)]", llm.got[1].Content)

	history, err := chat.Fetch(ctx, "u", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, reply.ID, history[1].ID)
}

func TestMentorReply_SkipsWhenAlreadyAnswered(t *testing.T) {
	llm := &fakeCompleter{answer: "x"}
	mentor, chat := newTestMentor(t, llm)
	ctx := context.Background()

	reply, err := mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	require.NoError(t, err)
	assert.Nil(t, reply)

	_, err = chat.Append(ctx, AppendInput{UserID: "u", Role: model.RoleUser, Content: "q"})
	require.NoError(t, err)
	_, err = chat.Append(ctx, AppendInput{UserID: "u", Role: model.RoleAssistant, Content: "a"})
	require.NoError(t, err)

	reply, err = mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Zero(t, llm.calls)
}

func TestMentorReply_EmptyAnswerFallsBack(t *testing.T) {
	mentor, chat := newTestMentor(t, &fakeCompleter{answer: "   "})
	ctx := context.Background()
	_, err := chat.Append(ctx, AppendInput{UserID: "u", Role: model.RoleUser, Content: "q"})
	require.NoError(t, err)

	reply, err := mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, emptyReplyFallback, reply.Content)
}

func TestMentorReply_Errors(t *testing.T) {
	ctx := context.Background()

	mentor := NewMentorService(nil, nil, &fakeCompleter{}, ai.ChatConfig{}, "", 0, nil)
	_, err := mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	assert.ErrorIs(t, err, ErrLLMConfig)

	_, err = mentor.Reply(ctx, model.ReplyJob{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	mentor = NewMentorService(nil, nil, &fakeCompleter{}, testLLMConfig, "", 0, nil)
	_, err = mentor.Reply(ctx, model.ReplyJob{UserID: "u"})
	var pErr *PersistError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, PersistConnectionFailed, pErr.Kind)

	boom := errors.New("429 too many requests")
	m, chat := newTestMentor(t, &fakeCompleter{err: boom})
	_, err = chat.Append(ctx, AppendInput{UserID: "u", Role: model.RoleUser, Content: "q"})
	require.NoError(t, err)
	_, err = m.Reply(ctx, model.ReplyJob{UserID: "u"})
	assert.ErrorIs(t, err, boom)
}
