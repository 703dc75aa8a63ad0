package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdb-core/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

func testCatalog() domain.MessageCatalog {
	return domain.MessageCatalog{
		OverrideNotice: domain.NoticeText{Neutral: "override (neutral)", Translated: "override (translated)"},
		NoServerNotice: domain.NoticeText{Neutral: "no server (neutral)", Translated: "no server (translated)"},
	}
}

func TestConversationStart(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, true)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.True(t, conv.TranslateChat)

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestConversationGetOrCreate(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.GetOrCreate(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", conv.ID)

	// Second call returns the same conversation.
	again, err := svc.GetOrCreate(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, conv.CreatedAt, again.CreatedAt)
}

func TestApplyNoticeNeutral(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, false)
	require.NoError(t, err)

	require.NoError(t, svc.ApplyNotice(ctx, conv.ID, domain.NoticeOverride, testCatalog()))

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "override (neutral)", got.Notice)
}

func TestApplyNoticeTranslated(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, true)
	require.NoError(t, err)

	require.NoError(t, svc.ApplyNotice(ctx, conv.ID, domain.NoticeNoServer, testCatalog()))

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "no server (translated)", got.Notice)
}

func TestApplyNoticeNoneWritesNothing(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, false)
	require.NoError(t, err)

	require.NoError(t, svc.ApplyNotice(ctx, conv.ID, domain.NoticeNone, testCatalog()))

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notice)
}

func TestAppendTurn(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, false)
	require.NoError(t, err)

	require.NoError(t, svc.AppendTurn(ctx, conv.ID, "q1", "a1"))
	require.NoError(t, svc.AppendTurn(ctx, conv.ID, "q2", "a2"))

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, "q1", got.History[0].Question)
	assert.Equal(t, "a2", got.History[1].Answer)
}

func TestAppendTurnConcurrentSameSession(t *testing.T) {
	svc := NewConversationService(memory.NewConversationStore())
	ctx := context.Background()

	conv, err := svc.Start(ctx, false)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = svc.AppendTurn(ctx, conv.ID, "q", "a")
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, n)
}
