package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocuments(h *harness, n int) {
	for i := 0; i < n; i++ {
		d := domain.NewDocument(fmt.Sprintf("doc-%02d", i), "f.pdf", fmt.Sprintf("h%d", i), fixedNow.Add(time.Duration(i)*time.Minute))
		d.Status = domain.DocumentStatusCompleted
		if i%2 == 1 {
			d.Status = domain.DocumentStatusFailed
		}
		h.store.put(d)
	}
}

func TestListDocuments_Pages(t *testing.T) {
	h := newHarness()
	seedDocuments(h, 5)
	ctx := context.Background()

	page, err := h.svc.ListDocuments(ctx, ListDocumentsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "doc-04", page.Items[0].ID)

	var ids []string
	cursor := ""
	for {
		page, err := h.svc.ListDocuments(ctx, ListDocumentsInput{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, d := range page.Items {
			ids = append(ids, d.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"doc-04", "doc-03", "doc-02", "doc-01", "doc-00"}, ids)
}

func TestListDocuments_StatusFilter(t *testing.T) {
	h := newHarness()
	seedDocuments(h, 5)

	page, err := h.svc.ListDocuments(context.Background(), ListDocumentsInput{Status: domain.DocumentStatusFailed})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)
}

func TestListDocuments_Validation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.ListDocuments(ctx, ListDocumentsInput{Status: "archived"})
	assert.True(t, errors.Is(err, domain.ErrInvalidDocumentStatus))

	_, err = h.svc.ListDocuments(ctx, ListDocumentsInput{Cursor: "%%%"})
	var derr *domain.DomainError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestRetryTransient_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retryTransient(ctx, RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}, func() (int, error) {
		calls++
		cancel()
		return 0, domain.ErrEmbedTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestItemError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := itemError(ctx, context.DeadlineExceeded)
	assert.True(t, errors.Is(err, domain.ErrOrchestrationTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.NoError(t, itemError(ctx, nil))
	assert.Equal(t, errBoom, itemError(context.Background(), errBoom))
}
