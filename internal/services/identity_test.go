package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

func TestIdentityResolver_Link(t *testing.T) {
	ctx := context.Background()
	asha := &models.Candidate{Name: "Asha", Phone: "+91 98765 43210"}
	ravi := &models.Candidate{Name: "Ravi", Phone: "9123456789", TelegramUsername: "@ravi_k"}
	candidates := newMemCandidates(asha, ravi)
	links := newMemLinks()
	r := NewIdentityResolver(candidates, links)

	t.Run("phone token", func(t *testing.T) {
		got, err := r.Link(ctx, "100", "98765-43210", "")
		require.NoError(t, err)
		assert.Equal(t, asha.ID, got.ID)

		link, err := links.FindByChatID(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "98765-43210", link.TelegramIdentity)
	})

	t.Run("handle token", func(t *testing.T) {
		got, err := r.Link(ctx, "200", "@Ravi_K", "ravi_k")
		require.NoError(t, err)
		assert.Equal(t, ravi.ID, got.ID)
	})

	t.Run("relinking a chat replaces the previous candidate", func(t *testing.T) {
		_, err := r.Link(ctx, "100", "9123456789", "")
		require.NoError(t, err)

		link, err := links.FindByChatID(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, ravi.ID, link.CandidateID)
		_, err = links.FindByCandidateID(ctx, asha.ID)
		assert.Error(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := r.Link(ctx, "300", "0000000000", "")
		assert.ErrorIs(t, err, ErrCandidateNotFound)
	})

	t.Run("blank token", func(t *testing.T) {
		_, err := r.Link(ctx, "300", "   ", "")
		assert.ErrorIs(t, err, ErrCandidateNotFound)
	})
}

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	asha := &models.Candidate{Name: "Asha", Phone: "9876543210", TelegramUsername: "@JohnDoe"}
	candidates := newMemCandidates(asha)
	links := newMemLinks()
	r := NewIdentityResolver(candidates, links)

	t.Run("by handle", func(t *testing.T) {
		got, err := r.Resolve(ctx, "100", "johndoe")
		require.NoError(t, err)
		assert.Equal(t, asha.ID, got.ID)
		assert.Equal(t, 0, links.count())
	})

	t.Run("handle is not read as a phone", func(t *testing.T) {
		_, err := r.Resolve(ctx, "100", "9876543210")
		assert.ErrorIs(t, err, ErrUnlinked)
	})

	t.Run("no link and no handle", func(t *testing.T) {
		_, err := r.Resolve(ctx, "100", "")
		assert.ErrorIs(t, err, ErrUnlinked)
	})

	t.Run("link wins", func(t *testing.T) {
		require.NoError(t, links.Upsert(ctx, asha.ID, "100", "x"))
		got, err := r.Resolve(ctx, "100", "somebody_else")
		require.NoError(t, err)
		assert.Equal(t, asha.ID, got.ID)
	})

	t.Run("dangling link falls back to handle", func(t *testing.T) {
		require.NoError(t, links.Upsert(ctx, uuid.New(), "200", "gone"))
		got, err := r.Resolve(ctx, "200", "@johndoe")
		require.NoError(t, err)
		assert.Equal(t, asha.ID, got.ID)
	})
}

func TestIdentityResolver_ChatIDForCandidate(t *testing.T) {
	ctx := context.Background()
	linked := &models.Candidate{Name: "Linked", Phone: "9876543210"}
	numericUsername := &models.Candidate{Name: "Numeric", TelegramUsername: " 123456789 "}
	numericPhone := &models.Candidate{Name: "Phone", Phone: "9988776655"}
	unreachable := &models.Candidate{Name: "Nobody", TelegramUsername: "@nobody", Phone: "12-34"}
	candidates := newMemCandidates(linked, numericUsername, numericPhone, unreachable)
	links := newMemLinks()
	require.NoError(t, links.Upsert(ctx, linked.ID, "-100555", "linked"))
	r := NewIdentityResolver(candidates, links)

	chatID, err := r.ChatIDForCandidate(ctx, linked)
	require.NoError(t, err)
	assert.Equal(t, "-100555", chatID)

	chatID, err = r.ChatIDForCandidate(ctx, numericUsername)
	require.NoError(t, err)
	assert.Equal(t, "123456789", chatID)

	chatID, err = r.ChatIDForCandidate(ctx, numericPhone)
	require.NoError(t, err)
	assert.Equal(t, "9988776655", chatID)

	_, err = r.ChatIDForCandidate(ctx, unreachable)
	assert.ErrorIs(t, err, ErrUnlinked)
}
