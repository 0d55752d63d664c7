package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

func newDrawService(t *testing.T) (*DrawService, memStores) {
	t.Helper()
	stores := newMemStores()
	svc := NewDrawService(stores.sessions, stores.participants, stores.winners, NewKeyLock())
	return svc, stores
}

func TestValidNumbersSkipsDigitFour(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 5, 6}, ValidNumbers(5))
	assert.Empty(t, ValidNumbers(0))

	numbers := ValidNumbers(200)
	require.Len(t, numbers, 200)
	for i, n := range numbers {
		assert.NotContains(t, strconv.Itoa(n), "4", "number %d contains a 4", n)
		if i > 0 {
			assert.Greater(t, n, numbers[i-1], "sequence must be strictly increasing")
		}
	}
}

func TestCreateSessionPrePopulatesRoster(t *testing.T) {
	svc, stores := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 5, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, models.GameTypeGoldenEgg, session.GameType)
	assert.Equal(t, models.StateWaiting, session.State)
	require.NotNil(t, session.Settings.GoldenEgg)
	assert.Equal(t, DefaultRounds, session.Settings.GoldenEgg.Rounds)
	assert.Equal(t, DefaultPerRoundCount, session.Settings.GoldenEgg.PerRoundCount)
	assert.Equal(t, []int{1, 2, 3, 5, 6}, session.Settings.GoldenEgg.ValidNumbers)

	roster, err := stores.participants.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, roster, 5)
	assert.Equal(t, "Number 1", roster[0].Nickname)
	assert.Equal(t, 1, roster[0].PlayerNumber)
	assert.Equal(t, "Number 6", roster[4].Nickname)
	assert.Equal(t, 6, roster[4].PlayerNumber)
}

func TestCreateSessionRequiresTotal(t *testing.T) {
	svc, _ := newDrawService(t)

	_, err := svc.CreateSession(context.Background(), 0, 4, 15)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDrawSelectsWithoutReplacement(t *testing.T) {
	svc, _ := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 15, 4, 15)
	require.NoError(t, err)

	result, err := svc.Draw(ctx, session.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Round)
	assert.Len(t, result.Winners, 15)
	assert.Equal(t, 0, result.RemainingCount)

	seen := make(map[int]bool)
	for _, w := range result.Winners {
		assert.False(t, seen[w.Number], "number %d drawn twice", w.Number)
		seen[w.Number] = true
		assert.True(t, strings.HasPrefix(w.Name, "Number "))
	}

	// exhausted session is a terminal condition, not a transient error
	_, err = svc.Draw(ctx, session.ID, 2)
	assert.ErrorIs(t, err, ErrNoEligibleParticipants)
}

func TestDrawNeverRepeatsWinnersAcrossRounds(t *testing.T) {
	svc, _ := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 60, 4, 15)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for round := 1; round <= 4; round++ {
		result, err := svc.Draw(ctx, session.ID, round)
		require.NoError(t, err)
		for _, w := range result.Winners {
			assert.False(t, seen[w.Number], "number %d won twice", w.Number)
			seen[w.Number] = true
		}
	}
	assert.Len(t, seen, 60)
}

func TestDrawShortFinalRound(t *testing.T) {
	svc, _ := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 20, 2, 15)
	require.NoError(t, err)

	first, err := svc.Draw(ctx, session.ID, 1)
	require.NoError(t, err)
	assert.Len(t, first.Winners, 15)
	assert.Equal(t, 5, first.RemainingCount)

	second, err := svc.Draw(ctx, session.ID, 2)
	require.NoError(t, err)
	assert.Len(t, second.Winners, 5)
	assert.Equal(t, 0, second.RemainingCount)
}

func TestDrawUnknownSession(t *testing.T) {
	svc, _ := newDrawService(t)

	_, err := svc.Draw(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestDrawOnCompletedSessionFails(t *testing.T) {
	svc, stores := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 10, 4, 15)
	require.NoError(t, err)

	require.NoError(t, stores.sessions.Transition(ctx, session.ID, models.StateWaiting, models.StateActive))
	require.NoError(t, stores.sessions.Transition(ctx, session.ID, models.StateActive, models.StateCompleted))

	_, err = svc.Draw(ctx, session.ID, 1)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestConcurrentDrawsNeverDoubleAward(t *testing.T) {
	svc, stores := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 60, 4, 15)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for round := 1; round <= 4; round++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			_, err := svc.Draw(ctx, session.ID, round)
			assert.NoError(t, err)
		}(round)
	}
	wg.Wait()

	winners, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, winners, 60)

	seen := make(map[string]bool)
	for _, w := range winners {
		assert.False(t, seen[w.ParticipantID], "participant %s awarded twice", w.ParticipantID)
		seen[w.ParticipantID] = true
	}
}

func TestSessionResultsOrdering(t *testing.T) {
	svc, _ := newDrawService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, 12, 3, 5)
	require.NoError(t, err)

	for round := 1; round <= 3; round++ {
		_, err := svc.Draw(ctx, session.ID, round)
		require.NoError(t, err)
	}

	results, err := svc.SessionResults(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, results.Winners, 12)

	for i, w := range results.Winners {
		if i > 0 {
			assert.GreaterOrEqual(t, w.Round, results.Winners[i-1].Round, "winners must be ordered by round")
		}
	}
	assert.Equal(t, session.ID, results.Session.ID)

	_, err = svc.SessionResults(ctx, "nope")
	assert.True(t, errors.Is(err, store.ErrSessionNotFound))
}
