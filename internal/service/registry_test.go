package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

func newRegistryService(t *testing.T) (*RegistryService, *RaceService, *capturePublisher, memStores) {
	t.Helper()
	stores := newMemStores()
	pub := &capturePublisher{}
	registry := NewRegistryService(stores.sessions, stores.participants, pub)
	race := NewRaceService(stores.sessions, stores.participants, stores.winners, pub, nil)
	return registry, race, pub, stores
}

func TestJoinAssignsSequentialNumbers(t *testing.T) {
	registry, race, pub, _ := newRegistryService(t)
	ctx := context.Background()

	session, err := race.CreateSession(ctx, 10)
	require.NoError(t, err)

	first, err := registry.Join(ctx, session.ID, "alpha", "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PlayerNumber)

	second, err := registry.Join(ctx, session.ID, "beta", "a.png")
	require.NoError(t, err)
	assert.Equal(t, 2, second.PlayerNumber)

	joined := pub.byKind(comm.EventPlayerJoined)
	require.Len(t, joined, 2, "exactly one announcement per registration")

	var event comm.PlayerJoined
	require.NoError(t, json.Unmarshal(joined[1].Payload, &event))
	assert.Equal(t, second.ID, event.Id)
	assert.Equal(t, "beta", event.Nickname)
	assert.Equal(t, "a.png", event.Avatar)
	assert.Equal(t, 2, event.PlayerNumber)
}

func TestJoinValidation(t *testing.T) {
	registry, race, _, stores := newRegistryService(t)
	ctx := context.Background()

	_, err := registry.Join(ctx, "", "nick", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = registry.Join(ctx, "missing", "nick", "")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	// golden-egg rosters are pre-populated, joining one is a caller bug
	egg := &models.Session{ID: "egg", GameType: models.GameTypeGoldenEgg, State: models.StateWaiting}
	require.NoError(t, stores.sessions.Create(ctx, egg))
	_, err = registry.Join(ctx, "egg", "nick", "")
	assert.ErrorIs(t, err, ErrValidation)

	session, err := race.CreateSession(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, stores.sessions.Transition(ctx, session.ID, models.StateWaiting, models.StateActive))
	require.NoError(t, stores.sessions.Transition(ctx, session.ID, models.StateActive, models.StateCompleted))

	_, err = registry.Join(ctx, session.ID, "late", "")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestConcurrentJoinsGetDistinctConsecutiveNumbers(t *testing.T) {
	registry, race, _, _ := newRegistryService(t)
	ctx := context.Background()

	session, err := race.CreateSession(ctx, 64)
	require.NoError(t, err)

	const joiners = 32
	numbers := make(chan int, joiners)

	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := registry.Join(ctx, session.ID, fmt.Sprintf("player-%d", i), "")
			if assert.NoError(t, err) {
				numbers <- p.PlayerNumber
			}
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		assert.False(t, seen[n], "player number %d assigned twice", n)
		seen[n] = true
	}
	require.Len(t, seen, joiners)
	for n := 1; n <= joiners; n++ {
		assert.True(t, seen[n], "player number %d missing: numbers must be consecutive", n)
	}
}
