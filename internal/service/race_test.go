package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annualparty/game-services/internal/comm"
	"github.com/annualparty/game-services/internal/models"
	"github.com/annualparty/game-services/internal/store"
)

func newRaceFixture(t *testing.T) (*RaceService, *RegistryService, *capturePublisher, memStores) {
	t.Helper()
	stores := newMemStores()
	pub := &capturePublisher{}
	race := NewRaceService(stores.sessions, stores.participants, stores.winners, pub, nil)
	registry := NewRegistryService(stores.sessions, stores.participants, pub)
	return race, registry, pub, stores
}

// setRaceTiming shrinks the timers so tests settle quickly. Must run before
// Start since settings freeze once the session leaves waiting.
func setRaceTiming(t *testing.T, stores memStores, sessionID string, duration, countdown time.Duration) {
	t.Helper()
	err := stores.sessions.UpdateSettings(context.Background(), sessionID, models.Settings{
		HorseRacing: &models.HorseRacingSettings{
			RaceDuration:  models.Duration(duration),
			CountdownTime: models.Duration(countdown),
		},
	})
	require.NoError(t, err)
}

func startedRace(t *testing.T, players int, duration time.Duration) (*RaceService, *capturePublisher, memStores, *models.Session, []*models.Participant) {
	t.Helper()
	race, registry, pub, stores := newRaceFixture(t)
	ctx := context.Background()

	session, err := race.CreateSession(ctx, 60)
	require.NoError(t, err)

	participants := make([]*models.Participant, players)
	names := []string{"ant", "bee", "cat", "dog", "eel", "fox"}
	for i := 0; i < players; i++ {
		p, err := registry.Join(ctx, session.ID, names[i%len(names)], "")
		require.NoError(t, err)
		participants[i] = p
	}

	setRaceTiming(t, stores, session.ID, duration, 0)
	require.NoError(t, race.Start(ctx, session.ID))

	// countdown of zero still hops through the timer goroutine
	time.Sleep(100 * time.Millisecond)

	return race, pub, stores, session, participants
}

func TestCreateSessionDefaults(t *testing.T) {
	race, _, _, _ := newRaceFixture(t)

	session, err := race.CreateSession(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.GameTypeHorseRacing, session.GameType)
	assert.Equal(t, models.StateWaiting, session.State)
	assert.Equal(t, DefaultTotalParticipants, session.TotalParticipants)
	require.NotNil(t, session.Settings.HorseRacing)
	assert.Equal(t, DefaultRaceDuration, session.Settings.HorseRacing.RaceDuration.Std())
}

func TestStartBroadcastsOnceAndOnlyOnce(t *testing.T) {
	race, pub, stores, session, _ := startedRace(t, 2, time.Minute)
	ctx := context.Background()

	got, err := stores.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, got.State)

	// the display double-clicking start must not fire a second game_start
	err = race.Start(ctx, session.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	starts := pub.byKind(comm.EventGameStart)
	assert.Len(t, starts, 1)
}

func TestStartValidation(t *testing.T) {
	race, _, _, stores := newRaceFixture(t)
	ctx := context.Background()

	err := race.Start(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	err = race.Start(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	egg := &models.Session{ID: "egg", GameType: models.GameTypeGoldenEgg, State: models.StateWaiting}
	require.NoError(t, stores.sessions.Create(ctx, egg))
	err = race.Start(ctx, "egg")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProgressMonotonicAndSaturating(t *testing.T) {
	race, _, _, session, participants := startedRace(t, 2, time.Minute)
	ctx := context.Background()
	runner := participants[0]

	require.NoError(t, race.Ingest(ctx, session.ID, runner.ID, 10, time.Now().UnixMilli()))

	snap := race.Snapshot(session.ID)
	require.Len(t, snap, 2)
	assert.Equal(t, 5.0, snap[0].Progress) // 10 * 0.5
	assert.Equal(t, 10.0, snap[0].Speed)

	// zero intensity never moves a horse backwards
	require.NoError(t, race.Ingest(ctx, session.ID, runner.ID, 0, time.Now().UnixMilli()))
	snap = race.Snapshot(session.ID)
	assert.Equal(t, 5.0, snap[0].Progress)

	// saturates at the finish line
	require.NoError(t, race.Ingest(ctx, session.ID, runner.ID, 500, time.Now().UnixMilli()))
	snap = race.Snapshot(session.ID)
	assert.Equal(t, TrackLength, snap[0].Progress)

	// the other horse is untouched
	assert.Equal(t, 0.0, snap[1].Progress)

	err := race.Ingest(ctx, session.ID, runner.ID, -1, time.Now().UnixMilli())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSamplesBeforeRacingDoNotMove(t *testing.T) {
	race, registry, pub, stores := newRaceFixture(t)
	ctx := context.Background()

	session, err := race.CreateSession(ctx, 10)
	require.NoError(t, err)
	p, err := registry.Join(ctx, session.ID, "early", "")
	require.NoError(t, err)

	// a long countdown keeps the race in its pre-racing phase
	setRaceTiming(t, stores, session.ID, time.Minute, time.Minute)
	require.NoError(t, race.Start(ctx, session.ID))

	require.NoError(t, race.Ingest(ctx, session.ID, p.ID, 50, time.Now().UnixMilli()))

	snap := race.Snapshot(session.ID)
	require.Len(t, snap, 1)
	assert.Equal(t, 0.0, snap[0].Progress)

	// the echo still goes out so the display can animate effort
	moved := pub.byKind(comm.EventPlayerMoved)
	assert.Len(t, moved, 1)
}

func TestRaceFinishesWhenEveryHorseArrives(t *testing.T) {
	race, _, stores, session, participants := startedRace(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, race.Ingest(ctx, session.ID, participants[0].ID, 300, time.Now().UnixMilli()))
	require.NoError(t, race.Ingest(ctx, session.ID, participants[1].ID, 300, time.Now().UnixMilli()))

	got, err := stores.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, got.State)

	winners, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, winners, 2, "every racer gets exactly one record")

	// both hit 100; the tie resolves by join order
	assert.Equal(t, participants[0].ID, winners[0].ParticipantID)
	assert.Equal(t, 1, winners[0].PrizeRank)
	assert.Equal(t, participants[1].ID, winners[1].ParticipantID)
	assert.Equal(t, 2, winners[1].PrizeRank)
}

func TestRaceTimerExpiryFinishes(t *testing.T) {
	race, _, stores, session, participants := startedRace(t, 3, 500*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, race.Ingest(ctx, session.ID, participants[1].ID, 60, time.Now().UnixMilli()))

	require.Eventually(t, func() bool {
		got, err := stores.sessions.Get(ctx, session.ID)
		return err == nil && got.State == models.StateCompleted
	}, 2*time.Second, 20*time.Millisecond)

	winners, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, winners, 3)

	// the only horse that moved wins; stragglers still place
	assert.Equal(t, participants[1].ID, winners[0].ParticipantID)
	assert.Equal(t, 1, winners[0].PrizeRank)

	// a shake after the finish changes nothing
	require.NoError(t, race.Ingest(ctx, session.ID, participants[0].ID, 500, time.Now().UnixMilli()))
	after, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, after, 3)

	err = race.Finish(ctx, session.ID, nil)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestRankingStableTiesAndPrizeTiers(t *testing.T) {
	race, _, stores, session, participants := startedRace(t, 4, time.Minute)
	ctx := context.Background()

	// A and B tie at the line, C reaches 80, D reaches 50
	require.NoError(t, race.Ingest(ctx, session.ID, participants[0].ID, 200, time.Now().UnixMilli()))
	require.NoError(t, race.Ingest(ctx, session.ID, participants[1].ID, 200, time.Now().UnixMilli()))
	require.NoError(t, race.Ingest(ctx, session.ID, participants[2].ID, 160, time.Now().UnixMilli()))
	require.NoError(t, race.Ingest(ctx, session.ID, participants[3].ID, 100, time.Now().UnixMilli()))

	require.NoError(t, race.Finish(ctx, session.ID, nil))

	winners, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, winners, 4)

	expected := []struct {
		participant string
		prize       int
	}{
		{participants[0].ID, 1}, // tie at 100, joined first
		{participants[1].ID, 2},
		{participants[2].ID, 3},
		{participants[3].ID, 4},
	}
	for i, exp := range expected {
		assert.Equal(t, exp.participant, winners[i].ParticipantID, "rank %d", i+1)
		assert.Equal(t, exp.prize, winners[i].PrizeRank, "rank %d", i+1)
		assert.Equal(t, 1, winners[i].RoundNumber, "horse racing is a single round")
	}
}

func TestManualFinishWithRankings(t *testing.T) {
	race, _, stores, session, participants := startedRace(t, 3, time.Minute)
	ctx := context.Background()

	rankings := []RankEntry{
		{ParticipantID: participants[2].ID, Rank: 1},
		{ParticipantID: participants[0].ID, Rank: 4},
		{ParticipantID: participants[1].ID, Rank: 21},
	}
	require.NoError(t, race.Finish(ctx, session.ID, rankings))

	got, err := stores.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, got.State)

	winners, err := stores.winners.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, winners, 3)
	assert.Equal(t, 1, winners[0].PrizeRank)
	assert.Equal(t, 4, winners[1].PrizeRank)
	assert.Equal(t, 5, winners[2].PrizeRank)

	err = race.Finish(ctx, session.ID, rankings)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestPrizeForRank(t *testing.T) {
	assert.Equal(t, 1, prizeForRank(1))
	assert.Equal(t, 2, prizeForRank(2))
	assert.Equal(t, 3, prizeForRank(3))
	assert.Equal(t, 4, prizeForRank(4))
	assert.Equal(t, 4, prizeForRank(20))
	assert.Equal(t, 5, prizeForRank(21))
	assert.Equal(t, 5, prizeForRank(57))
}
