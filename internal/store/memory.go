package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annualparty/game-services/internal/models"
)

// In-memory store implementations. Sessions are ephemeral, so running without
// Postgres is a supported mode; these also back the test suite.

type MemSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*models.Session)}
}

func (s *MemSessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *MemSessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *MemSessionStore) Transition(_ context.Context, id string, from, to models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if from.Next() != to || session.State != from {
		return ErrInvalidTransition
	}
	session.State = to
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemSessionStore) UpdateSettings(_ context.Context, id string, settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.State != models.StateWaiting {
		return ErrSessionNotWaiting
	}
	session.Settings = settings
	session.UpdatedAt = time.Now()
	return nil
}

type MemParticipantStore struct {
	mu       sync.Mutex
	sessions *MemSessionStore
	byID     map[string]*models.Participant
	byGame   map[string][]*models.Participant // insertion order
}

// NewMemParticipantStore needs the session store so Register can reject joins
// to unknown sessions, like the FOR UPDATE query does in Postgres.
func NewMemParticipantStore(sessions *MemSessionStore) *MemParticipantStore {
	return &MemParticipantStore{
		sessions: sessions,
		byID:     make(map[string]*models.Participant),
		byGame:   make(map[string][]*models.Participant),
	}
}

func (s *MemParticipantStore) Register(ctx context.Context, sessionID, nickname, avatarURL string) (*models.Participant, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	// count-then-assign is the critical section
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &models.Participant{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Nickname:     nickname,
		AvatarURL:    avatarURL,
		PlayerNumber: len(s.byGame[sessionID]) + 1,
		JoinedAt:     time.Now(),
	}
	s.byID[p.ID] = p
	s.byGame[sessionID] = append(s.byGame[sessionID], p)
	return p, nil
}

func (s *MemParticipantStore) BulkRegister(_ context.Context, sessionID string, entries []ParticipantEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		p := &models.Participant{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			Nickname:     e.Nickname,
			AvatarURL:    e.AvatarURL,
			PlayerNumber: e.PlayerNumber,
			JoinedAt:     time.Now(),
		}
		s.byID[p.ID] = p
		s.byGame[sessionID] = append(s.byGame[sessionID], p)
	}
	return nil
}

func (s *MemParticipantStore) Get(_ context.Context, id string) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemParticipantStore) ListBySession(_ context.Context, sessionID string) ([]*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byGame[sessionID]
	out := make([]*models.Participant, len(list))
	for i, p := range list {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

type MemWinnerStore struct {
	mu      sync.Mutex
	byGame  map[string][]*models.Winner
	counter int64
}

func NewMemWinnerStore() *MemWinnerStore {
	return &MemWinnerStore{byGame: make(map[string][]*models.Winner)}
}

func (s *MemWinnerStore) CreateBatch(_ context.Context, winners []*models.Winner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range winners {
		// monotonic tick keeps wonAt ordering stable within a batch
		s.counter++
		w.WonAt = time.Now().Add(time.Duration(s.counter) * time.Nanosecond)
		cp := *w
		s.byGame[w.SessionID] = append(s.byGame[w.SessionID], &cp)
	}
	return nil
}

func (s *MemWinnerStore) ListBySession(_ context.Context, sessionID string) ([]*models.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byGame[sessionID]
	out := make([]*models.Winner, 0, len(list))
	for _, w := range list {
		cp := *w
		out = append(out, &cp)
	}
	sortWinners(out)
	return out, nil
}

func sortWinners(ws []*models.Winner) {
	// round ascending, then wonAt ascending; insertion order already matches
	// wonAt so a stable sort on round is enough
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].RoundNumber < ws[j].RoundNumber
	})
}
