package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lewisian8787/wrestleguess/models"
)

type memberKey struct {
	leagueID string
	userID   string
}

// MemoryStore keeps events, picks, leagues, memberships and users in memory.
// It backs the demo mode used when no database is reachable and the service tests.
// One RWMutex guards everything, so the scored check and the write on a
// membership happen under the same lock.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]*models.Event
	picks   map[string]map[string]*models.Pick // eventID -> userID -> pick
	leagues map[string]*models.League
	members map[memberKey]*models.LeagueMember
	users   map[string]*models.User
	byEmail map[string]string
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*models.Event),
		picks:   make(map[string]map[string]*models.Pick),
		leagues: make(map[string]*models.League),
		members: make(map[memberKey]*models.LeagueMember),
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		nowFunc: time.Now,
	}
}

// SaveEvent inserts or replaces an event, assigning an id if missing
func (s *MemoryStore) SaveEvent(event *models.Event) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.nowFunc()
	}
	event.UpdatedAt = s.nowFunc()
	copied := copyEvent(event)
	s.events[event.ID] = copied
	return copyEvent(copied)
}

// SetMatchWinner records a winner on an unscored event
func (s *MemoryStore) SetMatchWinner(eventID, matchID, winner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok || event.Scored {
		return false
	}
	match := event.MatchByID(matchID)
	if match == nil {
		return false
	}
	match.Winner = winner
	return true
}

// GetEventWithMatches returns a copy of the event, or nil if it does not exist
func (s *MemoryStore) GetEventWithMatches(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	return copyEvent(event), nil
}

// MarkEventScored flips the scored flag once
func (s *MemoryStore) MarkEventScored(_ context.Context, eventID string, scoredAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok || event.Scored {
		return false, nil
	}
	event.Scored = true
	event.ScoredAt = &scoredAt
	event.UpdatedAt = scoredAt
	return true, nil
}

// UpsertPick stores a pick keyed by (event, user)
func (s *MemoryStore) UpsertPick(_ context.Context, pick *models.Pick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.picks[pick.EventID]
	if !ok {
		byUser = make(map[string]*models.Pick)
		s.picks[pick.EventID] = byUser
	}
	if existing, ok := byUser[pick.UserID]; ok {
		pick.ID = existing.ID
	} else if pick.ID == "" {
		pick.ID = uuid.NewString()
	}
	byUser[pick.UserID] = copyPick(pick)
	return nil
}

// GetPick returns a user's pick for an event or nil
func (s *MemoryStore) GetPick(_ context.Context, eventID, userID string) (*models.Pick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pick, ok := s.picks[eventID][userID]
	if !ok {
		return nil, nil
	}
	return copyPick(pick), nil
}

// GetPicksForEvent returns every pick for the event, ordered by user id
func (s *MemoryStore) GetPicksForEvent(_ context.Context, eventID string) ([]models.Pick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	picks := make([]models.Pick, 0, len(s.picks[eventID]))
	for _, p := range s.picks[eventID] {
		picks = append(picks, *copyPick(p))
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].UserID < picks[j].UserID })
	return picks, nil
}

// SaveLeague inserts a league, assigning an id if missing
func (s *MemoryStore) SaveLeague(league *models.League) *models.League {
	s.mu.Lock()
	defer s.mu.Unlock()

	if league.ID == "" {
		league.ID = uuid.NewString()
	}
	league.JoinCode = strings.ToUpper(league.JoinCode)
	if league.CreatedAt.IsZero() {
		league.CreatedAt = s.nowFunc()
	}
	copied := *league
	s.leagues[league.ID] = &copied
	return &copied
}

// AddMember joins a user to a league with a zero total
func (s *MemoryStore) AddMember(leagueID, userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{leagueID, userID}
	if _, exists := s.members[key]; exists {
		return
	}
	s.members[key] = &models.LeagueMember{
		LeagueID:    leagueID,
		UserID:      userID,
		DisplayName: displayName,
		EventScores: make(map[string]models.EventScore),
		JoinedAt:    s.nowFunc(),
	}
}

// GetLeague returns the league or nil
func (s *MemoryStore) GetLeague(_ context.Context, leagueID string) (*models.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	league, ok := s.leagues[leagueID]
	if !ok {
		return nil, nil
	}
	copied := *league
	return &copied, nil
}

// GetLeagueIDsForUser lists the leagues a user belongs to, sorted
func (s *MemoryStore) GetLeagueIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for key := range s.members {
		if key.userID == userID {
			ids = append(ids, key.leagueID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetMembership returns a copy of the membership or nil
func (s *MemoryStore) GetMembership(_ context.Context, leagueID, userID string) (*models.LeagueMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberKey{leagueID, userID}]
	if !ok {
		return nil, nil
	}
	return copyMember(member), nil
}

// GetLeagueMembers returns every member of a league ordered by total points desc
func (s *MemoryStore) GetLeagueMembers(_ context.Context, leagueID string) ([]models.LeagueMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []models.LeagueMember
	for key, m := range s.members {
		if key.leagueID == leagueID {
			members = append(members, *copyMember(m))
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].TotalPoints != members[j].TotalPoints {
			return members[i].TotalPoints > members[j].TotalPoints
		}
		return members[i].DisplayName < members[j].DisplayName
	})
	return members, nil
}

// GetGlobalLeaderboard sums total points across every membership per user
func (s *MemoryStore) GetGlobalLeaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]*models.LeaderboardEntry)
	for key, m := range s.members {
		entry, ok := byUser[key.userID]
		if !ok {
			name := m.DisplayName
			if u, found := s.users[key.userID]; found {
				name = u.DisplayName
			}
			entry = &models.LeaderboardEntry{UserID: key.userID, DisplayName: name}
			byUser[key.userID] = entry
		}
		entry.TotalScore += m.TotalPoints
		entry.Leagues++
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	sortLeaderboard(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ApplyEventScores credits each membership at most once per event
func (s *MemoryStore) ApplyEventScores(_ context.Context, eventID string, scoredAt time.Time, chunk []models.MembershipScore) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, skipped := 0, 0
	for _, ms := range chunk {
		member, ok := s.members[memberKey{ms.LeagueID, ms.UserID}]
		if !ok || member.HasScoredEvent(eventID) {
			skipped++
			continue
		}
		if member.EventScores == nil {
			member.EventScores = make(map[string]models.EventScore)
		}
		member.TotalPoints += ms.Score.Points
		member.EventScores[eventID] = ms.Score.ToEventScore(scoredAt)
		applied++
	}
	return applied, skipped, nil
}

// SaveUser stores a user, assigning an id if missing
func (s *MemoryStore) SaveUser(user *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUser(user)
}

// CreateUser stores a new user, failing if the email is taken
func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[strings.ToLower(user.Email)]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
	}
	s.saveUser(user)
	return nil
}

func (s *MemoryStore) saveUser(user *models.User) *models.User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.nowFunc()
	}
	user.UpdatedAt = s.nowFunc()
	copied := *user
	s.users[user.ID] = &copied
	s.byEmail[strings.ToLower(user.Email)] = user.ID
	return &copied
}

// GetUserByEmail looks a user up case-insensitively
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	copied := *s.users[id]
	return &copied, nil
}

// GetUserByID returns the user or nil
func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error { return nil }

func copyEvent(e *models.Event) *models.Event {
	copied := *e
	copied.Matches = make([]models.Match, len(e.Matches))
	for i, m := range e.Matches {
		m.Competitors = append([]string(nil), m.Competitors...)
		copied.Matches[i] = m
	}
	return &copied
}

func copyPick(p *models.Pick) *models.Pick {
	copied := *p
	if p.Choices != nil {
		copied.Choices = make(map[string]models.Choice, len(p.Choices))
		for k, v := range p.Choices {
			copied.Choices[k] = v
		}
	}
	if p.LegacyChoices != nil {
		copied.LegacyChoices = make(map[string]string, len(p.LegacyChoices))
		for k, v := range p.LegacyChoices {
			copied.LegacyChoices[k] = v
		}
	}
	return &copied
}

func copyMember(m *models.LeagueMember) *models.LeagueMember {
	copied := *m
	copied.EventScores = make(map[string]models.EventScore, len(m.EventScores))
	for k, v := range m.EventScores {
		copied.EventScores[k] = v
	}
	return &copied
}

// sortLeaderboard orders by score desc then display name and assigns ranks
func sortLeaderboard(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
