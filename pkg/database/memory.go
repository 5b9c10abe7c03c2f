package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"space-notes-backend/pkg/models"

	"github.com/google/uuid"
)

// MemoryDatabase keeps everything in process memory. It backs local
// development (USE_LOCAL_DB) and tests; it enforces the same unique
// constraints as the Postgres schema.
type MemoryDatabase struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[string]models.User
	spaces    map[string]models.Space
	members   map[string]map[string]models.Membership // spaceID -> userID
	messages  map[string]models.Message
	reactions map[string]models.Reaction
	notes     map[string]models.Note
	lessons   map[string]models.Lesson
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		now:       func() time.Time { return time.Now().UTC() },
		users:     make(map[string]models.User),
		spaces:    make(map[string]models.Space),
		members:   make(map[string]map[string]models.Membership),
		messages:  make(map[string]models.Message),
		reactions: make(map[string]models.Reaction),
		notes:     make(map[string]models.Note),
		lessons:   make(map[string]models.Lesson),
	}
}

// SetClock replaces the timestamp source.
func (db *MemoryDatabase) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// ==== users ====

func (db *MemoryDatabase) CreateUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := db.users[user.ID]; ok {
		return ErrConflict
	}
	if db.userTaken(user) {
		return ErrConflict
	}
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	user.CreatedAt = db.now()
	user.UpdatedAt = user.CreatedAt
	db.users[user.ID] = *user
	return nil
}

// userTaken reports whether another user already holds u's email, phone or username.
func (db *MemoryDatabase) userTaken(u *models.User) bool {
	for id, other := range db.users {
		if id == u.ID {
			continue
		}
		if (u.Email != "" && other.Email == u.Email) ||
			(u.Phone != "" && other.Phone == u.Phone) ||
			(u.Username != "" && other.Username == u.Username) {
			return true
		}
	}
	return false
}

func (db *MemoryDatabase) GetUserByID(_ context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (db *MemoryDatabase) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return db.findUser(func(u models.User) bool { return email != "" && u.Email == email })
}

func (db *MemoryDatabase) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	return db.findUser(func(u models.User) bool { return phone != "" && u.Phone == phone })
}

func (db *MemoryDatabase) findUser(match func(models.User) bool) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDatabase) UpdateUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if db.userTaken(user) {
		return ErrConflict
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = db.now()
	db.users[user.ID] = *user
	return nil
}

// ==== spaces ====

func (db *MemoryDatabase) CreateSpace(_ context.Context, space *models.Space) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if space.ID == "" {
		space.ID = uuid.NewString()
	}
	for _, s := range db.spaces {
		if s.InviteCode == space.InviteCode {
			return ErrConflict
		}
	}
	space.CreatedAt = db.now()
	space.UpdatedAt = space.CreatedAt
	db.spaces[space.ID] = *space
	return nil
}

func (db *MemoryDatabase) GetSpace(_ context.Context, spaceID string) (*models.Space, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.spaces[spaceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (db *MemoryDatabase) GetSpaceByInviteCode(_ context.Context, code string) (*models.Space, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, s := range db.spaces {
		if code != "" && s.InviteCode == code {
			s := s
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDatabase) ListSpacesForUser(_ context.Context, userID string) ([]models.SpaceWithRole, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.SpaceWithRole{}
	for spaceID, ms := range db.members {
		m, ok := ms[userID]
		if !ok {
			continue
		}
		s, ok := db.spaces[spaceID]
		if !ok {
			continue
		}
		out = append(out, models.SpaceWithRole{Space: s, Role: m.Role, MemberCount: len(ms)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateSpace(_ context.Context, space *models.Space) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.spaces[space.ID]
	if !ok {
		return ErrNotFound
	}
	for id, s := range db.spaces {
		if id != space.ID && s.InviteCode == space.InviteCode {
			return ErrConflict
		}
	}
	space.CreatedAt = existing.CreatedAt
	space.UpdatedAt = db.now()
	db.spaces[space.ID] = *space
	return nil
}

func (db *MemoryDatabase) DeleteSpace(_ context.Context, spaceID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.spaces[spaceID]; !ok {
		return ErrNotFound
	}
	delete(db.spaces, spaceID)
	delete(db.members, spaceID)
	for id, m := range db.messages {
		if m.SpaceID == spaceID {
			db.deleteMessageLocked(id)
		}
	}
	for id, n := range db.notes {
		if n.SpaceID == spaceID {
			delete(db.notes, id)
		}
	}
	for id, l := range db.lessons {
		if l.SpaceID == spaceID {
			delete(db.lessons, id)
		}
	}
	return nil
}

// ==== memberships ====

func (db *MemoryDatabase) AddMember(_ context.Context, m *models.Membership) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.spaces[m.SpaceID]; !ok {
		return ErrNotFound
	}
	if _, ok := db.users[m.UserID]; !ok {
		return ErrNotFound
	}
	ms := db.members[m.SpaceID]
	if ms == nil {
		ms = make(map[string]models.Membership)
		db.members[m.SpaceID] = ms
	}
	if _, ok := ms[m.UserID]; ok {
		return ErrConflict
	}
	if m.NotificationLevel == "" {
		m.NotificationLevel = models.NotifyAll
	}
	m.JoinedAt = db.now()
	ms[m.UserID] = *m
	return nil
}

func (db *MemoryDatabase) GetMembership(_ context.Context, spaceID, userID string) (*models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.members[spaceID][userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (db *MemoryDatabase) ListMembers(_ context.Context, spaceID string) ([]models.MemberProfile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.MemberProfile{}
	for userID, m := range db.members[spaceID] {
		p := models.MemberProfile{Membership: m}
		if u, ok := db.users[userID]; ok {
			p.DisplayName = u.DisplayName
			p.Username = u.Username
			p.AvatarType = u.AvatarType
			p.AvatarData = u.AvatarData
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateNotificationLevel(_ context.Context, spaceID, userID string, level models.NotificationLevel) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.members[spaceID][userID]
	if !ok {
		return ErrNotFound
	}
	m.NotificationLevel = level
	db.members[spaceID][userID] = m
	return nil
}

// ==== messages ====

func (db *MemoryDatabase) CreateMessage(_ context.Context, msg *models.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = db.now()
	}
	msg.UpdatedAt = msg.CreatedAt
	msg.Reactions = []models.Reaction{}
	stored := *msg
	stored.Reactions = nil
	db.messages[msg.ID] = stored
	return nil
}

func (db *MemoryDatabase) GetMessage(_ context.Context, spaceID, messageID string) (*models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.messages[messageID]
	if !ok || m.SpaceID != spaceID {
		return nil, ErrNotFound
	}
	m.Reactions = db.reactionsForLocked(m.ID)
	return &m, nil
}

func (db *MemoryDatabase) ListMessages(_ context.Context, spaceID string, q MessageQuery) ([]models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	before := q.Before
	if before.IsZero() {
		before = db.now().Add(time.Second)
	}
	page := []models.Message{}
	for _, m := range db.messages {
		if m.SpaceID == spaceID && m.CreatedAt.Before(before) {
			page = append(page, m)
		}
	}
	sort.Slice(page, func(i, j int) bool {
		if page[i].CreatedAt.Equal(page[j].CreatedAt) {
			return page[i].ID > page[j].ID
		}
		return page[i].CreatedAt.After(page[j].CreatedAt)
	})
	if q.Limit > 0 && len(page) > q.Limit {
		page = page[:q.Limit]
	}
	// newest-first selection, oldest-first delivery
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	for i := range page {
		page[i].Reactions = db.reactionsForLocked(page[i].ID)
	}
	return page, nil
}

func (db *MemoryDatabase) DeleteMessage(_ context.Context, messageID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.messages[messageID]; !ok {
		return ErrNotFound
	}
	db.deleteMessageLocked(messageID)
	return nil
}

func (db *MemoryDatabase) deleteMessageLocked(messageID string) {
	delete(db.messages, messageID)
	for id, r := range db.reactions {
		if r.MessageID == messageID {
			delete(db.reactions, id)
		}
	}
}

func (db *MemoryDatabase) reactionsForLocked(messageID string) []models.Reaction {
	out := []models.Reaction{}
	for _, r := range db.reactions {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (db *MemoryDatabase) AddReaction(_ context.Context, r *models.Reaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.messages[r.MessageID]; !ok {
		return ErrNotFound
	}
	for _, existing := range db.reactions {
		if existing.MessageID == r.MessageID && existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			return ErrConflict
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = db.now()
	db.reactions[r.ID] = *r
	return nil
}

func (db *MemoryDatabase) RemoveReaction(_ context.Context, messageID, userID, emoji string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for id, r := range db.reactions {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			delete(db.reactions, id)
			return nil
		}
	}
	return ErrNotFound
}

// ==== notes ====

func (db *MemoryDatabase) CreateNote(_ context.Context, n *models.Note) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = db.now()
	n.UpdatedAt = n.CreatedAt
	db.notes[n.ID] = *n
	return nil
}

func (db *MemoryDatabase) GetNote(_ context.Context, spaceID, noteID string) (*models.Note, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n, ok := db.notes[noteID]
	if !ok || n.SpaceID != spaceID {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (db *MemoryDatabase) ListNotes(_ context.Context, spaceID string) ([]models.Note, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Note{}
	for _, n := range db.notes {
		if n.SpaceID == spaceID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateNote(_ context.Context, n *models.Note) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.notes[n.ID]
	if !ok {
		return ErrNotFound
	}
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = db.now()
	db.notes[n.ID] = *n
	return nil
}

func (db *MemoryDatabase) DeleteNote(_ context.Context, noteID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.notes[noteID]; !ok {
		return ErrNotFound
	}
	delete(db.notes, noteID)
	return nil
}

// ==== lessons ====

func (db *MemoryDatabase) CreateLesson(_ context.Context, l *models.Lesson) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = db.now()
	l.UpdatedAt = l.CreatedAt
	db.lessons[l.ID] = *l
	return nil
}

func (db *MemoryDatabase) GetLesson(_ context.Context, spaceID, lessonID string) (*models.Lesson, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	l, ok := db.lessons[lessonID]
	if !ok || l.SpaceID != spaceID {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (db *MemoryDatabase) ListLessons(_ context.Context, spaceID string) ([]models.Lesson, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Lesson{}
	for _, l := range db.lessons {
		if l.SpaceID == spaceID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (db *MemoryDatabase) UpdateLesson(_ context.Context, l *models.Lesson) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.lessons[l.ID]
	if !ok {
		return ErrNotFound
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = db.now()
	db.lessons[l.ID] = *l
	return nil
}

func (db *MemoryDatabase) DeleteLesson(_ context.Context, lessonID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.lessons[lessonID]; !ok {
		return ErrNotFound
	}
	delete(db.lessons, lessonID)
	return nil
}

func (db *MemoryDatabase) HealthCheck(context.Context) error { return nil }

func (db *MemoryDatabase) Close() error { return nil }
