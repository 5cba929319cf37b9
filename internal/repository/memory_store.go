package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/turno-service/internal/domain"
)

// MemoryStore is an in-memory implementation of every repository, used when
// no Postgres DSN is configured and by the engine tests. A single mutex
// serializes all mutations, which also serializes ticket state transitions
// and keeps reads consistent.
type MemoryStore struct {
	mu            sync.Mutex
	tickets       map[string]domain.Ticket
	cafeterias    map[string]domain.Cafeteria
	penalties     map[string]domain.Penalty
	users         map[string]domain.User
	events        map[string][]domain.TurnEvent
	notifications map[string]domain.Notification
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:       make(map[string]domain.Ticket),
		cafeterias:    make(map[string]domain.Cafeteria),
		penalties:     make(map[string]domain.Penalty),
		users:         make(map[string]domain.User),
		events:        make(map[string][]domain.TurnEvent),
		notifications: make(map[string]domain.Notification),
	}
}

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return (*memoryTickets)(s) }

// Cafeterias returns the cafeteria registry view of the store.
func (s *MemoryStore) Cafeterias() CafeteriaRepository { return (*memoryCafeterias)(s) }

// Penalties returns the penalty ledger view of the store.
func (s *MemoryStore) Penalties() PenaltyRepository { return (*memoryPenalties)(s) }

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// TurnEvents returns the audit trail view of the store.
func (s *MemoryStore) TurnEvents() TurnEventRepository { return (*memoryTurnEvents)(s) }

// Notifications returns the notification repository view of the store.
func (s *MemoryStore) Notifications() NotificationRepository { return (*memoryNotifications)(s) }

type memoryTickets MemoryStore

func (m *memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := domain.ServiceDate(ticket.ServiceDate)
	for _, existing := range m.tickets {
		if existing.OwnerID == ticket.OwnerID &&
			existing.CafeteriaID == ticket.CafeteriaID &&
			existing.ServiceDate.Equal(day) &&
			existing.State.Active() {
			return ErrDuplicateActiveTicket
		}
	}
	ticket.ServiceDate = day
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memoryTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (m *memoryTickets) UpdateState(ctx context.Context, id string, from, to domain.TicketState, claimedAt *time.Time) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.State != from {
		return nil, ErrStateConflict
	}
	ticket.State = to
	if claimedAt != nil {
		at := *claimedAt
		ticket.ClaimedAt = &at
	}
	m.tickets[id] = ticket
	return &ticket, nil
}

func (m *memoryTickets) List(ctx context.Context) ([]domain.Ticket, error) {
	return m.list(func(domain.Ticket) bool { return true }, byCreatedDesc)
}

func (m *memoryTickets) ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	return m.list(func(t domain.Ticket) bool { return t.State == state }, byCreatedDesc)
}

func (m *memoryTickets) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	return m.list(func(t domain.Ticket) bool { return t.OwnerID == ownerID }, byCreatedDesc)
}

func (m *memoryTickets) ListByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) ([]domain.Ticket, error) {
	day := domain.ServiceDate(date)
	return m.list(func(t domain.Ticket) bool {
		return t.OwnerID == ownerID && t.ServiceDate.Equal(day)
	}, byCreatedDesc)
}

func (m *memoryTickets) ListPendingByCafeteria(ctx context.Context, cafeteriaID string) ([]domain.Ticket, error) {
	return m.list(func(t domain.Ticket) bool {
		return t.CafeteriaID == cafeteriaID && t.State == domain.TicketStatePending
	}, byCreatedAsc)
}

func (m *memoryTickets) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return m.list(func(t domain.Ticket) bool {
		return t.State == domain.TicketStatePending && !t.CreatedAt.After(cutoff)
	}, byCreatedAsc)
}

func (m *memoryTickets) list(match func(domain.Ticket) bool, order func([]domain.Ticket)) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if match(ticket) {
			result = append(result, ticket)
		}
	}
	order(result)
	return result, nil
}

// FIFO by creation time, id ascending on ties.
func byCreatedAsc(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

func byCreatedDesc(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID > tickets[j].ID
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}

type memoryCafeterias MemoryStore

func (m *memoryCafeterias) Create(ctx context.Context, cafeteria *domain.Cafeteria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cafeteria.ID == "" {
		cafeteria.ID = uuid.NewString()
	}
	if cafeteria.UpdatedAt.IsZero() {
		cafeteria.UpdatedAt = time.Now()
	}
	m.cafeterias[cafeteria.ID] = *cafeteria
	return nil
}

func (m *memoryCafeterias) GetByID(ctx context.Context, id string) (*domain.Cafeteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cafeteria, ok := m.cafeterias[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cafeteria, nil
}

func (m *memoryCafeterias) List(ctx context.Context) ([]domain.Cafeteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Cafeteria, 0, len(m.cafeterias))
	for _, cafeteria := range m.cafeterias {
		result = append(result, cafeteria)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memoryCafeterias) SetState(ctx context.Context, id string, state domain.CafeteriaState) (*domain.Cafeteria, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cafeteria, ok := m.cafeterias[id]
	if !ok {
		return nil, ErrNotFound
	}
	cafeteria.State = state
	cafeteria.UpdatedAt = time.Now()
	m.cafeterias[id] = cafeteria
	return &cafeteria, nil
}

type memoryPenalties MemoryStore

func (m *memoryPenalties) ActiveFor(ctx context.Context, ownerID string) (*domain.Penalty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeForLocked(ownerID)
}

func (m *memoryPenalties) activeForLocked(ownerID string) (*domain.Penalty, error) {
	for _, penalty := range m.penalties {
		if penalty.OwnerID == ownerID && penalty.Active {
			p := penalty
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryPenalties) Issue(ctx context.Context, penalty *domain.Penalty) (*domain.Penalty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, err := m.activeForLocked(penalty.OwnerID); err == nil {
		return existing, nil
	}
	penalty.Active = true
	m.penalties[penalty.ID] = *penalty
	return penalty, nil
}

func (m *memoryPenalties) Clear(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, penalty := range m.penalties {
		if penalty.OwnerID == ownerID && penalty.Active {
			penalty.Active = false
			m.penalties[id] = penalty
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryPenalties) ListActive(ctx context.Context) ([]domain.Penalty, error) {
	return m.list(func(p domain.Penalty) bool { return p.Active })
}

func (m *memoryPenalties) ListByOwner(ctx context.Context, ownerID string) ([]domain.Penalty, error) {
	return m.list(func(p domain.Penalty) bool { return p.OwnerID == ownerID })
}

func (m *memoryPenalties) list(match func(domain.Penalty) bool) ([]domain.Penalty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Penalty
	for _, penalty := range m.penalties {
		if match(penalty) {
			result = append(result, penalty)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

type memoryUsers MemoryStore

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrUsernameTaken
		}
		if user.StudentCode != "" && existing.StudentCode == user.StudentCode {
			return ErrUsernameTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type memoryTurnEvents MemoryStore

func (m *memoryTurnEvents) Append(ctx context.Context, event *domain.TurnEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.TicketID] = append(m.events[event.TicketID], *event)
	return nil
}

func (m *memoryTurnEvents) ListByTicket(ctx context.Context, ticketID string) ([]domain.TurnEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.events[ticketID]
	result := make([]domain.TurnEvent, len(events))
	copy(result, events)
	return result, nil
}

type memoryNotifications MemoryStore

func (m *memoryNotifications) Create(ctx context.Context, notification *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *memoryNotifications) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Notification
	for _, notification := range m.notifications {
		if notification.UserID == userID {
			result = append(result, notification)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *memoryNotifications) MarkRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification, ok := m.notifications[id]
	if !ok || notification.UserID != userID {
		return ErrNotFound
	}
	notification.Read = true
	m.notifications[id] = notification
	return nil
}
