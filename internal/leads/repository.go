package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the authoritative lead store. Leads are only ever inserted;
// there is no update or delete.
type Repository interface {
	Create(ctx context.Context, data *IntakeData) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
}

// InMemoryRepository keeps leads in process memory. Used for local runs and tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	leads       map[string]*Lead
	order       []*Lead
	lastCreated time.Time
	now         func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new lead with a fresh id. Timestamps never go backwards
// relative to insertion order, even when the clock does.
func (r *InMemoryRepository) Create(ctx context.Context, data *IntakeData) (*Lead, error) {
	if data == nil || data.FullName == "" || data.Email == "" {
		return nil, ErrInvalidLead
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now()
	if !createdAt.After(r.lastCreated) {
		createdAt = r.lastCreated.Add(time.Microsecond)
	}
	r.lastCreated = createdAt

	lead := leadFromIntake(uuid.New().String(), createdAt, data)
	r.leads[lead.ID] = lead
	r.order = append(r.order, lead)

	return cloneLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// List returns copies of the stored leads shaped by filter.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	snapshot := make([]*Lead, len(r.order))
	for i, lead := range r.order {
		snapshot[i] = cloneLead(lead)
	}
	r.mu.RUnlock()

	return filter.Apply(snapshot), nil
}

func leadFromIntake(id string, createdAt time.Time, data *IntakeData) *Lead {
	return &Lead{
		ID:          id,
		CreatedAt:   createdAt,
		FullName:    data.FullName,
		Email:       data.Email,
		Phone:       data.Phone,
		Notes:       data.Notes,
		IGUserID:    data.IGUserID,
		IGUsername:  data.IGUsername,
		IGCommentID: data.IGCommentID,
		IGMediaID:   data.IGMediaID,
		Campaign:    data.Campaign,
		Source:      data.Source,
	}
}

func cloneLead(l *Lead) *Lead {
	c := *l
	c.Phone = cloneString(l.Phone)
	c.Notes = cloneString(l.Notes)
	c.IGUserID = cloneString(l.IGUserID)
	c.IGUsername = cloneString(l.IGUsername)
	c.IGCommentID = cloneString(l.IGCommentID)
	c.IGMediaID = cloneString(l.IGMediaID)
	c.Campaign = cloneString(l.Campaign)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
