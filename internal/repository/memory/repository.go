package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type InMemoryUserRepository struct {
	users map[string]*model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (r *InMemoryUserRepository) find(match func(*model.User) bool) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if match(user) {
			u := *user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.GoogleID == googleID })
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return repository.ErrNotFound
	}
	u := *user
	u.UpdatedAt = time.Now()
	r.users[user.ID] = &u
	return nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

// Label repository implementation
type InMemoryLabelRepository struct {
	labels map[string]*model.Label
	mutex  sync.RWMutex
}

func NewInMemoryLabelRepository() *InMemoryLabelRepository {
	return &InMemoryLabelRepository{
		labels: make(map[string]*model.Label),
	}
}

func (r *InMemoryLabelRepository) Create(ctx context.Context, label *model.Label) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l := *label
	r.labels[label.ID] = &l
	return nil
}

func (r *InMemoryLabelRepository) FindByID(ctx context.Context, id string) (*model.Label, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	label, exists := r.labels[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	l := *label
	return &l, nil
}

func (r *InMemoryLabelRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Label, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := []*model.Label{}
	for _, label := range r.labels {
		if label.UserID == userID {
			l := *label
			result = append(result, &l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryLabelRepository) Update(ctx context.Context, label *model.Label) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.labels[label.ID]; !exists {
		return repository.ErrNotFound
	}
	l := *label
	r.labels[label.ID] = &l
	return nil
}

func (r *InMemoryLabelRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.labels, id)
	return nil
}

// Email repository implementation
type InMemoryEmailRepository struct {
	emails      map[string]*model.Email
	attachments map[string][]model.Attachment
	mutex       sync.RWMutex
}

func NewInMemoryEmailRepository() *InMemoryEmailRepository {
	return &InMemoryEmailRepository{
		emails:      make(map[string]*model.Email),
		attachments: make(map[string][]model.Attachment),
	}
}

func cloneEmail(e *model.Email) *model.Email {
	c := *e
	c.To = cloneRecipients(e.To)
	c.Cc = cloneRecipients(e.Cc)
	c.Bcc = cloneRecipients(e.Bcc)
	c.LabelIDs = []string{}
	c.Attachments = nil
	return &c
}

func cloneRecipients(list []model.Recipient) []model.Recipient {
	out := make([]model.Recipient, len(list))
	copy(out, list)
	return out
}

func (r *InMemoryEmailRepository) Create(ctx context.Context, email *model.Email) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.emails {
		if existing.MessageID == email.MessageID {
			return repository.ErrDuplicate
		}
	}
	r.emails[email.ID] = cloneEmail(email)
	return nil
}

func (r *InMemoryEmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	email, exists := r.emails[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return cloneEmail(email), nil
}

func (r *InMemoryEmailRepository) FindByMessageID(ctx context.Context, messageID string) (*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, email := range r.emails {
		if email.MessageID == messageID {
			return cloneEmail(email), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InMemoryEmailRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := []*model.Email{}
	for _, email := range r.emails {
		if email.UserID == userID {
			result = append(result, cloneEmail(email))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ReceivedAt.Equal(result[j].ReceivedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result, nil
}

func (r *InMemoryEmailRepository) Update(ctx context.Context, email *model.Email) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.emails[email.ID]; !exists {
		return repository.ErrNotFound
	}
	e := cloneEmail(email)
	e.UpdatedAt = time.Now()
	r.emails[email.ID] = e
	return nil
}

func (r *InMemoryEmailRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.emails, id)
	delete(r.attachments, id)
	return nil
}

func (r *InMemoryEmailRepository) CreateAttachments(ctx context.Context, attachments []model.Attachment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, a := range attachments {
		r.attachments[a.EmailID] = append(r.attachments[a.EmailID], a)
	}
	return nil
}

func (r *InMemoryEmailRepository) FindAttachments(ctx context.Context, emailID string) ([]model.Attachment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.Attachment, len(r.attachments[emailID]))
	copy(out, r.attachments[emailID])
	return out, nil
}

// Assignment repository implementation. Edges are keyed by label, then email.
type InMemoryAssignmentRepository struct {
	edges map[string]map[string]time.Time
	mutex sync.RWMutex
}

func NewInMemoryAssignmentRepository() *InMemoryAssignmentRepository {
	return &InMemoryAssignmentRepository{
		edges: make(map[string]map[string]time.Time),
	}
}

func (r *InMemoryAssignmentRepository) Add(ctx context.Context, labelID string, emailIDs []string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.addLocked(labelID, emailIDs)
	return nil
}

func (r *InMemoryAssignmentRepository) addLocked(labelID string, emailIDs []string) {
	set, ok := r.edges[labelID]
	if !ok {
		set = make(map[string]time.Time)
		r.edges[labelID] = set
	}
	now := time.Now()
	for _, id := range emailIDs {
		if _, exists := set[id]; !exists {
			set[id] = now
		}
	}
}

func (r *InMemoryAssignmentRepository) Remove(ctx context.Context, labelID string, emailIDs []string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, id := range emailIDs {
		delete(r.edges[labelID], id)
	}
	return nil
}

func (r *InMemoryAssignmentRepository) EmailIDsForLabel(ctx context.Context, labelID string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := []string{}
	for id := range r.edges[labelID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *InMemoryAssignmentRepository) LabelIDsForEmail(ctx context.Context, emailID string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := []string{}
	for labelID, set := range r.edges {
		if _, ok := set[emailID]; ok {
			out = append(out, labelID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *InMemoryAssignmentRepository) ReplaceForEmail(ctx context.Context, emailID string, labelIDs []string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, set := range r.edges {
		delete(set, emailID)
	}
	for _, labelID := range labelIDs {
		r.addLocked(labelID, []string{emailID})
	}
	return nil
}

func (r *InMemoryAssignmentRepository) DeleteByLabel(ctx context.Context, labelID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.edges, labelID)
	return nil
}

func (r *InMemoryAssignmentRepository) DeleteByEmail(ctx context.Context, emailID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, set := range r.edges {
		delete(set, emailID)
	}
	return nil
}
