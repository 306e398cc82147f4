package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
	domainerror "github.com/facturio/backend/internal/domain/error"
)

// In-memory fakes for every dispatcher port. They mirror the semantics of
// the gorm repositories closely enough for the engine's contract tests.

type fakeFollowUpRepo struct {
	items      map[uuid.UUID]*entity.FollowUpItem
	failGetDue error
}

func newFakeFollowUpRepo(items ...*entity.FollowUpItem) *fakeFollowUpRepo {
	repo := &fakeFollowUpRepo{items: make(map[uuid.UUID]*entity.FollowUpItem)}
	for _, item := range items {
		copied := *item
		repo.items[item.ID] = &copied
	}
	return repo
}

func (r *fakeFollowUpRepo) GetDueItems(_ context.Context, now time.Time, limit int) ([]*entity.FollowUpItem, error) {
	if r.failGetDue != nil {
		return nil, r.failGetDue
	}
	var due []*entity.FollowUpItem
	for _, item := range r.items {
		if item.IsDue(now) {
			copied := *item
			due = append(due, &copied)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		ri, rj := due[i].Meta.Priority.Rank(), due[j].Meta.Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeFollowUpRepo) ClaimForSending(_ context.Context, id uuid.UUID) error {
	item, ok := r.items[id]
	if !ok {
		return domainerror.ErrFollowUpNotFound
	}
	for _, s := range entity.DueStatuses() {
		if item.Status == s {
			item.Status = entity.FollowUpStatusSending
			return nil
		}
	}
	return domainerror.ErrItemNotClaimed
}

func (r *fakeFollowUpRepo) Update(_ context.Context, item *entity.FollowUpItem) error {
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeFollowUpRepo) StopAllForParent(_ context.Context, parentID uuid.UUID, reason string, now time.Time) (int64, error) {
	var stopped int64
	for _, item := range r.items {
		if item.ParentID == parentID && !item.Status.IsTerminal() {
			item.Status = entity.FollowUpStatusStopped
			item.LastError = reason
			processed := now
			item.ProcessedAt = &processed
			stopped++
		}
	}
	return stopped, nil
}

func (r *fakeFollowUpRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.FollowUpItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, domainerror.ErrFollowUpNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *fakeFollowUpRepo) get(id uuid.UUID) *entity.FollowUpItem {
	return r.items[id]
}

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*entity.Invoice
}

func newFakeInvoiceRepo(invoices ...*entity.Invoice) *fakeInvoiceRepo {
	repo := &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*entity.Invoice)}
	for _, inv := range invoices {
		repo.invoices[inv.ID] = inv
	}
	return repo
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domainerror.ErrParentNotFound
	}
	return inv, nil
}

type fakeQuoteRepo struct {
	quotes map[uuid.UUID]*entity.Quote
}

func newFakeQuoteRepo(quotes ...*entity.Quote) *fakeQuoteRepo {
	repo := &fakeQuoteRepo{quotes: make(map[uuid.UUID]*entity.Quote)}
	for _, q := range quotes {
		repo.quotes[q.ID] = q
	}
	return repo
}

func (r *fakeQuoteRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, domainerror.ErrParentNotFound
	}
	return q, nil
}

type fakeClientRepo struct {
	clients map[uuid.UUID]*entity.Client
}

func newFakeClientRepo(clients ...*entity.Client) *fakeClientRepo {
	repo := &fakeClientRepo{clients: make(map[uuid.UUID]*entity.Client)}
	for _, c := range clients {
		repo.clients[c.ID] = c
	}
	return repo
}

func (r *fakeClientRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, domainerror.ErrClientNotFound
	}
	return c, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

type fakeTemplateRepo struct {
	templates []*entity.ReminderTemplate
}

func (r *fakeTemplateRepo) FindActive(_ context.Context, ownerID uuid.UUID, templateType, language string) (*entity.ReminderTemplate, error) {
	for _, t := range r.templates {
		if t.OwnerID == ownerID && t.Type == templateType && t.Language == language && t.IsActive {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTemplateRepo) FindActiveAnyLanguage(_ context.Context, ownerID uuid.UUID, templateType string) (*entity.ReminderTemplate, error) {
	for _, t := range r.templates {
		if t.OwnerID == ownerID && t.Type == templateType && t.IsActive {
			return t, nil
		}
	}
	return nil, nil
}

type fakeOutboxRepo struct {
	records    []*entity.OutboxRecord
	failCreate error
	failUpdate error
}

func (r *fakeOutboxRepo) Create(_ context.Context, record *entity.OutboxRecord) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *fakeOutboxRepo) Update(_ context.Context, record *entity.OutboxRecord) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	for i, existing := range r.records {
		if existing.ID == record.ID {
			copied := *record
			r.records[i] = &copied
			return nil
		}
	}
	return errors.New("outbox record not found")
}

func (r *fakeOutboxRepo) GetByFollowUp(_ context.Context, followUpID uuid.UUID) ([]*entity.OutboxRecord, error) {
	var out []*entity.OutboxRecord
	for _, rec := range r.records {
		if rec.FollowUpID == followUpID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeEventRepo struct {
	events []*entity.Event
}

func (r *fakeEventRepo) Append(_ context.Context, event *entity.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) byType(eventType entity.EventType) []*entity.Event {
	var out []*entity.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeSender struct {
	sent     []adapter.SendEmailInput
	failWith error
}

func (s *fakeSender) Send(_ context.Context, input adapter.SendEmailInput) (*adapter.SendEmailResult, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.sent = append(s.sent, input)
	return &adapter.SendEmailResult{ProviderMessageID: fmt.Sprintf("msg-%d", len(s.sent))}, nil
}

type fakeEntitlements struct {
	allowed map[uuid.UUID]bool
	err     error
}

func (e *fakeEntitlements) AllowsAutomatedSends(_ context.Context, ownerID uuid.UUID) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	return e.allowed[ownerID], nil
}

type fakeLocker struct {
	held     map[uuid.UUID]bool
	acquired []uuid.UUID
	released int
}

func (l *fakeLocker) TryAcquire(_ context.Context, parentID uuid.UUID) (func(), bool, error) {
	if l.held[parentID] {
		return nil, false, nil
	}
	l.acquired = append(l.acquired, parentID)
	return func() { l.released++ }, true, nil
}

type fakeLinks struct{}

func (fakeLinks) CustomerLink(kind entity.ParentKind, parentID, clientID uuid.UUID) (string, error) {
	return fmt.Sprintf("https://app.example/view/%s/%s", kind, parentID), nil
}

type fakeDocuments struct {
	attachment *adapter.Attachment
	calls      int
}

func (d *fakeDocuments) TryGenerate(_ context.Context, _ adapter.DocumentInput) *adapter.Attachment {
	d.calls++
	return d.attachment
}
