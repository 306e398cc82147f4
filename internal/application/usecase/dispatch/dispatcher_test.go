package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/application/usecase/render"
	"github.com/facturio/backend/internal/domain/entity"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	followUps    *fakeFollowUpRepo
	invoices     *fakeInvoiceRepo
	quotes       *fakeQuoteRepo
	clients      *fakeClientRepo
	users        *fakeUserRepo
	templates    *fakeTemplateRepo
	outbox       *fakeOutboxRepo
	events       *fakeEventRepo
	sender       *fakeSender
	entitlements *fakeEntitlements
	locker       *fakeLocker
	documents    *fakeDocuments

	owner  *entity.User
	client *entity.Client
}

func newFixture() *fixture {
	owner := &entity.User{
		ID:                 uuid.New(),
		Email:              "owner@example.com",
		DisplayName:        "Jeanne Martin",
		CompanyName:        "Atelier Martin",
		Plan:               entity.PlanPro,
		SubscriptionStatus: entity.SubscriptionActive,
	}
	client := &entity.Client{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Name:     "Dupont SARL",
		Email:    "compta@dupont.fr",
		Language: "fr",
	}
	return &fixture{
		followUps:    newFakeFollowUpRepo(),
		invoices:     newFakeInvoiceRepo(),
		quotes:       newFakeQuoteRepo(),
		clients:      newFakeClientRepo(client),
		users:        newFakeUserRepo(owner),
		templates:    &fakeTemplateRepo{},
		outbox:       &fakeOutboxRepo{},
		events:       &fakeEventRepo{},
		sender:       &fakeSender{},
		entitlements: &fakeEntitlements{allowed: map[uuid.UUID]bool{owner.ID: true}},
		locker:       &fakeLocker{held: map[uuid.UUID]bool{}},
		documents:    &fakeDocuments{},
		owner:        owner,
		client:       client,
	}
}

func (f *fixture) dispatcher() *Dispatcher {
	return NewDispatcher(Deps{
		FollowUps:    f.followUps,
		Invoices:     f.invoices,
		Quotes:       f.quotes,
		Clients:      f.clients,
		Users:        f.users,
		Templates:    render.NewResolver(f.templates, "fr"),
		Outbox:       f.outbox,
		Events:       f.events,
		Sender:       f.sender,
		Documents:    f.documents,
		Entitlements: f.entitlements,
		Locker:       f.locker,
		Links:        fakeLinks{},
	}, Config{
		PageSize:    100,
		ResendDelay: 24 * time.Hour,
		Clock:       func() time.Time { return testNow },
	})
}

func (f *fixture) addOverdueInvoice() *entity.Invoice {
	invoice := &entity.Invoice{
		ID:        uuid.New(),
		OwnerID:   f.owner.ID,
		ClientID:  f.client.ID,
		Number:    "INV-2025-001",
		Status:    entity.InvoiceStatusOverdue,
		IssueDate: testNow.AddDate(0, 0, -40),
		DueDate:   testNow.AddDate(0, 0, -10),
		Total:     decimal.NewFromFloat(1234.56),
		Currency:  "EUR",
	}
	f.invoices.invoices[invoice.ID] = invoice
	return invoice
}

func (f *fixture) addItem(invoice *entity.Invoice, mutate func(*entity.FollowUpItem)) *entity.FollowUpItem {
	item := entity.NewFollowUpItem(invoice.ID, entity.ParentKindInvoice, f.owner.ID, f.client.ID, 1, "invoice_overdue", entity.FollowUpMeta{
		Priority:     entity.PriorityMedium,
		Automated:    false,
		TemplateType: "invoice_overdue",
	}, testNow.Add(-time.Hour))
	item.Status = entity.FollowUpStatusScheduled
	if mutate != nil {
		mutate(item)
	}
	copied := *item
	f.followUps.items[item.ID] = &copied
	return item
}

func (f *fixture) addTemplate(templateType, language string) {
	f.templates.templates = append(f.templates.templates, &entity.ReminderTemplate{
		ID:       uuid.New(),
		OwnerID:  f.owner.ID,
		Type:     templateType,
		Language: language,
		Subject:  "Rappel {number}",
		HTMLBody: "<p>Bonjour {client_name}, la facture {number} de {amount} est en retard de {days_overdue} jours. {link}</p>",
		TextBody: "Bonjour {client_name}, la facture {number} est en retard.",
		IsActive: true,
	})
}

func TestRunOnceSendsDueInvoiceFollowUp(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	item := f.addItem(invoice, nil)
	f.addTemplate("invoice_overdue", "fr")

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("expected 1 processed, 0 failed, got %+v", result)
	}
	if result.MediumPriority != 1 {
		t.Errorf("expected medium priority tally 1, got %d", result.MediumPriority)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(f.sender.sent))
	}
	sent := f.sender.sent[0]
	if sent.To != f.client.Email {
		t.Errorf("sent to %q, want %q", sent.To, f.client.Email)
	}
	if sent.Subject != "Rappel INV-2025-001" {
		t.Errorf("unexpected subject %q", sent.Subject)
	}
	if !strings.Contains(sent.HTML, "Dupont SARL") || !strings.Contains(sent.HTML, "10 jours") {
		t.Errorf("rendered HTML missing variables: %q", sent.HTML)
	}
	if !strings.Contains(sent.HTML, "1 234,56 €") {
		t.Errorf("expected French amount formatting, got %q", sent.HTML)
	}

	stored := f.followUps.get(item.ID)
	if stored.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", stored.Attempts)
	}
	if stored.Status != entity.FollowUpStatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
	wantNext := testNow.Add(24 * time.Hour)
	if !stored.ScheduledAt.Equal(wantNext) {
		t.Errorf("scheduledAt = %v, want %v", stored.ScheduledAt, wantNext)
	}

	if len(f.outbox.records) != 1 {
		t.Fatalf("expected 1 outbox record, got %d", len(f.outbox.records))
	}
	record := f.outbox.records[0]
	if record.Status != entity.OutboxStatusSent {
		t.Errorf("outbox status = %s, want sent", record.Status)
	}
	if record.ProviderMessageID == "" || record.SentAt == nil {
		t.Errorf("outbox record missing provider id or sent timestamp: %+v", record)
	}

	if len(f.events.byType(entity.EventFollowUpSent)) != 1 {
		t.Errorf("expected 1 followup_sent event, got %d", len(f.events.byType(entity.EventFollowUpSent)))
	}
	if f.locker.released != 1 {
		t.Errorf("parent lock released %d times, want 1", f.locker.released)
	}
}

func TestRunOnceAtMostOnePerParentPerRun(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")

	f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.Stage = 1
		i.ScheduledAt = testNow.Add(-2 * time.Hour)
	})
	f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.Stage = 2
		i.ScheduledAt = testNow.Add(-time.Hour)
	})

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected exactly 1 processed for shared parent, got %d", result.Processed)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected exactly 1 email for shared parent, got %d", len(f.sender.sent))
	}
}

func TestRunOnceTerminalParentStopsAll(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	invoice.Status = entity.InvoiceStatusPaid
	f.addTemplate("invoice_overdue", "fr")

	first := f.addItem(invoice, func(i *entity.FollowUpItem) { i.Stage = 1 })
	second := f.addItem(invoice, func(i *entity.FollowUpItem) { i.Stage = 2 })

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("terminal parent should be skipped, got %+v", result)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("expected zero emails for paid invoice, got %d", len(f.sender.sent))
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		stored := f.followUps.get(id)
		if stored.Status != entity.FollowUpStatusStopped {
			t.Errorf("item %s status = %s, want stopped", id, stored.Status)
		}
	}
}

func TestRunOnceEligibilityGate(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.entitlements.allowed[f.owner.ID] = false

	automated := f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.Meta.Automated = true
	})

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("ineligible automated item should be skipped, got %+v", result)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("no transport call expected for ineligible automated item")
	}

	stored := f.followUps.get(automated.ID)
	if stored.Status != entity.FollowUpStatusStopped {
		t.Errorf("status = %s, want stopped", stored.Status)
	}
	if !strings.Contains(stored.LastError, "eligible plan") {
		t.Errorf("lastError = %q, want plan message", stored.LastError)
	}
}

func TestRunOnceManualItemBypassesEligibility(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.entitlements.allowed[f.owner.ID] = false

	f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.Meta.Automated = false
	})

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("manual item should dispatch regardless of plan, got %+v", result)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(f.sender.sent))
	}
}

func TestRunOnceMissingEmailIsPermanentFailure(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.client.Email = ""

	item := f.addItem(invoice, nil)

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("no transport call expected without recipient email")
	}

	stored := f.followUps.get(item.ID)
	if stored.Status != entity.FollowUpStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", stored.Attempts)
	}

	failedEvents := f.events.byType(entity.EventFollowUpFailed)
	if len(failedEvents) != 1 {
		t.Fatalf("expected 1 followup_failed event, got %d", len(failedEvents))
	}
	if permanent, _ := failedEvents[0].Meta["permanent"].(bool); !permanent {
		t.Errorf("event should be marked permanent: %+v", failedEvents[0].Meta)
	}
}

func TestRunOnceParentNotFoundIsPermanentFailure(t *testing.T) {
	f := newFixture()
	f.addTemplate("invoice_overdue", "fr")

	orphan := entity.NewFollowUpItem(uuid.New(), entity.ParentKindInvoice, f.owner.ID, f.client.ID, 1, "invoice_overdue", entity.FollowUpMeta{
		Priority:     entity.PriorityHigh,
		TemplateType: "invoice_overdue",
	}, testNow.Add(-time.Hour))
	orphan.Status = entity.FollowUpStatusScheduled
	f.followUps.items[orphan.ID] = orphan

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}

	stored := f.followUps.get(orphan.ID)
	if stored.Status != entity.FollowUpStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.LastError, "not found") {
		t.Errorf("lastError = %q, want not-found message", stored.LastError)
	}
}

func TestRunOnceTransportFailure(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.sender.failWith = errors.New("503 service unavailable")

	item := f.addItem(invoice, nil)

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Failed != 1 || result.Processed != 0 {
		t.Fatalf("expected transport failure tally, got %+v", result)
	}

	stored := f.followUps.get(item.ID)
	if stored.Status != entity.FollowUpStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", stored.Attempts)
	}

	if len(f.outbox.records) != 1 {
		t.Fatalf("expected 1 outbox record, got %d", len(f.outbox.records))
	}
	record := f.outbox.records[0]
	if record.Status != entity.OutboxStatusFailed {
		t.Errorf("outbox status = %s, want failed", record.Status)
	}
	if !strings.Contains(record.Error, "503") {
		t.Errorf("outbox error = %q, want provider body text", record.Error)
	}

	failedEvents := f.events.byType(entity.EventFollowUpFailed)
	if len(failedEvents) != 1 {
		t.Fatalf("expected 1 followup_failed event, got %d", len(failedEvents))
	}
	if permanent, _ := failedEvents[0].Meta["permanent"].(bool); permanent {
		t.Errorf("5xx transport failure should be transient: %+v", failedEvents[0].Meta)
	}
}

func TestRunOnceRetryBound(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.sender.failWith = errors.New("timeout talking to provider")

	item := f.addItem(invoice, func(i *entity.FollowUpItem) { i.MaxAttempts = 3 })
	d := f.dispatcher()

	// Three failing runs; the external policy reschedules between runs.
	for run := 0; run < 3; run++ {
		if _, err := d.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d returned error: %v", run, err)
		}
		stored := f.followUps.get(item.ID)
		stored.Status = entity.FollowUpStatusScheduled
		stored.ScheduledAt = testNow.Add(-time.Minute)
	}

	stored := f.followUps.get(item.ID)
	if stored.Attempts != 3 {
		t.Fatalf("attempts = %d, want exactly 3", stored.Attempts)
	}

	// A fourth run must refuse to send: the stage's attempts are exhausted.
	if _, err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("fourth run returned error: %v", err)
	}
	stored = f.followUps.get(item.ID)
	if stored.Attempts != 3 {
		t.Errorf("attempts grew past maxAttempts: %d", stored.Attempts)
	}
	if stored.Status != entity.FollowUpStatusStopped {
		t.Errorf("exhausted item status = %s, want stopped", stored.Status)
	}

	if got := len(f.events.byType(entity.EventFollowUpFailed)); got != 3 {
		t.Errorf("expected 3 followup_failed events, got %d", got)
	}
	if got := len(f.events.byType(entity.EventFollowUpSent)); got != 0 {
		t.Errorf("expected 0 followup_sent events, got %d", got)
	}
}

func TestRunOnceExhaustedStageEndsSent(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")

	item := f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.Attempts = 2
		i.MaxAttempts = 3
	})

	if _, err := f.dispatcher().RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	stored := f.followUps.get(item.ID)
	if stored.Status != entity.FollowUpStatusSent {
		t.Errorf("status = %s, want sent (stage exhausted)", stored.Status)
	}
	if stored.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", stored.Attempts)
	}
	if stored.ProcessedAt == nil {
		t.Error("processedAt should be set on terminal state")
	}
}

func TestRunOncePriorityOrdering(t *testing.T) {
	f := newFixture()
	f.addTemplate("invoice_overdue", "fr")

	lowInvoice := f.addOverdueInvoice()
	highInvoice := f.addOverdueInvoice()
	highInvoice.Number = "INV-2025-URGENT"

	f.addItem(lowInvoice, func(i *entity.FollowUpItem) {
		i.Meta.Priority = entity.PriorityLow
		i.ScheduledAt = testNow.Add(-3 * time.Hour)
	})
	f.addItem(highInvoice, func(i *entity.FollowUpItem) {
		i.Meta.Priority = entity.PriorityHigh
		i.ScheduledAt = testNow.Add(-time.Hour)
	})

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 2 || result.HighPriority != 1 || result.LowPriority != 1 {
		t.Fatalf("unexpected tallies: %+v", result)
	}
	if len(f.sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(f.sender.sent))
	}
	if !strings.Contains(f.sender.sent[0].Subject, "URGENT") {
		t.Errorf("high priority item should be dispatched first, first subject %q", f.sender.sent[0].Subject)
	}
}

func TestRunOnceRunLevelError(t *testing.T) {
	f := newFixture()
	f.followUps.failGetDue = errors.New("connection refused")

	_, err := f.dispatcher().RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected run-level error when due query fails")
	}
}

func TestRunOnceDeadlineLeavesItemsUntouched(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	item := f.addItem(invoice, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.dispatcher().RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("cancelled run should touch nothing, got %+v", result)
	}

	stored := f.followUps.get(item.ID)
	if stored.Status != entity.FollowUpStatusScheduled {
		t.Errorf("status = %s, want untouched scheduled", stored.Status)
	}
	if stored.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", stored.Attempts)
	}
}

func TestRunOnceLockedParentSkipped(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	item := f.addItem(invoice, nil)
	f.locker.held[invoice.ID] = true

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("locked parent should be skipped silently, got %+v", result)
	}

	stored := f.followUps.get(item.ID)
	if stored.Status != entity.FollowUpStatusScheduled {
		t.Errorf("status = %s, want untouched scheduled", stored.Status)
	}
}

func TestRunOnceAttachmentFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.addItem(invoice, nil)
	f.documents.attachment = nil // generation fails

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("dispatch must proceed without attachment, got %+v", result)
	}
	if f.documents.calls != 1 {
		t.Errorf("document generator called %d times, want 1", f.documents.calls)
	}
	if len(f.sender.sent[0].Attachments) != 0 {
		t.Errorf("expected no attachments, got %d", len(f.sender.sent[0].Attachments))
	}
}

func TestRunOnceAttachmentIncluded(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.addItem(invoice, nil)
	f.documents.attachment = &adapter.Attachment{
		Filename: "invoice-INV-2025-001.pdf",
		Content:  []byte("%PDF-1.4 test"),
	}

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected processed run, got %+v", result)
	}
	if len(f.sender.sent[0].Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(f.sender.sent[0].Attachments))
	}
	if got := f.outbox.records[0].AttachmentNames; len(got) != 1 || got[0] != "invoice-INV-2025-001.pdf" {
		t.Errorf("outbox attachment names = %v", got)
	}
}

func TestRunOnceOutboxStuckSendingOnCrash(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	f.addTemplate("invoice_overdue", "fr")
	f.addItem(invoice, nil)

	// Simulate a crash between the outbox insert and the post-send update:
	// the send goes out but the status transition is lost.
	f.outbox.failUpdate = errors.New("connection reset")

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("send succeeded, run should count it: %+v", result)
	}

	// The audit trail shows the attempt in sending state, never silently lost.
	if len(f.outbox.records) != 1 {
		t.Fatalf("expected 1 outbox record, got %d", len(f.outbox.records))
	}
	if f.outbox.records[0].Status != entity.OutboxStatusSending {
		t.Errorf("outbox status = %s, want stuck sending", f.outbox.records[0].Status)
	}
}

func TestRunOnceQuoteParentTerminal(t *testing.T) {
	f := newFixture()
	quote := &entity.Quote{
		ID:         uuid.New(),
		OwnerID:    f.owner.ID,
		ClientID:   f.client.ID,
		Number:     "Q-2025-007",
		Status:     entity.QuoteStatusAccepted,
		IssueDate:  testNow.AddDate(0, 0, -15),
		ExpiryDate: testNow.AddDate(0, 0, 15),
		Total:      decimal.NewFromInt(800),
		Currency:   "EUR",
	}
	f.quotes.quotes[quote.ID] = quote

	item := entity.NewFollowUpItem(quote.ID, entity.ParentKindQuote, f.owner.ID, f.client.ID, 1, "quote_no_reply", entity.FollowUpMeta{
		Priority:     entity.PriorityLow,
		TemplateType: "quote_no_reply",
	}, testNow.Add(-time.Hour))
	item.Status = entity.FollowUpStatusPending
	f.followUps.items[item.ID] = item

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 0 || len(f.sender.sent) != 0 {
		t.Fatalf("accepted quote must not be followed up: %+v", result)
	}
	if f.followUps.get(item.ID).Status != entity.FollowUpStatusStopped {
		t.Errorf("status = %s, want stopped", f.followUps.get(item.ID).Status)
	}
}

func TestRunOnceEmbeddedFallbackTemplate(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	// No stored templates at all; the item carries its own content.
	f.addItem(invoice, func(i *entity.FollowUpItem) {
		i.FallbackSubject = "Reminder {number}"
		i.FallbackHTML = "<p>Please settle {number}.</p>"
		i.FallbackText = "Please settle {number}."
	})

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("embedded fallback should dispatch, got %+v", result)
	}
	if f.sender.sent[0].Subject != "Reminder INV-2025-001" {
		t.Errorf("subject = %q", f.sender.sent[0].Subject)
	}
}

func TestRunOnceNoTemplateIsPermanentFailure(t *testing.T) {
	f := newFixture()
	invoice := f.addOverdueInvoice()
	item := f.addItem(invoice, nil) // no stored template, no embedded content

	result, err := f.dispatcher().RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected permanent template failure, got %+v", result)
	}
	stored := f.followUps.get(item.ID)
	if !strings.Contains(stored.LastError, "no template available") {
		t.Errorf("lastError = %q", stored.LastError)
	}
}
