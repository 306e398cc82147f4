package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/application/usecase/render"
	"github.com/facturio/backend/internal/domain/entity"
	domainerror "github.com/facturio/backend/internal/domain/error"
)

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// RunResult aggregates the outcome of one dispatch run.
type RunResult struct {
	Processed      int
	HighPriority   int
	MediumPriority int
	LowPriority    int
	Failed         int
}

// Config holds dispatcher tuning.
type Config struct {
	PageSize    int
	ResendDelay time.Duration
	Clock       Clock
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		ResendDelay: 24 * time.Hour,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatcher scans due follow-up items and sends them. It is the only
// writer of follow-up state; everything else it touches is read-only or
// append-only.
type Dispatcher struct {
	followUps    adapter.FollowUpRepository
	invoices     adapter.InvoiceRepository
	quotes       adapter.QuoteRepository
	clients      adapter.ClientRepository
	users        adapter.UserRepository
	templates    *render.Resolver
	outbox       adapter.OutboxRepository
	events       adapter.EventRepository
	sender       adapter.EmailSender
	documents    adapter.DocumentGenerator
	entitlements adapter.EntitlementService
	locker       adapter.ParentLocker
	links        adapter.LinkService
	polisher     adapter.MessagePolisher
	pageSize     int
	resendDelay  time.Duration
	now          Clock
}

// Deps bundles the collaborators of the dispatcher. Documents, Locker and
// Polisher are optional; nil disables the corresponding step.
type Deps struct {
	FollowUps    adapter.FollowUpRepository
	Invoices     adapter.InvoiceRepository
	Quotes       adapter.QuoteRepository
	Clients      adapter.ClientRepository
	Users        adapter.UserRepository
	Templates    *render.Resolver
	Outbox       adapter.OutboxRepository
	Events       adapter.EventRepository
	Sender       adapter.EmailSender
	Documents    adapter.DocumentGenerator
	Entitlements adapter.EntitlementService
	Locker       adapter.ParentLocker
	Links        adapter.LinkService
	Polisher     adapter.MessagePolisher
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(deps Deps, config Config) *Dispatcher {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.ResendDelay <= 0 {
		config.ResendDelay = DefaultConfig().ResendDelay
	}
	if config.Clock == nil {
		config.Clock = DefaultConfig().Clock
	}
	return &Dispatcher{
		followUps:    deps.FollowUps,
		invoices:     deps.Invoices,
		quotes:       deps.Quotes,
		clients:      deps.Clients,
		users:        deps.Users,
		templates:    deps.Templates,
		outbox:       deps.Outbox,
		events:       deps.Events,
		sender:       deps.Sender,
		documents:    deps.Documents,
		entitlements: deps.Entitlements,
		locker:       deps.Locker,
		links:        deps.Links,
		polisher:     deps.Polisher,
		pageSize:     config.PageSize,
		resendDelay:  config.ResendDelay,
		now:          config.Clock,
	}
}

// outcome is the per-item processing result.
type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// RunOnce executes one dispatch pass: query due items, dispatch at most one
// follow-up per parent, and return aggregate counts. Per-item errors are
// absorbed into the failed count; only run-level errors (the due query
// itself failing) propagate.
func (d *Dispatcher) RunOnce(ctx context.Context) (RunResult, error) {
	var result RunResult

	items, err := d.followUps.GetDueItems(ctx, d.now(), d.pageSize)
	if err != nil {
		return result, domainerror.NewTransientError(domainerror.ErrCodeRunQueryFailed, "failed to query due follow-ups", err)
	}

	slog.Debug("Dispatch run started", "due_items", len(items))

	processedParents := make(map[uuid.UUID]struct{})

	for _, item := range items {
		select {
		case <-ctx.Done():
			// Items not reached before the run deadline stay untouched
			// and surface again on the next run.
			slog.Warn("Dispatch run deadline reached", "remaining_items_untouched", true)
			return result, nil
		default:
		}

		if _, done := processedParents[item.ParentID]; done {
			continue
		}

		switch d.processOne(ctx, item) {
		case outcomeSent:
			processedParents[item.ParentID] = struct{}{}
			result.Processed++
			switch item.Meta.Priority {
			case entity.PriorityHigh:
				result.HighPriority++
			case entity.PriorityMedium:
				result.MediumPriority++
			default:
				result.LowPriority++
			}
		case outcomeSkipped:
			processedParents[item.ParentID] = struct{}{}
		case outcomeFailed:
			result.Failed++
		}
	}

	slog.Info("Dispatch run finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"high", result.HighPriority,
		"medium", result.MediumPriority,
		"low", result.LowPriority,
	)

	return result, nil
}

// processOne drives the full pipeline for a single item. All errors are
// caught here so one bad item never aborts the run.
func (d *Dispatcher) processOne(ctx context.Context, item *entity.FollowUpItem) outcome {
	logger := slog.With(
		"followup_id", item.ID,
		"parent_id", item.ParentID,
		"parent_kind", item.ParentKind,
		"stage", item.Stage,
	)

	if d.locker != nil {
		release, acquired, err := d.locker.TryAcquire(ctx, item.ParentID)
		if err != nil {
			logger.Error("Parent lock unavailable", "error", err)
			return d.fail(ctx, logger, item, nil, err)
		}
		if !acquired {
			// Another scheduler owns this parent; the item stays due and
			// the next run picks it up.
			logger.Debug("Parent locked by another scheduler, skipping")
			return outcomeSkipped
		}
		defer release()
	}

	// Optimistic claim: only one run may move the item into sending.
	if err := d.followUps.ClaimForSending(ctx, item.ID); err != nil {
		if errors.Is(err, domainerror.ErrItemNotClaimed) {
			logger.Debug("Item no longer due, skipping")
			return outcomeSkipped
		}
		return d.fail(ctx, logger, item, nil, err)
	}
	item.Status = entity.FollowUpStatusSending

	// An external policy may reschedule a failed item; once the stage's
	// attempts are exhausted it must never send again.
	if !item.CanRetry() {
		item.MarkStopped(d.now(), "max attempts exhausted")
		if err := d.followUps.Update(ctx, item); err != nil {
			logger.Error("Failed to stop exhausted follow-up", "error", err)
		}
		logger.Info("Follow-up attempts exhausted, stopped")
		return outcomeSkipped
	}

	parent, err := d.loadParent(ctx, item)
	if err != nil {
		return d.fail(ctx, logger, item, nil, err)
	}

	if parent.terminal {
		stopped, err := d.followUps.StopAllForParent(ctx, item.ParentID, "parent reached terminal state: "+parent.status, d.now())
		if err != nil {
			return d.fail(ctx, logger, item, nil, err)
		}
		logger.Info("Parent in terminal state, follow-ups stopped", "status", parent.status, "stopped", stopped)
		return outcomeSkipped
	}

	if item.Meta.Automated {
		allowed, err := d.entitlements.AllowsAutomatedSends(ctx, item.OwnerID)
		if err != nil {
			return d.fail(ctx, logger, item, nil, err)
		}
		if !allowed {
			item.MarkStopped(d.now(), domainerror.ErrNotEntitled.Error())
			if err := d.followUps.Update(ctx, item); err != nil {
				logger.Error("Failed to stop non-entitled follow-up", "error", err)
			}
			logger.Info("Owner not entitled to automated sends, follow-up stopped")
			return outcomeSkipped
		}
	}

	client, err := d.clients.GetByID(ctx, item.ClientID)
	if err != nil {
		return d.fail(ctx, logger, item, nil, err)
	}
	if !client.HasEmail() {
		return d.fail(ctx, logger, item, nil, domainerror.ErrClientEmailMissing)
	}

	owner, err := d.users.GetByID(ctx, item.OwnerID)
	if err != nil {
		return d.fail(ctx, logger, item, nil, err)
	}

	resolved, err := d.templates.Resolve(ctx, item, client.Language)
	if err != nil {
		return d.fail(ctx, logger, item, nil, err)
	}

	link := ""
	if d.links != nil {
		link, err = d.links.CustomerLink(item.ParentKind, item.ParentID, client.ID)
		if err != nil {
			// Degraded message without a deep link beats no message.
			logger.Warn("Failed to build customer link", "error", err)
			link = ""
		}
	}

	vars := render.BuildVariables(render.VariableInput{
		Number:      parent.number,
		ClientName:  client.Name,
		Language:    client.Language,
		Amount:      parent.total,
		Currency:    parent.currency,
		IssueDate:   parent.issueDate,
		DueDate:     parent.dueDate,
		Link:        link,
		SenderName:  owner.SenderName(),
		Description: parent.description,
	}, d.now())

	subject := render.RenderVariables(resolved.Subject, vars)
	html := render.RenderVariables(resolved.HTML, vars)
	text := render.RenderVariables(resolved.Text, vars)

	if d.polisher != nil && text != "" {
		if polished, err := d.polisher.PolishOpening(ctx, text, client.Language); err == nil && polished != "" {
			text = polished
		} else if err != nil {
			logger.Debug("Opening-line polish unavailable", "error", err)
		}
	}

	var attachments []adapter.Attachment
	if d.documents != nil {
		if att := d.documents.TryGenerate(ctx, documentInput(item, parent, client, owner)); att != nil {
			attachments = append(attachments, *att)
		} else {
			logger.Debug("Document attachment unavailable, sending without it")
		}
	}

	attachmentNames := make([]string, 0, len(attachments))
	for _, a := range attachments {
		attachmentNames = append(attachmentNames, a.Filename)
	}

	record := entity.NewOutboxRecord(item.ID, client.Email, subject, html, text, attachmentNames, d.now())
	if err := d.outbox.Create(ctx, record); err != nil {
		return d.fail(ctx, logger, item, nil, err)
	}

	sendResult, err := d.sender.Send(ctx, adapter.SendEmailInput{
		To:          client.Email,
		Name:        client.Name,
		Subject:     subject,
		HTML:        html,
		Text:        text,
		Attachments: attachments,
	})
	if err != nil {
		return d.fail(ctx, logger, item, record, err)
	}

	record.MarkSent(sendResult.ProviderMessageID, d.now())
	if err := d.outbox.Update(ctx, record); err != nil {
		// The send happened; the audit trail is degraded, not the dispatch.
		logger.Error("Failed to mark outbox record as sent", "error", err, "outbox_id", record.ID)
	}

	item.MarkSent(d.now(), d.resendDelay)
	if err := d.followUps.Update(ctx, item); err != nil {
		logger.Error("Failed to update follow-up after send", "error", err)
	}

	d.appendEvent(ctx, logger, item, entity.EventFollowUpSent, map[string]interface{}{
		"stage":               item.Stage,
		"attempts":            item.Attempts,
		"priority":            string(item.Meta.Priority),
		"automated":           item.Meta.Automated,
		"template_source":     string(resolved.Source),
		"provider_message_id": sendResult.ProviderMessageID,
	})

	logger.Info("Follow-up sent",
		"provider_message_id", sendResult.ProviderMessageID,
		"attempts", item.Attempts,
		"status", item.Status,
	)

	return outcomeSent
}

// fail drives the shared failure branch: outbox bookkeeping, attempts
// increment, failed status and a followup_failed event.
func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, item *entity.FollowUpItem, record *entity.OutboxRecord, cause error) outcome {
	classified := classifyError(cause)

	if record != nil {
		record.MarkFailed(classified)
		if err := d.outbox.Update(ctx, record); err != nil {
			logger.Error("Failed to mark outbox record as failed", "error", err, "outbox_id", record.ID)
		}
	} else if classified != nil {
		// No record was written yet for this attempt; keep the audit trail
		// complete with a failed entry.
		failedRecord := entity.NewOutboxRecord(item.ID, "", "", "", "", nil, d.now())
		failedRecord.MarkFailed(classified)
		if err := d.outbox.Create(ctx, failedRecord); err != nil {
			logger.Error("Failed to record failed attempt in outbox", "error", err)
		}
	}

	item.MarkFailed(d.now(), classified)
	if err := d.followUps.Update(ctx, item); err != nil {
		logger.Error("Failed to update follow-up after failure", "error", err)
	}

	d.appendEvent(ctx, logger, item, entity.EventFollowUpFailed, map[string]interface{}{
		"stage":     item.Stage,
		"attempts":  item.Attempts,
		"error":     classified.Error(),
		"code":      string(classified.Code),
		"permanent": classified.Permanent,
	})

	if classified.Permanent {
		logger.Warn("Follow-up permanently failed", "error", classified, "code", classified.Code)
	} else {
		logger.Warn("Follow-up failed",
			"error", classified,
			"code", classified.Code,
			"attempts", item.Attempts,
			"max_attempts", item.MaxAttempts,
		)
	}

	return outcomeFailed
}

// appendEvent is fire-and-forget: event logging failure never rolls back a
// completed send.
func (d *Dispatcher) appendEvent(ctx context.Context, logger *slog.Logger, item *entity.FollowUpItem, eventType entity.EventType, meta map[string]interface{}) {
	event := entity.NewEvent(item.ParentID, item.OwnerID, eventType, meta, d.now())
	if err := d.events.Append(ctx, event); err != nil {
		logger.Error("Failed to append lifecycle event", "error", err, "event_type", eventType)
	}
}

// parentView is the slice of an invoice or quote the pipeline needs.
type parentView struct {
	terminal    bool
	status      string
	number      string
	issueDate   time.Time
	dueDate     time.Time
	total       decimal.Decimal
	currency    string
	description string
	lines       []entity.InvoiceLine
	clientID    uuid.UUID
}

// loadParent fetches the parent entity and projects the fields the
// pipeline needs, independent of kind.
func (d *Dispatcher) loadParent(ctx context.Context, item *entity.FollowUpItem) (*parentView, error) {
	switch item.ParentKind {
	case entity.ParentKindQuote:
		quote, err := d.quotes.GetByID(ctx, item.ParentID)
		if err != nil {
			return nil, err
		}
		return &parentView{
			terminal:    quote.Status.IsTerminal(),
			status:      string(quote.Status),
			number:      quote.Number,
			issueDate:   quote.IssueDate,
			dueDate:     quote.ExpiryDate,
			total:       quote.Total,
			currency:    quote.Currency,
			description: quote.Description,
			lines:       quote.Lines,
			clientID:    quote.ClientID,
		}, nil
	default:
		invoice, err := d.invoices.GetByID(ctx, item.ParentID)
		if err != nil {
			return nil, err
		}
		return &parentView{
			terminal:    invoice.Status.IsTerminal(),
			status:      string(invoice.Status),
			number:      invoice.Number,
			issueDate:   invoice.IssueDate,
			dueDate:     invoice.DueDate,
			total:       invoice.Total,
			currency:    invoice.Currency,
			description: invoice.Description,
			lines:       invoice.Lines,
			clientID:    invoice.ClientID,
		}, nil
	}
}

func documentInput(item *entity.FollowUpItem, parent *parentView, client *entity.Client, owner *entity.User) adapter.DocumentInput {
	return adapter.DocumentInput{
		Kind:          item.ParentKind,
		Number:        parent.number,
		IssueDate:     parent.issueDate,
		DueDate:       parent.dueDate,
		Total:         parent.total,
		Currency:      parent.currency,
		Description:   parent.description,
		Lines:         parent.lines,
		ClientName:    client.Name,
		ClientAddress: client.Address,
		ClientCity:    client.City,
		ClientZip:     client.ZipCode,
		ClientCountry: client.Country,
		SenderName:    owner.SenderName(),
		Language:      client.Language,
	}
}
