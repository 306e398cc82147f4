package steps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturio/backend/internal/domain/entity"
	"github.com/facturio/backend/internal/integration/persistence/model"
)

func registerFixtureSteps(ctx *godog.ScenarioContext) {
	ctx.Given(`^the API server is running$`, theAPIServerIsRunning)
	ctx.Given(`^an account owner "([^"]*)" on the "([^"]*)" plan$`, anAccountOwnerOnThePlan)
	ctx.Given(`^a client "([^"]*)" with email "([^"]*)" and language "([^"]*)"$`, aClientWithEmailAndLanguage)
	ctx.Given(`^a client "([^"]*)" without an email address$`, aClientWithoutAnEmailAddress)
	ctx.Given(`^an active "([^"]*)" template in "([^"]*)"$`, anActiveTemplateIn)
	ctx.Given(`^an invoice "([^"]*)" with status "([^"]*)" for "([^"]*)"$`, anInvoiceWithStatusFor)
	ctx.Given(`^a quote "([^"]*)" with status "([^"]*)" for "([^"]*)"$`, aQuoteWithStatusFor)
	ctx.Given(`^a due follow-up for "([^"]*)" with priority "([^"]*)"$`, aDueFollowUpForWithPriority)
	ctx.Given(`^a due automated follow-up for "([^"]*)"$`, aDueAutomatedFollowUpFor)
	ctx.Given(`^a follow-up for "([^"]*)" scheduled in the future$`, aFollowUpForScheduledInTheFuture)
	ctx.Given(`^the email provider is failing with "([^"]*)"$`, theEmailProviderIsFailingWith)
}

func registerTriggerSteps(ctx *godog.ScenarioContext) {
	ctx.When(`^I trigger a dispatch run$`, iTriggerADispatchRun)
	ctx.When(`^I trigger a dispatch run without a token$`, iTriggerADispatchRunWithoutAToken)
	ctx.When(`^I trigger a dispatch run with token "([^"]*)"$`, iTriggerADispatchRunWithToken)
}

func registerAssertionSteps(ctx *godog.ScenarioContext) {
	ctx.Then(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Then(`^the response field "([^"]*)" should be "([^"]*)"$`, theResponseFieldShouldBe)
	ctx.Then(`^(\d+) emails? should have been sent$`, emailsShouldHaveBeenSent)
	ctx.Then(`^no email should have been sent$`, noEmailShouldHaveBeenSent)
	ctx.Then(`^the email should be addressed to "([^"]*)"$`, theEmailShouldBeAddressedTo)
	ctx.Then(`^the email subject should contain "([^"]*)"$`, theEmailSubjectShouldContain)
	ctx.Then(`^the follow-up for "([^"]*)" should have status "([^"]*)" and attempts (\d+)$`, theFollowUpShouldHaveStatusAndAttempts)
	ctx.Then(`^every follow-up for "([^"]*)" should have status "([^"]*)"$`, everyFollowUpShouldHaveStatus)
	ctx.Then(`^an outbox record with status "([^"]*)" should exist$`, anOutboxRecordWithStatusShouldExist)
	ctx.Then(`^a "([^"]*)" event should be recorded$`, anEventShouldBeRecorded)
}

// Fixture steps

func theAPIServerIsRunning(ctx context.Context) error {
	tc := GetTestContext(ctx)
	if tc == nil || tc.server == nil {
		return errors.New("test server is not running")
	}
	return nil
}

func anAccountOwnerOnThePlan(ctx context.Context, userEmail, plan string) error {
	tc := GetTestContext(ctx)

	user := &model.UserModel{
		ID:                 uuid.New(),
		Email:              userEmail,
		DisplayName:        "Jeanne Martin",
		CompanyName:        "Atelier Martin",
		Plan:               plan,
		SubscriptionStatus: "active",
		CreatedAt:          tc.clock.Now(),
	}
	if err := tc.db.Conn.Create(user).Error; err != nil {
		return err
	}
	tc.ownerID = user.ID
	return nil
}

func aClientWithEmailAndLanguage(ctx context.Context, name, clientEmail, language string) error {
	tc := GetTestContext(ctx)

	client := &model.ClientModel{
		ID:        uuid.New(),
		OwnerID:   tc.ownerID,
		Name:      name,
		Email:     clientEmail,
		Language:  language,
		CreatedAt: tc.clock.Now(),
	}
	if err := tc.db.Conn.Create(client).Error; err != nil {
		return err
	}
	tc.clientIDs[name] = client.ID
	return nil
}

func aClientWithoutAnEmailAddress(ctx context.Context, name string) error {
	return aClientWithEmailAndLanguage(ctx, name, "", "fr")
}

func anActiveTemplateIn(ctx context.Context, templateType, language string) error {
	tc := GetTestContext(ctx)

	template := &model.ReminderTemplateModel{
		ID:        uuid.New(),
		OwnerID:   tc.ownerID,
		Type:      templateType,
		Language:  language,
		Subject:   "Rappel {number}",
		HTMLBody:  "<p>Bonjour {client_name}, le document {number} de {amount} attend votre retour. {link}</p>",
		TextBody:  "Bonjour {client_name}, le document {number} attend votre retour.",
		IsActive:  true,
		CreatedAt: tc.clock.Now(),
		UpdatedAt: tc.clock.Now(),
	}
	return tc.db.Conn.Create(template).Error
}

func anInvoiceWithStatusFor(ctx context.Context, number, status, clientName string) error {
	tc := GetTestContext(ctx)
	clientID, ok := tc.clientIDs[clientName]
	if !ok {
		return fmt.Errorf("unknown client %q", clientName)
	}

	invoice := &model.InvoiceModel{
		ID:        uuid.New(),
		OwnerID:   tc.ownerID,
		ClientID:  clientID,
		Number:    number,
		Status:    status,
		IssueDate: tc.clock.Now().AddDate(0, 0, -40),
		DueDate:   tc.clock.Now().AddDate(0, 0, -10),
		Total:     decimal.NewFromFloat(1234.56),
		Currency:  "EUR",
		Lines:     "[]",
		CreatedAt: tc.clock.Now(),
	}
	if err := tc.db.Conn.Create(invoice).Error; err != nil {
		return err
	}
	tc.parentIDs[number] = invoice.ID
	tc.parentClients[number] = clientID
	return nil
}

func aQuoteWithStatusFor(ctx context.Context, number, status, clientName string) error {
	tc := GetTestContext(ctx)
	clientID, ok := tc.clientIDs[clientName]
	if !ok {
		return fmt.Errorf("unknown client %q", clientName)
	}

	quote := &model.QuoteModel{
		ID:         uuid.New(),
		OwnerID:    tc.ownerID,
		ClientID:   clientID,
		Number:     number,
		Status:     status,
		IssueDate:  tc.clock.Now().AddDate(0, 0, -15),
		ExpiryDate: tc.clock.Now().AddDate(0, 0, 15),
		Total:      decimal.NewFromInt(800),
		Currency:   "EUR",
		Lines:      "[]",
		CreatedAt:  tc.clock.Now(),
	}
	if err := tc.db.Conn.Create(quote).Error; err != nil {
		return err
	}
	tc.parentIDs[number] = quote.ID
	tc.parentClients[number] = clientID
	return nil
}

func seedFollowUp(tc *TestContext, parentNumber, priority string, automated bool, scheduledAt time.Time) error {
	parentID, ok := tc.parentIDs[parentNumber]
	if !ok {
		return fmt.Errorf("unknown parent %q", parentNumber)
	}

	kind := entity.ParentKindInvoice
	templateType := "invoice_overdue"
	if strings.HasPrefix(parentNumber, "Q-") {
		kind = entity.ParentKindQuote
		templateType = "quote_no_reply"
	}

	clientID := tc.parentClients[parentNumber]

	item := entity.NewFollowUpItem(parentID, kind, tc.ownerID, clientID, 1, templateType, entity.FollowUpMeta{
		Priority:     entity.Priority(priority),
		Automated:    automated,
		TemplateType: templateType,
	}, scheduledAt)
	item.Status = entity.FollowUpStatusScheduled

	return tc.db.Conn.Create(model.FollowUpModelFromEntity(item)).Error
}

func aDueFollowUpForWithPriority(ctx context.Context, parentNumber, priority string) error {
	tc := GetTestContext(ctx)
	return seedFollowUp(tc, parentNumber, priority, false, tc.clock.Now().Add(-time.Hour))
}

func aDueAutomatedFollowUpFor(ctx context.Context, parentNumber string) error {
	tc := GetTestContext(ctx)
	return seedFollowUp(tc, parentNumber, "medium", true, tc.clock.Now().Add(-time.Hour))
}

func aFollowUpForScheduledInTheFuture(ctx context.Context, parentNumber string) error {
	tc := GetTestContext(ctx)
	return seedFollowUp(tc, parentNumber, "medium", false, tc.clock.Now().Add(48*time.Hour))
}

func theEmailProviderIsFailingWith(ctx context.Context, message string) error {
	tc := GetTestContext(ctx)
	tc.sender.SetFailure(errors.New(message))
	return nil
}

// Trigger steps

func iTriggerADispatchRun(ctx context.Context) error {
	tc := GetTestContext(ctx)
	tc.requestHeaders["X-Trigger-Token"] = testTriggerToken
	return tc.post("/internal/followups/dispatch")
}

func iTriggerADispatchRunWithoutAToken(ctx context.Context) error {
	tc := GetTestContext(ctx)
	delete(tc.requestHeaders, "X-Trigger-Token")
	return tc.post("/internal/followups/dispatch")
}

func iTriggerADispatchRunWithToken(ctx context.Context, token string) error {
	tc := GetTestContext(ctx)
	tc.requestHeaders["X-Trigger-Token"] = token
	return tc.post("/internal/followups/dispatch")
}

// Assertion steps

func theResponseStatusShouldBe(ctx context.Context, expected int) error {
	tc := GetTestContext(ctx)
	if tc.responseStatus != expected {
		return fmt.Errorf("expected status %d, got %d (body: %s)", expected, tc.responseStatus, tc.responseBody)
	}
	return nil
}

func theResponseFieldShouldBe(ctx context.Context, path, expected string) error {
	tc := GetTestContext(ctx)
	value, err := tc.jsonField(path)
	if err != nil {
		return err
	}

	var actual string
	switch v := value.(type) {
	case string:
		actual = v
	case bool:
		actual = strconv.FormatBool(v)
	case float64:
		actual = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		actual = fmt.Sprintf("%v", v)
	}

	if actual != expected {
		return fmt.Errorf("field %q = %q, want %q (body: %s)", path, actual, expected, tc.responseBody)
	}
	return nil
}

func emailsShouldHaveBeenSent(ctx context.Context, count int) error {
	tc := GetTestContext(ctx)
	if len(tc.sender.SentEmails) != count {
		return fmt.Errorf("expected %d emails, got %d", count, len(tc.sender.SentEmails))
	}
	return nil
}

func noEmailShouldHaveBeenSent(ctx context.Context) error {
	return emailsShouldHaveBeenSent(ctx, 0)
}

func theEmailShouldBeAddressedTo(ctx context.Context, address string) error {
	tc := GetTestContext(ctx)
	if len(tc.sender.SentEmails) == 0 {
		return errors.New("no email was sent")
	}
	if got := tc.sender.SentEmails[0].To; got != address {
		return fmt.Errorf("email addressed to %q, want %q", got, address)
	}
	return nil
}

func theEmailSubjectShouldContain(ctx context.Context, fragment string) error {
	tc := GetTestContext(ctx)
	if len(tc.sender.SentEmails) == 0 {
		return errors.New("no email was sent")
	}
	if subject := tc.sender.SentEmails[0].Subject; !strings.Contains(subject, fragment) {
		return fmt.Errorf("subject %q does not contain %q", subject, fragment)
	}
	return nil
}

func theFollowUpShouldHaveStatusAndAttempts(ctx context.Context, parentNumber, status string, attempts int) error {
	tc := GetTestContext(ctx)
	parentID, ok := tc.parentIDs[parentNumber]
	if !ok {
		return fmt.Errorf("unknown parent %q", parentNumber)
	}

	var row model.FollowUpModel
	if err := tc.db.Conn.Where("parent_id = ?", parentID).First(&row).Error; err != nil {
		return fmt.Errorf("follow-up for %q not found: %w", parentNumber, err)
	}
	if row.Status != status {
		return fmt.Errorf("follow-up status = %q, want %q (last error: %q)", row.Status, status, row.LastError)
	}
	if row.Attempts != attempts {
		return fmt.Errorf("follow-up attempts = %d, want %d", row.Attempts, attempts)
	}
	return nil
}

func everyFollowUpShouldHaveStatus(ctx context.Context, parentNumber, status string) error {
	tc := GetTestContext(ctx)
	parentID, ok := tc.parentIDs[parentNumber]
	if !ok {
		return fmt.Errorf("unknown parent %q", parentNumber)
	}

	var rows []model.FollowUpModel
	if err := tc.db.Conn.Where("parent_id = ?", parentID).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no follow-ups found for %q", parentNumber)
	}
	for _, row := range rows {
		if row.Status != status {
			return fmt.Errorf("follow-up %s status = %q, want %q", row.ID, row.Status, status)
		}
	}
	return nil
}

func anOutboxRecordWithStatusShouldExist(ctx context.Context, status string) error {
	tc := GetTestContext(ctx)

	var count int64
	if err := tc.db.Conn.Model(&model.OutboxModel{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no outbox record with status %q", status)
	}
	return nil
}

func anEventShouldBeRecorded(ctx context.Context, eventType string) error {
	tc := GetTestContext(ctx)

	var count int64
	if err := tc.db.Conn.Model(&model.EventModel{}).Where("type = ?", eventType).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no %q event recorded", eventType)
	}
	return nil
}
