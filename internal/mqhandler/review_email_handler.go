// Package mqhandler holds the worker-side consumers of the events exchange.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	contracts "recruitflow/contracts/mq"
	"recruitflow/internal/mailer"
	"recruitflow/internal/model"
	"recruitflow/internal/repository"
	"recruitflow/pkg/circuitbreaker"
	"recruitflow/pkg/logger"
	"recruitflow/pkg/metrics"
	"recruitflow/pkg/mq"
	"recruitflow/pkg/util"
)

const handlerName = "review_email"

// ReviewEmailHandler turns milestone.* events into applicant email.
//
// Deliveries are deduplicated per progress row and routing key so MQ
// redeliveries do not double-send. Poison messages are given up after the
// retry budget and parked in the dead letter queue by the caller.
type ReviewEmailHandler struct {
	mailer       mailer.Mailer
	breaker      *circuitbreaker.CircuitBreaker
	deduper      *util.Deduper
	retryCounter *util.RetryCounter
	maxRetries   int64
	log          repository.NotificationLogStore
	dlq          *mq.Publisher
	logger       *zap.Logger
}

func NewReviewEmailHandler(
	m mailer.Mailer,
	breaker *circuitbreaker.CircuitBreaker,
	deduper *util.Deduper,
	retryCounter *util.RetryCounter,
	maxRetries int64,
	log repository.NotificationLogStore,
	dlq *mq.Publisher,
	zlog *zap.Logger,
) *ReviewEmailHandler {
	return &ReviewEmailHandler{
		mailer:       m,
		breaker:      breaker,
		deduper:      deduper,
		retryCounter: retryCounter,
		maxRetries:   maxRetries,
		log:          log,
		dlq:          dlq,
		logger:       zlog,
	}
}

// Handle processes one review outcome event. Returning an error requeues the
// delivery; returning nil acks it.
func (h *ReviewEmailHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload contracts.ReviewOutcomePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Dropping undecodable review event", zap.Error(err))
		// Malformed payloads never succeed on retry.
		return nil
	}

	zlog := logger.WithTrace(ctx, h.logger).With(
		zap.Int64("progress_id", payload.ProgressID),
		zap.String("decision", payload.Decision),
	)

	routingKey := contracts.RoutingKeyForDecision(payload.Decision)
	if routingKey == "" {
		zlog.Error("Dropping review event with unknown decision")
		return nil
	}

	dedupID := payload.ProgressID
	if !h.deduper.AcquireOnce(ctx, handlerName+":"+routingKey, dedupID) {
		return nil
	}

	subject, body := composeEmail(&payload)

	sendErr := h.breaker.Execute(func() error {
		return h.mailer.Send(payload.ApplicantEmail, subject, body)
	})

	if sendErr != nil {
		metrics.IncrementNotification(routingKey, model.NotificationFailed)
		h.recordAttempt(ctx, &payload, routingKey, model.NotificationFailed, sendErr)

		retryable, errType := util.IsRetryableError(sendErr)
		if sendErr == circuitbreaker.ErrCircuitBreakerOpen {
			retryable = true
			errType = "circuit_open"
		}

		retryKey := util.FormatRetryKey(handlerName, payload.ProgressID)
		count, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
		if cntErr != nil {
			zlog.Warn("Retry counter unavailable", zap.Error(cntErr))
		}

		if !util.ShouldRetry(count, h.maxRetries, retryable) {
			zlog.Error("Giving up on review notification",
				zap.String("error_type", errType),
				zap.Int64("attempts", count),
				zap.Error(sendErr),
			)
			// Ack so the message stops cycling; the DLQ keeps the body.
			h.parkInDLQ(routingKey, data, sendErr)
			return nil
		}

		// Free the dedup lock so the redelivery is not skipped.
		h.deduper.Release(ctx, handlerName+":"+routingKey, dedupID)

		return fmt.Errorf("failed to send review email: %w", sendErr)
	}

	metrics.IncrementNotification(routingKey, model.NotificationSent)
	h.recordAttempt(ctx, &payload, routingKey, model.NotificationSent, nil)

	retryKey := util.FormatRetryKey(handlerName, payload.ProgressID)
	if err := h.retryCounter.Reset(ctx, retryKey); err != nil {
		zlog.Debug("Failed to reset retry counter", zap.Error(err))
	}

	zlog.Info("Review notification delivered",
		zap.String("recipient", payload.ApplicantEmail),
	)

	return nil
}

func (h *ReviewEmailHandler) parkInDLQ(routingKey string, data json.RawMessage, cause error) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(routingKey, data, cause.Error()); err != nil {
		h.logger.Error("Failed to park message in DLQ",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (h *ReviewEmailHandler) recordAttempt(ctx context.Context, payload *contracts.ReviewOutcomePayload, event, status string, sendErr error) {
	entry := &model.NotificationLog{
		ProgressID: payload.ProgressID,
		Event:      event,
		Recipient:  payload.ApplicantEmail,
		Status:     status,
	}
	if sendErr != nil {
		detail := sendErr.Error()
		entry.Detail = &detail
	}

	if err := h.log.Insert(ctx, entry); err != nil {
		h.logger.Warn("Failed to record notification attempt",
			zap.Int64("progress_id", payload.ProgressID),
			zap.Error(err),
		)
	}
}

func composeEmail(p *contracts.ReviewOutcomePayload) (subject, body string) {
	switch p.Decision {
	case "APPROVED":
		subject = fmt.Sprintf("Milestone approved: %s", p.MilestoneName)
		body = fmt.Sprintf("Hi %s,\n\nYour milestone %q for %q was approved.", p.ApplicantName, p.MilestoneName, p.CallTitle)
		if p.UnlockedNext != "" {
			body += fmt.Sprintf("\n\nNext up: %s.", p.UnlockedNext)
		}
	case "REJECTED":
		subject = fmt.Sprintf("Application update: %s", p.CallTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour milestone %q for %q was not approved and your application will not proceed.", p.ApplicantName, p.MilestoneName, p.CallTitle)
		if p.ReviewNotes != "" {
			body += fmt.Sprintf("\n\nReviewer notes: %s", p.ReviewNotes)
		}
	case "NEEDS_CHANGES":
		subject = fmt.Sprintf("Changes requested: %s", p.MilestoneName)
		body = fmt.Sprintf("Hi %s,\n\nYour milestone %q for %q needs changes before it can be approved.", p.ApplicantName, p.MilestoneName, p.CallTitle)
		if p.ReviewNotes != "" {
			body += fmt.Sprintf("\n\nReviewer notes: %s", p.ReviewNotes)
		}
	}

	body += "\n\nRecruitFlow"
	return subject, body
}
