// Package submission sends a built application to the CRM and falls back to
// the local store when the CRM cannot be reached.
package submission

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cashflow-loans/internal/common/crm"
	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/common/observability"
	"cashflow-loans/internal/fallback"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/notify"
)

const notifyTimeout = 10 * time.Second

// CRM is the subset of *crm.Client the service needs.
type CRM interface {
	CreateClient(ctx context.Context, record *models.ApplicationRecord) (*crm.Response, error)
}

// Submitter is what the form and the job workers depend on.
type Submitter interface {
	Submit(ctx context.Context, rec *models.ApplicationRecord) (*models.SubmissionOutcome, error)
}

type Service struct {
	crm      CRM
	store    fallback.Store
	notifier notify.Notifier
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(client CRM, store fallback.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		crm:      client,
		store:    store,
		notifier: notify.Nop{},
		logger:   log.WithFields(map[string]interface{}{"component": "submission"}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit makes exactly one CRM call and at most one fallback append.
//
// A 2xx answer is a CRM success. A non-2xx answer is CRM_REMOTE_REJECTED and is
// never saved locally. A transport failure saves a pending-upload copy and
// succeeds with the local-storage channel; if that save fails too the result
// is CRM_TRANSPORT_FAILURE wrapping the original transport error.
func (s *Service) Submit(ctx context.Context, rec *models.ApplicationRecord) (*models.SubmissionOutcome, error) {
	ctx, span := observability.StartSpan(ctx, "submission.Submit",
		attribute.String("lead.id", rec.ID),
		attribute.String("lead.type", rec.LoanType),
	)
	defer span.End()
	start := s.now()

	resp, err := s.crm.CreateClient(ctx, rec)
	if err == nil {
		out := &models.SubmissionOutcome{Channel: models.ChannelCRM, LeadID: rec.ID, Remote: resp.Body}
		if out.Remote == nil {
			out.Remote = map[string]interface{}{"id": rec.ID, "loanAmount": rec.LoanAmount}
		}
		if id, ok := out.Remote["id"].(string); ok && id != "" {
			out.LeadID = id
		}
		s.logger.Info("Lead submitted to CRM", map[string]interface{}{
			"leadId":     out.LeadID,
			"statusCode": resp.StatusCode,
		})
		s.record(ctx, "crm", start)
		span.SetAttributes(attribute.String("lead.channel", string(out.Channel)))
		return out, nil
	}

	var remote *crm.RemoteError
	if stderrors.As(err, &remote) {
		s.logger.Warn("CRM rejected lead", map[string]interface{}{
			"leadId":     rec.ID,
			"statusCode": remote.StatusCode,
			"body":       remote.Body,
		})
		s.record(ctx, "rejected", start)
		span.SetStatus(codes.Error, "crm rejected")
		return nil, errors.NewRemoteRejectedError(remote.StatusCode, remote.Body)
	}

	var transport *crm.TransportError
	if !stderrors.As(err, &transport) {
		s.record(ctx, "failed", start)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.NewInternalError(err)
	}

	s.logger.Warn("CRM unreachable, saving lead locally", map[string]interface{}{
		"leadId": rec.ID,
		"error":  err,
	})

	local := models.NewFallbackRecord(*rec, s.now().UTC().Format(models.TimestampLayout))
	if storeErr := s.store.Append(ctx, local); storeErr != nil {
		persistErr := errors.NewLocalPersistenceError(storeErr)
		s.logger.Error("Local fallback write failed", map[string]interface{}{
			"leadId":  rec.ID,
			"backend": s.store.Backend(),
			"code":    string(persistErr.Code),
			"error":   persistErr,
		})
		s.record(ctx, "failed", start)
		span.SetStatus(codes.Error, "fallback failed")

		// The caller sees the transport failure; the persistence code rides along.
		transportErr := errors.NewTransportFailureError(err)
		transportErr.Metadata = map[string]interface{}{"fallback": string(persistErr.Code)}
		return nil, transportErr
	}

	out := &models.SubmissionOutcome{
		Channel:  models.ChannelLocalStorage,
		LeadID:   rec.ID,
		Fallback: string(models.ChannelLocalStorage),
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if nErr := s.notifier.LeadSavedLocally(notifyCtx, local); nErr != nil {
		s.logger.Warn("Lead notification failed", map[string]interface{}{"leadId": rec.ID, "error": nErr})
	} else if _, isNop := s.notifier.(notify.Nop); !isNop {
		out.Notified = true
	}

	s.record(ctx, "local-storage", start)
	span.SetAttributes(attribute.String("lead.channel", string(out.Channel)))
	return out, nil
}

func (s *Service) record(ctx context.Context, outcome string, start time.Time) {
	metrics.Submissions.WithLabelValues(outcome).Inc()
	if s.obs != nil {
		s.obs.RecordSubmission(ctx, outcome, s.now().Sub(start))
	}
}
