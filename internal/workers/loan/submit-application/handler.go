package submitapplication

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/portal"
	"cashflow-loans/pkg/registry"
)

const (
	TaskType  = "loan.application.submit"
	ConfigKey = "submit-application"
)

// Handler runs the application form submission for a workflow job. Every
// submission error is thrown as a BPMN error; none are retried.
type Handler struct {
	config   *Config
	registry *registry.ProductRegistry
	forms    portal.FormDeps
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, reg *registry.ProductRegistry, forms portal.FormDeps, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if forms.Logger == nil {
		forms.Logger = log
	}
	return &Handler{
		config:   cfg,
		registry: reg,
		forms:    forms,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInputParsingError(err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"leadId": output.LeadID,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute fills a fresh form from input and submits it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	loanType, ok := models.ParseLoanType(input.LoanType)
	if !ok {
		return nil, errors.NewUnknownLoanTypeError(input.LoanType)
	}
	product, ok := h.registry.Get(loanType)
	if !ok {
		return nil, errors.NewUnknownLoanTypeError(input.LoanType)
	}

	form := portal.NewForm(product, string(input.Amount), h.forms)
	values := models.FormState{
		Amount:   string(input.Amount),
		Name:     input.Name,
		Surname:  input.Surname,
		IDNumber: input.IDNumber,
		Phone:    input.Phone,
		Email:    input.Email,
		Terms:    input.Terms,
	}
	if err := form.Fill(values, input.Attachments); err != nil {
		return nil, err
	}

	res, err := form.Submit(ctx)
	if err != nil {
		return nil, err
	}

	return &Output{
		LeadID:   res.Outcome.LeadID,
		Channel:  string(res.Outcome.Channel),
		Fallback: res.Outcome.Fallback,
		Notified: res.Outcome.Notified,
		Message:  res.Message,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
