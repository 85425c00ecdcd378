package calculatequote

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"

	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/metrics"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/quote"
	"cashflow-loans/pkg/registry"
)

const (
	TaskType  = "loan.quote.calculate"
	ConfigKey = "calculate-quote"
)

type Handler struct {
	config   *Config
	engine   *quote.Engine
	registry *registry.ProductRegistry
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, engine *quote.Engine, reg *registry.ProductRegistry, log logger.Logger) *Handler {
	if engine == nil {
		engine = quote.NewEngine()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		engine:   engine,
		registry: reg,
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

	input, err := parseInput(job)
	if err == nil {
		var output *Output
		output, err = h.Execute(ctx, input)
		if err == nil {
			err = h.complete(ctx, client, job, output)
		}
	}
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute quotes input. Unlike the interactive calculator, a non-numeric
// amount is rejected rather than quoted as zero.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	loanType, ok := models.ParseLoanType(input.LoanType)
	if input.LoanType == "" {
		loanType, ok = models.LoanTypeUnsecured, true
	}
	if !ok {
		return nil, errors.NewUnknownLoanTypeError(input.LoanType)
	}
	if _, exists := h.registry.Get(loanType); !exists {
		return nil, errors.NewUnknownLoanTypeError(input.LoanType)
	}

	principal, err := decimal.NewFromString(strings.TrimSpace(input.Amount.String()))
	if err != nil {
		return nil, errors.NewValidationError(map[string]string{"amount": "must be a number"})
	}

	q := h.engine.Quote(principal)
	metrics.QuotesComputed.WithLabelValues(string(loanType)).Inc()

	return &Output{
		LoanType:        string(loanType),
		Principal:       q.Principal.InexactFloat64(),
		RateFlatPercent: q.RateFlatPercent.InexactFloat64(),
		Interest:        q.Interest.InexactFloat64(),
		Total:           q.Total.InexactFloat64(),
		MonthlyPayment:  q.MonthlyPayment.InexactFloat64(),
		TermMonths:      q.TermMonths,
		StartDate:       q.StartDate.Format(models.DateLayout),
		DueDate:         q.DueDate.Format(models.DateLayout),
	}, nil
}

func parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	if input.Amount == "" {
		return nil, errors.NewValidationError(map[string]string{"amount": "is required"})
	}
	return &input, nil
}

func (h *Handler) complete(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
	return nil
}
