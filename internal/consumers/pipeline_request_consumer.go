package consumers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"tradecouncil/internal/metrics"
	"tradecouncil/internal/pipeline"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
	"tradecouncil/pkg/reconnect"
)

const (
	defaultRunTimeout = 5 * time.Minute
	commitTimeout     = 5 * time.Second
)

// MessageReader is the part of kafka.Consumer the pipeline consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	Commit(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// PipelineRunner runs pipeline requests
type PipelineRunner interface {
	RunFullPipeline(ctx context.Context, subject string, opts pipeline.Options) (*pipeline.Result, error)
	RunAnalystsOnly(ctx context.Context, subject string) (*pipeline.AnalystsResult, error)
}

// PipelineRequest is the JSON body of a pipeline.requests message
type PipelineRequest struct {
	SubjectID       string           `json:"subjectId"`
	Mode            string           `json:"mode"` // full (default), analysts
	IncludeDebate   bool             `json:"includeDebate"`
	IncludeProposal bool             `json:"includeProposal"`
	CurrentPrice    *float64         `json:"currentPrice,omitempty"`
	AccountSize     *decimal.Decimal `json:"accountSize,omitempty"`
	CurrentPnL      *decimal.Decimal `json:"currentPnl,omitempty"`
	VIXLevel        *float64         `json:"vixLevel,omitempty"`
}

// Options converts the request into orchestrator options
func (r PipelineRequest) Options() pipeline.Options {
	return pipeline.Options{
		IncludeDebate:   r.IncludeDebate,
		IncludeProposal: r.IncludeProposal,
		CurrentPrice:    r.CurrentPrice,
		VIXLevel:        r.VIXLevel,
		AccountSize:     r.AccountSize,
		CurrentPnL:      r.CurrentPnL,
	}
}

// ParsePipelineRequest decodes and validates one message body
func ParsePipelineRequest(data []byte) (PipelineRequest, error) {
	var req PipelineRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, errors.Wrap(errors.ErrInvalidInput, "decode pipeline request: "+err.Error())
	}

	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.SubjectID == "" {
		return req, errors.NewValidationError("subjectId", "subject is required", nil)
	}

	switch req.Mode {
	case "":
		req.Mode = pipeline.ModeFull
	case pipeline.ModeFull, pipeline.ModeAnalysts:
	default:
		return req, errors.NewValidationError("mode", "must be full or analysts", req.Mode)
	}
	return req, nil
}

// PipelineRequestConsumer runs the pipeline for every request message.
// Offsets are committed after handling, including for requests that
// cannot be parsed or whose run fails; failed runs are not retried.
type PipelineRequestConsumer struct {
	reader     MessageReader
	runner     PipelineRunner
	log        *logger.Logger
	runTimeout time.Duration
	backoff    *reconnect.Manager
}

func NewPipelineRequestConsumer(reader MessageReader, runner PipelineRunner, runTimeout time.Duration, log *logger.Logger) *PipelineRequestConsumer {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	log = log.With("component", "pipeline_request_consumer")
	return &PipelineRequestConsumer{
		reader:     reader,
		runner:     runner,
		log:        log,
		runTimeout: runTimeout,
		backoff: reconnect.NewManager(reconnect.Config{
			MinBackoff: time.Second,
			MaxBackoff: 30 * time.Second,
			MaxRetries: 10,
			Jitter:     0.2,
		}, log),
	}
}

// Start consumes until ctx is cancelled. The message in hand when ctx is
// cancelled is still processed and committed.
func (c *PipelineRequestConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting pipeline request consumer...")

	defer func() {
		c.log.Info("Closing pipeline request consumer...")
		if err := c.reader.Close(); err != nil {
			c.log.Errorw("Failed to close pipeline request consumer", "error", err)
		} else {
			c.log.Info("✓ Pipeline request consumer closed")
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Pipeline request consumer stopping (context cancelled)")
				return nil
			}
			c.log.Warnw("Failed to fetch pipeline request", "error", err)
			if c.backoff.Wait(ctx) != nil {
				return nil
			}
			continue
		}
		c.backoff.RecordSuccess()

		// Detached from ctx so shutdown lets the current run finish
		runCtx, cancel := context.WithTimeout(context.Background(), c.runTimeout)
		err = c.handleMessage(runCtx, msg)
		cancel()
		metrics.RecordKafkaMessage(msg.Topic, err)

		commitCtx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		if cerr := c.reader.Commit(commitCtx, msg); cerr != nil {
			c.log.Errorw("Failed to commit pipeline request",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", cerr,
			)
		}
		cancel()

		if ctx.Err() != nil {
			c.log.Info("Pipeline request consumer stopping after processing current message")
			return nil
		}
	}
}

func (c *PipelineRequestConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	req, err := ParsePipelineRequest(msg.Value)
	if err != nil {
		c.log.Notice(ctx, errors.LevelWarning, "Dropping malformed pipeline request", map[string]string{
			errors.TagComponent: "pipeline_request_consumer",
			"topic":             msg.Topic,
			"partition":         strconv.Itoa(msg.Partition),
			"offset":            strconv.FormatInt(msg.Offset, 10),
			"reason":            err.Error(),
		})
		return err
	}

	log := c.log.With("subject", req.SubjectID, "mode", req.Mode)
	log.Debugw("Processing pipeline request", "offset", msg.Offset)

	if req.Mode == pipeline.ModeAnalysts {
		res, err := c.runner.RunAnalystsOnly(ctx, req.SubjectID)
		if err != nil {
			c.logFailure(log, err)
			return err
		}
		log.Infow("Analysts request handled", "latency_ms", res.LatencyMs)
		return nil
	}

	res, err := c.runner.RunFullPipeline(ctx, req.SubjectID, req.Options())
	if err != nil {
		c.logFailure(log, err)
		return err
	}
	log.Infow("Pipeline request handled",
		"run_id", res.RunID,
		"action", res.Overall.Action,
		"latency_ms", res.LatencyMs,
	)
	return nil
}

func (c *PipelineRequestConsumer) logFailure(log *logger.Logger, err error) {
	var perr *errors.PipelineError
	if errors.As(err, &perr) {
		log.Warnw("Pipeline request failed", "stage", perr.Stage, "user_message", perr.UserMessage(), "error", err)
		return
	}
	log.Warnw("Pipeline request failed", "error", err)
}
