package command

import (
	"context"
	"errors"

	"github.com/acadhub/transcript-hub/internal/domain/shared"
	"github.com/acadhub/transcript-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS BATCH COMMAND
// Drives document-at-a-time processing over a collection of documents.
// Documents are independent once the idempotency guard is respected; a fatal
// environment error (store unreachable) stops the run, anything else costs
// only its own document.
// ══════════════════════════════════════════════════════════════════════════════

// BatchDocument is one document in a batch.
type BatchDocument struct {
	Source string
	Pages  []string
}

// ProcessBatchCommand contains the documents to process, in order.
type ProcessBatchCommand struct {
	Documents []BatchDocument
}

// Validate validates the command.
func (c ProcessBatchCommand) Validate() error {
	if len(c.Documents) == 0 {
		return errors.New("process_batch: no documents to process")
	}
	return nil
}

// ProcessBatchResult summarizes a batch run.
type ProcessBatchResult struct {
	Outcomes  []*ProcessDocumentResult
	Processed int
	Skipped   int
	Failed    int

	// Aborted is set when a fatal store error stopped the run before all
	// documents were attempted.
	Aborted bool
}

// ProcessBatchHandler handles the ProcessBatchCommand.
type ProcessBatchHandler struct {
	documents *ProcessDocumentHandler
	logger    *logger.Logger
}

// NewProcessBatchHandler creates a new batch handler.
func NewProcessBatchHandler(documents *ProcessDocumentHandler, log *logger.Logger) *ProcessBatchHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ProcessBatchHandler{
		documents: documents,
		logger:    log.With(logger.Component("process_batch")),
	}
}

// Handle processes the batch sequentially. The returned error is non-nil only
// when the run was aborted by an environment-level failure.
func (h *ProcessBatchHandler) Handle(ctx context.Context, cmd ProcessBatchCommand) (*ProcessBatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res := &ProcessBatchResult{}
	h.logger.Info("batch started", logger.Int("documents", len(cmd.Documents)))

	for _, doc := range cmd.Documents {
		outcome, err := h.documents.Handle(ctx, ProcessDocumentCommand{
			Pages:  doc.Pages,
			Source: doc.Source,
		})
		if outcome != nil {
			res.Outcomes = append(res.Outcomes, outcome)
			switch outcome.Status {
			case StatusProcessed:
				res.Processed++
			case StatusSkippedDuplicate:
				res.Skipped++
			case StatusFailed:
				res.Failed++
			}
		}
		if err != nil && shared.IsUnavailable(err) {
			res.Aborted = true
			h.logger.Error("batch aborted: store unavailable", logger.Err(err))
			return res, err
		}
	}

	h.logger.Info("batch finished",
		logger.Int("processed", res.Processed),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed))
	return res, nil
}
