package domain

import (
	"errors"
	"fmt"
	"time"
)

// ProcessingStatus is the lifecycle state of one inbound message.
type ProcessingStatus string

const (
	StatusPending     ProcessingStatus = "pending"
	StatusDownloading ProcessingStatus = "downloading"
	StatusExtracting  ProcessingStatus = "extracting"
	StatusParsing     ProcessingStatus = "parsing"
	StatusValidating  ProcessingStatus = "validating"
	StatusSaving      ProcessingStatus = "saving"
	StatusCompleted   ProcessingStatus = "completed"
	StatusFailed      ProcessingStatus = "failed"
	StatusRetry       ProcessingStatus = "retry"
)

// Stages lists the working states in execution order.
var Stages = []ProcessingStatus{
	StatusDownloading,
	StatusExtracting,
	StatusParsing,
	StatusValidating,
	StatusSaving,
}

var transitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:     {StatusDownloading, StatusRetry, StatusFailed},
	StatusRetry:       {StatusDownloading, StatusRetry, StatusFailed},
	StatusDownloading: {StatusExtracting, StatusRetry, StatusFailed},
	StatusExtracting:  {StatusParsing, StatusRetry, StatusFailed},
	StatusParsing:     {StatusValidating, StatusRetry, StatusFailed},
	StatusValidating:  {StatusSaving, StatusRetry, StatusFailed},
	StatusSaving:      {StatusCompleted, StatusRetry, StatusFailed},
	StatusCompleted:   {},
	StatusFailed:      {},
}

func ParseProcessingStatus(s string) (ProcessingStatus, error) {
	st := ProcessingStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// IsClaimable reports whether a worker may take the message from this state.
func (s ProcessingStatus) IsClaimable() bool {
	return s == StatusPending || s == StatusRetry
}

func (s ProcessingStatus) IsStage() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

func (s ProcessingStatus) CanTransition(to ProcessingStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the status following a successful stage.
func (s ProcessingStatus) Next() (ProcessingStatus, bool) {
	if len(transitions[s]) == 0 {
		return "", false
	}
	return transitions[s][0], true
}

func ValidateTransition(from, to ProcessingStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// StatusAfterFailure returns retry while the budget lasts, failed otherwise.
func StatusAfterFailure(attempts, maxRetries int) ProcessingStatus {
	if attempts < maxRetries {
		return StatusRetry
	}
	return StatusFailed
}

type ErrorKind string

const (
	KindDownload    ErrorKind = "download"
	KindExtraction  ErrorKind = "extraction"
	KindParse       ErrorKind = "parse"
	KindValidation  ErrorKind = "validation"
	KindPersistence ErrorKind = "persistence"
	KindTimeout     ErrorKind = "timeout"
)

// StageError is a failure attributed to one stage of the pipeline.
type StageError struct {
	Stage ProcessingStatus
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage ProcessingStatus, kind ErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

var (
	MessageSuccessGetProcessingLogs = "processing logs retrieved successfully"
	MessageSuccessRetryBatch        = "retry batch finished"
	MessageFailedGetProcessingLogs  = "failed to retrieve processing logs"
	MessageFailedRetryBatch         = "failed to run retry batch"

	ErrLogNotFound       = errors.New("processing log not found")
	ErrLogNotClaimable   = errors.New("processing log is not claimable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleTransition   = errors.New("processing log changed by another worker")
	ErrUnknownStatus     = errors.New("unknown processing status")
	ErrExtraction        = errors.New("attachment text extraction failed")
	ErrEmptyAttachment   = errors.New("attachment is empty")
	ErrMessageNotFound   = errors.New("message not found in source")
	ErrNoSource          = errors.New("no message source configured")
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// DuplicateNote is stored on a log entry completed against an existing receipt.
const DuplicateNote = "duplicate"

type (
	InboundMessage struct {
		ID             string `json:"id"`
		AttachmentName string `json:"attachment_name"`
	}

	ProcessResult struct {
		MessageID  string           `json:"message_id"`
		Outcome    Outcome          `json:"outcome"`
		Status     ProcessingStatus `json:"status"`
		Attempts   int              `json:"attempts"`
		ReceiptID  string           `json:"receipt_id,omitempty"`
		ErrorStage string           `json:"error_stage,omitempty"`
		Error      string           `json:"error,omitempty"`
		Matched    int              `json:"matched"`
		Unmatched  int              `json:"unmatched"`
		Degraded   bool             `json:"degraded"`
	}

	BatchSummary struct {
		Found      int             `json:"found"`
		Completed  int             `json:"completed"`
		Duplicates int             `json:"duplicates"`
		Retry      int             `json:"retry"`
		Failed     int             `json:"failed"`
		Skipped    int             `json:"skipped"`
		Errors     []string        `json:"errors,omitempty"`
		Results    []ProcessResult `json:"results"`
		Cancelled  bool            `json:"cancelled"`
	}

	ListProcessingLogsRequest struct {
		Status string `query:"status" validate:"omitempty,oneof=pending downloading extracting parsing validating saving completed failed retry"`
		PaginationRequest
	}

	ProcessingLogResponse struct {
		ID             string     `json:"id"`
		MessageID      string     `json:"message_id"`
		AttachmentName string     `json:"attachment_name"`
		Status         string     `json:"status"`
		Attempts       int        `json:"attempts"`
		LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
		ErrorStage     string     `json:"error_stage,omitempty"`
		ErrorMessage   string     `json:"error_message,omitempty"`
		ReceiptID      string     `json:"receipt_id,omitempty"`
		CompletedAt    *time.Time `json:"completed_at,omitempty"`
	}

	ListProcessingLogsResponse struct {
		Logs        []ProcessingLogResponse `json:"logs"`
		StatusCount map[string]int64        `json:"status_count"`
		PaginationResponse
	}
)

func (b *BatchSummary) Add(r ProcessResult) {
	b.Results = append(b.Results, r)
	switch r.Outcome {
	case OutcomeCompleted:
		b.Completed++
	case OutcomeDuplicate:
		b.Duplicates++
	case OutcomeRetry:
		b.Retry++
	case OutcomeFailed:
		b.Failed++
	case OutcomeSkipped:
		b.Skipped++
	}
}
