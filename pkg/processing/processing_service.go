package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/utils"
	"mercagasto/pkg/matching"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
)

const maxErrorMessage = 1000

type (
	MessageSource interface {
		List(ctx context.Context) ([]domain.InboundMessage, error)
		Lookup(ctx context.Context, messageID string) (domain.InboundMessage, error)
		Fetch(ctx context.Context, msg domain.InboundMessage) ([]byte, error)
	}

	Extractor interface {
		Extract(ctx context.Context, data []byte) (string, error)
	}

	Parser interface {
		Parse(text string) (*domain.ParsedReceipt, error)
	}

	CatalogProvider interface {
		Snapshot(ctx context.Context) (*matching.Catalog, error)
	}

	// Archiver keeps a copy of attachments that completed successfully.
	Archiver interface {
		Archive(ctx context.Context, msg domain.InboundMessage, data []byte) error
	}

	Config struct {
		MaxRetries   int
		Workers      int
		StageTimeout time.Duration
	}

	ProcessingService interface {
		Process(ctx context.Context, source MessageSource, msg domain.InboundMessage) (domain.ProcessResult, error)
		RunBatch(ctx context.Context, source MessageSource) (domain.BatchSummary, error)
		RetryBatch(ctx context.Context, source MessageSource) (domain.BatchSummary, error)
		ListLogs(ctx context.Context, req domain.ListProcessingLogsRequest) (domain.ListProcessingLogsResponse, error)
	}

	processingService struct {
		repo      ProcessingRepository
		extractor Extractor
		parser    Parser
		engine    *matching.Engine
		catalog   CatalogProvider
		archiver  Archiver
		validate  *validator.Validate
		cfg       Config
		now       func() time.Time
	}

	messageRun struct {
		msg     domain.InboundMessage
		entry   *entities.ProcessingLog
		source  MessageSource
		catalog *matching.Catalog
		data    []byte
		text    string
		parsed  *domain.ParsedReceipt
		result  domain.ProcessResult
	}

	stage struct {
		status domain.ProcessingStatus
		kind   domain.ErrorKind
		run    func(ctx context.Context, r *messageRun) error
	}
)

func NewProcessingService(
	repo ProcessingRepository,
	extractor Extractor,
	parser Parser,
	engine *matching.Engine,
	catalog CatalogProvider,
	archiver Archiver,
	cfg Config,
) ProcessingService {
	utils.InitValidator()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = time.Minute
	}
	return &processingService{
		repo:      repo,
		extractor: extractor,
		parser:    parser,
		engine:    engine,
		catalog:   catalog,
		archiver:  archiver,
		validate:  utils.Validate,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *processingService) Process(ctx context.Context, source MessageSource, msg domain.InboundMessage) (domain.ProcessResult, error) {
	return s.process(ctx, source, msg, s.snapshot(ctx), false)
}

func (s *processingService) RunBatch(ctx context.Context, source MessageSource) (domain.BatchSummary, error) {
	msgs, err := source.List(ctx)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("list messages: %w", err)
	}
	log.Infow("batch started", "messages", len(msgs), "workers", s.cfg.Workers)
	return s.runMessages(ctx, source, msgs, false), nil
}

// RetryBatch re-runs every entry parked in retry. It is the only path that
// takes a retry entry back into the stages.
func (s *processingService) RetryBatch(ctx context.Context, source MessageSource) (domain.BatchSummary, error) {
	ids, err := s.repo.ListMessageIDs(ctx, domain.StatusRetry)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("list retry entries: %w", err)
	}

	var lookupErrs []string
	msgs := make([]domain.InboundMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := source.Lookup(ctx, id)
		if err != nil {
			log.Warnw("retry entry not found in source", "message_id", id, "error", err)
			lookupErrs = append(lookupErrs, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		msgs = append(msgs, msg)
	}
	log.Infow("retry batch started", "entries", len(ids), "resolved", len(msgs))

	summary := s.runMessages(ctx, source, msgs, true)
	summary.Found = len(ids)
	summary.Errors = append(lookupErrs, summary.Errors...)
	return summary, nil
}

func (s *processingService) runMessages(ctx context.Context, source MessageSource, msgs []domain.InboundMessage, allowRetry bool) domain.BatchSummary {
	summary := domain.BatchSummary{Found: len(msgs)}
	catalog := s.snapshot(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		msg := msg
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// a started message runs to the end even if the batch is cancelled
			res, err := s.process(context.WithoutCancel(ctx), source, msg, catalog, allowRetry)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Errorw("message processing error", "message_id", msg.ID, "error", err)
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", msg.ID, err))
				return nil
			}
			summary.Add(res)
			return nil
		})
	}
	_ = g.Wait()

	summary.Cancelled = ctx.Err() != nil
	log.Infow("batch finished",
		"completed", summary.Completed,
		"duplicates", summary.Duplicates,
		"retry", summary.Retry,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
		"cancelled", summary.Cancelled,
	)
	return summary
}

func (s *processingService) snapshot(ctx context.Context) *matching.Catalog {
	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		log.Warnw("catalog snapshot unavailable, items will stay unmatched", "error", err)
		return matching.NewCatalog(nil)
	}
	if catalog.Len() == 0 {
		log.Warnw("catalog snapshot is empty, items will stay unmatched")
	}
	return catalog
}

func (s *processingService) process(ctx context.Context, source MessageSource, msg domain.InboundMessage, catalog *matching.Catalog, allowRetry bool) (domain.ProcessResult, error) {
	result := domain.ProcessResult{MessageID: msg.ID}

	entry, err := s.repo.FindOrCreateLog(ctx, msg.ID, msg.AttachmentName)
	if err != nil {
		return result, fmt.Errorf("load log entry: %w", err)
	}
	status := domain.ProcessingStatus(entry.Status)
	if reason, skip := skipReason(status, allowRetry); skip {
		log.Debugw("message skipped", "message_id", msg.ID, "status", status, "reason", reason)
		return skipped(result, entry), nil
	}

	entry, err = s.repo.ClaimLog(ctx, msg.ID, s.now())
	if errors.Is(err, domain.ErrLogNotClaimable) {
		current, getErr := s.repo.GetLog(ctx, msg.ID)
		if getErr != nil {
			return result, fmt.Errorf("reload log entry: %w", getErr)
		}
		log.Debugw("message claimed by another worker", "message_id", msg.ID)
		return skipped(result, current), nil
	}
	if err != nil {
		return result, fmt.Errorf("claim log entry: %w", err)
	}

	run := &messageRun{
		msg:     msg,
		entry:   entry,
		source:  source,
		catalog: catalog,
		result:  result,
	}
	for _, st := range s.stages() {
		if err := s.runStage(ctx, st, run); err != nil {
			return s.fail(ctx, run, err)
		}
		if st.status == domain.StatusSaving {
			break
		}
		if err := s.advance(ctx, run, st.status); err != nil {
			return s.fail(ctx, run, domain.NewStageError(st.status, domain.KindPersistence, err))
		}
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, msg, run.data); err != nil {
			log.Warnw("archive attachment failed", "message_id", msg.ID, "error", err)
		}
	}
	return run.result, nil
}

func skipReason(status domain.ProcessingStatus, allowRetry bool) (string, bool) {
	switch {
	case status == domain.StatusCompleted:
		return "already completed", true
	case status == domain.StatusFailed:
		return "retry budget exhausted", true
	case status == domain.StatusRetry && !allowRetry:
		return "waiting for retry run", true
	case status.IsStage():
		return "in progress", true
	}
	return "", false
}

func skipped(result domain.ProcessResult, entry *entities.ProcessingLog) domain.ProcessResult {
	result.Outcome = domain.OutcomeSkipped
	result.Status = domain.ProcessingStatus(entry.Status)
	result.Attempts = entry.Attempts
	if entry.ReceiptID != nil {
		result.ReceiptID = entry.ReceiptID.String()
	}
	return result
}

func (s *processingService) stages() []stage {
	return []stage{
		{domain.StatusDownloading, domain.KindDownload, s.download},
		{domain.StatusExtracting, domain.KindExtraction, s.extract},
		{domain.StatusParsing, domain.KindParse, s.parse},
		{domain.StatusValidating, domain.KindValidation, s.validateReceipt},
		{domain.StatusSaving, domain.KindPersistence, s.save},
	}
}

// runStage bounds one stage by the stage timeout. Work that ignores its
// context is abandoned once the deadline passes.
func (s *processingService) runStage(ctx context.Context, st stage, run *messageRun) error {
	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- st.run(stageCtx, run)
	}()

	var err error
	select {
	case err = <-done:
	case <-stageCtx.Done():
		err = stageCtx.Err()
	}
	if err == nil {
		return nil
	}

	var serr *domain.StageError
	if errors.As(err, &serr) {
		return serr
	}
	kind := st.kind
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.KindTimeout
		err = fmt.Errorf("stage exceeded %s: %w", s.cfg.StageTimeout, err)
	}
	return domain.NewStageError(st.status, kind, err)
}

func (s *processingService) advance(ctx context.Context, run *messageRun, from domain.ProcessingStatus) error {
	next, ok := from.Next()
	if !ok {
		return fmt.Errorf("%w: no successor for %s", domain.ErrInvalidTransition, from)
	}
	err := s.repo.UpdateLog(ctx, run.msg.ID, from, LogUpdate{
		Status:        next,
		Attempts:      run.entry.Attempts,
		LastAttemptAt: run.entry.LastAttemptAt,
	})
	if err != nil {
		return err
	}
	run.entry.Status = string(next)
	run.entry.ErrorStage = nil
	run.entry.ErrorMessage = nil
	return nil
}

func (s *processingService) fail(ctx context.Context, run *messageRun, err error) (domain.ProcessResult, error) {
	var serr *domain.StageError
	if !errors.As(err, &serr) {
		serr = domain.NewStageError(domain.ProcessingStatus(run.entry.Status), domain.KindPersistence, err)
	}

	attempts := run.entry.Attempts + 1
	next := domain.StatusAfterFailure(attempts, s.cfg.MaxRetries)
	stageName := string(serr.Stage)
	message := truncate(serr.Err.Error(), maxErrorMessage)
	now := s.now()

	updateErr := s.repo.UpdateLog(ctx, run.msg.ID, serr.Stage, LogUpdate{
		Status:        next,
		Attempts:      attempts,
		ErrorStage:    &stageName,
		ErrorMessage:  &message,
		LastAttemptAt: &now,
	})
	res := domain.ProcessResult{MessageID: run.msg.ID}
	if updateErr != nil {
		return res, fmt.Errorf("record %s failure (%v): %w", stageName, serr, updateErr)
	}

	res.Status = next
	res.Attempts = attempts
	res.ErrorStage = stageName
	res.Error = message
	if next == domain.StatusFailed {
		res.Outcome = domain.OutcomeFailed
		log.Errorw("message failed permanently", "message_id", run.msg.ID, "stage", stageName, "kind", serr.Kind, "attempts", attempts, "error", message)
	} else {
		res.Outcome = domain.OutcomeRetry
		log.Warnw("message parked for retry", "message_id", run.msg.ID, "stage", stageName, "kind", serr.Kind, "attempts", attempts, "error", message)
	}
	return res, nil
}

func (s *processingService) download(ctx context.Context, run *messageRun) error {
	data, err := run.source.Fetch(ctx, run.msg)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return domain.ErrEmptyAttachment
	}
	run.data = data
	return nil
}

func (s *processingService) extract(ctx context.Context, run *messageRun) error {
	text, err := s.extractor.Extract(ctx, run.data)
	if err != nil {
		return err
	}
	run.text = text
	return nil
}

func (s *processingService) parse(_ context.Context, run *messageRun) error {
	parsed, err := s.parser.Parse(run.text)
	if err != nil {
		return err
	}
	run.parsed = parsed
	return nil
}

func (s *processingService) validateReceipt(_ context.Context, run *messageRun) error {
	return ValidateReceipt(s.validate, run.parsed)
}

func (s *processingService) save(ctx context.Context, run *messageRun) error {
	if err := domain.ValidateTransition(domain.StatusSaving, domain.StatusCompleted); err != nil {
		return err
	}

	items := make([]matching.Item, len(run.parsed.Items))
	for i, raw := range run.parsed.Items {
		items[i] = matching.ItemFromRaw(raw)
	}
	matches := s.engine.MatchAll(items, run.catalog)
	store, receipt := BuildReceipt(run.parsed, matches)

	committed, err := s.repo.CommitReceipt(ctx, run.msg.ID, store, receipt, s.now())
	if err != nil {
		return err
	}

	res := run.result
	res.Status = domain.StatusCompleted
	res.Attempts = run.entry.Attempts
	res.ReceiptID = committed.ReceiptID.String()
	if committed.Duplicate {
		res.Outcome = domain.OutcomeDuplicate
		log.Infow("duplicate invoice linked to stored receipt", "message_id", run.msg.ID, "invoice", receipt.InvoiceNumber, "receipt_id", res.ReceiptID)
		run.result = res
		return nil
	}

	res.Outcome = domain.OutcomeCompleted
	for _, m := range matches {
		if m.Matched() {
			res.Matched++
		} else {
			res.Unmatched++
		}
	}
	res.Degraded = len(matches) > 0 && res.Matched == 0
	if res.Degraded {
		log.Warnw("matching degraded, no item resolved", "message_id", run.msg.ID, "items", len(matches), "catalog_size", run.catalog.Len())
	}
	log.Infow("message completed", "message_id", run.msg.ID, "invoice", receipt.InvoiceNumber, "items", len(matches), "matched", res.Matched)
	run.result = res
	return nil
}

func (s *processingService) ListLogs(ctx context.Context, req domain.ListProcessingLogsRequest) (domain.ListProcessingLogsResponse, error) {
	req.Normalize()
	if req.Status != "" {
		if _, err := domain.ParseProcessingStatus(req.Status); err != nil {
			return domain.ListProcessingLogsResponse{}, err
		}
	}
	logs, total, err := s.repo.ListLogs(ctx, req.Status, req.Offset(), req.Limit)
	if err != nil {
		return domain.ListProcessingLogsResponse{}, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return domain.ListProcessingLogsResponse{}, err
	}

	out := domain.ListProcessingLogsResponse{
		Logs:        make([]domain.ProcessingLogResponse, 0, len(logs)),
		StatusCount: counts,
		PaginationResponse: domain.PaginationResponse{
			Page:  req.Page,
			Limit: req.Limit,
			Total: total,
		},
	}
	for _, l := range logs {
		out.Logs = append(out.Logs, toLogResponse(l))
	}
	return out, nil
}

func toLogResponse(l *entities.ProcessingLog) domain.ProcessingLogResponse {
	resp := domain.ProcessingLogResponse{
		ID:             l.ID.String(),
		MessageID:      l.MessageID,
		AttachmentName: l.AttachmentName,
		Status:         l.Status,
		Attempts:       l.Attempts,
		LastAttemptAt:  l.LastAttemptAt,
		CompletedAt:    l.CompletedAt,
	}
	if l.ErrorStage != nil {
		resp.ErrorStage = *l.ErrorStage
	}
	if l.ErrorMessage != nil {
		resp.ErrorMessage = *l.ErrorMessage
	}
	if l.ReceiptID != nil {
		resp.ReceiptID = l.ReceiptID.String()
	}
	return resp
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
