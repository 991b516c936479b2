package processing

import (
	"context"
	"strings"
	"sync"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/pkg/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ticketTemplate = `MERCADONA, S.A. A-46103834
C/ EJEMPLO 123
28000 MADRID
TELÉFONO: 912345678
01/12/2025 14:30 OP: 123456789
FACTURA SIMPLIFICADA: {invoice}
Descripción P. Unit Importe
1 LECHE ENTERA 0,95
2 PAN DE MOLDE INTEGRAL 1,45 2,90
1 FREGONA 2,00
TOTAL (€) {total}
TARJETA BANCARIA
IVA BASE IMPONIBLE (€) CUOTA (€)
4% 3,70 0,15
21% 1,65 0,35
`

func ticket(invoice string) []byte {
	return ticketWithTotal(invoice, "5,85")
}

func ticketWithTotal(invoice, total string) []byte {
	return []byte(strings.NewReplacer("{invoice}", invoice, "{total}", total).Replace(ticketTemplate))
}

type memorySource struct {
	mu      sync.Mutex
	order   []string
	data    map[string][]byte
	fetches map[string]int
	failing map[string]error
}

func newMemorySource() *memorySource {
	return &memorySource{
		data:    make(map[string][]byte),
		fetches: make(map[string]int),
		failing: make(map[string]error),
	}
}

func (s *memorySource) add(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, id)
	s.data[id] = data
}

func (s *memorySource) List(context.Context) ([]domain.InboundMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.InboundMessage, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.InboundMessage{ID: id, AttachmentName: id + ".pdf"})
	}
	return out, nil
}

func (s *memorySource) Lookup(_ context.Context, id string) (domain.InboundMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return domain.InboundMessage{}, domain.ErrMessageNotFound
	}
	return domain.InboundMessage{ID: id, AttachmentName: id + ".pdf"}, nil
}

func (s *memorySource) Fetch(_ context.Context, msg domain.InboundMessage) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[msg.ID]++
	if err := s.failing[msg.ID]; err != nil {
		return nil, err
	}
	return s.data[msg.ID], nil
}

type textExtractor struct {
	block bool
}

func (e textExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if e.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if strings.HasPrefix(string(data), "%PDF-broken") {
		return "", domain.ErrExtraction
	}
	return string(data), nil
}

type staticCatalog struct {
	catalog *matching.Catalog
	err     error
}

func (c staticCatalog) Snapshot(context.Context) (*matching.Catalog, error) {
	return c.catalog, c.err
}

func testCatalog() staticCatalog {
	cat := uuid.New()
	return staticCatalog{catalog: matching.NewCatalog([]matching.Product{
		{ID: uuid.New(), DisplayName: "Leche entera", UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.95")), CategoryID: &cat},
		{ID: uuid.New(), DisplayName: "Pan de molde integral", UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.45")), CategoryID: &cat},
	})}
}

type recordingArchiver struct {
	mu  sync.Mutex
	ids []string
}

func (a *recordingArchiver) Archive(_ context.Context, msg domain.InboundMessage, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, msg.ID)
	return nil
}

// memoryRepository mirrors the conditional-update semantics of the gorm
// repository.
type memoryRepository struct {
	mu       sync.Mutex
	logs     map[string]*entities.ProcessingLog
	receipts map[string]*entities.Receipt
	commits  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		logs:     make(map[string]*entities.ProcessingLog),
		receipts: make(map[string]*entities.Receipt),
	}
}

func (r *memoryRepository) FindOrCreateLog(_ context.Context, messageID, attachmentName string) (*entities.ProcessingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[messageID]; ok {
		cp := *l
		return &cp, nil
	}
	l := &entities.ProcessingLog{ID: uuid.New(), MessageID: messageID, AttachmentName: attachmentName, Status: string(domain.StatusPending)}
	r.logs[messageID] = l
	cp := *l
	return &cp, nil
}

func (r *memoryRepository) GetLog(_ context.Context, messageID string) (*entities.ProcessingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[messageID]
	if !ok {
		return nil, domain.ErrLogNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memoryRepository) ClaimLog(_ context.Context, messageID string, at time.Time) (*entities.ProcessingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[messageID]
	if !ok || !domain.ProcessingStatus(l.Status).IsClaimable() {
		return nil, domain.ErrLogNotClaimable
	}
	l.Status = string(domain.StatusDownloading)
	l.LastAttemptAt = &at
	cp := *l
	return &cp, nil
}

func (r *memoryRepository) UpdateLog(_ context.Context, messageID string, from domain.ProcessingStatus, u LogUpdate) error {
	if err := domain.ValidateTransition(from, u.Status); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[messageID]
	if !ok || l.Status != string(from) {
		return domain.ErrStaleTransition
	}
	l.Status = string(u.Status)
	l.Attempts = u.Attempts
	l.ErrorStage = u.ErrorStage
	l.ErrorMessage = u.ErrorMessage
	if u.LastAttemptAt != nil {
		l.LastAttemptAt = u.LastAttemptAt
	}
	return nil
}

func (r *memoryRepository) CommitReceipt(_ context.Context, messageID string, _ *entities.Store, receipt *entities.Receipt, at time.Time) (CommitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[messageID]
	if !ok || l.Status != string(domain.StatusSaving) {
		return CommitResult{}, domain.ErrStaleTransition
	}

	out := CommitResult{}
	if existing, dup := r.receipts[receipt.InvoiceNumber]; dup {
		out = CommitResult{ReceiptID: existing.ID, Duplicate: true}
		note := domain.DuplicateNote
		l.ErrorMessage = &note
	} else {
		receipt.ID = uuid.New()
		r.receipts[receipt.InvoiceNumber] = receipt
		r.commits++
		out = CommitResult{ReceiptID: receipt.ID}
		l.ErrorMessage = nil
	}
	l.Status = string(domain.StatusCompleted)
	l.ReceiptID = &out.ReceiptID
	l.CompletedAt = &at
	l.ErrorStage = nil
	return out, nil
}

func (r *memoryRepository) ListLogs(_ context.Context, status string, offset, limit int) ([]*entities.ProcessingLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ProcessingLog
	for _, l := range r.logs {
		if status == "" || l.Status == status {
			cp := *l
			out = append(out, &cp)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *memoryRepository) ListMessageIDs(_ context.Context, status domain.ProcessingStatus) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, l := range r.logs {
		if l.Status == string(status) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepository) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for _, l := range r.logs {
		out[l.Status]++
	}
	return out, nil
}

func (r *memoryRepository) log(id string) entities.ProcessingLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.logs[id]
}
