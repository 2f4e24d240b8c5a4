package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event subjects published by the service.
const (
	SubjectTransactionRecorded = "bomtrack.transaction.recorded"
	SubjectLowStock            = "bomtrack.component.low_stock"
	SubjectBOMActivated        = "bomtrack.bom.activated"
)

// Publisher emits domain events over NATS JetStream. All publishing is
// best-effort: a missing or unreachable broker degrades to a log line, never
// a failed request.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger
}

// NewPublisher connects to NATS and ensures the event stream exists. Returns
// a disabled publisher (not an error) when url is empty.
func NewPublisher(url string, logger *logrus.Logger) *Publisher {
	p := &Publisher{logger: logger}
	if url == "" {
		logger.Info("NATS URL not configured, event publishing disabled")
		return p
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to NATS, event publishing disabled")
		return p
	}

	js, err := nc.JetStream()
	if err != nil {
		logger.WithError(err).Warn("Failed to get JetStream context, event publishing disabled")
		nc.Close()
		return p
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "BOMTRACK",
		Subjects: []string{"bomtrack.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		logger.WithError(err).Warn("Failed to ensure event stream, event publishing disabled")
		nc.Close()
		return p
	}

	p.nc = nc
	p.js = js
	logger.Info("Connected to NATS for event publishing")
	return p
}

// Enabled reports whether the publisher has a live broker connection.
func (p *Publisher) Enabled() bool {
	return p.js != nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func (p *Publisher) publish(subject string, payload interface{}) {
	if p.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to marshal event")
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// TransactionRecordedEvent announces a new ledger transaction.
type TransactionRecordedEvent struct {
	TenantID      string    `json:"tenantId"`
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	LineCount     int       `json:"lineCount"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func (p *Publisher) PublishTransactionRecorded(evt TransactionRecordedEvent) {
	p.publish(SubjectTransactionRecorded, evt)
}

// LowStockEvent announces a component crossing its reorder threshold.
type LowStockEvent struct {
	TenantID       string    `json:"tenantId"`
	ComponentID    string    `json:"componentId"`
	ComponentCode  string    `json:"componentCode"`
	QuantityOnHand int       `json:"quantityOnHand"`
	ReorderPoint   int       `json:"reorderPoint"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (p *Publisher) PublishLowStock(evt LowStockEvent) {
	p.publish(SubjectLowStock, evt)
}

// BOMActivatedEvent announces a BOM version going active.
type BOMActivatedEvent struct {
	TenantID     string    `json:"tenantId"`
	SKUID        string    `json:"skuId"`
	BOMVersionID string    `json:"bomVersionId"`
	Version      int       `json:"version"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func (p *Publisher) PublishBOMActivated(evt BOMActivatedEvent) {
	p.publish(SubjectBOMActivated, evt)
}
