// Package audit records completed policy evaluations to a decision log.
// Logging is asynchronous: a bounded queue feeds a background writer,
// and a full queue drops events rather than blocking evaluation.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// DecisionEvent is one decision-log record
type DecisionEvent struct {
	EventID          string    `json:"eventId"`
	Timestamp        time.Time `json:"timestamp"`
	ResourceType     string    `json:"resourceType"`
	ResourceID       string    `json:"resourceId,omitempty"`
	Action           string    `json:"action"`
	UserID           string    `json:"userId"`
	TenantKey        string    `json:"tenantKey,omitempty"`
	ClientIP         string    `json:"clientIp,omitempty"`
	Decision         string    `json:"decision"`
	PolicyKey        string    `json:"policyKey,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	CacheHit         bool      `json:"cacheHit,omitempty"`
	EvaluationTimeMs int64     `json:"evaluationTimeMs"`
}

// Writer persists decision events
type Writer interface {
	Write(event interface{}) error
	Close() error
}

// Logger is the asynchronous decision logger
type Logger struct {
	writer Writer
	logger *zap.Logger
	queue  chan *DecisionEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Config configures the decision logger
type Config struct {
	QueueSize int
}

// DefaultConfig returns the default decision-log configuration
func DefaultConfig() Config {
	return Config{QueueSize: 1024}
}

// NewLogger creates a decision logger backed by the given writer
func NewLogger(writer Writer, cfg Config, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}

	l := &Logger{
		writer: writer,
		logger: logger,
		queue:  make(chan *DecisionEvent, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Record queues a decision event built from a request/result pair.
// Never blocks; events are dropped when the queue is full.
func (l *Logger) Record(req *types.EvaluationRequest, res *types.EvaluationResult) {
	event := &DecisionEvent{
		EventID:          uuid.NewString(),
		Timestamp:        res.EvaluatedAt,
		ResourceType:     req.ResourceType,
		ResourceID:       req.ResourceID,
		Action:           req.Action,
		UserID:           req.UserID,
		TenantKey:        req.TenantKey,
		ClientIP:         req.ClientIP,
		Decision:         string(res.Decision),
		PolicyKey:        res.PolicyKey,
		Reason:           res.Reason,
		CacheHit:         res.CacheHit,
		EvaluationTimeMs: res.EvaluationTimeMs,
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- event:
	default:
		l.logger.Warn("decision log queue full, dropping event",
			zap.String("eventId", event.EventID))
	}
}

// Close drains the queue and closes the writer. Records arriving
// after Close are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return l.writer.Close()
}

func (l *Logger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.writer.Write(event); err != nil {
			l.logger.Warn("failed to write decision event", zap.Error(err))
		}
	}
}
