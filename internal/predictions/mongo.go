// Package predictions implements the append-only prediction archive on the
// secondary document store. Documents are immutable once written; the
// recorder never updates or deletes, and its failures never block a
// prediction response.
package predictions

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/heart-disease-predictor-server/internal/domain"
)

const defaultWriteTimeout = 5 * time.Second

// MongoRecorder implements domain.PredictionRecorder backed by a MongoDB
// collection. All writes go through a circuit breaker so a degraded document
// store sheds load quickly instead of stalling every prediction.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	log        *logrus.Logger
}

// NewMongoRecorder connects to the secondary store. Connection failure at
// startup is surfaced as an error; an unreachable store after startup only
// degrades recording, not predictions.
func NewMongoRecorder(ctx context.Context, cfg domain.SecondaryStoreConfig, logger *logrus.Logger) (*MongoRecorder, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, domain.NewSecondaryStoreError("connect", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		// The store may come up later; recording degrades until it does.
		logger.WithError(err).Warn("Secondary store unreachable at startup")
	}

	interval := cfg.BreakerInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 60 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prediction-archive",
		MaxRequests: 3,
		Interval:    interval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &MongoRecorder{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		breaker:    breaker,
		timeout:    timeout,
		log:        logger,
	}, nil
}

// Record appends one prediction document and returns its identifier.
func (r *MongoRecorder) Record(ctx context.Context, record *domain.PredictionRecord) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.collection.InsertOne(writeCtx, record)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", domain.NewSecondaryStoreError("record prediction", fmt.Errorf("prediction archive unavailable (circuit breaker open)"))
		}
		return "", domain.NewSecondaryStoreError("record prediction", err)
	}

	insert := result.(*mongo.InsertOneResult)
	id := ""
	if oid, ok := insert.InsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	} else {
		id = fmt.Sprintf("%v", insert.InsertedID)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id":  record.PatientID,
		"document_id": id,
		"risk_level":  record.RiskLabel,
	}).Info("Prediction recorded")
	return id, nil
}

// Ping checks connectivity to the secondary store.
func (r *MongoRecorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
