// Package record persists completed request/response pairs to a local
// SQLite database. A Recorder subscribes to the observer bus, so it sees
// every settled request whether the response was mocked or real.
package record

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/internal/logger"
	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/observer"
)

// Record is one settled exchange.
type Record struct {
	ID              string `gorm:"primaryKey"`
	Method          string
	URL             string
	Status          int
	StatusText      string
	Mocked          bool
	RequestHeaders  string
	ResponseHeaders string
	RequestBody     string
	ResponseBody    string
	CreatedAt       time.Time
}

// Recorder writes records as responses settle.
type Recorder struct {
	db     *gorm.DB
	log    zerolog.Logger
	cancel func()
}

// Open creates or opens the database at path and migrates the schema.
func Open(path string) (*Recorder, error) {
	log := logger.ForComponent("record")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "opening record database").
			WithContext("path", path)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "migrating record schema")
	}
	return &Recorder{db: db, log: log}, nil
}

// Attach subscribes the recorder to bus. Detach with Close.
func (r *Recorder) Attach(bus *observer.Bus) {
	r.cancel = bus.Subscribe(observer.EventResponse, func(reqAny, respAny any) {
		req, ok := reqAny.(*client.Request)
		if !ok {
			return
		}
		snap, ok := respAny.(*client.ResponseSnapshot)
		if !ok {
			return
		}
		if err := r.Save(req, snap); err != nil {
			r.log.Error().Err(err).Str("url", req.URL.String()).Msg("recording response")
		}
	})
}

// Save writes one exchange.
func (r *Recorder) Save(req *client.Request, snap *client.ResponseSnapshot) error {
	rec := Record{
		ID:             req.ID,
		Method:         req.Method,
		URL:            req.URL.String(),
		Status:         snap.Status,
		StatusText:     snap.StatusText,
		Mocked:         snap.Mocked,
		RequestHeaders: req.Headers.Serialize(),
		RequestBody:    req.Body,
		ResponseBody:   snap.Body,
	}
	if snap.Headers != nil {
		rec.ResponseHeaders = snap.Headers.Serialize()
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "inserting record")
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (r *Recorder) Recent(limit int) ([]Record, error) {
	var out []Record
	err := r.db.Order("created_at desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "querying records")
	}
	return out, nil
}

// Close detaches from the bus and closes the database.
func (r *Recorder) Close() error {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "closing record database")
	}
	return sqlDB.Close()
}
