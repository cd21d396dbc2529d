package backend

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gozephyr/storekit/errors"
	"github.com/gozephyr/storekit/policy"
	"github.com/gozephyr/storekit/ttl"
)

// storeRow represents a row in the backing table
type storeRow struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	ExpiresAt *time.Time `gorm:"index"`
}

// databaseBackend implements Backend on a relational table. Writes go through
// to durable storage synchronously; an LRU layer in front serves hot reads
// and is populated on miss. Values cross the database edge as JSON bytes.
type databaseBackend struct {
	db        *gorm.DB
	table     string
	ttlConfig ttl.Config
	timeout   time.Duration
	logger    *zap.Logger

	// read-through cache
	mu       sync.Mutex
	hot      map[string]*Entry
	hotSize  int
	hotOrder policy.Policy[string]

	janitorStop chan struct{}
	janitorDone chan struct{}
	closeOnce   sync.Once
}

// NewDatabase creates a database backend connected with the given postgres
// DSN. Each store uses its own table, created on first use.
func NewDatabase(dsn string, table string, opts ...Option) (Backend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeBackend, "NewDatabase", nil, errors.ErrBackendUnavailable)
	}
	return NewDatabaseWithDB(db, table, opts...)
}

// NewDatabaseWithDB creates a database backend on an existing gorm handle.
// Useful when several stores share one connection pool.
func NewDatabaseWithDB(db *gorm.DB, table string, opts ...Option) (Backend, error) {
	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, err
	}

	if err := db.Table(table).AutoMigrate(&storeRow{}); err != nil {
		return nil, errors.NewStoreError(errors.ErrorTypeBackend, "NewDatabaseWithDB", nil, errors.ErrBackendUnavailable)
	}

	d := &databaseBackend{
		db:          db,
		table:       table,
		ttlConfig:   options.TTLConfig,
		timeout:     options.Timeout,
		logger:      options.Logger,
		hot:         make(map[string]*Entry),
		hotSize:     options.MaxSize,
		hotOrder:    options.Policy,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	if options.JanitorInterval > 0 {
		go d.janitor(options.JanitorInterval)
	} else {
		close(d.janitorDone)
	}
	return d, nil
}

// opContext bounds a database operation when a timeout is configured
func (d *databaseBackend) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(ctx, d.timeout)
	}
	return ctx, func() {}
}

// translate maps driver errors onto the backend error taxonomy
func (d *databaseBackend) translate(op string, key any, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewStoreError(errors.ErrorTypeBackend, op, key, errors.ErrBackendTimeout)
	case stderrors.Is(err, context.Canceled):
		return errors.NewStoreError(errors.ErrorTypeOperation, op, key, errors.ErrContextCanceled)
	default:
		d.logger.Warn("database backend error", zap.String("op", op), zap.Error(err))
		return errors.NewStoreError(errors.ErrorTypeBackend, op, key, errors.ErrBackendUnavailable)
	}
}

// Get retrieves a value, serving hot keys from the read-through cache
func (d *databaseBackend) Get(ctx context.Context, key string) (any, bool, error) {
	d.mu.Lock()
	entry, cached := d.hot[key]
	d.mu.Unlock()
	if cached {
		if entry.Expired() {
			d.dropHot(key)
		} else {
			d.hotOrder.OnGet(key)
			return entry.Value, true, nil
		}
	}

	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	var row storeRow
	result := d.db.WithContext(opCtx).Table(d.table).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, time.Now()).
		First(&row)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, d.translate("Get", key, result.Error)
	}

	value, err := Decode(row.Value)
	if err != nil {
		return nil, false, err
	}

	expires := time.Time{}
	if row.ExpiresAt != nil {
		expires = *row.ExpiresAt
	}
	d.populateHot(key, &Entry{Value: value, Expires: expires})
	return value, true, nil
}

// Set stores a value durably and refreshes the read-through cache
func (d *databaseBackend) Set(ctx context.Context, key string, value any, ttlDuration time.Duration) error {
	data, err := Encode(value)
	if err != nil {
		return err
	}

	row := storeRow{Key: key, Value: data}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}

	var expires time.Time
	if ttlDuration == KeepTTL {
		// Keep a live deadline; a deadline already in the past is cleared so
		// the fresh value is not written pre-expired. A fresh row never
		// expires.
		conflict.UpdateAll = false
		conflict.DoUpdates = clause.Assignments(map[string]any{
			"value": gorm.Expr("excluded.value"),
			"expires_at": gorm.Expr(
				"CASE WHEN "+d.table+".expires_at <= ? THEN NULL ELSE "+d.table+".expires_at END",
				time.Now()),
		})
	} else {
		expires = ttl.ExpirationTime(ttlDuration, d.ttlConfig)
		if !expires.IsZero() {
			row.ExpiresAt = &expires
		}
	}

	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	result := d.db.WithContext(opCtx).Table(d.table).Clauses(conflict).Create(&row)
	if result.Error != nil {
		return d.translate("Set", key, result.Error)
	}

	if ttlDuration == KeepTTL {
		// The row's remaining deadline is unknown here, so the next read
		// goes back to the table.
		d.dropHot(key)
		return nil
	}
	d.populateHot(key, &Entry{Value: value, Expires: expires})
	return nil
}

// Delete removes a value from durable storage and the cache
func (d *databaseBackend) Delete(ctx context.Context, key string) error {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	result := d.db.WithContext(opCtx).Table(d.table).Where("key = ?", key).Delete(&storeRow{})
	if result.Error != nil {
		return d.translate("Delete", key, result.Error)
	}

	d.dropHot(key)
	return nil
}

// Has reports whether an unexpired row exists
func (d *databaseBackend) Has(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	entry, cached := d.hot[key]
	d.mu.Unlock()
	if cached && !entry.Expired() {
		return true, nil
	}

	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	var count int64
	result := d.db.WithContext(opCtx).Table(d.table).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, time.Now()).
		Count(&count)
	if result.Error != nil {
		return false, d.translate("Has", key, result.Error)
	}
	return count > 0, nil
}

// Keys returns all unexpired keys from durable storage
func (d *databaseBackend) Keys(ctx context.Context) ([]string, error) {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	var keys []string
	result := d.db.WithContext(opCtx).Table(d.table).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Pluck("key", &keys)
	if result.Error != nil {
		return nil, d.translate("Keys", nil, result.Error)
	}
	return keys, nil
}

// Len returns the number of unexpired rows
func (d *databaseBackend) Len(ctx context.Context) (int, error) {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	var count int64
	result := d.db.WithContext(opCtx).Table(d.table).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count)
	if result.Error != nil {
		return 0, d.translate("Len", nil, result.Error)
	}
	return int(count), nil
}

// Clear removes all rows and empties the cache
func (d *databaseBackend) Clear(ctx context.Context) error {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	result := d.db.WithContext(opCtx).Table(d.table).Where("1 = 1").Delete(&storeRow{})
	if result.Error != nil {
		return d.translate("Clear", nil, result.Error)
	}

	d.mu.Lock()
	d.hot = make(map[string]*Entry)
	d.mu.Unlock()
	d.hotOrder.OnClear()
	return nil
}

// CleanupExpired deletes rows whose deadline has passed
func (d *databaseBackend) CleanupExpired(ctx context.Context) error {
	opCtx, cancel := d.opContext(ctx)
	defer cancel()

	result := d.db.WithContext(opCtx).Table(d.table).
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&storeRow{})
	return d.translate("CleanupExpired", nil, result.Error)
}

// Close stops the janitor and closes the underlying connection pool
func (d *databaseBackend) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		close(d.janitorStop)
	})
	<-d.janitorDone

	sqlDB, err := d.db.DB()
	if err != nil {
		return d.translate("Close", nil, err)
	}
	return d.translate("Close", nil, sqlDB.Close())
}

// populateHot inserts into the read-through cache, evicting per policy
func (d *databaseBackend) populateHot(key string, entry *Entry) {
	d.mu.Lock()
	_, exists := d.hot[key]
	if !exists && d.hotSize > 0 {
		for len(d.hot) >= d.hotSize {
			victim, ok := d.hotOrder.Evict()
			if !ok {
				break
			}
			delete(d.hot, victim)
		}
	}
	d.hot[key] = entry
	d.hotOrder.OnSet(key)
	d.mu.Unlock()
}

// dropHot invalidates one cached key
func (d *databaseBackend) dropHot(key string) {
	d.mu.Lock()
	delete(d.hot, key)
	d.mu.Unlock()
	d.hotOrder.OnDelete(key)
}

// janitor periodically removes expired rows
func (d *databaseBackend) janitor(interval time.Duration) {
	defer close(d.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.CleanupExpired(context.Background()); err != nil {
				d.logger.Warn("expired row cleanup failed", zap.Error(err))
			}
		case <-d.janitorStop:
			return
		}
	}
}
