package store

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/model"
	mysqlopts "github.com/kart-io/providentia/pkg/options/mysql"
)

var (
	clientFactory Factory
	once          sync.Once
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

// GetFactory returns the storage factory, initializing the MySQL connection
// exactly once under concurrent first use.
func GetFactory(opts *mysqlopts.Options) (Factory, error) {
	var err error

	once.Do(func() {
		var db *gorm.DB
		db, err = gorm.Open(mysql.Open(opts.DSN()), &gorm.Config{})
		if err != nil {
			logger.Errorf("failed to connect to mysql: %s", err.Error())
			return
		}

		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
		sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
		sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)

		ds := &datastore{db}
		if err = ds.AutoMigrate(); err != nil {
			logger.Errorf("failed to migrate schema: %s", err.Error())
			return
		}

		clientFactory = ds
	})

	if clientFactory == nil || err != nil {
		return nil, fmt.Errorf("failed to get mysql factory: %w", err)
	}

	return clientFactory, nil
}

// NewFactory wraps an existing GORM handle. Used by tests and alternative
// composition roots.
func NewFactory(db *gorm.DB) Factory {
	return &datastore{db}
}

// Interactions returns the interaction store.
func (ds *datastore) Interactions() InteractionStore {
	return newInteractions(ds.db)
}

// Ping verifies database connectivity.
func (ds *datastore) Ping(ctx context.Context) error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(&model.Interaction{})
}

// Close closes the factory and underlying connections.
func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
