package database

import (
	"context"

	"gorm.io/gorm"
)

// Store is the transactional view of the asset repository. Every repository
// obtained from the Store passed to Transaction's callback runs inside that transaction.
type Store interface {
	ProjectRepo() ProjectRepository
	ImageRepo() ImageRepository
	Ordering() OrderingEngine
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type Database struct {
	db          *gorm.DB
	projectRepo *ProjectRepo
	imageRepo   *ImageRepo
	ordering    *Ordering
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:          db,
		projectRepo: NewProjectRepo(db),
		imageRepo:   NewImageRepo(db),
		ordering:    NewOrdering(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() ProjectRepository {
	return d.projectRepo
}

func (d Database) ImageRepo() ImageRepository {
	return d.imageRepo
}

func (d Database) Ordering() OrderingEngine {
	return d.ordering
}

// Transaction runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (d Database) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// Ping checks that the database answers queries
func (d Database) Ping(ctx context.Context) error {
	var result int
	return d.db.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}
