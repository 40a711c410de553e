package store

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// Collections groups every document collection the service exposes.
type Collections struct {
	Users   Collection[*domain.User]
	Jobs    Collection[*domain.Job]
	Reviews Collection[*domain.Review]
	Tours   Collection[*domain.Tour]
}

// UsersOptions hides credential material from reads and soft-deletes
// accounts; email is unique case-normalized.
func UsersOptions() Options {
	return Options{
		Name:       "users",
		SoftDelete: true,
		HiddenFields: []string{
			"passwordHash",
			"passwordChangedAt",
			"passwordResetToken",
			"passwordResetExpires",
		},
		UniqueFields: []string{"email"},
	}
}

// JobsOptions soft-deletes listings like the accounts that own them.
func JobsOptions() Options {
	return Options{Name: "jobs", SoftDelete: true}
}

// ReviewsOptions hard-deletes; a removed review is gone.
func ReviewsOptions() Options {
	return Options{Name: "reviews"}
}

// ToursOptions soft-deletes scheduled tours.
func ToursOptions() Options {
	return Options{Name: "tours", SoftDelete: true}
}

// NewMemoryCollections builds the full in-memory collection set.
func NewMemoryCollections() *Collections {
	return &Collections{
		Users:   NewMemoryCollection(UsersOptions(), func() *domain.User { return &domain.User{} }),
		Jobs:    NewMemoryCollection(JobsOptions(), func() *domain.Job { return &domain.Job{} }),
		Reviews: NewMemoryCollection(ReviewsOptions(), func() *domain.Review { return &domain.Review{} }),
		Tours:   NewMemoryCollection(ToursOptions(), func() *domain.Tour { return &domain.Tour{} }),
	}
}

// NewPostgresCollections builds the full Postgres-backed collection set.
func NewPostgresCollections(pool *pgxpool.Pool) *Collections {
	return &Collections{
		Users:   NewPostgresCollection(pool, UsersOptions(), func() *domain.User { return &domain.User{} }),
		Jobs:    NewPostgresCollection(pool, JobsOptions(), func() *domain.Job { return &domain.Job{} }),
		Reviews: NewPostgresCollection(pool, ReviewsOptions(), func() *domain.Review { return &domain.Review{} }),
		Tours:   NewPostgresCollection(pool, ToursOptions(), func() *domain.Tour { return &domain.Tour{} }),
	}
}
