package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/query"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func newJobsCollection() *MemoryCollection[*domain.Job] {
	return NewMemoryCollection(JobsOptions(), func() *domain.Job { return &domain.Job{} })
}

func seedJob(t *testing.T, c Collection[*domain.Job], name string, price float64) *domain.Job {
	t.Helper()
	job := &domain.Job{Name: name, Description: "test job", Price: price, ProviderID: "p1"}
	require.NoError(t, c.Create(context.Background(), job))
	return job
}

func errorCode(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

func TestMemoryCreateAssignsIDAndDefaults(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)

	assert.NotEmpty(t, job.ID)
	assert.True(t, job.Active)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestMemoryCreateRejectsInvalidDocument(t *testing.T) {
	jobs := newJobsCollection()
	err := jobs.Create(context.Background(), &domain.Job{Name: "mowing"})

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))
}

func TestMemoryFindFilterSortPaginate(t *testing.T) {
	jobs := newJobsCollection()
	seedJob(t, jobs, "a", 10)
	seedJob(t, jobs, "b", 20)
	seedJob(t, jobs, "c", 30)
	seedJob(t, jobs, "d", 40)

	d := query.Parse(map[string]string{"price[gte]": "20", "sort": "-price", "limit": "2"})
	found, err := jobs.Find(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "d", found[0].Name)
	assert.Equal(t, "c", found[1].Name)
}

func TestMemoryFindSecondPage(t *testing.T) {
	jobs := newJobsCollection()
	seedJob(t, jobs, "a", 10)
	seedJob(t, jobs, "b", 20)
	seedJob(t, jobs, "c", 30)

	d := query.Parse(map[string]string{"sort": "price", "page": "2", "limit": "2"})
	found, err := jobs.Find(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c", found[0].Name)
}

func TestMemoryProjectionKeepsID(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)

	d := query.Parse(map[string]string{"fields": "name"})
	found, err := jobs.Find(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, job.ID, found[0].ID)
	assert.Equal(t, "mowing", found[0].Name)
	assert.Zero(t, found[0].Price)
}

func TestMemoryHiddenFields(t *testing.T) {
	users := NewMemoryCollection(UsersOptions(), func() *domain.User { return &domain.User{} })
	user := &domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleUser, PasswordHash: "hash", Active: true}
	require.NoError(t, users.Create(context.Background(), user))

	plain, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, plain.PasswordHash)

	withSecret, err := users.FindByID(context.Background(), user.ID, WithHidden())
	require.NoError(t, err)
	assert.Equal(t, "hash", withSecret.PasswordHash)
}

func TestMemoryUniqueField(t *testing.T) {
	users := NewMemoryCollection(UsersOptions(), func() *domain.User { return &domain.User{} })
	first := &domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleUser, Active: true}
	require.NoError(t, users.Create(context.Background(), first))

	dup := &domain.User{Name: "Other", Email: "ann@example.com", Role: domain.RoleUser, Active: true}
	err := users.Create(context.Background(), dup)

	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_VALUE", errorCode(err))
}

func TestMemorySoftDelete(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)

	require.NoError(t, jobs.DeleteByID(context.Background(), job.ID))

	_, err := jobs.FindByID(context.Background(), job.ID)
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	found, err := jobs.Find(context.Background(), query.Parse(nil))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryHardDelete(t *testing.T) {
	reviews := NewMemoryCollection(ReviewsOptions(), func() *domain.Review { return &domain.Review{} })
	review := &domain.Review{Review: "great", Rating: 5, JobID: "j1", AuthorID: "u1"}
	require.NoError(t, reviews.Create(context.Background(), review))

	require.NoError(t, reviews.DeleteByID(context.Background(), review.ID))
	_, err := reviews.FindByID(context.Background(), review.ID)
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}

func TestMemoryUpdateMergesAndRevalidates(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)

	updated, err := jobs.UpdateByID(context.Background(), job.ID, map[string]any{"price": 30})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Price)
	assert.Equal(t, "mowing", updated.Name)

	_, err = jobs.UpdateByID(context.Background(), job.ID, map[string]any{"price": -1})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))
}

func TestMemoryUpdateNilClearsField(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)
	_, err := jobs.UpdateByID(context.Background(), job.ID, map[string]any{"address": "12 Main St"})
	require.NoError(t, err)

	updated, err := jobs.UpdateByID(context.Background(), job.ID, map[string]any{"address": nil})
	require.NoError(t, err)
	assert.Empty(t, updated.Address)
}

func TestMemoryUpdateCannotChangeID(t *testing.T) {
	jobs := newJobsCollection()
	job := seedJob(t, jobs, "mowing", 25)

	updated, err := jobs.UpdateByID(context.Background(), job.ID, map[string]any{"id": "other"})
	require.NoError(t, err)
	assert.Equal(t, job.ID, updated.ID)
}

func TestMemoryFindConcurrentWithSoftDelete(t *testing.T) {
	jobs := newJobsCollection()
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		job := seedJob(t, jobs, "job", float64(i+1))
		ids = append(ids, job.ID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := jobs.Find(context.Background(), query.Parse(map[string]string{"sort": "-price"}))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids {
			assert.NoError(t, jobs.DeleteByID(context.Background(), id))
		}
	}()
	wg.Wait()

	found, err := jobs.Find(context.Background(), query.Parse(nil))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryFindOne(t *testing.T) {
	jobs := newJobsCollection()
	seedJob(t, jobs, "mowing", 25)

	found, err := jobs.FindOne(context.Background(), []query.Condition{query.Eq("name", "mowing")})
	require.NoError(t, err)
	assert.Equal(t, "mowing", found.Name)

	_, err = jobs.FindOne(context.Background(), []query.Condition{query.Eq("name", "absent")})
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}
