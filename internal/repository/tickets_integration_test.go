package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/entities"
	"ticketgate/internal/repository"
)

var (
	db        *sqlx.DB
	getDbOnce sync.Once
)

func getDb(t *testing.T) *sqlx.DB {
	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	getDbOnce.Do(func() {
		var err error
		db, err = sqlx.Open("postgres", postgresURL)
		if err != nil {
			panic(err)
		}
		if err := repository.InitializeDBSchema(db); err != nil {
			panic(err)
		}
	})
	return db
}

func cleanupTestDB(t *testing.T) {
	_, err := getDb(t).Exec("TRUNCATE TABLE ticket_validations, tickets")
	require.NoError(t, err)
}

func newPendingTicket(orderNumber int64, title string) *entities.Ticket {
	return &entities.Ticket{
		ID:            uuid.NewString(),
		OrderID:       orderNumber * 1000,
		OrderNumber:   orderNumber,
		TicketID:      fmt.Sprintf("%d_%s_1_%s_%s", orderNumber, title, uuid.NewString()[:6], uuid.NewString()[:4]),
		CustomerEmail: "buyer@example.com",
		TicketTitle:   title,
		Quantity:      1,
		Price:         entities.Money{Amount: "35.00", Currency: "EUR"},
		Status:        entities.TicketStatusPending,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestTicketsRepo_Create_Integration(t *testing.T) {
	repo := repository.NewTicketsRepo(getDb(t))
	t.Cleanup(func() { cleanupTestDB(t) })
	ctx := context.Background()

	ticket := newPendingTicket(1380, "vippass")
	require.NoError(t, repo.Create(ctx, ticket))

	got, err := repo.GetByTicketID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID, got.TicketID)
	assert.Equal(t, entities.TicketStatusPending, got.Status)
	assert.Equal(t, "35.00", got.Price.Amount)
	assert.Equal(t, "EUR", got.Price.Currency)
	assert.Nil(t, got.ValidatedAt)
	assert.Nil(t, got.ValidatedBy)

	t.Run("duplicate ticket_id is rejected", func(t *testing.T) {
		dup := newPendingTicket(1380, "vippass")
		dup.TicketID = ticket.TicketID
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, entities.ErrDuplicateTicketID)
	})

	t.Run("unknown ticket is not found", func(t *testing.T) {
		_, err := repo.GetByTicketID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, entities.ErrTicketNotFound)
	})
}

func TestTicketsRepo_Lifecycle_Integration(t *testing.T) {
	repo := repository.NewTicketsRepo(getDb(t))
	t.Cleanup(func() { cleanupTestDB(t) })
	ctx := context.Background()

	ticket := newPendingTicket(42, "vippass")
	require.NoError(t, repo.Create(ctx, ticket))

	t.Run("markUsed before validation fails", func(t *testing.T) {
		result, err := repo.MarkUsed(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "must be validated before use", result.Reason)
	})

	t.Run("validate succeeds once", func(t *testing.T) {
		result, err := repo.Validate(ctx, ticket.TicketID, "Staff1", "front gate")
		require.NoError(t, err)
		assert.True(t, result.Success)

		got, err := repo.GetByTicketID(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.Equal(t, entities.TicketStatusValidated, got.Status)
		require.NotNil(t, got.ValidatedBy)
		assert.Equal(t, "Staff1", *got.ValidatedBy)
		assert.NotNil(t, got.ValidatedAt)
	})

	t.Run("second validate fails and keeps the winner", func(t *testing.T) {
		result, err := repo.Validate(ctx, ticket.TicketID, "Staff2", "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Reason, "already validated by Staff1")

		got, err := repo.GetByTicketID(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.Equal(t, "Staff1", *got.ValidatedBy)
	})

	t.Run("markUsed succeeds then is idempotent", func(t *testing.T) {
		result, err := repo.MarkUsed(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.True(t, result.Success)

		first, err := repo.GetByTicketID(ctx, ticket.TicketID)
		require.NoError(t, err)
		require.NotNil(t, first.UsedAt)

		result, err = repo.MarkUsed(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Contains(t, result.Reason, "already used")

		second, err := repo.GetByTicketID(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.Equal(t, first.UsedAt.UTC(), second.UsedAt.UTC(), "used_at must not move on re-scan")
	})

	t.Run("validate after used names the holder", func(t *testing.T) {
		result, err := repo.Validate(ctx, ticket.TicketID, "Staff3", "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Reason, "already used")
	})
}

func TestTicketsRepo_ConcurrentValidate_Integration(t *testing.T) {
	repo := repository.NewTicketsRepo(getDb(t))
	t.Cleanup(func() { cleanupTestDB(t) })
	ctx := context.Background()

	ticket := newPendingTicket(77, "concert")
	require.NoError(t, repo.Create(ctx, ticket))

	concurrency := 8
	results := make(chan entities.TransitionResult, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := repo.Validate(ctx, ticket.TicketID, fmt.Sprintf("staff-%d", i), "")
			require.NoError(t, err)
			results <- result
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for result := range results {
		if result.Success {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent validate must win")

	validations, err := repo.Validations(ctx)
	require.NoError(t, err)
	assert.Len(t, validations, 1, "exactly one audit record after a race")

	got, err := repo.GetByTicketID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entities.TicketStatusValidated, got.Status)
}

func TestTicketsRepo_SearchAndStats_Integration(t *testing.T) {
	repo := repository.NewTicketsRepo(getDb(t))
	t.Cleanup(func() { cleanupTestDB(t) })
	ctx := context.Background()

	first := newPendingTicket(100, "vippass")
	first.CustomerEmail = "alice@example.com"
	second := newPendingTicket(101, "standard")
	second.CustomerEmail = "bob@other.org"
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	result, err := repo.Validate(ctx, second.TicketID, "Staff1", "")
	require.NoError(t, err)
	require.True(t, result.Success)

	t.Run("status filter", func(t *testing.T) {
		tickets, err := repo.Search(ctx, entities.TicketFilter{Status: entities.TicketStatusPending})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, first.TicketID, tickets[0].TicketID)
	})

	t.Run("email substring filter", func(t *testing.T) {
		tickets, err := repo.Search(ctx, entities.TicketFilter{CustomerEmail: "ALICE"})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, first.TicketID, tickets[0].TicketID)
	})

	t.Run("composed filters", func(t *testing.T) {
		from := time.Now().UTC().Add(-time.Hour)
		to := time.Now().UTC().Add(time.Hour)
		tickets, err := repo.Search(ctx, entities.TicketFilter{
			Status:        entities.TicketStatusValidated,
			CustomerEmail: "other.org",
			DateFrom:      &from,
			DateTo:        &to,
		})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, second.TicketID, tickets[0].TicketID)
	})

	t.Run("order number lookup keeps creation order", func(t *testing.T) {
		tickets, err := repo.GetByOrderNumber(ctx, 100)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, first.TicketID, tickets[0].TicketID)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, entities.TicketStats{
			Total:            2,
			Pending:          1,
			Validated:        1,
			TotalValidations: 1,
		}, stats)
	})
}
