package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ticketgate/internal/entities"
)

// Ticket represents a row of the tickets table.
type Ticket struct {
	ID            string     `db:"id"`
	OrderID       int64      `db:"order_id"`
	OrderNumber   int64      `db:"order_number"`
	TicketID      string     `db:"ticket_id"`
	CustomerEmail string     `db:"customer_email"`
	TicketTitle   string     `db:"ticket_title"`
	Quantity      int        `db:"quantity"`
	PriceAmount   string     `db:"price_amount"`
	PriceCurrency string     `db:"price_currency"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	ValidatedAt   *time.Time `db:"validated_at"`
	UsedAt        *time.Time `db:"used_at"`
	ValidatedBy   *string    `db:"validated_by"`
}

const ticketColumns = `id, order_id, order_number, ticket_id, customer_email,
	ticket_title, quantity, price_amount, price_currency, status,
	created_at, validated_at, used_at, validated_by`

// TicketsRepo is the sole owner of ticket state. Both lifecycle
// transitions are single conditional UPDATE statements guarded on the
// current status, so two racing callers can never both succeed.
type TicketsRepo struct {
	db *sqlx.DB
}

func NewTicketsRepo(db *sqlx.DB) *TicketsRepo {
	return &TicketsRepo{db: db}
}

// Create inserts a new ticket record. A ticket_id collision returns
// ErrDuplicateTicketID; callers treat it as "already generated" and
// fetch instead.
func (r *TicketsRepo) Create(ctx context.Context, t *entities.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OrderID,
		t.OrderNumber,
		t.TicketID,
		t.CustomerEmail,
		t.TicketTitle,
		t.Quantity,
		t.Price.Amount,
		t.Price.Currency,
		string(t.Status),
		t.CreatedAt,
		t.ValidatedAt,
		t.UsedAt,
		t.ValidatedBy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("ticket %s: %w", t.TicketID, entities.ErrDuplicateTicketID)
		}
		return storageErr("create ticket", err)
	}
	return nil
}

func (r *TicketsRepo) GetByTicketID(ctx context.Context, ticketID string) (*entities.Ticket, error) {
	var row Ticket
	err := r.db.GetContext(ctx, &row,
		`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, entities.ErrTicketNotFound)
	}
	if err != nil {
		return nil, storageErr("get ticket", err)
	}
	return modelToDomain(row), nil
}

// GetByOrderNumber returns the order's tickets in creation order; it
// is the orchestrator's idempotency lookup.
func (r *TicketsRepo) GetByOrderNumber(ctx context.Context, orderNumber int64) ([]entities.Ticket, error) {
	var rows []Ticket
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+ticketColumns+` FROM tickets WHERE order_number = $1 ORDER BY created_at ASC, ticket_id ASC`,
		orderNumber)
	if err != nil {
		return nil, storageErr("get tickets by order", err)
	}
	return modelsToDomain(rows), nil
}

// Search lists tickets matching the filter, newest first. Set filter
// fields are AND-combined.
func (r *TicketsRepo) Search(ctx context.Context, filter entities.TicketFilter) ([]entities.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.CustomerEmail != "" {
		args = append(args, "%"+filter.CustomerEmail+"%")
		query += ` AND customer_email ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.OrderNumber != 0 {
		args = append(args, filter.OrderNumber)
		query += ` AND order_number = $` + strconv.Itoa(len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	var rows []Ticket
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageErr("search tickets", err)
	}
	return modelsToDomain(rows), nil
}

// Validate performs pending -> validated. The status guard lives in
// the UPDATE itself; when two staff devices race, exactly one UPDATE
// matches and only that transaction appends a validation record.
func (r *TicketsRepo) Validate(ctx context.Context, ticketID, validatedBy string, notes string) (entities.TransitionResult, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entities.TransitionResult{}, storageErr("begin validate", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'validated', validated_at = $2, validated_by = $3
		WHERE ticket_id = $1 AND status = 'pending'`,
		ticketID, now, validatedBy)
	if err != nil {
		return entities.TransitionResult{}, storageErr("validate ticket", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return entities.TransitionResult{}, storageErr("validate ticket", err)
	}
	if affected == 0 {
		return r.explainFailedValidate(ctx, ticketID)
	}

	var notesVal sql.NullString
	if notes != "" {
		notesVal = sql.NullString{String: notes, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ticket_validations (id, ticket_id, validated_by, validated_at, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), ticketID, validatedBy, now, notesVal)
	if err != nil {
		return entities.TransitionResult{}, storageErr("record validation", err)
	}

	if err := tx.Commit(); err != nil {
		return entities.TransitionResult{}, storageErr("commit validate", err)
	}
	return entities.TransitionResult{Success: true}, nil
}

// MarkUsed performs validated -> used. Re-scanning an already used
// ticket reports success without touching used_at: the admission
// already happened and the door should not read it as an error.
func (r *TicketsRepo) MarkUsed(ctx context.Context, ticketID string) (entities.TransitionResult, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'used', used_at = $2
		WHERE ticket_id = $1 AND status = 'validated'`,
		ticketID, now)
	if err != nil {
		return entities.TransitionResult{}, storageErr("mark ticket used", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return entities.TransitionResult{}, storageErr("mark ticket used", err)
	}
	if affected == 1 {
		return entities.TransitionResult{Success: true}, nil
	}
	return r.explainFailedMarkUsed(ctx, ticketID)
}

func (r *TicketsRepo) Stats(ctx context.Context) (entities.TicketStats, error) {
	var stats entities.TicketStats
	err := r.db.QueryRowxContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'validated'),
			COUNT(*) FILTER (WHERE status = 'used'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			(SELECT COUNT(*) FROM ticket_validations)
		FROM tickets`).
		Scan(&stats.Total, &stats.Pending, &stats.Validated, &stats.Used, &stats.Expired, &stats.TotalValidations)
	if err != nil {
		return entities.TicketStats{}, storageErr("ticket stats", err)
	}
	return stats, nil
}

// Validations returns the audit log, newest first.
func (r *TicketsRepo) Validations(ctx context.Context) ([]entities.Validation, error) {
	type validationRow struct {
		ID          string    `db:"id"`
		TicketID    string    `db:"ticket_id"`
		ValidatedBy string    `db:"validated_by"`
		ValidatedAt time.Time `db:"validated_at"`
		Notes       *string   `db:"notes"`
	}
	var rows []validationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, ticket_id, validated_by, validated_at, notes
		FROM ticket_validations
		ORDER BY validated_at DESC`)
	if err != nil {
		return nil, storageErr("list validations", err)
	}

	validations := make([]entities.Validation, 0, len(rows))
	for _, row := range rows {
		validations = append(validations, entities.Validation{
			ID:          row.ID,
			TicketID:    row.TicketID,
			ValidatedBy: row.ValidatedBy,
			ValidatedAt: row.ValidatedAt,
			Notes:       row.Notes,
		})
	}
	return validations, nil
}

// explainFailedValidate reports why a validate matched no row. The
// losing side of a race lands here and must not write anything.
func (r *TicketsRepo) explainFailedValidate(ctx context.Context, ticketID string) (entities.TransitionResult, error) {
	ticket, err := r.GetByTicketID(ctx, ticketID)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return entities.TransitionResult{Success: false, Reason: "ticket not found"}, nil
	}
	if err != nil {
		return entities.TransitionResult{}, err
	}

	switch ticket.Status {
	case entities.TicketStatusValidated:
		return entities.TransitionResult{
			Success: false,
			Reason:  fmt.Sprintf("already validated by %s at %s", deref(ticket.ValidatedBy), formatTime(ticket.ValidatedAt)),
		}, nil
	case entities.TicketStatusUsed:
		return entities.TransitionResult{
			Success: false,
			Reason:  fmt.Sprintf("already used at %s by %s", formatTime(ticket.UsedAt), deref(ticket.ValidatedBy)),
		}, nil
	case entities.TicketStatusExpired:
		return entities.TransitionResult{Success: false, Reason: "ticket expired"}, nil
	default:
		// Raced a transition that has since been won; retrying would
		// re-run the same guard.
		return entities.TransitionResult{Success: false, Reason: "ticket is not pending"}, nil
	}
}

func (r *TicketsRepo) explainFailedMarkUsed(ctx context.Context, ticketID string) (entities.TransitionResult, error) {
	ticket, err := r.GetByTicketID(ctx, ticketID)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return entities.TransitionResult{Success: false, Reason: "ticket not found"}, nil
	}
	if err != nil {
		return entities.TransitionResult{}, err
	}

	switch ticket.Status {
	case entities.TicketStatusUsed:
		return entities.TransitionResult{
			Success: true,
			Reason:  fmt.Sprintf("already used at %s by %s", formatTime(ticket.UsedAt), deref(ticket.ValidatedBy)),
		}, nil
	case entities.TicketStatusPending:
		return entities.TransitionResult{Success: false, Reason: "must be validated before use"}, nil
	case entities.TicketStatusExpired:
		return entities.TransitionResult{Success: false, Reason: "ticket expired"}, nil
	default:
		return entities.TransitionResult{Success: false, Reason: "ticket is not validated"}, nil
	}
}

func modelToDomain(row Ticket) *entities.Ticket {
	return &entities.Ticket{
		ID:            row.ID,
		OrderID:       row.OrderID,
		OrderNumber:   row.OrderNumber,
		TicketID:      row.TicketID,
		CustomerEmail: row.CustomerEmail,
		TicketTitle:   row.TicketTitle,
		Quantity:      row.Quantity,
		Price: entities.Money{
			Amount:   row.PriceAmount,
			Currency: row.PriceCurrency,
		},
		Status:      entities.TicketStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		ValidatedAt: row.ValidatedAt,
		UsedAt:      row.UsedAt,
		ValidatedBy: row.ValidatedBy,
	}
}

func modelsToDomain(rows []Ticket) []entities.Ticket {
	tickets := make([]entities.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, *modelToDomain(row))
	}
	return tickets
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, entities.ErrStorageUnavailable, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
