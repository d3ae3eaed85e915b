package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// eventRow mirrors the 'events' table.
type eventRow struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	DateTime time.Time `db:"date_time"`
	Location string    `db:"location"`
}

// categoryRow mirrors the 'ticket_categories' table.
type categoryRow struct {
	EventID   uuid.UUID       `db:"event_id"`
	Position  int             `db:"position"`
	Name      string          `db:"category_name"`
	Price     decimal.Decimal `db:"price"`
	Available int             `db:"available"`
}

// EventRepo manages the events and ticket_categories tables.
type EventRepo struct {
	q sqlx.ExtContext
}

// NewEventRepo returns an EventRepo using q, which may be a *sqlx.DB or *sqlx.Tx.
func NewEventRepo(q sqlx.ExtContext) *EventRepo { return &EventRepo{q: q} }

// Create inserts the event row and one row per category.  Callers wanting
// all-or-nothing semantics run it inside Store.InTx.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const insEvent = `INSERT INTO events (id, name, date_time, location) VALUES (?, ?, ?, ?)`
	if _, err := r.q.ExecContext(ctx, rebind(r.q, insEvent), e.ID, e.Name, e.DateTime.UTC(), e.Location); err != nil {
		return translate("insert event", err, nil)
	}
	const insCategory = `INSERT INTO ticket_categories (event_id, position, category_name, price, available) VALUES (?, ?, ?, ?, ?)`
	for i, c := range e.Categories {
		if _, err := r.q.ExecContext(ctx, rebind(r.q, insCategory), e.ID, i, c.Name, c.Price, c.Available()); err != nil {
			return translate("insert ticket category", err, nil)
		}
	}
	return nil
}

// FindByID loads the event and its categories in creation order.
func (r *EventRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var row eventRow
	const sel = `SELECT id, name, date_time, location FROM events WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.q, &row, rebind(r.q, sel), id); err != nil {
		return nil, translate("select event", err, model.NotFoundf("event %s", id))
	}
	cats, err := r.categories(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return toEvent(row, cats[id]), nil
}

// Search selects events dated from the start of start's day up to the end of
// end's day, then loads their categories with a single IN query.
func (r *EventRepo) Search(ctx context.Context, start, end time.Time) ([]*model.Event, error) {
	from := dayStart(start)
	until := dayStart(end).AddDate(0, 0, 1)
	if until.Before(from) {
		return []*model.Event{}, nil
	}

	var rows []eventRow
	const sel = `SELECT id, name, date_time, location FROM events WHERE date_time >= ? AND date_time < ?`
	if err := sqlx.SelectContext(ctx, r.q, &rows, rebind(r.q, sel), from, until); err != nil {
		return nil, translate("search events", err, nil)
	}
	if len(rows) == 0 {
		return []*model.Event{}, nil
	}

	cats, err := r.categories(ctx, lo.Map(rows, func(row eventRow, _ int) uuid.UUID { return row.ID }))
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row eventRow, _ int) *model.Event { return toEvent(row, cats[row.ID]) }), nil
}

func (r *EventRepo) categories(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]categoryRow, error) {
	query, args, err := sqlx.In(
		`SELECT event_id, position, category_name, price, available FROM ticket_categories WHERE event_id IN (?) ORDER BY event_id, position`,
		eventIDs)
	if err != nil {
		return nil, model.Persistence("build category query", err)
	}
	var rows []categoryRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, rebind(r.q, query), args...); err != nil {
		return nil, translate("select ticket categories", err, nil)
	}
	return lo.GroupBy(rows, func(c categoryRow) uuid.UUID { return c.EventID }), nil
}

func toEvent(row eventRow, cats []categoryRow) *model.Event {
	return &model.Event{
		ID:       row.ID,
		Name:     row.Name,
		DateTime: row.DateTime.UTC(),
		Location: row.Location,
		Categories: lo.Map(cats, func(c categoryRow, _ int) *model.TicketCategory {
			return model.NewTicketCategory(c.Name, c.Price, c.Available)
		}),
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
