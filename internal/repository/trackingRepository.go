package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bluespring/aqua-orders/internal/domain"
)

type TrackingRepo interface {
	CreateTracking(ctx context.Context, t *domain.OrderTracking, jobs []domain.ScheduledTransition) error
	AppendActivity(ctx context.Context, a *domain.OrderActivity) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.OrderTracking, error)
	ListByCustomer(ctx context.Context, email string) ([]*domain.OrderTracking, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.OrderTracking, error)

	ListPendingJobs(ctx context.Context) ([]domain.ScheduledTransition, error)
	MarkJobFired(ctx context.Context, orderID string, status domain.OrderStatus) error
	DeletePendingJobs(ctx context.Context, orderID string) error
}

type TrackingRepository struct {
	pool *pgxpool.Pool
}

func NewTrackingRepository(pool *pgxpool.Pool) *TrackingRepository {
	return &TrackingRepository{pool: pool}
}

// CreateTracking inserts the tracking row, its first activity and the
// scheduled transition rows in one transaction, so a crash can't leave an
// order without its timeline or its pending fulfillment steps.
func (r *TrackingRepository) CreateTracking(ctx context.Context, t *domain.OrderTracking, jobs []domain.ScheduledTransition) error {
	items, err := json.Marshal(t.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO aqua.order_tracking
			(order_id, customer_email, total_amount, items, current_status, estimated_delivery)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.OrderID,
		t.CustomerEmail,
		t.TotalAmount,
		items,
		t.CurrentStatus,
		t.EstimatedDelivery,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, t.OrderID)
		}
		return err
	}

	for i := range t.Activities {
		if err = insertActivity(ctx, tx, &t.Activities[i]); err != nil {
			return err
		}
	}

	if len(jobs) > 0 {
		batch := &pgx.Batch{}
		for _, j := range jobs {
			batch.Queue(
				`INSERT INTO aqua.scheduled_transitions (order_id, next_status, run_at)
				 VALUES ($1, $2, $3)`,
				j.OrderID, j.Status, j.RunAt,
			)
		}
		br := tx.SendBatch(ctx, batch)
		if err = br.Close(); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

// AppendActivity writes the activity and moves current_status in the same
// transaction.
func (r *TrackingRepository) AppendActivity(ctx context.Context, a *domain.OrderActivity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = insertActivity(ctx, tx, a); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE aqua.order_tracking SET current_status = $2 WHERE order_id = $1`,
		a.OrderID, a.Type,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, a.OrderID)
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	tx = nil
	return nil
}

func insertActivity(ctx context.Context, tx pgx.Tx, a *domain.OrderActivity) error {
	var shipment []byte
	if a.Shipment != nil {
		b, err := json.Marshal(a.Shipment)
		if err != nil {
			return fmt.Errorf("marshal shipment: %w", err)
		}
		shipment = b
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO aqua.order_activity (id, order_id, activity_type, description, ts, shipment)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.OrderID, a.Type, a.Description, a.Timestamp, shipment,
	)
	return err
}

func (r *TrackingRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.OrderTracking, error) {
	rows, err := r.pool.Query(ctx, trackingSelect+` WHERE t.order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	list, err := scanTrackings(ctx, r.pool, rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *TrackingRepository) ListByCustomer(ctx context.Context, email string) ([]*domain.OrderTracking, error) {
	rows, err := r.pool.Query(ctx, trackingSelect+` WHERE t.customer_email = $1 ORDER BY t.created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	return scanTrackings(ctx, r.pool, rows)
}

func (r *TrackingRepository) ListRecent(ctx context.Context, limit int) ([]*domain.OrderTracking, error) {
	rows, err := r.pool.Query(ctx, trackingSelect+` ORDER BY t.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanTrackings(ctx, r.pool, rows)
}

const trackingSelect = `
	SELECT t.order_id, t.customer_email, t.total_amount, t.items, t.current_status, t.estimated_delivery
	FROM aqua.order_tracking t`

func scanTrackings(ctx context.Context, pool *pgxpool.Pool, rows pgx.Rows) ([]*domain.OrderTracking, error) {
	defer rows.Close()

	var out []*domain.OrderTracking
	for rows.Next() {
		var (
			t     domain.OrderTracking
			items []byte
		)
		if err := rows.Scan(&t.OrderID, &t.CustomerEmail, &t.TotalAmount, &items, &t.CurrentStatus, &t.EstimatedDelivery); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &t.Items); err != nil {
				return nil, fmt.Errorf("unmarshal items for %s: %w", t.OrderID, err)
			}
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range out {
		acts, err := loadActivities(ctx, pool, t.OrderID)
		if err != nil {
			return nil, err
		}
		t.Activities = acts
	}
	return out, nil
}

func loadActivities(ctx context.Context, pool *pgxpool.Pool, orderID string) ([]domain.OrderActivity, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, order_id, activity_type, description, ts, shipment
		 FROM aqua.order_activity WHERE order_id = $1 ORDER BY ts, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []domain.OrderActivity
	for rows.Next() {
		var (
			a        domain.OrderActivity
			shipment []byte
		)
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Type, &a.Description, &a.Timestamp, &shipment); err != nil {
			return nil, err
		}
		if len(shipment) > 0 {
			var m domain.ShipmentMeta
			if err := json.Unmarshal(shipment, &m); err != nil {
				return nil, fmt.Errorf("unmarshal shipment for %s: %w", orderID, err)
			}
			a.Shipment = &m
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

func (r *TrackingRepository) ListPendingJobs(ctx context.Context) ([]domain.ScheduledTransition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, next_status, run_at
		 FROM aqua.scheduled_transitions WHERE NOT fired ORDER BY run_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ScheduledTransition
	for rows.Next() {
		var j domain.ScheduledTransition
		if err := rows.Scan(&j.OrderID, &j.Status, &j.RunAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *TrackingRepository) MarkJobFired(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE aqua.scheduled_transitions SET fired = TRUE
		 WHERE order_id = $1 AND next_status = $2`, orderID, status)
	return err
}

// DeletePendingJobs drops every unfired transition for the order; used on
// cancellation so nothing resurrects the order later.
func (r *TrackingRepository) DeletePendingJobs(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM aqua.scheduled_transitions WHERE order_id = $1 AND NOT fired`, orderID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
