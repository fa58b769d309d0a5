package store

import (
	"time"

	"cellcore/sched"
)

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeLayout, s)
	return t
}

// StoreOrder upserts the full order row keyed by its public ID. Called on
// every order lifecycle event so the row always reflects current state.
func (db *DB) StoreOrder(o sched.Order) error {
	res, err := db.Exec(db.Q(`UPDATE orders SET product_type = ?, quantity = ?, produced = ?, priority = ?, status = ?, conveyor = ?, started_at = ?, completed_at = ? WHERE order_id = ?`),
		o.ProductType, o.Quantity, o.Produced, o.Priority, string(o.Status), o.Conveyor,
		formatTime(o.StartedAt), formatTime(o.CompletedAt), o.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = db.Exec(db.Q(`INSERT INTO orders (order_id, product_type, quantity, produced, priority, status, conveyor, created_at, started_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.ProductType, o.Quantity, o.Produced, o.Priority, string(o.Status), o.Conveyor,
		formatTime(o.CreatedAt), formatTime(o.StartedAt), formatTime(o.CompletedAt))
	return err
}

// LoadOpenOrders returns every order that has not reached a terminal state,
// used to rehydrate the scheduler at startup.
func (db *DB) LoadOpenOrders() ([]sched.Order, error) {
	rows, err := db.Query(db.Q(`SELECT order_id, product_type, quantity, produced, priority, status, conveyor, created_at, started_at, completed_at FROM orders WHERE status IN ('pending', 'in_progress', 'on_hold') ORDER BY id`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []sched.Order
	for rows.Next() {
		var o sched.Order
		var status, createdAt, startedAt, completedAt string
		if err := rows.Scan(&o.ID, &o.ProductType, &o.Quantity, &o.Produced, &o.Priority, &status, &o.Conveyor, &createdAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		o.Status = sched.Status(status)
		o.CreatedAt = parseTime(createdAt)
		o.StartedAt = parseTime(startedAt)
		o.CompletedAt = parseTime(completedAt)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOrders returns the most recent limit orders, newest first.
func (db *DB) ListOrders(limit int) ([]sched.Order, error) {
	rows, err := db.Query(db.Q(`SELECT order_id, product_type, quantity, produced, priority, status, conveyor, created_at, started_at, completed_at FROM orders ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []sched.Order
	for rows.Next() {
		var o sched.Order
		var status, createdAt, startedAt, completedAt string
		if err := rows.Scan(&o.ID, &o.ProductType, &o.Quantity, &o.Produced, &o.Priority, &status, &o.Conveyor, &createdAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		o.Status = sched.Status(status)
		o.CreatedAt = parseTime(createdAt)
		o.StartedAt = parseTime(startedAt)
		o.CompletedAt = parseTime(completedAt)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// StoreProductionMetric records one produced-unit sample per conveyor.
func (db *DB) StoreProductionMetric(conveyor, orderID string, units int, efficiency float64) error {
	_, err := db.Exec(db.Q(`INSERT INTO production_metrics (conveyor, order_id, units, efficiency) VALUES (?, ?, ?, ?)`),
		conveyor, orderID, units, efficiency)
	return err
}
