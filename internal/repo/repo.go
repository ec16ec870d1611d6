package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tenureline/internal/domain"
	"tenureline/internal/tenure"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) UpsertOrder(ctx context.Context, tx *sql.Tx, o domain.Order, importedAt time.Time) error {
	details, err := json.Marshal(o.Details)
	if err != nil {
		return fmt.Errorf("marshal order details: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO orders(order_id,order_date,number,category,details_json,imported_at) VALUES (?,?,?,?,?,?)
		ON CONFLICT(order_id) DO UPDATE SET order_date=excluded.order_date,number=excluded.number,category=excluded.category,details_json=excluded.details_json,imported_at=excluded.imported_at`,
		o.OrderID, domain.FormatDate(o.Date), o.Number, o.Category, string(details),
		importedAt.UTC().Format(time.RFC3339))
	return err
}

func (r Repo) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT order_id,order_date,number,category,details_json FROM orders WHERE order_id=?`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT order_id,order_date,number,category,details_json FROM orders ORDER BY order_date,order_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (domain.Order, error) {
	var o domain.Order
	var date, details string
	if err := row.Scan(&o.OrderID, &date, &o.Number, &o.Category, &details); err != nil {
		return o, err
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return o, fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	o.Date = d
	if err := json.Unmarshal([]byte(details), &o.Details); err != nil {
		return o, fmt.Errorf("order %s details: %w", o.OrderID, err)
	}
	return o, nil
}

func (r Repo) UpsertOfficer(ctx context.Context, tx *sql.Tx, o domain.Officer, importedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO officers(officer_id,name,full_name,cadre,imported_at) VALUES (?,?,?,?,?)
		ON CONFLICT(officer_id) DO UPDATE SET name=excluded.name,full_name=excluded.full_name,cadre=excluded.cadre,imported_at=excluded.imported_at`,
		o.OfficerID, o.Name, o.FullName, o.Cadre, importedAt.UTC().Format(time.RFC3339))
	return err
}

func (r Repo) GetOfficer(ctx context.Context, id string) (domain.Officer, error) {
	var o domain.Officer
	err := r.DB.QueryRowContext(ctx, `SELECT officer_id,name,full_name,cadre FROM officers WHERE officer_id=?`, id).
		Scan(&o.OfficerID, &o.Name, &o.FullName, &o.Cadre)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) ListOfficers(ctx context.Context) ([]domain.Officer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT officer_id,name,full_name,cadre FROM officers ORDER BY officer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Officer
	for rows.Next() {
		var o domain.Officer
		if err := rows.Scan(&o.OfficerID, &o.Name, &o.FullName, &o.Cadre); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// ReplaceTenures swaps in a new build: all tenures and data errors from
// earlier runs are dropped and the given run becomes the current one.
func (r Repo) ReplaceTenures(ctx context.Context, tx *sql.Tx, runID string, tenures []domain.Tenure, errs []tenure.DataError) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tenures`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM data_errors`); err != nil {
		return err
	}
	for _, t := range tenures {
		managers, err := json.Marshal(emptyNotNil(t.ManagerIDs))
		if err != nil {
			return err
		}
		reportees, err := json.Marshal(emptyNotNil(t.ReporteeIDs))
		if err != nil {
			return err
		}
		infos, err := json.Marshal(t.AllOrderInfos)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO tenures(tenure_id,officer_id,post_id,role,start_date,start_order_id,start_detail_idx,end_date,end_order_id,end_detail_idx,manager_ids,reportee_ids,order_infos,run_id) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.TenureID, t.OfficerID, t.PostID, t.Role,
			domain.FormatDate(t.StartDate), t.StartOrderID, t.StartDetailIdx,
			domain.FormatDate(t.EndDate), t.EndOrderID, t.EndDetailIdx,
			string(managers), string(reportees), string(infos), runID)
		if err != nil {
			return err
		}
	}
	for _, e := range errs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO data_errors(kind,path,message,run_id) VALUES (?,?,?,?)`,
			e.Kind, e.Path, e.Message, runID); err != nil {
			return err
		}
	}
	return nil
}

const tenureCols = `tenure_id,officer_id,post_id,role,start_date,start_order_id,start_detail_idx,end_date,end_order_id,end_detail_idx,manager_ids,reportee_ids,order_infos`

func (r Repo) GetTenure(ctx context.Context, id string) (domain.Tenure, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+tenureCols+` FROM tenures WHERE tenure_id=?`, id)
	t, err := scanTenure(row)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// TenureFilters narrows ListTenures; zero values mean no filter.
type TenureFilters struct {
	OfficerID string
	PostID    string
	Role      string
}

func (r Repo) ListTenures(ctx context.Context, f TenureFilters) ([]domain.Tenure, error) {
	q := `SELECT ` + tenureCols + ` FROM tenures WHERE 1=1`
	var args []any
	if f.OfficerID != "" {
		q += ` AND officer_id=?`
		args = append(args, f.OfficerID)
	}
	if f.PostID != "" {
		q += ` AND post_id=?`
		args = append(args, f.PostID)
	}
	if f.Role != "" {
		q += ` AND role=?`
		args = append(args, f.Role)
	}
	q += ` ORDER BY officer_id,tenure_id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tenure
	for rows.Next() {
		t, err := scanTenure(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func scanTenure(row scannable) (domain.Tenure, error) {
	var t domain.Tenure
	var start, end, managers, reportees, infos string
	err := row.Scan(&t.TenureID, &t.OfficerID, &t.PostID, &t.Role,
		&start, &t.StartOrderID, &t.StartDetailIdx,
		&end, &t.EndOrderID, &t.EndDetailIdx,
		&managers, &reportees, &infos)
	if err != nil {
		return t, err
	}
	if t.StartDate, err = domain.ParseDate(start); err != nil {
		return t, fmt.Errorf("tenure %s: %w", t.TenureID, err)
	}
	if t.EndDate, err = domain.ParseDate(end); err != nil {
		return t, fmt.Errorf("tenure %s: %w", t.TenureID, err)
	}
	if err := json.Unmarshal([]byte(managers), &t.ManagerIDs); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(reportees), &t.ReporteeIDs); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(infos), &t.AllOrderInfos); err != nil {
		return t, err
	}
	return t, nil
}

// ErrorFilters narrows ListErrors; zero values mean no filter.
type ErrorFilters struct {
	Kind string
}

func (r Repo) ListErrors(ctx context.Context, f ErrorFilters) ([]tenure.DataError, error) {
	q := `SELECT kind,path,message FROM data_errors`
	var args []any
	if f.Kind != "" {
		q += ` WHERE kind=?`
		args = append(args, f.Kind)
	}
	q += ` ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []tenure.DataError
	for rows.Next() {
		var e tenure.DataError
		if err := rows.Scan(&e.Kind, &e.Path, &e.Message); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) CountErrorsByKind(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kind,COUNT(*) FROM data_errors GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		res[kind] = n
	}
	return res, rows.Err()
}

// LatestEvents returns the newest rows of the events table, newest first.
func (r Repo) LatestEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,COALESCE(run_id,''),entity_kind,COALESCE(entity_id,''),payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.RunID, &e.EntityKind, &e.EntityID, &e.PayloadJSON); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Event is one audit trail row.
type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts"`
	Type        string `json:"type"`
	RunID       string `json:"run_id,omitempty"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	PayloadJSON string `json:"payload_json"`
}

func emptyNotNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
