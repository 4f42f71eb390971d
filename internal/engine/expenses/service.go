package expenses

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"invostock/internal/engine/sequence"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Service struct {
	db    *sql.DB
	codes *sequence.Generator
}

func NewService(db *sql.DB, codes *sequence.Generator) *Service {
	return &Service{db: db, codes: codes}
}

const selectExpense = `
	SELECT e.id, e.user_id, e.organization_id, e.code, e.category_id, COALESCE(c.name, ''), e.order_id,
		e.description, e.amount, e.expense_date, e.created_at, e.updated_at
	FROM expenses e
	LEFT JOIN expense_categories c ON c.id = e.category_id
`

func scan(row interface{ Scan(...any) error }) (*Expense, error) {
	e := &Expense{}
	var orgID, catID, orderID sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &orgID, &e.Code, &catID, &e.CategoryName, &orderID,
		&e.Description, &e.Amount, &e.ExpenseDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.OrganizationID = nullable(orgID)
	e.CategoryID = nullable(catID)
	e.OrderID = nullable(orderID)
	return e, nil
}

func nullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, f Filter) ([]*Expense, error) {
	query := selectExpense + ` WHERE `
	var args []any
	if f.CategoryID != nil {
		query += `e.category_id = ? AND `
		args = append(args, *f.CategoryID)
	}
	if f.From != "" {
		query += `e.expense_date >= ? AND `
		args = append(args, f.From)
	}
	if f.To != "" {
		query += `e.expense_date <= ? AND `
		args = append(args, f.To)
	}
	query += scope.Where("e") + ` ORDER BY e.expense_date DESC, e.id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Expense{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, id int64) (*Expense, error) {
	return get(ctx, s.db, scope, id)
}

func get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Expense, error) {
	e, err := scan(db.QueryRowContext(ctx, selectExpense+` WHERE e.id = ? AND `+scope.Where("e"), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *Service) Create(ctx context.Context, scope tenant.Scope, in Input) (*Expense, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	var id int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if in.CategoryID != nil {
			if err := checkCategory(ctx, tx, scope, *in.CategoryID); err != nil {
				return err
			}
		}
		var err error
		id, err = Insert(ctx, tx, s.codes, scope, &Expense{
			CategoryID:  in.CategoryID,
			Description: in.Description,
			Amount:      in.Amount,
			ExpenseDate: in.ExpenseDate,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// Insert stores e with a fresh TR code through tx and fills e.ID and e.Code.
func Insert(ctx context.Context, tx database.DBTX, codes *sequence.Generator, scope tenant.Scope, e *Expense) (int64, error) {
	date, err := time.Parse(time.DateOnly, e.ExpenseDate)
	if err != nil {
		return 0, fmt.Errorf("parsing expense date: %w", err)
	}
	code, err := codes.Next(ctx, tx, scope, sequence.KindExpense, date)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (user_id, organization_id, code, category_id, order_id, description, amount, expense_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scope.UserID, scope.OrgArg(), code, e.CategoryID, e.OrderID, e.Description, e.Amount.Round(2), e.ExpenseDate, now, now)
	if err != nil {
		return 0, fmt.Errorf("inserting expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return 0, err
	}
	e.Code = code
	return e.ID, nil
}

func (s *Service) Update(ctx context.Context, scope tenant.Scope, id int64, in Input) (*Expense, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if in.CategoryID != nil {
			if err := checkCategory(ctx, tx, scope, *in.CategoryID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE expenses SET category_id = ?, description = ?, amount = ?, expense_date = ?, updated_at = ?
			WHERE id = ? AND `+scope.Where(""),
			scope.Args(in.CategoryID, in.Description, in.Amount.Round(2), in.ExpenseDate, time.Now().Unix(), id)...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

func (s *Service) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// categoryVisible matches the tenant's own categories and the shared ones.
func categoryVisible(scope tenant.Scope) string {
	return `((organization_id IS NULL AND user_id IS NULL) OR ` + scope.Where("") + `)`
}

func (s *Service) Categories(ctx context.Context, scope tenant.Scope) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, (organization_id IS NULL AND user_id IS NULL)
		FROM expense_categories
		WHERE `+categoryVisible(scope)+`
		ORDER BY name COLLATE NOCASE
	`, scope.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Shared); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *Service) CreateCategory(ctx context.Context, scope tenant.Scope, in CategoryInput) (*Category, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var id int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var existing int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM expense_categories WHERE name = ? COLLATE NOCASE AND `+categoryVisible(scope)+` LIMIT 1
		`, scope.Args(name)...).Scan(&existing)
		if err == nil {
			return ErrCategoryExists
		}
		if err != sql.ErrNoRows {
			return err
		}
		id, err = insertCategory(ctx, tx, scope, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Category{ID: id, Name: name}, nil
}

func (s *Service) DeleteCategory(ctx context.Context, scope tenant.Scope, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var shared bool
		err := tx.QueryRowContext(ctx, `
			SELECT (organization_id IS NULL AND user_id IS NULL) FROM expense_categories
			WHERE id = ? AND `+categoryVisible(scope),
			scope.Args(id)...).Scan(&shared)
		if err == sql.ErrNoRows {
			return ErrCategoryNotFound
		}
		if err != nil {
			return err
		}
		if shared {
			return ErrSharedCategory
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM expense_categories WHERE id = ?`, id)
		return err
	})
}

// EnsureCategory returns the id of the tenant's category called name,
// creating it through tx when missing. Shared categories with that name are
// reused as well.
func EnsureCategory(ctx context.Context, tx database.DBTX, scope tenant.Scope, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM expense_categories WHERE name = ? AND `+categoryVisible(scope)+`
		ORDER BY user_id IS NULL, id LIMIT 1
	`, scope.Args(name)...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up category %q: %w", name, err)
	}
	return insertCategory(ctx, tx, scope, name)
}

func insertCategory(ctx context.Context, tx database.DBTX, scope tenant.Scope, name string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO expense_categories (user_id, organization_id, name, created_at) VALUES (?, ?, ?, ?)
	`, scope.UserID, scope.OrgArg(), name, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting category %q: %w", name, err)
	}
	return res.LastInsertId()
}

func checkCategory(ctx context.Context, tx database.DBTX, scope tenant.Scope, id int64) error {
	var found int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM expense_categories WHERE id = ? AND `+categoryVisible(scope), scope.Args(id)...).Scan(&found)
	if err == sql.ErrNoRows {
		return ErrCategoryNotFound
	}
	return err
}
