package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database. Used for
// local runs and development; production deployments point DATABASE_URL at
// Postgres instead.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// ListEligibleUsers returns users with a configured calorie goal.
func (r *SQLiteRepo) ListEligibleUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM users
		WHERE calories_goal IS NOT NULL AND calories_goal > 0
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepo) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, goal,
		       calories_goal, protein_goal, fat_goal, carbs_goal,
		       reminders_enabled, reminders_per_day,
		       reengage_enabled, progress_enabled, week_status_enabled,
		       last_activity_at, created_at
		FROM users
		WHERE user_id = ?`,
		userID,
	)

	var (
		id        int64
		name      sql.NullString
		goal      sql.NullString
		calGoal   sql.NullInt64
		protGoal  sql.NullFloat64
		fatGoal   sql.NullFloat64
		carbGoal  sql.NullFloat64
		remOn     sql.NullInt64
		remPerDay sql.NullInt64
		reengOn   sql.NullInt64
		progOn    sql.NullInt64
		weekOn    sql.NullInt64
		lastAct   sql.NullInt64
		createdAt int64
	)

	if err := row.Scan(
		&id, &name, &goal, &calGoal, &protGoal, &fatGoal, &carbGoal,
		&remOn, &remPerDay, &reengOn, &progOn, &weekOn, &lastAct, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &domain.UserProfile{
		UserID:            id,
		Name:              nzString(name),
		Goal:              nzString(goal),
		CaloriesGoal:      nzInt(calGoal),
		ProteinGoal:       nzFloat(protGoal),
		FatGoal:           nzFloat(fatGoal),
		CarbsGoal:         nzFloat(carbGoal),
		RemindersEnabled:  flagOn(remOn),
		RemindersPerDay:   domain.ClampRemindersPerDay(nzInt(remPerDay)),
		ReengageEnabled:   flagOn(reengOn),
		ProgressEnabled:   flagOn(progOn),
		WeekStatusEnabled: flagOn(weekOn),
		LastActivityAt:    fromNullInt64(lastAct),
		CreatedAt:         time.Unix(createdAt, 0),
	}, nil
}

func (r *SQLiteRepo) DailyTotals(ctx context.Context, userID int64, day time.Time) (domain.DailyTotals, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
		       COALESCE(SUM(fat), 0), COALESCE(SUM(carbs), 0)
		FROM meals
		WHERE user_id = ? AND date = ?`,
		userID, domain.DateKey(day),
	)

	var t domain.DailyTotals
	if err := row.Scan(&t.Calories, &t.Protein, &t.Fat, &t.Carbs); err != nil {
		return domain.DailyTotals{}, err
	}
	return t, nil
}

func (r *SQLiteRepo) MealsOn(ctx context.Context, userID int64, day time.Time) ([]domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, calories, protein, fat, carbs, created_at
		FROM meals
		WHERE user_id = ? AND date = ?
		ORDER BY id`,
		userID, domain.DateKey(day),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []domain.MealEntry
	for rows.Next() {
		m, err := scanMeal(rows, day)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func (r *SQLiteRepo) LastMealOn(ctx context.Context, userID int64, day time.Time) (*domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, calories, protein, fat, carbs, created_at
		FROM meals
		WHERE user_id = ? AND date = ?
		ORDER BY id DESC
		LIMIT 1`,
		userID, domain.DateKey(day),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	m, err := scanMeal(rows, day)
	if err != nil {
		return nil, err
	}
	return &m, rows.Err()
}

func scanMeal(rows *sql.Rows, day time.Time) (domain.MealEntry, error) {
	var (
		m       domain.MealEntry
		name    sql.NullString
		created sql.NullInt64
	)
	if err := rows.Scan(&m.ID, &m.UserID, &name, &m.Calories, &m.Protein, &m.Fat, &m.Carbs, &created); err != nil {
		return domain.MealEntry{}, err
	}
	m.Name = nzString(name)
	m.Date = domain.Midnight(day)
	// A missing timestamp degrades to "no last-meal context" downstream.
	if created.Valid {
		m.LoggedAt = time.Unix(created.Int64, 0)
	}
	return m, nil
}

func (r *SQLiteRepo) WeeklyTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
		       COALESCE(SUM(fat), 0), COALESCE(SUM(carbs), 0)
		FROM meals
		WHERE user_id = ? AND date BETWEEN ? AND ?
		GROUP BY date
		ORDER BY date`,
		userID, domain.DateKey(from), domain.DateKey(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.DayTotals
	for rows.Next() {
		var d domain.DayTotals
		if err := rows.Scan(&d.Date, &d.Calories, &d.Protein, &d.Fat, &d.Carbs); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) WasNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_log
		WHERE user_id = ? AND category = ? AND date = ?`,
		userID, string(cat), domain.DateKey(day),
	).Scan(&n)
	return n > 0, err
}

func (r *SQLiteRepo) RecordNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_log (user_id, category, date)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, category, date) DO NOTHING`,
		userID, string(cat), domain.DateKey(day),
	)
	return err
}

func (r *SQLiteRepo) LastSentAt(ctx context.Context, userID int64, cat domain.Category) (*time.Time, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT sent_at FROM sent_log
		WHERE user_id = ? AND category = ?
		ORDER BY sent_at DESC
		LIMIT 1`,
		userID, string(cat),
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromNullInt64(ts), nil
}

func (r *SQLiteRepo) RecordSentAt(ctx context.Context, userID int64, cat domain.Category, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sent_log (user_id, category, sent_at, date)
		VALUES (?, ?, ?, ?)`,
		userID, string(cat), at.Unix(), domain.DateKey(at),
	)
	return err
}

func (r *SQLiteRepo) CountSentToday(ctx context.Context, userID int64, cat domain.Category, day time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sent_log
		WHERE user_id = ? AND category = ? AND date = ?`,
		userID, string(cat), domain.DateKey(day),
	).Scan(&n)
	return n, err
}
