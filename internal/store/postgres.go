package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// PostgresRepo implements Repo on a server-side PostgreSQL database
// (managed deployments use a Neon-style DATABASE_URL).
type PostgresRepo struct{ db *sqlx.DB }

// OpenPostgres connects to Postgres, verifies the connection and ensures
// the schema exists. sslmode=require is appended when the URL has none.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepo, error) {
	if !strings.Contains(databaseURL, "sslmode=") {
		sep := "?"
		if strings.Contains(databaseURL, "?") {
			sep = "&"
		}
		databaseURL = strings.TrimRight(databaseURL, "?&") + sep + "sslmode=require"
	}

	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := initPostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &PostgresRepo{db: db}, nil
}

func initPostgresSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			name TEXT,
			weight REAL,
			height REAL,
			age INTEGER,
			gender TEXT,
			activity TEXT,
			goal TEXT,
			target_weight REAL,
			calories_goal INTEGER,
			protein_goal REAL,
			fat_goal REAL,
			carbs_goal REAL,
			water_goal INTEGER,
			pace TEXT,
			reminders_enabled INTEGER,
			reminders_per_day INTEGER,
			reengage_enabled INTEGER,
			progress_enabled INTEGER,
			week_status_enabled INTEGER,
			last_activity_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS meals (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name TEXT,
			calories INTEGER NOT NULL DEFAULT 0,
			protein REAL NOT NULL DEFAULT 0,
			fat REAL NOT NULL DEFAULT 0,
			carbs REAL NOT NULL DEFAULT 0,
			date DATE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meals_user_date ON meals (user_id, date)`,
		`CREATE TABLE IF NOT EXISTS notification_log (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			category TEXT NOT NULL,
			date DATE NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_log_key
			ON notification_log (user_id, category, date)`,
		`CREATE TABLE IF NOT EXISTS sent_log (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			category TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL,
			date DATE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_log_user_cat ON sent_log (user_id, category, sent_at)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepo) Close() error { return r.db.Close() }

func (r *PostgresRepo) ListEligibleUsers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM users
		WHERE calories_goal IS NOT NULL AND calories_goal > 0
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type pgProfileRow struct {
	UserID            int64           `db:"user_id"`
	Name              sql.NullString  `db:"name"`
	Goal              sql.NullString  `db:"goal"`
	CaloriesGoal      sql.NullInt64   `db:"calories_goal"`
	ProteinGoal       sql.NullFloat64 `db:"protein_goal"`
	FatGoal           sql.NullFloat64 `db:"fat_goal"`
	CarbsGoal         sql.NullFloat64 `db:"carbs_goal"`
	RemindersEnabled  sql.NullInt64   `db:"reminders_enabled"`
	RemindersPerDay   sql.NullInt64   `db:"reminders_per_day"`
	ReengageEnabled   sql.NullInt64   `db:"reengage_enabled"`
	ProgressEnabled   sql.NullInt64   `db:"progress_enabled"`
	WeekStatusEnabled sql.NullInt64   `db:"week_status_enabled"`
	LastActivityAt    sql.NullTime    `db:"last_activity_at"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r *PostgresRepo) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	var row pgProfileRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, name, goal,
		       calories_goal, protein_goal, fat_goal, carbs_goal,
		       reminders_enabled, reminders_per_day,
		       reengage_enabled, progress_enabled, week_status_enabled,
		       last_activity_at, created_at
		FROM users
		WHERE user_id = $1`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var lastAct *time.Time
	if row.LastActivityAt.Valid {
		t := row.LastActivityAt.Time
		lastAct = &t
	}
	return &domain.UserProfile{
		UserID:            row.UserID,
		Name:              nzString(row.Name),
		Goal:              nzString(row.Goal),
		CaloriesGoal:      nzInt(row.CaloriesGoal),
		ProteinGoal:       nzFloat(row.ProteinGoal),
		FatGoal:           nzFloat(row.FatGoal),
		CarbsGoal:         nzFloat(row.CarbsGoal),
		RemindersEnabled:  flagOn(row.RemindersEnabled),
		RemindersPerDay:   domain.ClampRemindersPerDay(nzInt(row.RemindersPerDay)),
		ReengageEnabled:   flagOn(row.ReengageEnabled),
		ProgressEnabled:   flagOn(row.ProgressEnabled),
		WeekStatusEnabled: flagOn(row.WeekStatusEnabled),
		LastActivityAt:    lastAct,
		CreatedAt:         row.CreatedAt,
	}, nil
}

func (r *PostgresRepo) DailyTotals(ctx context.Context, userID int64, day time.Time) (domain.DailyTotals, error) {
	var t domain.DailyTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
		       COALESCE(SUM(fat), 0), COALESCE(SUM(carbs), 0)
		FROM meals
		WHERE user_id = $1 AND date = $2`,
		userID, domain.DateKey(day),
	).Scan(&t.Calories, &t.Protein, &t.Fat, &t.Carbs)
	if err != nil {
		return domain.DailyTotals{}, err
	}
	return t, nil
}

func (r *PostgresRepo) MealsOn(ctx context.Context, userID int64, day time.Time) ([]domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, calories, protein, fat, carbs, created_at
		FROM meals
		WHERE user_id = $1 AND date = $2
		ORDER BY id`,
		userID, domain.DateKey(day),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []domain.MealEntry
	for rows.Next() {
		m, err := scanPGMeal(rows, day)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func (r *PostgresRepo) LastMealOn(ctx context.Context, userID int64, day time.Time) (*domain.MealEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, calories, protein, fat, carbs, created_at
		FROM meals
		WHERE user_id = $1 AND date = $2
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
	m, err := scanPGMeal(rows, day)
	if err != nil {
		return nil, err
	}
	return &m, rows.Err()
}

func scanPGMeal(rows *sql.Rows, day time.Time) (domain.MealEntry, error) {
	var (
		m       domain.MealEntry
		name    sql.NullString
		created sql.NullTime
	)
	if err := rows.Scan(&m.ID, &m.UserID, &name, &m.Calories, &m.Protein, &m.Fat, &m.Carbs, &created); err != nil {
		return domain.MealEntry{}, err
	}
	m.Name = nzString(name)
	m.Date = domain.Midnight(day)
	if created.Valid {
		m.LoggedAt = created.Time
	}
	return m, nil
}

func (r *PostgresRepo) WeeklyTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date::text, COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
		       COALESCE(SUM(fat), 0), COALESCE(SUM(carbs), 0)
		FROM meals
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
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

func (r *PostgresRepo) WasNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_log
		WHERE user_id = $1 AND category = $2 AND date = $3`,
		userID, string(cat), domain.DateKey(day),
	).Scan(&n)
	return n > 0, err
}

func (r *PostgresRepo) RecordNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_log (user_id, category, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, category, date) DO NOTHING`,
		userID, string(cat), domain.DateKey(day),
	)
	return err
}

func (r *PostgresRepo) LastSentAt(ctx context.Context, userID int64, cat domain.Category) (*time.Time, error) {
	var ts sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT sent_at FROM sent_log
		WHERE user_id = $1 AND category = $2
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
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}

func (r *PostgresRepo) RecordSentAt(ctx context.Context, userID int64, cat domain.Category, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sent_log (user_id, category, sent_at, date)
		VALUES ($1, $2, $3, $4)`,
		userID, string(cat), at, domain.DateKey(at),
	)
	return err
}

func (r *PostgresRepo) CountSentToday(ctx context.Context, userID int64, cat domain.Category, day time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sent_log
		WHERE user_id = $1 AND category = $2 AND date = $3`,
		userID, string(cat), domain.DateKey(day),
	).Scan(&n)
	return n, err
}
