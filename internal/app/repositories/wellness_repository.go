package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

var goalColumns = []string{
	"id", "user_id", "name", "category", "current", "target", "unit", "week_start", "week_end",
	"is_completed", "is_overdue", "completed_at", "created_at", "updated_at",
}

// WellnessRepository stores wellness check-ins and weekly goals.
type WellnessRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewWellnessRepository creates a new WellnessRepository
func NewWellnessRepository(q db.Querier) *WellnessRepository {
	return &WellnessRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *WellnessRepository) insert(ctx context.Context, table string, columns []string, values ...interface{}) error {
	sql, args, err := r.sb.Insert(table).Columns(columns...).Values(values...).ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error building insert SQL")
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error executing insert query")
		return fmt.Errorf("error inserting into %s: %w", table, err)
	}
	return nil
}

// CreateMood stores a mood entry.
func (r *WellnessRepository) CreateMood(ctx context.Context, e *models.MoodEntry) error {
	return r.insert(ctx, "mood_entries",
		[]string{"id", "user_id", "mood_score", "tags", "notes", "created_at"},
		e.ID, e.UserID, e.MoodScore, e.Tags, e.Notes, e.CreatedAt)
}

// CreateStress stores a stress entry.
func (r *WellnessRepository) CreateStress(ctx context.Context, e *models.StressEntry) error {
	return r.insert(ctx, "stress_entries",
		[]string{"id", "user_id", "stress_level", "triggers", "symptoms", "coping_used", "notes", "created_at"},
		e.ID, e.UserID, e.StressLevel, e.Triggers, e.Symptoms, e.CopingUsed, e.Notes, e.CreatedAt)
}

// CreateSleep stores a sleep entry.
func (r *WellnessRepository) CreateSleep(ctx context.Context, e *models.SleepEntry) error {
	return r.insert(ctx, "sleep_entries",
		[]string{"id", "user_id", "sleep_quality", "hours_slept", "bed_time", "wake_time", "sleep_issues", "factors", "notes", "created_at"},
		e.ID, e.UserID, e.SleepQuality, e.HoursSlept, e.BedTime, e.WakeTime, e.SleepIssues, e.Factors, e.Notes, e.CreatedAt)
}

// CreateSocial stores a social connection entry.
func (r *WellnessRepository) CreateSocial(ctx context.Context, e *models.SocialEntry) error {
	return r.insert(ctx, "social_entries",
		[]string{"id", "user_id", "connection_quality", "interactions", "activities", "feelings", "notes", "created_at"},
		e.ID, e.UserID, e.ConnectionQuality, e.Interactions, e.Activities, e.Feelings, e.Notes, e.CreatedAt)
}

func (r *WellnessRepository) since(table string, columns []string, userID string, since time.Time, limit uint64) (string, []interface{}, error) {
	q := r.sb.Select(columns...).
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q.ToSql()
}

// MoodSince lists mood entries newer than since, newest first. limit 0 means no limit.
func (r *WellnessRepository) MoodSince(ctx context.Context, userID string, since time.Time, limit uint64) ([]models.MoodEntry, error) {
	sql, args, err := r.since("mood_entries",
		[]string{"id", "user_id", "mood_score", "tags", "notes", "created_at"}, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build mood history query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error querying mood entries")
		return nil, fmt.Errorf("error querying mood entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MoodEntry, error) {
		var e models.MoodEntry
		err := row.Scan(&e.ID, &e.UserID, &e.MoodScore, &e.Tags, &e.Notes, &e.CreatedAt)
		return e, err
	})
}

// StressSince lists stress entries newer than since, newest first. limit 0 means no limit.
func (r *WellnessRepository) StressSince(ctx context.Context, userID string, since time.Time, limit uint64) ([]models.StressEntry, error) {
	sql, args, err := r.since("stress_entries",
		[]string{"id", "user_id", "stress_level", "triggers", "symptoms", "coping_used", "notes", "created_at"}, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build stress history query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error querying stress entries")
		return nil, fmt.Errorf("error querying stress entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StressEntry, error) {
		var e models.StressEntry
		err := row.Scan(&e.ID, &e.UserID, &e.StressLevel, &e.Triggers, &e.Symptoms, &e.CopingUsed, &e.Notes, &e.CreatedAt)
		return e, err
	})
}

// SleepSince lists sleep entries newer than since, newest first.
func (r *WellnessRepository) SleepSince(ctx context.Context, userID string, since time.Time) ([]models.SleepEntry, error) {
	sql, args, err := r.since("sleep_entries",
		[]string{"id", "user_id", "sleep_quality", "hours_slept", "bed_time", "wake_time", "sleep_issues", "factors", "notes", "created_at"}, userID, since, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build sleep history query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error querying sleep entries")
		return nil, fmt.Errorf("error querying sleep entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SleepEntry, error) {
		var e models.SleepEntry
		err := row.Scan(&e.ID, &e.UserID, &e.SleepQuality, &e.HoursSlept, &e.BedTime, &e.WakeTime,
			&e.SleepIssues, &e.Factors, &e.Notes, &e.CreatedAt)
		return e, err
	})
}

// CountMood counts all mood entries of a user.
func (r *WellnessRepository) CountMood(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM mood_entries WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error counting mood entries")
		return 0, fmt.Errorf("error counting mood entries: %w", err)
	}
	return count, nil
}

func scanGoal(row pgx.Row) (models.WeeklyGoal, error) {
	var g models.WeeklyGoal
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Category, &g.Current, &g.Target, &g.Unit,
		&g.WeekStart, &g.WeekEnd, &g.IsCompleted, &g.IsOverdue, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// CreateGoal stores a weekly goal.
func (r *WellnessRepository) CreateGoal(ctx context.Context, g *models.WeeklyGoal) error {
	return r.insert(ctx, "weekly_goals", goalColumns,
		g.ID, g.UserID, g.Name, g.Category, g.Current, g.Target, g.Unit, g.WeekStart, g.WeekEnd,
		g.IsCompleted, g.IsOverdue, g.CompletedAt, g.CreatedAt, g.UpdatedAt)
}

// Goals lists the goals of a user, current week first.
func (r *WellnessRepository) Goals(ctx context.Context, userID string) ([]models.WeeklyGoal, error) {
	sql, args, err := r.sb.Select(goalColumns...).
		From("weekly_goals").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("week_start DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build goals query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error querying goals")
		return nil, fmt.Errorf("error querying goals: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WeeklyGoal, error) {
		return scanGoal(row)
	})
}

// Goal loads one goal owned by userID.
func (r *WellnessRepository) Goal(ctx context.Context, userID, goalID string) (*models.WeeklyGoal, error) {
	sql, args, err := r.sb.Select(goalColumns...).
		From("weekly_goals").
		Where(squirrel.Eq{"id": goalID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build goal query: %w", err)
	}
	g, err := scanGoal(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrGoalNotFound
		}
		logger.Error().Err(err).Str("goalID", goalID).Msg("Error scanning goal row")
		return nil, fmt.Errorf("error retrieving goal: %w", err)
	}
	return &g, nil
}

// UpdateGoalProgress writes the progress fields of g.
func (r *WellnessRepository) UpdateGoalProgress(ctx context.Context, g *models.WeeklyGoal) error {
	sql, args, err := r.sb.Update("weekly_goals").
		Set("current", g.Current).
		Set("is_completed", g.IsCompleted).
		Set("completed_at", g.CompletedAt).
		Set("updated_at", g.UpdatedAt).
		Where(squirrel.Eq{"id": g.ID, "user_id": g.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build goal update query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("goalID", g.ID).Msg("Error updating goal")
		return fmt.Errorf("error updating goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrGoalNotFound
	}
	return nil
}

// GoalCounts returns the number of open and completed goals of a user.
func (r *WellnessRepository) GoalCounts(ctx context.Context, userID string) (active, completed int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_completed),
			COUNT(*) FILTER (WHERE is_completed)
		FROM weekly_goals WHERE user_id = $1`, userID).Scan(&active, &completed)
	if err != nil {
		logger.Error().Err(err).Str("userID", userID).Msg("Error counting goals")
		return 0, 0, fmt.Errorf("error counting goals: %w", err)
	}
	return active, completed, nil
}

// MarkOverdue flags open goals whose week ended before now and returns them grouped by
// owner. Each goal is returned once.
func (r *WellnessRepository) MarkOverdue(ctx context.Context, now time.Time) ([]models.OverdueGoals, error) {
	rows, err := r.db.Query(ctx, `
		WITH flagged AS (
			UPDATE weekly_goals
			SET is_overdue = TRUE, updated_at = $1
			WHERE NOT is_completed AND NOT is_overdue AND week_end < $1
			RETURNING `+strings.Join(goalColumns, ", ")+`
		)
		SELECT f.*, u.email, COALESCE(u.full_name, u.username)
		FROM flagged f
		JOIN users u ON u.id = f.user_id
		ORDER BY f.user_id, f.week_end`, now)
	if err != nil {
		logger.Error().Err(err).Msg("Error flagging overdue goals")
		return nil, fmt.Errorf("error flagging overdue goals: %w", err)
	}
	defer rows.Close()

	var out []models.OverdueGoals
	for rows.Next() {
		var g models.WeeklyGoal
		var email, name string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Category, &g.Current, &g.Target, &g.Unit,
			&g.WeekStart, &g.WeekEnd, &g.IsCompleted, &g.IsOverdue, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt,
			&email, &name); err != nil {
			return nil, fmt.Errorf("error scanning overdue goal: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].UserID != g.UserID {
			out = append(out, models.OverdueGoals{UserID: g.UserID, Email: email, Name: name})
		}
		out[len(out)-1].Goals = append(out[len(out)-1].Goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overdue goals: %w", err)
	}
	return out, nil
}
