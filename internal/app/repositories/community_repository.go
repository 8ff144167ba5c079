package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

// Pool is what the community repository needs from *pgxpool.Pool.
type Pool interface {
	db.Querier
	db.TxStarter
}

var postColumns = []string{
	"id", "title", "content", "author_id", "category", "tags", "likes", "replies", "views",
	"is_pinned", "is_solved", "is_anonymous", "last_reply_by", "last_reply_at", "created_at", "updated_at",
}

var replyColumns = []string{
	"id", "post_id", "content", "author_id", "likes", "is_helpful", "is_solution", "created_at",
}

var reportColumns = []string{
	"id", "type", "post_id", "post_title", "reporter_id", "reporter_name", "reason", "status",
	"assigned_to", "resolution", "created_at",
}

var actionColumns = []string{
	"id", "type", "performed_by", "target_id", "target_type", "reason", "details", "created_at",
}

var memberColumns = []string{
	"id", "name", "email", "role", "status", "joined_at", "last_active",
	"posts_count", "replies_count", "reports_count", "warnings_count",
}

// CommunityRepository is the PostgreSQL side of the community store.
type CommunityRepository struct {
	pool Pool
	sb   squirrel.StatementBuilderType
}

var _ community.Persistence = (*CommunityRepository)(nil)

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(pool Pool) *CommunityRepository {
	return &CommunityRepository{
		pool: pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// upsert builds "INSERT ... ON CONFLICT (id) DO UPDATE" for every non key column.
func (r *CommunityRepository) upsert(table string, columns []string, values ...interface{}) (string, []interface{}, error) {
	suffix := "ON CONFLICT (id) DO UPDATE SET "
	for i, c := range columns[1:] {
		if i > 0 {
			suffix += ", "
		}
		suffix += c + " = EXCLUDED." + c
	}
	return r.sb.Insert(table).Columns(columns...).Values(values...).Suffix(suffix).ToSql()
}

func (r *CommunityRepository) exec(ctx context.Context, q db.Querier, what string, sql string, args []interface{}, err error) error {
	if err != nil {
		logger.Error().Err(err).Str("op", what).Msg("Error building community SQL")
		return fmt.Errorf("failed to build %s query: %w", what, err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("op", what).Msg("Error executing community query")
		return fmt.Errorf("error executing %s: %w", what, err)
	}
	return nil
}

func (r *CommunityRepository) savePost(ctx context.Context, q db.Querier, p community.Post) error {
	var lastBy *string
	var lastAt *time.Time
	if p.LastReply != nil {
		lastBy, lastAt = &p.LastReply.AuthorID, &p.LastReply.Timestamp
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	sql, args, err := r.upsert("community_posts", postColumns,
		p.ID, p.Title, p.Content, p.AuthorID, p.Category, tags, p.Likes, p.Replies, p.Views,
		p.IsPinned, p.IsSolved, p.IsAnonymous, lastBy, lastAt, p.CreatedAt, p.UpdatedAt)
	return r.exec(ctx, q, "save post", sql, args, err)
}

func (r *CommunityRepository) saveReply(ctx context.Context, q db.Querier, rep community.Reply) error {
	sql, args, err := r.upsert("community_replies", replyColumns,
		rep.ID, rep.PostID, rep.Content, rep.AuthorID, rep.Likes, rep.IsHelpful, rep.IsSolution, rep.CreatedAt)
	return r.exec(ctx, q, "save reply", sql, args, err)
}

func (r *CommunityRepository) saveLike(ctx context.Context, q db.Querier, table, column, id, userID string, liked bool) error {
	if liked {
		sql, args, err := r.sb.Insert(table).
			Columns(column, "user_id").
			Values(id, userID).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		return r.exec(ctx, q, "save like", sql, args, err)
	}
	sql, args, err := r.sb.Delete(table).Where(squirrel.Eq{column: id, "user_id": userID}).ToSql()
	return r.exec(ctx, q, "delete like", sql, args, err)
}

// SavePost upserts a post.
func (r *CommunityRepository) SavePost(ctx context.Context, post community.Post) error {
	return r.savePost(ctx, r.pool, post)
}

// SavePostLike writes the like set change and the new counter in one transaction.
func (r *CommunityRepository) SavePostLike(ctx context.Context, post community.Post, userID string, liked bool) error {
	return db.RunInTx(ctx, r.pool, logger.Get(), func(ctx context.Context, tx pgx.Tx) error {
		if err := r.saveLike(ctx, tx, "community_post_likes", "post_id", post.ID, userID, liked); err != nil {
			return err
		}
		return r.savePost(ctx, tx, post)
	})
}

// SaveReply upserts a reply together with the counters of its post.
func (r *CommunityRepository) SaveReply(ctx context.Context, reply community.Reply, post community.Post) error {
	return db.RunInTx(ctx, r.pool, logger.Get(), func(ctx context.Context, tx pgx.Tx) error {
		if err := r.savePost(ctx, tx, post); err != nil {
			return err
		}
		return r.saveReply(ctx, tx, reply)
	})
}

// SaveReplyLike writes the like set change and the new counter in one transaction.
func (r *CommunityRepository) SaveReplyLike(ctx context.Context, reply community.Reply, userID string, liked bool) error {
	return db.RunInTx(ctx, r.pool, logger.Get(), func(ctx context.Context, tx pgx.Tx) error {
		if err := r.saveLike(ctx, tx, "community_reply_likes", "reply_id", reply.ID, userID, liked); err != nil {
			return err
		}
		return r.saveReply(ctx, tx, reply)
	})
}

// SavePostViews raises the view counters of several posts in one transaction.
// GREATEST keeps a concurrent SavePost from being rolled back.
func (r *CommunityRepository) SavePostViews(ctx context.Context, views map[string]int) error {
	return db.RunInTx(ctx, r.pool, logger.Get(), func(ctx context.Context, tx pgx.Tx) error {
		for id, n := range views {
			sql, args, err := r.sb.Update("community_posts").
				Set("views", squirrel.Expr("GREATEST(views, ?)", n)).
				Where(squirrel.Eq{"id": id}).
				ToSql()
			if err := r.exec(ctx, tx, "save post views", sql, args, err); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePost removes a post. Replies and likes go with it through ON DELETE CASCADE.
func (r *CommunityRepository) DeletePost(ctx context.Context, postID string) error {
	sql, args, err := r.sb.Delete("community_posts").Where(squirrel.Eq{"id": postID}).ToSql()
	return r.exec(ctx, r.pool, "delete post", sql, args, err)
}

// SaveReport upserts a report.
func (r *CommunityRepository) SaveReport(ctx context.Context, rep community.Report) error {
	sql, args, err := r.upsert("community_reports", reportColumns,
		rep.ID, rep.Type, rep.PostID, rep.PostTitle, rep.ReporterID, rep.ReporterName, rep.Reason,
		rep.Status, rep.AssignedTo, rep.Resolution, rep.CreatedAt)
	return r.exec(ctx, r.pool, "save report", sql, args, err)
}

// SaveMember upserts the moderation record of a member.
func (r *CommunityRepository) SaveMember(ctx context.Context, m community.Member) error {
	sql, args, err := r.upsert("community_members", memberColumns,
		m.ID, m.Name, m.Email, m.Role, m.Status, m.JoinedAt, m.LastActive,
		m.PostsCount, m.RepliesCount, m.ReportsCount, m.WarningsCount)
	return r.exec(ctx, r.pool, "save member", sql, args, err)
}

// AppendAction inserts a moderation log entry. Entries are never updated.
func (r *CommunityRepository) AppendAction(ctx context.Context, a community.AdminAction) error {
	sql, args, err := r.sb.Insert("community_admin_actions").
		Columns(actionColumns...).
		Values(a.ID, a.Type, a.PerformedBy, a.TargetID, a.TargetType, a.Reason, a.Details, a.CreatedAt).
		ToSql()
	return r.exec(ctx, r.pool, "append action", sql, args, err)
}

// Snapshot loads the whole community state.
func (r *CommunityRepository) Snapshot(ctx context.Context) (*community.Snapshot, error) {
	snap := &community.Snapshot{}
	var err error

	if snap.Posts, err = r.posts(ctx); err != nil {
		return nil, err
	}
	if snap.Replies, err = r.replies(ctx); err != nil {
		return nil, err
	}
	if snap.PostLikes, err = r.likes(ctx, "community_post_likes", "post_id"); err != nil {
		return nil, err
	}
	if snap.ReplyLikes, err = r.likes(ctx, "community_reply_likes", "reply_id"); err != nil {
		return nil, err
	}
	if snap.Reports, err = r.reports(ctx); err != nil {
		return nil, err
	}
	if snap.Actions, err = r.actions(ctx); err != nil {
		return nil, err
	}
	if snap.Members, err = r.members(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *CommunityRepository) query(ctx context.Context, what string, b squirrel.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", what, err)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("op", what).Msg("Error querying community state")
		return nil, fmt.Errorf("error loading %s: %w", what, err)
	}
	return rows, nil
}

func (r *CommunityRepository) posts(ctx context.Context) ([]community.Post, error) {
	rows, err := r.query(ctx, "posts", r.sb.Select(postColumns...).From("community_posts").OrderBy("created_at DESC"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (community.Post, error) {
		var p community.Post
		var lastBy *string
		var lastAt *time.Time
		err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.Category, &p.Tags, &p.Likes,
			&p.Replies, &p.Views, &p.IsPinned, &p.IsSolved, &p.IsAnonymous, &lastBy, &lastAt,
			&p.CreatedAt, &p.UpdatedAt)
		if lastBy != nil && lastAt != nil {
			p.LastReply = &community.LastReply{AuthorID: *lastBy, Timestamp: *lastAt}
		}
		return p, err
	})
}

func (r *CommunityRepository) replies(ctx context.Context) ([]community.Reply, error) {
	rows, err := r.query(ctx, "replies", r.sb.Select(replyColumns...).From("community_replies").OrderBy("created_at"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (community.Reply, error) {
		var rep community.Reply
		err := row.Scan(&rep.ID, &rep.PostID, &rep.Content, &rep.AuthorID, &rep.Likes, &rep.IsHelpful,
			&rep.IsSolution, &rep.CreatedAt)
		return rep, err
	})
}

func (r *CommunityRepository) likes(ctx context.Context, table, column string) (map[string][]string, error) {
	rows, err := r.query(ctx, table, r.sb.Select("user_id", column).From(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var user, id string
		if err := rows.Scan(&user, &id); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", table, err)
		}
		out[user] = append(out[user], id)
	}
	return out, rows.Err()
}

func (r *CommunityRepository) reports(ctx context.Context) ([]community.Report, error) {
	rows, err := r.query(ctx, "reports", r.sb.Select(reportColumns...).From("community_reports").OrderBy("created_at"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (community.Report, error) {
		var rep community.Report
		err := row.Scan(&rep.ID, &rep.Type, &rep.PostID, &rep.PostTitle, &rep.ReporterID, &rep.ReporterName,
			&rep.Reason, &rep.Status, &rep.AssignedTo, &rep.Resolution, &rep.CreatedAt)
		return rep, err
	})
}

// actions come back oldest first, the order the store appends them in.
func (r *CommunityRepository) actions(ctx context.Context) ([]community.AdminAction, error) {
	rows, err := r.query(ctx, "actions", r.sb.Select(actionColumns...).From("community_admin_actions").OrderBy("created_at"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (community.AdminAction, error) {
		var a community.AdminAction
		err := row.Scan(&a.ID, &a.Type, &a.PerformedBy, &a.TargetID, &a.TargetType, &a.Reason, &a.Details, &a.CreatedAt)
		return a, err
	})
}

func (r *CommunityRepository) members(ctx context.Context) ([]community.Member, error) {
	rows, err := r.query(ctx, "members", r.sb.Select(memberColumns...).From("community_members"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (community.Member, error) {
		var m community.Member
		err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.Status, &m.JoinedAt, &m.LastActive,
			&m.PostsCount, &m.RepliesCount, &m.ReportsCount, &m.WarningsCount)
		return m, err
	})
}

// CommunityPreferences is the onboarding state of one user.
type CommunityPreferences struct {
	UserID                 string
	Interests              []string
	HasCompletedOnboarding bool
	CompletedAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// GetPreferences loads the preferences of userID. ok is false when none were saved yet.
func (r *CommunityRepository) GetPreferences(ctx context.Context, userID string) (prefs *CommunityPreferences, ok bool, err error) {
	sql, args, err := r.sb.Select("user_id", "interests", "has_completed_onboarding", "completed_at", "created_at", "updated_at").
		From("community_preferences").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build get preferences query: %w", err)
	}

	p := &CommunityPreferences{}
	err = r.pool.QueryRow(ctx, sql, args...).Scan(&p.UserID, &p.Interests, &p.HasCompletedOnboarding,
		&p.CompletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		logger.Error().Err(err).Str("userID", userID).Msg("Error scanning community preferences")
		return nil, false, fmt.Errorf("error retrieving preferences: %w", err)
	}
	return p, true, nil
}

// SavePreferences upserts the preferences of a user.
func (r *CommunityRepository) SavePreferences(ctx context.Context, p *CommunityPreferences) error {
	sql, args, err := r.sb.Insert("community_preferences").
		Columns("user_id", "interests", "has_completed_onboarding", "completed_at", "created_at", "updated_at").
		Values(p.UserID, p.Interests, p.HasCompletedOnboarding, p.CompletedAt, p.CreatedAt, p.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			interests = EXCLUDED.interests,
			has_completed_onboarding = EXCLUDED.has_completed_onboarding,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	return r.exec(ctx, r.pool, "save preferences", sql, args, err)
}

// ForumMemberCounts counts, per forum id, the users that selected it.
func (r *CommunityRepository) ForumMemberCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT forum, COUNT(*)
		FROM community_preferences, unnest(interests) AS forum
		GROUP BY forum`)
	if err != nil {
		logger.Error().Err(err).Msg("Error counting forum members")
		return nil, fmt.Errorf("error counting forum members: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var forum string
		var n int
		if err := rows.Scan(&forum, &n); err != nil {
			return nil, fmt.Errorf("error scanning forum member count: %w", err)
		}
		counts[forum] = n
	}
	return counts, rows.Err()
}
