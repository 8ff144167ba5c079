package community

import "time"

// SystemAuthorID authors platform content such as the welcome post.
const SystemAuthorID = "system"

// WelcomePostID is the id of the seeded welcome post.
const WelcomePostID = "welcome-post-1"

// Sort orders accepted by Posts.
const (
	SortRecent    = "recent"
	SortPopular   = "popular"
	SortDiscussed = "discussed"
	SortHelpful   = "helpful"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// LastReply points at the most recent reply of a post.
type LastReply struct {
	AuthorID  string    `json:"authorId"`
	Timestamp time.Time `json:"timestamp"`
}

// Post is a forum thread.
type Post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"authorId"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Likes       int        `json:"likes"`
	Replies     int        `json:"replies"`
	Views       int        `json:"views"`
	IsLiked     bool       `json:"isLiked"`
	IsPinned    bool       `json:"isPinned"`
	IsSolved    bool       `json:"isSolved"`
	IsAnonymous bool       `json:"isAnonymous"`
	LastReply   *LastReply `json:"lastReply,omitempty"`
}

// Reply answers a post.
type Reply struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	CreatedAt  time.Time `json:"createdAt"`
	Likes      int       `json:"likes"`
	IsLiked    bool      `json:"isLiked"`
	IsHelpful  bool      `json:"isHelpful"`
	IsSolution bool      `json:"isSolution"`
}

// ReportType classifies a report.
type ReportType string

const (
	ReportSpam          ReportType = "spam"
	ReportHarassment    ReportType = "harassment"
	ReportInappropriate ReportType = "inappropriate"
	ReportOffTopic      ReportType = "off-topic"
	ReportOther         ReportType = "other"
)

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewing ReportStatus = "reviewing"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report flags a post for moderators.
type Report struct {
	ID           string       `json:"id"`
	Type         ReportType   `json:"type"`
	PostID       string       `json:"postId"`
	PostTitle    string       `json:"postTitle"`
	ReporterID   string       `json:"reporterId"`
	ReporterName string       `json:"reporterName"`
	Reason       string       `json:"reason"`
	CreatedAt    time.Time    `json:"createdAt"`
	Status       ReportStatus `json:"status"`
	AssignedTo   *string      `json:"assignedTo,omitempty"`
	Resolution   *string      `json:"resolution,omitempty"`
}

// ActionType names a moderation action.
type ActionType string

const (
	ActionPostDeleted    ActionType = "post_deleted"
	ActionPostPinned     ActionType = "post_pinned"
	ActionPostUnpinned   ActionType = "post_unpinned"
	ActionUserWarned     ActionType = "user_warned"
	ActionUserBanned     ActionType = "user_banned"
	ActionUserUnbanned   ActionType = "user_unbanned"
	ActionReportResolved ActionType = "report_resolved"
)

// TargetType is the kind of record an action touched.
type TargetType string

const (
	TargetPost   TargetType = "post"
	TargetUser   TargetType = "user"
	TargetReport TargetType = "report"
)

// AdminAction is an append-only moderation log entry.
type AdminAction struct {
	ID          string     `json:"id"`
	Type        ActionType `json:"type"`
	PerformedBy string     `json:"performedBy"`
	TargetID    string     `json:"targetId"`
	TargetType  TargetType `json:"targetType"`
	Reason      string     `json:"reason"`
	Details     string     `json:"details"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MemberStatus is the standing of a member.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberWarned    MemberStatus = "warned"
	MemberSuspended MemberStatus = "suspended"
	MemberBanned    MemberStatus = "banned"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberWarned, MemberSuspended, MemberBanned:
		return true
	}
	return false
}

// Member is the moderation view of a user.
type Member struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Role          string       `json:"role"`
	Status        MemberStatus `json:"status"`
	JoinedAt      time.Time    `json:"joinedAt"`
	LastActive    time.Time    `json:"lastActive"`
	PostsCount    int          `json:"postsCount"`
	RepliesCount  int          `json:"repliesCount"`
	ReportsCount  int          `json:"reportsCount"`
	WarningsCount int          `json:"warningsCount"`
}

// MemberProfile is what RegisterMember needs to know about a user.
type MemberProfile struct {
	ID       string
	Name     string
	Email    string
	Role     string
	JoinedAt time.Time
}

// AuthorInfo is the public byline of a post or reply.
type AuthorInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Reputation  int    `json:"reputation"`
	IsOnline    bool   `json:"isOnline"`
	IsModerator bool   `json:"isModerator,omitempty"`
}

// Stats summarises forum activity.
type Stats struct {
	TotalPosts    int `json:"totalPosts"`
	TotalReplies  int `json:"totalReplies"`
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	ActiveToday   int `json:"activeToday"`
	OnlineNow     int `json:"onlineNow"`
	PostsToday    int `json:"postsToday"`
	PostsThisWeek int `json:"postsThisWeek"`
}

// CategoryStat is a category with its post count.
type CategoryStat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// UserStats is the community footprint of one user.
type UserStats struct {
	Posts      int `json:"posts"`
	Replies    int `json:"replies"`
	Likes      int `json:"likes"`
	Reputation int `json:"reputation"`
}

// AdminStats feeds the moderation dashboard.
type AdminStats struct {
	TotalPosts      int `json:"totalPosts"`
	TotalUsers      int `json:"totalUsers"`
	PendingReports  int `json:"pendingReports"`
	ResolvedReports int `json:"resolvedReports"`
	ActiveUsers     int `json:"activeUsers"`
	BannedUsers     int `json:"bannedUsers"`
	PostsThisWeek   int `json:"postsThisWeek"`
	ReportsThisWeek int `json:"reportsThisWeek"`
}

// NewPost is the input of CreatePost.
type NewPost struct {
	Title       string
	Content     string
	Category    string
	Tags        []string
	IsAnonymous bool
}

// NewReply is the input of CreateReply.
type NewReply struct {
	PostID  string
	Content string
}

// NewReport is the input of CreateReport.
type NewReport struct {
	PostID       string
	ReporterID   string
	ReporterName string
	Type         ReportType
	Reason       string
}

// PostQuery filters and pages Posts.
type PostQuery struct {
	Category string
	Sort     string
	Search   string
	ViewerID string
	Limit    int
	Offset   int
}

// Page is one slice of a sorted result with the total before paging.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Snapshot is the full persisted state used to hydrate a Store.
type Snapshot struct {
	Posts      []Post
	Replies    []Reply
	PostLikes  map[string][]string // userID -> postIDs
	ReplyLikes map[string][]string // userID -> replyIDs
	Reports    []Report
	Actions    []AdminAction
	Members    []Member
}
