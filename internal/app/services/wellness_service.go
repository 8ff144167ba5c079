package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/pkg/email"
	"github.com/yigit/campuswell/internal/pkg/helpers"
	"github.com/yigit/campuswell/internal/security/sanitize"
)

const (
	defaultHistoryDays = 30
	insightWindow      = 30 * 24 * time.Hour
	bannerSampleSize   = 7
	trendThreshold     = 0.1
	maxBanners         = 3
	maxTopTags         = 5
)

// WellnessStore is the persistence the wellness service needs.
type WellnessStore interface {
	CreateMood(ctx context.Context, e *models.MoodEntry) error
	CreateStress(ctx context.Context, e *models.StressEntry) error
	CreateSleep(ctx context.Context, e *models.SleepEntry) error
	CreateSocial(ctx context.Context, e *models.SocialEntry) error
	MoodSince(ctx context.Context, userID string, since time.Time, limit uint64) ([]models.MoodEntry, error)
	StressSince(ctx context.Context, userID string, since time.Time, limit uint64) ([]models.StressEntry, error)
	SleepSince(ctx context.Context, userID string, since time.Time) ([]models.SleepEntry, error)
	CreateGoal(ctx context.Context, g *models.WeeklyGoal) error
	Goals(ctx context.Context, userID string) ([]models.WeeklyGoal, error)
	Goal(ctx context.Context, userID, goalID string) (*models.WeeklyGoal, error)
	UpdateGoalProgress(ctx context.Context, g *models.WeeklyGoal) error
	MarkOverdue(ctx context.Context, now time.Time) ([]models.OverdueGoals, error)
}

// PostCounter counts community posts of a member.
type PostCounter interface {
	PostsSince(userID string, since time.Time) int
}

// UserLookup resolves the owner of a goal for notifications.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// WellnessService records check-ins and derives banners, insights and goal progress.
type WellnessService struct {
	store  WellnessStore
	users  UserLookup
	posts  PostCounter
	mailer email.EmailService
	now    func() time.Time
	logger zerolog.Logger
}

// NewWellnessService creates a new WellnessService
func NewWellnessService(store WellnessStore, users UserLookup, posts PostCounter, mailer email.EmailService, logger zerolog.Logger) *WellnessService {
	return &WellnessService{
		store:  store,
		users:  users,
		posts:  posts,
		mailer: mailer,
		now:    time.Now,
		logger: logger,
	}
}

func cleanNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	clean := sanitize.Text(*notes, 500)
	if clean == "" {
		return nil
	}
	return &clean
}

// CreateMoodEntry records a mood check-in.
func (s *WellnessService) CreateMoodEntry(ctx context.Context, userID string, req *dto.CreateMoodEntryRequest) (*models.MoodEntry, error) {
	entry := &models.MoodEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MoodScore: req.MoodScore,
		Tags:      cleanList(req.Tags, 30),
		Notes:     cleanNotes(req.Notes),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMood(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateStressEntry records a stress check-in.
func (s *WellnessService) CreateStressEntry(ctx context.Context, userID string, req *dto.CreateStressEntryRequest) (*models.StressEntry, error) {
	entry := &models.StressEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		StressLevel: req.StressLevel,
		Triggers:    cleanList(req.Triggers, 50),
		Symptoms:    cleanList(req.Symptoms, 50),
		CopingUsed:  cleanList(req.CopingUsed, 50),
		Notes:       cleanNotes(req.Notes),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateStress(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateSleepEntry records a night of sleep.
func (s *WellnessService) CreateSleepEntry(ctx context.Context, userID string, req *dto.CreateSleepEntryRequest) (*models.SleepEntry, error) {
	entry := &models.SleepEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		SleepQuality: req.SleepQuality,
		HoursSlept:   req.HoursSlept,
		BedTime:      cleanNotes(req.BedTime),
		WakeTime:     cleanNotes(req.WakeTime),
		SleepIssues:  cleanList(req.SleepIssues, 50),
		Factors:      cleanList(req.Factors, 50),
		Notes:        cleanNotes(req.Notes),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateSleep(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateSocialEntry records a social connection check-in.
func (s *WellnessService) CreateSocialEntry(ctx context.Context, userID string, req *dto.CreateSocialEntryRequest) (*models.SocialEntry, error) {
	entry := &models.SocialEntry{
		ID:                uuid.NewString(),
		UserID:            userID,
		ConnectionQuality: req.ConnectionQuality,
		Interactions:      cleanList(req.Interactions, 50),
		Activities:        cleanList(req.Activities, 50),
		Feelings:          cleanList(req.Feelings, 50),
		Notes:             cleanNotes(req.Notes),
		CreatedAt:         s.now().UTC(),
	}
	if err := s.store.CreateSocial(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// MoodHistory lists the mood entries of the last days (30 when days <= 0), newest first.
func (s *WellnessService) MoodHistory(ctx context.Context, userID string, days int) (*dto.MoodHistoryResponse, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	since := helpers.DaysAgo(s.now().UTC(), days)

	entries, err := s.store.MoodSince(ctx, userID, since, 0)
	if err != nil {
		return nil, err
	}
	return &dto.MoodHistoryResponse{
		Days:    days,
		Since:   since,
		Entries: entries,
		Average: average(lo.Map(entries, func(e models.MoodEntry, _ int) float64 { return float64(e.MoodScore) })),
	}, nil
}

// Banners derives up to three dashboard banners from the seven most recent stress and
// mood entries, highest priority first.
func (s *WellnessService) Banners(ctx context.Context, userID string) ([]models.WellnessBanner, error) {
	stress, err := s.store.StressSince(ctx, userID, time.Time{}, bannerSampleSize)
	if err != nil {
		return nil, err
	}
	moods, err := s.store.MoodSince(ctx, userID, time.Time{}, bannerSampleSize)
	if err != nil {
		return nil, err
	}
	return buildBanners(stress, moods), nil
}

func buildBanners(stress []models.StressEntry, moods []models.MoodEntry) []models.WellnessBanner {
	banners := make([]models.WellnessBanner, 0, maxBanners)

	if avg := average(lo.Map(stress, func(e models.StressEntry, _ int) float64 { return e.NormalizedScore() })); avg != nil {
		switch {
		case *avg > 0.7:
			banners = append(banners, models.WellnessBanner{
				ID:       "high-stress",
				Type:     models.BannerSupport,
				Title:    "We notice you might be feeling stressed",
				Message:  "Remember, it's okay to take breaks. Consider trying some relaxation techniques or reaching out to someone you trust.",
				Action:   models.BannerAction{Text: "View Resources", Link: "/resources?category=mental-health"},
				Priority: models.PriorityHigh,
			})
		case *avg > 0.5:
			banners = append(banners, models.WellnessBanner{
				ID:       "moderate-stress",
				Type:     models.BannerTip,
				Title:    "Taking care of yourself",
				Message:  "You're doing great! Remember to maintain healthy habits like regular sleep and exercise.",
				Action:   models.BannerAction{Text: "Mood Check-in", Link: "/wellness/mood"},
				Priority: models.PriorityMedium,
			})
		}
	}

	if avg := average(lo.Map(moods, func(e models.MoodEntry, _ int) float64 { return float64(e.MoodScore) })); avg != nil && *avg < 3 {
		banners = append(banners, models.WellnessBanner{
			ID:       "low-mood",
			Type:     models.BannerSupport,
			Title:    "You're not alone",
			Message:  "It looks like you've been having a tough time. Consider connecting with friends or exploring our support resources.",
			Action:   models.BannerAction{Text: "Find Support", Link: "/resources?category=crisis-support"},
			Priority: models.PriorityHigh,
		})
	}

	if len(moods) >= 5 {
		banners = append(banners, models.WellnessBanner{
			ID:       "mood-tracking-positive",
			Type:     models.BannerCelebration,
			Title:    "Great job tracking your mood!",
			Message:  "You've been consistently checking in with yourself. That's a wonderful self-care habit.",
			Action:   models.BannerAction{Text: "View Progress", Link: "/wellness/mood/history"},
			Priority: models.PriorityLow,
		})
	}

	sort.SliceStable(banners, func(i, j int) bool {
		return banners[i].PriorityRank() > banners[j].PriorityRank()
	})
	if len(banners) > maxBanners {
		banners = banners[:maxBanners]
	}
	return banners
}

// Insights summarises the last 30 days of check-ins.
func (s *WellnessService) Insights(ctx context.Context, userID string) (*models.WellnessInsights, error) {
	now := s.now().UTC()
	since := now.Add(-insightWindow)

	moods, err := s.store.MoodSince(ctx, userID, since, 0)
	if err != nil {
		return nil, err
	}
	stress, err := s.store.StressSince(ctx, userID, since, 0)
	if err != nil {
		return nil, err
	}
	sleep, err := s.store.SleepSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	// Entries arrive newest first; trends read oldest to newest.
	moodScores := lo.Reverse(lo.Map(moods, func(e models.MoodEntry, _ int) float64 { return float64(e.MoodScore) }))
	stressScores := lo.Reverse(lo.Map(stress, func(e models.StressEntry, _ int) float64 { return e.NormalizedScore() }))

	insights := &models.WellnessInsights{
		MoodTrend:          trend(moodScores, false),
		StressTrend:        trend(stressScores, true),
		AverageMood:        average(moodScores),
		AverageStress:      average(stressScores),
		AverageSleepHours:  average(lo.Map(sleep, func(e models.SleepEntry, _ int) float64 { return e.HoursSlept })),
		MoodEntriesCount:   len(moods),
		MostCommonMoodTags: topTags(moods, maxTopTags),
	}
	if s.posts != nil {
		insights.PostsThisMonth = s.posts.PostsSince(userID, since)
	}
	return insights, nil
}

func average(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	avg := lo.Sum(values) / float64(len(values))
	return &avg
}

// trend compares the average of the older half with the newer half. For stress a falling
// score is an improvement, so inverted flips the direction.
func trend(values []float64, inverted bool) *string {
	if len(values) < 2 {
		return nil
	}
	mid := len(values) / 2
	diff := *average(values[mid:]) - *average(values[:mid])
	if inverted {
		diff = -diff
	}

	result := models.TrendStable
	switch {
	case diff >= trendThreshold:
		result = models.TrendImproving
	case diff <= -trendThreshold:
		result = models.TrendDeclining
	}
	return &result
}

// topTags ranks tags by frequency; ties keep first-seen order.
func topTags(moods []models.MoodEntry, n int) []models.TagCount {
	counts := make(map[string]int)
	var order []string
	for _, e := range moods {
		for _, tag := range e.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	tags := lo.Map(order, func(tag string, _ int) models.TagCount {
		return models.TagCount{Tag: tag, Count: counts[tag]}
	})
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// WeekBounds returns the Monday 00:00 UTC starting the week of t and the last instant of
// that week's Sunday.
func WeekBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	start = time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// CreateGoal creates a goal for the current week.
func (s *WellnessService) CreateGoal(ctx context.Context, userID string, req *dto.CreateGoalRequest) (*dto.GoalResponse, error) {
	now := s.now().UTC()
	start, end := WeekBounds(now)

	goal := &models.WeeklyGoal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      sanitize.Text(req.Name, 100),
		Category:  req.Category,
		Target:    req.Target,
		Unit:      sanitize.Text(req.Unit, 20),
		WeekStart: start,
		WeekEnd:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}
	resp := dto.NewGoalResponse(*goal)
	return &resp, nil
}

// Goals lists the goals of a user.
func (s *WellnessService) Goals(ctx context.Context, userID string) ([]dto.GoalResponse, error) {
	goals, err := s.store.Goals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(goals, func(g models.WeeklyGoal, _ int) dto.GoalResponse {
		return dto.NewGoalResponse(g)
	}), nil
}

// UpdateGoalProgress sets the current value of a goal. Reaching the target completes the
// goal once and sends a congratulation email.
func (s *WellnessService) UpdateGoalProgress(ctx context.Context, userID, goalID string, req *dto.UpdateGoalProgressRequest) (*dto.GoalResponse, error) {
	goal, err := s.store.Goal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	goal.Current = req.Current
	goal.UpdatedAt = now

	justCompleted := !goal.IsCompleted && goal.Current >= goal.Target
	if justCompleted {
		goal.IsCompleted = true
		goal.CompletedAt = &now
	}

	if err := s.store.UpdateGoalProgress(ctx, goal); err != nil {
		return nil, err
	}

	if justCompleted {
		s.notifyCompleted(ctx, goal)
	}

	resp := dto.NewGoalResponse(*goal)
	return &resp, nil
}

func (s *WellnessService) notifyCompleted(ctx context.Context, goal *models.WeeklyGoal) {
	user, err := s.users.GetByID(ctx, goal.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("userID", goal.UserID).Msg("Cannot send goal completion email")
		return
	}
	if err := s.mailer.SendGoalCompleted(user.Email, user.DisplayName(), *goal); err != nil {
		s.logger.Error().Err(err).Str("goalID", goal.ID).Msg("Failed to send goal completion email")
		return
	}
	s.logger.Info().Str("goalID", goal.ID).Str("userID", goal.UserID).Msg("Goal completion email sent")
}

// NotifyOverdueGoals flags goals whose week ended incomplete and mails each owner once.
// It returns the number of goals flagged.
func (s *WellnessService) NotifyOverdueGoals(ctx context.Context) (int, error) {
	groups, err := s.store.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	total := 0
	for _, group := range groups {
		total += len(group.Goals)
		if err := s.mailer.SendOverdueGoals(group); err != nil {
			s.logger.Error().Err(err).Str("userID", group.UserID).Msg("Failed to send overdue goals email")
		}
	}
	if total > 0 {
		s.logger.Info().Int("goals", total).Int("users", len(groups)).Msg("Processed overdue goals")
	}
	return total, nil
}
