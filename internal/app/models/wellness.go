package models

import "time"

// MoodEntry is a single mood check-in (1 very low .. 5 very high).
type MoodEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	MoodScore int       `json:"moodScore" db:"mood_score"`
	Tags      []string  `json:"tags" db:"tags"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// StressEntry is a stress check-in (1 minimal .. 5 overwhelming).
type StressEntry struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	StressLevel int       `json:"stressLevel" db:"stress_level"`
	Triggers    []string  `json:"triggers" db:"triggers"`
	Symptoms    []string  `json:"symptoms" db:"symptoms"`
	CopingUsed  []string  `json:"copingUsed" db:"coping_used"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NormalizedScore maps the 1..5 level onto 0..1.
func (e StressEntry) NormalizedScore() float64 {
	return float64(e.StressLevel) / 5
}

// SleepEntry records one night of sleep.
type SleepEntry struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	SleepQuality int       `json:"sleepQuality" db:"sleep_quality"`
	HoursSlept   float64   `json:"hoursSlept" db:"hours_slept"`
	BedTime      *string   `json:"bedTime,omitempty" db:"bed_time"`
	WakeTime     *string   `json:"wakeTime,omitempty" db:"wake_time"`
	SleepIssues  []string  `json:"sleepIssues" db:"sleep_issues"`
	Factors      []string  `json:"factors" db:"factors"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// SocialEntry records how connected the user felt.
type SocialEntry struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"userId" db:"user_id"`
	ConnectionQuality int       `json:"connectionQuality" db:"connection_quality"`
	Interactions      []string  `json:"interactions" db:"interactions"`
	Activities        []string  `json:"activities" db:"activities"`
	Feelings          []string  `json:"feelings" db:"feelings"`
	Notes             *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// WeeklyGoal is a measurable target for one week.
type WeeklyGoal struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Name        string     `json:"name" db:"name"`
	Category    string     `json:"category" db:"category"`
	Current     float64    `json:"current" db:"current"`
	Target      float64    `json:"target" db:"target"`
	Unit        string     `json:"unit" db:"unit"`
	WeekStart   time.Time  `json:"weekStart" db:"week_start"`
	WeekEnd     time.Time  `json:"weekEnd" db:"week_end"`
	IsCompleted bool       `json:"isCompleted" db:"is_completed"`
	IsOverdue   bool       `json:"isOverdue" db:"is_overdue"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// Progress is the completion ratio clamped to [0, 1].
func (g WeeklyGoal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	p := g.Current / g.Target
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// OverdueGoals groups the overdue goals of one owner for notification.
type OverdueGoals struct {
	UserID string
	Email  string
	Name   string
	Goals  []WeeklyGoal
}

// Banner types and priorities
const (
	BannerSupport     = "support"
	BannerTip         = "tip"
	BannerCelebration = "celebration"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// BannerAction is the call to action rendered on a banner.
type BannerAction struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// WellnessBanner is a dashboard hint derived from recent entries.
type WellnessBanner struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Action   BannerAction `json:"action"`
	Priority string       `json:"priority"`
}

// PriorityRank orders banners, higher first.
func (b WellnessBanner) PriorityRank() int {
	switch b.Priority {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Trend directions
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// TagCount is a tag with its number of occurrences.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// WellnessInsights summarises the last 30 days.
type WellnessInsights struct {
	MoodTrend          *string    `json:"moodTrend"`
	StressTrend        *string    `json:"stressTrend"`
	AverageMood        *float64   `json:"averageMood"`
	AverageStress      *float64   `json:"averageStress"`
	AverageSleepHours  *float64   `json:"averageSleepHours"`
	PostsThisMonth     int        `json:"postsThisMonth"`
	MoodEntriesCount   int        `json:"moodEntriesCount"`
	MostCommonMoodTags []TagCount `json:"mostCommonMoodTags"`
}
