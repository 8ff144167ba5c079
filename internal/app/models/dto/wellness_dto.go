package dto

import (
	"time"

	"github.com/yigit/campuswell/internal/app/models"
)

// CreateMoodEntryRequest records a mood check-in.
type CreateMoodEntryRequest struct {
	MoodScore int      `json:"moodScore" binding:"required,min=1,max=5" example:"4"`
	Tags      []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	Notes     *string  `json:"notes" binding:"omitempty,max=500"`
}

// CreateStressEntryRequest records a stress check-in.
type CreateStressEntryRequest struct {
	StressLevel int      `json:"stressLevel" binding:"required,min=1,max=5" example:"3"`
	Triggers    []string `json:"triggers" binding:"omitempty,max=10,dive,min=1,max=50"`
	Symptoms    []string `json:"symptoms" binding:"omitempty,max=10,dive,min=1,max=50"`
	CopingUsed  []string `json:"copingUsed" binding:"omitempty,max=10,dive,min=1,max=50"`
	Notes       *string  `json:"notes" binding:"omitempty,max=500"`
}

// CreateSleepEntryRequest records a night of sleep.
type CreateSleepEntryRequest struct {
	SleepQuality int      `json:"sleepQuality" binding:"required,min=1,max=5" example:"3"`
	HoursSlept   float64  `json:"hoursSlept" binding:"min=0,max=24" example:"7.5"`
	BedTime      *string  `json:"bedTime" binding:"omitempty,max=5" example:"23:30"`
	WakeTime     *string  `json:"wakeTime" binding:"omitempty,max=5" example:"07:00"`
	SleepIssues  []string `json:"sleepIssues" binding:"omitempty,max=10,dive,min=1,max=50"`
	Factors      []string `json:"factors" binding:"omitempty,max=10,dive,min=1,max=50"`
	Notes        *string  `json:"notes" binding:"omitempty,max=500"`
}

// CreateSocialEntryRequest records how connected the user felt.
type CreateSocialEntryRequest struct {
	ConnectionQuality int      `json:"connectionQuality" binding:"required,min=1,max=5" example:"4"`
	Interactions      []string `json:"interactions" binding:"omitempty,max=10,dive,min=1,max=50"`
	Activities        []string `json:"activities" binding:"omitempty,max=10,dive,min=1,max=50"`
	Feelings          []string `json:"feelings" binding:"omitempty,max=10,dive,min=1,max=50"`
	Notes             *string  `json:"notes" binding:"omitempty,max=500"`
}

// HistoryQuery selects the look-back window in days.
type HistoryQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// CreateGoalRequest creates a weekly goal. The week starts on the Monday of the current week.
type CreateGoalRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100" example:"Meditate"`
	Category string  `json:"category" binding:"required,oneof=mood stress sleep social exercise study mindfulness other" example:"mindfulness"`
	Target   float64 `json:"target" binding:"required,gt=0,max=10000" example:"5"`
	Unit     string  `json:"unit" binding:"required,max=20" example:"sessions"`
}

// UpdateGoalProgressRequest sets the current value of a goal.
type UpdateGoalProgressRequest struct {
	Current float64 `json:"current" binding:"min=0,max=10000" example:"3"`
}

// GoalResponse decorates a goal with its progress ratio.
type GoalResponse struct {
	models.WeeklyGoal
	Progress float64 `json:"progress" example:"0.6"`
}

// NewGoalResponse maps a goal to its view.
func NewGoalResponse(g models.WeeklyGoal) GoalResponse {
	return GoalResponse{WeeklyGoal: g, Progress: g.Progress()}
}

// MoodHistoryResponse lists mood entries of a window.
type MoodHistoryResponse struct {
	Days    int                `json:"days"`
	Since   time.Time          `json:"since"`
	Entries []models.MoodEntry `json:"entries"`
	Average *float64           `json:"average"`
}
