package services

import (
	"context"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/repositories"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)} // a Wednesday
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- users ---

type fakeUsers struct {
	byID     map[string]*models.User
	settings map[string]interface{}
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}, settings: map[string]interface{}{}}
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) get(match func(*models.User) bool) (*models.User, error) {
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.get(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.get(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsers) GetByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	return f.get(func(u *models.User) bool {
		return strings.EqualFold(u.Email, identifier) || u.Username == identifier
	})
}

func (f *fakeUsers) Exists(_ context.Context, email, username string) (bool, bool, error) {
	var e, n bool
	for _, u := range f.byID {
		e = e || strings.EqualFold(u.Email, email)
		n = n || u.Username == username
	}
	return e, n, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, user *models.User) error {
	if _, ok := f.byID[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdateSettings(_ context.Context, id, column string, value interface{}) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	f.settings[column] = value
	switch v := value.(type) {
	case models.WellnessSettings:
		u.WellnessSettings = v
	case models.UserPreferences:
		u.Preferences = v
	case models.PrivacySettings:
		u.PrivacySettings = v
	case *models.AcademicInfo:
		u.AcademicInfo = v
	}
	return nil
}

func (f *fakeUsers) UpdateAvatar(_ context.Context, id, url string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.AvatarURL = &url
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

func (f *fakeUsers) TouchLastActive(_ context.Context, id string, at time.Time) error {
	if u, ok := f.byID[id]; ok {
		u.LastActive = &at
	}
	return nil
}

// --- refresh tokens ---

type fakeTokens struct {
	tokens map[string]*models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokens) CreateToken(_ context.Context, token, userID string, expiry time.Time) error {
	f.tokens[token] = &models.RefreshToken{Token: token, UserID: userID, ExpiryDate: expiry}
	return nil
}

func (f *fakeTokens) GetToken(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	if t.IsRevoked {
		return nil, apperrors.ErrTokenRevoked
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) RevokeToken(_ context.Context, token string) error {
	t, ok := f.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.IsRevoked = true
	return nil
}

func (f *fakeTokens) RevokeAllUserTokens(_ context.Context, userID string) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

func (f *fakeTokens) active(userID string) int {
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID && !t.IsRevoked {
			n++
		}
	}
	return n
}

// --- OTP codes ---

// fakeOTPs serializes every call the way single row updates do in Postgres.
type fakeOTPs struct {
	mu    sync.Mutex
	codes []*models.OTPCode
}

func (f *fakeOTPs) Create(_ context.Context, otp *models.OTPCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *otp
	f.codes = append(f.codes, &cp)
	return nil
}

func (f *fakeOTPs) ExpirePending(_ context.Context, email string, otpType models.OTPType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.Email == email && c.Type == otpType && c.Status == models.OTPPending {
			c.Status = models.OTPExpired
		}
	}
	return nil
}

func (f *fakeOTPs) latest(email string, otpType models.OTPType, pendingOnly bool) (*models.OTPCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.Email != email || c.Type != otpType {
			continue
		}
		if pendingOnly && c.Status != models.OTPPending {
			continue
		}
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.ErrOTPNotFound
}

func (f *fakeOTPs) Latest(_ context.Context, email string, otpType models.OTPType) (*models.OTPCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest(email, otpType, false)
}

func (f *fakeOTPs) LatestPending(_ context.Context, email string, otpType models.OTPType) (*models.OTPCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest(email, otpType, true)
}

func (f *fakeOTPs) CountSince(_ context.Context, email string, otpType models.OTPType, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.codes {
		if c.Email == email && c.Type == otpType && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPs) ClaimAttempt(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID != id {
			continue
		}
		if c.Status != models.OTPPending || c.Attempts >= c.MaxAttempts {
			return 0, apperrors.ErrOTPAttemptsExceeded
		}
		c.Attempts++
		return c.Attempts, nil
	}
	return 0, apperrors.ErrOTPAttemptsExceeded
}

func (f *fakeOTPs) Resolve(_ context.Context, id string, status models.OTPStatus, verifiedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID == id && c.Status == models.OTPPending {
			c.Status = status
			c.VerifiedAt = verifiedAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPs) Cleanup(_ context.Context, now, cutoff time.Time) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired, deleted int64
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.Status == models.OTPPending && now.After(c.ExpiresAt) {
			c.Status = models.OTPExpired
			expired++
		}
		if c.Status != models.OTPPending && c.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	f.codes = kept
	return expired, deleted, nil
}

// --- mail ---

type sentOTP struct {
	To   string
	Code string
	Type models.OTPType
}

type fakeMailer struct {
	otps      []sentOTP
	welcomes  []string
	completed []models.WeeklyGoal
	overdue   []models.OverdueGoals
	fail      error
}

func (m *fakeMailer) SendOTP(to, _ string, code string, otpType models.OTPType, _ time.Duration) error {
	if m.fail != nil {
		return m.fail
	}
	m.otps = append(m.otps, sentOTP{To: to, Code: code, Type: otpType})
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(to, _ string) error {
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *fakeMailer) SendGoalCompleted(_, _ string, goal models.WeeklyGoal) error {
	m.completed = append(m.completed, goal)
	return nil
}

func (m *fakeMailer) SendOverdueGoals(overdue models.OverdueGoals) error {
	m.overdue = append(m.overdue, overdue)
	return nil
}

func (m *fakeMailer) lastCode() string {
	if len(m.otps) == 0 {
		return ""
	}
	return m.otps[len(m.otps)-1].Code
}

// --- wellness ---

type fakeWellness struct {
	moods  []models.MoodEntry
	stress []models.StressEntry
	sleep  []models.SleepEntry
	social []models.SocialEntry
	goals  map[string]*models.WeeklyGoal
}

func newFakeWellness() *fakeWellness {
	return &fakeWellness{goals: map[string]*models.WeeklyGoal{}}
}

func (f *fakeWellness) CreateMood(_ context.Context, e *models.MoodEntry) error {
	f.moods = append(f.moods, *e)
	return nil
}

func (f *fakeWellness) CreateStress(_ context.Context, e *models.StressEntry) error {
	f.stress = append(f.stress, *e)
	return nil
}

func (f *fakeWellness) CreateSleep(_ context.Context, e *models.SleepEntry) error {
	f.sleep = append(f.sleep, *e)
	return nil
}

func (f *fakeWellness) CreateSocial(_ context.Context, e *models.SocialEntry) error {
	f.social = append(f.social, *e)
	return nil
}

// newestFirst filters by owner and window and orders like the repository does.
func newestFirst[T any](items []T, keep func(T) bool, at func(T) time.Time, limit uint64) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).After(at(out[j])) })
	if limit > 0 && uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeWellness) MoodSince(_ context.Context, userID string, since time.Time, limit uint64) ([]models.MoodEntry, error) {
	return newestFirst(f.moods,
		func(e models.MoodEntry) bool { return e.UserID == userID && !e.CreatedAt.Before(since) },
		func(e models.MoodEntry) time.Time { return e.CreatedAt }, limit), nil
}

func (f *fakeWellness) StressSince(_ context.Context, userID string, since time.Time, limit uint64) ([]models.StressEntry, error) {
	return newestFirst(f.stress,
		func(e models.StressEntry) bool { return e.UserID == userID && !e.CreatedAt.Before(since) },
		func(e models.StressEntry) time.Time { return e.CreatedAt }, limit), nil
}

func (f *fakeWellness) SleepSince(_ context.Context, userID string, since time.Time) ([]models.SleepEntry, error) {
	return newestFirst(f.sleep,
		func(e models.SleepEntry) bool { return e.UserID == userID && !e.CreatedAt.Before(since) },
		func(e models.SleepEntry) time.Time { return e.CreatedAt }, 0), nil
}

func (f *fakeWellness) CountMood(_ context.Context, userID string) (int, error) {
	n := 0
	for _, e := range f.moods {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeWellness) CreateGoal(_ context.Context, g *models.WeeklyGoal) error {
	cp := *g
	f.goals[g.ID] = &cp
	return nil
}

func (f *fakeWellness) Goals(_ context.Context, userID string) ([]models.WeeklyGoal, error) {
	var out []models.WeeklyGoal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeWellness) Goal(_ context.Context, userID, goalID string) (*models.WeeklyGoal, error) {
	g, ok := f.goals[goalID]
	if !ok || g.UserID != userID {
		return nil, apperrors.ErrGoalNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeWellness) UpdateGoalProgress(_ context.Context, g *models.WeeklyGoal) error {
	stored, ok := f.goals[g.ID]
	if !ok || stored.UserID != g.UserID {
		return apperrors.ErrGoalNotFound
	}
	stored.Current, stored.IsCompleted, stored.CompletedAt, stored.UpdatedAt = g.Current, g.IsCompleted, g.CompletedAt, g.UpdatedAt
	return nil
}

func (f *fakeWellness) GoalCounts(_ context.Context, userID string) (int, int, error) {
	var active, completed int
	for _, g := range f.goals {
		if g.UserID != userID {
			continue
		}
		if g.IsCompleted {
			completed++
		} else {
			active++
		}
	}
	return active, completed, nil
}

func (f *fakeWellness) MarkOverdue(_ context.Context, now time.Time) ([]models.OverdueGoals, error) {
	byUser := map[string]*models.OverdueGoals{}
	var order []string
	for _, g := range f.goals {
		if g.IsCompleted || g.IsOverdue || !g.WeekEnd.Before(now) {
			continue
		}
		g.IsOverdue = true
		group, ok := byUser[g.UserID]
		if !ok {
			group = &models.OverdueGoals{UserID: g.UserID, Email: g.UserID + "@uni.edu"}
			byUser[g.UserID] = group
			order = append(order, g.UserID)
		}
		group.Goals = append(group.Goals, *g)
	}
	out := make([]models.OverdueGoals, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	return out, nil
}

// --- community preferences ---

type fakePrefs struct {
	prefs map[string]*repositories.CommunityPreferences
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{prefs: map[string]*repositories.CommunityPreferences{}}
}

func (f *fakePrefs) GetPreferences(_ context.Context, userID string) (*repositories.CommunityPreferences, bool, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (f *fakePrefs) SavePreferences(_ context.Context, p *repositories.CommunityPreferences) error {
	cp := *p
	f.prefs[p.UserID] = &cp
	return nil
}

func (f *fakePrefs) ForumMemberCounts(_ context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, p := range f.prefs {
		for _, id := range p.Interests {
			counts[id]++
		}
	}
	return counts, nil
}

// --- file storage ---

type fakeFiles struct {
	saved   []string
	deleted []string
	err     error
}

func (f *fakeFiles) SaveImage(fh *multipart.FileHeader, subPath string, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "/uploads/" + subPath + "/" + fh.Filename
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeFiles) DeleteFile(url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}
