package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository      *UserRepository
	TokenRepository     *TokenRepository
	OTPRepository       *OTPRepository
	WellnessRepository  *WellnessRepository
	CommunityRepository *CommunityRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:      NewUserRepository(db),
		TokenRepository:     NewTokenRepository(db),
		OTPRepository:       NewOTPRepository(db),
		WellnessRepository:  NewWellnessRepository(db),
		CommunityRepository: NewCommunityRepository(db),
	}
}
