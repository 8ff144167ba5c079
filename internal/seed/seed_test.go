package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/auth"
)

type memoryUsers struct {
	users []*models.User
}

func (m *memoryUsers) Exists(_ context.Context, email, username string) (bool, bool, error) {
	var e, u bool
	for _, user := range m.users {
		e = e || user.Email == email
		u = u || user.Username == username
	}
	return e, u, nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.users = append(m.users, user)
	return nil
}

func TestCreateDefaultDataCreatesAdminOnce(t *testing.T) {
	users := &memoryUsers{}
	store := community.NewStore(nil, zerolog.Nop())
	admin := AdminAccount{Email: "Admin@CampusWell.app", Password: "Sup3r$ecret"}

	require.NoError(t, CreateDefaultData(context.Background(), admin, users, store, zerolog.Nop()))
	require.Len(t, users.users, 1)

	created := users.users[0]
	assert.Equal(t, "admin@campuswell.app", created.Email)
	assert.Equal(t, "admin", created.Username)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.True(t, created.EmailVerified)
	assert.True(t, auth.CheckPassword(created.Password, "Sup3r$ecret"))
	assert.True(t, store.AuthorInfo(created.ID, false).IsModerator)

	require.NoError(t, CreateDefaultData(context.Background(), admin, users, store, zerolog.Nop()))
	assert.Len(t, users.users, 1)
}

func TestCreateDefaultDataWithoutAdmin(t *testing.T) {
	users := &memoryUsers{}
	require.NoError(t, CreateDefaultData(context.Background(), AdminAccount{}, users, nil, zerolog.Nop()))
	assert.Empty(t, users.users)

	err := CreateDefaultData(context.Background(), AdminAccount{Email: "a@b.c"}, users, nil, zerolog.Nop())
	assert.Error(t, err)
}
