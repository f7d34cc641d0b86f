package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/email"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/testdb"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/repository"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/template"
	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

var testInactivity = config.InactivityConfig{
	DeactivateAfterDays: 180,
	OneDayWarningDays:   1,
	OneWeekWarningDays:  7,
	OneMonthWarningDays: 30,
}

type fakeMailer struct {
	sent   []email.Message
	sendFn func(msg email.Message) error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) (int, error) {
	if m.sendFn != nil {
		if err := m.sendFn(msg); err != nil {
			return 0, err
		}
	}
	m.sent = append(m.sent, msg)
	return len(msg.Recipients), nil
}

type fixture struct {
	gdb    *gorm.DB
	users  *repository.UserRepositoryImpl
	mailer *fakeMailer
	notify *NotifyInactiveUsersUseCase
	report *ReportDeactivatedUsersUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testdb.Open(t)
	catalog, err := template.NewCatalog()
	require.NoError(t, err)

	f := &fixture{
		gdb:    gdb,
		users:  repository.NewUserRepository(gdb, logger.NewNop()),
		mailer: &fakeMailer{},
	}
	f.notify = NewNotifyInactiveUsersUseCase(f.users, f.mailer, catalog, db.NewTransactionManager(gdb), testInactivity, logger.NewNop())
	f.notify.SetClock(func() time.Time { return testNow })
	f.report = NewReportDeactivatedUsersUseCase(f.users, f.mailer, catalog, logger.NewNop())
	f.report.SetClock(func() time.Time { return testNow })
	return f
}

func daysAgo(d int) *time.Time {
	t := testNow.AddDate(0, 0, -d)
	return &t
}

func (f *fixture) addUser(t *testing.T, username, mail string, lastLoginDaysAgo int, mutate ...func(*models.UserModel)) *models.UserModel {
	t.Helper()
	u := &models.UserModel{
		Username:          username,
		Email:             mail,
		FirstName:         username,
		PreferredLanguage: "en",
		IsActive:          true,
		DateJoined:        testNow.AddDate(-2, 0, 0),
		LastLogin:         daysAgo(lastLoginDaysAgo),
	}
	for _, m := range mutate {
		m(u)
	}
	active := u.IsActive
	require.NoError(t, f.users.Create(context.Background(), u))
	// is_active defaults to true on insert
	if !active {
		require.NoError(t, f.users.UpdateFields(context.Background(), u, map[string]any{"is_active": false}))
	}
	return u
}

func (f *fixture) addAdmin(t *testing.T) {
	f.addUser(t, "eve", "eve@example.com", 0, func(u *models.UserModel) {
		u.ReceivesAdminNotificationEmails = true
	})
}

func (f *fixture) status(t *testing.T, u *models.UserModel) *models.UserDeactivationStatusModel {
	t.Helper()
	s, err := f.users.GetDeactivationStatus(context.Background(), u.ID)
	require.NoError(t, err)
	return s
}

func TestNotifyInactiveUsers_DeactivatesAndWarns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAdmin(t)
	alice := f.addUser(t, "alice", "alice@example.com", 181)
	bob := f.addUser(t, "bob", "bob@example.com", 151)
	f.addUser(t, "carol", "carol@example.com", 10)
	dave := f.addUser(t, "dave", "", 175)

	summary, err := f.notify.Execute(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, &dto.NotifySummary{Processed: 5, Notified: 2, Deactivated: 1}, summary)

	require.Len(t, f.mailer.sent, 3)
	assert.Equal(t, []string{"alice@example.com"}, f.mailer.sent[0].Recipients)
	assert.Equal(t, "Your account has been deactivated", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].TextBody, "181 days")
	assert.Equal(t, []string{"bob@example.com"}, f.mailer.sent[1].Recipients)
	assert.Equal(t, "Your account will be deactivated in 30 days", f.mailer.sent[1].Subject)
	assert.Equal(t, []string{"eve@example.com"}, f.mailer.sent[2].Recipients)
	assert.Contains(t, f.mailer.sent[2].TextBody, "inactive_warning_one_week")

	reloaded, err := f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	require.NotNil(t, f.status(t, alice).DeactivatedAt)
	assert.NotNil(t, f.status(t, bob).OneMonthEmailSentAt)
	assert.Nil(t, f.status(t, bob).OneWeekEmailSentAt)
	assert.NotNil(t, f.status(t, dave).OneWeekEmailSentAt)

	// second run sends nothing new
	summary, err = f.notify.Execute(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, &dto.NotifySummary{Processed: 4}, summary)
	assert.Len(t, f.mailer.sent, 3)
}

func TestNotifyInactiveUsers_EscalatesWarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob", "bob@example.com", 151)

	_, err := f.notify.Execute(ctx, false)
	require.NoError(t, err)

	f.notify.SetClock(func() time.Time { return testNow.AddDate(0, 0, 28) })
	summary, err := f.notify.Execute(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Notified)

	s := f.status(t, bob)
	assert.NotNil(t, s.OneMonthEmailSentAt)
	assert.NotNil(t, s.OneDayEmailSentAt)
	assert.Nil(t, s.OneWeekEmailSentAt)
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "Your account will be deactivated tomorrow", f.mailer.sent[1].Subject)
}

func TestNotifyInactiveUsers_DryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "alice@example.com", 200)
	bob := f.addUser(t, "bob", "bob@example.com", 160)

	summary, err := f.notify.Execute(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, &dto.NotifySummary{Processed: 2, Notified: 1, Deactivated: 1, DryRun: true}, summary)
	assert.Empty(t, f.mailer.sent)

	reloaded, err := f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsActive)
	assert.Nil(t, f.status(t, alice))
	assert.Nil(t, f.status(t, bob))
}

func TestNotifyInactiveUsers_SendFailureDoesNotStopRun(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice", "alice@example.com", 181)
	f.mailer.sendFn = func(email.Message) error { return errors.New("smtp down") }

	summary, err := f.notify.Execute(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deactivated)
	assert.NotNil(t, f.status(t, alice).DeactivatedAt)
}

func TestLastActivity(t *testing.T) {
	joined := testNow.AddDate(-1, 0, 0)
	apiUse := time.Date(2026, 6, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		user models.UserModel
		want time.Time
	}{
		{"joined only", models.UserModel{DateJoined: joined}, joined},
		{"login", models.UserModel{DateJoined: joined, LastLogin: daysAgo(3)}, *daysAgo(3)},
		{"api use counts from start of day", models.UserModel{DateJoined: joined, LastAPIUse: &apiUse}, time.Date(2026, 6, 9, 21, 0, 0, 0, time.UTC)},
		{"reactivation wins", models.UserModel{DateJoined: joined, LastLogin: daysAgo(300), ReactivatedAt: daysAgo(1)}, *daysAgo(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(LastActivity(&tt.user)))
		})
	}
}

func (f *fixture) deactivated(t *testing.T, username string, at time.Time) {
	t.Helper()
	u := f.addUser(t, username, username+"@example.com", 300, func(u *models.UserModel) { u.IsActive = false })
	require.NoError(t, f.users.SaveDeactivationStatus(context.Background(), &models.UserDeactivationStatusModel{
		UserID:        u.ID,
		DeactivatedAt: &at,
	}))
}

func TestReportDeactivatedUsers_PreviousMonth(t *testing.T) {
	f := newFixture(t)
	f.addAdmin(t)
	f.deactivated(t, "frank", time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	// 1 May 01:00 in Helsinki
	f.deactivated(t, "george", time.Date(2026, 4, 30, 22, 0, 0, 0, time.UTC))
	// 30 April 23:00 in Helsinki
	f.deactivated(t, "henry", time.Date(2026, 4, 30, 20, 0, 0, 0, time.UTC))

	res, err := f.report.Execute(context.Background(), dto.ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2026, res.Year)
	assert.Equal(t, time.May, res.Month)
	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 1, res.Recipients)
	assert.True(t, res.Sent)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, []string{"eve@example.com"}, msg.Recipients)
	assert.Equal(t, "Suljetut käyttäjätunnukset 5/2026", msg.Subject)
	assert.Contains(t, msg.TextBody, "george (george@example.com) 1.5.2026")
	assert.Contains(t, msg.TextBody, "frank")
	assert.NotContains(t, msg.TextBody, "henry")
}

func TestReportDeactivatedUsers_Requests(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.ReportRequest
		wantErr   bool
		wantUsers int
		wantSent  bool
	}{
		{"explicit month", dto.ReportRequest{Month: 4}, false, 1, true},
		{"explicit year", dto.ReportRequest{Month: 5, Year: 2025}, false, 0, false},
		{"dry run", dto.ReportRequest{Month: 4, DryRun: true}, false, 1, false},
		{"month out of range", dto.ReportRequest{Month: 13}, true, 0, false},
		{"year out of range", dto.ReportRequest{Month: 1, Year: 1999}, true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addAdmin(t)
			f.deactivated(t, "henry", time.Date(2026, 4, 30, 20, 0, 0, 0, time.UTC))

			res, err := f.report.Execute(context.Background(), tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, f.mailer.sent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsers, res.Users)
			assert.Equal(t, tt.wantSent, res.Sent)
			if tt.wantSent {
				assert.Len(t, f.mailer.sent, 1)
			} else {
				assert.Empty(t, f.mailer.sent)
			}
		})
	}
}

func TestHandleUserActivity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		active          bool
		changed         []string
		staleStamp      bool
		wantCleared     bool
		wantReactivated bool
	}{
		{"login clears", true, []string{"last_login"}, false, true, false},
		{"api use clears", true, []string{"last_api_use"}, false, true, false},
		{"reactivation stamps and clears", true, []string{"is_active"}, false, true, true},
		{"second reactivation renews the stamp", true, []string{"is_active"}, true, true, true},
		{"deactivation keeps", false, []string{"is_active"}, false, false, false},
		{"other field keeps", true, []string{"email"}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			stale := daysAgo(400)
			u := f.addUser(t, "bob", "bob@example.com", 151, func(u *models.UserModel) {
				u.IsActive = tt.active
				if tt.staleStamp {
					u.ReactivatedAt = stale
				}
			})
			require.NoError(t, f.users.SaveDeactivationStatus(ctx, &models.UserDeactivationStatusModel{
				UserID:              u.ID,
				OneMonthEmailSentAt: daysAgo(1),
			}))

			uc := NewHandleUserActivityUseCase(f.users, logger.NewNop())
			uc.SetClock(func() time.Time { return testNow })
			require.NoError(t, uc.Execute(ctx, u, tt.changed))

			assert.Equal(t, tt.wantCleared, f.status(t, u) == nil)
			reloaded, err := f.users.GetByID(ctx, u.ID)
			require.NoError(t, err)
			if tt.wantReactivated {
				require.NotNil(t, reloaded.ReactivatedAt)
				assert.True(t, testNow.Equal(*reloaded.ReactivatedAt))
			} else {
				assert.Nil(t, reloaded.ReactivatedAt)
			}
		})
	}
}
