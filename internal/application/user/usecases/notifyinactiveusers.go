package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	userDomain "github.com/cityinfra/trafficcontrol/internal/domain/user"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/email"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/config"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
	"github.com/cityinfra/trafficcontrol/internal/shared/utils"
)

const (
	templateNoEmail       = "user_no_email_notification"
	templateMonthlyReport = "deactivated_users_report"
	dateLayout            = "2.1.2006"
)

type action int

const (
	actionSkipped action = iota
	actionNotified
	actionDeactivated
)

// warning is one inactivity notice and the status column recording it.
type warning struct {
	daysLeft int
	field    func(*models.UserDeactivationStatusModel) **time.Time
}

// noticeData is what the notice templates render.
type noticeData struct {
	DisplayName           string
	Username              string
	DaysInactive          int
	DaysUntilDeactivation int
	DeactivationDate      string
	AdminEmails           string
	TemplateName          string
}

// NotifyInactiveUsersUseCase warns users approaching the inactivity limit
// and deactivates those past it.
type NotifyInactiveUsersUseCase struct {
	users    UserStore
	mailer   Mailer
	renderer Renderer
	tx       Transactor
	cfg      config.InactivityConfig
	stages   userDomain.Thresholds
	warnings map[userDomain.Stage]warning
	now      Clock
	logger   logger.Interface
}

func NewNotifyInactiveUsersUseCase(
	users UserStore,
	mailer Mailer,
	renderer Renderer,
	tx Transactor,
	cfg config.InactivityConfig,
	logger logger.Interface,
) *NotifyInactiveUsersUseCase {
	limit := cfg.DeactivateAfterDays
	stages := userDomain.Thresholds{
		OneMonthWarning: limit - cfg.OneMonthWarningDays,
		OneWeekWarning:  limit - cfg.OneWeekWarningDays,
		OneDayWarning:   limit - cfg.OneDayWarningDays,
		Deactivate:      limit,
	}
	warnings := map[userDomain.Stage]warning{
		userDomain.StageOneMonthWarning: {
			daysLeft: cfg.OneMonthWarningDays,
			field:    func(s *models.UserDeactivationStatusModel) **time.Time { return &s.OneMonthEmailSentAt },
		},
		userDomain.StageOneWeekWarning: {
			daysLeft: cfg.OneWeekWarningDays,
			field:    func(s *models.UserDeactivationStatusModel) **time.Time { return &s.OneWeekEmailSentAt },
		},
		userDomain.StageOneDayWarning: {
			daysLeft: cfg.OneDayWarningDays,
			field:    func(s *models.UserDeactivationStatusModel) **time.Time { return &s.OneDayEmailSentAt },
		},
	}
	return &NotifyInactiveUsersUseCase{
		users:    users,
		mailer:   mailer,
		renderer: renderer,
		tx:       tx,
		cfg:      cfg,
		stages:   stages,
		warnings: warnings,
		now:      biztime.NowUTC,
		logger:   logger,
	}
}

// SetClock replaces the time source.
func (uc *NotifyInactiveUsersUseCase) SetClock(now Clock) {
	uc.now = now
}

// Execute walks every active user once. In a dry run nothing is written or sent.
func (uc *NotifyInactiveUsersUseCase) Execute(ctx context.Context, dryRun bool) (*dto.NotifySummary, error) {
	uc.logger.Infow("executing notify inactive users use case", "dry_run", dryRun)

	users, err := uc.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	summary := &dto.NotifySummary{DryRun: dryRun}
	for _, u := range users {
		act, err := uc.processUser(ctx, u, now, dryRun)
		if err != nil {
			return summary, fmt.Errorf("process user %s: %w", u.Username, err)
		}
		switch act {
		case actionNotified:
			summary.Notified++
		case actionDeactivated:
			summary.Deactivated++
		}
		summary.Processed++
	}

	uc.logger.Infow("inactive users processed",
		"processed", summary.Processed,
		"notified", summary.Notified,
		"deactivated", summary.Deactivated,
		"dry_run", dryRun)
	return summary, nil
}

// LastActivity returns the latest of the user's activity timestamps in UTC.
// API use counts from the start of its business day.
func LastActivity(u *models.UserModel) time.Time {
	joined := u.DateJoined
	latest, ok := userDomain.Activity{
		LastLogin:     u.LastLogin,
		LastAPIUse:    u.LastAPIUse,
		ReactivatedAt: u.ReactivatedAt,
		DateJoined:    &joined,
	}.MostRecent(biztime.Location())
	if !ok {
		return time.Time{}
	}
	return latest.UTC()
}

func (uc *NotifyInactiveUsersUseCase) processUser(ctx context.Context, u *models.UserModel, now time.Time, dryRun bool) (action, error) {
	last := LastActivity(u)
	if last.IsZero() {
		return actionSkipped, nil
	}
	days := userDomain.DaysInactive(last, now)

	switch stage := uc.stages.StageFor(days); stage {
	case userDomain.StageNone:
		return actionSkipped, nil
	case userDomain.StageDeactivate:
		return actionDeactivated, uc.deactivate(ctx, u, days, now, dryRun)
	default:
		return uc.warn(ctx, u, stage, days, now, dryRun)
	}
}

func (uc *NotifyInactiveUsersUseCase) warn(ctx context.Context, u *models.UserModel, stage userDomain.Stage, days int, now time.Time, dryRun bool) (action, error) {
	w := uc.warnings[stage]
	status, err := uc.users.GetDeactivationStatus(ctx, u.ID)
	if err != nil {
		return actionSkipped, err
	}
	if status != nil && *w.field(status) != nil {
		return actionSkipped, nil
	}

	uc.sendNotice(ctx, u, stage.Template(), days, w.daysLeft, now, dryRun)
	if dryRun {
		return actionNotified, nil
	}

	if status == nil {
		status = &models.UserDeactivationStatusModel{UserID: u.ID}
	}
	stamp := now
	*w.field(status) = &stamp
	if err := uc.users.SaveDeactivationStatus(ctx, status); err != nil {
		return actionSkipped, err
	}
	return actionNotified, nil
}

func (uc *NotifyInactiveUsersUseCase) deactivate(ctx context.Context, u *models.UserModel, days int, now time.Time, dryRun bool) error {
	if !dryRun {
		err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := uc.users.UpdateFields(ctx, u, map[string]any{"is_active": false}); err != nil {
				return err
			}
			status, err := uc.users.GetDeactivationStatus(ctx, u.ID)
			if err != nil {
				return err
			}
			if status == nil {
				status = &models.UserDeactivationStatusModel{UserID: u.ID}
			}
			stamp := now
			status.DeactivatedAt = &stamp
			return uc.users.SaveDeactivationStatus(ctx, status)
		})
		if err != nil {
			return err
		}
	}
	uc.logger.Infow("user deactivated", "username", u.Username, "days_inactive", days, "dry_run", dryRun)

	uc.sendNotice(ctx, u, userDomain.StageDeactivate.Template(), days, 0, now, dryRun)
	return nil
}

// sendNotice mails the user, or the administrators when the user has no
// address. Delivery problems are logged and never stop the run.
func (uc *NotifyInactiveUsersUseCase) sendNotice(ctx context.Context, u *models.UserModel, name string, days, daysLeft int, now time.Time, dryRun bool) {
	admins, err := uc.users.AdminEmails(ctx, constants.AdminFallbackMaxRecipients)
	if err != nil {
		uc.logger.Errorw("failed to load admin recipients", "error", err)
	}

	data := noticeData{
		DisplayName:           displayName(u),
		Username:              u.Username,
		DaysInactive:          days,
		DaysUntilDeactivation: daysLeft,
		DeactivationDate:      now.AddDate(0, 0, daysLeft).In(biztime.Location()).Format(dateLayout),
		AdminEmails:           strings.Join(admins, ", "),
		TemplateName:          name,
	}

	recipients := []string{u.Email}
	lang := u.PreferredLanguage
	limit := constants.DefaultEmailMaxRecipients
	if u.Email == "" {
		if len(admins) == 0 {
			uc.logger.Warnw("no admin recipients for user without email", "username", u.Username, "template", name)
			return
		}
		recipients, name, lang, limit = admins, templateNoEmail, "fi", constants.AdminFallbackMaxRecipients
	}

	mail, err := uc.renderer.Render(name, lang, data)
	if err != nil {
		uc.logger.Errorw("failed to render notice", "template", name, "error", err)
		return
	}
	if dryRun {
		uc.logger.Infow("dry run, notice not sent", "template", name, "username", u.Username, "recipients", len(recipients))
		return
	}

	_, err = uc.mailer.Send(ctx, email.Message{
		Subject:       mail.Subject,
		TextBody:      mail.TextBody,
		HTMLBody:      mail.HTMLBody,
		Recipients:    recipients,
		MaxRecipients: limit,
	})
	if err != nil {
		uc.logger.Errorw("failed to send notice", "template", name, "username", u.Username, "error", err)
		return
	}
	uc.logger.Infow("notice sent", "template", name, "username", u.Username, "to", utils.MaskRecipients(recipients))
}

func displayName(u *models.UserModel) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
