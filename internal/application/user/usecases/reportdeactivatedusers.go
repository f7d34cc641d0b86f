package usecases

import (
	"context"
	"time"

	"github.com/cityinfra/trafficcontrol/internal/application/user/dto"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/email"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
	"github.com/cityinfra/trafficcontrol/internal/shared/utils"
)

type reportUser struct {
	Username      string
	Email         string
	DeactivatedAt string
}

type reportData struct {
	Month int
	Year  int
	Users []reportUser
}

// ReportDeactivatedUsersUseCase mails administrators the accounts that were
// deactivated during one business month.
type ReportDeactivatedUsersUseCase struct {
	users    UserStore
	mailer   Mailer
	renderer Renderer
	now      Clock
	logger   logger.Interface
}

func NewReportDeactivatedUsersUseCase(users UserStore, mailer Mailer, renderer Renderer, logger logger.Interface) *ReportDeactivatedUsersUseCase {
	return &ReportDeactivatedUsersUseCase{
		users:    users,
		mailer:   mailer,
		renderer: renderer,
		now:      biztime.NowUTC,
		logger:   logger,
	}
}

func (uc *ReportDeactivatedUsersUseCase) SetClock(now Clock) {
	uc.now = now
}

// ValidateRequest checks the month and year bounds.
func (uc *ReportDeactivatedUsersUseCase) ValidateRequest(req dto.ReportRequest) error {
	return utils.ValidateStruct(req)
}

// Execute reports the requested month. Nothing is sent when the month had no
// deactivations or in a dry run.
func (uc *ReportDeactivatedUsersUseCase) Execute(ctx context.Context, req dto.ReportRequest) (*dto.ReportResult, error) {
	if err := uc.ValidateRequest(req); err != nil {
		return nil, err
	}

	year, month := uc.reportMonth(req)
	from, to := biztime.MonthWindowUTC(year, month)
	res := &dto.ReportResult{Year: year, Month: month, From: from, To: to}
	uc.logger.Infow("executing deactivated users report", "year", year, "month", int(month), "dry_run", req.DryRun)

	rows, err := uc.users.DeactivatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	res.Users = len(rows)
	if len(rows) == 0 {
		uc.logger.Infow("no deactivated users to report", "year", year, "month", int(month))
		return res, nil
	}

	recipients, err := uc.users.AdminEmails(ctx, constants.AdminReportMaxRecipients)
	if err != nil {
		return nil, err
	}
	res.Recipients = len(recipients)
	if len(recipients) == 0 {
		return res, errors.New(errors.KindEmailSendFailure, "no admin notification recipients configured")
	}

	data := reportData{Month: int(month), Year: year}
	for _, r := range rows {
		data.Users = append(data.Users, reportUser{
			Username:      r.Username,
			Email:         r.Email,
			DeactivatedAt: r.DeactivatedAt.In(biztime.Location()).Format(dateLayout),
		})
	}
	mail, err := uc.renderer.Render(templateMonthlyReport, "fi", data)
	if err != nil {
		return nil, err
	}

	if req.DryRun {
		uc.logger.Infow("dry run, report not sent", "recipients", len(recipients), "users", len(rows))
		return res, nil
	}

	if _, err := uc.mailer.Send(ctx, email.Message{
		Subject:       mail.Subject,
		TextBody:      mail.TextBody,
		HTMLBody:      mail.HTMLBody,
		Recipients:    recipients,
		MaxRecipients: constants.AdminReportMaxRecipients,
	}); err != nil {
		return nil, err
	}
	res.Sent = true
	uc.logger.Infow("deactivated users report sent", "recipients", len(recipients), "users", len(rows))
	return res, nil
}

func (uc *ReportDeactivatedUsersUseCase) reportMonth(req dto.ReportRequest) (int, time.Month) {
	if req.Month == 0 {
		return biztime.PreviousMonth(uc.now())
	}
	year := req.Year
	if year == 0 {
		year = uc.now().In(biztime.Location()).Year()
	}
	return year, time.Month(req.Month)
}
