package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"shahid/internal/audit"
	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// Report files a complaint against a post. One report per user per post;
// crossing the escalation threshold drops an approved post back to review.
func (s *Service) Report(ctx context.Context, postID id.PostID, reasonStr, detail string) (*models.Report, error) {
	reason, err := models.ParseReportReason(reasonStr)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown report reason")
	}

	reporterID := requestcontext.UserID(ctx)
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID == reporterID {
		return nil, dErrors.New(dErrors.CodeConflict, "cannot report your own post")
	}

	now := requestcontext.Now(ctx)
	report := models.NewReport(id.NewReportID(), postID, reporterID, reason, detail, now)
	if err := s.reports.Create(ctx, report); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "you have already reported this post")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create report")
	}

	count, err := s.reports.CountByPost(ctx, postID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count reports")
	}

	escalate := count >= s.reportEscalation && p.IsApproved()
	if _, err := s.posts.Execute(ctx, postID,
		func(*models.Post) error { return nil },
		func(p *models.Post) {
			p.ReportCount = count
			if escalate && p.Status == models.StatusApproved {
				p.ApplyStatus(models.StatusPendingReview, now)
			} else {
				p.UpdatedAt = now
			}
		},
	); err != nil {
		s.logger.WarnContext(ctx, "report counter update failed", "post_id", postID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.ReportsFiled.WithLabelValues(string(reason)).Inc()
	}

	if escalate {
		trace.SpanFromContext(ctx).AddEvent("post escalated to review")
		if s.search != nil {
			if err := s.search.DeletePost(postID); err != nil {
				s.logger.WarnContext(ctx, "search index removal failed", "post_id", postID, "error", err)
			}
		}
		if s.metrics != nil {
			s.metrics.Escalations.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:       audit.ActionPostEscalated,
			TargetPostID: postID,
			TargetUserID: p.AuthorID,
			Metadata:     map[string]string{"report_count": strconv.Itoa(count)},
		})
	}
	return report, nil
}

// ListReports returns reports for the admin queue. Empty status matches all.
func (s *Service) ListReports(ctx context.Context, status string, limit, offset int) ([]*models.Report, error) {
	var reportStatus models.ReportStatus
	if status != "" {
		switch models.ReportStatus(status) {
		case models.ReportPending, models.ReportResolved, models.ReportDismissed:
			reportStatus = models.ReportStatus(status)
		default:
			return nil, dErrors.New(dErrors.CodeValidation, "unknown report status")
		}
	}
	reports, err := s.reports.List(ctx, reportStatus, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	return reports, nil
}

// HandleReport closes a report as resolved or dismissed.
func (s *Service) HandleReport(ctx context.Context, reportID id.ReportID, resolve bool) (*models.Report, error) {
	status := models.ReportDismissed
	if resolve {
		status = models.ReportResolved
	}

	now := requestcontext.Now(ctx)
	handlerID := requestcontext.UserID(ctx)
	report, err := s.reports.Execute(ctx, reportID,
		func(r *models.Report) error {
			if err := r.CanHandle(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(r *models.Report) {
			r.ApplyHandling(status, handlerID, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to handle report")
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionReportHandled,
		ActorID:      handlerID,
		TargetPostID: report.PostID,
		Metadata:     map[string]string{"resolution": string(status)},
	})
	return report, nil
}
