package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepforge/interview/internal/events"
)

// Service turns lifecycle events into emails. Delivery failures are returned to the
// event bus, which logs them; they never affect the transition that produced the event.
type Service struct {
	mailer      Mailer
	directory   Directory
	frontendURL string
	logger      *zap.Logger
}

func NewService(mailer Mailer, directory Directory, frontendURL string, logger *zap.Logger) *Service {
	return &Service{
		mailer:      mailer,
		directory:   directory,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.Named("notifications"),
	}
}

type message struct {
	to      string
	subject string
	body    string
}

func (s *Service) HandleEvent(ctx context.Context, e events.Event) error {
	var errs []error
	for _, m := range s.compose(ctx, e) {
		if err := s.mailer.Send(ctx, m.to, m.subject, m.body); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("notification sent",
			zap.String("event", string(e.Type)),
			zap.String("interview_id", e.InterviewID),
			zap.String("to", m.to))
	}
	return errors.Join(errs...)
}

func (s *Service) compose(ctx context.Context, e events.Event) []message {
	link := s.frontendURL + "/live-interviews/" + e.InterviewID
	when := e.ScheduledAt.UTC().Format(time.RFC1123)

	switch e.Type {
	case events.InterviewScheduled:
		if e.InterviewerID == "" {
			s.logger.Info("open interview request, no interviewer to notify", zap.String("interview_id", e.InterviewID))
			return nil
		}
		cand := s.lookup(ctx, e.CandidateID)
		return s.to(ctx, []string{e.InterviewerID},
			"New interview request: "+e.Topic,
			fmt.Sprintf("%s has requested a %d minute %s interview on %q, scheduled for %s.\n\nReview the request: %s",
				cand.DisplayName(), e.Duration, humanType(string(e.InterviewType)), e.Topic, when, s.frontendURL+"/dashboard/interviewer/requests"))

	case events.InterviewAccepted:
		interviewer := s.lookup(ctx, e.InterviewerID)
		return s.to(ctx, []string{e.CandidateID},
			"Interview confirmed: "+e.Topic,
			fmt.Sprintf("%s accepted your interview on %q.\nIt starts %s and lasts %d minutes.\n\nJoin here when it is time: %s",
				interviewer.DisplayName(), e.Topic, when, e.Duration, link))

	case events.InterviewDeclined:
		return s.to(ctx, []string{e.CandidateID},
			"Interview request declined: "+e.Topic,
			fmt.Sprintf("Your interview request on %q for %s was declined. You can schedule another one at any time.", e.Topic, when))

	case events.InterviewCancelled:
		var recipients []string
		for _, id := range []string{e.CandidateID, e.InterviewerID} {
			if id != "" && id != e.ActorID {
				recipients = append(recipients, id)
			}
		}
		return s.to(ctx, recipients,
			"Interview cancelled: "+e.Topic,
			fmt.Sprintf("The interview on %q scheduled for %s has been cancelled.", e.Topic, when))

	case events.InterviewReminder:
		return s.to(ctx, []string{e.CandidateID, e.InterviewerID},
			"Reminder: interview on "+e.Topic+" starts soon",
			fmt.Sprintf("Your %d minute interview on %q starts %s.\n\nJoin here: %s", e.Duration, e.Topic, when, link))

	case events.InterviewCompleted:
		return s.to(ctx, []string{e.CandidateID},
			"Your interview feedback is ready",
			fmt.Sprintf("Your interview on %q is complete. Feedback and score are available at %s", e.Topic, link))
	}
	return nil
}

// to resolves recipients and drops those without a known email address.
func (s *Service) to(ctx context.Context, userIDs []string, subject, body string) []message {
	var msgs []message
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		c := s.lookup(ctx, id)
		if c.Email == "" {
			s.logger.Warn("no email for user, skipping notification", zap.String("user_id", id), zap.String("subject", subject))
			continue
		}
		msgs = append(msgs, message{to: c.Email, subject: subject, body: body})
	}
	return msgs
}

func (s *Service) lookup(ctx context.Context, userID string) Contact {
	c, err := s.directory.Lookup(ctx, userID)
	if err != nil {
		s.logger.Warn("contact lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Contact{UserID: userID}
	}
	return c
}

func humanType(t string) string {
	return strings.ToLower(strings.ReplaceAll(t, "_", " "))
}
