// Package services holds every use case. Each one takes the acting user explicitly,
// checks policy, validates, and runs its writes in a single transaction.
package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/tgienger/taskboard/internal/audit"
	"github.com/tgienger/taskboard/internal/auth"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/logging"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

// Service is the application layer shared by the API, TUI and CLI
type Service struct {
	db     *db.DB
	engine *audit.Engine
	tokens *auth.Tokens
	now    func() time.Time
	log    logrus.FieldLogger
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used for date rules
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokens enables token issue and verification
func WithTokens(t *auth.Tokens) Option {
	return func(s *Service) { s.tokens = t }
}

// New returns a Service over store
func New(store *db.DB, opts ...Option) *Service {
	s := &Service{
		db:     store,
		engine: audit.NewEngine(),
		now:    time.Now,
		log:    logging.Logger.WithField("component", "services"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar day according to the service clock
func (s *Service) Today() models.Date {
	return models.NewDate(s.now())
}

// logAuditFailure records an audit error; it never reaches the caller
func (s *Service) logAuditFailure(err error, fields logrus.Fields) {
	if err == nil {
		return
	}
	var e perrors.Err
	if errors.As(err, &e) {
		e.Print(s.log.WithFields(fields))
		return
	}
	s.log.WithFields(fields).WithError(err).Error("audit write failed")
}

// requireText trims v and checks its length in runes
func requireText(field, v string, min, max int) (string, error) {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	if n == 0 && min > 0 {
		return "", perrors.NewErrValidation(field, field+" is required")
	}
	if n < min {
		return "", perrors.NewErrValidation(field, field+" is too short")
	}
	if max > 0 && n > max {
		return "", perrors.NewErrValidation(field, field+" is too long")
	}
	return v, nil
}
