// Package notification builds the applicant notification feed and keeps open
// feeds current from the change feed.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/email"
	"github.com/jwalitptl/dogfinder/internal/model"
	"github.com/jwalitptl/dogfinder/internal/realtime"
	"github.com/jwalitptl/dogfinder/internal/repository"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/logger"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
)

const (
	DefaultLimit        = 50
	DefaultPollInterval = 30 * time.Second
	DefaultDebounce     = 200 * time.Millisecond
	defaultEmailTimeout = 10 * time.Second
)

type Config struct {
	Limit            int
	PollInterval     time.Duration
	Debounce         time.Duration
	CandidateColumns []string
	EmailTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:            DefaultLimit,
		PollInterval:     DefaultPollInterval,
		Debounce:         DefaultDebounce,
		CandidateColumns: DefaultCandidateColumns,
		EmailTimeout:     defaultEmailTimeout,
	}
}

type Dependencies struct {
	Notifications repository.NotificationRepository
	Adoptions     repository.AdoptionRepository
	Dogs          repository.DogRepository
	Resolver      *Resolver
	Feed          *realtime.Feed
	Mailer        email.Service
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

type Service struct {
	notifications repository.NotificationRepository
	dogs          repository.DogRepository
	fallback      *Fallback
	resolver      *Resolver
	feed          *realtime.Feed
	mailer        email.Service
	logger        *logger.Logger
	metrics       *metrics.Metrics
	cfg           Config

	pending sync.WaitGroup
}

func NewService(deps Dependencies, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = def.EmailTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	if deps.Resolver == nil {
		deps.Resolver = NewResolver(nil, nil, deps.Logger)
	}
	if deps.Mailer == nil {
		deps.Mailer = email.NewNoopSender(deps.Logger)
	}

	return &Service{
		notifications: deps.Notifications,
		dogs:          deps.Dogs,
		fallback:      NewFallback(deps.Adoptions, cfg.CandidateColumns, cfg.Limit, deps.Metrics),
		resolver:      deps.Resolver,
		feed:          deps.Feed,
		mailer:        deps.Mailer,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		cfg:           cfg,
	}
}

// Resolve returns the viewer's recipient address, or "".
func (s *Service) Resolve(ctx context.Context, viewer *session.Viewer) string {
	return s.resolver.Resolve(ctx, viewer)
}

// Load resolves the viewer and loads their feed.
func (s *Service) Load(ctx context.Context, viewer *session.Viewer) Feed {
	return s.LoadFor(ctx, s.Resolve(ctx, viewer))
}

// LoadFor prefers rows of the notifications table and falls back to the
// recipient's adoption applications. Failures become the feed's message;
// LoadFor itself never fails.
func (s *Service) LoadFor(ctx context.Context, recipient string) Feed {
	log := s.logger.WithContext(ctx)

	notifs, err := s.notifications.ListFor(ctx, recipient, s.cfg.Limit)
	switch {
	case err == nil:
		if len(notifs) > 0 {
			items := make([]Item, 0, len(notifs))
			for _, n := range notifs {
				items = append(items, NotificationItem(n))
			}
			return s.loaded(Feed{Source: SourceNotifications, Items: items, Count: len(items)})
		}
	case IsExpectedAbsence(err):
		log.Debug("notifications table unavailable, using adoptions", "error", err.Error())
	default:
		log.Warn(err, "notifications probe failed, using adoptions")
	}

	res, err := s.fallback.Query(ctx, recipient)
	if err != nil {
		log.Warn(err, "adoptions query failed", "column", res.Column, "recipient_known", recipient != "")
		if recipient == "" {
			return s.loaded(Feed{Source: SourceNone, Message: MessageSignIn})
		}
		return s.loaded(Feed{Source: SourceNone, Message: UnavailableMessage(err)})
	}
	if len(res.Adoptions) == 0 {
		return s.loaded(Feed{Source: SourceNone, Message: MessageEmpty})
	}

	dogs := s.dogsFor(ctx, res.Adoptions)
	items := make([]Item, 0, len(res.Adoptions))
	for _, a := range res.Adoptions {
		var dog *model.Dog
		if a.DogID != nil {
			if d, ok := dogs[*a.DogID]; ok {
				dog = &d
			}
		}
		items = append(items, AdoptionItem(a, dog))
	}
	return s.loaded(Feed{Source: SourceAdoptions, Items: items, Count: len(items)})
}

// dogsFor looks up display data of every referenced dog in one query. A
// failed lookup only costs the pictures.
func (s *Service) dogsFor(ctx context.Context, adoptions []model.Adoption) map[int64]model.Dog {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range adoptions {
		if a.DogID == nil || *a.DogID == 0 || seen[*a.DogID] {
			continue
		}
		seen[*a.DogID] = true
		ids = append(ids, *a.DogID)
	}
	dogs, err := s.dogs.GetMany(ctx, ids)
	if err != nil {
		s.logger.WithContext(ctx).Warn(err, "dog lookup for notifications failed")
		return nil
	}
	return dogs
}

func (s *Service) loaded(f Feed) Feed {
	s.metrics.FeedLoads.WithLabelValues(f.Source).Inc()
	return f
}

// NotifyDecision records an in-app notice for an approve/reject decision and
// emails the applicant when an address is known. Both steps are best-effort:
// failures are logged and counted, never returned. The email is sent in the
// background; Wait blocks until pending sends finish.
func (s *Service) NotifyDecision(ctx context.Context, adoptionID int64, a *model.Adoption, decision string) {
	log := s.logger.WithContext(ctx)
	if a == nil {
		a = &model.Adoption{}
	}
	if a.ID != 0 {
		adoptionID = a.ID
	}
	recipient := a.Recipient()
	message := AdoptionMessage(a.DogID, decision)

	row := datastore.Row{
		"adoption_id": adoptionID,
		"recipient":   nil,
		"message":     message,
		"type":        model.NotificationTypeAdoption,
		"status":      model.NotificationStatusUnread,
	}
	if recipient != "" {
		row["recipient"] = recipient
	}
	if _, err := s.notifications.Create(ctx, row); err != nil {
		s.metrics.BestEffortFailures.WithLabelValues("notification_insert").Inc()
		log.Warn(err, "could not insert notification", "adoption_id", adoptionID)
	}

	if recipient == "" {
		return
	}
	msg := decisionEmail(recipient, message, decision)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EmailTimeout)
		defer cancel()
		if err := s.mailer.Send(sendCtx, msg); err != nil {
			if errors.Is(err, email.ErrNotConfigured) {
				log.Info("email endpoint not configured, skipping send", "adoption_id", adoptionID)
				return
			}
			s.metrics.BestEffortFailures.WithLabelValues("email").Inc()
			log.Warn(err, "email send failed", "adoption_id", adoptionID)
		}
	}()
}

// Wait blocks until background email sends have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func decisionEmail(to, message, decision string) email.Message {
	if model.ApplicationStatusClass(decision) == model.ClassRejected {
		return email.Message{
			To:      to,
			Subject: "CDO DogFinder — Adoption Rejected",
			Text:    message + "\n\nIf you have questions, please contact the shelter.",
		}
	}
	return email.Message{
		To:      to,
		Subject: "CDO DogFinder — Adoption Approved",
		Text:    message + "\n\nThank you for using CDO DogFinder.",
	}
}
