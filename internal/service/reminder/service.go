package reminder

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/slco-2016/cTracksImporter/internal/feed"
	"github.com/slco-2016/cTracksImporter/internal/model"
	"github.com/slco-2016/cTracksImporter/internal/repository"
	apperrors "github.com/slco-2016/cTracksImporter/pkg/errors"
	"github.com/slco-2016/cTracksImporter/pkg/logger"
)

type Config struct {
	// WindowDays bounds how far ahead an appointment may be.
	WindowDays int
	// LeadDays is subtracted from the appointment date to compute the
	// send date.
	LeadDays int
	// MaxInFlight caps concurrently outstanding store operations in
	// the commit phase.
	MaxInFlight int
	// FieldCount is the expected field count of a primary feed row.
	FieldCount int
}

// Inputs are the three export files, already opened. The secondary
// feed is not read until both the location table and the primary feed
// have been fully consumed.
type Inputs struct {
	Locations io.Reader
	Primary   io.Reader
	Secondary io.Reader
}

// Outcome classifies what happened to one permitted candidate.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeSkippedDuplicate
	OutcomeSkippedPending
	OutcomeFailed
)

// Result is the terminal state of one candidate's commit chain.
type Result struct {
	ClientID int
	Outcome  Outcome
	Reason   string
	Err      error
}

// Summary aggregates one batch run.
type Summary struct {
	RunID            uuid.UUID
	Candidates       int
	Joined           int
	InWindow         int
	Permitted        int
	DroppedNoConsent int
	DroppedUnknown   int
	Created          int
	SkippedDuplicate int
	SkippedPending   int
	Failures         []Result
}

type Service struct {
	clients       repository.ClientRepository
	notifications repository.NotificationRepository
	logger        *logger.Logger
	cfg           Config
	now           func() time.Time
}

func NewService(clients repository.ClientRepository, notifications repository.NotificationRepository, logger *logger.Logger, cfg Config) *Service {
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 8
	}
	if cfg.LeadDays == 0 {
		cfg.LeadDays = 1
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = 8
	}
	if cfg.FieldCount == 0 {
		cfg.FieldCount = feed.PrimaryFieldCountV35
	}
	return &Service{
		clients:       clients,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Run executes one batch: correlate the two feeds, filter to the
// relevant window, drop candidates without consent, and commit one
// deduplicated reminder per remaining candidate. Only an unreadable
// input aborts the run; every later failure is confined to its
// candidate and reported in the summary.
func (s *Service) Run(ctx context.Context, inputs Inputs) (*Summary, error) {
	summary := &Summary{RunID: uuid.New()}
	log := s.logger.WithFields(map[string]interface{}{"run_id": summary.RunID.String()})

	// The location table and primary feed are independent reads; the
	// secondary feed must wait until the candidate set is complete.
	var (
		locations  feed.LocationTable
		candidates []string
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		locations, err = feed.ParseLocationTable(inputs.Locations)
		return err
	})
	g.Go(func() error {
		var err error
		candidates, err = feed.ScanCandidates(inputs.Primary, s.cfg.FieldCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load feeds: %w", err)
	}
	summary.Candidates = len(candidates)

	joined, err := feed.Correlate(candidates, inputs.Secondary, locations, feed.LayoutV1)
	if err != nil {
		return nil, fmt.Errorf("failed to correlate feeds: %w", err)
	}
	summary.Joined = len(joined)

	now := s.now()
	inWindow, invalid := feed.FilterWindow(joined, now, s.cfg.WindowDays)
	for _, appt := range invalid {
		log.Info("skipping appointment with unparseable date", "client_id", appt.ClientID, "date", appt.Date)
	}
	summary.InWindow = len(inWindow)

	reminders := feed.ComposeReminders(inWindow)

	permitted, err := s.filterPermitted(ctx, reminders, log, summary)
	if err != nil {
		return nil, err
	}
	summary.Permitted = len(permitted)
	if len(permitted) == 0 {
		log.Info("no permitted candidates, nothing to do")
		return summary, nil
	}

	// One independent commit chain per candidate; a failure in one
	// never touches its siblings. MaxInFlight bounds the store load.
	var mu sync.Mutex
	var commits errgroup.Group
	commits.SetLimit(s.cfg.MaxInFlight)
	for _, reminder := range permitted {
		reminder := reminder
		commits.Go(func() error {
			result := s.process(ctx, reminder, now, log)
			mu.Lock()
			defer mu.Unlock()
			switch result.Outcome {
			case OutcomeCreated:
				summary.Created++
			case OutcomeSkippedDuplicate:
				summary.SkippedDuplicate++
			case OutcomeSkippedPending:
				summary.SkippedPending++
			case OutcomeFailed:
				summary.Failures = append(summary.Failures, result)
			}
			return nil
		})
	}
	// Goroutines report through the summary, never through an error.
	_ = commits.Wait()

	log.Info("run complete",
		"created", summary.Created,
		"skipped_duplicate", summary.SkippedDuplicate,
		"skipped_pending", summary.SkippedPending,
		"failed", len(summary.Failures),
	)
	return summary, nil
}

// filterPermitted batch-resolves every distinct client id against the
// store and keeps only candidates whose case manager consents to
// automated notifications. Unknown ids are dropped with a log line; a
// missing client is not an error at this stage.
func (s *Service) filterPermitted(ctx context.Context, reminders []model.Reminder, log *logger.Logger, summary *Summary) ([]model.Reminder, error) {
	if len(reminders) == 0 {
		return nil, nil
	}

	seen := make(map[int]bool, len(reminders))
	ids := make([]int, 0, len(reminders))
	for _, reminder := range reminders {
		if !seen[reminder.ClientID] {
			seen[reminder.ClientID] = true
			ids = append(ids, reminder.ClientID)
		}
	}

	permissions, err := s.clients.ListPermissions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client permissions: %w", err)
	}
	allowed := make(map[int]bool, len(permissions))
	for _, permission := range permissions {
		allowed[permission.ClientID] = permission.AllowAutomatedNotifications
	}

	var permitted []model.Reminder
	for _, reminder := range reminders {
		allow, found := allowed[reminder.ClientID]
		if !found {
			summary.DroppedUnknown++
			log.Info("skipping unknown client", "client_id", reminder.ClientID)
			continue
		}
		if !allow {
			summary.DroppedNoConsent++
			log.Info("skipping client without notification consent", "client_id", reminder.ClientID)
			continue
		}
		permitted = append(permitted, reminder)
	}
	return permitted, nil
}

// process runs the dedup gate and committer for one candidate.
func (s *Service) process(ctx context.Context, reminder model.Reminder, now time.Time, log *logger.Logger) Result {
	// The threshold is the start of today, not the run instant: a
	// reminder created earlier today for a next-day appointment has
	// send = today and must still block a same-day rerun.
	pending, err := s.notifications.ListPendingAutomated(ctx, reminder.ClientID, startOfDay(now))
	if err != nil {
		log.Error(err, "dedup query failed", "client_id", reminder.ClientID)
		return Result{ClientID: reminder.ClientID, Outcome: OutcomeFailed, Reason: "dedup query", Err: err}
	}
	for _, existing := range pending {
		if existing.Message == reminder.Message {
			log.Info("skipping exact duplicate reminder", "client_id", reminder.ClientID)
			return Result{ClientID: reminder.ClientID, Outcome: OutcomeSkippedDuplicate}
		}
	}
	// Only one automated reminder may be outstanding per client, even
	// for a different appointment.
	if len(pending) > 0 {
		log.Info("skipping client with pending automated reminder", "client_id", reminder.ClientID)
		return Result{ClientID: reminder.ClientID, Outcome: OutcomeSkippedPending}
	}

	client, err := s.clients.Get(ctx, reminder.ClientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Info("client not found at commit", "client_id", reminder.ClientID)
		} else {
			log.Error(err, "client lookup failed", "client_id", reminder.ClientID)
		}
		return Result{ClientID: reminder.ClientID, Outcome: OutcomeFailed, Reason: "client lookup", Err: err}
	}

	date, err := time.Parse(feed.AppointmentDateLayout, reminder.Date)
	if err != nil {
		// FilterWindow already parsed this date; reaching here means
		// the layouts diverged.
		log.Error(err, "unparseable appointment date at commit", "client_id", reminder.ClientID)
		return Result{ClientID: reminder.ClientID, Outcome: OutcomeFailed, Reason: "date parse", Err: err}
	}

	notification := &model.Notification{
		CaseManager: client.CaseManager,
		Client:      client.ClientID,
		Subject:     model.NotificationSubjectAutoReminder,
		Message:     reminder.Message,
		Send:        date.AddDate(0, 0, -s.cfg.LeadDays),
	}
	alert := &model.Alert{
		User:    client.CaseManager,
		Subject: model.AlertSubjectAutoCreated,
		Message: fmt.Sprintf("A court date notification was auto-created for %s. Edit it on their notifications page.", client.FullName()),
		Open:    true,
	}

	if err := s.notifications.CreateWithAlert(ctx, notification, alert); err != nil {
		log.Error(err, "notification insert failed", "client_id", reminder.ClientID)
		return Result{ClientID: reminder.ClientID, Outcome: OutcomeFailed, Reason: "notification insert", Err: err}
	}

	log.Info("reminder created", "client_id", client.ClientID, "client", client.FullName(), "send", notification.Send.Format("2006-01-02"))
	return Result{ClientID: reminder.ClientID, Outcome: OutcomeCreated}
}

// startOfDay truncates t to midnight in its location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
