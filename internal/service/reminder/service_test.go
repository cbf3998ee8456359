package reminder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slco-2016/cTracksImporter/internal/model"
	apperrors "github.com/slco-2016/cTracksImporter/pkg/errors"
	"github.com/slco-2016/cTracksImporter/pkg/logger"
)

// fakeStore is an in-memory stand-in for the postgres repositories.
// The mutex matters: commit chains run concurrently.
type fakeStore struct {
	mu            sync.Mutex
	clients       map[int]*model.Client
	permissions   map[int]*model.ClientPermission
	notifications []*model.Notification
	alerts        []*model.Alert

	getErr    error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:     map[int]*model.Client{},
		permissions: map[int]*model.ClientPermission{},
	}
}

func (f *fakeStore) addClient(clientID, caseManager int, first, last string, allow bool) {
	f.clients[clientID] = &model.Client{
		ClientID:    clientID,
		CaseManager: caseManager,
		First:       first,
		Last:        last,
		Active:      true,
	}
	f.permissions[clientID] = &model.ClientPermission{
		ClientID:                    clientID,
		CaseManager:                 caseManager,
		AllowAutomatedNotifications: allow,
	}
}

func (f *fakeStore) Get(ctx context.Context, clientID int) (*model.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	client, ok := f.clients[clientID]
	if !ok {
		return nil, apperrors.NewNotFound("client", nil)
	}
	return client, nil
}

func (f *fakeStore) ListPermissions(ctx context.Context, clientIDs []int) ([]*model.ClientPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.ClientPermission
	for _, id := range clientIDs {
		if permission, ok := f.permissions[id]; ok {
			result = append(result, permission)
		}
	}
	return result, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, clientID int, dob time.Time, otn string) error {
	return nil
}

func (f *fakeStore) ListPendingAutomated(ctx context.Context, clientID int, since time.Time) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []*model.Notification
	for _, notification := range f.notifications {
		if notification.Client != clientID || notification.Sent || notification.Closed {
			continue
		}
		// Inclusive, mirroring the postgres query: send today is
		// still pending.
		if notification.Send.Before(since) {
			continue
		}
		if !strings.HasPrefix(notification.Message, model.AutoReminderMessagePrefix) {
			continue
		}
		pending = append(pending, notification)
	}
	return pending, nil
}

func (f *fakeStore) CreateWithAlert(ctx context.Context, notification *model.Notification, alert *model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.notifications = append(f.notifications, notification)
	f.alerts = append(f.alerts, alert)
	return nil
}

var testNow = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore) *Service {
	service := NewService(store, store, logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Output: io.Discard,
	}), Config{WindowDays: 8, LeadDays: 1, MaxInFlight: 4})
	service.now = func() time.Time { return testNow }
	return service
}

func primaryLine(first string, count int) string {
	fields := make([]string, count)
	fields[0] = first
	for i := 1; i < count; i++ {
		fields[i] = "x"
	}
	return strings.Join(fields, "|")
}

func testInputs(primaryKeys []string, secondaryLines []string) Inputs {
	primary := make([]string, 0, len(primaryKeys))
	for _, key := range primaryKeys {
		primary = append(primary, primaryLine(key, 35))
	}
	return Inputs{
		Locations: strings.NewReader("7,OREM\r\n12,PROVO\r\n"),
		Primary:   strings.NewReader(strings.Join(primary, "\n")),
		Secondary: strings.NewReader(strings.Join(secondaryLines, "\n")),
	}
}

func secondaryLine(key, date string) string {
	return fmt.Sprintf("%s,x,x,%s,9:00 AM,4B,7,JUDGE BROWN", key, date)
}

func TestRunCreatesReminders(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	store.addClient(102, 3, "Bob", "Roy", true)
	service := newTestService(store)

	summary, err := service.Run(context.Background(), testInputs(
		[]string{"101", "102"},
		[]string{secondaryLine("101", "01/15/2024"), secondaryLine("102", "01/16/2024")},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)
	assert.Empty(t, summary.Failures)
	require.Len(t, store.notifications, 2)
	require.Len(t, store.alerts, 2)

	var ada *model.Notification
	for _, notification := range store.notifications {
		if notification.Client == 101 {
			ada = notification
		}
	}
	require.NotNil(t, ada)
	assert.Equal(t, 9, ada.CaseManager)
	assert.Equal(t, model.NotificationSubjectAutoReminder, ada.Subject)
	assert.Equal(t,
		"Your next court date is at Orem on 01/15/2024 at 9:00 AM, in Room 4B. Text me with any questions.",
		ada.Message)
	// Send date is one day of lead time before the appointment.
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), ada.Send)
	assert.False(t, ada.Sent)
	assert.False(t, ada.Closed)

	var adaAlert *model.Alert
	for _, alert := range store.alerts {
		if alert.User == 9 {
			adaAlert = alert
		}
	}
	require.NotNil(t, adaAlert)
	assert.Equal(t, model.AlertSubjectAutoCreated, adaAlert.Subject)
	assert.Contains(t, adaAlert.Message, "Ada Lov")
	assert.True(t, adaAlert.Open)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	service := newTestService(store)

	inputs := func() Inputs {
		return testInputs([]string{"101"}, []string{secondaryLine("101", "01/15/2024")})
	}

	first, err := service.Run(context.Background(), inputs())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := service.Run(context.Background(), inputs())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.SkippedDuplicate)
	assert.Len(t, store.notifications, 1)
}

func TestRunIsIdempotentAtLeadTimeBoundary(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	service := newTestService(store)

	// Appointment exactly one lead day out: the reminder's send date
	// lands on the run day itself. A same-day rerun must still see it
	// as pending.
	inputs := func() Inputs {
		return testInputs([]string{"101"}, []string{secondaryLine("101", "01/11/2024")})
	}

	first, err := service.Run(context.Background(), inputs())
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, testNow, store.notifications[0].Send)

	second, err := service.Run(context.Background(), inputs())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.SkippedDuplicate)
	assert.Len(t, store.notifications, 1)
}

func TestRunPendingReminderBlocksNewOne(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	// A pending automated reminder for a different appointment still
	// blocks: only one may be outstanding per client.
	store.notifications = append(store.notifications, &model.Notification{
		Client:  101,
		Subject: model.NotificationSubjectAutoReminder,
		Message: model.AutoReminderMessagePrefix + "Provo on 01/12/2024 at 1:00 PM, in Room 2A. Text me with any questions.",
		Send:    time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	})
	service := newTestService(store)

	summary, err := service.Run(context.Background(),
		testInputs([]string{"101"}, []string{secondaryLine("101", "01/15/2024")}))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.SkippedPending)
	assert.Len(t, store.notifications, 1)
}

func TestRunPermissionGate(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", false)
	store.addClient(102, 3, "Bob", "Roy", true)
	service := newTestService(store)

	summary, err := service.Run(context.Background(), testInputs(
		[]string{"101", "102"},
		[]string{secondaryLine("101", "01/15/2024"), secondaryLine("102", "01/16/2024")},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.DroppedNoConsent)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, 102, store.notifications[0].Client)
}

func TestRunUnknownClientDroppedSilently(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	summary, err := service.Run(context.Background(),
		testInputs([]string{"101"}, []string{secondaryLine("101", "01/15/2024")}))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.DroppedUnknown)
	assert.Empty(t, summary.Failures)
}

func TestRunWindowExcludesOutOfRange(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	store.addClient(102, 9, "Bob", "Roy", true)
	store.addClient(103, 9, "Cam", "Fox", true)
	service := newTestService(store)

	summary, err := service.Run(context.Background(), testInputs(
		[]string{"101", "102", "103"},
		[]string{
			secondaryLine("101", "01/10/2024"), // not strictly after now
			secondaryLine("102", "01/18/2024"), // exactly on the upper bound
			secondaryLine("103", "01/15/2024"), // inside
		},
	))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Joined)
	assert.Equal(t, 1, summary.InWindow)
	assert.Equal(t, 1, summary.Created)
	require.Len(t, store.notifications, 1)
	assert.Equal(t, 103, store.notifications[0].Client)
}

func TestRunClientVanishedAtCommit(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	store.addClient(102, 3, "Bob", "Roy", true)
	// 101 resolves for the permission batch but is gone by commit.
	delete(store.clients, 101)
	service := newTestService(store)

	summary, err := service.Run(context.Background(), testInputs(
		[]string{"101", "102"},
		[]string{secondaryLine("101", "01/15/2024"), secondaryLine("102", "01/16/2024")},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 101, summary.Failures[0].ClientID)
	assert.Equal(t, "client lookup", summary.Failures[0].Reason)
	// The sibling's commit was unaffected.
	require.Len(t, store.notifications, 1)
	assert.Equal(t, 102, store.notifications[0].Client)
}

func TestRunInsertFailureConfinedToCandidate(t *testing.T) {
	store := newFakeStore()
	store.addClient(101, 9, "Ada", "Lov", true)
	store.createErr = fmt.Errorf("connection reset")
	service := newTestService(store)

	summary, err := service.Run(context.Background(),
		testInputs([]string{"101"}, []string{secondaryLine("101", "01/15/2024")}))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "notification insert", summary.Failures[0].Reason)
}

func TestRunEmptyPermittedSetSucceeds(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	summary, err := service.Run(context.Background(), testInputs(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Empty(t, summary.Failures)
}

func TestRunUnreadableLocationTableIsFatal(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	_, err := service.Run(context.Background(), Inputs{
		Locations: failingReader{},
		Primary:   strings.NewReader(""),
		Secondary: strings.NewReader(""),
	})
	require.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("disk error")
}
