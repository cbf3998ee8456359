package repository

import (
	"context"
	"time"

	"github.com/slco-2016/cTracksImporter/internal/model"
)

// All repository interfaces in one file
type (
	// ClientRepository handles client lookups and profile updates
	ClientRepository interface {
		Get(ctx context.Context, clientID int) (*model.Client, error)
		ListPermissions(ctx context.Context, clientIDs []int) ([]*model.ClientPermission, error)
		UpdateProfile(ctx context.Context, clientID int, dob time.Time, otn string) error
	}

	// NotificationRepository handles reminder notifications and their
	// companion case-manager alerts
	NotificationRepository interface {
		// ListPendingAutomated returns unsent, unclosed automated
		// reminders for the client whose send date is since or later
		// (inclusive: a reminder scheduled to send today is pending).
		ListPendingAutomated(ctx context.Context, clientID int, since time.Time) ([]*model.Notification, error)
		CreateWithAlert(ctx context.Context, notification *model.Notification, alert *model.Alert) error
	}
)
