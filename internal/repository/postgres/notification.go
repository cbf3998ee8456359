package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slco-2016/cTracksImporter/internal/model"
	"github.com/slco-2016/cTracksImporter/internal/repository"
	apperrors "github.com/slco-2016/cTracksImporter/pkg/errors"
)

type notificationRepository struct {
	*BaseRepository
}

func NewNotificationRepository(base *BaseRepository) repository.NotificationRepository {
	return &notificationRepository{BaseRepository: base}
}

// ListPendingAutomated matches send >= since: a reminder scheduled to
// send today must still block a same-day rerun from re-creating it.
func (r *notificationRepository) ListPendingAutomated(ctx context.Context, clientID int, since time.Time) ([]*model.Notification, error) {
	query := `
		SELECT notification_id, cm, client, subject, message, send, repeat, sent, closed
		FROM notifications
		WHERE client = $1
		AND send >= $2
		AND sent = false
		AND closed = false
		AND message LIKE $3
	`
	var notifications []*model.Notification
	err := r.db.SelectContext(ctx, &notifications, query,
		clientID,
		since,
		model.AutoReminderMessagePrefix+"%",
	)
	if err != nil {
		return nil, apperrors.NewStore("list pending notifications", err)
	}
	return notifications, nil
}

// CreateWithAlert inserts the notification and its companion alert in
// one transaction, so a crash cannot leave a reminder without its
// audit trail.
func (r *notificationRepository) CreateWithAlert(ctx context.Context, notification *model.Notification, alert *model.Alert) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		notificationQuery := `
			INSERT INTO notifications (
				cm, client, comm, subject, message, send,
				ovm_id, repeat, frequency, sent, closed, repeat_terminus
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := tx.ExecContext(ctx, notificationQuery,
			notification.CaseManager,
			notification.Client,
			notification.Comm,
			notification.Subject,
			notification.Message,
			notification.Send,
			notification.OVMID,
			notification.Repeat,
			notification.Frequency,
			notification.Sent,
			notification.Closed,
			notification.RepeatTerminus,
		)
		if err != nil {
			return apperrors.NewStore("create notification", err)
		}

		alertQuery := `
			INSERT INTO alerts_feed (
				"user", created_by, subject, message, open, created
			) VALUES ($1, $2, $3, $4, $5, now())
		`
		_, err = tx.ExecContext(ctx, alertQuery,
			alert.User,
			alert.CreatedBy,
			alert.Subject,
			alert.Message,
			alert.Open,
		)
		if err != nil {
			return apperrors.NewStore("create alert", err)
		}

		return nil
	})
}
