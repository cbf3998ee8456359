package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slco-2016/cTracksImporter/internal/model"
	"github.com/slco-2016/cTracksImporter/internal/repository"
	apperrors "github.com/slco-2016/cTracksImporter/pkg/errors"
)

type clientRepository struct {
	*BaseRepository
}

func NewClientRepository(base *BaseRepository) repository.ClientRepository {
	return &clientRepository{BaseRepository: base}
}

func (r *clientRepository) Get(ctx context.Context, clientID int) (*model.Client, error) {
	query := `
		SELECT clid, cm, first, last, dob, otn, active
		FROM clients
		WHERE clid = $1
	`
	var client model.Client
	err := r.db.GetContext(ctx, &client, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("client", err)
	}
	if err != nil {
		return nil, apperrors.NewStore("get client", err)
	}
	return &client, nil
}

func (r *clientRepository) ListPermissions(ctx context.Context, clientIDs []int) ([]*model.ClientPermission, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.clid, c.cm, m.allow_automated_notifications
		FROM clients c
		JOIN cms m ON m.cmid = c.cm
		WHERE c.clid IN (?)
	`
	query, args, err := sqlx.In(query, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build permissions query: %w", err)
	}
	query = r.db.Rebind(query)

	var permissions []*model.ClientPermission
	if err := r.db.SelectContext(ctx, &permissions, query, args...); err != nil {
		return nil, apperrors.NewStore("list client permissions", err)
	}
	return permissions, nil
}

func (r *clientRepository) UpdateProfile(ctx context.Context, clientID int, dob time.Time, otn string) error {
	query := `
		UPDATE clients
		SET dob = $1, otn = $2
		WHERE clid = $3
	`
	result, err := r.db.ExecContext(ctx, query, dob, otn, clientID)
	if err != nil {
		return apperrors.NewStore("update client profile", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStore("update client profile", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("client", nil)
	}

	return nil
}
