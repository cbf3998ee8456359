package profile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/slco-2016/cTracksImporter/internal/model"
	"github.com/slco-2016/cTracksImporter/internal/repository"
	apperrors "github.com/slco-2016/cTracksImporter/pkg/errors"
	"github.com/slco-2016/cTracksImporter/pkg/logger"
)

// DOBLayout is the date-of-birth format of the profile export.
const DOBLayout = "01/02/06"

// Column headers of the client-profile-updates CSV.
const (
	columnClientID    = "clid"
	columnCaseManager = "cm"
	columnDOB         = "Cdob"
	columnOTN         = "Ctrack#"
)

// Summary aggregates one profile sync run.
type Summary struct {
	Processed int
	Updated   int
	Unchanged int
	Rejected  int
	NotFound  int
	Failed    int
}

type Service struct {
	clients repository.ClientRepository
	logger  *logger.Logger
}

func NewService(clients repository.ClientRepository, logger *logger.Logger) *Service {
	return &Service{clients: clients, logger: logger}
}

// Sync applies the client-profile-updates CSV one record at a time.
// A record is rejected when its case manager does not match the stored
// one; DOB and OTN are updated only when they differ. Per-record
// problems are logged and counted, never fatal.
func (s *Service) Sync(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{columnClientID, columnCaseManager, columnDOB, columnOTN} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("profile CSV missing %q column", required)
		}
	}

	summary := &Summary{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("skipping malformed profile row", "error", err.Error())
			summary.Failed++
			continue
		}
		summary.Processed++
		s.syncOne(ctx, record, columns, summary)
	}
	return summary, nil
}

func (s *Service) syncOne(ctx context.Context, record []string, columns map[string]int, summary *Summary) {
	update, err := parseRecord(record, columns)
	if err != nil {
		s.logger.Warn("skipping unparseable profile row", "error", err.Error())
		summary.Failed++
		return
	}
	log := s.logger.WithFields(map[string]interface{}{"client_id": update.ClientID})

	client, err := s.clients.Get(ctx, update.ClientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("client not found")
			summary.NotFound++
		} else {
			log.Error(err, "client lookup failed")
			summary.Failed++
		}
		return
	}

	if update.CaseManager != client.CaseManager {
		log.Warn("case manager mismatch, not updating",
			"csv_cm", update.CaseManager, "stored_cm", client.CaseManager)
		summary.Rejected++
		return
	}

	storedDOB := ""
	if client.DOB != nil {
		storedDOB = client.DOB.Format(DOBLayout)
	}
	needsUpdate := false
	if update.DOB.Format(DOBLayout) != storedDOB {
		log.Info("will change dob", "to", update.DOB.Format(DOBLayout), "from", storedDOB)
		needsUpdate = true
	}
	if update.OTN != client.OTN {
		log.Info("will change otn", "to", update.OTN, "from", client.OTN)
		needsUpdate = true
	}
	if !needsUpdate {
		summary.Unchanged++
		return
	}

	if err := s.clients.UpdateProfile(ctx, update.ClientID, update.DOB, update.OTN); err != nil {
		log.Error(err, "failed to update client profile")
		summary.Failed++
		return
	}
	log.Info("updated client profile")
	summary.Updated++
}

func parseRecord(record []string, columns map[string]int) (*model.ProfileUpdate, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	clientID, err := strconv.Atoi(field(columnClientID))
	if err != nil {
		return nil, fmt.Errorf("invalid clid %q: %w", field(columnClientID), err)
	}
	caseManager, err := strconv.Atoi(field(columnCaseManager))
	if err != nil {
		return nil, fmt.Errorf("invalid cm %q: %w", field(columnCaseManager), err)
	}
	dob, err := time.Parse(DOBLayout, field(columnDOB))
	if err != nil {
		return nil, fmt.Errorf("invalid dob %q: %w", field(columnDOB), err)
	}

	return &model.ProfileUpdate{
		ClientID:    clientID,
		CaseManager: caseManager,
		DOB:         dob,
		OTN:         field(columnOTN),
	}, nil
}
