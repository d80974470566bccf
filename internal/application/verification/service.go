package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egovauthenticator/api/internal/application/remoteverify"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/pkg/id"
	"github.com/egovauthenticator/api/internal/platform/metrics"
	"go.uber.org/zap"
)

// Outcome is the result of one verification attempt.
type Outcome struct {
	Record  *domain.Verification `json:"verification"`
	Message string               `json:"message,omitempty"`
	Payload json.RawMessage      `json:"payload,omitempty"`
	Cached  bool                 `json:"cached,omitempty"`
}

// RecordedError is returned when an attempt failed. The failure has already been
// stored as an ERROR record with id VerificationID.
type RecordedError struct {
	VerificationID string
	Err            error
}

func (e *RecordedError) Error() string { return e.Err.Error() }
func (e *RecordedError) Unwrap() error { return e.Err }

// Caller identifies who is asking, for ownership checks.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) canAccess(v *domain.Verification) bool {
	return c.Role == domain.RoleAdmin || v.UserID == c.UserID
}

type Service interface {
	// VerifyDocument extracts fields from an uploaded image, classifies the
	// document and cross-checks it against the matching source.
	VerifyDocument(ctx context.Context, userID string, upload domain.DocumentUpload) (*Outcome, error)
	VerifyPSA(ctx context.Context, userID string, req domain.PSAVerifyRequest) (*Outcome, error)
	VerifyVoters(ctx context.Context, userID string, req domain.VotersVerifyRequest) (*Outcome, error)
	VerifyPhilSys(ctx context.Context, userID string, req domain.PhilSysVerifyRequest) (*Outcome, error)
	List(ctx context.Context, userID string, f domain.VerificationFilter) (*domain.VerificationPage, error)
	Get(ctx context.Context, caller Caller, verificationID string) (*domain.Verification, error)
	Delete(ctx context.Context, caller Caller, verificationID string) error
}

type verificationStore interface {
	Create(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, verificationID string) (*domain.Verification, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Verification, error)
	SoftDelete(ctx context.Context, verificationID string) error
}

type referenceStore interface {
	FindPSARecord(ctx context.Context, firstName, lastName, sex, dob string) (*domain.PSARecord, error)
	FindVoterRecord(ctx context.Context, precinct, firstName, lastName string) (*domain.VoterRecord, error)
}

type extractor interface {
	Extract(ctx context.Context, upload domain.DocumentUpload) (domain.ExtractionResult, error)
}

type remoteVerifier interface {
	Verify(ctx context.Context, req domain.PhilSysVerifyRequest) (remoteverify.Result, error)
}

type archiver interface {
	Archive(ctx context.Context, userID string, data []byte) (string, error)
}

// EventPublisher receives an event for every stored record.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.VerificationEvent) error
}

type service struct {
	repo       verificationStore
	references referenceStore
	extractor  extractor
	remote     remoteVerifier
	archive    archiver
	events     EventPublisher
	now        func() time.Time
	metrics    *metrics.Metrics
	log        *zap.Logger
}

type ServiceDeps struct {
	Repo       verificationStore
	References referenceStore
	Extractor  extractor
	Remote     remoteVerifier
	// Archive and Events are optional.
	Archive archiver
	Events  EventPublisher
	Now     func() time.Time
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:       deps.Repo,
		references: deps.References,
		extractor:  deps.Extractor,
		remote:     deps.Remote,
		archive:    deps.Archive,
		events:     deps.Events,
		now:        deps.Now,
		metrics:    deps.Metrics,
		log:        deps.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) VerifyDocument(ctx context.Context, userID string, upload domain.DocumentUpload) (*Outcome, error) {
	s.archiveUpload(ctx, userID, upload.Image)

	res, err := s.extractor.Extract(ctx, upload)
	if err != nil {
		return s.fail(ctx, domain.VerificationUnknown, userID, err)
	}

	typ := Classify(res.DocumentType)
	switch typ {
	case domain.VerificationPSA:
		return s.checkPSA(ctx, userID, res.Fields(), res.FirstName, res.LastName, res.Sex, res.DateOfBirth)
	case domain.VerificationVoters:
		fields := res.Fields()
		fields["precinctNumber"] = normalizePrecinct(res.PrecinctNumber)
		return s.checkVoter(ctx, userID, fields, fields["precinctNumber"], res.FirstName, res.LastName)
	case domain.VerificationPhilSys:
		return s.VerifyPhilSys(ctx, userID, philSysRequest(res))
	default:
		return s.fail(ctx, domain.VerificationUnknown, userID,
			fmt.Errorf("document type %q: %w", res.DocumentType, domain.ErrUnrecognizedDocumentType))
	}
}

func (s *service) VerifyPSA(ctx context.Context, userID string, req domain.PSAVerifyRequest) (*Outcome, error) {
	fields := psaFields(req)
	if fields["dateOfBirth"] == "" {
		return s.fail(ctx, domain.VerificationPSA, userID,
			fmt.Errorf("dateOfBirth is not a recognised date: %w", domain.ErrBadRequest))
	}
	return s.checkPSA(ctx, userID, fields, fields["firstName"], fields["lastName"], fields["sex"], fields["dateOfBirth"])
}

func (s *service) VerifyVoters(ctx context.Context, userID string, req domain.VotersVerifyRequest) (*Outcome, error) {
	fields := votersFields(req)
	return s.checkVoter(ctx, userID, fields, fields["precinctNumber"], fields["firstName"], fields["lastName"])
}

func (s *service) VerifyPhilSys(ctx context.Context, userID string, req domain.PhilSysVerifyRequest) (*Outcome, error) {
	res, err := s.remote.Verify(ctx, req)
	if err != nil {
		return s.fail(ctx, domain.VerificationPhilSys, userID, err)
	}
	rec, err := s.recordOutcome(ctx, domain.VerificationPhilSys, userID, res.Fields, res.Status)
	if err != nil {
		return nil, err
	}
	return &Outcome{Record: rec, Message: res.Message, Payload: res.Payload, Cached: res.Cached}, nil
}

func (s *service) checkPSA(ctx context.Context, userID string, fields map[string]string, first, last, sex, dob string) (*Outcome, error) {
	match, err := s.references.FindPSARecord(ctx, first, last, sex, dob)
	if err != nil {
		return s.fail(ctx, domain.VerificationPSA, userID, err)
	}
	return s.matched(ctx, domain.VerificationPSA, userID, fields, match != nil)
}

func (s *service) checkVoter(ctx context.Context, userID string, fields map[string]string, precinct, first, last string) (*Outcome, error) {
	match, err := s.references.FindVoterRecord(ctx, precinct, first, last)
	if err != nil {
		return s.fail(ctx, domain.VerificationVoters, userID, err)
	}
	return s.matched(ctx, domain.VerificationVoters, userID, fields, match != nil)
}

func (s *service) matched(ctx context.Context, typ domain.VerificationType, userID string, fields map[string]string, ok bool) (*Outcome, error) {
	status := domain.StatusFake
	if ok {
		status = domain.StatusAuthentic
	}
	rec, err := s.recordOutcome(ctx, typ, userID, fields, status)
	if err != nil {
		return nil, err
	}
	return &Outcome{Record: rec}, nil
}

// fail stores an ERROR record with no data and returns cause wrapped in a
// RecordedError carrying the record id.
func (s *service) fail(ctx context.Context, typ domain.VerificationType, userID string, cause error) (*Outcome, error) {
	s.log.Warn("verification attempt failed",
		zap.String("type", string(typ)), zap.String("user_id", userID), zap.Error(cause))
	rec, err := s.recordOutcome(ctx, typ, userID, nil, domain.StatusError)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return nil, &RecordedError{VerificationID: rec.VerificationID, Err: cause}
}

// recordOutcome persists exactly one record for an attempt. Storage uses a
// context detached from the request so a client disconnect cannot drop it.
func (s *service) recordOutcome(ctx context.Context, typ domain.VerificationType, userID string, fields map[string]string, status domain.VerificationStatus) (*domain.Verification, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	rec := &domain.Verification{
		VerificationID: id.New(),
		Type:           typ,
		UserID:         userID,
		Data:           fields,
		Status:         status,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Create(ctx, rec); err != nil {
		s.log.Error("failed to store verification record",
			zap.String("verification_id", rec.VerificationID), zap.Error(err))
		return nil, fmt.Errorf("store verification: %w", err)
	}
	s.metrics.ObserveRecorded(string(typ), string(status))
	s.publish(ctx, rec)
	return rec, nil
}

func (s *service) publish(ctx context.Context, rec *domain.Verification) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, domain.NewVerificationEvent(rec)); err != nil {
		s.log.Warn("failed to publish verification event",
			zap.String("verification_id", rec.VerificationID), zap.Error(err))
	}
}

func (s *service) archiveUpload(ctx context.Context, userID string, data []byte) {
	if s.archive == nil || len(data) == 0 {
		return
	}
	if _, err := s.archive.Archive(ctx, userID, data); err != nil {
		s.log.Warn("failed to archive upload", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, userID string, f domain.VerificationFilter) (*domain.VerificationPage, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	page := Paginate(records, f)
	return &page, nil
}

func (s *service) Get(ctx context.Context, caller Caller, verificationID string) (*domain.Verification, error) {
	v, err := s.repo.Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if v == nil || !v.Active {
		return nil, fmt.Errorf("verification %s: %w", verificationID, domain.ErrNotFound)
	}
	if !caller.canAccess(v) {
		return nil, fmt.Errorf("verification %s: %w", verificationID, domain.ErrForbidden)
	}
	return v, nil
}

func (s *service) Delete(ctx context.Context, caller Caller, verificationID string) error {
	if _, err := s.Get(ctx, caller, verificationID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, verificationID)
}
