package remoteverify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/infrastructure/philsys"
	"github.com/egovauthenticator/api/internal/pkg/cache"
	"github.com/egovauthenticator/api/internal/pkg/inflight"
	"github.com/egovauthenticator/api/internal/pkg/normalize"
	"github.com/egovauthenticator/api/internal/platform/metrics"
	"go.uber.org/zap"
)

const (
	sessionKey = "session"
	issuer     = "PSA"
)

// Result is a verdict for one request. Fields are the normalised request values,
// which is what gets stored on the verification record.
type Result struct {
	Status  domain.VerificationStatus
	Payload json.RawMessage
	Message string
	Cached  bool
	Fields  map[string]string
}

type Service interface {
	// Verify checks the request against the remote verifier. A rejection is a FAKE
	// result, not an error; transport failures wrap domain.ErrVerifierUnavailable.
	Verify(ctx context.Context, req domain.PhilSysVerifyRequest) (Result, error)
}

type verifier interface {
	FetchSessionToken(ctx context.Context) (string, error)
	Verify(ctx context.Context, token string, p philsys.Payload) (philsys.Verdict, error)
}

type service struct {
	client   verifier
	sessions *cache.TTL[string, string]
	results  *cache.TTL[string, json.RawMessage]
	refresh  *inflight.Group[string]
	now      func() time.Time
	metrics  *metrics.Metrics
	log      *zap.Logger
}

type ServiceDeps struct {
	Client verifier
	// Sessions holds the one shared session token; its TTL is the session lifetime.
	Sessions *cache.TTL[string, string]
	// Results memoises authentic verdicts; its TTL must be shorter than the session's.
	Results *cache.TTL[string, json.RawMessage]
	Now     func() time.Time
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		client:   deps.Client,
		sessions: deps.Sessions,
		results:  deps.Results,
		refresh:  inflight.New[string](0),
		now:      deps.Now,
		metrics:  deps.Metrics,
		log:      deps.Logger,
	}
	if s.sessions == nil {
		s.sessions = cache.New[string, string](30 * time.Minute)
	}
	if s.results == nil {
		s.results = cache.New[string, json.RawMessage](10 * time.Minute)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Verify(ctx context.Context, req domain.PhilSysVerifyRequest) (Result, error) {
	fields, err := s.normalizeRequest(req)
	if err != nil {
		return Result{}, err
	}
	key, err := CanonicalKey(fields)
	if err != nil {
		return Result{}, err
	}
	if payload, ok := s.results.Get(key); ok {
		s.metrics.IncVerifierCacheHit()
		return Result{Status: domain.StatusAuthentic, Payload: payload, Cached: true, Fields: fields}, nil
	}

	token, err := s.session(ctx)
	if err != nil {
		return Result{}, err
	}
	verdict, err := s.client.Verify(ctx, token, buildPayload(fields))
	if err != nil {
		s.metrics.ObserveVerifierCall("unavailable")
		return Result{}, err
	}
	if !verdict.Authentic {
		s.metrics.ObserveVerifierCall("fake")
		if verdict.Status == http.StatusUnauthorized {
			// The session was rejected; the next call fetches a fresh one.
			s.sessions.Delete(sessionKey)
		}
		s.log.Info("remote verifier rejected request",
			zap.Int("status", verdict.Status), zap.String("message", verdict.Message))
		return Result{Status: domain.StatusFake, Payload: verdict.Body, Message: verdict.Message, Fields: fields}, nil
	}
	s.metrics.ObserveVerifierCall("authentic")
	s.results.Set(key, verdict.Body)
	return Result{Status: domain.StatusAuthentic, Payload: verdict.Body, Fields: fields}, nil
}

// session returns the cached token or fetches one. Concurrent callers share a
// single cookie issuer call.
func (s *service) session(ctx context.Context) (string, error) {
	if tok, ok := s.sessions.Get(sessionKey); ok {
		return tok, nil
	}
	tok, _, err := s.refresh.Do(ctx, sessionKey, func(ctx context.Context) (string, error) {
		if tok, ok := s.sessions.Get(sessionKey); ok {
			return tok, nil
		}
		tok, err := s.client.FetchSessionToken(ctx)
		if err != nil {
			s.metrics.ObserveSessionRefresh("error")
			s.log.Warn("session refresh failed", zap.Error(err))
			return "", err
		}
		s.metrics.ObserveSessionRefresh("ok")
		s.sessions.Set(sessionKey, tok)
		return tok, nil
	})
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}
	return tok, nil
}

func (s *service) normalizeRequest(req domain.PhilSysVerifyRequest) (map[string]string, error) {
	pcn := normalize.Digits(req.PCN)
	if len(pcn) != 16 {
		return nil, fmt.Errorf("pcn must have 16 digits: %w", domain.ErrBadRequest)
	}
	dob := normalize.Date(req.DateOfBirth)
	if dob == "" {
		return nil, fmt.Errorf("dateOfBirth is not a recognised date: %w", domain.ErrBadRequest)
	}
	issued := normalize.Date(req.DateIssued)
	if issued == "" {
		issued = s.now().Format("2006-01-02")
	}
	return map[string]string{
		"pcn":          pcn,
		"firstName":    normalize.Name(req.FirstName),
		"middleName":   normalize.Name(req.MiddleName),
		"lastName":     normalize.Name(req.LastName),
		"suffix":       normalize.Name(req.Suffix),
		"sex":          normalize.Sex(req.Sex),
		"dateOfBirth":  dob,
		"placeOfBirth": normalize.Spaces(req.PlaceOfBirth),
		"bloodType":    normalize.NoSpaces(req.BloodType),
		"dateIssued":   issued,
	}, nil
}

// CanonicalKey serialises fields with sorted keys, so callers that build the
// same request in a different order hit the same cache entry.
func CanonicalKey(fields map[string]string) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("canonical key: %w", err)
	}
	return string(b), nil
}

func buildPayload(f map[string]string) philsys.Payload {
	return philsys.Payload{
		DateIssued: f["dateIssued"],
		Issuer:     issuer,
		Subject: philsys.Subject{
			BloodType:    f["bloodType"],
			DateOfBirth:  f["dateOfBirth"],
			PCN:          f["pcn"],
			PlaceOfBirth: f["placeOfBirth"],
			FirstName:    f["firstName"],
			LastName:     f["lastName"],
			MiddleName:   f["middleName"],
			Sex:          f["sex"],
			Suffix:       f["suffix"],
		},
	}
}
