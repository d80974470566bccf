package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/infrastructure/gemini"
	"github.com/egovauthenticator/api/internal/pkg/cache"
	"github.com/egovauthenticator/api/internal/pkg/id"
	"github.com/egovauthenticator/api/internal/pkg/inflight"
	"github.com/egovauthenticator/api/internal/pkg/jsonx"
	"github.com/egovauthenticator/api/internal/pkg/normalize"
	"github.com/egovauthenticator/api/internal/pkg/strategy"
	"github.com/egovauthenticator/api/internal/platform/metrics"
	"go.uber.org/zap"
)

// DefaultModels is the model priority list used when none is configured.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}

const (
	strictMaxTokens  = 1024
	relaxedMaxTokens = 4096
)

type Service interface {
	// Extract returns the canonical fields of the document in upload. Identical
	// uploads share one provider call while it is running and reuse its result
	// until the cache entry expires.
	Extract(ctx context.Context, upload domain.DocumentUpload) (domain.ExtractionResult, error)
}

type generator interface {
	Generate(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

type service struct {
	provider   generator
	models     []string
	references []gemini.Image
	cache      *cache.TTL[string, domain.ExtractionResult]
	inflight   *inflight.Group[domain.ExtractionResult]
	metrics    *metrics.Metrics
	log        *zap.Logger
}

type ServiceDeps struct {
	Provider generator
	// Models in priority order. Empty means DefaultModels.
	Models []string
	// ReferenceImages are the marked-sex examples used by the first ensemble stage.
	ReferenceImages []gemini.Image
	Cache           *cache.TTL[string, domain.ExtractionResult]
	Inflight        *inflight.Group[domain.ExtractionResult]
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		provider:   deps.Provider,
		models:     deps.Models,
		references: deps.ReferenceImages,
		cache:      deps.Cache,
		inflight:   deps.Inflight,
		metrics:    deps.Metrics,
		log:        deps.Logger,
	}
	if len(s.models) == 0 {
		s.models = DefaultModels
	}
	if s.cache == nil {
		s.cache = cache.New[string, domain.ExtractionResult](30 * time.Minute)
	}
	if s.inflight == nil {
		s.inflight = inflight.New[domain.ExtractionResult](2 * time.Minute)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) Extract(ctx context.Context, upload domain.DocumentUpload) (domain.ExtractionResult, error) {
	if len(upload.Image) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("empty image: %w", domain.ErrBadRequest)
	}
	key := cacheKey(upload)
	if r, ok := s.cache.Get(key); ok {
		s.metrics.IncExtractionCacheHit()
		return r, nil
	}

	r, shared, err := s.inflight.Do(ctx, key, func(ctx context.Context) (domain.ExtractionResult, error) {
		return s.extractUncached(ctx, key, upload)
	})
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	if shared {
		s.log.Debug("extraction shared with concurrent request", zap.String("filename", upload.Filename))
	}
	return r, nil
}

// extractUncached runs inside the in-flight group. A call that finished between
// the caller's cache miss and this point has already stored its result.
func (s *service) extractUncached(ctx context.Context, key string, upload domain.DocumentUpload) (domain.ExtractionResult, error) {
	if r, ok := s.cache.Get(key); ok {
		s.metrics.IncExtractionCacheHit()
		return r, nil
	}
	start := time.Now()
	r, err := s.run(ctx, upload)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	s.metrics.ObserveExtraction(start)
	s.cache.Set(key, r)
	return r, nil
}

// cacheKey hashes the image, plus the sex crop when one is supplied since it can
// change the resolved sex.
func cacheKey(upload domain.DocumentUpload) string {
	key := id.Content(upload.Image)
	if len(upload.SexCrop) > 0 {
		key += ":" + id.Content(upload.SexCrop)
	}
	return key
}

func (s *service) run(ctx context.Context, upload domain.DocumentUpload) (domain.ExtractionResult, error) {
	img := gemini.Image{MimeType: upload.MimeType, Data: upload.Image}

	payload, err := s.detectStructuredCode(ctx, img)
	if err != nil {
		s.log.Debug("structured code pass failed, running full extraction", zap.Error(err))
	}
	if r, ok := trustedResult(payload); ok {
		s.metrics.IncStructuredCodeHit()
		s.log.Info("document resolved from structured code", zap.String("filename", upload.Filename))
		return r, nil
	}

	r, err := s.extractFull(ctx, img)
	if err != nil {
		s.log.Warn("extraction failed", zap.String("filename", upload.Filename), zap.Error(err))
		return domain.ExtractionResult{}, err
	}
	if r.Sex == "" {
		var crop *gemini.Image
		if len(upload.SexCrop) > 0 {
			crop = &gemini.Image{MimeType: upload.SexCropMime, Data: upload.SexCrop}
		}
		r.Sex = s.resolveSex(ctx, img, crop)
	}
	return r, nil
}

// extractFull walks the model list. Each model gets a schema-constrained attempt
// and, if that answer cannot be parsed, a relaxed attempt with an inline template.
func (s *service) extractFull(ctx context.Context, img gemini.Image) (domain.ExtractionResult, error) {
	runner := strategy.Runner[string, domain.ExtractionResult]{
		Scopes: s.models,
		Attempts: []strategy.Attempt[string, domain.ExtractionResult]{
			{Name: "strict", Run: func(ctx context.Context, model string) (domain.ExtractionResult, error) {
				return s.generateResult(ctx, gemini.Request{
					Model:           model,
					Prompt:          strictPrompt,
					Images:          []gemini.Image{img},
					Schema:          extractionSchema(),
					Temperature:     gemini.Temperature(0),
					MaxOutputTokens: strictMaxTokens,
				})
			}},
			{Name: "relaxed", Run: func(ctx context.Context, model string) (domain.ExtractionResult, error) {
				return s.generateResult(ctx, gemini.Request{
					Model:           model,
					Prompt:          relaxedPrompt,
					Images:          []gemini.Image{img},
					Temperature:     gemini.Temperature(0),
					MaxOutputTokens: relaxedMaxTokens,
				})
			}},
		},
		Classify: classifyExtraction,
		Observe: func(model, attempt string, err error) {
			s.metrics.ObserveExtractionCall(model, outcome(err))
			if err != nil {
				s.log.Debug("extraction attempt failed",
					zap.String("model", model), zap.String("attempt", attempt), zap.Error(err))
			}
		},
	}

	r, err := runner.Run(ctx)
	if err == nil {
		return normalize.Result(r), nil
	}
	var ex *strategy.ExhaustedError
	if errors.As(err, &ex) {
		if allUnavailable(ex.Errs) {
			return domain.ExtractionResult{}, fmt.Errorf("%w: %w", domain.ErrNoModelAvailable, err)
		}
		return domain.ExtractionResult{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	if ctx.Err() != nil {
		return domain.ExtractionResult{}, err
	}
	return domain.ExtractionResult{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
}

func (s *service) generateResult(ctx context.Context, req gemini.Request) (domain.ExtractionResult, error) {
	res, err := s.provider.Generate(ctx, req)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	r, err := decodeResult(res.JSON)
	if err != nil {
		return domain.ExtractionResult{}, &gemini.Error{Kind: gemini.KindMalformed, Model: req.Model, Err: err}
	}
	return r, nil
}

// classifyExtraction keeps parse failures on the same model, rotates on
// availability problems and stops on everything else, safety blocks included.
func classifyExtraction(err error) strategy.Class {
	switch gemini.KindOf(err) {
	case gemini.KindMalformed, gemini.KindTruncated:
		return strategy.RetrySame
	case gemini.KindModelUnavailable:
		return strategy.NextScope
	default:
		return strategy.Fatal
	}
}

func allUnavailable(errs []error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if !gemini.IsKind(err, gemini.KindModelUnavailable) {
			return false
		}
	}
	return true
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := gemini.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

// resultAliases maps alternative keys models sometimes emit onto canonical ones.
var resultAliases = map[string]string{
	"type":          "documentType",
	"document_type": "documentType",
	"name":          "fullName",
	"birthDate":     "dateOfBirth",
	"dob":           "dateOfBirth",
	"pcn":           "externalId",
}

// decodeResult reads a JSON object into an ExtractionResult, stringifying
// scalar values and ignoring unknown keys.
func decodeResult(raw json.RawMessage) (domain.ExtractionResult, error) {
	var m map[string]any
	if err := jsonx.Unmarshal(raw, &m); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("decode extraction: %w", err)
	}
	fields := map[string]string{}
	for k, v := range m {
		if canonical, ok := resultAliases[k]; ok {
			if _, exists := m[canonical]; exists {
				continue
			}
			k = canonical
		}
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprint(val)
		}
	}
	return domain.ExtractionResult{
		DocumentType:   fields["documentType"],
		ExternalID:     fields["externalId"],
		FullName:       fields["fullName"],
		FirstName:      fields["firstName"],
		MiddleName:     fields["middleName"],
		LastName:       fields["lastName"],
		Sex:            fields["sex"],
		DateOfBirth:    fields["dateOfBirth"],
		PlaceOfBirth:   fields["placeOfBirth"],
		Address:        fields["address"],
		PrecinctNumber: fields["precinctNumber"],
		VoterIDNumber:  fields["voterIdNumber"],
		OtherNotes:     fields["otherNotes"],
	}, nil
}
