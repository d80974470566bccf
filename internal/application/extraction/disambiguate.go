package extraction

import (
	"context"
	"strings"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/infrastructure/gemini"
	"github.com/egovauthenticator/api/internal/pkg/jsonx"
	"github.com/egovauthenticator/api/internal/pkg/normalize"
	"github.com/egovauthenticator/api/internal/pkg/strategy"
	"go.uber.org/zap"
)

const sexStageMaxTokens = 256

// resolveSex runs the sex ensemble against the crop if there is one, otherwise the
// whole image. It returns "Male", "Female" or "" and never fails.
func (s *service) resolveSex(ctx context.Context, primary gemini.Image, crop *gemini.Image) string {
	target := primary
	if crop != nil && len(crop.Data) > 0 {
		target = *crop
	}

	runner := strategy.Runner[string, string]{
		Scopes:   s.models,
		Attempts: s.sexStages(target),
		Classify: classifyStage,
		Accept:   func(v string) bool { return v != "" },
		Observe: func(model, stage string, err error) {
			if err != nil {
				s.log.Debug("sex stage failed", zap.String("model", model), zap.String("stage", stage), zap.Error(err))
			}
		},
	}
	v, err := runner.Run(ctx)
	if err != nil {
		v = ""
	}
	v = normalize.Sex(v)
	s.metrics.ObserveEnsemble(v)
	return v
}

// classifyStage never stops the ensemble: an unavailable model is skipped, any
// other failure moves on to the next framing.
func classifyStage(err error) strategy.Class {
	if gemini.IsKind(err, gemini.KindModelUnavailable) {
		return strategy.NextScope
	}
	return strategy.RetrySame
}

func (s *service) sexStages(target gemini.Image) []strategy.Attempt[string, string] {
	return []strategy.Attempt[string, string]{
		{Name: "reference", Run: func(ctx context.Context, model string) (string, error) {
			if len(s.references) == 0 {
				return "", nil
			}
			images := append(append([]gemini.Image{}, s.references...), target)
			return s.askSex(ctx, model, sexReferencePrompt, images, nil, "sex", normalize.Sex)
		}},
		{Name: "freeform", Run: func(ctx context.Context, model string) (string, error) {
			return s.askSex(ctx, model, sexFreeformPrompt, []gemini.Image{target}, nil, "sex", normalize.Sex)
		}},
		{Name: "label", Run: func(ctx context.Context, model string) (string, error) {
			return s.askSex(ctx, model, sexLabelPrompt, []gemini.Image{target}, nil, "label", fromLabel)
		}},
		{Name: "enum", Run: func(ctx context.Context, model string) (string, error) {
			return s.askSex(ctx, model, sexEnumPrompt, []gemini.Image{target}, sexEnumSchema(), "sex", normalize.Sex)
		}},
		{Name: "geometry", Run: func(ctx context.Context, model string) (string, error) {
			return s.askSex(ctx, model, sexGeometryPrompt, []gemini.Image{target}, nil, "position", fromPosition)
		}},
	}
}

func (s *service) askSex(ctx context.Context, model, prompt string, images []gemini.Image, schema map[string]any, field string, mapper func(string) string) (string, error) {
	res, err := s.provider.Generate(ctx, gemini.Request{
		Model:           model,
		Prompt:          prompt,
		Images:          images,
		Schema:          schema,
		Temperature:     gemini.Temperature(0),
		MaxOutputTokens: sexStageMaxTokens,
	})
	if err != nil {
		return "", err
	}
	var answer map[string]any
	if !jsonx.Decode(string(res.JSON), &answer) {
		return "", nil
	}
	v, _ := answer[field].(string)
	return mapper(v), nil
}

func fromLabel(v string) string {
	switch strings.TrimSpace(v) {
	case "1":
		return domain.SexMale
	case "2":
		return domain.SexFemale
	default:
		return ""
	}
}

func fromPosition(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left":
		return domain.SexMale
	case "right":
		return domain.SexFemale
	default:
		return ""
	}
}
