package collaborator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	apperrors "benefit-orchestrator/internal/common/errors"
	commonhttp "benefit-orchestrator/internal/common/http"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"
)

// HTTPClassifier posts reviewer text to {baseURL}/api/classify/human-response.
type HTTPClassifier struct {
	client  *commonhttp.Client
	baseURL string
	apiKey  string
}

func NewHTTPClassifier(client *commonhttp.Client, baseURL, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (c *HTTPClassifier) ClassifyHumanResponse(ctx context.Context, text string) (*models.HumanResponse, error) {
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}

	resp, err := c.client.PostJSON(ctx, c.baseURL+"/api/classify/human-response", headers, map[string]string{"text": text})
	if err != nil {
		return nil, apperrors.NewClassificationFailedError(err)
	}

	res, err := humanResponseSchema.Validate(resp.Body)
	if err != nil {
		return nil, apperrors.NewClassificationFailedError(err)
	}
	if !res.Valid {
		return nil, apperrors.NewClassificationFailedError(
			&schemaError{messages: res.GetErrorMessages()})
	}

	var out models.HumanResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, apperrors.NewClassificationFailedError(err)
	}
	out.Text = text
	return &out, nil
}

type schemaError struct{ messages []string }

func (e *schemaError) Error() string { return strings.Join(e.messages, "; ") }

var (
	correctCues = regexp.MustCompile(`\b(wrong|incorrect|not correct|should be|should have|change|fix|mistake|instead|deny|reject|overturn|disagree|dispute)\b`)
	clarifyCues = regexp.MustCompile(`\?|\b(why|what|how|which|unclear|explain|clarify|not sure|more information|more details)\b`)
	agreeCues   = regexp.MustCompile(`\b(agree|approve|approved|confirm|confirmed|looks good|lgtm|yes|ok|okay|proceed|go ahead|correct)\b`)
	negators    = regexp.MustCompile(`\b(not|no|never|cannot)\b|n't\b`)
)

// negationWindow is how many words before an agree cue may negate it.
const negationWindow = 3

// KeywordClassifier tags a reply from fixed cue words. When several tags
// match, all are reported as candidates and the most specific one wins.
// A negated agree cue ("do not approve") counts as a correction.
type KeywordClassifier struct{}

func (KeywordClassifier) ClassifyHumanResponse(ctx context.Context, text string) (*models.HumanResponse, error) {
	lower := strings.ToLower(text)
	agreed, negated := agreement(lower)

	var candidates []models.ResponseKind
	if negated || correctCues.MatchString(lower) {
		candidates = append(candidates, models.ResponseCorrect)
	}
	if clarifyCues.MatchString(lower) {
		candidates = append(candidates, models.ResponseClarify)
	}
	if agreed {
		candidates = append(candidates, models.ResponseAgree)
	}

	resp := &models.HumanResponse{Text: text, Candidates: candidates}
	resp.Kind = resp.Resolve()
	if len(candidates) <= 1 {
		resp.Candidates = nil
	}
	return resp, nil
}

// agreement reports whether lower holds an agree cue that stands on its own
// and whether it holds one negated within the same clause.
func agreement(lower string) (agreed, negated bool) {
	for _, loc := range agreeCues.FindAllStringIndex(lower, -1) {
		before := lower[:loc[0]]
		if i := strings.LastIndexAny(before, ",.;:!?"); i >= 0 {
			before = before[i+1:]
		}
		words := strings.Fields(before)
		if len(words) > negationWindow {
			words = words[len(words)-negationWindow:]
		}
		if negators.MatchString(strings.Join(words, " ")) {
			negated = true
		} else {
			agreed = true
		}
	}
	return agreed, negated
}

// FallbackClassifier uses primary and, when it fails, secondary.
type FallbackClassifier struct {
	primary   ResponseClassifier
	secondary ResponseClassifier
	log       logger.Logger
}

func NewFallbackClassifier(primary, secondary ResponseClassifier, log logger.Logger) *FallbackClassifier {
	return &FallbackClassifier{
		primary:   primary,
		secondary: secondary,
		log:       log.WithFields(map[string]interface{}{"component": "response-classifier"}),
	}
}

func (c *FallbackClassifier) ClassifyHumanResponse(ctx context.Context, text string) (*models.HumanResponse, error) {
	resp, err := c.primary.ClassifyHumanResponse(ctx, text)
	if err == nil {
		return resp, nil
	}
	c.log.Warn("primary classifier failed, using fallback", map[string]interface{}{"error": err.Error()})
	return c.secondary.ClassifyHumanResponse(ctx, text)
}
