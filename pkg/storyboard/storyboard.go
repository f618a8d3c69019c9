package storyboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dmitrymomot/renderkit/pkg/async"
)

// OpenAI model constants.
const (
	ModelGPT4o     = "gpt-4o"
	ModelGPT4oMini = "gpt-4o-mini"
)

const (
	defaultTemperature = 0.7
	defaultSceneCount  = 4
	defaultMaxScenes   = 10
	sceneCapLimit      = 20

	// Veo clips run 4-8 seconds, so drafted durations are clamped to that.
	minSceneDurationSec     = 4
	maxSceneDurationSec     = 8
	defaultSceneDurationSec = 8
)

const draftSystemPrompt = `You are a storyboard writer for short-form video. Split the brief into distinct visual scenes. Respond with a single JSON object: {"scenes":[{"index":1,"title":"...","description":"...","video_prompt":"...","duration_sec":8}]}. Every video_prompt must be a self-contained text-to-video prompt covering camera framing, subject, motion, and mood in under 80 words. duration_sec must be between 4 and 8. No prose outside the JSON.`

const expandSystemPrompt = `You turn one storyboard scene into a production-ready text-to-video prompt. Describe camera framing, subject, motion, lighting, and mood in a single paragraph under 80 words. Respond with the prompt only.`

// Scene is a single storyboard entry. VideoPrompt is the text handed to a
// video-generation provider for this scene.
type Scene struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoPrompt string `json:"video_prompt"`
	DurationSec int    `json:"duration_sec"`
}

// Drafter turns briefs into storyboard scenes using OpenAI chat completions.
type Drafter struct {
	client      openai.Client
	model       string
	temperature float64
	maxScenes   int
	httpClient  *http.Client
	baseURL     string
}

// DrafterOption is a functional option for configuring Drafter.
type DrafterOption func(*Drafter)

// WithDrafterModel sets the model to use.
func WithDrafterModel(model string) DrafterOption {
	return func(d *Drafter) {
		if model != "" {
			d.model = model
		}
	}
}

// WithDrafterTemperature sets the sampling temperature. Values outside
// [0, 2] are ignored.
func WithDrafterTemperature(t float64) DrafterOption {
	return func(d *Drafter) {
		if t >= 0 && t <= 2 {
			d.temperature = t
		}
	}
}

// WithDrafterMaxScenes caps how many scenes a draft may return.
func WithDrafterMaxScenes(n int) DrafterOption {
	return func(d *Drafter) {
		if n > 0 && n <= sceneCapLimit {
			d.maxScenes = n
		}
	}
}

// WithDrafterHTTPClient sets a custom HTTP client.
func WithDrafterHTTPClient(client *http.Client) DrafterOption {
	return func(d *Drafter) {
		d.httpClient = client
	}
}

// WithDrafterBaseURL overrides the API base URL, e.g. for a proxy.
func WithDrafterBaseURL(url string) DrafterOption {
	return func(d *Drafter) {
		d.baseURL = url
	}
}

// NewDrafter creates a scene drafter.
func NewDrafter(apiKey string, opts ...DrafterOption) (*Drafter, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	d := &Drafter{
		model:       ModelGPT4oMini,
		temperature: defaultTemperature,
		maxScenes:   defaultMaxScenes,
	}
	for _, opt := range opts {
		opt(d)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if d.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(d.httpClient))
	}
	if d.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(d.baseURL))
	}
	d.client = openai.NewClient(clientOpts...)

	return d, nil
}

// DraftScenes splits a brief into up to n storyboard scenes. Zero or
// negative n asks for the default scene count; n is capped at the
// drafter's scene limit. Scenes come back reindexed from 1 with durations
// clamped to the provider's supported range.
func (d *Drafter) DraftScenes(ctx context.Context, brief string, n int) ([]Scene, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, ErrEmptyBrief
	}
	if n <= 0 {
		n = defaultSceneCount
	}
	if n > d.maxScenes {
		n = d.maxScenes
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(draftSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Brief:\n%s\n\nReturn exactly %d scenes.", brief, n)),
		},
		Temperature: openai.Float(d.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := d.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Join(ErrDraftFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices returned", ErrDraftFailed)
	}

	scenes, err := parseDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(scenes) > n {
		scenes = scenes[:n]
	}
	return scenes, nil
}

// ExpandScene drafts a single production-ready video prompt for a scene.
func (d *Drafter) ExpandScene(ctx context.Context, scene Scene) (string, error) {
	title := strings.TrimSpace(scene.Title)
	description := strings.TrimSpace(scene.Description)
	if title == "" && description == "" {
		return "", fmt.Errorf("%w: scene %d has no title or description", ErrEmptyBrief, scene.Index)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(expandSystemPrompt),
			openai.UserMessage(fmt.Sprintf("Title: %s\nDescription: %s\nTarget duration: %d seconds.",
				title, description, clampDuration(scene.DurationSec))),
		},
		Temperature: openai.Float(d.temperature),
	}

	resp, err := d.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Join(ErrDraftFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ErrDraftFailed)
	}

	prompt := strings.TrimSpace(resp.Choices[0].Message.Content)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty video prompt returned", ErrDraftFailed)
	}
	return prompt, nil
}

// ExpandScenes fills in missing video prompts, one completion per scene,
// drafted concurrently. Scenes that already carry a prompt pass through
// untouched. The input slice is not modified.
func (d *Drafter) ExpandScenes(ctx context.Context, scenes []Scene) ([]Scene, error) {
	out := make([]Scene, len(scenes))
	copy(out, scenes)

	type expansion struct {
		pos    int
		prompt string
	}

	futures := make([]*async.Future[expansion], 0, len(out))
	for i := range out {
		if out[i].VideoPrompt != "" {
			continue
		}
		futures = append(futures, async.Async(ctx, i, func(ctx context.Context, pos int) (expansion, error) {
			prompt, err := d.ExpandScene(ctx, out[pos])
			if err != nil {
				return expansion{}, fmt.Errorf("scene %d: %w", out[pos].Index, err)
			}
			return expansion{pos: pos, prompt: prompt}, nil
		}))
	}
	if len(futures) == 0 {
		return out, nil
	}

	results, err := async.WaitAll(futures...)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		out[r.pos].VideoPrompt = r.prompt
	}
	return out, nil
}

type draftPayload struct {
	Scenes []Scene `json:"scenes"`
}

// parseDraft decodes the model's JSON response and normalizes it: scenes
// without any prompt text are dropped, prompts fall back to the
// description, indexes restart at 1, durations are clamped.
func parseDraft(content string) ([]Scene, error) {
	var payload draftPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, errors.Join(ErrMalformedDraft, err)
	}

	scenes := make([]Scene, 0, len(payload.Scenes))
	for _, s := range payload.Scenes {
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		s.VideoPrompt = strings.TrimSpace(s.VideoPrompt)
		if s.VideoPrompt == "" {
			s.VideoPrompt = s.Description
		}
		if s.VideoPrompt == "" {
			continue
		}
		s.Index = len(scenes) + 1
		s.DurationSec = clampDuration(s.DurationSec)
		scenes = append(scenes, s)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: draft contains no usable scenes", ErrMalformedDraft)
	}
	return scenes, nil
}

func clampDuration(sec int) int {
	switch {
	case sec <= 0:
		return defaultSceneDurationSec
	case sec < minSceneDurationSec:
		return minSceneDurationSec
	case sec > maxSceneDurationSec:
		return maxSceneDurationSec
	}
	return sec
}
