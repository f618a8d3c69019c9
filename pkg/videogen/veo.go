package videogen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// Veo model identifiers accepted by StartRender.
const (
	ModelVeo2     = "veo-2.0-generate-001"
	ModelVeo3     = "veo-3.0-generate-001"
	ModelVeo3Fast = "veo-3.0-fast-generate-001"
)

// DefaultVeoModel is used when no model is configured or requested.
const DefaultVeoModel = ModelVeo3

const veoProviderName = "veo"

// Veo renders videos with Google's Veo models via the Gemini API or
// Vertex AI. The zero value is not usable; construct with NewVeo or
// NewVeoVertexAI.
type Veo struct {
	client     *genai.Client
	model      string
	backend    genai.Backend
	httpClient *http.Client
}

var _ Generator = (*Veo)(nil)

// VeoOption configures the Veo generator.
type VeoOption func(*Veo)

// WithVeoModel sets the default model for renders that do not name one.
func WithVeoModel(model string) VeoOption {
	return func(v *Veo) {
		v.model = model
	}
}

// WithVeoHTTPClient sets a custom HTTP client for the underlying API client.
func WithVeoHTTPClient(client *http.Client) VeoOption {
	return func(v *Veo) {
		v.httpClient = client
	}
}

// NewVeo creates a Veo generator backed by the Gemini API using API key
// authentication.
func NewVeo(ctx context.Context, apiKey string, opts ...VeoOption) (*Veo, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	v := &Veo{
		model:   DefaultVeoModel,
		backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(v)
	}

	if !supportedVeoModel(v.model) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, v.model)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    v.backend,
		HTTPClient: v.httpClient,
	})
	if err != nil {
		return nil, errors.Join(ErrClientCreationFailed, err)
	}
	v.client = client

	return v, nil
}

// NewVeoVertexAI creates a Veo generator backed by Vertex AI. Credentials
// are resolved from the environment (application default credentials).
func NewVeoVertexAI(ctx context.Context, projectID, location string, opts ...VeoOption) (*Veo, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("%w: project ID and location are required for Vertex AI", ErrClientCreationFailed)
	}

	v := &Veo{
		model:   DefaultVeoModel,
		backend: genai.BackendVertexAI,
	}
	for _, opt := range opts {
		opt(v)
	}

	if !supportedVeoModel(v.model) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, v.model)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:    v.backend,
		Project:    projectID,
		Location:   location,
		HTTPClient: v.httpClient,
	})
	if err != nil {
		return nil, errors.Join(ErrClientCreationFailed, err)
	}
	v.client = client

	return v, nil
}

// StartRender submits a text-to-video render and returns the long-running
// operation handle to poll with CheckRender.
func (v *Veo) StartRender(ctx context.Context, req Request) (RemoteJob, error) {
	model := req.Model
	if model == "" {
		model = v.model
	}
	if !supportedVeoModel(model) {
		return RemoteJob{}, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	config := &genai.GenerateVideosConfig{}
	if req.AspectRatio != "" {
		config.AspectRatio = req.AspectRatio
	}
	if req.Duration > 0 {
		config.DurationSeconds = genai.Ptr(int32(req.Duration / time.Second))
	}

	op, err := v.client.Models.GenerateVideos(ctx, model, req.Prompt, nil, config)
	if err != nil {
		return RemoteJob{}, errors.Join(ErrGenerationFailed, err)
	}
	if op == nil || op.Name == "" {
		return RemoteJob{}, fmt.Errorf("%w: provider returned no operation handle", ErrGenerationFailed)
	}

	return RemoteJob{ID: op.Name, Provider: veoProviderName}, nil
}

// CheckRender reports the current state of a render operation. Failures
// reported by the provider come back as a StateFailed status; an error
// means the operation status could not be retrieved.
func (v *Veo) CheckRender(ctx context.Context, job RemoteJob) (RenderStatus, error) {
	op, err := v.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: job.ID}, nil)
	if err != nil {
		return RenderStatus{}, fmt.Errorf("get render operation: %w", err)
	}
	if !op.Done {
		return RenderStatus{State: StatePending}, nil
	}
	if len(op.Error) > 0 {
		return RenderStatus{State: StateFailed, FailureReason: veoFailureReason(op.Error)}, nil
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return RenderStatus{}, ErrNoVideoReturned
	}

	video := op.Response.GeneratedVideos[0].Video
	return RenderStatus{
		State:      StateSucceeded,
		VideoURI:   video.URI,
		VideoBytes: video.VideoBytes,
	}, nil
}

// FetchVideo returns the rendered video bytes for a succeeded status.
// Vertex AI returns bytes inline with the terminal status; the Gemini API
// returns a file URI that is downloaded here.
func (v *Veo) FetchVideo(ctx context.Context, status RenderStatus) ([]byte, error) {
	if status.State != StateSucceeded {
		return nil, fmt.Errorf("%w: state %s", ErrVideoNotReady, status.State)
	}
	if len(status.VideoBytes) > 0 {
		return status.VideoBytes, nil
	}
	if status.VideoURI == "" {
		return nil, ErrNoVideoReturned
	}

	data, err := v.client.Files.Download(ctx, &genai.Video{URI: status.VideoURI}, nil)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoVideoReturned
	}
	return data, nil
}

// Provider returns the provider name used in session and job records.
func (v *Veo) Provider() string {
	return veoProviderName
}

func supportedVeoModel(model string) bool {
	switch model {
	case ModelVeo2, ModelVeo3, ModelVeo3Fast:
		return true
	}
	return false
}

func veoFailureReason(opErr map[string]any) string {
	if msg, ok := opErr["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("%v", opErr)
}
