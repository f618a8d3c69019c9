// Package videogen submits video renders to generation providers and
// reports on their progress.
//
// Providers expose long-running render operations: a render is started,
// polled until it reaches a terminal state, and the finished video is
// fetched as bytes. The Generator interface captures that lifecycle so
// callers can poll any provider the same way.
//
// # Usage
//
//	gen, err := videogen.NewVeo(ctx, apiKey)
//	if err != nil {
//		return err
//	}
//
//	job, err := gen.StartRender(ctx, videogen.Request{
//		Prompt:      "aerial shot of a coastline at dawn",
//		AspectRatio: "16:9",
//		Duration:    8 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	status, err := gen.CheckRender(ctx, job)
//	if err != nil {
//		return err
//	}
//	if status.Done() && status.State == videogen.StateSucceeded {
//		data, err := gen.FetchVideo(ctx, status)
//		...
//	}
//
// CheckRender is designed to sit inside a polling loop such as
// core/poller: a pending status means poll again, a terminal status
// means stop.
//
// # Providers
//
// Veo runs on Google's Gemini API with an API key (NewVeo) or on
// Vertex AI with application default credentials (NewVeoVertexAI).
// Vertex AI returns the finished video inline; the Gemini API returns a
// file URI that FetchVideo downloads.
//
// # Error Handling
//
// Constructors and StartRender validate the model against the supported
// set and return ErrModelNotSupported otherwise. A render that the
// provider itself reports as failed is a StateFailed status with a
// FailureReason, not an error; errors from CheckRender mean the status
// could not be determined.
package videogen
