// Package storyboard drafts video storyboard scenes from a text brief
// using OpenAI chat completions.
//
// A Drafter asks the model for a strict-JSON storyboard, parses and
// normalizes it into Scene values, and can expand individual scenes into
// production-ready text-to-video prompts. Scene expansion runs one
// completion per scene, fanned out concurrently.
//
// # Usage
//
//	drafter, err := storyboard.NewDrafter(apiKey,
//		storyboard.WithDrafterModel(storyboard.ModelGPT4o),
//		storyboard.WithDrafterMaxScenes(6),
//	)
//	if err != nil {
//		return err
//	}
//
//	scenes, err := drafter.DraftScenes(ctx, "product teaser for a hiking boot", 4)
//	if err != nil {
//		return err
//	}
//	scenes, err = drafter.ExpandScenes(ctx, scenes)
//
// Each Scene then carries a VideoPrompt ready for a videogen.Generator.
//
// # Error Handling
//
// A blank brief returns ErrEmptyBrief before any API call. Completion
// failures wrap ErrDraftFailed; responses that cannot be parsed into at
// least one usable scene wrap ErrMalformedDraft. Branch with errors.Is.
package storyboard
