// Package keysession implements an ephemeral, in-memory store for provider
// credentials, keyed by opaque tokens.
//
// The problem it solves: render jobs need a provider API key, but job records
// travel through persistent storage where a raw credential must never land.
// The store hands back a short-lived token instead; the job carries the
// token, and the worker redeems it just-in-time:
//
//	store, err := keysession.New(encryptionKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	token, err := store.Create(ctx, apiKey, keysession.ProviderVeo,
//		keysession.WithProjectID("my-project"))
//	if err != nil {
//		return err
//	}
//	// persist token in the job record; the secret stays here
//
//	sess, err := store.Get(ctx, token)
//	if errors.Is(err, keysession.ErrNotFound) {
//		// expired or deleted: ask the user to re-authenticate
//	}
//
// # Lifetime
//
// Sessions live 30 minutes by default (WithTTL to change). A session read
// past its expiry is removed and reported as ErrNotFound; a periodic sweeper
// (every 5 minutes by default) removes expired sessions that nobody reads.
// Callers delete sessions eagerly on job completion or failure; Delete is
// idempotent so completion and failure paths can race freely.
//
// The sweeper only runs once Start is called; constructing a store has no
// background side effects, and a store refuses to start twice:
//
//	go store.Start(ctx)   // or: g.Go(store.Run(ctx)) with errgroup
//	defer store.Stop()
//
// # Secrets handling
//
// Tokens carry 256 bits of entropy and are the only thing collaborators ever
// hold; log lines include at most a truncated token prefix. At rest each
// secret is AES-256-GCM encrypted under a key derived from the configured
// application key and a per-process ephemeral key, so process memory dumps
// and restarts expose nothing recoverable.
package keysession
