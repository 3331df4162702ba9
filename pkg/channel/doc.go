// Package channel provides delivery adapters for the notification pipeline.
//
// An Adapter sends one notification over one medium and reports the outcome
// independently of other channels. The dispatch orchestrator owns the
// per-channel state machine; adapters only perform the external call and
// return the provider message ID.
//
// Four production adapters are provided:
//
//   - EmailAdapter: Postmark transactional email
//   - SMSAdapter: HTTPS SMS gateway with HMAC-signed requests
//   - PushAdapter: HTTPS push gateway with bearer key auth
//   - InAppAdapter: no external transport; optionally publishes to Redis
//     pub/sub for live UI updates
//
// DevAdapter writes messages to disk for local development.
//
// Adapters resolve user addresses through a RecipientResolver supplied by
// the surrounding application, since the notification record only carries
// the user reference:
//
//	resolver := channel.RecipientResolverFunc(
//	    func(ctx context.Context, userID string, ch notification.Channel) (string, error) {
//	        return userDirectory.AddressFor(ctx, userID, ch)
//	    })
//
//	email, err := channel.NewEmailAdapter(emailCfg, resolver)
//
// Sends are at-least-once. An adapter error is recorded as a channel
// failure by the orchestrator and retried within the notification's retry
// budget; duplicate external messages must be tolerated downstream.
package channel
