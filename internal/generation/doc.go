// Package generation is the contract with the external text-generation
// service and an HTTP client implementing it.
//
// # Contract
//
// A Generator turns an ordered list of messages into a stream of chunks:
//
//	chunks, err := gen.CreateStream(ctx, &generation.Request{Model: m, Messages: msgs})
//	for chunk := range chunks {
//	    if chunk.Err != nil { ... }
//	    if delta, ok := chunk.Content(); ok { ... }
//	}
//
// The channel is closed when the stream ends. A chunk without choices is a
// no-op; some providers send one before the first real delta. A chunk carrying
// Err reports a transport or decode failure and is followed by the close.
//
// # Client
//
// Client speaks the chat-completions streaming protocol (server-sent events)
// for both OpenAI and Azure OpenAI. It is built from auth.Credentials:
//
//	OpenAI:  {api_base|https://api.openai.com/v1}/chat/completions
//	Azure:   {api_base}/openai/deployments/{deployment_id}/chat/completions?api-version=...
//
// Connector resolves credentials through an auth.Provider each time a turn is
// dispatched, so credentials may change between turns.
//
// # Models
//
// Model enumerates the supported model identifiers. ParseModel trims and
// lowercases its input.
package generation
