// Package auth supplies generation-service credentials.
//
// # Credentials
//
// Two services are supported, mirroring the settings a user can store:
//
//   - OpenAI: api_key, optional org_id and api_base
//   - AzureOpenAI: api_version, deployment_id, api_base, api_key
//
// # Providers
//
// A Provider resolves Credentials on demand. Providers compose:
//
//	p := auth.Chain(storedProvider, auth.NewEnvProvider(".env"))
//
// When nothing is configured, providers return ErrNoCredentials. The
// dispatcher treats that as a precondition failure and leaves the chat
// untouched.
//
// EnvProvider reads OPENAI_API_KEY, OPENAI_ORG_ID, OPENAI_API_BASE and
// AZURE_OPENAI_{API_KEY,API_BASE,API_VERSION,DEPLOYMENT_ID} from the process
// environment, falling back to a dotenv file.
//
// # Sealing
//
// Sealer encrypts credentials before they are written to the key-value
// store. The key is derived from a passphrase with Argon2id and the payload is
// sealed with XChaCha20-Poly1305:
//
//	sealed = base64(salt || nonce || ciphertext)
package auth
