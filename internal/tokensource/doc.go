// Package tokensource provides storage backends for the GLM upstream API
// key.
//
// The gateway never performs upstream authentication itself — the key is an
// opaque credential forwarded to the transport collaborator — so this
// package is storage only, with three backends:
//
//   - env: read-only, from an environment variable
//   - file: a mode-0600 file in the user's config directory
//   - keyring: the operating system credential store
//
// Writing an empty credential clears the backing store, which is how logout
// is implemented without a dedicated delete operation on the interface.
package tokensource
