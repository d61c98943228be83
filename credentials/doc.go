// Package credentials supplies authenticated sessions for the remote
// quantum service.
//
// Provider is the collaborator capability the resolver consumes: it
// reports whether a usable session plausibly exists and opens one on
// demand. Two implementations ship:
//   - APIKeyProvider exchanges an IBM Cloud API key for bearer tokens
//     at the IAM endpoint, caching sessions until close to expiry.
//   - StaticProvider serves a fixed pre-issued session.
//
// AccountStore persists named {channel, instance, api key} records in
// a JSON file under the user's home directory. Nothing reads the store
// implicitly; callers load accounts and build providers from them
// explicitly.
package credentials
