// Package keybot provisions accounts for members of a Discord guild using
// single-use registration keys.
//
// Commands:
//   - createkey generates a random key and stores it as unused. Only guild
//     administrators see the command; the permission is enforced by Discord.
//   - register consumes a key. The caller must hold the configured guild role.
//     A credential (password + hardware id) is provisioned for the caller and a
//     signed session token is returned in a private reply.
//
// Provisioning:
//   - CredentialStore.ProvisionCredential claims the key (used=false -> true)
//     and inserts the credential as one unit. A key is marked used if and only if
//     a credential was created for it, and two concurrent registrations with the
//     same key cannot both succeed.
//
// Errors:
//   - Handlers return go-errors values carrying a text code. CommandRouter maps
//     text codes to coarse public messages, see PublicMessage. Internal details
//     are only logged.
package keybot
