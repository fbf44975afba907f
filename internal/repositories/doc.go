// Package repositories provides sqlite-backed persistence for spx.
//
// [CredentialRepository] stores the single credential record in the credentials table created by
// the shared migrations. It satisfies the auth.Backend interface so the credential store can use
// it in place of the JSON file.
package repositories
