// Package credstore keeps the single access credential obtained by
// `atom login` in a JSON file (by default ~/.config/atom/credentials/token.json).
//
// Writes go through a temporary file in the same directory that is fsynced,
// chmod 0600 and renamed over the target, so concurrent readers see either the
// old or the new credential. Unreadable files are treated as "not logged in".
package credstore
