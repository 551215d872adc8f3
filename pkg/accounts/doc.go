// Package accounts implements email registration with one-time verification codes.
//
// Register stores an unverified account, generates a 6-digit code, keeps it in
// a codes.Store under the normalized email and hands it to a Mailer. Verify
// consumes the code. A code is valid for codes.DefaultTTL and resending replaces
// it. Accounts that stay unverified past that window are removed by
// PurgeUnverified, which the server runs on a cron schedule.
package accounts
