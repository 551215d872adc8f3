// Package cli implements the panelhub command line.
//
// # Commands
//
// serve: run the HTTP API, the realtime gateway and the scheduled jobs
//
//	panelhub serve --config /etc/panelhub/panelhub.yaml
//
// token: sign a bearer token for local testing
//
//	panelhub token --user 42 --role admin --ttl 1h
//
// assign-quests: run the daily quest assignment once
//
//	panelhub assign-quests
//
// purge-unverified: delete accounts whose verification window has lapsed
//
//	panelhub purge-unverified
//
// Every command except token reads its settings through package config.
package cli
