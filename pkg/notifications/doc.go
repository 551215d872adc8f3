// Package notifications stores per-user notifications and pushes a live
// "notification:new" event to recipients that are connected.
//
// The database row is always written first. The realtime emit that follows
// is best effort; clients that missed it pick the row up from GET /notifications.
//
// Listing windows are clamped: sinceDays to 1..180 (default 30), limit to
// 1..200 (default 100), page to >= 1.
package notifications
