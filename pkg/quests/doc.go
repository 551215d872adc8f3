// Package quests assigns daily quests and accumulates progress toward them.
//
// Each user receives a handful of quests per UTC day, at most one per
// category. Activity elsewhere in the platform advances them through
// Tracker.Track:
//
//	tracker.Track(r.Context(), identity.ID, quests.CategoryComment, 1)
//
// Daily check-ins arrive on POST /quests/checkin.
//
// Progress is advanced with a single capped UPDATE, so it never exceeds the
// target and concurrent increments are not lost. Activity in a category with
// no quest assigned today is a no-op. Claiming a completed quest credits the
// reward to the user's wallet in one transaction.
package quests
