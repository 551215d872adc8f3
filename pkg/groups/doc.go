// Package groups resolves which translation group a request targets and
// decides what the caller may do there.
//
// Scope resolution walks chapter -> comic -> group. Authorization combines two
// independent facts, whether the caller owns the group and the caller's
// membership role if any, and evaluates them with a decision table:
//
//	owner  role     view  contribute  manage
//	yes    any      yes   yes         yes
//	no     leader   yes   yes         yes
//	no     member   yes   yes         no
//	no     none     no    no          no
//
// A caller with no standing in an existing group gets ErrForbidden rather
// than ErrGroupNotFound.
//
// Typical route wiring, behind middleware.RequireAuth:
//
//	mw := groups.NewMiddleware(store, logger, metrics)
//	leader := httputil.Chain(mw.ScopeFromChapter("chapterId"), mw.BelongsToGroup, mw.RequireLeader)
package groups
