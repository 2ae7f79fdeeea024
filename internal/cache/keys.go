package cache

import "strconv"

// UserTasksKey caches the full "my tasks" listing for one owner. Mutations
// invalidate the key, they never rewrite it in place.
func UserTasksKey(userID int64) string {
	return "tasks:user:" + strconv.FormatInt(userID, 10) + ":all"
}
