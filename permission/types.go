package permission

import "context"

// Api is a protected endpoint: a URL template plus an HTTP method. The
// template may contain {param} placeholders, each matching exactly one path
// segment. (URL, Method) pairs are unique at the data layer.
type Api struct {
	ID     int64
	URL    string
	Method string
}

// Role is a named grant holder.
type Role struct {
	ID   int64
	Name string
}

// Store is the system-of-record contract the cache reads from. All methods
// honor ctx cancellation; the cache never retries beyond the single
// read-through on a per-user cache miss.
type Store interface {
	AllApis(ctx context.Context) ([]Api, error)
	AllRoles(ctx context.Context) ([]Role, error)
	ApisOfRole(ctx context.Context, roleID int64) ([]int64, error)
	RolesOfUser(ctx context.Context, userID int64) ([]int64, error)
}
