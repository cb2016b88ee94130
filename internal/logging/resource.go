// ABOUTME: Resource detection for request logging.
// ABOUTME: Determines which resource a request belongs to based on URL path.

package logging

import "strings"

// ResourceFromPath returns the first path segment, e.g. "posts" for
// "/posts/3/". The root path has no resource.
func ResourceFromPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	resource, _, _ := strings.Cut(path, "/")
	return resource
}
