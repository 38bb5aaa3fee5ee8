//go:build !unix

package blender

// elevatePriority is a no-op off unix: there is no portable equivalent,
// and spec 4.5 only asks for best-effort elevation.
func elevatePriority(class priorityClass) error {
	return nil
}
