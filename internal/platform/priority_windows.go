//go:build windows

package platform

// LowerPriority is a no-op on Windows.
func LowerPriority(_ int) error {
	return nil
}
