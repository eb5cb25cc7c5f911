// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package dataplane

// Interface defines the operations the API layer needs from the data
// plane. Useful for testing and dependency injection.
type Interface interface {
	GetStatistics() Statistics
	InterfaceName() string
	Mode() string
}

// Ensure DataPlane implements Interface.
var _ Interface = (*DataPlane)(nil)
