// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause
package limits

// Provider defines the read side of the manager consumed by the API
// layer. Useful for testing and dependency injection.
type Provider interface {
	Rules() []PortLimit
	Stats() ([]PortStats, error)
}

// Ensure Manager implements Provider.
var _ Provider = (*Manager)(nil)
