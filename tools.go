//go:build tools

// Зависимости утилит, которые вызываются через go generate (mockgen).
// В сборку не попадают.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
