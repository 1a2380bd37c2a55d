package utils

import (
	"fmt"
	"math"
	"runtime"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

// IsNan reports whether any of vals is NaN
func IsNan(vals ...float64) bool {
	return FirstNan(vals) >= 0
}

// FirstNan returns the index of the first NaN in v, or -1
func FirstNan(v []float64) int {
	for i, f := range v {
		if math.IsNaN(f) {
			return i
		}
	}
	return -1
}
