package service

import "time"

// nowMillis is the single timestamp source for sync comparisons: wall-clock
// epoch milliseconds. Client and server clocks are assumed loosely
// synchronized; no logical clock is kept.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}
