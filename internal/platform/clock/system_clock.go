package clock

import "time"

// SystemClock returns the current time with its monotonic reading intact.
//
// Callers that need wall-clock UTC for display should convert at the edge; converting here
// would strip the monotonic component and expose expiry math to wall-clock jumps.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now() }
