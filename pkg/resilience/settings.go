package resilience

import "time"

// BuildSettings turns the integer knobs from config into Settings,
// substituting defaults for anything unset.
func BuildSettings(name string, intervalSeconds, timeoutSeconds, failureThreshold int) Settings {
	s := Settings{
		Name:             name,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
	}
	if intervalSeconds > 0 {
		s.Interval = time.Duration(intervalSeconds) * time.Second
	}
	if timeoutSeconds > 0 {
		s.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if failureThreshold > 0 {
		s.FailureThreshold = uint32(failureThreshold)
	}
	return s
}
