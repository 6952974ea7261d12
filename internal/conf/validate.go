// validate.go: settings validation run after unmarshaling.
package conf

import "fmt"

// ValidateSettings checks cross-field constraints that viper cannot express.
func ValidateSettings(s *Settings) error {
	a := &s.Realtime.Analysis
	if a.MaxConcurrent < 1 {
		return fmt.Errorf("realtime.analysis.maxconcurrent must be at least 1, got %d", a.MaxConcurrent)
	}
	if a.BufferSize < 1 {
		return fmt.Errorf("realtime.analysis.buffersize must be at least 1, got %d", a.BufferSize)
	}
	if a.Interval <= 0 {
		return fmt.Errorf("realtime.analysis.interval must be positive, got %s", a.Interval)
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("realtime.analysis.pollinterval must be positive, got %s", a.PollInterval)
	}
	if a.FastPathSize < 1 || a.FastPathSize > a.BufferSize {
		return fmt.Errorf("realtime.analysis.fastpathsize must be in [1, buffersize], got %d", a.FastPathSize)
	}

	m := &s.Realtime.Monitor
	if m.Interval <= 0 {
		return fmt.Errorf("realtime.monitor.interval must be positive, got %s", m.Interval)
	}
	if m.WindowSize < 1 {
		return fmt.Errorf("realtime.monitor.windowsize must be at least 1, got %d", m.WindowSize)
	}

	d := &s.Realtime.Detection
	if d.ThresholdMin <= 0 || d.ThresholdMax <= d.ThresholdMin {
		return fmt.Errorf("realtime.detection threshold clamp [%g, %g] is invalid", d.ThresholdMin, d.ThresholdMax)
	}
	if d.WarningThreshold < d.ThresholdMin || d.WarningThreshold > d.ThresholdMax {
		return fmt.Errorf("realtime.detection.warningthreshold %g outside clamp [%g, %g]",
			d.WarningThreshold, d.ThresholdMin, d.ThresholdMax)
	}
	if d.LearningRate <= 0 || d.LearningRate > 1 {
		return fmt.Errorf("realtime.detection.learningrate must be in (0, 1], got %g", d.LearningRate)
	}

	if s.Realtime.QueueSize < 1 {
		return fmt.Errorf("realtime.queuesize must be at least 1, got %d", s.Realtime.QueueSize)
	}
	return nil
}
