package domain

import "time"

// Alert is a non-NORMAL classification handed to the alert publisher.
type Alert struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Result      ClassificationResult `json:"result"`
}

// AlertsFrom wraps every extreme result of a run in an Alert.
func AlertsFrom(runID string, generatedAt time.Time, results []ClassificationResult) []Alert {
	var alerts []Alert
	for _, r := range results {
		if !r.IsExtreme() {
			continue
		}
		alerts = append(alerts, Alert{RunID: runID, GeneratedAt: generatedAt, Result: r})
	}
	return alerts
}
