package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []Alert
		wantErr  bool
	}{
		{
			name: "alertmanager webhook",
			body: `{
				"alerts": [
					{
						"status": "firing",
						"labels": {"alertname": "HighCPU"},
						"annotations": {"summary": "CPU > 90%", "description": "node-1"}
					},
					{
						"status": "resolved",
						"labels": {"alertname": "DiskFull"},
						"annotations": {}
					}
				]
			}`,
			expected: []Alert{
				{
					Status:      "firing",
					Labels:      map[string]string{"alertname": "HighCPU"},
					Annotations: map[string]string{"summary": "CPU > 90%", "description": "node-1"},
				},
				{
					Status:      "resolved",
					Labels:      map[string]string{"alertname": "DiskFull"},
					Annotations: map[string]string{},
				},
			},
		},
		{
			name: "legacy dashboard alert",
			body: `{"title": "[Alerting] CPU", "state": "alerting", "message": "CPU is high", "ruleName": "HighCPU"}`,
			expected: []Alert{
				{
					Status:      "alerting",
					Labels:      map[string]string{"alertname": "HighCPU"},
					Annotations: map[string]string{"summary": "CPU is high"},
				},
			},
		},
		{
			name:     "empty alerts array is valid",
			body:     `{"alerts": []}`,
			expected: nil,
		},
		{
			name:     "empty object is valid",
			body:     `{}`,
			expected: nil,
		},
		{
			name:    "malformed JSON",
			body:    `{"alerts": [`,
			wantErr: true,
		},
		{
			name:    "not an object",
			body:    `"alerts"`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alerts, err := ParsePayload([]byte(tc.body))
			if tc.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			require.Len(t, alerts, len(tc.expected))
			for i, expected := range tc.expected {
				require.Equal(t, expected.Status, alerts[i].Status)
				require.Equal(t, expected.Name(), alerts[i].Name())
				require.Equal(t, expected.Summary(), alerts[i].Summary())
				require.Equal(t, expected.Description(), alerts[i].Description())
			}
		})
	}
}

func TestAlertAccessorsMissingFields(t *testing.T) {
	a := Alert{Status: "firing"}
	require.Empty(t, a.Name())
	require.Empty(t, a.Summary())
	require.Empty(t, a.Description())
	require.True(t, a.Firing())

	require.False(t, Alert{Status: "resolved"}.Firing())
}
