package models

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/alertmanager/template"
	"github.com/prometheus/common/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedPayload is returned when an inbound webhook body cannot be
// decoded. It aborts the whole request before any delivery is attempted.
var ErrMalformedPayload = errors.New("malformed alert payload")

// Alert is one alert taken from an inbound webhook payload. It is immutable
// once parsed; the renderer is its only consumer.
type Alert struct {
	Status      string      `json:"status"`
	Labels      template.KV `json:"labels"`
	Annotations template.KV `json:"annotations"`
}

func (a Alert) Name() string        { return a.Labels["alertname"] }
func (a Alert) Summary() string     { return a.Annotations["summary"] }
func (a Alert) Description() string { return a.Annotations["description"] }

func (a Alert) Firing() bool {
	return model.AlertStatus(a.Status) == model.AlertFiring
}

// payload covers both webhook shapes we accept: the Alertmanager/Grafana
// unified webhook (an "alerts" array) and the legacy Grafana dashboard
// alert ("title" + "state" at the top level).
type payload struct {
	Alerts []Alert `json:"alerts"`

	Title    string `json:"title"`
	State    string `json:"state"`
	Message  string `json:"message"`
	RuleName string `json:"ruleName"`
}

// ParsePayload decodes an inbound webhook body into a batch of alerts.
// A well-formed body without any alerts yields an empty, valid batch.
func ParsePayload(body []byte) ([]Alert, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(p.Alerts) > 0 {
		return p.Alerts, nil
	}

	if p.Title != "" && p.State != "" {
		return []Alert{{
			Status:      p.State,
			Labels:      template.KV{"alertname": p.RuleName},
			Annotations: template.KV{"summary": p.Message},
		}}, nil
	}

	return nil, nil
}
