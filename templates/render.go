// Package templates renders alerts into outbound message text.
//
// The template language is deliberately tiny: four literal placeholder
// tokens substituted in a single pass. No conditionals, no recursion,
// no escaping. Anything the template author writes that is not one of
// the known tokens passes through untouched.
package templates

import (
	"strings"

	"github.com/imanbakhtiari/alerting/models"
)

// DefaultTemplate is used whenever no template has been configured.
const DefaultTemplate = "{status} {summary}"

// Placeholder tokens recognized by Render.
const (
	TokenStatus      = "{status}"
	TokenSummary     = "{summary}"
	TokenDescription = "{description}"
	TokenAlertname   = "{alertname}"
)

// Render substitutes the alert's fields into tmpl. Substitution is literal,
// case-sensitive and single-pass: a token produced by a substitution is not
// expanded again. Missing alert fields render as the empty string, never as
// an error, so Render cannot fail.
func Render(tmpl string, a models.Alert) string {
	return strings.NewReplacer(
		TokenStatus, a.Status,
		TokenSummary, a.Summary(),
		TokenDescription, a.Description(),
		TokenAlertname, a.Name(),
	).Replace(tmpl)
}
