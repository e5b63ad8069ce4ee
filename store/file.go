package store

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/imanbakhtiari/alerting/receivers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// providerSection is the reserved section name holding provider endpoints;
// every other [section] is a team.
const providerSection = "sms_provider"

// jsonProvider is the on-disk shape of a provider that carries headers.
// Providers without headers are stored as a bare URL line.
type jsonProvider struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// parseNumbers reads the line-oriented numbers file:
//
//	[team]
//	number | label
//
//	[sms_provider]
//	https://gateway.example.com/sms/send
//	{"url": "https://chat.example.com/hooks/TOKEN", "headers": {...}}
//
// Unparsable provider lines are kept as bare URLs rather than dropped, so a
// hand-edited file cannot silently lose an endpoint.
func parseNumbers(content string) (map[string][]receivers.Recipient, []string, []receivers.Provider) {
	teams := make(map[string][]receivers.Recipient)
	var order []string
	var providers []receivers.Provider

	current := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if current != providerSection {
				if _, ok := teams[current]; !ok {
					teams[current] = nil
					order = append(order, current)
				}
			}
			continue
		}

		switch {
		case current == providerSection:
			providers = append(providers, parseProviderLine(line))
		case current != "":
			number, label := line, ""
			if i := strings.Index(line, "|"); i >= 0 {
				number = strings.TrimSpace(line[:i])
				label = strings.TrimSpace(line[i+1:])
			}
			teams[current] = append(teams[current], receivers.Recipient{Number: number, Label: label})
		}
	}

	return teams, order, providers
}

func parseProviderLine(line string) receivers.Provider {
	if strings.HasPrefix(line, "{") {
		var jp jsonProvider
		if err := json.UnmarshalFromString(line, &jp); err == nil && jp.URL != "" {
			return receivers.NewProvider(jp.URL, jp.Headers)
		}
	}
	return receivers.NewProvider(line, nil)
}

// renderNumbers is the inverse of parseNumbers.
func renderNumbers(teams map[string][]receivers.Recipient, order []string, providers []receivers.Provider) string {
	var b strings.Builder

	for _, team := range order {
		fmt.Fprintf(&b, "[%s]\n", team)
		for _, r := range teams[team] {
			if r.Label != "" {
				fmt.Fprintf(&b, "%s | %s\n", r.Number, r.Label)
			} else {
				fmt.Fprintf(&b, "%s\n", r.Number)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "[%s]\n", providerSection)
	for _, p := range providers {
		if len(p.Headers) > 0 {
			line, err := json.MarshalToString(jsonProvider{URL: p.URL, Headers: p.Headers})
			if err == nil {
				b.WriteString(line + "\n")
				continue
			}
		}
		b.WriteString(p.URL + "\n")
	}

	return b.String()
}
