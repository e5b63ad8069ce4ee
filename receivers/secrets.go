package receivers

import (
	"net/url"
	"regexp"
	"strings"
)

const mask = "*****"

var (
	sensitiveParamRe = regexp.MustCompile(`(?i)(apikey|token|key|secret)=[^&]+`)
	tokenSegmentRe   = regexp.MustCompile(`^[A-Za-z0-9]{20,}$`)
)

// MaskURL hides credential material embedded in a provider URL: values of
// common secret query parameters and long random path segments (incoming
// webhook URLs carry their token as a 20+ character path element).
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	rawURL = sensitiveParamRe.ReplaceAllString(rawURL, "$1="+mask)

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segs := strings.Split(u.Path, "/")
	for i, seg := range segs {
		if tokenSegmentRe.MatchString(seg) {
			segs[i] = mask
		}
	}
	u.Path = strings.Join(segs, "/")
	return u.String()
}

// MaskHeaders returns a copy of headers with authorization and token values
// hidden.
func MaskHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	safe := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "authorization") || strings.Contains(lower, "token") {
			safe[k] = mask
		} else {
			safe[k] = v
		}
	}
	return safe
}

// MaskNumber hides all but the last three digits of a phone number.
func MaskNumber(number string) string {
	if len(number) <= 3 {
		return mask
	}
	return strings.Repeat("*", len(number)-3) + number[len(number)-3:]
}
