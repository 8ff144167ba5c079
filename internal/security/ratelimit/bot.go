package ratelimit

import "regexp"

var botPattern = regexp.MustCompile(`(?i)bot|crawler|spider|scraper|curl|wget|python|java|headless|phantom|selenium`)

// DetectBot reports whether a user agent looks automated. An empty agent is not flagged.
func DetectBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return botPattern.MatchString(userAgent)
}
