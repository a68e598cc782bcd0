package collector

import (
	"regexp"
	"strings"
)

// Event types emitted by the link and copy classifiers.
const (
	EventPageView   = "page.view"
	EventUIClick    = "ui.click"
	EventSocial     = "social.click"
	EventEmailClick = "contact.email_click"
	EventPhoneClick = "contact.phone_click"
	EventEmailCopy  = "contact.email_copy"
	EventIdentify   = "user.identify"
)

// HomePage is the sentinel route recorded when the current page is empty.
const HomePage = "#home"

// socialHosts maps outbound link substrings to their platform name. Checked
// in order so the more specific spellings resolve first.
var socialHosts = []struct {
	host     string
	platform string
}{
	{"facebook.com", "facebook"},
	{"fb.com", "facebook"},
	{"twitter.com", "twitter"},
	{"x.com", "twitter"},
	{"instagram.com", "instagram"},
	{"linkedin.com", "linkedin"},
	{"youtube.com", "youtube"},
	{"whatsapp.com", "whatsapp"},
	{"wa.me", "whatsapp"},
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ClassifyLink maps a link href to the event type it should emit, plus the
// platform name for social links. Returns false for ordinary navigation that
// carries no contact or social intent.
func ClassifyLink(href string) (eventType, platform string, tracked bool) {
	lower := strings.ToLower(strings.TrimSpace(href))
	switch {
	case strings.HasPrefix(lower, "mailto:"):
		return EventEmailClick, "", true
	case strings.HasPrefix(lower, "tel:"):
		return EventPhoneClick, "", true
	}
	for _, social := range socialHosts {
		if strings.Contains(lower, social.host) {
			return EventSocial, social.platform, true
		}
	}
	return "", "", false
}

// IsEmailAddress reports whether the trimmed text is exactly an email
// address. Copying prose that merely contains an address does not count as
// copy-to-contact intent.
func IsEmailAddress(text string) bool {
	return emailPattern.MatchString(strings.TrimSpace(text))
}
