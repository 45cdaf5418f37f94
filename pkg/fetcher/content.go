package fetcher

import (
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// isHTML reports whether a Content-Type header denotes an HTML document. An
// absent header is given the benefit of the doubt.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// parseContent fills the title and visible text of content from its HTML.
func parseContent(content *Content) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
	if err != nil {
		return err
	}

	if content.Title == "" {
		content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("script, style, noscript, iframe, svg, template").Remove()
	content.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return nil
}

// challengeTextLimit is the visible text length under which a page carrying
// a CAPTCHA widget is treated as an interstitial rather than a real page
// with, say, a protected contact form.
const challengeTextLimit = 500

// detectChallengePage returns a label when the page looks like a bot
// challenge or CAPTCHA interstitial, or "" otherwise. It expects the title
// and text to have been filled by parseContent.
func detectChallengePage(c Content) string {
	titleLower := strings.ToLower(c.Title)
	htmlLower := strings.ToLower(c.HTML)

	switch {
	case strings.Contains(titleLower, "just a moment"),
		strings.Contains(titleLower, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case strings.Contains(titleLower, "access denied"),
		strings.Contains(titleLower, "bot detection"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}

	if len(c.Text) >= challengeTextLimit {
		return ""
	}

	switch {
	case strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile"),
		strings.Contains(htmlLower, "cf-turnstile"):
		return "cloudflare-turnstile"
	case strings.Contains(htmlLower, "hcaptcha.com"),
		strings.Contains(htmlLower, "h-captcha"):
		return "hcaptcha"
	case strings.Contains(htmlLower, "google.com/recaptcha"),
		strings.Contains(htmlLower, "g-recaptcha"):
		return "recaptcha"
	}
	return ""
}
