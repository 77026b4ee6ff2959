package dispatch

import (
	"html"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	// slackLinkRe matches <url> and <url|label> link markup.
	slackLinkRe = regexp.MustCompile(`<([^<>|]+)(?:\|[^<>]*)?>`)

	httpURLRe = mustStrict(`https?://`)
)

func mustStrict(scheme string) *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(scheme)
	if err != nil {
		panic(err)
	}
	return re
}

// CleanURL returns the first http(s) URL in chat text, or "" when there is none.
// Slack's &amp;, &lt; and &gt; escapes are undone after link markup is removed.
func CleanURL(text string) string {
	text = slackLinkRe.ReplaceAllString(strings.TrimSpace(text), "$1")
	return httpURLRe.FindString(html.UnescapeString(text))
}
