// Package session owns the network side of a crawl: the colly HTTP session, the chromedp
// browser session with its stealth setup, retry and cooldown policy, per-host rate limiting,
// forbidden-response tracking and robots.txt checks.
package session
