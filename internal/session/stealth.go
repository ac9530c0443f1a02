package session

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
)

// Browser locale and zone presented to Korean boards.
const (
	stealthLocale   = "ko-KR"
	stealthTimezone = "Asia/Seoul"
)

// stealthScript hides the usual automation fingerprints before any page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['ko-KR', 'ko', 'en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
window.chrome = window.chrome || { runtime: {} };
const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
if (originalQuery) {
  window.navigator.permissions.query = (parameters) =>
    parameters.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : originalQuery(parameters);
}
`

func applyStealth(ctx context.Context) error {
	if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
		return fmt.Errorf("inject stealth script: %w", err)
	}
	if err := emulation.SetLocaleOverride().WithLocale(stealthLocale).Do(ctx); err != nil {
		return fmt.Errorf("set locale: %w", err)
	}
	if err := emulation.SetTimezoneOverride(stealthTimezone).Do(ctx); err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	return nil
}
