package risk

import "strings"

// Bot categories by User-Agent. Detection is deliberately coarse: this is a
// tripwire for obvious automation, not a fingerprinting engine.
const (
	BotCategoryLibrary  = "http_library"
	BotCategoryHeadless = "headless_browser"
	BotCategoryCrawler  = "crawler"
	BotCategoryUnknown  = "unknown"
)

var botSignatures = map[string][]string{
	BotCategoryLibrary: {
		"curl/", "wget/", "python-requests", "python-urllib", "go-http-client",
		"okhttp", "java/", "libwww", "httpclient", "axios/",
	},
	BotCategoryHeadless: {
		"headlesschrome", "phantomjs", "puppeteer", "playwright", "selenium",
	},
	BotCategoryCrawler: {
		"googlebot", "bingbot", "duckduckbot", "baiduspider", "yandexbot",
		"slurp", "spider", "crawler", "bot/", "bot;",
	},
}

// DetectBot categorizes a User-Agent. An empty User-Agent counts as a bot
// of unknown category.
func DetectBot(userAgent string) (category string, isBot bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))

	if ua == "" {
		return BotCategoryUnknown, true
	}

	for cat, sigs := range botSignatures {
		for _, sig := range sigs {
			if strings.Contains(ua, sig) {
				return cat, true
			}
		}
	}

	return "", false
}
