package i18n

import (
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Middleware picks the best supported language from the request's
// Accept-Language header, stores its localizer in the request context and
// reports the choice in Content-Language. Init must have been called.
func Middleware() func(http.Handler) http.Handler {
	tags := Supported()
	matcher := language.NewMatcher(tags)
	locs := make(map[language.Tag]*i18n.Localizer, len(tags))
	for _, t := range tags {
		locs[t] = NewLocalizer(t.String())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := tags[0]
			if accept, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(accept) > 0 {
				if _, idx, conf := matcher.Match(accept...); conf != language.No {
					tag = tags[idx]
				}
			}
			w.Header().Set("Content-Language", tag.String())
			ctx := WithLocalizer(r.Context(), locs[tag])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
