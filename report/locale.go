package report

import (
	"fmt"
	"strings"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is given.
const DefaultLocale = "en-US"

// AutoLocale selects the user's locale from the environment.
const AutoLocale = "auto"

// Options controls how a report is rendered.
type Options struct {
	// Language selects the number format. The zero value means
	// DefaultLocale.
	Language language.Tag
}

func (o Options) language() language.Tag {
	if o.Language == language.Und {
		return language.MustParse(DefaultLocale)
	}
	return o.Language
}

// ParseLocale resolves a locale name into a language tag. AutoLocale
// asks the operating system and falls back to DefaultLocale when it
// reports nothing usable.
func ParseLocale(name string) (language.Tag, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return language.MustParse(DefaultLocale), nil
	case AutoLocale:
		return detectLocale(), nil
	}

	tag, err := language.Parse(name)
	if err != nil {
		return language.Und, fmt.Errorf("locale %q: %w", name, err)
	}
	return tag, nil
}

func detectLocale() language.Tag {
	locales, err := locale.GetLocales()
	if err != nil {
		return language.MustParse(DefaultLocale)
	}

	for _, name := range locales {
		if tag, err := language.Parse(name); err == nil {
			return tag
		}
	}
	return language.MustParse(DefaultLocale)
}
