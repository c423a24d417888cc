// Package filters holds the template filters registered by the site configuration.
package filters

import (
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// PostDateName is the name templates call the date filter by.
const PostDateName = "PostDate"

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en-US"

type mediumFormat struct {
	locale monday.Locale
	layout string
}

// Medium date layouts: abbreviated month, numeric day, four digit year, in
// the order each locale writes them.
var mediumFormats = []mediumFormat{
	{monday.LocaleEnUS, "Jan 2, 2006"},
	{monday.LocaleEnGB, "2 Jan 2006"},
	{monday.LocaleDeDE, "2. Jan 2006"},
	{monday.LocaleFrFR, "2 Jan 2006"},
	{monday.LocaleEsES, "2 Jan 2006"},
	{monday.LocaleItIT, "2 Jan 2006"},
	{monday.LocaleNlNL, "2 Jan 2006"},
}

var supportedTags = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.MustParse("de-DE"),
	language.MustParse("fr-FR"),
	language.MustParse("es-ES"),
	language.MustParse("it-IT"),
	language.MustParse("nl-NL"),
}

var matcher = language.NewMatcher(supportedTags)

// PostDate formats points in time as medium localized dates.
type PostDate struct {
	format mediumFormat
	loc    *time.Location
}

// NewPostDateFormatter resolves locale (a BCP 47 tag such as "en-US") to the
// closest supported medium date format. A nil tz means UTC.
func NewPostDateFormatter(locale string, tz *time.Location) (*PostDate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, sberrors.ValidationFailed("dates.locale", "invalid locale "+locale)
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return nil, sberrors.ValidationFailed("dates.locale", "unsupported locale "+locale)
	}
	if tz == nil {
		tz = time.UTC
	}
	return &PostDate{format: mediumFormats[idx], loc: tz}, nil
}

// Locale returns the monday locale the formatter resolved to.
func (p *PostDate) Locale() monday.Locale { return p.format.locale }

// Format renders v, which may be anything ToTime accepts.
func (p *PostDate) Format(v any) (string, error) {
	t, err := ToTime(v)
	if err != nil {
		return "", err
	}
	return monday.Format(t.In(p.loc), p.format.layout, p.format.locale), nil
}

// NewPostDate returns the PostDate filter function for locale and tz.
func NewPostDate(locale string, tz *time.Location) (func(any) (string, error), error) {
	p, err := NewPostDateFormatter(locale, tz)
	if err != nil {
		return nil, err
	}
	return p.Format, nil
}

// LoadLocation resolves an IANA zone name. Empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, sberrors.Wrap(err, sberrors.CategoryValidation, sberrors.SeverityFatal, "invalid time zone").
			WithContext("field", "dates.timezone")
	}
	return loc, nil
}
