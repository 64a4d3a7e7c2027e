package analytics

import (
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitepulse/internal/events"
)

var countryQuery = gountries.New()

// CountryLabel turns an ISO alpha-2 code into its common English name.
func CountryLabel(code string) string {
	if code == "" || code == events.Unknown {
		return events.Unknown
	}
	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return cases.Upper(language.AmericanEnglish).String(code)
	}
	return country.Name.Common
}

// TitleLabel title-cases a lower-case classifier such as a device class.
func TitleLabel(name string) string {
	if name == "" {
		return events.Unknown
	}
	return cases.Title(language.AmericanEnglish).String(name)
}
