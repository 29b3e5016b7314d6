// Package locale provides the month and weekday names the calendar renders.
// Supported languages form a closed set; callers may override the names with
// custom arrays, which must carry exactly 12 months and 7 weekdays.
package locale

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Language identifies a supported language pack.
type Language string

const (
	English    Language = "en"
	Spanish    Language = "es"
	French     Language = "fr"
	German     Language = "de"
	Italian    Language = "it"
	Portuguese Language = "pt"
)

// Pack holds the names used to label calendar headers. Weekdays are ordered
// Monday first to match the grid.
type Pack struct {
	Language Language
	Months   [12]string
	Weekdays [7]string
}

var packs = map[Language]Pack{
	English: {
		Language: English,
		Months:   [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		Weekdays: [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	},
	Spanish: {
		Language: Spanish,
		Months:   [12]string{"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio", "Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"},
		Weekdays: [7]string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"},
	},
	French: {
		Language: French,
		Months:   [12]string{"Janvier", "Février", "Mars", "Avril", "Mai", "Juin", "Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre"},
		Weekdays: [7]string{"Lun", "Mar", "Mer", "Jeu", "Ven", "Sam", "Dim"},
	},
	German: {
		Language: German,
		Months:   [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
		Weekdays: [7]string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"},
	},
	Italian: {
		Language: Italian,
		Months:   [12]string{"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno", "Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"},
		Weekdays: [7]string{"Lun", "Mar", "Mer", "Gio", "Ven", "Sab", "Dom"},
	},
	Portuguese: {
		Language: Portuguese,
		Months:   [12]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho", "Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"},
		Weekdays: [7]string{"Seg", "Ter", "Qua", "Qui", "Sex", "Sáb", "Dom"},
	},
}

// Supported lists the available language packs.
func Supported() []Language {
	return []Language{English, Spanish, French, German, Italian, Portuguese}
}

// ParseLanguage resolves a BCP 47 identifier such as "pt-BR" to a supported
// pack by its base language.
func ParseLanguage(id string) (Language, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return English, nil
	}
	tag, err := language.Parse(id)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", id, err)
	}
	base, _ := tag.Base()
	lang := Language(base.String())
	if _, ok := packs[lang]; !ok {
		return "", fmt.Errorf("unsupported language %q", id)
	}
	return lang, nil
}

// Resolve returns the pack for id with optional overrides applied. Empty
// override slices keep the built-in names; non-empty ones must be complete.
func Resolve(id string, months, weekdays []string) (Pack, error) {
	lang, err := ParseLanguage(id)
	if err != nil {
		return Pack{}, err
	}
	pack := packs[lang]
	if len(months) > 0 {
		if len(months) != 12 {
			return Pack{}, fmt.Errorf("custom months: want 12 names, got %d", len(months))
		}
		copy(pack.Months[:], months)
	}
	if len(weekdays) > 0 {
		if len(weekdays) != 7 {
			return Pack{}, fmt.Errorf("custom weekdays: want 7 names, got %d", len(weekdays))
		}
		copy(pack.Weekdays[:], weekdays)
	}
	return pack, nil
}

// MonthName returns the localized name of m.
func (p Pack) MonthName(m time.Month) string {
	return p.Months[int(m)-1]
}

// WeekdayName returns the localized short name of w.
func (p Pack) WeekdayName(w time.Weekday) string {
	return p.Weekdays[(int(w)+6)%7]
}
