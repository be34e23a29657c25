package airline

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/flightq/internal/domain"
)

// MaxCodeLength is the longest accepted airline code, in runes.
const MaxCodeLength = 3

// combinedSeparator joins the English and Arabic parts of combined fields.
const combinedSeparator = " || "

// Record is one airline of the lookup table (immutable value object).
type Record struct {
	englishName     string
	arabicName      string
	code            string
	cleanedEnglish  string
	cleanedArabic   string
	combinedCleaned string
	combinedName    string
}

// NewRecord builds a record from raw dataset cells.
// A missing name is back-filled from the other one; a row without any name is rejected,
// as is a code that is not 1..3 letters.
func NewRecord(englishName, arabicName, code string) (Record, error) {
	if englishName == "" {
		englishName = arabicName
	}
	if arabicName == "" {
		arabicName = englishName
	}
	if englishName == "" {
		return Record{}, fmt.Errorf("%w: both names are missing", domain.ErrInvalidRecord)
	}
	if err := validateCode(code); err != nil {
		return Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}

	cleanedEN := CleanText(englishName)
	cleanedAR := CleanText(arabicName)

	return Record{
		englishName:     englishName,
		arabicName:      arabicName,
		code:            code,
		cleanedEnglish:  cleanedEN,
		cleanedArabic:   cleanedAR,
		combinedCleaned: cleanedEN + combinedSeparator + cleanedAR,
		combinedName:    englishName + combinedSeparator + arabicName,
	}, nil
}

func validateCode(code string) error {
	if code == "" {
		return fmt.Errorf("airline code is required")
	}
	if utf8.RuneCountInString(code) > MaxCodeLength {
		return fmt.Errorf("airline code %q longer than %d characters", code, MaxCodeLength)
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return fmt.Errorf("airline code %q must be alphabetic", code)
		}
	}
	return nil
}

// EnglishName returns the (back-filled) English name.
func (r Record) EnglishName() string { return r.englishName }

// ArabicName returns the (back-filled) Arabic name.
func (r Record) ArabicName() string { return r.arabicName }

// Code returns the IATA code.
func (r Record) Code() string { return r.code }

// CleanedEnglish returns the normalized English name.
func (r Record) CleanedEnglish() string { return r.cleanedEnglish }

// CleanedArabic returns the normalized Arabic name.
func (r Record) CleanedArabic() string { return r.cleanedArabic }

// CombinedCleaned returns the text that gets embedded.
func (r Record) CombinedCleaned() string { return r.combinedCleaned }

// CombinedName returns the display name.
func (r Record) CombinedName() string { return r.combinedName }
