package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

const (
	// DMTIUserCode identifies the declaring company in every correlative.
	DMTIUserCode = "SV02347"

	// dmtiSeed2025 continues the numbering of declarations filed before this
	// system existed. It applies to 2025 only and is not a general rule.
	dmtiSeed2025 = 428

	dmtiSuffixLen = 5
	// Older records used long generated ids; only short ones take part in
	// the numbering.
	dmtiMaxIDLen = 36
)

// DMTIInput describes the declaration a correlative is issued for.
type DMTIInput struct {
	RegistrationDate string // YYYY-MM-DD
	StartingCustoms  string
}

// NextDMTICorrelative returns {year}{customs}{user code}{seq:05d}, where seq
// follows the highest sequence already issued in the same year.
func NextDMTICorrelative(existing []models.DMTI, in DMTIInput) (string, error) {
	year, err := registrationYear(in.RegistrationDate)
	if err != nil {
		return "", err
	}
	customs := CustomsCode(in.StartingCustoms)
	if customs == "" {
		return "", apperr.E(apperr.Validation, "starting customs is required")
	}

	next := 1
	found := false
	highest := 0
	for _, d := range existing {
		seq, ok := correlativeSequence(d, year)
		if !ok {
			continue
		}
		found = true
		if seq > highest {
			highest = seq
		}
	}
	switch {
	case found:
		next = highest + 1
	case year == "2025":
		next = dmtiSeed2025
	}
	return fmt.Sprintf("%s%s%s%05d", year, customs, DMTIUserCode, next), nil
}

func correlativeSequence(d models.DMTI, year string) (int, bool) {
	if len(d.RegistrationDate) < 4 || d.RegistrationDate[:4] != year {
		return 0, false
	}
	if len(d.ID) >= dmtiMaxIDLen || len(d.ID) < dmtiSuffixLen {
		return 0, false
	}
	suffix := d.ID[len(d.ID)-dmtiSuffixLen:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func registrationYear(date string) (string, error) {
	if len(date) < 4 {
		return "", apperr.E(apperr.Validation, "invalid registration date %q", date)
	}
	year := date[:4]
	if _, err := strconv.Atoi(year); err != nil {
		return "", apperr.E(apperr.Validation, "invalid registration date %q", date)
	}
	return year, nil
}

// CustomsCode is the customs name as it appears in a correlative: ASCII
// letters and digits only.
func CustomsCode(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, s)
}
