package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedParser pins the clock so age assertions stay stable.
func fixedParser() *ResidentIDParser {
	p := NewResidentIDParser()
	p.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func TestParseValidMaleID(t *testing.T) {
	p := fixedParser()

	attrs, ok := p.Parse("110101199003070011")
	require.True(t, ok)
	assert.Equal(t, "男", attrs.Gender)
	assert.Equal(t, time.Date(1990, 3, 7, 0, 0, 0, 0, time.UTC), attrs.BirthDate)
	assert.Equal(t, 36, attrs.Age)
	assert.Equal(t, "北京市", attrs.Registration)
}

func TestParseValidFemaleIDWithXCheckDigit(t *testing.T) {
	p := fixedParser()

	attrs, ok := p.Parse("11010119900307002X")
	require.True(t, ok)
	assert.Equal(t, "女", attrs.Gender)
}

func TestParseLowercaseCheckDigitAccepted(t *testing.T) {
	p := fixedParser()

	_, ok := p.Parse("11010119900307002x")
	assert.True(t, ok)
}

func TestParseTrimsWhitespace(t *testing.T) {
	p := fixedParser()

	_, ok := p.Parse("  330726199503140021 ")
	require.True(t, ok)
}

func TestParseAgeBeforeBirthdayThisYear(t *testing.T) {
	p := fixedParser()

	// Born 1961-10-15; at the pinned date the birthday has not passed.
	attrs, ok := p.Parse("620102196110150028")
	require.True(t, ok)
	assert.Equal(t, 64, attrs.Age)
	assert.Equal(t, "甘肃省", attrs.Registration)
}

func TestParseRejectsBadChecksum(t *testing.T) {
	p := fixedParser()

	attrs, ok := p.Parse("110101199003070012")
	assert.False(t, ok)
	assert.Nil(t, attrs)
}

func TestParseRejectsWrongLength(t *testing.T) {
	p := fixedParser()

	for _, raw := range []string{"", "12345", "1101011990030700111"} {
		_, ok := p.Parse(raw)
		assert.False(t, ok, "raw=%q", raw)
	}
}

func TestParseRejectsNonDigits(t *testing.T) {
	p := fixedParser()

	_, ok := p.Parse("11010119900307ABCD")
	assert.False(t, ok)
}

func TestParseRejectsFutureBirthDate(t *testing.T) {
	p := NewResidentIDParser()
	p.now = func() time.Time {
		return time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	_, ok := p.Parse("110101199003070011")
	assert.False(t, ok)
}

func TestParseRejectsUnknownRegion(t *testing.T) {
	p := fixedParser()

	// Same structure as a valid number but with an unassigned division
	// prefix and a recomputed check digit.
	_, ok := p.Parse("990101199003070015")
	assert.False(t, ok)
}
