package roster

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amuthap/wedding-automation/internal/models"
)

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"3/04/2025":    "3/4/2025",
		"03/4/2025":    "3/4/2025",
		" 12/25/2024 ": "12/25/2024",
		"02/14/25":     "2/14/25",
		"2025-02-14":   "2025-02-14",
		"aa/bb/2025":   "aa/bb/2025",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), "input %q", in)
	}
	assert.Equal(t, NormalizeDate("3/04/2025"), NormalizeDate("03/4/2025"))
}

func TestNormalizeDateIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"03/04/2025", "3/4/2025", "11/09/1990", "bad", "1/2"} {
		once := NormalizeDate(in)
		assert.Equal(t, once, NormalizeDate(once), "input %q", in)
	}
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.February, 14, 9, 30, 0, 0, time.Local)
	m := Matcher{Today: today}

	assert.True(t, m.Match("2/14/2025"))
	assert.True(t, m.Match("02/14/2025"))
	assert.False(t, m.Match("2/14/2024"))
	assert.False(t, m.Match("2/15/2025"))
	assert.False(t, m.Match(""))

	anyYear := Matcher{Today: today, IgnoreYear: true}
	assert.True(t, anyYear.Match("02/14/1990"))
	assert.False(t, anyYear.Match("02/15/1990"))
}

func TestFormatDate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "03/04/2025", FormatDate(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)))
}

func TestDigitsOnly(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"+91 98940 45150":                       "9894045150",
		"098940-45150":                          "9894045150",
		"https://wa.me/919894045150?text=hi":    "9894045150",
		"12345":                                 "12345",
		"":                                      "",
		"no digits":                             "",
		"https://api.whatsapp.com/send?phone=1": "1",
	}
	for in, want := range cases {
		got := DigitsOnly(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.LessOrEqual(t, len(got), 10)
		assert.Equal(t, got, DigitsOnly(got), "not stable for %q", in)
	}
}

func TestContactNumberPrefersWhatsApp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "9000000001", ContactNumber(models.RosterRow{WhatsApp: "919000000001", Phone: "9000000002"}))
	assert.Equal(t, "9000000002", ContactNumber(models.RosterRow{WhatsApp: "n/a", Phone: "9000000002"}))
	assert.Empty(t, ContactNumber(models.RosterRow{}))
}

func TestReadRoster(t *testing.T) {
	t.Parallel()

	data := "\ufeffDate,image,Name,Address,Roll,Phone,WhatsApp\n" +
		"2/14/2025,https://example.com/jane.jpg, Jane Doe ,Club X,member,,919000000001\n" +
		",,,,,,\n" +
		"3/1/2025,,John Roe,Club Y,president\n"

	rows, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, models.RosterRow{
		Date:     "2/14/2025",
		ImageURL: "https://example.com/jane.jpg",
		Name:     "Jane Doe",
		Address:  "Club X",
		Role:     "member",
		WhatsApp: "919000000001",
	}, rows[0])
	assert.Equal(t, "president", rows[1].Role)
	assert.Empty(t, rows[1].Phone)
}

func TestReadRosterWithoutOptionalColumns(t *testing.T) {
	t.Parallel()

	rows, err := Read(strings.NewReader("Name,Date,Roll,Address,image\nA,1/1/2025,r,c,\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Name)
	assert.Equal(t, "1/1/2025", rows[0].Date)
}

func TestReadRosterMissingColumns(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("Date,Name\n1/1/2025,A\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image")
	assert.Contains(t, err.Error(), "Roll")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	rows := []models.RosterRow{
		{Date: "10/17/2026", ImageURL: "https://example.com/a.png", Name: "Asha, K", Address: "RC of Madurai", Role: "member", Phone: "+919000000001"},
		{Date: "10/17/2026", Name: "Ravi", Address: "RC of Salem", Role: "member", WhatsApp: "https://wa.me/919000000002"},
	}
	for _, name := range []string{"roster.csv", "roster.xlsx"} {
		path := filepath.Join(t.TempDir(), "out", name)
		require.NoError(t, Save(path, rows), name)

		got, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, rows, got, name)
	}
}
