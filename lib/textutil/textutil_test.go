package textutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "иванова мария сергеевна", NormalizeName("  Иванова   Мария\tСергеевна "))
	require.Equal(t, "семенова", NormalizeName("Семёнова"))
}

func TestCleanDate(t *testing.T) {
	cases := map[string]string{
		"15.03.1985":   "15.03.1985",
		"1.3.1985":     "01.03.1985",
		"15/03/1985":   "15.03.1985",
		"15 - 03 1985": "15.03.1985",
		"29.02.2024":   "29.02.2024",
		"29.02.2023":   "",
		"15.13.1985":   "",
		"15.03.1899":   "",
		"15.03.2999":   "",
		"not a date":   "",
		"":             "",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanDate(in), "input %q", in)
	}
}

func TestCleanDateIdempotent(t *testing.T) {
	inputs := []string{"15.03.1985", "1/1/2001", "31.12.1999", "7 8 1990"}
	for _, in := range inputs {
		once := CleanDate(in)
		require.Equal(t, once, CleanDate(once), "input %q", in)
	}
}

func TestCleanPhone(t *testing.T) {
	cases := map[string]string{
		"9261234567":        "79261234567",
		"89261234567":       "79261234567",
		"79261234567":       "79261234567",
		"+7 (926) 123-45-67": "79261234567",
		"8 926 123 45 67":   "79261234567",
		"1234567":           "",
		"0261234567":        "",
		"99261234567":       "",
		"":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanPhone(in), "input %q", in)
	}
}

func TestCleanPhoneShape(t *testing.T) {
	for i := 0; i < 20; i++ {
		in := fmt.Sprintf("9%09d", i*49999)
		out := CleanPhone(in)
		require.Len(t, out, 11)
		require.Equal(t, byte('7'), out[0])
	}
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "Иванова_Мария", SanitizeFilename(`Иванова /\ Мария?*`))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "аб…", TruncateRunes("абвг", 2))
	require.Equal(t, "абвг", TruncateRunes("абвг", 4))
}
