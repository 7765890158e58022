package isbn

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDigit10(t *testing.T) {
	tests := []struct {
		input    string
		expected byte
		ok       bool
	}{
		{"013609181", '4', true},
		{"080442957", 'X', true},
		{"156619909", '3', true},
		{"000000000", '0', true},
		{"12345678", 0, false},
		{"1234567890", 0, false},
		{"12345678X", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CheckDigit10(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCheckDigit10_MatchesWeightedSum(t *testing.T) {
	for _, digits := range []string{"123456789", "987654321", "555555555", "100000001", "019999999"} {
		sum := 0
		for i, c := range digits {
			sum += (i + 1) * int(c-'0')
		}
		want := strconv.Itoa(sum % 11)
		if sum%11 == 10 {
			want = "X"
		}

		got, ok := CheckDigit10(digits)
		assert.True(t, ok)
		assert.Equal(t, want, string(got), digits)
	}
}

func TestCheckDigit13(t *testing.T) {
	tests := []struct {
		input    string
		expected byte
		ok       bool
	}{
		{"978013609181", '3', true},
		{"978080442957", '3', true},
		{"978156619909", '4', true},
		{"979100000000", '8', true},
		{"97801360918", 0, false},
		{"97801360918X", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CheckDigit13(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTo13(t *testing.T) {
	got, ok := To13("0136091814")
	assert.True(t, ok)
	assert.Equal(t, "9780136091813", got)

	got, ok = To13("080442957X")
	assert.True(t, ok)
	assert.Equal(t, "9780804429573", got)
	assert.True(t, Valid13(got))

	_, ok = To13("12345")
	assert.False(t, ok)
}

func TestTo10(t *testing.T) {
	got, ok := To10("9780136091813")
	assert.True(t, ok)
	assert.Equal(t, "0136091814", got)

	got, ok = To10("9780804429573")
	assert.True(t, ok)
	assert.Equal(t, "080442957X", got)

	_, ok = To10("9791000000008")
	assert.False(t, ok, "979 numbers have no ISBN-10")

	_, ok = To10("978013609181")
	assert.False(t, ok)
}

func TestTo13_ProducesSelfConsistentCheckDigit(t *testing.T) {
	for _, isbn10 := range []string{"0136091814", "080442957X", "1566199093", "043942089X"} {
		isbn13, ok := To13(isbn10)
		assert.True(t, ok)
		assert.Len(t, isbn13, 13)
		assert.True(t, Valid13(isbn13), isbn13)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"9780136091813", "9780136091813", true},
		{"0136091814 (pbk.)", "9780136091813", true},
		{"978-0-13-609181-3 : $45.00", "9780136091813", true},
		{"  080442957X", "9780804429573", true},
		{"0136091815", "", false},
		{"9780136091814", "", false},
		{"(pbk.) 0136091814", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
