package cmd

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.PanicLevel)
	}
	os.Exit(m.Run())
}

func TestParseIterations(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1000", 1000, false},
		{"1e7", 10_000_000, false},
		{"25E3", 25_000, false},
		{" 3e0 ", 3, false},
		{"", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"1.5e3", 0, true},
		{"1e-2", 0, true},
		{"1e2e3", 0, true},
		{"9e18", 9_000_000_000_000_000_000, false},
		{"10e18", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIterations(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCutoff(t *testing.T) {
	num, den, err := parseCutoff("3/4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), num)
	assert.Equal(t, int64(4), den)

	for _, bad := range []string{"1", "a/2", "3/2", "0/2", "1/0", "-1/2"} {
		_, _, err := parseCutoff(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseRepetition(t *testing.T) {
	from, to, err := parseRepetition("2-5")
	require.NoError(t, err)
	assert.Equal(t, 2, from)
	assert.Equal(t, 5, to)

	// BDD: a single number n means repetitions 0..n-1
	from, to, err = parseRepetition("3")
	require.NoError(t, err)
	assert.Equal(t, 0, from)
	assert.Equal(t, 3, to)

	for _, bad := range []string{"", "0", "3-3", "4-2", "a-b"} {
		_, _, err := parseRepetition(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAtoms(t *testing.T) {
	el, n, err := parseAtoms("Pt,4000")
	require.NoError(t, err)
	assert.Equal(t, "Pt", el)
	assert.Equal(t, 4000, n)

	for _, bad := range []string{"Pt", ",10", "Pt,0", "Pt,x", "Pt,1,2"} {
		_, _, err := parseAtoms(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSupport(t *testing.T) {
	el, normal, err := parseSupport("Al")
	require.NoError(t, err)
	assert.Equal(t, "Al", el)
	assert.Nil(t, normal)

	el, normal, err = parseSupport("Al,1,-1,1")
	require.NoError(t, err)
	assert.Equal(t, "Al", el)
	require.NotNil(t, normal)
	assert.Equal(t, [3]int{1, -1, 1}, *normal)

	for _, bad := range []string{"", "Al,1,1", "Al,0,0,0", "Al,1,x,1"} {
		_, _, err := parseSupport(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFCC(t *testing.T) {
	nx, ny, nz, err := parseFCC("4, 5,6")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, []int{nx, ny, nz})

	for _, bad := range []string{"4,4", "4,0,4", "a,b,c"} {
		_, _, _, err := parseFCC(bad)
		assert.Error(t, err, bad)
	}
}
