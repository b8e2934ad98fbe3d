package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIterations accepts a plain integer or mantissa-exponent notation such as "1e7".
func parseIterations(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("iterations not provided")
	}
	mant, exp, hasExp := strings.Cut(strings.ToLower(s), "e")
	n, err := strconv.ParseInt(mant, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad iterations %q", s)
	}
	if !hasExp {
		return n, nil
	}
	e, err := strconv.Atoi(exp)
	if err != nil || e < 0 || e > 18 {
		return 0, fmt.Errorf("bad iterations exponent in %q", s)
	}
	for i := 0; i < e; i++ {
		if n > (1<<63-1)/10 {
			return 0, fmt.Errorf("iterations %q overflow", s)
		}
		n *= 10
	}
	return n, nil
}

// parseCutoff parses "num/den" with 0 < num <= den.
func parseCutoff(s string) (num, den int64, err error) {
	a, b, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("cutoff %q: want num/den", s)
	}
	num, err1 := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	den, err2 := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("cutoff %q: want integers num/den", s)
	}
	if den <= 0 || num <= 0 || num > den {
		return 0, 0, fmt.Errorf("cutoff %q: want 0 < num <= den", s)
	}
	return num, den, nil
}

// parseRepetition parses "from-to" (to exclusive) or a single count n meaning 0-n.
func parseRepetition(s string) (from, to int, err error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("repetition %q: want from-to or a positive count", s)
		}
		return 0, n, nil
	}
	from, err1 := strconv.Atoi(strings.TrimSpace(a))
	to, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || from < 0 || to <= from {
		return 0, 0, fmt.Errorf("repetition %q: want from-to with 0 <= from < to", s)
	}
	return from, to, nil
}

// parseAtoms parses "Pt,4000".
func parseAtoms(s string) (element string, n int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return "", 0, fmt.Errorf("atoms %q: want element,count", s)
	}
	n, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("atoms %q: bad count", s)
	}
	return strings.TrimSpace(parts[0]), n, nil
}

// parseSupport parses "Al" or "Al,h,k,l". normal is nil without a vector.
func parseSupport(s string) (element string, normal *[3]int, err error) {
	parts := strings.Split(s, ",")
	element = strings.TrimSpace(parts[0])
	if element == "" {
		return "", nil, fmt.Errorf("support %q: missing element", s)
	}
	switch len(parts) {
	case 1:
		return element, nil, nil
	case 4:
		var v [3]int
		for i := range v {
			if v[i], err = strconv.Atoi(strings.TrimSpace(parts[i+1])); err != nil {
				return "", nil, fmt.Errorf("support %q: bad vector component %q", s, parts[i+1])
			}
		}
		if v == [3]int{} {
			return "", nil, fmt.Errorf("support %q: zero normal vector", s)
		}
		return element, &v, nil
	default:
		return "", nil, fmt.Errorf("support %q: want element or element,h,k,l", s)
	}
}

// parseFCC parses "nx,ny,nz" cell counts.
func parseFCC(s string) (nx, ny, nz int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("fcc %q: want nx,ny,nz", s)
	}
	var v [3]int
	for i, p := range parts {
		if v[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil || v[i] <= 0 {
			return 0, 0, 0, fmt.Errorf("fcc %q: bad cell count %q", s, p)
		}
	}
	return v[0], v[1], v[2], nil
}
