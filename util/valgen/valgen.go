// Some helpers using closures to generate values and cycle patterns
package valgen

import (
	"fmt"
	"strings"
)

func MakeConstGen(constant uint64) func() uint64 {
	return func() uint64 {
		return constant
	}
}

// MakeIncreasingGen returns start, start+1, start+2, ...
func MakeIncreasingGen(start uint64) func() uint64 {
	current := start
	return func() uint64 {
		v := current
		current++
		return v
	}
}

// MakeStrideGen returns start, start+stride, start+2*stride, ...
func MakeStrideGen(start, stride uint64) func() uint64 {
	current := start
	return func() uint64 {
		v := current
		current += stride
		return v
	}
}

// ParsePattern converts a pattern such as "1100" into one bool per cycle.
// Spaces and underscores are ignored so that long patterns can be grouped. An
// empty pattern means "every cycle".
func ParsePattern(pattern string) ([]bool, error) {
	bits := make([]bool, 0, len(pattern))

	for _, c := range pattern {
		switch c {
		case '1':
			bits = append(bits, true)
		case '0':
			bits = append(bits, false)
		case ' ', '_':
		default:
			return nil, fmt.Errorf("invalid character %q in pattern %q", c, pattern)
		}
	}

	if len(bits) == 0 {
		if strings.TrimSpace(pattern) != "" {
			return nil, fmt.Errorf("pattern %q has no cycles", pattern)
		}

		bits = append(bits, true)
	}

	return bits, nil
}

// MakePatternGen repeats a pattern forever, one bit per call.
func MakePatternGen(pattern string) (func() bool, error) {
	bits, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	i := 0
	return func() bool {
		b := bits[i]
		i = (i + 1) % len(bits)
		return b
	}, nil
}

// MustPatternGen is MakePatternGen that panics on an invalid pattern.
func MustPatternGen(pattern string) func() bool {
	gen, err := MakePatternGen(pattern)
	if err != nil {
		panic(err)
	}

	return gen
}
