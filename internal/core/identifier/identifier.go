package identifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSpaceExhausted は桁数内で次の連番を表現できない場合に返却されます。
	ErrSpaceExhausted = errors.New("identifier: space exhausted")
	// ErrInvalidFormat は ID がプレフィックスと数字の組み合わせでない場合に返却されます。
	ErrInvalidFormat = errors.New("identifier: invalid format")
)

// Format は prefix と n を width 桁でゼロ埋めした ID を返します。
// n が width 桁に収まらない場合は ErrSpaceExhausted を返します。
func Format(prefix string, width int, n int64) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("identifier: sequence must be positive, got %d", n)
	}

	digits := strconv.FormatInt(n, 10)
	if len(digits) > width {
		return "", fmt.Errorf("%w: %d does not fit in %d digits", ErrSpaceExhausted, n, width)
	}

	return prefix + strings.Repeat("0", width-len(digits)) + digits, nil
}

// ParseSuffix は ID から prefix を取り除いた連番部分を返します。
func ParseSuffix(prefix, id string) (int64, error) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, id)
	}

	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, id)
		}
	}

	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, id)
	}
	return n, nil
}
