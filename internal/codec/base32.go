package codec

import (
	"github.com/go-faster/errors"
)

// 去掉了 0/1/I/O 等易混淆字符
const alphabet = "6CSB7H8DAKXZF3N95RTMVUQG2YE4JWPL"

// CodeLength 兑换码固定长度
const CodeLength = 10

var alphabetIndex = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		idx[alphabet[i]] = int8(i)
	}
	return idx
}()

func encodeBase32(v uint64) string {
	buf := make([]byte, CodeLength)
	for i := CodeLength - 1; i >= 0; i-- {
		buf[i] = alphabet[v&0x1F]
		v >>= 5
	}
	return string(buf)
}

func decodeBase32(s string) (uint64, error) {
	if len(s) != CodeLength {
		return 0, errors.Wrapf(ErrInvalidCode, "length %d", len(s))
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d := alphabetIndex[s[i]]
		if d < 0 {
			return 0, errors.Wrapf(ErrInvalidCode, "illegal character %q", s[i])
		}
		v = v<<5 | uint64(d)
	}
	return v, nil
}

// WellFormed 判断字符串是否满足兑换码字符集与长度
func WellFormed(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if alphabetIndex[s[i]] < 0 {
			return false
		}
	}
	return true
}
