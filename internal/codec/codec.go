// Package codec 兑换码编解码。
//
// 明文为 50 位：校验码(14) ‖ 混淆载荷(36)，载荷 = fresh(4) ‖ 序列号(32)。
// fresh 取优惠券 ID 的低 4 位，不同优惠券之间允许碰撞。
// 校验码按 fresh 选择加权行，对载荷每 4 位加权求和后取低 14 位；
// 载荷再与按校验码低 5 位选出的密钥异或。结果按 Base32 编码为 10 个字符。
package codec

import (
	"strings"

	"github.com/go-faster/errors"
)

const (
	freshBitOffset     = 32
	checksumBitOffset  = 36
	freshMask          = 0xF
	checksumMask       = 0x3FFF
	payloadMask        = 0xFFFFFFFFF
	serialMask         = 0xFFFFFFFF
	xorSelectorMask    = 0x1F
	nibbleMask         = 0xF
	nibbleBits         = 4
	payloadNibbleCount = 9
)

// ErrInvalidCode 兑换码格式或校验失败
var ErrInvalidCode = errors.New("invalid exchange code")

// Decoded 解码结果
type Decoded struct {
	Serial uint32
	Fresh  uint8
}

// Codec 兑换码编解码器，无状态，可并发使用
type Codec struct {
	keys *KeySchedule
}

// New 创建编解码器
func New(keys *KeySchedule) *Codec {
	return &Codec{keys: keys}
}

// NewFromSecrets 直接由密钥种子创建编解码器
func NewFromSecrets(xorSecret, primeSecret string) *Codec {
	return New(NewKeySchedule(xorSecret, primeSecret))
}

// Fresh 返回优惠券 ID 对应的新鲜值
func Fresh(couponID uint) uint8 {
	return uint8(uint64(couponID) & freshMask)
}

// Encode 生成兑换码
func (c *Codec) Encode(serial uint32, couponID uint) string {
	fresh := uint64(Fresh(couponID))
	payload := fresh<<freshBitOffset | uint64(serial)
	checksum := c.checksum(payload, fresh)
	payload ^= c.keys.xor[checksum&xorSelectorMask]
	return encodeBase32(checksum<<checksumBitOffset | payload)
}

// Decode 解析兑换码，只做纯计算，不访问任何存储
func (c *Codec) Decode(code string) (Decoded, error) {
	num, err := decodeBase32(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return Decoded{}, err
	}
	checksum := num >> checksumBitOffset
	payload := (num & payloadMask) ^ c.keys.xor[checksum&xorSelectorMask]
	fresh := (payload >> freshBitOffset) & freshMask
	if c.checksum(payload, fresh) != checksum {
		return Decoded{}, errors.Wrap(ErrInvalidCode, "checksum mismatch")
	}
	return Decoded{
		Serial: uint32(payload & serialMask),
		Fresh:  uint8(fresh),
	}, nil
}

// BelongsTo 判断解码结果的新鲜值是否与优惠券一致
func (d Decoded) BelongsTo(couponID uint) bool {
	return d.Fresh == Fresh(couponID)
}

func (c *Codec) checksum(payload, fresh uint64) uint64 {
	row := &c.keys.weights[fresh]
	var sum uint64
	for i := 0; i < payloadNibbleCount; i++ {
		sum += (payload & nibbleMask) * row[i]
		payload >>= nibbleBits
	}
	return sum & checksumMask
}
