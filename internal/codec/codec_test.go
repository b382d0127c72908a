package codec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return NewFromSecrets("unit-xor-seed", "unit-prime-seed")
}

func TestEncodeProducesFixedWidthAlphabet(t *testing.T) {
	c := testCodec()
	for _, serial := range []uint32{0, 1, 2, 99, 1 << 20, math.MaxUint32} {
		code := c.Encode(serial, 7)
		require.Len(t, code, CodeLength)
		assert.True(t, WellFormed(code), code)
	}
}

func TestRoundTripAllFreshValues(t *testing.T) {
	c := testCodec()
	rng := rand.New(rand.NewSource(42))
	for couponID := uint(0); couponID < 64; couponID++ {
		for i := 0; i < 200; i++ {
			serial := rng.Uint32()
			got, err := c.Decode(c.Encode(serial, couponID))
			require.NoError(t, err)
			assert.Equal(t, serial, got.Serial)
			assert.Equal(t, Fresh(couponID), got.Fresh)
			assert.True(t, got.BelongsTo(couponID))
		}
	}
}

func TestRoundTripBoundarySerials(t *testing.T) {
	c := testCodec()
	for _, serial := range []uint32{0, 1, math.MaxUint32, math.MaxUint32 - 1} {
		got, err := c.Decode(c.Encode(serial, 15))
		require.NoError(t, err)
		assert.Equal(t, serial, got.Serial)
	}
}

func TestFreshCollisionAcrossCoupons(t *testing.T) {
	c := testCodec()
	// 3 与 19 低 4 位相同，生成的兑换码一致
	assert.Equal(t, c.Encode(1000, 3), c.Encode(1000, 19))
	got, err := c.Decode(c.Encode(1000, 3))
	require.NoError(t, err)
	assert.True(t, got.BelongsTo(19))
	assert.False(t, got.BelongsTo(4))
}

func TestDecodeIsCaseInsensitive(t *testing.T) {
	c := testCodec()
	code := c.Encode(123456, 9)
	lower := []byte(code)
	for i, ch := range lower {
		if ch >= 'A' && ch <= 'Z' {
			lower[i] = ch + 32
		}
	}
	got, err := c.Decode(" " + string(lower) + " ")
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), got.Serial)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	c := testCodec()
	valid := c.Encode(10, 1)
	tests := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "too short", code: valid[:9]},
		{name: "too long", code: valid + "A"},
		{name: "ambiguous zero", code: "0" + valid[1:]},
		{name: "ambiguous letter O", code: "O" + valid[1:]},
		{name: "ambiguous one", code: valid[:9] + "1"},
		{name: "symbol", code: valid[:5] + "-" + valid[6:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.code)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCode))
		})
	}
}

func TestDifferentSecretsRejectCodes(t *testing.T) {
	a := testCodec()
	b := NewFromSecrets("other-xor-seed", "other-prime-seed")
	rejected := 0
	for serial := uint32(1); serial <= 500; serial++ {
		if _, err := b.Decode(a.Encode(serial, 5)); err != nil {
			rejected++
		}
	}
	assert.Greater(t, rejected, 490)
}

func TestSingleBitMutationFailsChecksum(t *testing.T) {
	c := testCodec()
	rng := rand.New(rand.NewSource(7))
	accepted, trials := 0, 0
	for i := 0; i < 2000; i++ {
		code := c.Encode(rng.Uint32(), uint(rng.Intn(1<<10)))
		raw, err := decodeBase32(code)
		require.NoError(t, err)
		for bit := 0; bit < 50; bit++ {
			mutated := encodeBase32(raw ^ (1 << bit))
			_, err := c.Decode(mutated)
			deterministic := bit < freshBitOffset || bit >= checksumBitOffset+5
			if deterministic {
				// 序列号位单次翻转改变的加权和小于 2^14，校验码高位翻转不影响异或选择，必然失败
				require.Error(t, err, "bit %d of %s", bit, code)
				continue
			}
			trials++
			if err == nil {
				accepted++
			}
		}
	}
	// 其余位（fresh 与校验码低 5 位）的误通过概率约为 2^-14
	assert.Less(t, accepted, trials/500)
}

func TestKeyScheduleIsDeterministic(t *testing.T) {
	a := NewKeySchedule("x", "p")
	b := NewKeySchedule("x", "p")
	assert.Equal(t, a.xor, b.xor)
	assert.Equal(t, a.weights, b.weights)
	for _, k := range a.xor {
		assert.Zero(t, k&^uint64(payloadMask))
	}
	for _, row := range a.weights {
		for _, w := range row {
			assert.GreaterOrEqual(t, w, uint64(19))
			assert.LessOrEqual(t, w, uint64(1699))
		}
	}
}

func TestAbsModHandlesMinInt32(t *testing.T) {
	assert.Equal(t, 8, absMod(math.MinInt32, 40))
	assert.Equal(t, 3, absMod(-3, 40))
}
