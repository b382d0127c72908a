package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

const (
	xorTableSize    = 32
	weightRows      = 16
	weightRowLength = 10
)

// largePrimes XOR 密钥候选表
var largePrimes = [...]uint64{
	45139281907, 61261925523, 58169127203, 27031786219,
	64169927199, 46169126943, 32731286209, 52082227349,
	59169127063, 36169126987, 52082200939, 61261925739,
	32731286563, 27031786427, 56169127077, 34111865001,
	52082216763, 61261925663, 56169127113, 45139282119,
	32731286479, 64169927233, 41390251661, 59169127121,
	64169927321, 55139282179, 34111864881, 46169127031,
	58169127221, 61261925523, 36169126943, 64169927363,
	72169927483, 48139282211, 39111865099, 51169127177,
	67169927511, 44139282307, 29731286677, 56082227429,
}

// smallPrimes 校验码加权候选表
var smallPrimes = [...]uint64{
	19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
	101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199,
	211, 223, 227, 229, 233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283, 293,
	307, 311, 313, 317, 331, 337, 347, 349, 353, 359, 367, 373, 379, 383, 389, 397,
	401, 409, 419, 421, 431, 433, 439, 443, 449, 457, 461, 463, 467, 479, 487, 491, 499,
	503, 509, 521, 523, 541, 547, 557, 563, 569, 571, 577, 587, 593, 599,
	601, 607, 613, 617, 619, 631, 641, 643, 647, 653, 659, 661, 673, 677, 683, 691,
	701, 709, 719, 727, 733, 739, 743, 751, 757, 761, 769, 773, 787, 797,
	809, 811, 821, 823, 827, 829, 839, 853, 857, 859, 863, 877, 881, 883, 887,
	907, 911, 919, 929, 937, 941, 947, 953, 967, 971, 977, 983, 991, 997,
	1009, 1013, 1019, 1021, 1031, 1033, 1039, 1049, 1051, 1061, 1063, 1069, 1087, 1091, 1093, 1097,
	1103, 1109, 1117, 1123, 1129, 1151, 1153, 1163, 1171, 1181, 1187, 1193,
	1201, 1213, 1217, 1223, 1229, 1231, 1237, 1249, 1259, 1277, 1279, 1283, 1289, 1291, 1297,
	1301, 1303, 1307, 1319, 1321, 1327, 1361, 1367, 1373, 1381, 1399,
	1409, 1423, 1427, 1429, 1433, 1439, 1447, 1451, 1453, 1459, 1471, 1481, 1483, 1487, 1489, 1493, 1499,
	1511, 1523, 1531, 1543, 1549, 1553, 1559, 1567, 1571, 1579, 1583, 1597,
	1601, 1607, 1609, 1613, 1619, 1621, 1627, 1637, 1657, 1663, 1667, 1669, 1693, 1697, 1699,
}

// KeySchedule 由两个密钥种子展开得到的码表，构造后只读，可并发使用
type KeySchedule struct {
	xor     [xorTableSize]uint64
	weights [weightRows][weightRowLength]uint64
}

// NewKeySchedule 基于 SHA-256 展开 XOR 表与加权表
func NewKeySchedule(xorSecret, primeSecret string) *KeySchedule {
	ks := &KeySchedule{}
	for i := 0; i < xorTableSize; i++ {
		sum := sha256.Sum256([]byte(xorSecret + ":" + strconv.Itoa(i)))
		idx := absMod(int64(int32(binary.BigEndian.Uint32(sum[:4]))), len(largePrimes))
		// 混淆只作用于 36 位载荷，高位必须清零，否则会覆盖校验码
		ks.xor[i] = largePrimes[idx] & payloadMask
	}
	for row := 0; row < weightRows; row++ {
		sum := sha256.Sum256([]byte(primeSecret + ":row:" + strconv.Itoa(row)))
		for col := 0; col < weightRowLength; col++ {
			b := int8(sum[(row*weightRowLength+col)%len(sum)])
			ks.weights[row][col] = smallPrimes[absMod(int64(b), len(smallPrimes))]
		}
	}
	return ks
}

// absMod 取绝对值后求余，int64 承载避免 int32 最小值取反溢出
func absMod(v int64, n int) int {
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}
