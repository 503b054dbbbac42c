package wadray

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestRayMulRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name string
		a, b *big.Int
		want *big.Int
	}{
		{"identity", RAY, RAY, RAY},
		{"half rounds up", big.NewInt(1), HalfRAY, big.NewInt(1)},
		{"below half rounds down", big.NewInt(1), new(big.Int).Sub(HalfRAY, big.NewInt(1)), big.NewInt(0)},
		{"one and a half", big.NewInt(3), HalfRAY, big.NewInt(2)},
		{"zero", big.NewInt(0), RAY, big.NewInt(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RayMul(tc.a, tc.b)
			if got.Cmp(tc.want) != 0 {
				t.Fatalf("unexpected rayMul: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestRayDivRoundsHalfUp(t *testing.T) {
	if got := RayDiv(big.NewInt(1), big.NewInt(2)); got.Cmp(HalfRAY) != 0 {
		t.Fatalf("unexpected 1/2: got %s want %s", got, HalfRAY)
	}
	third := MustBig("333333333333333333333333333")
	if got := RayDiv(big.NewInt(1), big.NewInt(3)); got.Cmp(third) != 0 {
		t.Fatalf("unexpected 1/3: got %s want %s", got, third)
	}
	twoThirds := MustBig("666666666666666666666666667")
	if got := RayDiv(big.NewInt(2), big.NewInt(3)); got.Cmp(twoThirds) != 0 {
		t.Fatalf("unexpected 2/3: got %s want %s", got, twoThirds)
	}
}

func TestWadMulAndDiv(t *testing.T) {
	oneAndHalf := MustBig("1500000000000000000")
	if got := WadMul(oneAndHalf, big.NewInt(2)); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("unexpected wadMul: got %s", got)
	}
	if got := WadDiv(big.NewInt(3), big.NewInt(2)); got.Cmp(oneAndHalf) != 0 {
		t.Fatalf("unexpected wadDiv: got %s want %s", got, oneAndHalf)
	}
	if got := WadMul(big.NewInt(1), HalfWAD); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected half wad to round up, got %s", got)
	}
}

func TestPercentMath(t *testing.T) {
	if got := PercentMul(big.NewInt(10_001), big.NewInt(5_000)); got.Cmp(big.NewInt(5_001)) != 0 {
		t.Fatalf("unexpected percentMul: got %s", got)
	}
	if got := PercentMul(big.NewInt(1_000), PercentageFactor); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("percentMul by 100%% should be identity, got %s", got)
	}
	if got := PercentDiv(big.NewInt(1), big.NewInt(3)); got.Cmp(big.NewInt(3_333)) != 0 {
		t.Fatalf("unexpected percentDiv: got %s", got)
	}
}

func TestRayToWadRounding(t *testing.T) {
	if got := RayToWad(HalfRayWadRatio); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected half ratio to round up, got %s", got)
	}
	below := new(big.Int).Sub(HalfRayWadRatio, big.NewInt(1))
	if got := RayToWad(below); got.Sign() != 0 {
		t.Fatalf("expected value below half ratio to round down, got %s", got)
	}
	if got := WadToRay(big.NewInt(7)); got.Cmp(big.NewInt(7_000_000_000)) != 0 {
		t.Fatalf("unexpected wadToRay: got %s", got)
	}
}

func TestWadRayRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(999_999_999),
		new(big.Int).Set(WAD),
		MustBig("123456789012345678901234567890"),
		new(big.Int).Set(MaxUint256),
	}
	for i := int64(2); i < 2_000; i += 37 {
		values = append(values, big.NewInt(i*i*i))
	}
	for _, v := range values {
		if got := RayToWad(WadToRay(v)); got.Cmp(v) != 0 {
			t.Fatalf("round trip drifted: got %s want %s", got, v)
		}
	}
}

func TestDivisionByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected rayDiv by zero to panic")
		}
	}()
	RayDiv(big.NewInt(1), big.NewInt(0))
}

func TestOperandsAreNotMutated(t *testing.T) {
	a := big.NewInt(42)
	b := new(big.Int).Set(RAY)
	RayMul(a, b)
	RayDiv(a, b)
	PercentMul(a, big.NewInt(100))
	if a.Cmp(big.NewInt(42)) != 0 || b.Cmp(RAY) != 0 {
		t.Fatalf("operands mutated: a=%s b=%s", a, b)
	}
}

func TestFormatAndParseDecimal(t *testing.T) {
	twoPercent := MustBig("20000000000000000000000000")
	if got := Format(twoPercent, RayDecimals); got != "0.02" {
		t.Fatalf("unexpected format: got %q", got)
	}
	parsed, err := ParseDecimal("0.04", RayDecimals)
	if err != nil {
		t.Fatalf("parse decimal: %v", err)
	}
	if want := MustBig("40000000000000000000000000"); parsed.Cmp(want) != 0 {
		t.Fatalf("unexpected parse: got %s want %s", parsed, want)
	}
	if _, err := ParseDecimal("0.5", 0); err == nil {
		t.Fatalf("expected precision error")
	}
	if _, err := ParseDecimal("abc", WadDecimals); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseAmountSentinel(t *testing.T) {
	for _, raw := range []string{"max", "ALL", "-1"} {
		v, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !IsMax(v) {
			t.Fatalf("expected %q to select the sentinel", raw)
		}
	}
	v, err := ParseAmount("1000")
	if err != nil || v.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected amount: %v %v", v, err)
	}
	if _, err := ParseAmount("1.5"); err == nil {
		t.Fatalf("expected fractional amount to be rejected")
	}
}

func TestUint256Boundary(t *testing.T) {
	word, err := ToUint256(MaxUint256)
	if err != nil {
		t.Fatalf("max should fit: %v", err)
	}
	if FromUint256(word).Cmp(MaxUint256) != 0 {
		t.Fatalf("unexpected round trip through uint256")
	}
	if _, err := ToUint256(new(big.Int).Add(MaxUint256, big.NewInt(1))); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := ToUint256(big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative error")
	}
	if got := FromUint256(uint256.NewInt(5)); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("unexpected conversion: %s", got)
	}
}

func TestParseWordRejectsSentinels(t *testing.T) {
	for _, raw := range []string{"max", "all", "-1", "1.5", "0x10"} {
		if _, err := ParseWord(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
	if _, err := ParseWord(new(big.Int).Add(MaxUint256, big.NewInt(1)).String()); err == nil {
		t.Fatalf("expected overflow error")
	}
	v, err := ParseWord(MaxUint256.String())
	if err != nil || !IsMax(v) {
		t.Fatalf("unexpected max word: %v %v", v, err)
	}
	v, err = ParseWord(" 1000 ")
	if err != nil || v.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected word: %v %v", v, err)
	}
	v, err = ParseWord("")
	if err != nil || v.Sign() != 0 {
		t.Fatalf("expected empty word to be zero: %v %v", v, err)
	}
}
