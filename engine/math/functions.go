package math

import (
	m "math"

	"golang.org/x/exp/rand"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief A huge number that should be larger than any valid number used. */
	K_INFINITY float32 = 1e30
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func Sin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func Sqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

// NewRandom returns a generator seeded with seed. A zero seed is replaced by 1 so
// runs stay reproducible.
func NewRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// RandomInRange returns a float in [min, max).
func RandomInRange(r *rand.Rand, min, max float32) float32 {
	return min + r.Float32()*(max-min)
}

func FloatEquals(a, b float32) bool {
	return m.Abs(float64(a-b)) < float64(K_FLOAT_EPSILON)
}
