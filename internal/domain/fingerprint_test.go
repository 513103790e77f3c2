package domain

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFingerprint_Stability(t *testing.T) {
	tests := []struct {
		name string
		a    QueryAttributes
		b    QueryAttributes
	}{
		{
			name: "case and whitespace insensitive",
			a:    QueryAttributes{FirstName: " Jane ", LastName: "Doe", Zip: "10001"},
			b:    QueryAttributes{FirstName: "jane", LastName: "DOE", Zip: "10001"},
		},
		{
			name: "absent fields equal empty fields",
			a:    QueryAttributes{LastName: "Smith"},
			b:    QueryAttributes{FirstName: "", LastName: "  smith  ", City: ""},
		},
		{
			name: "all fields present",
			a: QueryAttributes{
				FirstName: "ALICE", LastName: "Johnson", Street: "123 Main St",
				City: "Appleton", State: "WI", Zip: "54911",
			},
			b: QueryAttributes{
				FirstName: "alice", LastName: "johnson", Street: "123 MAIN ST",
				City: " appleton ", State: "wi", Zip: "54911",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ComputeFingerprint(tt.a), ComputeFingerprint(tt.b))
		})
	}
}

func TestComputeFingerprint_Deterministic(t *testing.T) {
	attrs := QueryAttributes{FirstName: "Jane", LastName: "Doe", Zip: "10001"}
	first := ComputeFingerprint(attrs)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, ComputeFingerprint(attrs))
	}
	assert.Len(t, string(first), 64)
}

func TestComputeFingerprint_Sensitivity(t *testing.T) {
	// Materially different inputs must not collide across a large sample.
	rng := rand.New(rand.NewSource(1))
	seen := make(map[Fingerprint]QueryAttributes, 10000)
	for i := 0; i < 10000; i++ {
		attrs := QueryAttributes{
			FirstName: fmt.Sprintf("first-%d", rng.Intn(1000000)),
			LastName:  fmt.Sprintf("last-%d", i),
			Zip:       fmt.Sprintf("%05d", rng.Intn(100000)),
		}
		fp := ComputeFingerprint(attrs)
		if prev, ok := seen[fp]; ok {
			require.Equal(t, prev.Normalized(), attrs.Normalized(),
				"collision between distinct inputs: %+v and %+v", prev, attrs)
		}
		seen[fp] = attrs
	}
}

func TestComputeFingerprint_FieldsNotInterchangeable(t *testing.T) {
	a := QueryAttributes{FirstName: "jane", LastName: "doe"}
	b := QueryAttributes{FirstName: "doe", LastName: "jane"}
	assert.NotEqual(t, ComputeFingerprint(a), ComputeFingerprint(b))
}

func TestQueryAttributes_IsEmpty(t *testing.T) {
	assert.True(t, QueryAttributes{}.IsEmpty())
	assert.True(t, QueryAttributes{FirstName: "   "}.IsEmpty())
	assert.False(t, QueryAttributes{Zip: "10001"}.IsEmpty())
}
