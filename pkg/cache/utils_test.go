package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "drift:USDCOP:500", GenerateKeyWithParams("drift", "USDCOP", 500))
	assert.Equal(t, "regime", GenerateKeyWithParams("regime"))
}
