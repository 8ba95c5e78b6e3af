package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum_KnownVector(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Sum([]byte("abc")))
}

func TestSum_Deterministic(t *testing.T) {
	data := []byte("8461_2024_jun_p1_higher_qp.pdf contents")
	assert.Equal(t, Sum(data), Sum(data))
	assert.NotEqual(t, Sum(data), Sum(append(data, '!')))
	assert.Len(t, Sum(data), 64)
}

func TestSumString(t *testing.T) {
	assert.Equal(t, Sum([]byte("abc")), SumString("abc"))
}
