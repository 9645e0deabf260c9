package testutil

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateTestBucketName generates a valid, unique test bucket name.
func GenerateTestBucketName(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano()%1_000_000_000, rand.Int63n(100000))
}
