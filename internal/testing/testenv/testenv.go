package testenv

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PAPYRUS_TEST_MODE") == "" {
			_ = os.Setenv("PAPYRUS_TEST_MODE", "1")
		}
	})
}
