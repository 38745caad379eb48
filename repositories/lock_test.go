package repositories

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice|bob")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
	req.Zero(locks.Len())
}

func TestKeyedMutex_Distinct_Keys_Do_Not_Block(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	unlockFirst := locks.Lock("alice|bob")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("clara|dave")
		unlock()
		close(done)
	}()
	<-done

	req.Equal(1, locks.Len())
	unlockFirst()
	req.Zero(locks.Len())
}
