package memory

import (
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryStore_CreateMailbox(b *testing.B) {
	store := NewStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.CreateMailbox(newMailbox(fmt.Sprintf("bench%d@drift.mail", i), time.Hour))
	}
}

func BenchmarkMemoryStore_GetMailboxByAddress(b *testing.B) {
	store := NewStore()

	// Pre-populate with test data
	for i := 0; i < 1000; i++ {
		store.CreateMailbox(newMailbox(fmt.Sprintf("bench%d@drift.mail", i), time.Hour))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.GetMailboxByAddress(fmt.Sprintf("bench%d@drift.mail", i%1000))
	}
}

func BenchmarkMemoryStore_AppendMessage(b *testing.B) {
	store := NewStore()
	store.CreateMailbox(newMailbox("bench@drift.mail", time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.AppendMessage(newMessage("bench@drift.mail", "This is a test message body"))
	}
}

func BenchmarkMemoryStore_ConcurrentAccess(b *testing.B) {
	store := NewStore()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			address := fmt.Sprintf("bench%d@drift.mail", i)
			store.CreateMailbox(newMailbox(address, time.Hour))
			store.GetMailboxByAddress(address)
			i++
		}
	})
}
