package mongo

import "testing"

func TestPairKey(t *testing.T) {
	t.Run("order insensitive", func(t *testing.T) {
		if pairKey("alice", "bob") != pairKey("bob", "alice") {
			t.Fatal("pair key must not depend on argument order")
		}
	})

	t.Run("distinct pairs distinct keys", func(t *testing.T) {
		if pairKey("alice", "bob") == pairKey("alice", "carol") {
			t.Fatal("different pairs collided")
		}
	})

	t.Run("stable form", func(t *testing.T) {
		if got := pairKey("bob", "alice"); got != "alice|bob" {
			t.Fatalf("pairKey = %q, want alice|bob", got)
		}
	})
}
