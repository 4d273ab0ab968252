package kafka

import "testing"

func TestProducerConfig(t *testing.T) {
	cfg := producerConfig(nil)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("producer config invalid: %v", err)
	}
	if !cfg.Producer.Idempotent {
		t.Fatal("producer must be idempotent")
	}
	if cfg.Net.MaxOpenRequests != 1 {
		t.Fatalf("MaxOpenRequests = %d, idempotence requires 1", cfg.Net.MaxOpenRequests)
	}
	if !cfg.Producer.Return.Successes {
		t.Fatal("sync producer requires Return.Successes")
	}
}
