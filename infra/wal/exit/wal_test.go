package exit

import (
	"bytes"
	"testing"
)

func TestOutboxLifecycle(t *testing.T) {
	ob, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ob.Close()

	payload := []byte(`{"type":"trade","price":100}`)
	if err := ob.Put(1, payload); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := ob.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateNew {
		t.Fatalf("state = %v, want NEW", rec.State)
	}
	if !bytes.Equal(rec.Payload, payload) {
		t.Fatalf("payload = %q, want %q", rec.Payload, payload)
	}

	if err := ob.UpdateState(1, StateSent, 1); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	rec, _ = ob.Get(1)
	if rec.State != StateSent || rec.Retries != 1 {
		t.Fatalf("after sent: state=%v retries=%d", rec.State, rec.Retries)
	}
	if rec.LastAttempt == 0 {
		t.Fatal("last attempt not stamped")
	}
	if !bytes.Equal(rec.Payload, payload) {
		t.Fatal("payload lost across state transition")
	}

	if err := ob.UpdateState(1, StateAcked, 1); err != nil {
		t.Fatalf("mark acked: %v", err)
	}
	if err := ob.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ob.Get(1); err == nil {
		t.Fatal("record still present after delete")
	}
}

func TestScanByStateOrdersBySeq(t *testing.T) {
	ob, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ob.Close()

	for _, seq := range []uint64{30, 10, 20} {
		if err := ob.Put(seq, []byte{byte(seq)}); err != nil {
			t.Fatalf("put %d: %v", seq, err)
		}
	}
	if err := ob.UpdateState(20, StateAcked, 0); err != nil {
		t.Fatalf("ack 20: %v", err)
	}

	var seen []uint64
	err = ob.ScanByState(StateNew, func(seq uint64, rec EventRecord) error {
		seen = append(seen, seq)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Fatalf("scan order = %v, want [10 30]", seen)
	}
}

func TestOutboxSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	ob, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ob.Put(5, []byte("durable")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ob.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ob2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ob2.Close()

	rec, err := ob2.Get(5)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(rec.Payload) != "durable" {
		t.Fatalf("payload = %q after reopen", rec.Payload)
	}
}
