package pools

import "testing"

func TestBytePool_FixedSize(t *testing.T) {
	bp := NewBytePool(1024)

	buf := bp.Get()
	if len(*buf) != 1024 || cap(*buf) != 1024 {
		t.Fatalf("Expected 1024/1024 buffer, got %d/%d", len(*buf), cap(*buf))
	}

	*buf = (*buf)[:10]
	bp.Put(buf)

	again := bp.Get()
	if len(*again) != 1024 {
		t.Errorf("Expected recycled buffer restored to 1024, got %d", len(*again))
	}

	stats := bp.Stats()
	if stats.TotalGets != 2 || stats.Size != 1024 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestBytePool_DefaultSize(t *testing.T) {
	if got := NewBytePool(0).Size(); got != DefaultBufferSize {
		t.Errorf("Expected default size %d, got %d", DefaultBufferSize, got)
	}
}

func TestBytePool_RejectsForeignBuffers(t *testing.T) {
	bp := NewBytePool(64)

	foreign := make([]byte, 128)
	bp.Put(&foreign)
	bp.Put(nil)

	if puts := bp.Stats().TotalPuts; puts != 0 {
		t.Errorf("Expected foreign buffers to be dropped, got %d puts", puts)
	}
}
