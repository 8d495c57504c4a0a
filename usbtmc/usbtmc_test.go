package usbtmc

import (
	"encoding/binary"
	"testing"
)

type fixedTagger byte

func (f fixedTagger) nextbTag() byte { return byte(f) }

func TestBTagGenSkipsZero(t *testing.T) {
	g := newBTagGen()
	for i := 0; i < 600; i++ {
		if tag := g.nextbTag(); tag == 0 {
			t.Fatalf("bTag 0 generated on call %d", i)
		}
	}
}

func TestInvbTag(t *testing.T) {
	if out := invbTag(0x01); out != 0xfe {
		t.Errorf("expected 0xfe got %#x", out)
	}
}

func TestBulkOutHeader(t *testing.T) {
	hdr := encBulkOutHeader(fixedTagger(7), 9)
	if hdr[0] != 0x01 || hdr[1] != 7 || hdr[2] != 0xf8 {
		t.Errorf("bad MsgID/bTag/inverse: %v", hdr[:3])
	}
	if size := binary.LittleEndian.Uint32(hdr[4:8]); size != 9 {
		t.Errorf("expected transfer size 9 got %d", size)
	}
	if hdr[8] != 0x01 {
		t.Errorf("expected EOM bit set, got %#x", hdr[8])
	}
}

func TestBulkInHeaderTerminator(t *testing.T) {
	term := byte('\n')
	hdr := encBulkInHeader(fixedTagger(3), 1500, &term)
	if hdr[0] != 0x02 || hdr[8] != 0x02 || hdr[9] != '\n' {
		t.Errorf("bad request header %v", hdr)
	}
	hdr = encBulkInHeader(fixedTagger(3), 1500, nil)
	if hdr[8] != 0 || hdr[9] != 0 {
		t.Errorf("expected termination char disabled, got %v", hdr[8:10])
	}
}

func TestDecBulkInHeader(t *testing.T) {
	hdr := []byte{0x02, 0x05, 0xfa, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	size, err := decBulkInHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 {
		t.Errorf("expected 3 got %d", size)
	}
	hdr[2] = 0x00
	if _, err = decBulkInHeader(hdr); err == nil {
		t.Error("expected mismatched bTag inverse to be rejected")
	}
	if _, err = decBulkInHeader(hdr[:4]); err == nil {
		t.Error("expected a short header to be rejected")
	}
}
