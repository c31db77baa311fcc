package settings

import (
	"buttonboard-go/errcode"
)

// Page is one fixed-size erase/program unit, typically a flash sector.
// Write replaces the whole page.
type Page interface {
	Len() int
	Read(dst []byte) error
	Write(src []byte) error
}

// SlotStore alternates records between two pages so a power cut during
// programming can only destroy the slot being written, never the last good
// record. Each record is
//
//	[seq u16 LE][len u16 LE][payload][crc u16 LE]
//
// with the CRC covering seq, len and payload. On load the valid record with
// the newer sequence number wins.
type SlotStore struct {
	Slots [2]Page
}

const slotHeaderLen = 4
const slotTrailerLen = 2

type slotRecord struct {
	seq     uint16
	payload []byte
	ok      bool
}

func (s *SlotStore) Load() ([]byte, error) {
	a := s.readSlot(0)
	b := s.readSlot(1)
	switch {
	case !a.ok && !b.ok:
		return nil, nil
	case a.ok && !b.ok:
		return a.payload, nil
	case !a.ok && b.ok:
		return b.payload, nil
	}
	// Both valid: sequence numbers wrap, compare by signed distance.
	if int16(a.seq-b.seq) >= 0 {
		return a.payload, nil
	}
	return b.payload, nil
}

func (s *SlotStore) Save(raw []byte) error {
	a := s.readSlot(0)
	b := s.readSlot(1)

	// Pick the slot that does not hold the newest record.
	target, seq := 0, uint16(1)
	switch {
	case a.ok && (!b.ok || int16(a.seq-b.seq) >= 0):
		target, seq = 1, a.seq+1
	case b.ok:
		target, seq = 0, b.seq+1
	}

	page := s.Slots[target]
	need := slotHeaderLen + len(raw) + slotTrailerLen
	if need > page.Len() {
		return &errcode.E{C: errcode.StoreIO, Op: "settings.save", Msg: "payload exceeds page"}
	}

	buf := make([]byte, need)
	buf[0] = byte(seq)
	buf[1] = byte(seq >> 8)
	buf[2] = byte(len(raw))
	buf[3] = byte(len(raw) >> 8)
	copy(buf[slotHeaderLen:], raw)
	crc := crc16(buf[:slotHeaderLen+len(raw)])
	buf[need-2] = byte(crc)
	buf[need-1] = byte(crc >> 8)

	if err := page.Write(buf); err != nil {
		return &errcode.E{C: errcode.StoreIO, Op: "settings.save", Err: err}
	}
	return nil
}

func (s *SlotStore) readSlot(i int) slotRecord {
	page := s.Slots[i]
	buf := make([]byte, page.Len())
	if err := page.Read(buf); err != nil {
		return slotRecord{}
	}
	if len(buf) < slotHeaderLen+slotTrailerLen {
		return slotRecord{}
	}
	seq := uint16(buf[0]) | uint16(buf[1])<<8
	n := int(uint16(buf[2]) | uint16(buf[3])<<8)
	if slotHeaderLen+n+slotTrailerLen > len(buf) {
		return slotRecord{}
	}
	end := slotHeaderLen + n
	want := uint16(buf[end]) | uint16(buf[end+1])<<8
	if crc16(buf[:end]) != want {
		return slotRecord{}
	}
	return slotRecord{seq: seq, payload: buf[slotHeaderLen:end], ok: true}
}

// crc16 is the CCITT variant shared with small-MCU serial protocols.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc & 0xFF)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// MemPage is an in-memory Page for tests and the host simulator.
type MemPage struct {
	buf  []byte
	fail error
}

// NewMemPage creates a page of size bytes, initially erased to 0xFF.
func NewMemPage(size int) *MemPage {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &MemPage{buf: buf}
}

func (m *MemPage) Len() int { return len(m.buf) }

func (m *MemPage) Read(dst []byte) error {
	if m.fail != nil {
		return m.fail
	}
	copy(dst, m.buf)
	return nil
}

func (m *MemPage) Write(src []byte) error {
	if m.fail != nil {
		return m.fail
	}
	for i := range m.buf {
		m.buf[i] = 0xFF
	}
	copy(m.buf, src)
	return nil
}

// FailWith makes every later operation return err. Test hook.
func (m *MemPage) FailWith(err error) { m.fail = err }
