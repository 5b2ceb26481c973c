package frames

import (
	"hash/crc32"
	"sync"
	"sync/atomic"
)

// Differ detects unchanged frames by CRC32 of the visible pixels.
type Differ struct {
	mu          sync.Mutex
	lastHash    uint32
	hasLastHash bool
	skipped     atomic.Uint64
	total       atomic.Uint64
}

func NewDiffer() *Differ {
	return &Differ{}
}

// HasChanged hashes the first width*4 bytes of each pitch-spaced row and
// reports whether they differ from the previous call. The first frame
// always counts as changed. Row padding is ignored.
func (d *Differ) HasChanged(bgra []byte, width, height, pitch int) bool {
	d.total.Add(1)
	return d.compare(hashRows(bgra, width, height, pitch))
}

// FrameChanged checks the accumulated-frames hint first and only hashes
// frames that carry a desktop update.
func (d *Differ) FrameChanged(bgra []byte, width, height, pitch int, accumulatedFrames uint32) bool {
	if !d.HasChangedHint(accumulatedFrames) {
		return false
	}
	return d.compare(hashRows(bgra, width, height, pitch))
}

func (d *Differ) compare(h uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasLastHash && h == d.lastHash {
		d.skipped.Add(1)
		return false
	}
	d.lastHash = h
	d.hasLastHash = true
	return true
}

// HasChangedHint uses the accumulated-frames count reported with a frame
// instead of hashing. Zero means only the pointer moved.
func (d *Differ) HasChangedHint(accumulatedFrames uint32) bool {
	d.total.Add(1)
	if accumulatedFrames == 0 {
		d.skipped.Add(1)
		return false
	}
	return true
}

// Reset forgets the last hash, e.g. after the session is reconstructed.
func (d *Differ) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasLastHash = false
}

// Stats returns (total frames checked, frames skipped).
func (d *Differ) Stats() (total, skipped uint64) {
	return d.total.Load(), d.skipped.Load()
}

func hashRows(bgra []byte, width, height, pitch int) uint32 {
	rowBytes := width * 4
	if pitch == rowBytes || rowBytes <= 0 {
		return crc32.ChecksumIEEE(bgra)
	}
	var h uint32
	for y := 0; y < height; y++ {
		start := y * pitch
		end := start + rowBytes
		if end > len(bgra) {
			break
		}
		h = crc32.Update(h, crc32.IEEETable, bgra[start:end])
	}
	return h
}
