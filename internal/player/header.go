package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// Info is what the header subsystem learned while realizing a resource.
type Info struct {
	Format        string
	SampleRate    int
	Channels      int
	BitsPerSample int
	Duration      time.Duration
	Tracks        int
}

// HeaderSubsystem is a self-contained Subsystem that realizes a resource by
// validating its container header. Actual playback belongs to whatever
// player the caller hands the resource to.
type HeaderSubsystem struct {
	// Settle is the number of polls a player stays Realizing before the
	// header is checked.
	Settle int
}

// NewHeaderSubsystem returns a subsystem that settles on the first poll.
func NewHeaderSubsystem() *HeaderSubsystem { return &HeaderSubsystem{} }

// Open returns an unrealized player over a private copy of data.
func (h *HeaderSubsystem) Open(kind Kind, data []byte) (Player, error) {
	if len(data) == 0 {
		return nil, errors.New("empty resource")
	}
	return &HeaderPlayer{kind: kind, data: bytes.Clone(data), settle: h.Settle}, nil
}

// HeaderPlayer is the Player produced by HeaderSubsystem.
type HeaderPlayer struct {
	mu     sync.Mutex
	kind   Kind
	data   []byte
	settle int
	state  State
	info   Info
	// rejected is set once the header check fails; the next poll reports
	// the drop back to Unrealized.
	rejected bool
	closed   bool
}

// Realize starts realization.
func (p *HeaderPlayer) Realize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("player closed")
	}
	p.state = Realizing
	return nil
}

// State advances realization by one step and reports the result.
func (p *HeaderPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Realizing {
		return p.state
	}
	if p.rejected {
		p.state = Unrealized
		return p.state
	}
	if p.settle > 0 {
		p.settle--
		return p.state
	}
	info, ok := sniff(p.kind, p.data)
	if !ok {
		p.rejected = true
		return p.state
	}
	p.info = info
	p.state = Realized
	return p.state
}

// Info returns header details once the player is realized.
func (p *HeaderPlayer) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Bytes returns the resource content for handing to a real player.
func (p *HeaderPlayer) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Format names the detected container, or the requested kind before realization.
func (p *HeaderPlayer) Format() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info.Format != "" {
		return p.info.Format
	}
	switch p.kind {
	case KindSampled:
		return "sampled-audio"
	case KindSequenced:
		return "sequence"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Close releases the content.
func (p *HeaderPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.data = nil
	p.state = Unrealized
	return nil
}

func sniff(kind Kind, data []byte) (Info, bool) {
	switch kind {
	case KindSampled:
		return sniffSampled(data)
	case KindSequenced:
		return sniffSequence(data)
	case KindVideo:
		return sniffVideo(data)
	default:
		return Info{}, false
	}
}

func isRIFF(data []byte, form string) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == form
}

func sniffSampled(data []byte) (Info, bool) {
	switch {
	case isRIFF(data, "WAVE"):
		return parseWAVE(data)
	case bytes.HasPrefix(data, []byte("OggS")):
		return Info{Format: "ogg"}, true
	case bytes.HasPrefix(data, []byte("fLaC")):
		return Info{Format: "flac"}, true
	case bytes.HasPrefix(data, []byte("ID3")):
		return Info{Format: "mp3"}, true
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return Info{Format: "mp3"}, true
	case bytes.HasPrefix(data, []byte("Creative Voice File\x1a")):
		return Info{Format: "voc"}, true
	default:
		return Info{}, false
	}
}

// parseWAVE walks the RIFF chunks and requires a sane "fmt " chunk.
func parseWAVE(data []byte) (Info, bool) {
	info := Info{Format: "wav"}
	haveFmt := false
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || size > len(data)-body {
			// Truncated trailing chunk; keep what was parsed.
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Info{}, false
			}
			f := data[body : body+16]
			info.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(f[14:16]))
			if info.Channels == 0 || info.SampleRate == 0 {
				return Info{}, false
			}
			haveFmt = true
		case "data":
			if haveFmt && info.BitsPerSample > 0 {
				perSecond := info.SampleRate * info.Channels * info.BitsPerSample / 8
				if perSecond > 0 {
					info.Duration = time.Duration(float64(size) / float64(perSecond) * float64(time.Second))
				}
			}
		}
		off = body + size + size%2
	}
	return info, haveFmt
}

func sniffSequence(data []byte) (Info, bool) {
	if isRIFF(data, "RMID") {
		i := bytes.Index(data[12:], []byte("MThd"))
		if i < 0 {
			return Info{}, false
		}
		data = data[12+i:]
	}
	if len(data) < 14 || string(data[0:4]) != "MThd" {
		return Info{}, false
	}
	if binary.BigEndian.Uint32(data[4:8]) < 6 {
		return Info{}, false
	}
	format := binary.BigEndian.Uint16(data[8:10])
	tracks := int(binary.BigEndian.Uint16(data[10:12]))
	if format > 2 || tracks == 0 {
		return Info{}, false
	}
	return Info{Format: "midi", Tracks: tracks}, true
}

func sniffVideo(data []byte) (Info, bool) {
	switch {
	case isRIFF(data, "AVI "):
		return Info{Format: "avi"}, true
	case bytes.HasPrefix(data, []byte{0x00, 0x00, 0x01, 0xBA}), bytes.HasPrefix(data, []byte{0x00, 0x00, 0x01, 0xB3}):
		return Info{Format: "mpeg"}, true
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return Info{Format: "matroska"}, true
	case bytes.HasPrefix(data, []byte("BIK")), bytes.HasPrefix(data, []byte("KB2")):
		return Info{Format: "bink"}, true
	default:
		return Info{}, false
	}
}
