package uos

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// MaxFrames is the largest frame count a multipart request may announce.
const MaxFrames = 50

// FrameHeaderLength is the multipart header: marker(1) + count(2) + index(2).
const FrameHeaderLength = 5

const (
	binaryModeIndicator = "4"
	frameTerminator     = "0"
	fillerByte          = "ec"
	fillerPair          = "ec11"
)

// Frame is one decoded QR frame of a (possibly single-part) request.
type Frame struct {
	Count   uint16
	Index   uint16
	Payload []byte
}

// DecodeFrame turns the raw hex content of one QR code (as reported by the
// camera in binary mode) into bytes. It strips the QR filler padding, checks
// the binary-mode indicator and terminator nibbles, and removes the 8 or 16
// bit length prefix.
func DecodeFrame(raw string) ([]byte, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	for strings.HasSuffix(s, fillerByte) {
		s = strings.TrimSuffix(s, fillerByte)
	}
	for strings.HasSuffix(s, fillerPair) {
		s = strings.TrimSuffix(s, fillerPair)
	}

	if !strings.HasPrefix(s, binaryModeIndicator) || !strings.HasSuffix(s, frameTerminator) || len(s) < 2 {
		return nil, fmt.Errorf("%w: missing binary mode indicator or terminator", ErrMalformedFrame)
	}
	s = s[1 : len(s)-1]

	var body string
	switch {
	case len(s) >= 2 && lengthPrefix(s[:2])*2+2 == len(s):
		body = s[2:]
	case len(s) >= 4 && lengthPrefix(s[:4])*2+4 == len(s):
		body = s[4:]
	default:
		return nil, fmt.Errorf("%w: length prefix does not match frame size", ErrMalformedFrame)
	}

	b, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return b, nil
}

// lengthPrefix parses a hex length field. Unparsable input reads as zero.
func lengthPrefix(s string) int {
	n, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return int(n)
}

// ParseFrame splits the multipart header off decoded frame bytes.
func ParseFrame(b []byte) (Frame, error) {
	r := newReader(b)
	if _, err := r.byte(); err != nil {
		return Frame{}, fmt.Errorf("%w: frame header: %v", ErrMalformedFrame, err)
	}
	count, err := r.uint16()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame count: %v", ErrMalformedFrame, err)
	}
	if count > MaxFrames {
		return Frame{}, fmt.Errorf("%w: %d frames, limit is %d", ErrTooManyFrames, count, MaxFrames)
	}
	index, err := r.uint16()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame index: %v", ErrMalformedFrame, err)
	}
	return Frame{Count: count, Index: index, Payload: r.rest()}, nil
}

// EncodeFrameNumber renders a frame count or index as big-endian u16.
func EncodeFrameNumber(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// EncodeFrames splits payload into QR frames of at most chunkSize payload
// bytes each and renders them in the raw hex form DecodeFrame accepts.
func EncodeFrames(payload []byte, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	count := (len(payload) + chunkSize - 1) / chunkSize
	if count == 0 {
		count = 1
	}
	if count > MaxFrames {
		return nil, fmt.Errorf("%w: %d frames, limit is %d", ErrTooManyFrames, count, MaxFrames)
	}

	frames := make([]string, 0, count)
	for i := 0; i < count; i++ {
		end := (i + 1) * chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[i*chunkSize : end]

		data := make([]byte, 0, FrameHeaderLength+len(chunk))
		data = append(data, 0x00)
		data = append(data, EncodeFrameNumber(uint16(count))...)
		data = append(data, EncodeFrameNumber(uint16(i))...)
		data = append(data, chunk...)
		frames = append(frames, encodeQRBinary(data))
	}
	return frames, nil
}

// encodeQRBinary renders bytes as a binary-mode QR segment followed by
// filler padding.
func encodeQRBinary(data []byte) string {
	var sb strings.Builder
	sb.WriteString(binaryModeIndicator)
	if len(data) < 0x100 {
		fmt.Fprintf(&sb, "%02x", len(data))
	} else {
		fmt.Fprintf(&sb, "%04x", len(data))
	}
	sb.WriteString(hex.EncodeToString(data))
	sb.WriteString(frameTerminator)
	sb.WriteString(fillerPair)
	sb.WriteString(fillerByte)
	return sb.String()
}

// State is the lifecycle of an Assembler.
type State uint8

const (
	StateEmpty State = iota
	StateAccumulating
	StateComplete
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateComplete:
		return "complete"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Assembler collects the frames of one multipart request. It is owned by a
// single scanning session and is not safe for concurrent use.
//
// Any error moves the assembler to StateRejected; it must be Reset before it
// accepts frames again. A completed assembler must also be Reset.
type Assembler struct {
	expected uint16
	frames   map[uint16][]byte
	state    State
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{frames: make(map[uint16][]byte)}
}

// Push decodes one raw QR frame. It returns the reassembled payload and true
// once every frame has been seen, or nil and false while frames are missing.
func (a *Assembler) Push(raw string) ([]byte, bool, error) {
	if err := a.ready(); err != nil {
		return nil, false, err
	}
	b, err := DecodeFrame(raw)
	if err != nil {
		return nil, false, a.reject(err)
	}
	f, err := ParseFrame(b)
	if err != nil {
		return nil, false, a.reject(err)
	}
	return a.PushFrame(f)
}

// PushFrame adds an already parsed frame.
func (a *Assembler) PushFrame(f Frame) ([]byte, bool, error) {
	if err := a.ready(); err != nil {
		return nil, false, err
	}
	if f.Count > MaxFrames {
		return nil, false, a.reject(fmt.Errorf("%w: %d frames, limit is %d", ErrTooManyFrames, f.Count, MaxFrames))
	}

	if f.Count <= 1 {
		if a.state == StateAccumulating {
			return nil, false, a.reject(fmt.Errorf("%w: single frame while expecting %d", ErrMalformedFrame, a.expected))
		}
		a.state = StateComplete
		return f.Payload, true, nil
	}

	if f.Index >= f.Count {
		return nil, false, a.reject(fmt.Errorf("%w: frame index %d out of range for %d frames", ErrMalformedFrame, f.Index, f.Count))
	}
	if a.state == StateAccumulating && f.Count != a.expected {
		return nil, false, a.reject(fmt.Errorf("%w: frame count changed from %d to %d", ErrMalformedFrame, a.expected, f.Count))
	}

	a.expected = f.Count
	a.state = StateAccumulating
	a.frames[f.Index] = f.Payload

	if len(a.frames) < int(a.expected) {
		return nil, false, nil
	}

	var out []byte
	for i := uint16(0); i < a.expected; i++ {
		out = append(out, a.frames[i]...)
	}
	a.state = StateComplete
	return out, true, nil
}

// Reset discards all collected frames.
func (a *Assembler) Reset() {
	a.expected = 0
	a.frames = make(map[uint16][]byte)
	a.state = StateEmpty
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return a.state
}

// Progress returns the number of distinct frames received and the number
// expected. Expected is zero before the first multipart frame.
func (a *Assembler) Progress() (received, expected int) {
	return len(a.frames), int(a.expected)
}

// Missing lists the frame indices not yet received.
func (a *Assembler) Missing() []uint16 {
	var missing []uint16
	for i := uint16(0); i < a.expected; i++ {
		if _, ok := a.frames[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

func (a *Assembler) ready() error {
	if a.frames == nil {
		a.frames = make(map[uint16][]byte)
	}
	switch a.state {
	case StateRejected:
		return ErrAssemblerRejected
	case StateComplete:
		return ErrAssemblerComplete
	}
	return nil
}

func (a *Assembler) reject(err error) error {
	a.state = StateRejected
	return err
}
