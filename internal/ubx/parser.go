package ubx

const (
	sync1 = 0xB5
	sync2 = 0x62

	classNav = 0x01
	idNavPVT = 0x07

	// Header is sync(2) + class(1) + id(1) + length(2); checksum trails.
	headerLen   = 6
	checksumLen = 2

	bufferCap = 256
	// When the buffer grows past this with nothing decodable, assume the
	// stream is corrupted and start over.
	discardThreshold = 200
)

// Parser extracts NAV-PVT records from a continuous, lossy UBX byte stream.
//
// Feed it receiver bytes as they arrive, in whatever chunk sizes the
// transport produces. The parser keeps a small rolling buffer; input that
// would overflow it is truncated rather than rejected. It is not safe for
// concurrent use.
type Parser struct {
	buf [bufferCap]byte
	n   int
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Buffered returns the number of undecoded bytes currently held.
func (p *Parser) Buffered() int { return p.n }

// Feed appends data to the rolling buffer and attempts to decode one frame.
//
// It returns at most one PositionFix per call even if several complete
// frames are buffered; the remainder is consumed on subsequent calls (which
// may be made with empty input). Checksum mismatches resynchronize one byte
// at a time and are never surfaced as errors.
func (p *Parser) Feed(data []byte) (PositionFix, bool) {
	free := bufferCap - p.n
	if len(data) > free {
		data = data[:free]
	}
	copy(p.buf[p.n:], data)
	p.n += len(data)

	for i := 0; i+headerLen+checksumLen <= p.n; i++ {
		if p.buf[i] != sync1 || p.buf[i+1] != sync2 {
			continue
		}

		msgClass := p.buf[i+2]
		msgID := p.buf[i+3]
		payloadLen := int(p.buf[i+4]) | int(p.buf[i+5])<<8

		total := headerLen + payloadLen + checksumLen
		if i+total > p.n {
			// Incomplete frame; wait for more data.
			break
		}

		ckA, ckB := Checksum(p.buf[i+2 : i+headerLen+payloadLen])
		if ckA != p.buf[i+headerLen+payloadLen] || ckB != p.buf[i+headerLen+payloadLen+1] {
			// The assumed framing is almost certainly wrong; skip a single
			// byte and rescan rather than trusting the bogus length.
			continue
		}

		if msgClass == classNav && msgID == idNavPVT && payloadLen == pvtPayloadLen {
			fix := decodePVT(p.buf[i+headerLen : i+headerLen+payloadLen])
			p.consume(i + total)
			return fix, true
		}

		// Valid frame of some other type; drop it and rescan from the
		// front. Quadratic in pathological input, but the buffer cap keeps
		// that bounded and it matches receiver behavior in the field.
		p.consume(i + total)
		i = -1
	}

	if p.n > discardThreshold {
		// Unparseable stream; accepted data loss, not an error.
		p.n = 0
	}

	var zero PositionFix
	return zero, false
}

// consume drops the first n buffered bytes and shifts the remainder left.
func (p *Parser) consume(n int) {
	if n >= p.n {
		p.n = 0
		return
	}
	copy(p.buf[:], p.buf[n:p.n])
	p.n -= n
}
