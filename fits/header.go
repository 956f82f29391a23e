package fits

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/elliotchance/orderedmap/v3"
)

// HeaderType is the structural kind of an HDU.
type HeaderType int

const (
	TypePrimary HeaderType = iota
	TypeImage
	TypeASCIITable
	TypeBinaryTable
)

func (t HeaderType) String() string {
	switch t {
	case TypePrimary:
		return "Primary"
	case TypeImage:
		return "Image"
	case TypeASCIITable:
		return "ASCII Table"
	case TypeBinaryTable:
		return "Binary Table"
	}
	return fmt.Sprintf("HeaderType(%d)", int(t))
}

// Card is one 80-character keyword record.
type Card struct {
	Keyword string
	Value   string
	Comment string
	// HasValue is set when the record carries the "= " value indicator.
	// Commentary records keep their text in Comment.
	HasValue bool
}

// KeywordValue is a keyword and its value, as returned by Header.Keywords.
type KeywordValue struct {
	Keyword string
	Value   string
}

// Header holds the header blocks of one HDU and, once initialized, the
// parsed keyword dictionary.
//
// When a keyword appears more than once the last record wins and the
// keyword takes the position of that last record in Keywords.
type Header struct {
	blocks      []Block
	cards       []Card
	keywords    *orderedmap.OrderedMap[string, Card]
	headerType  HeaderType
	initialized bool
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{keywords: orderedmap.NewOrderedMap[string, Card]()}
}

// Append adds a raw header block. Blocks appended after Initialize are not
// parsed.
func (h *Header) Append(b Block) {
	h.blocks = append(h.blocks, b)
}

// IsEmpty reports whether no header block has been appended yet.
func (h *Header) IsEmpty() bool {
	return len(h.blocks) == 0
}

// Len is the number of header blocks.
func (h *Header) Len() int {
	return len(h.blocks)
}

// Blocks returns the raw header blocks.
func (h *Header) Blocks() []Block {
	return h.blocks
}

// Initialize parses every card and classifies the header using the
// standard string mode.
func (h *Header) Initialize() error {
	return h.InitializeWith(StringStandard)
}

// InitializeWith parses every card, cleaning quoted strings according to
// mode, and classifies the header. It may only be called once.
func (h *Header) InitializeWith(mode StringMode) error {
	if h.initialized {
		return ErrAlreadyInitialized
	}
	if h.keywords == nil {
		h.keywords = orderedmap.NewOrderedMap[string, Card]()
	}

parse:
	for i := range h.blocks {
		for j := 0; j < CardsPerBlock; j++ {
			card := ParseCard(h.blocks[i][j*CardSize:(j+1)*CardSize], mode)
			if card.Keyword == "END" && !card.HasValue {
				break parse
			}
			h.cards = append(h.cards, card)
			if card.Keyword == "" {
				continue
			}
			h.keywords.Delete(card.Keyword)
			h.keywords.Set(card.Keyword, card)
		}
	}

	t, err := h.classify()
	if err != nil {
		return err
	}
	h.headerType = t
	h.initialized = true
	return nil
}

func (h *Header) classify() (HeaderType, error) {
	if _, ok := h.keywords.Get("SIMPLE"); ok {
		return TypePrimary, nil
	}
	xt, ok := h.keywords.Get("XTENSION")
	if !ok {
		return 0, ErrUnclassified
	}
	switch strings.TrimSpace(xt.Value) {
	case "IMAGE":
		return TypeImage, nil
	case "BINTABLE":
		return TypeBinaryTable, nil
	case "TABLE":
		return TypeASCIITable, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownExtension, xt.Value)
}

// Initialized reports whether Initialize has succeeded.
func (h *Header) Initialized() bool {
	return h.initialized
}

// Type returns the structural kind of the header.
func (h *Header) Type() (HeaderType, error) {
	if !h.initialized {
		return 0, ErrNotInitialized
	}
	return h.headerType, nil
}

// Lookup returns the last card recorded for keyword.
func (h *Header) Lookup(keyword string) (Card, bool) {
	if h.keywords == nil {
		return Card{}, false
	}
	return h.keywords.Get(keyword)
}

// Keyword returns the value of keyword. The boolean is false when the
// keyword is absent, which is distinct from a present but empty value.
func (h *Header) Keyword(keyword string) (string, bool) {
	c, ok := h.Lookup(keyword)
	return c.Value, ok
}

// String returns the value of keyword or a *KeywordError wrapping
// ErrKeywordNotFound.
func (h *Header) String(keyword string) (string, error) {
	v, ok := h.Keyword(keyword)
	if !ok {
		return "", &KeywordError{Keyword: keyword, Err: ErrKeywordNotFound}
	}
	return v, nil
}

// Int parses keyword as a decimal integer.
func (h *Header) Int(keyword string) (int, error) {
	v, err := h.String(keyword)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &KeywordError{Keyword: keyword, Value: v, Err: ErrInvalidKeyword}
	}
	return n, nil
}

// IntOr parses keyword as an integer, returning def when it is absent.
func (h *Header) IntOr(keyword string, def int) (int, error) {
	if _, ok := h.Keyword(keyword); !ok {
		return def, nil
	}
	return h.Int(keyword)
}

// Float parses keyword as a real number. Fortran D exponents are accepted.
func (h *Header) Float(keyword string) (float64, error) {
	v, err := h.String(keyword)
	if err != nil {
		return 0, err
	}
	f, err := parseReal(v, 64)
	if err != nil {
		return 0, &KeywordError{Keyword: keyword, Value: v, Err: ErrInvalidKeyword}
	}
	return f, nil
}

// FloatOr parses keyword as a real number, returning def when it is absent.
func (h *Header) FloatOr(keyword string, def float64) (float64, error) {
	if _, ok := h.Keyword(keyword); !ok {
		return def, nil
	}
	return h.Float(keyword)
}

// Bool parses a logical keyword (T or F).
func (h *Header) Bool(keyword string) (bool, error) {
	v, err := h.String(keyword)
	if err != nil {
		return false, err
	}
	switch v {
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	return false, &KeywordError{Keyword: keyword, Value: v, Err: ErrInvalidKeyword}
}

// Keywords lists keyword/value pairs in header order.
func (h *Header) Keywords() []KeywordValue {
	if h.keywords == nil {
		return nil
	}
	out := make([]KeywordValue, 0, h.keywords.Len())
	for k, c := range h.keywords.AllFromFront() {
		out = append(out, KeywordValue{Keyword: k, Value: c.Value})
	}
	return out
}

// Cards returns every parsed record up to END, including commentary and
// blank records.
func (h *Header) Cards() []Card {
	return h.cards
}

// Raw renders the header as 80-column lines, stopping after END.
func (h *Header) Raw() string {
	var sb strings.Builder
	for i := range h.blocks {
		for j := 0; j < CardsPerBlock; j++ {
			line := h.blocks[i][j*CardSize : (j+1)*CardSize]
			sb.Write(line)
			sb.WriteByte('\n')
			if string(line[0:8]) == "END     " {
				return sb.String()
			}
		}
	}
	return sb.String()
}

// ParseCard decodes one 80-byte keyword record.
//
// FITS 4.0 §4.1.2: bytes 1-8 hold the keyword, bytes 9-10 the value indicator
// "= ", and the remaining bytes the value and an optional comment introduced
// by a slash.
func ParseCard(raw []byte, mode StringMode) Card {
	if len(raw) > CardSize {
		raw = raw[:CardSize]
	}
	keyEnd := min(8, len(raw))
	card := Card{Keyword: strings.TrimSpace(string(raw[:keyEnd]))}

	if len(raw) >= 10 && raw[8] == '=' && raw[9] == ' ' {
		card.HasValue = true
		card.Value, card.Comment = splitValue(string(raw[10:]), mode)
		return card
	}

	if len(raw) > 9 {
		card.Comment = string(raw[9:])
	}
	return card
}

func splitValue(s string, mode StringMode) (value, comment string) {
	if mode == StringLegacy {
		parts := strings.Split(s, "/")
		if len(parts) == 2 {
			comment = parts[1]
		}
		return stripAll(parts[0]), comment
	}

	trimmed := strings.TrimLeft(s, " ")
	if strings.HasPrefix(trimmed, "'") {
		return splitQuoted(trimmed)
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return strings.TrimSpace(trimmed[:i]), strings.TrimSpace(trimmed[i+1:])
	}
	return strings.TrimSpace(trimmed), ""
}

// splitQuoted handles a value that starts with a quote. Two consecutive
// quotes inside the string stand for one literal quote.
func splitQuoted(s string) (value, comment string) {
	var sb strings.Builder
	i := 1
	for i < len(s) {
		if s[i] == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				sb.WriteByte('\'')
				i += 2
				continue
			}
			i++
			break
		}
		sb.WriteByte(s[i])
		i++
	}
	rest := s[i:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		comment = strings.TrimSpace(rest[j+1:])
	}
	return strings.TrimRight(sb.String(), " "), comment
}

func stripAll(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
}

func parseReal(s string, bits int) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	return strconv.ParseFloat(s, bits)
}
